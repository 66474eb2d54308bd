package handler

import (
	"crypto/subtle"
	"errors"
	"log"
	"net/http"

	"github.com/gin-gonic/gin"
)

// SecretTokenHeader carries the shared secret on inbound webhook calls
const SecretTokenHeader = "X-Secret-Token"

// RequireSecretToken rejects any request whose secret header does not
// match the configured token. Runs before all other processing; comparison
// is constant-time.
func RequireSecretToken(config *Config) gin.HandlerFunc {
	return func(c *gin.Context) {
		provided := c.GetHeader(SecretTokenHeader)
		if config.SecretToken == "" ||
			subtle.ConstantTimeCompare([]byte(provided), []byte(config.SecretToken)) != 1 {
			c.AbortWithStatusJSON(http.StatusForbidden, WebhookResponse{
				Success: false,
				Message: "Unauthorized access",
			})
			return
		}
		c.Next()
	}
}

// ListenerHandler handles lead-submission webhooks: normalize the payload,
// validate configuration, run the Pipedrive pipeline, then fire the admin
// notification and acknowledge.
func ListenerHandler(config *Config, pipedriveService *PipedriveService, mailer Mailer) gin.HandlerFunc {
	return func(c *gin.Context) {
		// Owner id gates everything; reject before any outbound call
		if config.OwnerID <= 0 {
			c.JSON(http.StatusBadRequest, WebhookResponse{
				Success: false,
				Message: "Invalid owner ID configured.",
			})
			return
		}

		fields, err := NormalizePayload(c.Request.Body, c.ContentType())
		if err != nil {
			log.Printf("❌ [LISTENER] Failed to parse payload: %v", err)
			c.JSON(http.StatusBadRequest, WebhookResponse{
				Success: false,
				Message: "Invalid webhook payload",
			})
			return
		}

		if config.IsDebug() {
			log.Printf("📦 [LISTENER] Merged field set: %v", fields)
		}

		lead := LeadFromFields(fields)
		log.Printf("🔔 [LISTENER] Lead received: %s (%s)", lead.FullName(), lead.Email)

		result, err := pipedriveService.ProcessLead(c.Request.Context(), lead)
		if err != nil {
			var validationErr *ValidationError
			var upstreamErr *UpstreamError

			switch {
			case errors.As(err, &validationErr):
				log.Printf("❌ [LISTENER] Validation failed: %s", validationErr.Message)
				c.JSON(http.StatusBadRequest, WebhookResponse{
					Success: false,
					Message: validationErr.Message,
				})
			case errors.As(err, &upstreamErr):
				// Upstream status/body stay in logs and the admin
				// report, never in the response
				log.Printf("❌ [LISTENER] Upstream failure: %s (status %d, body %s)",
					upstreamErr.Message, upstreamErr.Status, upstreamErr.Body)
				if result != nil {
					notifyAdmin(mailer, lead, result)
				}
				c.JSON(http.StatusBadRequest, WebhookResponse{
					Success: false,
					Message: upstreamErr.Message,
				})
			default:
				log.Printf("❌ [LISTENER] Processing failed: %v", err)
				c.JSON(http.StatusBadRequest, WebhookResponse{
					Success: false,
					Message: "Failed to process lead",
				})
			}
			return
		}

		notifyAdmin(mailer, lead, result)

		c.JSON(http.StatusOK, WebhookResponse{
			Success: true,
			Message: "Webhook received and processed, email sent, and data forwarded to Pipedrive.",
		})
	}
}

// HealthCheckHandler provides a simple health check endpoint
func HealthCheckHandler(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":  "healthy",
		"service": "Lead Bridge",
		"version": "1.1.0",
	})
}
