package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// PipedriveService handles Pipedrive API interactions for the lead pipeline
type PipedriveService struct {
	config     *Config
	labelMap   *LabelMap
	httpClient *http.Client
}

// NewPipedriveService creates a new Pipedrive service instance
func NewPipedriveService(config *Config, labelMap *LabelMap) *PipedriveService {
	return &PipedriveService{
		config:     config,
		labelMap:   labelMap,
		httpClient: &http.Client{Timeout: 15 * time.Second},
	}
}

// makePipedriveRequest makes an HTTP request to the Pipedrive API. The API
// key travels as a query credential. The response body is read in full so
// it can be logged and carried into the admin notification.
func (p *PipedriveService) makePipedriveRequest(ctx context.Context, method, endpoint string, body interface{}) (int, []byte, error) {
	// Endpoint may already carry query parameters
	separator := "?"
	if strings.Contains(endpoint, "?") {
		separator = "&"
	}
	requestURL := p.config.PipedriveBaseURL + endpoint + separator + "api_token=" + url.QueryEscape(p.config.PipedriveAPIKey)

	var reqBody io.Reader
	if body != nil {
		jsonData, err := json.Marshal(body)
		if err != nil {
			return 0, nil, fmt.Errorf("failed to marshal request body: %w", err)
		}
		reqBody = bytes.NewBuffer(jsonData)
		if p.config.IsDebug() {
			log.Printf("📤 Request body: %s", string(jsonData))
		}
	}

	req, err := http.NewRequestWithContext(ctx, method, requestURL, reqBody)
	if err != nil {
		return 0, nil, fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	log.Printf("🌐 Making %s request to Pipedrive: %s", method, endpoint)

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return 0, nil, fmt.Errorf("pipedrive request failed: %w", err)
	}
	defer resp.Body.Close()

	bodyBytes, err := io.ReadAll(resp.Body)
	if err != nil {
		return resp.StatusCode, nil, fmt.Errorf("failed to read response body: %w", err)
	}

	log.Printf("📥 Pipedrive response status: %d", resp.StatusCode)
	if p.config.IsDebug() {
		log.Printf("📥 Pipedrive response body: %s", string(bodyBytes))
	}

	return resp.StatusCode, bodyBytes, nil
}

// FindOrCreateContactByEmail searches Pipedrive for a person by email and
// reuses the first match. When no match exists a new person is created with
// the lead's name and email. The creation response's success flag and id
// gate whether the result is trusted; an untrusted result aborts the
// request upstream, so no deal is ever attempted without a contact id.
func (p *PipedriveService) FindOrCreateContactByEmail(ctx context.Context, email, name string) (*Contact, bool, error) {
	log.Printf("🔍 Searching Pipedrive contact by email: %s", email)

	searchEndpoint := fmt.Sprintf("/persons/search?term=%s&fields=email", url.QueryEscape(email))
	status, body, err := p.makePipedriveRequest(ctx, "GET", searchEndpoint, nil)
	if err != nil {
		return nil, false, &UpstreamError{
			Message: "Failed to look up contact in Pipedrive.",
			Status:  status,
			Body:    string(body),
			Err:     err,
		}
	}

	var searchResult PipedrivePersonSearchResponse
	if err := json.Unmarshal(body, &searchResult); err == nil && searchResult.Success {
		if items := searchResult.Data.Items; len(items) > 0 {
			person := items[0].Item
			log.Printf("✅ Found existing contact: ID=%d, Name=%s", person.ID, person.Name)
			return &Contact{ID: person.ID, Name: person.Name, Email: email}, false, nil
		}
	}

	// No match, create a new person
	log.Printf("📝 Creating new Pipedrive contact for email: %s", email)
	personData := map[string]interface{}{
		"name": name,
		"email": []map[string]interface{}{
			{"value": email, "primary": true},
		},
		"owner_id": p.config.OwnerID,
	}

	status, body, err = p.makePipedriveRequest(ctx, "POST", "/persons", personData)
	if err != nil {
		return nil, false, &UpstreamError{
			Message: "Failed to create contact in Pipedrive.",
			Status:  status,
			Body:    string(body),
			Err:     err,
		}
	}

	var personResult PipedrivePersonResponse
	if err := json.Unmarshal(body, &personResult); err != nil {
		return nil, false, &UpstreamError{
			Message: "Failed to create contact in Pipedrive.",
			Status:  status,
			Body:    string(body),
			Err:     err,
		}
	}

	if !personResult.Success || personResult.Data == nil || personResult.Data.ID <= 0 {
		return nil, false, &UpstreamError{
			Message: "Failed to create contact in Pipedrive.",
			Status:  status,
			Body:    string(body),
		}
	}

	person := personResult.Data
	log.Printf("✅ Created new contact: ID=%d, Name=%s", person.ID, person.Name)
	return &Contact{ID: person.ID, Name: person.Name, Email: email}, true, nil
}

// buildDealData composes the deal-create body for the configured mode.
// Label-ID mode fails with a ValidationError when nothing matched;
// custom-field mode never fails on unmatched values.
func (p *PipedriveService) buildDealData(lead *Lead, contactID int) (map[string]interface{}, error) {
	dealData := map[string]interface{}{
		"title":      "Lead: " + lead.FullName(),
		"user_id":    p.config.OwnerID,
		"person_id":  contactID,
		"visible_to": p.config.DealVisibleTo,
	}
	if p.config.OrgID > 0 {
		dealData["org_id"] = p.config.OrgID
	}

	switch p.config.DealFieldMode {
	case ModeCustomFields:
		for key, value := range p.labelMap.CustomFieldValues(lead) {
			dealData[key] = value
		}
	default:
		labels := p.labelMap.MatchLabels(lead)
		if len(labels) == 0 {
			return nil, NewValidationError("No matching labels found for the submitted lead.")
		}
		dealData["label"] = JoinLabels(labels)
	}

	return dealData, nil
}

// ProcessLead runs the pipeline for one normalized lead: resolve the
// contact, then create the deal referencing it. Both calls are sequential
// and terminal on failure; nothing is retried.
func (p *PipedriveService) ProcessLead(ctx context.Context, lead *Lead) (*LeadResult, error) {
	contact, created, err := p.FindOrCreateContactByEmail(ctx, lead.Email, lead.FullName())
	if err != nil {
		return nil, err
	}

	dealData, err := p.buildDealData(lead, contact.ID)
	if err != nil {
		return nil, err
	}

	status, body, err := p.makePipedriveRequest(ctx, "POST", "/deals", dealData)
	result := &LeadResult{
		Contact:            contact,
		ContactCreated:     created,
		DealResponseBody:   string(body),
		DealResponseStatus: status,
	}

	if err != nil || status < 200 || status >= 300 {
		// The contact is not rolled back; record the orphan distinctly
		if created {
			log.Printf("⚠️  Partial completion: contact %d created but deal creation failed (status %d)", contact.ID, status)
		}
		return result, &UpstreamError{
			Message: "Failed to create deal in Pipedrive.",
			Status:  status,
			Body:    string(body),
			Err:     err,
		}
	}

	var dealResult PipedriveDealResponse
	if err := json.Unmarshal(body, &dealResult); err != nil || !dealResult.Success || dealResult.Data == nil {
		if created {
			log.Printf("⚠️  Partial completion: contact %d created but deal response was not usable", contact.ID)
		}
		return result, &UpstreamError{
			Message: "Failed to create deal in Pipedrive.",
			Status:  status,
			Body:    string(body),
			Err:     err,
		}
	}

	result.DealID = dealResult.Data.ID
	log.Printf("✅ Created deal %d for contact %d (%s)", result.DealID, contact.ID, lead.Email)
	return result, nil
}
