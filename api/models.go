package handler

// NotProvided is the placeholder for optional lead fields the form did not
// send. Earlier deployments mixed two casings; this is the canonical one.
const NotProvided = "Not provided"

// Lead represents a normalized lead submission from the landing-page form.
// Built per request, discarded after the response.
type Lead struct {
	Email     string
	FirstName string
	LastName  string

	HighestQualification string
	Callback             string
	ProductOfInterest    string
	PageIdentifier       string

	// Campaign attribution
	UTMSource   string
	UTMMedium   string
	UTMCampaign string
	UTMTerm     string
	UTMContent  string

	// Page metadata
	PageURL       string
	PageName      string
	PageUUID      string
	Variant       string
	IPAddress     string
	DateSubmitted string
	TimeSubmitted string
}

// FullName returns "First Last" for deal titles and contact creation
func (l *Lead) FullName() string {
	return l.FirstName + " " + l.LastName
}

// CallbackRequested reports whether the lead asked for a callback
func (l *Lead) CallbackRequested() bool {
	return l.Callback == "Yes"
}

// CallbackReadable renders the callback answer for the admin report
func (l *Lead) CallbackReadable() string {
	if l.CallbackRequested() {
		return "Requested"
	}
	return "Not Requested"
}

// LeadFromFields builds a Lead from the normalized webhook field set
func LeadFromFields(fields FieldSet) *Lead {
	return &Lead{
		Email:     fields.Get("email"),
		FirstName: fields.Get("first_name"),
		LastName:  fields.Get("last_name"),

		HighestQualification: fields.GetOr("highest_qualification", NotProvided),
		Callback:             fields.GetOr("callback", NotProvided),
		ProductOfInterest:    fields.GetOr("product_of_interest", NotProvided),
		PageIdentifier:       fields.Get("page_identifier"),

		UTMSource:   fields.Get("utm_source"),
		UTMMedium:   fields.Get("utm_medium"),
		UTMCampaign: fields.Get("utm_campaign"),
		UTMTerm:     fields.Get("utm_term"),
		UTMContent:  fields.Get("utm_content"),

		PageURL:       fields.GetOr("page_url", NotProvided),
		PageName:      fields.GetOr("page_name", NotProvided),
		PageUUID:      fields.GetOr("page_uuid", NotProvided),
		Variant:       fields.GetOr("variant", NotProvided),
		IPAddress:     fields.GetOr("ip_address", NotProvided),
		DateSubmitted: fields.GetOr("date_submitted", NotProvided),
		TimeSubmitted: fields.GetOr("time_submitted", NotProvided),
	}
}

// Contact represents a Pipedrive person resolved for a lead
type Contact struct {
	ID    int
	Name  string
	Email string
}

// LeadResult carries the outcome of a processed lead for the admin report
type LeadResult struct {
	Contact        *Contact
	ContactCreated bool
	DealID         int

	// Raw deal-create response, captured for diagnostics and the
	// notification email only. Never echoed to the webhook caller.
	DealResponseBody   string
	DealResponseStatus int
}

// PipedriveEmail represents an email entry on a Pipedrive person
type PipedriveEmail struct {
	Label   string `json:"label"`
	Value   string `json:"value"`
	Primary bool   `json:"primary"`
}

// PipedrivePerson represents a person from the Pipedrive API
type PipedrivePerson struct {
	ID    int              `json:"id"`
	Name  string           `json:"name"`
	Email []PipedriveEmail `json:"email"`
}

// PipedrivePersonResponse represents the response from the Pipedrive persons API
type PipedrivePersonResponse struct {
	Success bool             `json:"success"`
	Data    *PipedrivePerson `json:"data"`
}

// PipedrivePersonSearchResponse represents the persons/search response
type PipedrivePersonSearchResponse struct {
	Success bool `json:"success"`
	Data    struct {
		Items []struct {
			Item PipedrivePerson `json:"item"`
		} `json:"items"`
	} `json:"data"`
}

// PipedriveDeal represents a deal from the Pipedrive API
type PipedriveDeal struct {
	ID    int    `json:"id"`
	Title string `json:"title"`
}

// PipedriveDealResponse represents the response from the Pipedrive deals API
type PipedriveDealResponse struct {
	Success bool           `json:"success"`
	Data    *PipedriveDeal `json:"data"`
}

// WebhookResponse represents the response sent back to webhook callers
type WebhookResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}
