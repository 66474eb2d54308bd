package handler

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakePipedrive simulates the three Pipedrive endpoints the pipeline uses
// and records every call for assertions.
type fakePipedrive struct {
	srv *httptest.Server

	mu            sync.Mutex
	searchCalls   int
	personCreates int
	dealCreates   int
	deleteCalls   int

	personsByEmail map[string]PipedrivePerson
	nextPersonID   int

	// When > 0, POST /deals responds with this status and success:false
	failDealStatus int

	lastPersonBody map[string]interface{}
	lastDealBody   map[string]interface{}
}

func newFakePipedrive(t *testing.T) *fakePipedrive {
	t.Helper()
	f := &fakePipedrive{
		personsByEmail: map[string]PipedrivePerson{},
		nextPersonID:   42,
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/persons/search", func(w http.ResponseWriter, r *http.Request) {
		f.mu.Lock()
		defer f.mu.Unlock()
		f.searchCalls++

		if r.URL.Query().Get("api_token") == "" {
			w.WriteHeader(http.StatusUnauthorized)
			fmt.Fprint(w, `{"success":false}`)
			return
		}

		term := r.URL.Query().Get("term")
		resp := map[string]interface{}{
			"success": true,
			"data":    map[string]interface{}{"items": []interface{}{}},
		}
		if person, ok := f.personsByEmail[term]; ok {
			resp["data"] = map[string]interface{}{
				"items": []interface{}{map[string]interface{}{"item": person}},
			}
		}
		json.NewEncoder(w).Encode(resp)
	})
	mux.HandleFunc("/persons", func(w http.ResponseWriter, r *http.Request) {
		f.mu.Lock()
		defer f.mu.Unlock()
		f.personCreates++

		var body map[string]interface{}
		json.NewDecoder(r.Body).Decode(&body)
		f.lastPersonBody = body

		person := PipedrivePerson{ID: f.nextPersonID, Name: body["name"].(string)}
		f.nextPersonID++
		json.NewEncoder(w).Encode(map[string]interface{}{
			"success": true,
			"data":    person,
		})
	})
	mux.HandleFunc("/deals", func(w http.ResponseWriter, r *http.Request) {
		f.mu.Lock()
		defer f.mu.Unlock()
		if r.Method == http.MethodDelete {
			f.deleteCalls++
			w.WriteHeader(http.StatusOK)
			return
		}
		f.dealCreates++

		var body map[string]interface{}
		json.NewDecoder(r.Body).Decode(&body)
		f.lastDealBody = body

		if f.failDealStatus > 0 {
			w.WriteHeader(f.failDealStatus)
			fmt.Fprint(w, `{"success":false,"error":"simulated failure"}`)
			return
		}
		json.NewEncoder(w).Encode(map[string]interface{}{
			"success": true,
			"data":    PipedriveDeal{ID: 501, Title: body["title"].(string)},
		})
	})

	f.srv = httptest.NewServer(mux)
	t.Cleanup(f.srv.Close)
	return f
}

func (f *fakePipedrive) counts() (searches, personCreates, dealCreates int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.searchCalls, f.personCreates, f.dealCreates
}

func newTestConfig(baseURL string) *Config {
	return &Config{
		Port:             "8080",
		PipedriveAPIKey:  "test-api-key",
		PipedriveBaseURL: baseURL,
		OwnerID:          7,
		DealFieldMode:    ModeLabels,
		DealVisibleTo:    "3",
		SecretToken:      "shh-secret",
	}
}

func testLead() *Lead {
	return &Lead{
		Email:                "a@b.com",
		FirstName:            "Jane",
		LastName:             "Doe",
		Callback:             "Yes",
		HighestQualification: "Bachelors Degree",
		PageIdentifier:       "website",
		ProductOfInterest:    NotProvided,
	}
}

func TestFindOrCreateContact_ReusesExisting(t *testing.T) {
	fake := newFakePipedrive(t)
	fake.personsByEmail["a@b.com"] = PipedrivePerson{ID: 99, Name: "Jane Doe"}

	svc := NewPipedriveService(newTestConfig(fake.srv.URL), DefaultLabelMap())
	contact, created, err := svc.FindOrCreateContactByEmail(context.Background(), "a@b.com", "Jane Doe")

	require.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, 99, contact.ID)

	_, personCreates, _ := fake.counts()
	assert.Equal(t, 0, personCreates)
}

func TestFindOrCreateContact_CreatesWhenAbsent(t *testing.T) {
	fake := newFakePipedrive(t)

	svc := NewPipedriveService(newTestConfig(fake.srv.URL), DefaultLabelMap())
	contact, created, err := svc.FindOrCreateContactByEmail(context.Background(), "a@b.com", "Jane Doe")

	require.NoError(t, err)
	assert.True(t, created)
	assert.Equal(t, 42, contact.ID)
	assert.Equal(t, "Jane Doe", fake.lastPersonBody["name"])

	_, personCreates, _ := fake.counts()
	assert.Equal(t, 1, personCreates)
}

func TestProcessLead_LabelMode(t *testing.T) {
	fake := newFakePipedrive(t)
	svc := NewPipedriveService(newTestConfig(fake.srv.URL), DefaultLabelMap())

	result, err := svc.ProcessLead(context.Background(), testLead())
	require.NoError(t, err)

	assert.Equal(t, 42, result.Contact.ID)
	assert.True(t, result.ContactCreated)
	assert.Equal(t, 501, result.DealID)

	assert.Equal(t, "Lead: Jane Doe", fake.lastDealBody["title"])
	assert.Equal(t, float64(7), fake.lastDealBody["user_id"])
	assert.Equal(t, float64(42), fake.lastDealBody["person_id"])
	assert.NotContains(t, fake.lastDealBody, "org_id")

	m := DefaultLabelMap()
	label := fake.lastDealBody["label"].(string)
	assert.Contains(t, label, m.Qualifications["Bachelors Degree"])
	assert.Contains(t, label, m.Callbacks["Yes"])
	assert.Contains(t, label, m.Pages["website"])
	assert.Len(t, strings.Split(label, ","), 3)
}

func TestProcessLead_CustomFieldMode(t *testing.T) {
	fake := newFakePipedrive(t)
	cfg := newTestConfig(fake.srv.URL)
	cfg.DealFieldMode = ModeCustomFields
	cfg.OrgID = 12
	svc := NewPipedriveService(cfg, DefaultLabelMap())

	lead := testLead()
	lead.Callback = "No"
	lead.UTMSource = "google"

	_, err := svc.ProcessLead(context.Background(), lead)
	require.NoError(t, err)

	keys := DefaultLabelMap().CustomFields
	assert.Equal(t, "Bachelors Degree", fake.lastDealBody[keys.Qualification])
	assert.Equal(t, "google", fake.lastDealBody[keys.UTMSource])
	assert.Equal(t, true, fake.lastDealBody[keys.CallbackOptOut])
	assert.Equal(t, float64(12), fake.lastDealBody["org_id"])
	assert.NotContains(t, fake.lastDealBody, "label")
}

func TestProcessLead_NoMatchingLabels(t *testing.T) {
	fake := newFakePipedrive(t)
	svc := NewPipedriveService(newTestConfig(fake.srv.URL), DefaultLabelMap())

	lead := testLead()
	lead.HighestQualification = "Unmapped"
	lead.Callback = "Maybe"
	lead.PageIdentifier = "nowhere"

	_, err := svc.ProcessLead(context.Background(), lead)

	var validationErr *ValidationError
	require.ErrorAs(t, err, &validationErr)

	_, _, dealCreates := fake.counts()
	assert.Equal(t, 0, dealCreates)
}

func TestProcessLead_DealFailureKeepsContact(t *testing.T) {
	fake := newFakePipedrive(t)
	fake.failDealStatus = http.StatusInternalServerError
	svc := NewPipedriveService(newTestConfig(fake.srv.URL), DefaultLabelMap())

	result, err := svc.ProcessLead(context.Background(), testLead())

	var upstreamErr *UpstreamError
	require.ErrorAs(t, err, &upstreamErr)
	assert.Equal(t, "Failed to create deal in Pipedrive.", upstreamErr.Message)
	assert.Equal(t, http.StatusInternalServerError, upstreamErr.Status)

	// Partial completion: the new contact survives the failed deal
	require.NotNil(t, result)
	assert.True(t, result.ContactCreated)
	assert.Equal(t, 0, fake.deleteCalls)
}
