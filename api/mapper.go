package handler

import (
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// CustomFieldKeys binds lead fields to Pipedrive deal custom-field keys
// (the opaque 40-char hex keys Pipedrive assigns per company). An empty
// binding means the field is not written in custom-field mode.
type CustomFieldKeys struct {
	Qualification     string `yaml:"qualification"`
	CallbackOptOut    string `yaml:"callback_optout"`
	PageIdentifier    string `yaml:"page_identifier"`
	ProductOfInterest string `yaml:"product_of_interest"`
	UTMSource         string `yaml:"utm_source"`
	UTMMedium         string `yaml:"utm_medium"`
	UTMCampaign       string `yaml:"utm_campaign"`
	UTMTerm           string `yaml:"utm_term"`
	UTMContent        string `yaml:"utm_content"`
}

// LabelMap holds the categorical-value → Pipedrive identifier tables.
// Label IDs are company-specific, so deployments override the compiled
// defaults with a YAML file.
type LabelMap struct {
	Qualifications map[string]string `yaml:"qualifications"`
	Callbacks      map[string]string `yaml:"callbacks"`
	Pages          map[string]string `yaml:"pages"`
	CustomFields   CustomFieldKeys   `yaml:"custom_fields"`
}

// DefaultLabelMap returns the compiled-in mapping tables
func DefaultLabelMap() *LabelMap {
	return &LabelMap{
		Qualifications: map[string]string{
			"Grade 12":           "f3b0a7d2-6c1e-4b9a-8d24-51e09c2a7f10",
			"Higher Certificate": "0d5e9c41-2f7b-4a83-b6c0-8a914d3e5b72",
			"Diploma":            "7a2c4e86-9b13-4df0-a5e7-c08b16f94d23",
			"Bachelors Degree":   "b8f61d30-4e5a-47c9-92b8-6d0a3c7e18f4",
			"Postgraduate":       "2e94a7c5-8d06-41fb-bc31-79e5f0a8d246",
		},
		Callbacks: map[string]string{
			"Yes": "5c18e3a9-7f42-4b06-8a9d-d3270c6b51e8",
			"No":  "91d4b7f0-3a85-4c2e-b168-04af92e7c35d",
		},
		Pages: map[string]string{
			"website":     "8a48bd05-c7b3-42d7-824b-298d50409325",
			"open-day":    "c6f92a17-0e4d-48b5-9c73-1b86d5e0a492",
			"prospectus":  "4b07c8e2-95af-43d1-86e9-72c013f6a5b8",
			"application": "d15a3f68-2c90-4e7b-a40d-8e6b94c1f720",
		},
		CustomFields: CustomFieldKeys{
			Qualification:     "9f1c2d74a8e06b3572c49d18e5a60f27b38c41d0",
			CallbackOptOut:    "3e7a90c25d184fb6a1c83e50d7f2469b08a5e1c4",
			PageIdentifier:    "6d02b84f1e97ca35084d6b2a9f70e153c8d4276a",
			ProductOfInterest: "b51f08d3a64e29c7105fa83b6d90e2471c35d8f0",
			UTMSource:         "27c4e9a105d8b3f6482e07c1a95d60f3b2481e7c",
			UTMMedium:         "84f0d21c6b9e573a2048c5f1d30b86e94a7c2d15",
			UTMCampaign:       "c93a16e7f2d05b84961c30da7e45f208b6d1a593",
			UTMTerm:           "10e5c7a948f2d63b075a1e84c29f6d30b8547c2e",
			UTMContent:        "5b28f4d0c176a3e9840d2c6b1f95e7a30c48d612",
		},
	}
}

// LoadLabelMap loads mapping tables from path, layered over the compiled
// defaults. A missing file is not an error; a malformed one is.
func LoadLabelMap(path string) (*LabelMap, error) {
	m := DefaultLabelMap()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return m, nil
		}
		return nil, err
	}

	if err := yaml.Unmarshal(data, m); err != nil {
		return nil, err
	}
	return m, nil
}

// MatchLabels collects the label IDs matching the lead's qualification,
// callback, and page-identifier answers. Unknown values are dropped, not
// errors; callers in label-ID mode treat an empty result as a validation
// failure.
func (m *LabelMap) MatchLabels(lead *Lead) []string {
	var ids []string
	if id, ok := m.Qualifications[lead.HighestQualification]; ok {
		ids = append(ids, id)
	}
	if id, ok := m.Callbacks[lead.Callback]; ok {
		ids = append(ids, id)
	}
	if id, ok := m.Pages[lead.PageIdentifier]; ok {
		ids = append(ids, id)
	}
	return ids
}

// JoinLabels renders a label set the way the deals API expects it
func JoinLabels(ids []string) string {
	return strings.Join(ids, ",")
}

// CustomFieldValues writes the lead's categorical and UTM answers verbatim
// into their bound custom-field slots. Unbound fields and empty values are
// skipped; the opt-out flag is always written and is the negation of
// whether a callback was requested.
func (m *LabelMap) CustomFieldValues(lead *Lead) map[string]interface{} {
	keys := m.CustomFields
	values := make(map[string]interface{})

	set := func(key, value string) {
		if key != "" && value != "" {
			values[key] = value
		}
	}

	set(keys.Qualification, lead.HighestQualification)
	set(keys.PageIdentifier, lead.PageIdentifier)
	set(keys.ProductOfInterest, lead.ProductOfInterest)
	set(keys.UTMSource, lead.UTMSource)
	set(keys.UTMMedium, lead.UTMMedium)
	set(keys.UTMCampaign, lead.UTMCampaign)
	set(keys.UTMTerm, lead.UTMTerm)
	set(keys.UTMContent, lead.UTMContent)

	if keys.CallbackOptOut != "" {
		values[keys.CallbackOptOut] = !lead.CallbackRequested()
	}

	return values
}
