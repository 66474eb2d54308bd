package handler

import (
	"encoding/json"
	"io"
	"net/url"
	"strconv"
	"strings"
)

// FieldSet is the flat field mapping extracted from a webhook body
type FieldSet map[string]string

// Get returns the value for key, or "" when absent
func (f FieldSet) Get(key string) string {
	return f[key]
}

// GetOr returns the value for key, or fallback when absent or empty
func (f FieldSet) GetOr(key, fallback string) string {
	if v, ok := f[key]; ok && v != "" {
		return v
	}
	return fallback
}

// NormalizePayload flattens a webhook request body into a FieldSet.
//
// The form provider posts either JSON or URL-form-encoded bodies. Some
// deployments wrap the real submission in a data_json field whose value is
// itself a JSON-encoded object; its keys are merged over the outer fields,
// winning on collision.
func NormalizePayload(body io.Reader, contentType string) (FieldSet, error) {
	raw, err := io.ReadAll(body)
	if err != nil {
		return nil, err
	}

	fields := FieldSet{}

	if strings.Contains(contentType, "application/x-www-form-urlencoded") {
		values, err := url.ParseQuery(string(raw))
		if err != nil {
			return nil, err
		}
		for key := range values {
			fields[key] = values.Get(key)
		}
	} else {
		var outer map[string]interface{}
		if err := json.Unmarshal(raw, &outer); err != nil {
			return nil, err
		}
		for key, value := range outer {
			fields[key] = stringifyValue(value)
		}
	}

	// Merge the nested Unbounce payload, inner keys override outer ones
	if nested, ok := fields["data_json"]; ok && nested != "" {
		var inner map[string]interface{}
		if err := json.Unmarshal([]byte(nested), &inner); err == nil {
			for key, value := range inner {
				fields[key] = stringifyValue(value)
			}
		}
		delete(fields, "data_json")
	}

	return fields, nil
}

// stringifyValue flattens a decoded JSON value to its string form.
// Unbounce sends single-element arrays for form fields; the first element
// is taken. Objects and nulls resolve to "".
func stringifyValue(value interface{}) string {
	switch v := value.(type) {
	case string:
		return v
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(v)
	case []interface{}:
		if len(v) > 0 {
			return stringifyValue(v[0])
		}
		return ""
	default:
		return ""
	}
}
