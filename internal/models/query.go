// Package models defines the request and response shapes of the search API.
package models

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"
)

// SearchQuery is a single search request: the question to embed, the tenant whose
// index is searched, and how many rows to return.
type SearchQuery struct {
	Question string `json:"question"`
	Industry string `json:"industry"`
	TopK     int    `json:"top_k"`
}

// FieldViolation names one violated constraint of a request.
type FieldViolation struct {
	Field  string `json:"field"`
	Reason string `json:"reason"`
}

// ValidationError reports every violated constraint of a malformed request.
type ValidationError struct {
	Violations []FieldViolation
}

func (e *ValidationError) Error() string {
	parts := make([]string, len(e.Violations))
	for i, v := range e.Violations {
		parts[i] = v.Field + ": " + v.Reason
	}
	return "invalid search query: " + strings.Join(parts, "; ")
}

func (e *ValidationError) add(field, reason string) {
	e.Violations = append(e.Violations, FieldViolation{Field: field, Reason: reason})
}

// Validate checks that question and industry are non-empty and top_k is at least 1.
// Whitespace is content; a question of spaces is embedded like any other.
func (q *SearchQuery) Validate() error {
	verr := &ValidationError{}
	if q.Question == "" {
		verr.add("question", "must not be empty")
	}
	if q.Industry == "" {
		verr.add("industry", "must not be empty")
	}
	if q.TopK < 1 {
		verr.add("top_k", "must be greater than or equal to 1")
	}
	if len(verr.Violations) > 0 {
		return verr
	}
	return nil
}

// ParseSearchQuery decodes a JSON request body field by field so that missing fields
// and wrong JSON types are reported per field, then validates the result.
func ParseSearchQuery(body []byte) (*SearchQuery, error) {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(body, &raw); err != nil {
		return nil, &ValidationError{Violations: []FieldViolation{
			{Field: "body", Reason: fmt.Sprintf("must be a JSON object: %v", err)},
		}}
	}
	if raw == nil {
		return nil, &ValidationError{Violations: []FieldViolation{
			{Field: "body", Reason: "must be a JSON object"},
		}}
	}

	verr := &ValidationError{}
	var q SearchQuery
	decodeField(raw, "question", &q.Question, "must be a string", verr)
	decodeField(raw, "industry", &q.Industry, "must be a string", verr)
	decodeField(raw, "top_k", &q.TopK, "must be an integer", verr)
	if len(verr.Violations) > 0 {
		// Report the remaining constraint violations of fields that did decode.
		if err := q.Validate(); err != nil {
			for _, v := range err.(*ValidationError).Violations {
				if !verr.has(v.Field) {
					verr.Violations = append(verr.Violations, v)
				}
			}
		}
		verr.sortByField()
		return nil, verr
	}
	if err := q.Validate(); err != nil {
		return nil, err
	}
	return &q, nil
}

func decodeField(raw map[string]json.RawMessage, field string, dst any, typeReason string, verr *ValidationError) {
	msg, ok := raw[field]
	if !ok || string(msg) == "null" {
		verr.add(field, "field required")
		return
	}
	if err := json.Unmarshal(msg, dst); err != nil {
		verr.add(field, typeReason)
	}
}

func (e *ValidationError) has(field string) bool {
	for _, v := range e.Violations {
		if v.Field == field {
			return true
		}
	}
	return false
}

var fieldOrder = map[string]int{"body": 0, "question": 1, "industry": 2, "top_k": 3}

func (e *ValidationError) sortByField() {
	sort.SliceStable(e.Violations, func(i, j int) bool {
		return fieldOrder[e.Violations[i].Field] < fieldOrder[e.Violations[j].Field]
	})
}
