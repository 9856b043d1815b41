package model

import (
	"encoding/json"
	"strings"
)

// Action is a single discrete legislative event for a bill. Identity
// is the (description, date) pair, never array position.
type Action map[string]any

// TrackedClassifications are the action classifications that get a
// structured log filename instead of a slugged description.
var TrackedClassifications = map[string]bool{
	"introduction":      true,
	"passage":           true,
	"executive-receipt": true,
	"became-law":        true,
}

// Description returns the action's description field.
func (a Action) Description() string {
	s, _ := a["description"].(string)
	return s
}

// Date returns the action's date field.
func (a Action) Date() string {
	s, _ := a["date"].(string)
	return s
}

// Identity returns the dedup key for the action. Two actions with the
// same description and date are the same action regardless of any
// other field.
func (a Action) Identity() string {
	return a.Description() + "|" + a.Date()
}

// TrackedClassification returns the action's first classification when
// it is one of the tracked set, or "" otherwise.
func (a Action) TrackedClassification() string {
	raw, _ := a["classification"].([]any)
	if len(raw) == 0 {
		return ""
	}
	first, _ := raw[0].(string)
	if TrackedClassifications[first] {
		return first
	}
	return ""
}

// OrganizationID returns the action's organization_id field.
func (a Action) OrganizationID() string {
	s, _ := a["organization_id"].(string)
	return s
}

// Processing returns the action's _processing map, creating it when
// absent.
func (a Action) Processing() map[string]any {
	if m, ok := a["_processing"].(map[string]any); ok {
		return m
	}
	m := map[string]any{}
	a["_processing"] = m
	return m
}

// OrgClassification extracts a chamber classification ("lower",
// "upper", ...) from an organization reference.
//
// Upstream encodes the organization as a pseudo-JSON string like
// `~{"classification": "lower"}`. Whether that is an encoding bug or
// an intentional compact form is unconfirmed, so the parse is
// defensive: anything that does not decode cleanly yields "unknown".
func OrgClassification(orgID string) string {
	if !strings.Contains(orgID, "classification") {
		return "unknown"
	}
	var org struct {
		Classification string `json:"classification"`
	}
	trimmed := strings.Trim(orgID, "~")
	if err := json.Unmarshal([]byte(trimmed), &org); err != nil {
		return "unknown"
	}
	if org.Classification == "" {
		return "unknown"
	}
	return org.Classification
}
