package model

// Record is a parsed upstream payload. Fields the pipeline does not
// recognize are preserved as-is through every merge and rewrite.
type Record map[string]any

// UnknownSession is the session id used when a payload carries no
// legislative_session field.
const UnknownSession = "unknown-session"

// String returns the string value for key, or "" when the key is
// absent or not a string.
func (r Record) String(key string) string {
	s, _ := r[key].(string)
	return s
}

// Identifier returns the record's own identifier (bills).
func (r Record) Identifier() string {
	return r.String("identifier")
}

// BillIdentifier returns the referenced bill identifier
// (vote events, events).
func (r Record) BillIdentifier() string {
	return r.String("bill_identifier")
}

// Session returns the record's legislative session id, or
// UnknownSession when absent.
func (r Record) Session() string {
	if s := r.String("legislative_session"); s != "" {
		return s
	}
	return UnknownSession
}

// HasSession reports whether the record declares a legislative session.
func (r Record) HasSession() bool {
	return r.String("legislative_session") != ""
}

// StartDate returns the record's start_date field.
func (r Record) StartDate() string {
	return r.String("start_date")
}

// Actions returns the record's action list. Entries that are not JSON
// objects are skipped.
func (r Record) Actions() []Action {
	raw, _ := r["actions"].([]any)
	actions := make([]Action, 0, len(raw))
	for _, entry := range raw {
		if m, ok := entry.(map[string]any); ok {
			actions = append(actions, Action(m))
		}
	}
	return actions
}

// SetActions replaces the record's action list.
func (r Record) SetActions(actions []Action) {
	raw := make([]any, len(actions))
	for i, a := range actions {
		raw[i] = map[string]any(a)
	}
	r["actions"] = raw
}

// Processing returns the record's _processing map, creating it when
// absent.
func (r Record) Processing() map[string]any {
	if m, ok := r["_processing"].(map[string]any); ok {
		return m
	}
	m := map[string]any{}
	r["_processing"] = m
	return m
}

// BillIdentifiers returns every bill identifier an event references,
// in the record's own order. Events may carry either a
// bill_identifiers list or a single bill_identifier.
func (r Record) BillIdentifiers() []string {
	if raw, ok := r["bill_identifiers"].([]any); ok {
		ids := make([]string, 0, len(raw))
		for _, entry := range raw {
			if id, ok := entry.(string); ok && id != "" {
				ids = append(ids, id)
			}
		}
		return ids
	}
	if id := r.BillIdentifier(); id != "" {
		return []string{id}
	}
	return nil
}

// Placeholder is the minimal stand-in written into a bill folder when
// a vote or event references the bill before the bill itself arrives.
type Placeholder struct {
	Identifier  string `json:"identifier"`
	Placeholder bool   `json:"placeholder"`
}

// SessionInfo is the resolved metadata for a legislative session.
type SessionInfo struct {
	Name       string `json:"name"`
	DateFolder string `json:"date_folder"`
}

// OrphanRecord tracks a bill identifier that has only placeholder data
// across runs. first_seen is set once and never replaced.
type OrphanRecord struct {
	FirstSeen       string `json:"first_seen"`
	LastSeen        string `json:"last_seen"`
	OccurrenceCount int    `json:"occurrence_count"`
	Session         string `json:"session"`
	VoteCount       int    `json:"vote_count"`
	EventCount      int    `json:"event_count"`
	Path            string `json:"path"`
}

// ChronicThreshold is the occurrence count at which a still-orphaned
// bill is flagged for reporting. Reporting only; processing behavior
// does not change.
const ChronicThreshold = 3

// Chronic reports whether the orphan has persisted long enough to be
// flagged in reports.
func (o OrphanRecord) Chronic() bool {
	return o.OccurrenceCount >= ChronicThreshold
}
