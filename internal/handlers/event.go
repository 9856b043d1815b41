package handlers

import (
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"

	"github.com/windy-civi/toolkit/internal/ledger"
	"github.com/windy-civi/toolkit/internal/layout"
	"github.com/windy-civi/toolkit/internal/model"
)

// EventLink overrides an event's destination when it is materialized
// by the linking pipeline: the session was resolved through the
// referenced bill rather than declared on the record.
type EventLink struct {
	SessionID string
	BillID    string
}

// HandleEvent persists an event into its session's events folder.
//
// With a nil link the event must declare its own start_date and
// bill_identifier and the events ledger advances. With a link (from
// the linking pipeline) the session and bill come from the link and
// the repository-level ledger is left alone: the record was already
// gated when it entered the archive.
func (h *Handlers) HandleEvent(filename string, rec model.Record, link *EventLink) error {
	eventID := rec.String("_id")
	if eventID == "" {
		eventID = strings.TrimSuffix(filename, ".json")
	}

	startDate := rec.StartDate()
	if startDate == "" {
		if err := h.Sink.Record(sinkEventMissingStartDate, filename, rec, filename); err != nil {
			return err
		}
		return NewValidationError(filename, "start_date")
	}

	if link == nil && rec.BillIdentifier() == "" {
		if err := h.Sink.Record(sinkEventMissingBill, filename, rec, filename); err != nil {
			return err
		}
		return NewValidationError(filename, "bill_identifier")
	}

	ts := "unknown"
	if formatted, err := model.FormatTimestamp(startDate); err == nil {
		ts = formatted
		if link == nil {
			if t, err := model.ParseTimestamp(formatted); err == nil {
				h.Ledger.Advance(ledger.CategoryEvents, t)
			}
		}
	} else {
		slog.Warn("event has unrecognized timestamp",
			"event", eventID, "start_date", startDate)
	}

	name := rec.String("name")
	if name == "" {
		name = "event"
	}

	sessionID := rec.Session()
	if link != nil {
		sessionID = link.SessionID
	}

	eventsDir := layout.EventsDir(h.Store.Root, h.State, sessionID)
	path := filepath.Join(eventsDir, fmt.Sprintf("%s_%s.json", ts, layout.EventName(name)))
	if err := h.Store.WriteJSON(path, rec); err != nil {
		return err
	}

	slog.Debug("event saved", "event", eventID, "session", sessionID)
	return nil
}
