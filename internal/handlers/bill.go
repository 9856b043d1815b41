package handlers

import (
	"fmt"
	"log/slog"
	"path/filepath"

	"github.com/windy-civi/toolkit/internal/layout"
	"github.com/windy-civi/toolkit/internal/model"
)

// Error sink categories written by the entity handlers. Category names
// carry their origin so error folders are self-describing.
const (
	sinkBillMissingIdentifier  = "from_handle_bill_missing_identifier"
	sinkVoteMissingBill        = "from_handle_vote_event_missing_bill_identifier"
	sinkEventMissingStartDate  = "from_handle_event_missing_start_date"
	sinkEventMissingBill       = "from_handle_event_missing_bill_identifier"
)

// HandleBill persists a bill record incrementally.
//
// The persisted bill (if any) is loaded, genuinely new actions are
// identified by (description, date) identity and logged once each, and
// the merged action list is written back with prior processing
// metadata preserved. The logs/ and files/ subfolders exist after
// every successful call regardless of whether new actions were found.
func (h *Handlers) HandleBill(filename string, rec model.Record) error {
	identifier := rec.Identifier()
	if identifier == "" {
		if err := h.Sink.Record(sinkBillMissingIdentifier, filename, rec, filename); err != nil {
			return err
		}
		return NewValidationError(filename, "identifier")
	}

	billDir := layout.BillPath(h.Store.Root, h.State, rec.Session(), identifier)
	if err := h.Store.EnsureBillScaffold(billDir); err != nil {
		return err
	}

	existing, err := h.Store.LoadBillMetadata(billDir)
	if err != nil {
		return err
	}

	incoming := rec.Actions()
	logsDir := filepath.Join(billDir, layout.LogsDir)
	now := model.ProcessingTimestamp(h.Clock.Now())

	if existing != nil {
		existingActions := existing.Actions()
		fresh := FindNewActions(existingActions, incoming)
		if len(fresh) > 0 {
			if err := h.writeActionLogs(fresh, identifier, logsDir); err != nil {
				return err
			}
			for _, action := range fresh {
				action.Processing()["log_file_created"] = now
			}
		}
		rec.SetActions(MergeActions(existingActions, incoming))

		// Prior bill-level processing fields survive the merge; only
		// the logs timestamp moves forward.
		proc := rec.Processing()
		if prior, ok := existing["_processing"].(map[string]any); ok {
			for k, v := range prior {
				proc[k] = v
			}
		}
		proc["logs_latest_update"] = now
	} else {
		if len(incoming) > 0 {
			if err := h.writeActionLogs(incoming, identifier, logsDir); err != nil {
				return err
			}
			for _, action := range incoming {
				action.Processing()["log_file_created"] = now
			}
			rec.SetActions(incoming)
		}
		rec["_processing"] = map[string]any{"logs_latest_update": now}
	}

	if err := h.Store.WriteJSON(filepath.Join(billDir, layout.MetadataFile), rec); err != nil {
		return err
	}

	slog.Debug("bill saved", "identifier", identifier, "session", rec.Session())
	return nil
}

// writeActionLogs writes one timestamped JSON file per action.
//
// Tracked classifications get a structured name carrying the
// classification and chamber; everything else gets a slugged
// description.
func (h *Handlers) writeActionLogs(actions []model.Action, billID, logsDir string) error {
	for _, action := range actions {
		ts := "unknown"
		if formatted, err := model.FormatTimestamp(action.Date()); err == nil {
			ts = formatted
		}

		var name string
		if classification := action.TrackedClassification(); classification != "" {
			orgClass := model.OrgClassification(action.OrganizationID())
			name = fmt.Sprintf("%s.classification.%s.%s.json", ts, classification, orgClass)
		} else {
			desc := action.Description()
			if desc == "" {
				desc = "no_description"
			}
			name = fmt.Sprintf("%s_%s.json", ts, layout.Slug(desc))
		}

		entry := map[string]any{
			"action":  map[string]any(action),
			"bill_id": billID,
		}
		if err := h.Store.WriteJSON(filepath.Join(logsDir, name), entry); err != nil {
			return err
		}
	}
	return nil
}
