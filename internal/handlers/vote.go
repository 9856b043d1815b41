package handlers

import (
	"fmt"
	"log/slog"
	"path/filepath"

	"github.com/windy-civi/toolkit/internal/ledger"
	"github.com/windy-civi/toolkit/internal/layout"
	"github.com/windy-civi/toolkit/internal/model"
)

// HandleVoteEvent persists a vote event as an immutable timestamped
// log entry under its referenced bill.
//
// The bill's folder is created (with a placeholder when the bill has
// not arrived) before the log is written, so arrival order between a
// bill and its votes never fails.
func (h *Handlers) HandleVoteEvent(filename string, rec model.Record) error {
	billID := rec.BillIdentifier()
	if billID == "" {
		if err := h.Sink.Record(sinkVoteMissingBill, filename, rec, filename); err != nil {
			return err
		}
		return NewValidationError(filename, "bill_identifier")
	}

	billDir := layout.BillPath(h.Store.Root, h.State, rec.Session(), billID)
	if err := h.Store.EnsureBillScaffold(billDir); err != nil {
		return err
	}
	if err := h.Store.EnsurePlaceholder(billDir, billID); err != nil {
		return err
	}

	ts := "unknown"
	if formatted, err := model.FormatTimestamp(rec.StartDate()); err == nil {
		ts = formatted
		if t, err := model.ParseTimestamp(formatted); err == nil {
			h.Ledger.Advance(ledger.CategoryVoteEvents, t)
		}
	} else {
		slog.Warn("vote event has unrecognized timestamp",
			"bill", billID, "start_date", rec.StartDate())
	}

	result := rec.String("result")
	if result == "" {
		result = "unknown"
	}

	var name string
	if result == "pass" {
		orgClass := model.OrgClassification(rec.String("organization"))
		name = fmt.Sprintf("%s.vote_event.pass.%s.json", ts, orgClass)
	} else {
		name = fmt.Sprintf("%s_vote_event_%s.json", ts, layout.Slug(result))
	}

	path := filepath.Join(billDir, layout.LogsDir, name)
	if err := h.Store.WriteJSON(path, rec); err != nil {
		return err
	}

	slog.Debug("vote event saved", "bill", billID, "result", result)
	return nil
}
