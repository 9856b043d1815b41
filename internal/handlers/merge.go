package handlers

import "github.com/windy-civi/toolkit/internal/model"

// FindNewActions returns the incoming actions whose identity
// (description, date) does not appear in the existing list, in
// incoming order.
func FindNewActions(existing, incoming []model.Action) []model.Action {
	seen := make(map[string]bool, len(existing))
	for _, action := range existing {
		seen[action.Identity()] = true
	}

	var fresh []model.Action
	for _, action := range incoming {
		if !seen[action.Identity()] {
			fresh = append(fresh, action)
		}
	}
	return fresh
}

// MergeActions combines persisted and incoming action lists.
//
// For every incoming action whose identity exists in the persisted
// list, the persisted copy wins, keeping its _processing metadata
// untouched. Actions new to the persisted list come in as-is. Output
// order follows the incoming list.
func MergeActions(existing, incoming []model.Action) []model.Action {
	persisted := make(map[string]model.Action, len(existing))
	for _, action := range existing {
		persisted[action.Identity()] = action
	}

	merged := make([]model.Action, 0, len(incoming))
	for _, action := range incoming {
		if kept, ok := persisted[action.Identity()]; ok {
			merged = append(merged, kept)
		} else {
			merged = append(merged, action)
		}
	}
	return merged
}

// ShouldProcessBill is the cheap pre-filter: a bill whose incoming
// action count equals its persisted count is treated as unchanged and
// skipped.
//
// Known limitation, preserved for compatibility: an edit replacing one
// action with another leaves the count unchanged and is not
// detected.
func ShouldProcessBill(existing model.Record, incoming model.Record) bool {
	if existing == nil {
		return true
	}
	return len(existing.Actions()) != len(incoming.Actions())
}
