package handlers

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestIsRecordError(t *testing.T) {
	assert.True(t, IsRecordError(NewValidationError("bill_x.json", "identifier")))
	assert.True(t, IsRecordError(fmt.Errorf("route: %w", NewUnknownSessionError("bill_x.json", "999"))))
	assert.False(t, IsRecordError(errors.New("disk full")))
	assert.False(t, IsRecordError(nil))
}

func TestRecordError_Message(t *testing.T) {
	err := NewValidationError("bill_x.json", "identifier")
	assert.Contains(t, err.Error(), "VALIDATION_FAILED")
	assert.Contains(t, err.Error(), "field=identifier")

	noField := NewMissingSessionError("event_1.json")
	assert.Contains(t, noField.Error(), "MISSING_SESSION")
	assert.NotContains(t, noField.Error(), "field=")
}
