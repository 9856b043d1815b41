package handlers

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestKindOf(t *testing.T) {
	tests := []struct {
		filename string
		want     Kind
	}{
		{"bill_HR1.json", KindBill},
		{"vote_event_abc.json", KindVoteEvent},
		{"event_abc.json", KindEvent},
		{"jurisdiction_il.json", KindUnknown},
		{"notes.txt", KindUnknown},
		{"", KindUnknown},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, KindOf(tt.filename), tt.filename)
	}
}

// vote_event_ contains event_ as a substring, so prefix order matters.
func TestKindOf_VoteEventBeforeEvent(t *testing.T) {
	assert.Equal(t, KindVoteEvent, KindOf("vote_event_1.json"))
	assert.NotEqual(t, KindEvent, KindOf("vote_event_1.json"))
}
