package handlers

import (
	"strings"
	"time"

	"github.com/windy-civi/toolkit/internal/ledger"
	"github.com/windy-civi/toolkit/internal/store"
)

// Kind identifies what entity an input file holds, derived from its
// filename prefix.
type Kind string

const (
	KindBill      Kind = "bill"
	KindVoteEvent Kind = "vote_event"
	KindEvent     Kind = "event"
	KindUnknown   Kind = "unknown"
)

// KindOf classifies a filename. vote_event_ is checked before event_
// since the former contains the latter.
func KindOf(filename string) Kind {
	switch {
	case strings.HasPrefix(filename, "vote_event_"):
		return KindVoteEvent
	case strings.HasPrefix(filename, "event_"):
		return KindEvent
	case strings.HasPrefix(filename, "bill_"):
		return KindBill
	default:
		return KindUnknown
	}
}

// Clock supplies the wall-clock instant for processing stamps. Tests
// substitute a deterministic implementation.
type Clock interface {
	Now() time.Time
}

// SystemClock reads the system wall clock.
type SystemClock struct{}

// Now implements Clock.
func (SystemClock) Now() time.Time { return time.Now() }

// Handlers carries the shared collaborators every entity handler
// needs. One value is built per run and threaded through the pipeline;
// there is no package-level state.
type Handlers struct {
	State  string
	Store  *store.Store
	Sink   *store.ErrorSink
	Ledger *ledger.Ledger
	Clock  Clock
}
