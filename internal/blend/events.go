package blend

import "github.com/yourusername/oscar-odds/internal/models"

// EventSink receives non-fatal observability events raised while attaching
// signals and blending.
type EventSink interface {
	UnmatchedSignal(categoryID, target string, signal models.PrecursorSignal)
	AmbiguousMatch(categoryID, target string, signal models.PrecursorSignal, matched []string)
}

// NopEventSink discards every event
type NopEventSink struct{}

func (NopEventSink) UnmatchedSignal(string, string, models.PrecursorSignal) {}

func (NopEventSink) AmbiguousMatch(string, string, models.PrecursorSignal, []string) {}

// MultiEventSink fans events out to several sinks
type MultiEventSink []EventSink

func (m MultiEventSink) UnmatchedSignal(categoryID, target string, signal models.PrecursorSignal) {
	for _, s := range m {
		s.UnmatchedSignal(categoryID, target, signal)
	}
}

func (m MultiEventSink) AmbiguousMatch(categoryID, target string, signal models.PrecursorSignal, matched []string) {
	for _, s := range m {
		s.AmbiguousMatch(categoryID, target, signal, matched)
	}
}
