package progress

import (
	"errors"
	"time"

	"github.com/JakeFAU/tika-extractor/internal/annotate"
)

// Event records one worker outcome.
type Event struct {
	// TS is the UTC timestamp recorded by the emitter.
	TS       time.Time
	Pipeline string
	// DOI is empty for records without an identifier.
	DOI     string
	Outcome annotate.Outcome
	// Attempt is the number of non-200 responses seen before this outcome.
	Attempt int
}

// Validate performs coarse validation on Event payloads.
func (e Event) Validate() error {
	if e.TS.IsZero() {
		return errors.New("timestamp is required")
	}
	if e.Pipeline == "" {
		return errors.New("pipeline is required")
	}
	switch e.Outcome {
	case annotate.OutcomeWritten, annotate.OutcomeFiltered, annotate.OutcomeRetried, annotate.OutcomeDropped:
	default:
		return errors.New("unknown outcome " + string(e.Outcome))
	}
	if e.Attempt < 0 {
		return errors.New("attempt must be >= 0")
	}
	return nil
}
