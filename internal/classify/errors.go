package classify

import (
	"fmt"

	"github.com/cultivate-research/fsi-screener/internal/contentid"
)

// FatalError indicates classification of one page gave up after exhausting
// its retry budget, or hit an error that retrying cannot fix. The affected
// content identifier is left without a decision.
type FatalError struct {
	ContentID contentid.ID
	Attempts  int
	Cause     error
}

func (e *FatalError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("classification of %s failed after %d attempts: %v", e.ContentID, e.Attempts, e.Cause)
	}
	return fmt.Sprintf("classification of %s failed after %d attempts", e.ContentID, e.Attempts)
}

func (e *FatalError) Unwrap() error {
	return e.Cause
}
