package classifier

import (
	"errors"
	"fmt"
)

// ErrInvalidConfig marks configuration mistakes that are fatal before any
// work begins. Every other failure inside the pipeline is recovered locally.
var ErrInvalidConfig = errors.New("invalid configuration")

// TierError records a tier failing to label one batch. It is logged and
// recovered with fallback labels, never surfaced to the caller.
type TierError struct {
	Tier  string
	Batch int
	Err   error
}

func (e *TierError) Error() string {
	return fmt.Sprintf("tier %s failed on batch %d: %v", e.Tier, e.Batch, e.Err)
}

func (e *TierError) Unwrap() error {
	return e.Err
}

func errLabelCountMismatch(got, want int) error {
	return fmt.Errorf("tier returned %d labels for %d texts", got, want)
}
