package ptv

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidParams is wrapped by every Params.Validate failure.
	ErrInvalidParams = errors.New("invalid correspondence parameters")

	// ErrSelfRowMissing is wrapped by SelfRowError.
	ErrSelfRowMissing = errors.New("anchor missing from its own neighbour set")

	// ErrShapeMismatch is returned when probability, neighbour and
	// compatibility sets do not describe the same anchors.
	ErrShapeMismatch = errors.New("probability and compatibility sets disagree")
)

// SelfRowError reports an anchor whose self row could not be located, which
// happens only when the self-neighbour radius is non-positive or the
// neighbour set was not built with BuildSelfNeighborSet.
type SelfRowError struct {
	Anchor int
}

func (e *SelfRowError) Error() string {
	return fmt.Sprintf("anchor %d: %v", e.Anchor, ErrSelfRowMissing)
}

func (e *SelfRowError) Unwrap() error { return ErrSelfRowMissing }
