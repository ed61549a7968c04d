package documents

import (
	"errors"
	"fmt"
)

// Status enumerates document lifecycle states.
type Status string

const (
	StatusReceived    Status = "RECEIVED"
	StatusClassified  Status = "CLASSIFIED"
	StatusParsed      Status = "PARSED"
	StatusReady       Status = "READY"
	StatusRouted      Status = "ROUTED"
	StatusPosted      Status = "POSTED"
	StatusNeedsReview Status = "NEEDS_REVIEW"
)

var statusRank = map[Status]int{
	StatusReceived:   0,
	StatusClassified: 1,
	StatusParsed:     2,
	StatusReady:      3,
	StatusRouted:     4,
	StatusPosted:     5,
}

// Lifecycle errors.
var (
	// ErrStatusRegression occurs when a transition would lower the rank.
	ErrStatusRegression = errors.New("documents: status rank may not decrease")
	// ErrNeedsReview occurs when a document parked for review is advanced
	// without the explicit external reset.
	ErrNeedsReview = errors.New("documents: document needs review")
	// ErrUnknownStatus indicates a status outside the lifecycle.
	ErrUnknownStatus = errors.New("documents: unknown status")
)

// Rank returns the position of a forward status in the fixed ordering.
// NEEDS_REVIEW carries no rank and returns -1.
func (s Status) Rank() int {
	if rank, ok := statusRank[s]; ok {
		return rank
	}
	return -1
}

// Valid reports whether s is a known lifecycle status.
func (s Status) Valid() bool {
	return s == StatusNeedsReview || s.Rank() >= 0
}

// Transition checks the forward-only rules: rank never decreases, entry into
// NEEDS_REVIEW is allowed from any state, and exit from NEEDS_REVIEW is an
// explicit external action rather than part of the pipeline.
func Transition(current, next Status) error {
	if !current.Valid() || !next.Valid() {
		return ErrUnknownStatus
	}
	if next == StatusNeedsReview {
		return nil
	}
	if current == StatusNeedsReview {
		return ErrNeedsReview
	}
	if next.Rank() < current.Rank() {
		return fmt.Errorf("%w: %s -> %s", ErrStatusRegression, current, next)
	}
	return nil
}

// Advance mutates the document status when the transition is legal. An equal
// rank leaves the status unchanged without error, so idempotent reruns of a
// pipeline step are safe.
func (d *Document) Advance(next Status) error {
	if err := Transition(d.Status, next); err != nil {
		return err
	}
	d.Status = next
	return nil
}
