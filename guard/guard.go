// Package guard provides stateful protocol validators for external queries.
//
// An LLM-driven consumer cannot be trusted to enumerate a paginated dataset
// exhaustively: it may skip offsets, repeat pages, or stop early. The guards
// make omission and duplication structurally impossible instead of relying
// on prompt instructions. Guards hold mutable run-scoped state with no
// concurrency control: one guard instance per run, single caller at a time.
package guard

import (
	"errors"
	"fmt"
)

// Violation identifies the protocol rule a request broke.
type Violation string

const (
	// OutOfOrder: a paginated request used an offset other than the expected one.
	OutOfOrder Violation = "out_of_order"
	// AlreadyComplete: a paginated request arrived after the dataset was exhausted.
	AlreadyComplete Violation = "already_complete"
	// DuplicateKey: a single-key request repeated a key already queried this run.
	DuplicateKey Violation = "duplicate_key"
	// BatchedKeysNotAllowed: a single-key request carried zero or multiple keys.
	BatchedKeysNotAllowed Violation = "batched_keys_not_allowed"
	// PaginationNotAllowed: a single-key request used a non-zero skip.
	PaginationNotAllowed Violation = "pagination_not_allowed"
)

// ViolationError is a recoverable protocol violation. It is reported back
// to the calling agent in-band (inside a structurally valid response) so it
// can self-correct rather than crash the run.
type ViolationError struct {
	Violation Violation
	// Expected and Requested are set for OutOfOrder.
	Expected  int
	Requested int
	// Key is set for DuplicateKey.
	Key string
	// Skip is set for PaginationNotAllowed.
	Skip int
}

func (e *ViolationError) Error() string {
	switch e.Violation {
	case OutOfOrder:
		return fmt.Sprintf("sequential batch violation: expected offset %d, requested %d; next valid offset is %d",
			e.Expected, e.Requested, e.Expected)
	case AlreadyComplete:
		return "all batches already processed (has_more=false was returned)"
	case DuplicateKey:
		return fmt.Sprintf("company %s has already been processed; do not query the same key twice", e.Key)
	case BatchedKeysNotAllowed:
		return "process one key at a time; split batched symbols into separate calls"
	case PaginationNotAllowed:
		return fmt.Sprintf("pagination not allowed: skip must be 0, requested %d", e.Skip)
	default:
		return string(e.Violation)
	}
}

// Is allows errors.Is matching against a bare *ViolationError with only
// the Violation field set.
func (e *ViolationError) Is(target error) bool {
	var v *ViolationError
	if !errors.As(target, &v) {
		return false
	}
	return v.Violation == "" || v.Violation == e.Violation
}

// Cursor enforces strict, gapless, non-repeating pagination over a paged
// source. The upstream dataset order is randomized per run, so skipping or
// guessing offsets would silently drop records.
type Cursor struct {
	pageSize       int
	expectedOffset int
	completed      bool
}

// NewCursor creates a cursor guard for the given page size.
// One instance per run; not safe for concurrent use.
func NewCursor(pageSize int) *Cursor {
	return &Cursor{pageSize: pageSize}
}

// Check validates the requested offset without advancing the cursor.
// Callers that fetch after checking must call Admit only once the page is
// actually in hand, so a failed fetch leaves the cursor where it was and
// the same offset can be retried.
func (c *Cursor) Check(requestedOffset int) error {
	if c.completed {
		return &ViolationError{Violation: AlreadyComplete}
	}
	if requestedOffset != c.expectedOffset {
		return &ViolationError{
			Violation: OutOfOrder,
			Expected:  c.expectedOffset,
			Requested: requestedOffset,
		}
	}
	return nil
}

// Admit validates the requested offset and advances the cursor on success.
// On violation the cursor state is left untouched.
func (c *Cursor) Admit(requestedOffset int) error {
	if err := c.Check(requestedOffset); err != nil {
		return err
	}
	c.expectedOffset += c.pageSize
	return nil
}

// MarkComplete records that the final page has been served. Every
// subsequent Admit fails with AlreadyComplete. Callers invoke this once
// offset+returned reaches the source's total count.
func (c *Cursor) MarkComplete() {
	c.completed = true
}

// Completed reports whether the full dataset has been served.
func (c *Cursor) Completed() bool {
	return c.completed
}

// ExpectedOffset returns the next offset the cursor will admit.
func (c *Cursor) ExpectedOffset() int {
	return c.expectedOffset
}

// Reset returns the cursor to its initial state. Used when the
// orchestrator restarts a stage from the top after a transport failure;
// per-page artifacts already written are reused, not rewritten.
func (c *Cursor) Reset() {
	c.expectedOffset = 0
	c.completed = false
}

// KeySet enforces exactly-once, unbatched, unpaginated access to a
// per-entity resource (press releases by ticker).
type KeySet struct {
	seen map[string]struct{}
}

// NewKeySet creates a single-key guard. One instance per run.
func NewKeySet() *KeySet {
	return &KeySet{seen: make(map[string]struct{})}
}

// Check validates a single-key query without recording the key: exactly
// one key, never seen before, no pagination. Callers that fetch after
// checking must call Admit only once the fetch succeeds, so a transient
// failure does not burn the key for the rest of the run.
func (k *KeySet) Check(keys []string, skip int) error {
	if len(keys) != 1 {
		return &ViolationError{Violation: BatchedKeysNotAllowed}
	}
	if _, dup := k.seen[keys[0]]; dup {
		return &ViolationError{Violation: DuplicateKey, Key: keys[0]}
	}
	if skip != 0 {
		return &ViolationError{Violation: PaginationNotAllowed, Skip: skip}
	}
	return nil
}

// Admit validates a single-key query and records the key on success.
func (k *KeySet) Admit(keys []string, skip int) error {
	if err := k.Check(keys, skip); err != nil {
		return err
	}
	k.seen[keys[0]] = struct{}{}
	return nil
}

// Seen reports whether a key has already been admitted.
func (k *KeySet) Seen(key string) bool {
	_, ok := k.seen[key]
	return ok
}

// Count returns the number of keys admitted so far.
func (k *KeySet) Count() int {
	return len(k.seen)
}

// Reset clears the seen set for a stage restart.
func (k *KeySet) Reset() {
	k.seen = make(map[string]struct{})
}
