package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound signals a missing tool or history entry.
	ErrNotFound = errors.New("not found")
	// ErrAlreadyExists signals a duplicate tool name.
	ErrAlreadyExists = errors.New("already exists")
	// ErrValidation signals malformed input fields.
	ErrValidation = errors.New("validation failed")
	// ErrEmbedding signals embedding generation failure or degenerate input.
	ErrEmbedding = errors.New("embedding failed")
	// ErrIndexSync signals a partial dual-store write.
	ErrIndexSync = errors.New("index sync failed")
	// ErrStoreUnavailable signals an unreachable backing store.
	ErrStoreUnavailable = errors.New("store unavailable")
)

// SyncSide names the store whose step failed during a dual-store write.
type SyncSide string

const (
	// SideRelational is the relational (source of truth) store.
	SideRelational SyncSide = "relational"
	// SideVector is the vector index.
	SideVector SyncSide = "vector"
)

// IndexSyncError wraps ErrIndexSync with the affected tool ID and the side
// that failed, so callers can drive reconciliation.
type IndexSyncError struct {
	ToolID string
	Side   SyncSide
	Cause  error
}

func (e *IndexSyncError) Error() string {
	return fmt.Sprintf("%s: tool %s: %s step: %v", ErrIndexSync.Error(), e.ToolID, e.Side, e.Cause)
}

func (e *IndexSyncError) Unwrap() error { return ErrIndexSync }

// NewIndexSync creates an index sync error for the given tool and side.
func NewIndexSync(toolID string, side SyncSide, cause error) error {
	return &IndexSyncError{ToolID: toolID, Side: side, Cause: cause}
}
