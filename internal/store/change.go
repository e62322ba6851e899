package store

import "github.com/simp-lee/crudbase/internal/domain"

// ChangeState classifies what a staged change will do to its record when
// committed.
type ChangeState int

const (
	StateUnchanged ChangeState = iota
	StateInserted
	StateModified
	StateRemoved
)

// String returns the classification name for logging.
func (s ChangeState) String() string {
	switch s {
	case StateUnchanged:
		return "unchanged"
	case StateInserted:
		return "inserted"
	case StateModified:
		return "modified"
	case StateRemoved:
		return "removed"
	default:
		return "unknown"
	}
}

// Change is one pending mutation in a unit of work: the real-typed entity
// plus its explicit classification tag.
type Change struct {
	State  ChangeState
	Entity domain.Entity
}
