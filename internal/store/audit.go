package store

import (
	"time"

	"github.com/simp-lee/crudbase/internal/domain"
)

// Reclassify applies the audit transition for one pending change and
// returns its new classification. It is a pure function of (state, entity,
// actor, now); the unit of work invokes it for every pending change,
// exactly once per commit.
//
// Transitions:
//   - Inserted: stamp creation time and author, clear the deletion flag.
//   - Modified: stamp update time and author, clear the deletion flag.
//   - Removed: converted into a Modified change that only sets the deletion
//     flag, so a physical-delete intent becomes a soft delete on commit.
//   - Anything else is left untouched.
func Reclassify(state ChangeState, e domain.Entity, actor string, now time.Time) ChangeState {
	switch state {
	case StateInserted:
		e.StampCreated(now, actor)
	case StateModified:
		e.StampUpdated(now, actor)
	case StateRemoved:
		e.MarkDeleted()
		return StateModified
	}
	return state
}
