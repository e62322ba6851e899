package store

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/simp-lee/crudbase/internal/domain"
	"github.com/simp-lee/crudbase/internal/pkg"
)

// UnitOfWork accumulates pending entity changes for one request-scoped call
// chain and flushes them in a single transaction. It is not safe for
// concurrent use; create one per request.
type UnitOfWork struct {
	db      *gorm.DB
	changes []*Change
	now     func() time.Time
}

// New creates a UnitOfWork over the given database handle.
func New(db *gorm.DB) *UnitOfWork {
	return &UnitOfWork{db: db, now: time.Now}
}

// Add stages an insert.
func (u *UnitOfWork) Add(e domain.Entity) {
	u.Attach(e, StateInserted)
}

// Remove stages a physical-delete intent. The audit step converts it into a
// soft delete at commit time.
func (u *UnitOfWork) Remove(e domain.Entity) {
	u.Attach(e, StateRemoved)
}

// Attach stages an entity with an explicit classification, e.g. marking a
// detached instance as Modified.
func (u *UnitOfWork) Attach(e domain.Entity, state ChangeState) {
	u.changes = append(u.changes, &Change{State: state, Entity: e})
}

// Pending returns the staged changes in staging order. Callers may inspect
// classifications and real-typed entities but must not reorder the slice.
func (u *UnitOfWork) Pending() []*Change {
	return u.changes
}

// Commit runs the audit step over every pending change and flushes the
// batch to the store in one transaction. The acting identity is resolved
// once per commit and applied to the whole batch; an empty actor falls back
// to the anonymous sentinel.
//
// Commit is all-or-nothing: a canceled context aborts before any audit
// mutation, and a failed transaction restores the in-memory audit fields
// and leaves every change staged.
func (u *UnitOfWork) Commit(ctx context.Context, actor string) error {
	if len(u.changes) == 0 {
		return nil
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	if actor == "" {
		actor = domain.AnonymousIdentity
	}

	now := u.now()

	snapshots := make([]domain.AuditFields, len(u.changes))
	states := make([]ChangeState, len(u.changes))
	for i, c := range u.changes {
		snapshots[i] = c.Entity.Audit()
		states[i] = c.State
		c.State = Reclassify(c.State, c.Entity, actor, now)
	}

	err := pkg.WithTx(u.db.WithContext(ctx), func(tx *gorm.DB) error {
		for _, c := range u.changes {
			switch c.State {
			case StateInserted:
				if err := tx.Create(c.Entity).Error; err != nil {
					return err
				}
			case StateModified:
				if err := tx.Save(c.Entity).Error; err != nil {
					return err
				}
			}
		}
		return nil
	})
	if err != nil {
		for i, c := range u.changes {
			c.Entity.SetAudit(snapshots[i])
			c.State = states[i]
		}
		return pkg.MapError(err)
	}

	for _, c := range u.changes {
		c.State = StateUnchanged
	}
	u.changes = nil
	return nil
}
