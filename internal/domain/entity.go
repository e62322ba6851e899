package domain

import "time"

// AnonymousIdentity is the acting identity recorded when no authenticated
// caller can be resolved.
const AnonymousIdentity = "Anonymous"

// Model is the common base struct for all persisted entities. It replaces
// gorm.Model so that deletion is an explicit flag rather than gorm's
// implicit DeletedAt behavior, and so that authorship is recorded.
type Model struct {
	ID uint `gorm:"primaryKey" json:"id"`
	// The audit step owns these stamps; gorm's automatic create/update
	// time tracking is switched off so the two never disagree.
	CreatedAt time.Time  `gorm:"autoCreateTime:false" json:"created_at"`
	UpdatedAt *time.Time `gorm:"autoUpdateTime:false" json:"updated_at"`
	IsDeleted bool       `gorm:"not null;default:false" json:"is_deleted"`
	CreatedBy string     `gorm:"size:255" json:"created_by"`
	UpdatedBy string     `gorm:"size:255" json:"updated_by"`
}

// Entity is the capability interface every persisted type satisfies by
// embedding Model. The audit step mutates entities only through it.
type Entity interface {
	GetID() uint
	StampCreated(now time.Time, actor string)
	StampUpdated(now time.Time, actor string)
	MarkDeleted()
	Deleted() bool
	Audit() AuditFields
	SetAudit(a AuditFields)
}

// AuditFields is a snapshot of the audit-stamped portion of a Model. The
// unit of work captures one per pending change before a commit and restores
// it if the commit fails, so a rolled-back commit never leaves half-applied
// stamps in memory.
type AuditFields struct {
	CreatedAt time.Time
	UpdatedAt *time.Time
	IsDeleted bool
	CreatedBy string
	UpdatedBy string
}

// Relational is implemented by entity types that declare collection-valued
// associations to eager-load on by-id reads. Types without children simply
// don't implement it.
type Relational interface {
	Relations() []string
}

// GetID returns the primary key.
func (m *Model) GetID() uint { return m.ID }

// StampCreated records the creation audit fields and clears the deletion
// flag. Called exactly once, when an insert is committed.
func (m *Model) StampCreated(now time.Time, actor string) {
	m.CreatedAt = now
	m.IsDeleted = false
	m.CreatedBy = actor
}

// StampUpdated records the modification audit fields and clears the
// deletion flag.
func (m *Model) StampUpdated(now time.Time, actor string) {
	m.UpdatedAt = &now
	m.IsDeleted = false
	m.UpdatedBy = actor
}

// MarkDeleted flags the record as logically deleted. No other field is
// touched; the row is never physically removed by a normal delete.
func (m *Model) MarkDeleted() { m.IsDeleted = true }

// Deleted reports whether the record is logically deleted.
func (m *Model) Deleted() bool { return m.IsDeleted }

// Audit returns a snapshot of the audit fields.
func (m *Model) Audit() AuditFields {
	return AuditFields{
		CreatedAt: m.CreatedAt,
		UpdatedAt: m.UpdatedAt,
		IsDeleted: m.IsDeleted,
		CreatedBy: m.CreatedBy,
		UpdatedBy: m.UpdatedBy,
	}
}

// SetAudit restores a previously captured audit snapshot.
func (m *Model) SetAudit(a AuditFields) {
	m.CreatedAt = a.CreatedAt
	m.UpdatedAt = a.UpdatedAt
	m.IsDeleted = a.IsDeleted
	m.CreatedBy = a.CreatedBy
	m.UpdatedBy = a.UpdatedBy
}
