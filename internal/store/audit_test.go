package store

import (
	"testing"
	"time"

	"github.com/simp-lee/crudbase/internal/domain"
)

func TestReclassify_Inserted(t *testing.T) {
	p := &domain.Product{Name: "Widget"}
	p.IsDeleted = true
	now := time.Now()

	state := Reclassify(StateInserted, p, "alice", now)

	if state != StateInserted {
		t.Errorf("state = %v; want inserted", state)
	}
	if !p.CreatedAt.Equal(now) {
		t.Errorf("CreatedAt = %v; want %v", p.CreatedAt, now)
	}
	if p.CreatedBy != "alice" {
		t.Errorf("CreatedBy = %q; want alice", p.CreatedBy)
	}
	if p.IsDeleted {
		t.Error("IsDeleted should be cleared")
	}
}

func TestReclassify_Modified(t *testing.T) {
	p := &domain.Product{Name: "Widget"}
	p.IsDeleted = true
	now := time.Now()

	state := Reclassify(StateModified, p, "bob", now)

	if state != StateModified {
		t.Errorf("state = %v; want modified", state)
	}
	if p.UpdatedAt == nil || !p.UpdatedAt.Equal(now) {
		t.Errorf("UpdatedAt = %v; want %v", p.UpdatedAt, now)
	}
	if p.UpdatedBy != "bob" {
		t.Errorf("UpdatedBy = %q; want bob", p.UpdatedBy)
	}
	if p.IsDeleted {
		t.Error("IsDeleted should be cleared")
	}
}

func TestReclassify_RemovedBecomesSoftDelete(t *testing.T) {
	p := &domain.Product{Name: "Widget"}
	p.CreatedBy = "alice"
	now := time.Now()

	state := Reclassify(StateRemoved, p, "bob", now)

	if state != StateModified {
		t.Errorf("state = %v; want modified after removal conversion", state)
	}
	if !p.IsDeleted {
		t.Error("IsDeleted should be set")
	}
	// Removal only flips the flag; no other audit field is touched.
	if p.UpdatedAt != nil || p.UpdatedBy != "" {
		t.Error("removal must not stamp update fields")
	}
	if p.CreatedBy != "alice" {
		t.Error("removal must not touch create fields")
	}
}

func TestReclassify_UnchangedUntouched(t *testing.T) {
	p := &domain.Product{Name: "Widget"}

	state := Reclassify(StateUnchanged, p, "bob", time.Now())

	if state != StateUnchanged {
		t.Errorf("state = %v; want unchanged", state)
	}
	if p.CreatedBy != "" || p.UpdatedBy != "" || p.IsDeleted {
		t.Error("unchanged entities must not be mutated")
	}
}

func TestChangeState_String(t *testing.T) {
	tests := []struct {
		state ChangeState
		want  string
	}{
		{StateUnchanged, "unchanged"},
		{StateInserted, "inserted"},
		{StateModified, "modified"},
		{StateRemoved, "removed"},
		{ChangeState(42), "unknown"},
	}
	for _, tt := range tests {
		if got := tt.state.String(); got != tt.want {
			t.Errorf("String(%d) = %q; want %q", int(tt.state), got, tt.want)
		}
	}
}
