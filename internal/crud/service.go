package crud

import (
	"context"
	"fmt"
	"reflect"

	"gorm.io/gorm"

	"github.com/simp-lee/crudbase/internal/domain"
	"github.com/simp-lee/crudbase/internal/pkg"
	"github.com/simp-lee/crudbase/internal/store"
)

// Ptr constrains PT to a pointer to T that satisfies the entity capability
// interface, i.e. any struct embedding domain.Model.
type Ptr[T any] interface {
	*T
	domain.Entity
}

// Service provides the generic data-access operations for one entity type.
// It is stateless and safe to share across requests: reads go straight to
// the database, writes are staged on the caller-supplied request-scoped
// unit of work.
type Service[T any, PT Ptr[T]] struct {
	db        *gorm.DB
	typeName  string
	relations []string
}

// NewService creates a Service for T. The collection associations to
// eager-load on by-id reads are resolved here, once, from the type's
// Relations declaration.
func NewService[T any, PT Ptr[T]](db *gorm.DB) *Service[T, PT] {
	var relations []string
	if r, ok := any(PT(new(T))).(domain.Relational); ok {
		relations = r.Relations()
	}
	return &Service[T, PT]{
		db:        db,
		typeName:  reflect.TypeFor[T]().Name(),
		relations: relations,
	}
}

// GetAll returns every non-deleted record as an untracked snapshot. The
// result is never nil.
func (s *Service[T, PT]) GetAll(ctx context.Context) ([]T, error) {
	var items []T
	if err := s.db.WithContext(ctx).Where("is_deleted = ?", false).Find(&items).Error; err != nil {
		return nil, pkg.MapError(err)
	}
	if items == nil {
		items = []T{}
	}
	return items, nil
}

// GetByFilter returns one page of non-deleted records per the given paging
// options.
func (s *Service[T, PT]) GetByFilter(ctx context.Context, opts *domain.PagedOptions) (*domain.PagedResult[T], error) {
	query := s.db.WithContext(ctx).Model(PT(new(T))).Where("is_deleted = ?", false)
	return pkg.Paginate[T](query, opts)
}

// GetByID fetches a single non-deleted record, eager-loading its declared
// collection associations. Missing and soft-deleted records both surface as
// not-found.
func (s *Service[T, PT]) GetByID(ctx context.Context, id uint) (PT, error) {
	query := s.db.WithContext(ctx).Where("id = ? AND is_deleted = ?", id, false)
	for _, rel := range s.relations {
		query = query.Preload(rel, "is_deleted = ?", false)
	}

	item := PT(new(T))
	if err := query.First(item).Error; err != nil {
		return nil, pkg.MapError(err)
	}
	return item, nil
}

// Save stages an insert on the unit of work and flushes it when commit is
// true. A nil payload yields a non-success outcome without staging
// anything; storage failures propagate as errors.
func (s *Service[T, PT]) Save(ctx context.Context, uow *store.UnitOfWork, data PT, commit bool, actor string) (*domain.CrudOutcome, error) {
	if data == nil {
		return nilDataOutcome(), nil
	}

	uow.Add(data)
	if err := s.flush(ctx, uow, commit, actor); err != nil {
		return nil, err
	}

	return &domain.CrudOutcome{
		Success: true,
		Message: fmt.Sprintf("successfully saved data to %s", s.typeName),
		Entity:  data,
	}, nil
}

// Update stages a modification. When a pending change for data's id is
// already staged, the incoming field values are copied onto that tracked
// instance (a no-op when the caller passed the very same instance);
// otherwise data itself is attached as modified. Whether the id actually
// exists in the store is not checked here; callers wanting that guarantee
// fetch first.
func (s *Service[T, PT]) Update(ctx context.Context, uow *store.UnitOfWork, data PT, commit bool, actor string) (*domain.CrudOutcome, error) {
	if data == nil {
		return nilDataOutcome(), nil
	}

	if tracked := s.findTracked(uow, data.GetID()); tracked != nil {
		if existing := tracked.Entity.(PT); existing != data {
			*existing = *data
		}
	} else {
		uow.Attach(data, store.StateModified)
	}

	if err := s.flush(ctx, uow, commit, actor); err != nil {
		return nil, err
	}

	return &domain.CrudOutcome{
		Success: true,
		Message: fmt.Sprintf("successfully updated data to %s", s.typeName),
		Entity:  data,
	}, nil
}

// Delete stages a removal, which the audit step converts into a soft delete
// at commit time. The record is never physically erased.
func (s *Service[T, PT]) Delete(ctx context.Context, uow *store.UnitOfWork, data PT, commit bool, actor string) (*domain.CrudOutcome, error) {
	if data == nil {
		return nilDataOutcome(), nil
	}

	uow.Remove(data)
	if err := s.flush(ctx, uow, commit, actor); err != nil {
		return nil, err
	}

	return &domain.CrudOutcome{
		Success: true,
		Message: fmt.Sprintf("successfully deleted data from %s", s.typeName),
		Entity:  data,
	}, nil
}

// findTracked returns the pending change holding an entity of this
// service's type with the given id, if any.
func (s *Service[T, PT]) findTracked(uow *store.UnitOfWork, id uint) *store.Change {
	for _, c := range uow.Pending() {
		if e, ok := c.Entity.(PT); ok && e.GetID() == id {
			return c
		}
	}
	return nil
}

func (s *Service[T, PT]) flush(ctx context.Context, uow *store.UnitOfWork, commit bool, actor string) error {
	if !commit {
		return nil
	}
	return uow.Commit(ctx, actor)
}

func nilDataOutcome() *domain.CrudOutcome {
	return &domain.CrudOutcome{Success: false, Message: "Data is null"}
}
