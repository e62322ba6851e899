package pkg

import (
	"fmt"
	"reflect"
	"strings"

	"gorm.io/gorm"
	"gorm.io/gorm/schema"

	"github.com/simp-lee/crudbase/internal/domain"
)

// Paginate runs the paged query pipeline over an already-filtered query:
// count everything first, apply the requested ordering, then slice out the
// page window. The total is taken before ordering and slicing so that
// result metadata always reflects the full matching set.
//
// The window offset is (page-1)*pageSize, so page 1 starts at the first row.
func Paginate[T any](query *gorm.DB, opts *domain.PagedOptions) (*domain.PagedResult[T], error) {
	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, MapError(err)
	}

	if opts.OrderBy != "" {
		clause, err := orderClause[T](opts.OrderBy)
		if err != nil {
			return nil, err
		}
		query = query.Order(clause)
	}

	offset := (opts.Page - 1) * opts.PageSize

	var data []T
	if err := query.Offset(offset).Limit(opts.PageSize).Find(&data).Error; err != nil {
		return nil, MapError(err)
	}

	return domain.NewPagedResult(data, total, opts), nil
}

// orderClause resolves an "<field> [asc|desc]" spec into an ORDER BY clause.
// The field name is matched case-insensitively against T's sortable struct
// fields and translated to its column name; an unresolvable name is a
// validation error identifying both the field and the entity type. A
// missing or unrecognized direction token defaults to ascending.
func orderClause[T any](orderBy string) (string, error) {
	tokens := strings.Fields(orderBy)
	if len(tokens) == 0 {
		return "", domain.NewAppError(domain.CodeValidation, "empty order-by spec", nil)
	}

	field := tokens[0]
	direction := "asc"
	if len(tokens) > 1 {
		if d := strings.ToLower(tokens[1]); d == "desc" {
			direction = d
		}
	}

	t := reflect.TypeOf((*T)(nil)).Elem()
	for _, f := range reflect.VisibleFields(t) {
		if f.Anonymous || !sortableKind(f.Type) {
			continue
		}
		if strings.EqualFold(f.Name, field) {
			ns := schema.NamingStrategy{}
			return ns.ColumnName("", f.Name) + " " + direction, nil
		}
	}

	return "", domain.NewAppError(domain.CodeValidation,
		fmt.Sprintf("field %q not found on type %s", field, t.Name()), nil)
}

// sortableKind reports whether a field type maps to an orderable column.
// Collections and nested structs other than time values are associations,
// not columns.
func sortableKind(t reflect.Type) bool {
	if t.Kind() == reflect.Ptr {
		t = t.Elem()
	}
	switch t.Kind() {
	case reflect.Slice, reflect.Map, reflect.Array:
		return false
	case reflect.Struct:
		return t.String() == "time.Time"
	default:
		return true
	}
}
