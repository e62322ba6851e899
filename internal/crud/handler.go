package crud

import (
	"fmt"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/simp-lee/crudbase/internal/domain"
	"github.com/simp-lee/crudbase/internal/middleware"
	"github.com/simp-lee/crudbase/internal/pkg"
	"github.com/simp-lee/crudbase/internal/store"
)

// Handler exposes the generic CRUD operations for one entity type over
// REST. Each request gets its own unit of work; the acting identity is read
// from the request principal and passed explicitly into the service.
type Handler[T any, PT Ptr[T]] struct {
	svc *Service[T, PT]
	db  *gorm.DB
}

// NewHandler creates a Handler backed by a fresh Service for T.
func NewHandler[T any, PT Ptr[T]](db *gorm.DB) *Handler[T, PT] {
	return &Handler[T, PT]{svc: NewService[T, PT](db), db: db}
}

// Service returns the underlying generic service, for callers composing
// custom operations on top of the CRUD set.
func (h *Handler[T, PT]) Service() *Service[T, PT] {
	return h.svc
}

// RegisterRoutes registers the five CRUD routes for the given resource name.
func (h *Handler[T, PT]) RegisterRoutes(api *gin.RouterGroup, resource string) {
	api.GET("/"+resource, h.List)
	api.GET("/"+resource+"/:id", h.Get)
	api.POST("/"+resource, h.Create)
	api.PUT("/"+resource+"/:id", h.Update)
	api.DELETE("/"+resource+"/:id", h.Delete)
}

// List handles GET /<resource>. With an X-PAGINATION: true header it serves
// a paged window; otherwise it falls back to the full unpaged set.
func (h *Handler[T, PT]) List(c *gin.Context) {
	opts, err := pkg.ParsePagedOptions(c)
	if err != nil {
		pkg.Error(c, err)
		return
	}

	if opts == nil {
		items, err := h.svc.GetAll(c.Request.Context())
		if err != nil {
			pkg.Error(c, err)
			return
		}
		pkg.Success(c, items)
		return
	}

	result, err := h.svc.GetByFilter(c.Request.Context(), opts)
	if err != nil {
		pkg.Error(c, err)
		return
	}
	pkg.List(c, result)
}

// Get handles GET /<resource>/:id.
func (h *Handler[T, PT]) Get(c *gin.Context) {
	id, err := parseID(c)
	if err != nil {
		pkg.Error(c, domain.NewAppError(domain.CodeValidation, err.Error(), nil))
		return
	}

	item, err := h.svc.GetByID(c.Request.Context(), id)
	if err != nil {
		pkg.Error(c, err)
		return
	}
	pkg.Success(c, item)
}

// Create handles POST /<resource>.
func (h *Handler[T, PT]) Create(c *gin.Context) {
	var data T
	if !pkg.BindAndValidate(c, &data) {
		return
	}

	outcome, err := h.svc.Save(c.Request.Context(), store.New(h.db), PT(&data), true, middleware.ActingIdentity(c))
	if err != nil {
		pkg.Error(c, err)
		return
	}

	c.JSON(http.StatusCreated, pkg.Response{
		Code:    http.StatusCreated,
		Message: "success",
		Data:    outcome,
	})
}

// Update handles PUT /<resource>/:id. The path id must match the payload
// id, and the record must exist as a non-deleted row.
func (h *Handler[T, PT]) Update(c *gin.Context) {
	id, err := parseID(c)
	if err != nil {
		pkg.Error(c, domain.NewAppError(domain.CodeValidation, err.Error(), nil))
		return
	}

	var data T
	if !pkg.BindAndValidate(c, &data) {
		return
	}
	if PT(&data).GetID() != id {
		pkg.Error(c, domain.NewAppError(domain.CodeValidation, "path id does not match payload id", nil))
		return
	}

	if _, err := h.svc.GetByID(c.Request.Context(), id); err != nil {
		pkg.Error(c, err)
		return
	}

	outcome, err := h.svc.Update(c.Request.Context(), store.New(h.db), PT(&data), true, middleware.ActingIdentity(c))
	if err != nil {
		pkg.Error(c, err)
		return
	}
	pkg.Success(c, outcome)
}

// Delete handles DELETE /<resource>/:id. The record is soft-deleted; the
// row stays in the store with its deletion flag set.
func (h *Handler[T, PT]) Delete(c *gin.Context) {
	id, err := parseID(c)
	if err != nil {
		pkg.Error(c, domain.NewAppError(domain.CodeValidation, err.Error(), nil))
		return
	}

	existing, err := h.svc.GetByID(c.Request.Context(), id)
	if err != nil {
		pkg.Error(c, err)
		return
	}

	outcome, err := h.svc.Delete(c.Request.Context(), store.New(h.db), existing, true, middleware.ActingIdentity(c))
	if err != nil {
		pkg.Error(c, err)
		return
	}
	pkg.Success(c, outcome)
}

// parseID extracts the numeric :id path parameter.
func parseID(c *gin.Context) (uint, error) {
	raw := c.Param("id")
	id, err := strconv.ParseUint(raw, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid id %q", raw)
	}
	return uint(id), nil
}
