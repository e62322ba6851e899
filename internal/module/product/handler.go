package product

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

// ReviewHandler handles REST API requests for the review sub-resource.
type ReviewHandler struct {
	svc *ReviewService
	db  *gorm.DB
}

// NewReviewHandler creates a ReviewHandler with the given service.
func NewReviewHandler(svc *ReviewService, db *gorm.DB) *ReviewHandler {
	return &ReviewHandler{svc: svc, db: db}
}

// Create handles POST /products/:id/reviews.
func (h *ReviewHandler) Create(c *gin.Context) {
	productID, err := pathID(c, "id")
	if err != nil {
		pkg.Error(c, domain.NewAppError(domain.CodeValidation, err.Error(), nil))
		return
	}

	var req CreateReviewRequest
	if !pkg.BindAndValidate(c, &req) {
		return
	}

	review, err := h.svc.AddReview(c.Request.Context(), store.New(h.db), productID, req.Rating, req.Comment, middleware.ActingIdentity(c))
	if err != nil {
		pkg.Error(c, err)
		return
	}

	c.JSON(http.StatusCreated, pkg.Response{
		Code:    http.StatusCreated,
		Message: "success",
		Data:    review,
	})
}

// Delete handles DELETE /products/:id/reviews/:reviewID.
func (h *ReviewHandler) Delete(c *gin.Context) {
	productID, err := pathID(c, "id")
	if err != nil {
		pkg.Error(c, domain.NewAppError(domain.CodeValidation, err.Error(), nil))
		return
	}
	reviewID, err := pathID(c, "reviewID")
	if err != nil {
		pkg.Error(c, domain.NewAppError(domain.CodeValidation, err.Error(), nil))
		return
	}

	if err := h.svc.RemoveReview(c.Request.Context(), store.New(h.db), productID, reviewID, middleware.ActingIdentity(c)); err != nil {
		pkg.Error(c, err)
		return
	}
	pkg.Success(c, nil)
}

// pathID extracts a numeric path parameter.
func pathID(c *gin.Context, name string) (uint, error) {
	raw := c.Param(name)
	id, err := strconv.ParseUint(raw, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid %s %q", name, raw)
	}
	return uint(id), nil
}
