package product

import (
	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/simp-lee/crudbase/internal/crud"
	"github.com/simp-lee/crudbase/internal/domain"
)

// Module wires the product resource: the generic CRUD surface plus the
// review sub-resource built on top of it.
type Module struct {
	products *crud.Handler[domain.Product, *domain.Product]
	reviews  *ReviewHandler
}

// NewModule creates the product module over the given database handle.
func NewModule(db *gorm.DB) *Module {
	products := crud.NewHandler[domain.Product, *domain.Product](db)
	reviews := NewReviewHandler(NewReviewService(db), db)
	return &Module{products: products, reviews: reviews}
}

// RegisterRoutes registers the product API routes.
func (m *Module) RegisterRoutes(api *gin.RouterGroup) {
	m.products.RegisterRoutes(api, "products")
	api.POST("/products/:id/reviews", m.reviews.Create)
	api.DELETE("/products/:id/reviews/:reviewID", m.reviews.Delete)
}
