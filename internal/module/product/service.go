package product

import (
	"context"

	"gorm.io/gorm"

	"github.com/simp-lee/crudbase/internal/crud"
	"github.com/simp-lee/crudbase/internal/domain"
	"github.com/simp-lee/crudbase/internal/store"
)

// ReviewService manages product reviews on top of the generic CRUD layer.
// Review writes verify the parent product first, so a review can never be
// attached to a missing or soft-deleted product.
type ReviewService struct {
	products *crud.Service[domain.Product, *domain.Product]
	reviews  *crud.Service[domain.Review, *domain.Review]
}

// NewReviewService creates a ReviewService over the given database handle.
func NewReviewService(db *gorm.DB) *ReviewService {
	return &ReviewService{
		products: crud.NewService[domain.Product, *domain.Product](db),
		reviews:  crud.NewService[domain.Review, *domain.Review](db),
	}
}

// AddReview stages and commits a new review for the given product.
func (s *ReviewService) AddReview(ctx context.Context, uow *store.UnitOfWork, productID uint, rating int, comment string, actor string) (*domain.Review, error) {
	if rating < 1 || rating > 5 {
		return nil, domain.NewAppError(domain.CodeValidation, "rating must be between 1 and 5", nil)
	}

	if _, err := s.products.GetByID(ctx, productID); err != nil {
		return nil, err
	}

	review := &domain.Review{
		ProductID: productID,
		Rating:    rating,
		Comment:   comment,
	}
	if _, err := s.reviews.Save(ctx, uow, review, true, actor); err != nil {
		return nil, err
	}
	return review, nil
}

// RemoveReview soft-deletes a review. The review must belong to the given
// product; a mismatch surfaces as not-found.
func (s *ReviewService) RemoveReview(ctx context.Context, uow *store.UnitOfWork, productID, reviewID uint, actor string) error {
	review, err := s.reviews.GetByID(ctx, reviewID)
	if err != nil {
		return err
	}
	if review.ProductID != productID {
		return domain.ErrNotFound
	}

	_, err = s.reviews.Delete(ctx, uow, review, true, actor)
	return err
}
