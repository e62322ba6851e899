package product

// CreateReviewRequest represents the input for posting a product review.
type CreateReviewRequest struct {
	Rating  int    `json:"rating" form:"rating" binding:"required,gte=1,lte=5"`
	Comment string `json:"comment" form:"comment" binding:"max=1000"`
}
