package domain

// Product is a catalog entry with a one-to-many collection of reviews.
type Product struct {
	Model
	Name    string   `gorm:"size:100;not null" json:"name"`
	Sku     string   `gorm:"size:64;uniqueIndex;not null" json:"sku"`
	Price   float64  `gorm:"not null" json:"price"`
	Reviews []Review `gorm:"foreignKey:ProductID" json:"reviews"`
}

// Relations declares the collection associations to eager-load when a
// product is fetched by id.
func (Product) Relations() []string {
	return []string{"Reviews"}
}

// Review is a child record of Product.
type Review struct {
	Model
	ProductID uint   `gorm:"index;not null" json:"product_id"`
	Rating    int    `gorm:"not null" json:"rating"`
	Comment   string `gorm:"size:1000" json:"comment"`
}
