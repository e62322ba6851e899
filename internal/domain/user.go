package domain

// User is an authenticated account. It is persisted and audited like any
// other entity; its Name is what gets recorded as the acting identity on
// commits made while the user is logged in.
type User struct {
	Model
	Name         string `gorm:"size:100;not null" json:"name"`
	Email        string `gorm:"size:255;uniqueIndex;not null" json:"email"`
	PasswordHash string `gorm:"size:255" json:"-"`
}
