// Package model defines database models
package model

import "time"

type User struct {
	ID    string `gorm:"primaryKey" json:"-"`
	Email string `gorm:"uniqueIndex;not null" json:"email"`

	// Normally a bcrypt hash. Rows imported from the old deployment may
	// still hold plaintext, see security.ParseCredential
	Password string `gorm:"not null" json:"-"`

	CreatedAt time.Time `json:"-"`

	Stats *Stats `gorm:"foreignKey:UserEmail;references:Email" json:"-"`
}
