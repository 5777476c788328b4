package model

type Upload struct {
	ID uint `gorm:"primaryKey;autoIncrement;index" json:"id"`

	// Weak reference to users.email on purpose. Deleting a user is not
	// part of the upload lifecycle so no cascade is defined
	OwnerEmail string `gorm:"index:idx_uploads_owner_created;not null" json:"-"`

	// Original file name as the client sent it. Untrusted, never used
	// to build a path on disk
	OriginalName string `gorm:"not null" json:"originalName"`

	// Generated name the blob is stored under. Avoids file name
	// conflicts between uploads in the same namespace
	StoredName string `gorm:"not null" json:"name"`

	// Relative location of the blob inside the store, always
	// {namespace}/{storedName} with forward slashes
	StoragePath string `gorm:"uniqueIndex;not null" json:"-"`

	// Blob size in bytes, kept for the per-user storage counters
	Size int64 `json:"-"`

	// Unix millisecond timestamp
	CreatedAt int64 `gorm:"not null;index:idx_uploads_owner_created" json:"-"`
}
