package model

type Stats struct {
	UserEmail     string `gorm:"primaryKey" json:"-"`
	UsedStorage   int64  `json:"usedStorage"`
	UploadedFiles int    `json:"uploadedFiles"`
}
