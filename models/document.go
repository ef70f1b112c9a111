package models

import "time"

// PolicyDocument records an uploaded source document and its scan outcome.
// Failed scans keep their record so the owner can retry or review.
type PolicyDocument struct {
	ID          uint `gorm:"primaryKey"`
	CreatedAt   time.Time
	UpdatedAt   time.Time
	UserID      uint   `gorm:"index;not null"`
	User        User   `gorm:"foreignKey:UserID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE;"`
	FileName    string `gorm:"size:255;not null"`
	StorePath   string `gorm:"column:store_path;size:512"`
	PreviewPath string `gorm:"column:preview_path;size:512"`
	ContentType string `gorm:"size:128"`
	// Method is how text was acquired: pdf-text, pdf-ocr or image-ocr.
	Method string `gorm:"size:16"`
	Pages  int
	Chars  int
	// Sparse marks scans whose recognized text was too thin to trust.
	Sparse       bool
	Failed       bool   `gorm:"default:false;index"`
	FailedReason string `gorm:"size:255"`
}
