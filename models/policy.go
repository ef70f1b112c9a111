package models

import "time"

// Policy is a confirmed insurance policy belonging to a user. Field values
// arrive from the scan review screen, so every extracted field is already
// user-verified text; dates are stored in YYYY-MM-DD form.
type Policy struct {
	ID               uint `gorm:"primaryKey"`
	CreatedAt        time.Time
	UpdatedAt        time.Time
	UserID           uint   `gorm:"index;not null"`
	User             User   `gorm:"foreignKey:UserID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE;"`
	DocumentID       *uint  `gorm:"index"` // source document, nullable for manual entry
	PolicyName       string `gorm:"size:255"`
	PolicyNumber     string `gorm:"size:64;index"`
	Provider         string `gorm:"size:255"`
	PolicyType       string `gorm:"size:64"`
	PremiumAmount    string `gorm:"size:32"`
	PremiumFrequency string `gorm:"size:16"`
	SumAssured       string `gorm:"size:32"`
	StartDate        string `gorm:"size:10"`
	RenewalDate      string `gorm:"size:10;index"`
	InsuredName      string `gorm:"size:255"`
}
