package domain

import (
	"time" // Timestamps

	"gorm.io/gorm" // GORM hooks
)

// PaymentSubmission Model, a doctor's proof of a manual bank transfer
type PaymentSubmission struct {
	ID              string         `gorm:"primaryKey;size:36" json:"id"`            // UUID primary key
	DoctorID        string         `gorm:"size:36;not null;index" json:"doctorId"`  // Foreign key to DoctorProfile
	Amount          float64        `gorm:"not null" json:"amount"`                  // Transferred amount
	ProofImageURL   string         `gorm:"size:500;not null" json:"proofImageUrl"`  // Receipt image location
	ReferenceNumber string         `gorm:"size:100;not null" json:"referenceNumber"` // Bank reference
	Notes           *string        `gorm:"size:500" json:"notes"`
	IsVerified      bool           `gorm:"not null;default:false;index" json:"isVerified"`
	VerifiedAt      *time.Time     `json:"verifiedAt"`
	VerifiedBy      *string        `gorm:"size:36" json:"verifiedBy"` // Admin user id
	CreatedAt       time.Time      `json:"createdAt"`
	Doctor          *DoctorProfile `gorm:"foreignKey:DoctorID;constraint:OnDelete:CASCADE;" json:"-"`
}

// BeforeCreate assigns a UUID when none was set
func (p *PaymentSubmission) BeforeCreate(tx *gorm.DB) error {
	assignID(&p.ID)
	return nil
}
