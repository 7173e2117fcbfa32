package domain

import (
	"time" // Timestamps

	"github.com/google/uuid" // UUID primary keys
	"gorm.io/gorm"           // GORM hooks
)

// Role of a platform account
type Role string

const (
	RoleAdmin   Role = "ADMIN"
	RoleDoctor  Role = "DOCTOR"
	RolePatient Role = "PATIENT"
)

// User Model
type User struct {
	ID            string         `gorm:"primaryKey;size:36" json:"id"`                                  // UUID primary key
	Name          string         `gorm:"size:100;not null" json:"name"`                                 // Display name
	Email         string         `gorm:"size:255;uniqueIndex;not null" json:"email"`                    // Unique login email
	Password      string         `gorm:"not null" json:"-"`                                             // Hashed password, never serialized
	Role          Role           `gorm:"size:16;not null;index" json:"role"`                            // ADMIN, DOCTOR or PATIENT
	IsActive      bool           `gorm:"not null;default:true" json:"isActive"`                         // False when suspended
	CreatedAt     time.Time      `json:"createdAt"`                                                     // Creation timestamp
	UpdatedAt     time.Time      `json:"updatedAt"`                                                     // Last update timestamp
	DoctorProfile *DoctorProfile `gorm:"constraint:OnDelete:CASCADE;" json:"doctorProfile,omitempty"` // One-to-one relationship with DoctorProfile
}

// BeforeCreate assigns a UUID when none was set
func (u *User) BeforeCreate(tx *gorm.DB) error {
	assignID(&u.ID)
	return nil
}

func assignID(id *string) {
	if *id == "" {
		*id = uuid.NewString()
	}
}

// Models lists every table in migration order
func Models() []any {
	return []any{&User{}, &DoctorProfile{}, &Availability{}, &Appointment{}, &PaymentSubmission{}}
}
