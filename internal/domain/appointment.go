package domain

import (
	"time" // Timestamps

	"gorm.io/gorm" // GORM hooks
)

// AppointmentStatus of a booking
type AppointmentStatus string

const (
	AppointmentPending   AppointmentStatus = "PENDING"
	AppointmentApproved  AppointmentStatus = "APPROVED"
	AppointmentRejected  AppointmentStatus = "REJECTED"
	AppointmentCancelled AppointmentStatus = "CANCELLED"
)

// HoldingStatuses keep a slot taken
var HoldingStatuses = []AppointmentStatus{AppointmentPending, AppointmentApproved}

// ParseAppointmentStatus validates a status filter value
func ParseAppointmentStatus(s string) (AppointmentStatus, bool) {
	switch st := AppointmentStatus(s); st {
	case AppointmentPending, AppointmentApproved, AppointmentRejected, AppointmentCancelled:
		return st, true
	}
	return "", false
}

// Appointment Model
type Appointment struct {
	ID        string            `gorm:"primaryKey;size:36" json:"id"`                               // UUID primary key
	DoctorID  string            `gorm:"size:36;not null;index:idx_appointment_slot" json:"doctorId"` // Foreign key to DoctorProfile
	PatientID string            `gorm:"size:36;not null;index" json:"patientId"`                    // Foreign key to User
	Date      time.Time         `gorm:"not null;index:idx_appointment_slot" json:"date"`            // Calendar day at UTC midnight
	Time      string            `gorm:"size:5;not null;index:idx_appointment_slot" json:"time"`     // HH:MM start
	Status    AppointmentStatus `gorm:"size:16;not null;default:'PENDING';index" json:"status"`
	Notes     *string           `gorm:"size:500" json:"notes"`
	CreatedAt time.Time         `json:"createdAt"`
	UpdatedAt time.Time         `json:"updatedAt"`
	Doctor    *DoctorProfile    `gorm:"foreignKey:DoctorID;constraint:OnDelete:CASCADE;" json:"-"`
	Patient   *User             `gorm:"foreignKey:PatientID;constraint:OnDelete:CASCADE;" json:"-"`
}

// BeforeCreate assigns a UUID when none was set
func (a *Appointment) BeforeCreate(tx *gorm.DB) error {
	assignID(&a.ID)
	return nil
}
