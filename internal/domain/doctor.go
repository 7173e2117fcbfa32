package domain

import (
	"strings" // Case folding for weekday names
	"time"    // Timestamps

	"gorm.io/gorm" // GORM hooks
)

// SubscriptionStatus of a doctor listing
type SubscriptionStatus string

const (
	SubscriptionInactive SubscriptionStatus = "INACTIVE"
	SubscriptionPending  SubscriptionStatus = "PENDING"
	SubscriptionActive   SubscriptionStatus = "ACTIVE"
)

// DoctorProfile Model
type DoctorProfile struct {
	ID                    string             `gorm:"primaryKey;size:36" json:"id"`                                      // UUID primary key
	UserID                string             `gorm:"size:36;uniqueIndex;not null" json:"userId"`                        // Foreign key to User
	Specialty             string             `gorm:"size:100;not null;index" json:"specialty"`                          // Medical specialty
	City                  string             `gorm:"size:100;not null;index" json:"city"`                               // Practice city
	ClinicAddress         string             `gorm:"size:255;not null" json:"clinicAddress"`                            // Street address
	Price                 float64            `gorm:"not null" json:"price"`                                             // Consultation price
	Experience            int                `gorm:"not null" json:"experience"`                                        // Years of experience
	Bio                   *string            `gorm:"type:text" json:"bio"`                                              // Optional biography
	SubscriptionStatus    SubscriptionStatus `gorm:"size:16;not null;default:'INACTIVE';index" json:"subscriptionStatus"` // Listing state
	SubscriptionExpiresAt *time.Time         `json:"subscriptionExpiresAt"`                                             // End of paid period
	PaymentProofURL       *string            `gorm:"size:500" json:"paymentProofUrl"`                                   // Latest submitted proof
	PaymentReference      *string            `gorm:"size:100" json:"paymentReference"`                                  // Latest transfer reference
	CreatedAt             time.Time          `json:"createdAt"`
	UpdatedAt             time.Time          `json:"updatedAt"`
	User                  *User              `gorm:"foreignKey:UserID" json:"-"`                                        // Owning account
	Availability          []Availability     `gorm:"foreignKey:DoctorID;constraint:OnDelete:CASCADE;" json:"availability,omitempty"`
}

// BeforeCreate assigns a UUID when none was set
func (d *DoctorProfile) BeforeCreate(tx *gorm.DB) error {
	assignID(&d.ID)
	return nil
}

// Weekday names stored for availability windows
type Weekday string

const (
	Monday    Weekday = "MONDAY"
	Tuesday   Weekday = "TUESDAY"
	Wednesday Weekday = "WEDNESDAY"
	Thursday  Weekday = "THURSDAY"
	Friday    Weekday = "FRIDAY"
	Saturday  Weekday = "SATURDAY"
	Sunday    Weekday = "SUNDAY"
)

// Weekdays in calendar order, Monday first
var Weekdays = []Weekday{Monday, Tuesday, Wednesday, Thursday, Friday, Saturday, Sunday}

// ParseWeekday accepts a day name in any case
func ParseWeekday(s string) (Weekday, bool) {
	day := Weekday(strings.ToUpper(strings.TrimSpace(s)))
	return day, day.Index() >= 0
}

// Index is the position in Weekdays, or -1
func (w Weekday) Index() int {
	for i, d := range Weekdays {
		if d == w {
			return i
		}
	}
	return -1
}

// WeekdayOf returns the UTC weekday of t
func WeekdayOf(t time.Time) Weekday {
	// time.Weekday starts at Sunday
	return Weekdays[(int(t.UTC().Weekday())+6)%7]
}

// Availability Model
type Availability struct {
	ID        string    `gorm:"primaryKey;size:36" json:"id"`                                      // UUID primary key
	DoctorID  string    `gorm:"size:36;not null;uniqueIndex:idx_availability_doctor_day" json:"doctorId"` // Foreign key to DoctorProfile
	DayOfWeek Weekday   `gorm:"size:10;not null;uniqueIndex:idx_availability_doctor_day" json:"dayOfWeek"`
	StartTime string    `gorm:"size:5;not null" json:"startTime"` // HH:MM, inclusive
	EndTime   string    `gorm:"size:5;not null" json:"endTime"`   // HH:MM, exclusive
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// BeforeCreate assigns a UUID when none was set
func (a *Availability) BeforeCreate(tx *gorm.DB) error {
	assignID(&a.ID)
	return nil
}
