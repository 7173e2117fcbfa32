package notify

import (
	"fmt"     // Message formatting
	"strings" // Status wording
	"time"    // Dates

	"reservily/internal/domain" // Domain models
)

func formatDay(t time.Time) string {
	return t.UTC().Format("Monday, 02 Jan 2006")
}

// AppointmentBooked confirms a new booking to the patient
func AppointmentBooked(patient *domain.User, doctorName string, appt *domain.Appointment) Message {
	return Message{
		Kind:    KindAppointmentBooked,
		To:      patient.Email,
		Name:    patient.Name,
		Subject: "Appointment request received",
		Body: fmt.Sprintf("Hello %s,\n\nYour appointment with Dr. %s on %s at %s has been booked and is awaiting the doctor's confirmation.\n\nReservily",
			patient.Name, doctorName, formatDay(appt.Date), appt.Time),
	}
}

// AppointmentRequested tells the doctor about a new booking
func AppointmentRequested(doctor *domain.User, patientName string, appt *domain.Appointment) Message {
	return Message{
		Kind:    KindAppointmentRequested,
		To:      doctor.Email,
		Name:    doctor.Name,
		Subject: "New appointment request",
		Body: fmt.Sprintf("Hello Dr. %s,\n\n%s requested an appointment on %s at %s. Please approve or reject it from your dashboard.\n\nReservily",
			doctor.Name, patientName, formatDay(appt.Date), appt.Time),
	}
}

// AppointmentStatusChanged tells the patient the booking moved to a new status
func AppointmentStatusChanged(patient *domain.User, doctorName string, appt *domain.Appointment) Message {
	status := strings.ToLower(string(appt.Status))
	return Message{
		Kind:    KindAppointmentStatus,
		To:      patient.Email,
		Name:    patient.Name,
		Subject: "Appointment " + status,
		Body: fmt.Sprintf("Hello %s,\n\nYour appointment with Dr. %s on %s at %s was %s.\n\nReservily",
			patient.Name, doctorName, formatDay(appt.Date), appt.Time, status),
	}
}

// SubscriptionActivated confirms a verified payment, with the PDF receipt attached
func SubscriptionActivated(doctor *domain.User, expiresAt time.Time, receipt []byte) Message {
	msg := Message{
		Kind:    KindSubscriptionActivated,
		To:      doctor.Email,
		Name:    doctor.Name,
		Subject: "Your Reservily subscription is active",
		Body: fmt.Sprintf("Hello Dr. %s,\n\nYour payment was verified and your profile is now visible to patients until %s.\n\nReservily",
			doctor.Name, expiresAt.UTC().Format(time.DateOnly)),
	}
	if len(receipt) > 0 {
		msg.AttachmentName = "reservily-receipt.pdf"
		msg.Attachment = receipt
	}
	return msg
}

// PaymentRejected asks the doctor to submit a new payment proof
func PaymentRejected(doctor *domain.User) Message {
	return Message{
		Kind:    KindPaymentRejected,
		To:      doctor.Email,
		Name:    doctor.Name,
		Subject: "Payment proof rejected",
		Body: fmt.Sprintf("Hello Dr. %s,\n\nWe could not verify your payment proof. Please check the transfer details and submit a new proof.\n\nReservily",
			doctor.Name),
	}
}
