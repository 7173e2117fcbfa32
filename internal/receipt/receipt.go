// Package receipt renders subscription payment receipts as PDF.
package receipt

import (
	"bytes"  // PDF buffer
	"errors" // Validation
	"fmt"    // Amount formatting
	"time"   // Dates

	"github.com/jung-kurt/gofpdf" // PDF generation
)

// Details of a verified payment
type Details struct {
	SubmissionID    string
	DoctorName      string
	DoctorEmail     string
	Specialty       string
	ReferenceNumber string
	Amount          float64
	Currency        string
	SubmittedAt     time.Time
	VerifiedAt      time.Time
	ExpiresAt       *time.Time
}

// Render returns the receipt PDF
func Render(d Details) ([]byte, error) {
	if d.SubmissionID == "" {
		return nil, errors.New("receipt needs a submission id")
	}

	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.SetMargins(10, 10, 10)
	pdf.AddPage()

	pdf.SetFont("Arial", "B", 14)
	pdf.SetTextColor(20, 60, 120)
	pdf.CellFormat(0, 10, "Reservily - Doctor Subscription", "", 1, "C", false, 0, "")

	pdf.SetFont("Arial", "B", 12)
	pdf.SetTextColor(0, 0, 0)
	pdf.CellFormat(0, 10, "Payment Receipt", "1", 1, "C", false, 0, "")
	pdf.Ln(2)

	detail(pdf, "Receipt No.", d.SubmissionID)
	detail(pdf, "Doctor", d.DoctorName)
	detail(pdf, "Email", d.DoctorEmail)
	if d.Specialty != "" {
		detail(pdf, "Specialty", d.Specialty)
	}
	detail(pdf, "Bank reference", d.ReferenceNumber)
	detail(pdf, "Submitted", d.SubmittedAt.UTC().Format(time.DateOnly))
	detail(pdf, "Verified", d.VerifiedAt.UTC().Format(time.DateOnly))
	if d.ExpiresAt != nil {
		detail(pdf, "Active until", d.ExpiresAt.UTC().Format(time.DateOnly))
	}

	pdf.Ln(4)
	pdf.SetFont("Arial", "B", 13)
	pdf.CellFormat(0, 10, fmt.Sprintf("Amount paid: %.2f %s", d.Amount, d.Currency), "", 1, "R", false, 0, "")

	pdf.SetFont("Arial", "", 10)
	pdf.MultiCell(0, 5, "Thank you for subscribing to Reservily.", "", "L", false)
	pdf.SetY(pdf.GetY() + 12)
	pdf.CellFormat(0, 10, "This is a computer generated receipt", "", 1, "R", false, 0, "")

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, fmt.Errorf("failed to render receipt: %w", err)
	}
	return buf.Bytes(), nil
}

func detail(pdf *gofpdf.Fpdf, label, value string) {
	pdf.SetFont("Arial", "B", 10)
	pdf.CellFormat(45, 9, label, "1", 0, "", false, 0, "")
	pdf.SetFont("Arial", "", 10)
	pdf.CellFormat(0, 9, value, "1", 1, "", false, 0, "")
}
