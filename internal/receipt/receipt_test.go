package receipt

import (
	"bytes"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRenderProducesPDF(t *testing.T) {
	expires := time.Date(2026, 11, 19, 0, 0, 0, 0, time.UTC)
	pdf, err := Render(Details{
		SubmissionID:    "3f1c2f0e-0000-4000-8000-000000000001",
		DoctorName:      "Gregory House",
		DoctorEmail:     "house@example.com",
		Specialty:       "Diagnostics",
		ReferenceNumber: "TRX-42",
		Amount:          29.99,
		Currency:        "USD",
		SubmittedAt:     time.Date(2026, 10, 18, 0, 0, 0, 0, time.UTC),
		VerifiedAt:      time.Date(2026, 10, 19, 0, 0, 0, 0, time.UTC),
		ExpiresAt:       &expires,
	})
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(pdf, []byte("%PDF-")))
}

func TestRenderNeedsSubmission(t *testing.T) {
	_, err := Render(Details{})
	assert.Error(t, err)
}
