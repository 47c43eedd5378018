package types

import "time"

type PendingStatus string

const (
	PendingStatusPending   PendingStatus = "pending"
	PendingStatusCompleted PendingStatus = "completed"
	PendingStatusFailed    PendingStatus = "failed"
)

// Failure reasons recorded on a failed PendingRegistration.
const (
	FailureTimeout   = "timeout"
	FailureCancelled = "cancelled"
	FailureConflict  = "conflict"
	FailureScan      = "scan_failed"
)

// CardProfile carries the holder fields staged at card-read time. It is
// only required when the presented card does not exist yet.
type CardProfile struct {
	OrganizationID string     `json:"organization_id,omitempty"`
	DepartmentID   string     `json:"department_id,omitempty"`
	HolderName     string     `json:"holder_name,omitempty"`
	HolderType     HolderType `json:"holder_type,omitempty"`
	Email          string     `json:"email,omitempty"`
	Phone          string     `json:"phone,omitempty"`
	ExpiryDate     *time.Time `json:"expiry_date,omitempty"`
}

func (p CardProfile) IsZero() bool {
	return p.OrganizationID == "" && p.DepartmentID == "" && p.HolderName == "" && p.HolderType == ""
}

// PendingRegistration tracks one in-flight card-to-fingerprint binding.
type PendingRegistration struct {
	ID            string        `json:"id"`
	CardID        string        `json:"card_id"`
	FingerprintID int64         `json:"fingerprint_id"`
	DeviceID      string        `json:"device_id"`
	Status        PendingStatus `json:"status"`
	FailureReason string        `json:"failure_reason,omitempty"`
	Profile       CardProfile   `json:"profile"`
	CreatedAt     time.Time     `json:"created_at"`
	ResolvedAt    *time.Time    `json:"resolved_at,omitempty"`
}

type RegistrationModeRequest struct {
	Enabled *bool `json:"enabled"`
}

// CardReadRequest is the first handshake step: the device operator
// presented a card while the device was in registration mode.
type CardReadRequest struct {
	DeviceID string      `json:"device_id"`
	CardID   string      `json:"card_id"`
	Profile  CardProfile `json:"profile"`
}

// CaptureRequest is the second handshake step: the device reports the
// outcome of the fingerprint scan into the reserved sensor slot.
type CaptureRequest struct {
	DeviceID      string `json:"device_id"`
	FingerprintID int64  `json:"fingerprint_id"`
	TemplateData  string `json:"template_data,omitempty"`
	Success       *bool  `json:"success,omitempty"`
	FailureReason string `json:"failure_reason,omitempty"`
}

type CaptureResponse struct {
	Registration PendingRegistration `json:"registration"`
	Card         *Card               `json:"card,omitempty"`
}
