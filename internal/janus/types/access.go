package types

import "time"

type VerificationMethod string

const (
	MethodCard        VerificationMethod = "card"
	MethodFingerprint VerificationMethod = "fingerprint"
	MethodBoth        VerificationMethod = "both"
)

func (m VerificationMethod) Valid() bool {
	return m == MethodCard || m == MethodFingerprint || m == MethodBoth
}

// Denial reasons written to AccessLog.Reason.
const (
	ReasonUnknownCard       = "unknown card"
	ReasonBiometricMismatch = "biometric mismatch"
	ReasonDeviceInactive    = "device inactive"
)

type AccessRequest struct {
	DeviceID      string             `json:"device_id"`
	CardID        string             `json:"card_id,omitempty"`
	FingerprintID *int64             `json:"fingerprint_id,omitempty"`
	Method        VerificationMethod `json:"verification_method,omitempty"`
	RequestedAt   string             `json:"requested_at,omitempty"` // optional device timestamp
}

type AccessResponse struct {
	OK         bool   `json:"ok"`
	Authorized bool   `json:"authorized"`
	Reason     string `json:"reason,omitempty"`
	DeviceID   string `json:"device_id"`
	LogID      int64  `json:"log_id"`
	ServerTime string `json:"server_time"`
}

// AccessLog is the immutable audit record of one read event.
type AccessLog struct {
	ID            int64              `json:"id"`
	DeviceID      string             `json:"device_id"`
	CardID        string             `json:"card_id"`
	Timestamp     time.Time          `json:"timestamp"`
	Authorized    bool               `json:"authorized"`
	Method        VerificationMethod `json:"verification_method"`
	Reason        string             `json:"reason,omitempty"`
	FingerprintID *int64             `json:"fingerprint_id,omitempty"`
	Location      string             `json:"location,omitempty"`
	RequestedAt   *time.Time         `json:"requested_at,omitempty"`
}
