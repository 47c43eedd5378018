package types

import "time"

type OrganizationKind string

const (
	OrganizationUniversity OrganizationKind = "university"
	OrganizationCompany    OrganizationKind = "company"
)

func (k OrganizationKind) Valid() bool {
	return k == OrganizationUniversity || k == OrganizationCompany
}

type HolderType string

const (
	HolderStudent  HolderType = "student"
	HolderFaculty  HolderType = "faculty"
	HolderStaff    HolderType = "staff"
	HolderEmployee HolderType = "employee"
	HolderVisitor  HolderType = "visitor"
)

func (h HolderType) Valid() bool {
	switch h {
	case HolderStudent, HolderFaculty, HolderStaff, HolderEmployee, HolderVisitor:
		return true
	}
	return false
}

// Organization is the top-level tenant. It owns departments.
type Organization struct {
	ID           string           `json:"id"`
	Name         string           `json:"name"`
	Kind         OrganizationKind `json:"kind"`
	Address      string           `json:"address,omitempty"`
	ContactEmail string           `json:"contact_email,omitempty"`
	ContactPhone string           `json:"contact_phone,omitempty"`
	Active       bool             `json:"active"`
	CreatedAt    time.Time        `json:"created_at"`
	UpdatedAt    time.Time        `json:"updated_at"`
}

type Department struct {
	ID             string    `json:"id"`
	OrganizationID string    `json:"organization_id"`
	Name           string    `json:"name"`
	Description    string    `json:"description,omitempty"`
	Location       string    `json:"location,omitempty"`
	Active         bool      `json:"active"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

// Card is the access credential. CardID and FingerprintID are both globally
// unique keys.
type Card struct {
	CardID         string     `json:"card_id"`
	OrganizationID string     `json:"organization_id"`
	DepartmentID   string     `json:"department_id"`
	HolderName     string     `json:"holder_name"`
	HolderType     HolderType `json:"holder_type"`
	FingerprintID  int64      `json:"fingerprint_id"`
	BiometricID    string     `json:"biometric_id,omitempty"`
	Email          string     `json:"email,omitempty"`
	Phone          string     `json:"phone,omitempty"`
	Active         bool       `json:"active"`
	IssueDate      time.Time  `json:"issue_date"`
	ExpiryDate     *time.Time `json:"expiry_date,omitempty"`
	LastAccessAt   *time.Time `json:"last_access_at,omitempty"`
	CreatedAt      time.Time  `json:"created_at"`
	UpdatedAt      time.Time  `json:"updated_at"`
}

// Expired reports whether the card is past its expiry date at t.
// A card without an expiry date never expires.
func (c Card) Expired(t time.Time) bool {
	return c.ExpiryDate != nil && t.After(*c.ExpiryDate)
}

// BiometricData is the template payload bound to a card by enrollment.
type BiometricData struct {
	ID           string    `json:"id"`
	CardID       string    `json:"card_id"`
	TemplateData string    `json:"template_data"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// Device is a physical reader.
type Device struct {
	DeviceID         string     `json:"device_id"`
	Location         string     `json:"location"`
	Active           bool       `json:"active"`
	RegistrationMode bool       `json:"registration_mode"`
	FirmwareVersion  string     `json:"firmware_version,omitempty"`
	LastSeenAt       *time.Time `json:"last_seen_at,omitempty"`
	CreatedAt        time.Time  `json:"created_at"`
	UpdatedAt        time.Time  `json:"updated_at"`
}
