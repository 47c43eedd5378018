package service

import (
	"net/mail"
	"strings"

	"github.com/BrandonDHaskell/Janus/server/internal/janus/types"
)

// validator accumulates field errors so callers see every problem at once.
type validator struct {
	fields []FieldError
}

func (v *validator) add(field, message string) {
	v.fields = append(v.fields, FieldError{Field: field, Message: message})
}

func (v *validator) required(field, value string) {
	if strings.TrimSpace(value) == "" {
		v.add(field, "is required")
	}
}

func (v *validator) email(field, value string) {
	if value == "" {
		return
	}
	if _, err := mail.ParseAddress(value); err != nil {
		v.add(field, "is not a valid email address")
	}
}

func (v *validator) err() error {
	if len(v.fields) == 0 {
		return nil
	}
	return &ValidationError{Fields: v.fields}
}

func ValidateOrganization(o types.Organization) error {
	var v validator
	v.required("name", o.Name)
	if !o.Kind.Valid() {
		v.add("kind", "must be one of university, company")
	}
	v.email("contact_email", o.ContactEmail)
	return v.err()
}

func ValidateDepartment(d types.Department) error {
	var v validator
	v.required("name", d.Name)
	v.required("organization_id", d.OrganizationID)
	return v.err()
}

func ValidateCard(c types.Card) error {
	var v validator
	v.required("card_id", c.CardID)
	v.required("organization_id", c.OrganizationID)
	v.required("department_id", c.DepartmentID)
	v.required("holder_name", c.HolderName)
	if !c.HolderType.Valid() {
		v.add("holder_type", "must be one of student, faculty, staff, employee, visitor")
	}
	if c.FingerprintID <= 0 {
		v.add("fingerprint_id", "must be a positive integer")
	}
	v.email("email", c.Email)
	if c.ExpiryDate != nil && !c.IssueDate.IsZero() && c.ExpiryDate.Before(c.IssueDate) {
		v.add("expiry_date", "must not precede issue_date")
	}
	return v.err()
}

// ValidateCardProfile checks the holder fields staged for a card that does
// not exist yet.
func ValidateCardProfile(p types.CardProfile) error {
	var v validator
	v.required("profile.organization_id", p.OrganizationID)
	v.required("profile.department_id", p.DepartmentID)
	v.required("profile.holder_name", p.HolderName)
	if !p.HolderType.Valid() {
		v.add("profile.holder_type", "must be one of student, faculty, staff, employee, visitor")
	}
	v.email("profile.email", p.Email)
	return v.err()
}

func ValidateDevice(d types.Device) error {
	var v validator
	v.required("device_id", d.DeviceID)
	v.required("location", d.Location)
	return v.err()
}

func ValidateBiometric(b types.BiometricData) error {
	var v validator
	v.required("card_id", b.CardID)
	v.required("template_data", b.TemplateData)
	return v.err()
}
