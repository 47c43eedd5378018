package httpapi

import (
	"time"

	"github.com/BrandonDHaskell/Janus/server/internal/janus/types"
)

// Admin request bodies. Active is a pointer so an omitted flag defaults to
// true on create and keeps the stored value on update.

type organizationPayload struct {
	ID           string                 `json:"id,omitempty"`
	Name         string                 `json:"name"`
	Kind         types.OrganizationKind `json:"kind"`
	Address      string                 `json:"address,omitempty"`
	ContactEmail string                 `json:"contact_email,omitempty"`
	ContactPhone string                 `json:"contact_phone,omitempty"`
	Active       *bool                  `json:"active,omitempty"`
}

func (p organizationPayload) apply(o types.Organization) types.Organization {
	o.Name = p.Name
	o.Kind = p.Kind
	o.Address = p.Address
	o.ContactEmail = p.ContactEmail
	o.ContactPhone = p.ContactPhone
	o.Active = activeOr(p.Active, o.Active)
	return o
}

type departmentPayload struct {
	ID             string `json:"id,omitempty"`
	OrganizationID string `json:"organization_id"`
	Name           string `json:"name"`
	Description    string `json:"description,omitempty"`
	Location       string `json:"location,omitempty"`
	Active         *bool  `json:"active,omitempty"`
}

func (p departmentPayload) apply(d types.Department) types.Department {
	d.OrganizationID = p.OrganizationID
	d.Name = p.Name
	d.Description = p.Description
	d.Location = p.Location
	d.Active = activeOr(p.Active, d.Active)
	return d
}

type cardPayload struct {
	CardID         string           `json:"card_id,omitempty"`
	OrganizationID string           `json:"organization_id"`
	DepartmentID   string           `json:"department_id"`
	HolderName     string           `json:"holder_name"`
	HolderType     types.HolderType `json:"holder_type"`
	FingerprintID  int64            `json:"fingerprint_id,omitempty"`
	Email          string           `json:"email,omitempty"`
	Phone          string           `json:"phone,omitempty"`
	IssueDate      *time.Time       `json:"issue_date,omitempty"`
	ExpiryDate     *time.Time       `json:"expiry_date,omitempty"`
	Active         *bool            `json:"active,omitempty"`
}

func (p cardPayload) apply(c types.Card) types.Card {
	c.OrganizationID = p.OrganizationID
	c.DepartmentID = p.DepartmentID
	c.HolderName = p.HolderName
	c.HolderType = p.HolderType
	if p.FingerprintID != 0 {
		c.FingerprintID = p.FingerprintID
	}
	c.Email = p.Email
	c.Phone = p.Phone
	if p.IssueDate != nil {
		c.IssueDate = p.IssueDate.UTC()
	}
	c.ExpiryDate = p.ExpiryDate
	c.Active = activeOr(p.Active, c.Active)
	return c
}

type devicePayload struct {
	DeviceID        string `json:"device_id,omitempty"`
	Location        string `json:"location"`
	FirmwareVersion string `json:"firmware_version,omitempty"`
	Active          *bool  `json:"active,omitempty"`
}

func (p devicePayload) apply(d types.Device) types.Device {
	d.Location = p.Location
	if p.FirmwareVersion != "" {
		d.FirmwareVersion = p.FirmwareVersion
	}
	d.Active = activeOr(p.Active, d.Active)
	return d
}

type biometricPayload struct {
	TemplateData string `json:"template_data"`
}

type cardStatusPayload struct {
	Active *bool `json:"active"`
}

func activeOr(p *bool, def bool) bool {
	if p == nil {
		return def
	}
	return *p
}
