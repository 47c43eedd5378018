package service

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/BrandonDHaskell/Janus/server/internal/janus/notify"
	"github.com/BrandonDHaskell/Janus/server/internal/janus/store"
	"github.com/BrandonDHaskell/Janus/server/internal/janus/types"
)

// AdminService is the management surface over the registry. Deletes of
// organizations, departments and cards go through the IntegrityManager.
type AdminService struct {
	registry  store.Registry
	integrity *IntegrityManager
	bus       notify.Publisher
	logger    *slog.Logger
	now       func() time.Time
}

func NewAdminService(reg store.Registry, integrity *IntegrityManager, bus notify.Publisher, logger *slog.Logger) *AdminService {
	if bus == nil {
		bus = notify.Discard{}
	}
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &AdminService{
		registry:  reg,
		integrity: integrity,
		bus:       bus,
		logger:    logger,
		now:       func() time.Time { return time.Now().UTC() },
	}
}

func (s *AdminService) publish(kind notify.Kind, entity string, payload any) {
	s.bus.Publish(notify.Event{Type: kind, Entity: entity, Payload: payload, At: s.now()})
}

// ── Organizations ────────────────────────────────────────────────────────────

func (s *AdminService) CreateOrganization(ctx context.Context, o types.Organization) (types.Organization, error) {
	o.Name = strings.TrimSpace(o.Name)
	if err := ValidateOrganization(o); err != nil {
		return types.Organization{}, err
	}
	if o.ID == "" {
		o.ID = uuid.NewString()
	}
	o.CreatedAt = s.now()
	o.UpdatedAt = o.CreatedAt

	if err := s.registry.CreateOrganization(ctx, o); err != nil {
		return types.Organization{}, translate("organization", o.ID, err)
	}
	s.publish(notify.EntityAdded, notify.EntityOrganization, o)
	return o, nil
}

func (s *AdminService) GetOrganization(ctx context.Context, id string) (types.Organization, error) {
	o, err := s.registry.GetOrganization(ctx, id)
	return o, translate("organization", id, err)
}

func (s *AdminService) ListOrganizations(ctx context.Context) ([]types.Organization, error) {
	return s.registry.ListOrganizations(ctx)
}

func (s *AdminService) UpdateOrganization(ctx context.Context, o types.Organization) (types.Organization, error) {
	existing, err := s.registry.GetOrganization(ctx, o.ID)
	if err != nil {
		return types.Organization{}, translate("organization", o.ID, err)
	}
	o.Name = strings.TrimSpace(o.Name)
	if err := ValidateOrganization(o); err != nil {
		return types.Organization{}, err
	}
	o.CreatedAt = existing.CreatedAt
	o.UpdatedAt = s.now()

	if err := s.registry.UpdateOrganization(ctx, o); err != nil {
		return types.Organization{}, translate("organization", o.ID, err)
	}
	s.publish(notify.EntityUpdated, notify.EntityOrganization, o)
	return o, nil
}

func (s *AdminService) DeleteOrganization(ctx context.Context, id string) (CascadeReport, error) {
	return s.integrity.DeleteOrganization(ctx, id)
}

// ── Departments ──────────────────────────────────────────────────────────────

func (s *AdminService) CreateDepartment(ctx context.Context, d types.Department) (types.Department, error) {
	d.Name = strings.TrimSpace(d.Name)
	if err := ValidateDepartment(d); err != nil {
		return types.Department{}, err
	}
	if err := s.requireOrganization(ctx, d.OrganizationID); err != nil {
		return types.Department{}, err
	}
	if d.ID == "" {
		d.ID = uuid.NewString()
	}
	d.CreatedAt = s.now()
	d.UpdatedAt = d.CreatedAt

	if err := s.registry.CreateDepartment(ctx, d); err != nil {
		return types.Department{}, translate("department", d.ID, err)
	}
	s.publish(notify.EntityAdded, notify.EntityDepartment, d)
	return d, nil
}

func (s *AdminService) GetDepartment(ctx context.Context, id string) (types.Department, error) {
	d, err := s.registry.GetDepartment(ctx, id)
	return d, translate("department", id, err)
}

func (s *AdminService) ListDepartments(ctx context.Context, organizationID string) ([]types.Department, error) {
	return s.registry.ListDepartments(ctx, organizationID)
}

// UpdateDepartment may re-parent the department; its cards follow it to
// the new organization.
func (s *AdminService) UpdateDepartment(ctx context.Context, d types.Department) (types.Department, error) {
	existing, err := s.registry.GetDepartment(ctx, d.ID)
	if err != nil {
		return types.Department{}, translate("department", d.ID, err)
	}
	d.Name = strings.TrimSpace(d.Name)
	if err := ValidateDepartment(d); err != nil {
		return types.Department{}, err
	}
	if d.OrganizationID != existing.OrganizationID {
		if err := s.requireOrganization(ctx, d.OrganizationID); err != nil {
			return types.Department{}, err
		}
	}
	d.CreatedAt = existing.CreatedAt
	d.UpdatedAt = s.now()

	if err := s.registry.UpdateDepartment(ctx, d); err != nil {
		return types.Department{}, translate("department", d.ID, err)
	}
	s.publish(notify.EntityUpdated, notify.EntityDepartment, d)

	if d.OrganizationID != existing.OrganizationID {
		if err := s.reparentCards(ctx, d); err != nil {
			return d, err
		}
	}
	return d, nil
}

func (s *AdminService) reparentCards(ctx context.Context, d types.Department) error {
	cards, err := s.registry.ListCards(ctx, store.CardFilter{DepartmentIDs: []string{d.ID}})
	if err != nil {
		return err
	}
	for _, c := range cards {
		c.OrganizationID = d.OrganizationID
		c.UpdatedAt = d.UpdatedAt
		if err := s.registry.UpdateCard(ctx, c); err != nil {
			return translate("card", c.CardID, err)
		}
		s.publish(notify.EntityUpdated, notify.EntityCard, c)
	}
	if len(cards) > 0 {
		s.logger.Info("department re-parented", "department_id", d.ID, "organization_id", d.OrganizationID, "cards", len(cards))
	}
	return nil
}

func (s *AdminService) DeleteDepartment(ctx context.Context, id string) (CascadeReport, error) {
	return s.integrity.DeleteDepartment(ctx, id)
}

func (s *AdminService) requireOrganization(ctx context.Context, id string) error {
	_, err := s.registry.GetOrganization(ctx, id)
	if errors.Is(err, store.ErrNotFound) {
		return invalid("organization_id", "references an unknown organization")
	}
	return translate("organization", id, err)
}

// ── Cards ────────────────────────────────────────────────────────────────────

func (s *AdminService) CreateCard(ctx context.Context, c types.Card) (types.Card, error) {
	c.CardID = strings.TrimSpace(c.CardID)
	c.HolderName = strings.TrimSpace(c.HolderName)
	now := s.now()
	if c.IssueDate.IsZero() {
		c.IssueDate = now
	}
	if err := ValidateCard(c); err != nil {
		return types.Card{}, err
	}
	if err := s.requireDepartmentOf(ctx, c.OrganizationID, c.DepartmentID); err != nil {
		return types.Card{}, err
	}
	c.BiometricID = ""
	c.LastAccessAt = nil
	c.CreatedAt = now
	c.UpdatedAt = now

	if err := s.registry.CreateCard(ctx, c); err != nil {
		return types.Card{}, translate("card", c.CardID, err)
	}
	s.publish(notify.EntityAdded, notify.EntityCard, c)
	return c, nil
}

func (s *AdminService) GetCard(ctx context.Context, cardID string) (types.Card, error) {
	c, err := s.registry.GetCard(ctx, cardID)
	return c, translate("card", cardID, err)
}

func (s *AdminService) ListCards(ctx context.Context, f store.CardFilter) ([]types.Card, error) {
	return s.registry.ListCards(ctx, f)
}

// UpdateCard replaces the holder fields. The biometric binding and access
// history are owned by enrollment and decisions and are kept.
func (s *AdminService) UpdateCard(ctx context.Context, c types.Card) (types.Card, error) {
	existing, err := s.registry.GetCard(ctx, c.CardID)
	if err != nil {
		return types.Card{}, translate("card", c.CardID, err)
	}
	c.HolderName = strings.TrimSpace(c.HolderName)
	if c.IssueDate.IsZero() {
		c.IssueDate = existing.IssueDate
	}
	if c.FingerprintID == 0 {
		c.FingerprintID = existing.FingerprintID
	}
	if err := ValidateCard(c); err != nil {
		return types.Card{}, err
	}
	if c.OrganizationID != existing.OrganizationID || c.DepartmentID != existing.DepartmentID {
		if err := s.requireDepartmentOf(ctx, c.OrganizationID, c.DepartmentID); err != nil {
			return types.Card{}, err
		}
	}
	c.BiometricID = existing.BiometricID
	c.LastAccessAt = existing.LastAccessAt
	c.CreatedAt = existing.CreatedAt
	c.UpdatedAt = s.now()

	if err := s.registry.UpdateCard(ctx, c); err != nil {
		return types.Card{}, translate("card", c.CardID, err)
	}
	s.publish(notify.EntityUpdated, notify.EntityCard, c)
	return c, nil
}

func (s *AdminService) SetCardStatus(ctx context.Context, cardID string, active bool) (types.Card, error) {
	c, err := s.registry.GetCard(ctx, cardID)
	if err != nil {
		return types.Card{}, translate("card", cardID, err)
	}
	if c.Active == active {
		return c, nil
	}
	c.Active = active
	c.UpdatedAt = s.now()
	if err := s.registry.UpdateCard(ctx, c); err != nil {
		return types.Card{}, translate("card", cardID, err)
	}
	s.publish(notify.EntityUpdated, notify.EntityCard, c)
	return c, nil
}

func (s *AdminService) DeleteCard(ctx context.Context, cardID string) (CascadeReport, error) {
	return s.integrity.DeleteCard(ctx, cardID)
}

func (s *AdminService) requireDepartmentOf(ctx context.Context, orgID, deptID string) error {
	d, err := s.registry.GetDepartment(ctx, deptID)
	if errors.Is(err, store.ErrNotFound) {
		return invalid("department_id", "references an unknown department")
	}
	if err != nil {
		return translate("department", deptID, err)
	}
	if d.OrganizationID != orgID {
		return invalid("department_id", "belongs to a different organization")
	}
	return nil
}

// ── Biometrics ───────────────────────────────────────────────────────────────

func (s *AdminService) UpsertBiometric(ctx context.Context, b types.BiometricData) (types.BiometricData, error) {
	b.CardID = strings.TrimSpace(b.CardID)
	if err := ValidateBiometric(b); err != nil {
		return types.BiometricData{}, err
	}
	_, getErr := s.registry.GetBiometric(ctx, b.CardID)
	existed := getErr == nil

	b.UpdatedAt = s.now()
	out, err := s.registry.UpsertBiometric(ctx, b)
	if err != nil {
		return types.BiometricData{}, translate("card", b.CardID, err)
	}
	kind := notify.EntityAdded
	if existed {
		kind = notify.EntityUpdated
	}
	s.publish(kind, notify.EntityBiometric, out)
	return out, nil
}

func (s *AdminService) GetBiometric(ctx context.Context, cardID string) (types.BiometricData, error) {
	b, err := s.registry.GetBiometric(ctx, cardID)
	return b, translate("biometric", cardID, err)
}

func (s *AdminService) DeleteBiometric(ctx context.Context, cardID string) error {
	if err := s.registry.DeleteBiometric(ctx, cardID); err != nil {
		return translate("biometric", cardID, err)
	}
	s.publish(notify.EntityDeleted, notify.EntityBiometric, map[string]string{"id": cardID})
	return nil
}

// ── Devices ──────────────────────────────────────────────────────────────────

// CreateDevice registers a reader. Registration mode always starts off.
func (s *AdminService) CreateDevice(ctx context.Context, d types.Device) (types.Device, error) {
	d.DeviceID = strings.TrimSpace(d.DeviceID)
	d.Location = strings.TrimSpace(d.Location)
	if err := ValidateDevice(d); err != nil {
		return types.Device{}, err
	}
	d.RegistrationMode = false
	d.LastSeenAt = nil
	d.CreatedAt = s.now()
	d.UpdatedAt = d.CreatedAt

	if err := s.registry.CreateDevice(ctx, d); err != nil {
		return types.Device{}, translate("device", d.DeviceID, err)
	}
	s.publish(notify.EntityAdded, notify.EntityDevice, d)
	return d, nil
}

func (s *AdminService) GetDevice(ctx context.Context, deviceID string) (types.Device, error) {
	d, err := s.registry.GetDevice(ctx, deviceID)
	return d, translate("device", deviceID, err)
}

func (s *AdminService) ListDevices(ctx context.Context, f store.DeviceFilter) ([]types.Device, error) {
	return s.registry.ListDevices(ctx, f)
}

// UpdateDevice edits location, active flag and firmware. Registration mode
// only changes through the enrollment coordinator.
func (s *AdminService) UpdateDevice(ctx context.Context, d types.Device) (types.Device, error) {
	existing, err := s.registry.GetDevice(ctx, d.DeviceID)
	if err != nil {
		return types.Device{}, translate("device", d.DeviceID, err)
	}
	d.Location = strings.TrimSpace(d.Location)
	if err := ValidateDevice(d); err != nil {
		return types.Device{}, err
	}
	if d.FirmwareVersion == "" {
		d.FirmwareVersion = existing.FirmwareVersion
	}
	d.RegistrationMode = existing.RegistrationMode
	d.LastSeenAt = existing.LastSeenAt
	d.CreatedAt = existing.CreatedAt
	d.UpdatedAt = s.now()

	if err := s.registry.UpdateDevice(ctx, d); err != nil {
		return types.Device{}, translate("device", d.DeviceID, err)
	}
	s.publish(notify.EntityUpdated, notify.EntityDevice, d)
	return d, nil
}

// DeleteDevice refuses while a handshake is in flight on the device.
func (s *AdminService) DeleteDevice(ctx context.Context, deviceID string) error {
	_, err := s.registry.GetPendingForDevice(ctx, deviceID)
	if err == nil {
		return &ConflictError{Entity: "device", ID: deviceID, Reason: "enrollment in progress"}
	}
	if !errors.Is(err, store.ErrNotFound) {
		return err
	}
	if err := s.registry.DeleteDevice(ctx, deviceID); err != nil {
		return translate("device", deviceID, err)
	}
	s.publish(notify.EntityDeleted, notify.EntityDevice, map[string]string{"id": deviceID})
	return nil
}

// ── Access logs ──────────────────────────────────────────────────────────────

// DefaultLogLimit caps ListAccessLogs when the caller sets no limit.
const DefaultLogLimit = 1000

func (s *AdminService) ListAccessLogs(ctx context.Context, f store.AccessLogFilter) ([]types.AccessLog, error) {
	if f.From != nil && f.To != nil && f.From.After(*f.To) {
		return nil, invalid("from", "must not be after to")
	}
	if f.Method != "" && !f.Method.Valid() {
		return nil, invalid("method", "must be one of card, fingerprint, both")
	}
	if f.Limit <= 0 || f.Limit > DefaultLogLimit {
		f.Limit = DefaultLogLimit
	}
	return s.registry.ListAccessLogs(ctx, f)
}
