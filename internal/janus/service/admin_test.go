package service_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/BrandonDHaskell/Janus/server/internal/janus/notify"
	"github.com/BrandonDHaskell/Janus/server/internal/janus/service"
	"github.com/BrandonDHaskell/Janus/server/internal/janus/store"
	"github.com/BrandonDHaskell/Janus/server/internal/janus/store/memory"
	"github.com/BrandonDHaskell/Janus/server/internal/janus/types"
)

func newAdmin(t *testing.T) (*service.AdminService, *memory.Store, *recordingBus) {
	t.Helper()
	st := memory.New()
	bus := &recordingBus{}
	im := service.NewIntegrityManager(st, bus, nil, nil)
	return service.NewAdminService(st, im, bus, nil), st, bus
}

func fieldsOf(t *testing.T, err error) []string {
	t.Helper()
	var ve *service.ValidationError
	require.ErrorAs(t, err, &ve)
	out := make([]string, len(ve.Fields))
	for i, f := range ve.Fields {
		out[i] = f.Field
	}
	return out
}

func TestAdmin_OrganizationLifecycle(t *testing.T) {
	ctx := context.Background()
	admin, _, bus := newAdmin(t)

	_, err := admin.CreateOrganization(ctx, types.Organization{Name: " ", Kind: "club", ContactEmail: "nope"})
	assert.ElementsMatch(t, []string{"name", "kind", "contact_email"}, fieldsOf(t, err))

	org, err := admin.CreateOrganization(ctx, types.Organization{Name: "  Acme  ", Kind: types.OrganizationCompany, Active: true})
	require.NoError(t, err)
	assert.NotEmpty(t, org.ID)
	assert.Equal(t, "Acme", org.Name)

	org.Address = "1 Main St"
	updated, err := admin.UpdateOrganization(ctx, org)
	require.NoError(t, err)
	assert.Equal(t, org.CreatedAt, updated.CreatedAt)

	_, err = admin.UpdateOrganization(ctx, types.Organization{ID: "missing", Name: "x", Kind: types.OrganizationCompany})
	var nf *service.NotFoundError
	assert.ErrorAs(t, err, &nf)

	_, err = admin.DeleteOrganization(ctx, org.ID)
	require.NoError(t, err)
	_, err = admin.GetOrganization(ctx, org.ID)
	assert.ErrorAs(t, err, &nf)

	assert.Len(t, bus.OfType(notify.EntityAdded), 1)
	assert.Len(t, bus.OfType(notify.EntityUpdated), 1)
	assert.Len(t, bus.OfType(notify.EntityDeleted), 1)
}

func TestAdmin_DepartmentRequiresOrganization(t *testing.T) {
	ctx := context.Background()
	admin, _, _ := newAdmin(t)

	_, err := admin.CreateDepartment(ctx, types.Department{Name: "Physics", OrganizationID: "ghost"})
	assert.Equal(t, []string{"organization_id"}, fieldsOf(t, err))
}

func TestAdmin_ReparentMovesCards(t *testing.T) {
	ctx := context.Background()
	admin, st, _ := newAdmin(t)
	seedRegistry(t, st)
	addCard(t, st, "C1", 1)
	addCard(t, st, "C2", 2)
	other, err := admin.CreateOrganization(ctx, types.Organization{Name: "Other", Kind: types.OrganizationUniversity})
	require.NoError(t, err)

	dept, err := admin.GetDepartment(ctx, deptID)
	require.NoError(t, err)
	dept.OrganizationID = other.ID
	_, err = admin.UpdateDepartment(ctx, dept)
	require.NoError(t, err)

	moved, err := admin.ListCards(ctx, store.CardFilter{OrganizationID: other.ID})
	require.NoError(t, err)
	assert.Len(t, moved, 2)

	left, err := admin.ListCards(ctx, store.CardFilter{OrganizationID: orgID})
	require.NoError(t, err)
	assert.Empty(t, left)
}

func TestAdmin_CardRules(t *testing.T) {
	ctx := context.Background()
	admin, st, _ := newAdmin(t)
	seedRegistry(t, st)
	require.NoError(t, st.CreateOrganization(ctx, types.Organization{ID: "org-2", Name: "B", Kind: types.OrganizationCompany}))

	base := types.Card{
		CardID: "C1", OrganizationID: orgID, DepartmentID: deptID,
		HolderName: "Ada", HolderType: types.HolderStaff, FingerprintID: 11, Active: true,
	}

	t.Run("field validation", func(t *testing.T) {
		bad := base
		bad.HolderType = "pirate"
		bad.FingerprintID = 0
		bad.Email = "x"
		assert.ElementsMatch(t, []string{"holder_type", "fingerprint_id", "email"}, fieldsOf(t, func() error {
			_, err := admin.CreateCard(ctx, bad)
			return err
		}()))
	})

	t.Run("department of another organization", func(t *testing.T) {
		bad := base
		bad.OrganizationID = "org-2"
		_, err := admin.CreateCard(ctx, bad)
		assert.Equal(t, []string{"department_id"}, fieldsOf(t, err))
	})

	t.Run("create and toggle status", func(t *testing.T) {
		c, err := admin.CreateCard(ctx, base)
		require.NoError(t, err)
		assert.False(t, c.IssueDate.IsZero())

		c, err = admin.SetCardStatus(ctx, "C1", false)
		require.NoError(t, err)
		assert.False(t, c.Active)
	})

	t.Run("duplicate keys conflict", func(t *testing.T) {
		_, err := admin.CreateCard(ctx, base)
		var ce *service.ConflictError
		assert.ErrorAs(t, err, &ce)

		dup := base
		dup.CardID = "C2"
		_, err = admin.CreateCard(ctx, dup)
		assert.ErrorAs(t, err, &ce, "fingerprint id is a unique key")
	})

	t.Run("update keeps binding", func(t *testing.T) {
		_, err := admin.UpsertBiometric(ctx, types.BiometricData{CardID: "C1", TemplateData: "tmpl"})
		require.NoError(t, err)

		upd := base
		upd.HolderName = "Ada Lovelace"
		upd.FingerprintID = 0
		c, err := admin.UpdateCard(ctx, upd)
		require.NoError(t, err)
		assert.Equal(t, int64(11), c.FingerprintID)
		assert.NotEmpty(t, c.BiometricID)
	})
}

func TestAdmin_DeviceDeleteBlockedDuringEnrollment(t *testing.T) {
	ctx := context.Background()
	admin, st, _ := newAdmin(t)
	seedRegistry(t, st)

	_, err := admin.CreateDevice(ctx, types.Device{DeviceID: "D9", Location: "Lab", Active: true, RegistrationMode: true})
	require.NoError(t, err)
	d, err := admin.GetDevice(ctx, "D9")
	require.NoError(t, err)
	assert.False(t, d.RegistrationMode, "devices start outside registration mode")

	coord := service.NewEnrollmentCoordinator(st, nil, nil, nil, service.EnrollmentConfig{})
	_, err = coord.SetRegistrationMode(ctx, "D9", true)
	require.NoError(t, err)
	_, err = coord.SubmitCardRead(ctx, types.CardReadRequest{DeviceID: "D9", CardID: "C1", Profile: newProfile()})
	require.NoError(t, err)

	err = admin.DeleteDevice(ctx, "D9")
	var ce *service.ConflictError
	require.ErrorAs(t, err, &ce)

	_, err = coord.SetRegistrationMode(ctx, "D9", false)
	require.NoError(t, err)
	require.NoError(t, admin.DeleteDevice(ctx, "D9"))

	err = admin.DeleteDevice(ctx, "D9")
	var nf *service.NotFoundError
	assert.ErrorAs(t, err, &nf)
}

func TestAdmin_ListAccessLogs(t *testing.T) {
	ctx := context.Background()
	admin, st, _ := newAdmin(t)

	for i := range 5 {
		_, err := st.AppendAccessLog(ctx, types.AccessLog{
			DeviceID: "D1", CardID: "C1", Timestamp: t0.Add(time.Duration(i) * time.Minute),
			Authorized: i%2 == 0, Method: types.MethodCard,
		})
		require.NoError(t, err)
	}

	logs, err := admin.ListAccessLogs(ctx, store.AccessLogFilter{})
	require.NoError(t, err)
	require.Len(t, logs, 5)
	assert.True(t, logs[0].Timestamp.After(logs[4].Timestamp), "newest first")

	logs, err = admin.ListAccessLogs(ctx, store.AccessLogFilter{Authorized: ptr(false), Limit: 1})
	require.NoError(t, err)
	require.Len(t, logs, 1)
	assert.False(t, logs[0].Authorized)

	_, err = admin.ListAccessLogs(ctx, store.AccessLogFilter{From: ptr(t0.Add(time.Hour)), To: ptr(t0)})
	assert.Equal(t, []string{"from"}, fieldsOf(t, err))

	_, err = admin.ListAccessLogs(ctx, store.AccessLogFilter{Method: "iris"})
	assert.Equal(t, []string{"method"}, fieldsOf(t, err))
}
