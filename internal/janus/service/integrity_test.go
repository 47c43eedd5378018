package service_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/BrandonDHaskell/Janus/server/internal/janus/notify"
	"github.com/BrandonDHaskell/Janus/server/internal/janus/service"
	"github.com/BrandonDHaskell/Janus/server/internal/janus/store"
	"github.com/BrandonDHaskell/Janus/server/internal/janus/store/memory"
	"github.com/BrandonDHaskell/Janus/server/internal/janus/types"
)

// seedTree builds org-1 with two departments, three cards (two with
// templates), one card that carries only the organization id, and an
// unrelated org-2 with its own card. One access log references C1.
func seedTree(t *testing.T) *memory.Store {
	t.Helper()
	ctx := context.Background()
	st := memory.New()
	seedRegistry(t, st, "D1")

	require.NoError(t, st.CreateDepartment(ctx, types.Department{ID: "dept-2", OrganizationID: orgID, Name: "Chemistry", Active: true}))
	require.NoError(t, st.CreateOrganization(ctx, types.Organization{ID: "org-2", Name: "Other Co", Kind: types.OrganizationCompany, Active: true}))
	require.NoError(t, st.CreateDepartment(ctx, types.Department{ID: "dept-x", OrganizationID: "org-2", Name: "Ops", Active: true}))

	addCard(t, st, "C1", 1)
	addCard(t, st, "C2", 2)
	addCard(t, st, "C3", 3, func(c *types.Card) { c.DepartmentID = "dept-2" })
	addCard(t, st, "C4", 4, func(c *types.Card) { c.DepartmentID = "gone" })
	addCard(t, st, "X1", 5, func(c *types.Card) { c.OrganizationID = "org-2"; c.DepartmentID = "dept-x" })

	for _, id := range []string{"C1", "C3", "X1"} {
		_, err := st.UpsertBiometric(ctx, types.BiometricData{CardID: id, TemplateData: "tmpl", UpdatedAt: t0})
		require.NoError(t, err)
	}
	_, err := st.AppendAccessLog(ctx, types.AccessLog{DeviceID: "D1", CardID: "C1", Timestamp: t0, Authorized: true, Method: types.MethodCard})
	require.NoError(t, err)
	return st
}

func stepOf(r service.CascadeReport, entity string) service.CascadeStep {
	for _, s := range r.Steps {
		if s.Entity == entity {
			return s
		}
	}
	return service.CascadeStep{}
}

func TestDeleteOrganization_CascadesToEveryDependent(t *testing.T) {
	ctx := context.Background()
	st := seedTree(t)
	bus := &recordingBus{}
	im := service.NewIntegrityManager(st, bus, nil, nil)

	report, err := im.DeleteOrganization(ctx, orgID)
	require.NoError(t, err)
	assert.True(t, report.Complete())

	require.Len(t, report.Steps, 4)
	assert.Equal(t, []string{
		notify.EntityOrganization, notify.EntityDepartment, notify.EntityCard, notify.EntityBiometric,
	}, []string{report.Steps[0].Entity, report.Steps[1].Entity, report.Steps[2].Entity, report.Steps[3].Entity})
	assert.Equal(t, []string{"dept-1", "dept-2"}, stepOf(report, notify.EntityDepartment).Deleted)
	assert.Equal(t, []string{"C1", "C2", "C3", "C4"}, stepOf(report, notify.EntityCard).Deleted)
	assert.Equal(t, []string{"C1", "C3"}, stepOf(report, notify.EntityBiometric).Deleted)

	_, err = st.GetOrganization(ctx, orgID)
	assert.ErrorIs(t, err, store.ErrNotFound)
	remaining, err := st.ListCards(ctx, store.CardFilter{OrganizationID: orgID})
	require.NoError(t, err)
	assert.Empty(t, remaining)
	_, err = st.GetBiometric(ctx, "C3")
	assert.ErrorIs(t, err, store.ErrNotFound)

	// The other tenant is untouched and the audit trail survives.
	_, err = st.GetCard(ctx, "X1")
	assert.NoError(t, err)
	_, err = st.GetBiometric(ctx, "X1")
	assert.NoError(t, err)
	assert.Len(t, st.AccessLogs(), 1)

	assert.Len(t, bus.OfType(notify.EntityDeleted), 1+2+4+2)
}

func TestDeleteDepartment_KeepsOrganization(t *testing.T) {
	ctx := context.Background()
	st := seedTree(t)
	im := service.NewIntegrityManager(st, nil, nil, nil)

	report, err := im.DeleteDepartment(ctx, deptID)
	require.NoError(t, err)
	assert.Equal(t, []string{"C1", "C2"}, stepOf(report, notify.EntityCard).Deleted)
	assert.Equal(t, []string{"C1"}, stepOf(report, notify.EntityBiometric).Deleted)

	_, err = st.GetOrganization(ctx, orgID)
	assert.NoError(t, err)
	_, err = st.GetCard(ctx, "C3")
	assert.NoError(t, err, "sibling department's cards stay")
}

func TestDeleteCard_RemovesTemplate(t *testing.T) {
	ctx := context.Background()
	st := seedTree(t)
	im := service.NewIntegrityManager(st, nil, nil, nil)

	report, err := im.DeleteCard(ctx, "C1")
	require.NoError(t, err)
	assert.Equal(t, []string{"C1"}, stepOf(report, notify.EntityBiometric).Deleted)

	report, err = im.DeleteCard(ctx, "C2")
	require.NoError(t, err)
	assert.Empty(t, stepOf(report, notify.EntityBiometric).Deleted, "no template bound")

	// The freed fingerprint slot can be looked up no more.
	_, err = st.GetCardByFingerprint(ctx, 1)
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestCascade_MissingRoot(t *testing.T) {
	im := service.NewIntegrityManager(memory.New(), nil, nil, nil)
	ctx := context.Background()

	_, err := im.DeleteOrganization(ctx, "nope")
	var nf *service.NotFoundError
	require.ErrorAs(t, err, &nf)
	assert.Equal(t, "organization", nf.Entity)

	_, err = im.DeleteDepartment(ctx, "nope")
	assert.ErrorAs(t, err, &nf)
	_, err = im.DeleteCard(ctx, "nope")
	assert.ErrorAs(t, err, &nf)
}

func TestCascade_PartialFailureIsReported(t *testing.T) {
	ctx := context.Background()
	st := seedTree(t)
	reg := &faultyRegistry{Store: st, failDeleteCard: map[string]bool{"C2": true}}
	bus := &recordingBus{}
	im := service.NewIntegrityManager(reg, bus, nil, nil)

	report, err := im.DeleteOrganization(ctx, orgID)
	var ce *service.CascadeIncompleteError
	require.ErrorAs(t, err, &ce)
	assert.False(t, ce.Report.Complete())
	assert.Equal(t, report, ce.Report)

	cards := stepOf(report, notify.EntityCard)
	assert.Equal(t, []string{"C1", "C3", "C4"}, cards.Deleted)
	require.Len(t, cards.Failed, 1)
	assert.Equal(t, "C2", cards.Failed[0].ID)

	// Later steps still ran.
	assert.Equal(t, []string{"C1", "C3"}, stepOf(report, notify.EntityBiometric).Deleted)

	_, err = st.GetCard(ctx, "C2")
	assert.NoError(t, err, "failed card is left in place, nothing rolled back")
	_, err = st.GetOrganization(ctx, orgID)
	assert.ErrorIs(t, err, store.ErrNotFound)

	for _, ev := range bus.OfType(notify.EntityDeleted) {
		assert.NotEqual(t, map[string]string{"id": "C2"}, ev.Payload)
	}
}
