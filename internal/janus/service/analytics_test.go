package service_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/BrandonDHaskell/Janus/server/internal/janus/service"
	"github.com/BrandonDHaskell/Janus/server/internal/janus/store/memory"
	"github.com/BrandonDHaskell/Janus/server/internal/janus/types"
)

func appendLog(t *testing.T, st *memory.Store, cardID string, at time.Time, authorized bool, m types.VerificationMethod) {
	t.Helper()
	_, err := st.AppendAccessLog(context.Background(), types.AccessLog{
		DeviceID: "D1", CardID: cardID, Timestamp: at, Authorized: authorized, Method: m,
	})
	require.NoError(t, err)
}

func TestAccessStats_Empty(t *testing.T) {
	svc := service.NewAnalyticsService(memory.New(), nil)

	stats, err := svc.AccessStats(context.Background(), types.StatsQuery{})
	require.NoError(t, err)
	assert.Zero(t, stats.Summary.TotalAccess)
	assert.Zero(t, stats.Summary.AuthorizedPercentage)
	require.Len(t, stats.HourlyDistribution, 24)
	for h, b := range stats.HourlyDistribution {
		assert.Equal(t, h, b.Hour)
		assert.Zero(t, b.Count)
	}
}

func TestAccessStats_Summary(t *testing.T) {
	st := memory.New()
	seedRegistry(t, st, "D1")
	addCard(t, st, "C1", 1)

	appendLog(t, st, "C1", t0, true, types.MethodCard)
	appendLog(t, st, "C1", t0.Add(time.Minute), true, types.MethodBoth)
	appendLog(t, st, "C1", t0.Add(2*time.Hour), false, types.MethodFingerprint)

	stats, err := service.NewAnalyticsService(st, nil).AccessStats(context.Background(), types.StatsQuery{})
	require.NoError(t, err)

	s := stats.Summary
	assert.Equal(t, 3, s.TotalAccess)
	assert.Equal(t, 2, s.AuthorizedAccess)
	assert.Equal(t, 1, s.UnauthorizedAccess)
	assert.Equal(t, s.TotalAccess, s.AuthorizedAccess+s.UnauthorizedAccess)
	assert.Equal(t, 1, s.CardOnlyVerifications)
	assert.Equal(t, 1, s.FingerprintVerifications)
	assert.Equal(t, 1, s.BothVerifications)
	assert.InDelta(t, 200.0/3.0, s.AuthorizedPercentage, 1e-9)

	assert.Equal(t, 2, stats.HourlyDistribution[9].Count)
	assert.Equal(t, 1, stats.HourlyDistribution[11].Count)
}

func TestAccessStats_Filters(t *testing.T) {
	ctx := context.Background()
	st := memory.New()
	seedRegistry(t, st, "D1")
	require.NoError(t, st.CreateDepartment(ctx, types.Department{ID: "dept-2", OrganizationID: orgID, Name: "Chemistry"}))
	addCard(t, st, "C1", 1)
	addCard(t, st, "C2", 2, func(c *types.Card) { c.DepartmentID = "dept-2" })
	addCard(t, st, "X1", 3, func(c *types.Card) { c.OrganizationID = "org-2"; c.DepartmentID = "dept-x" })

	appendLog(t, st, "C1", t0, true, types.MethodCard)
	appendLog(t, st, "C2", t0, false, types.MethodCard)
	appendLog(t, st, "X1", t0, true, types.MethodCard)
	appendLog(t, st, "DELETED", t0, false, types.MethodCard)
	appendLog(t, st, "C1", t0.Add(48*time.Hour), true, types.MethodCard)

	svc := service.NewAnalyticsService(st, nil)
	total := func(q types.StatsQuery) int {
		stats, err := svc.AccessStats(ctx, q)
		require.NoError(t, err)
		return stats.Summary.TotalAccess
	}

	assert.Equal(t, 5, total(types.StatsQuery{}), "unfiltered counts orphaned logs")
	assert.Equal(t, 3, total(types.StatsQuery{OrganizationID: orgID}))
	assert.Equal(t, 2, total(types.StatsQuery{DepartmentID: deptID}))
	assert.Equal(t, 1, total(types.StatsQuery{OrganizationID: orgID, DepartmentID: "dept-2"}))
	assert.Equal(t, 0, total(types.StatsQuery{OrganizationID: "ghost"}))

	from, to := t0.Add(-time.Hour), t0.Add(time.Hour)
	assert.Equal(t, 4, total(types.StatsQuery{From: &from, To: &to}))
	assert.Equal(t, 2, total(types.StatsQuery{From: &from, To: &to, OrganizationID: orgID}))

	_, err := svc.AccessStats(ctx, types.StatsQuery{From: &to, To: &from})
	var ve *service.ValidationError
	assert.ErrorAs(t, err, &ve)
}

func TestAccessStats_HoursInLocation(t *testing.T) {
	st := memory.New()
	appendLog(t, st, "C1", t0, true, types.MethodCard) // 09:30 UTC

	loc := time.FixedZone("UTC-5", -5*60*60)
	stats, err := service.NewAnalyticsService(st, loc).AccessStats(context.Background(), types.StatsQuery{})
	require.NoError(t, err)
	assert.Equal(t, 1, stats.HourlyDistribution[4].Count)
	assert.Zero(t, stats.HourlyDistribution[9].Count)
}
