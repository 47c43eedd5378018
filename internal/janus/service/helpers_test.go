package service_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/BrandonDHaskell/Janus/server/internal/janus/notify"
	"github.com/BrandonDHaskell/Janus/server/internal/janus/service"
	"github.com/BrandonDHaskell/Janus/server/internal/janus/store/memory"
	"github.com/BrandonDHaskell/Janus/server/internal/janus/types"
)

var t0 = time.Date(2026, 3, 2, 9, 30, 0, 0, time.UTC)

// clock is a settable time source shared by the services under test.
type clock struct {
	mu sync.Mutex
	t  time.Time
}

func newClock() *clock { return &clock{t: t0} }

func (c *clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *clock) Advance(d time.Duration) {
	c.mu.Lock()
	c.t = c.t.Add(d)
	c.mu.Unlock()
}

// recordingBus keeps every published event.
type recordingBus struct {
	mu     sync.Mutex
	events []notify.Event
}

func (b *recordingBus) Publish(ev notify.Event) {
	b.mu.Lock()
	b.events = append(b.events, ev)
	b.mu.Unlock()
}

func (b *recordingBus) Events() []notify.Event {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]notify.Event, len(b.events))
	copy(out, b.events)
	return out
}

func (b *recordingBus) OfType(k notify.Kind) []notify.Event {
	var out []notify.Event
	for _, ev := range b.Events() {
		if ev.Type == k {
			out = append(out, ev)
		}
	}
	return out
}

// faultyRegistry injects store failures for selected ids.
type faultyRegistry struct {
	*memory.Store
	failDeleteCard map[string]bool
	failPending    map[string]bool // keyed by pending id
	failAppend     bool
}

var errInjected = errors.New("injected store failure")

func (f *faultyRegistry) DeleteCard(ctx context.Context, cardID string) error {
	if f.failDeleteCard[cardID] {
		return errInjected
	}
	return f.Store.DeleteCard(ctx, cardID)
}

func (f *faultyRegistry) FailPending(ctx context.Context, pendingID, reason string, at time.Time) error {
	if f.failPending[pendingID] {
		return errInjected
	}
	return f.Store.FailPending(ctx, pendingID, reason, at)
}

func (f *faultyRegistry) AppendAccessLog(ctx context.Context, l types.AccessLog) (types.AccessLog, error) {
	if f.failAppend {
		return types.AccessLog{}, errInjected
	}
	return f.Store.AppendAccessLog(ctx, l)
}

const (
	orgID  = "org-1"
	deptID = "dept-1"
)

// seedRegistry creates one organization, one department and the given
// active devices.
func seedRegistry(t *testing.T, st *memory.Store, devices ...string) {
	t.Helper()
	ctx := context.Background()
	require.NoError(t, st.CreateOrganization(ctx, types.Organization{
		ID: orgID, Name: "Acme University", Kind: types.OrganizationUniversity, Active: true, CreatedAt: t0, UpdatedAt: t0,
	}))
	require.NoError(t, st.CreateDepartment(ctx, types.Department{
		ID: deptID, OrganizationID: orgID, Name: "Physics", Active: true, CreatedAt: t0, UpdatedAt: t0,
	}))
	for _, id := range devices {
		require.NoError(t, st.CreateDevice(ctx, types.Device{
			DeviceID: id, Location: "Gate " + id, Active: true, CreatedAt: t0, UpdatedAt: t0,
		}))
	}
}

func addCard(t *testing.T, st *memory.Store, cardID string, fingerprintID int64, mutate ...func(*types.Card)) types.Card {
	t.Helper()
	c := types.Card{
		CardID:         cardID,
		OrganizationID: orgID,
		DepartmentID:   deptID,
		HolderName:     "Holder " + cardID,
		HolderType:     types.HolderStudent,
		FingerprintID:  fingerprintID,
		Active:         true,
		IssueDate:      t0.AddDate(-1, 0, 0),
		CreatedAt:      t0,
		UpdatedAt:      t0,
	}
	for _, m := range mutate {
		m(&c)
	}
	require.NoError(t, st.CreateCard(context.Background(), c))
	return c
}

func newProfile() types.CardProfile {
	return types.CardProfile{
		OrganizationID: orgID,
		DepartmentID:   deptID,
		HolderName:     "Grace Hopper",
		HolderType:     types.HolderFaculty,
	}
}

func ptr[T any](v T) *T { return &v }

// enrollOnce runs a full successful handshake on deviceID for cardID.
func enrollOnce(ctx context.Context, c *service.EnrollmentCoordinator, deviceID, cardID string) (types.Card, error) {
	if _, err := c.SetRegistrationMode(ctx, deviceID, true); err != nil {
		return types.Card{}, err
	}
	p, err := c.SubmitCardRead(ctx, types.CardReadRequest{DeviceID: deviceID, CardID: cardID, Profile: newProfile()})
	if err != nil {
		return types.Card{}, err
	}
	resp, err := c.SubmitCapture(ctx, types.CaptureRequest{
		DeviceID: deviceID, FingerprintID: p.FingerprintID, TemplateData: "tmpl-" + cardID,
	})
	if err != nil {
		return types.Card{}, err
	}
	return *resp.Card, nil
}
