package memory

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"github.com/BrandonDHaskell/Janus/server/internal/janus/store"
	"github.com/BrandonDHaskell/Janus/server/internal/janus/types"
)

type StoreSuite struct {
	suite.Suite
	ctx context.Context
	st  *Store
	now time.Time
}

func TestStoreSuite(t *testing.T) {
	suite.Run(t, new(StoreSuite))
}

func (s *StoreSuite) SetupTest() {
	s.ctx = context.Background()
	s.st = New()
	s.now = time.Date(2026, 3, 2, 9, 30, 0, 0, time.UTC)
	s.Require().NoError(s.st.CreateOrganization(s.ctx, types.Organization{ID: "org-1", Name: "Acme", Kind: types.OrganizationCompany, Active: true}))
	s.Require().NoError(s.st.CreateDepartment(s.ctx, types.Department{ID: "dept-1", OrganizationID: "org-1", Name: "Ops", Active: true}))
	s.Require().NoError(s.st.CreateDevice(s.ctx, types.Device{DeviceID: "D1", Location: "Lobby", Active: true}))
	s.Require().NoError(s.st.CreateDevice(s.ctx, types.Device{DeviceID: "D2", Location: "Lab", Active: true}))
}

func (s *StoreSuite) card(id string, fp int64) types.Card {
	return types.Card{
		CardID: id, OrganizationID: "org-1", DepartmentID: "dept-1",
		HolderName: "Holder " + id, HolderType: types.HolderStudent, FingerprintID: fp, Active: true,
	}
}

func (s *StoreSuite) reserve(deviceID, cardID string) (types.PendingRegistration, error) {
	return s.st.ReservePending(s.ctx, types.PendingRegistration{
		DeviceID: deviceID, CardID: cardID, CreatedAt: s.now,
		Profile: types.CardProfile{OrganizationID: "org-1", DepartmentID: "dept-1", HolderName: "New", HolderType: types.HolderStaff},
	})
}

func (s *StoreSuite) TestCardKeysAreUnique() {
	s.Require().NoError(s.st.CreateCard(s.ctx, s.card("C1", 1)))
	s.ErrorIs(s.st.CreateCard(s.ctx, s.card("C1", 2)), store.ErrConflict)
	s.ErrorIs(s.st.CreateCard(s.ctx, s.card("C2", 1)), store.ErrConflict)

	c := s.card("C1", 5)
	s.Require().NoError(s.st.UpdateCard(s.ctx, c))
	_, err := s.st.GetCardByFingerprint(s.ctx, 1)
	s.ErrorIs(err, store.ErrNotFound, "old slot released on rebind")
	got, err := s.st.GetCardByFingerprint(s.ctx, 5)
	s.Require().NoError(err)
	s.Equal("C1", got.CardID)
}

func (s *StoreSuite) TestAllocationNeverReuses() {
	for i := int64(1); i <= 3; i++ {
		s.Require().NoError(s.st.CreateCard(s.ctx, s.card("C"+string(rune('0'+i)), i)))
	}

	p, err := s.reserve("D1", "N1")
	s.Require().NoError(err)
	s.Equal(int64(4), p.FingerprintID)
	s.Require().NoError(s.st.FailPending(s.ctx, p.ID, types.FailureScan, s.now))

	// Deleting the highest card does not lower the next slot either.
	s.Require().NoError(s.st.DeleteCard(s.ctx, "C3"))

	p, err = s.reserve("D1", "N1")
	s.Require().NoError(err)
	s.Equal(int64(5), p.FingerprintID)
}

func (s *StoreSuite) TestOnePendingPerDeviceAndCard() {
	_, err := s.reserve("D1", "N1")
	s.Require().NoError(err)

	_, err = s.reserve("D1", "N2")
	s.ErrorIs(err, store.ErrConflict)
	_, err = s.reserve("D2", "N1")
	s.ErrorIs(err, store.ErrConflict)
	_, err = s.reserve("D2", "N2")
	s.NoError(err)
}

func (s *StoreSuite) TestCompleteReleasesDevice() {
	_, err := s.st.SetRegistrationMode(s.ctx, "D1", true, s.now)
	s.Require().NoError(err)
	p, err := s.reserve("D1", "N1")
	s.Require().NoError(err)

	card, err := s.st.CompleteEnrollment(s.ctx, p.ID, "tmpl", s.now.Add(time.Second))
	s.Require().NoError(err)
	s.Equal(p.FingerprintID, card.FingerprintID)
	s.Equal(types.HolderStaff, card.HolderType)
	s.NotEmpty(card.BiometricID)

	d, err := s.st.GetDevice(s.ctx, "D1")
	s.Require().NoError(err)
	s.False(d.RegistrationMode)

	_, err = s.st.CompleteEnrollment(s.ctx, p.ID, "tmpl", s.now)
	s.ErrorIs(err, store.ErrNotFound, "a resolved row cannot be resolved again")
	s.ErrorIs(s.st.FailPending(s.ctx, p.ID, types.FailureTimeout, s.now), store.ErrNotFound)

	rows, err := s.st.ListPending(s.ctx, store.PendingFilter{Status: types.PendingStatusCompleted})
	s.Require().NoError(err)
	s.Len(rows, 1)
}

func (s *StoreSuite) TestCompleteRejectsMissingOrganization() {
	_, err := s.st.SetRegistrationMode(s.ctx, "D1", true, s.now)
	s.Require().NoError(err)
	p, err := s.reserve("D1", "N1")
	s.Require().NoError(err)
	s.Require().NoError(s.st.DeleteOrganization(s.ctx, "org-1"))

	_, err = s.st.CompleteEnrollment(s.ctx, p.ID, "tmpl", s.now)
	s.ErrorIs(err, store.ErrConflict)
	_, err = s.st.GetCard(s.ctx, "N1")
	s.ErrorIs(err, store.ErrNotFound)

	rows, err := s.st.ListPending(s.ctx, store.PendingFilter{Status: types.PendingStatusPending})
	s.Require().NoError(err)
	s.Len(rows, 1, "row stays pending for the caller to fail")
}

func (s *StoreSuite) TestAccessLogsNewestFirst() {
	for i := range 4 {
		_, err := s.st.AppendAccessLog(s.ctx, types.AccessLog{DeviceID: "D1", CardID: "C1", Timestamp: s.now.Add(time.Duration(i) * time.Second), Method: types.MethodCard})
		s.Require().NoError(err)
	}
	logs, err := s.st.ListAccessLogs(s.ctx, store.AccessLogFilter{Limit: 2})
	s.Require().NoError(err)
	s.Require().Len(logs, 2)
	s.Equal(int64(4), logs[0].ID)
	s.Equal(int64(3), logs[1].ID)
}

func (s *StoreSuite) TestDeviceFilters() {
	off := false
	d, err := s.st.GetDevice(s.ctx, "D2")
	s.Require().NoError(err)
	d.Active = false
	s.Require().NoError(s.st.UpdateDevice(s.ctx, d))

	got, err := s.st.ListDevices(s.ctx, store.DeviceFilter{Active: &off})
	s.Require().NoError(err)
	s.Require().Len(got, 1)
	s.Equal("D2", got[0].DeviceID)

	got, err = s.st.ListDevices(s.ctx, store.DeviceFilter{Location: "lobby"})
	s.Require().NoError(err)
	s.Len(got, 1)
}
