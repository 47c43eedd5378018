package service

import (
	"context"
	"time"

	"github.com/BrandonDHaskell/Janus/server/internal/janus/store"
	"github.com/BrandonDHaskell/Janus/server/internal/janus/types"
)

type analyticsStore interface {
	store.AccessLogStore
	store.CardStore
}

// AnalyticsService aggregates the access-log audit trail. Organization and
// department filters join each log to its card at query time; logs whose
// card no longer exists only count in unfiltered views.
type AnalyticsService struct {
	store analyticsStore
	loc   *time.Location
}

// NewAnalyticsService buckets hours in loc (UTC when nil).
func NewAnalyticsService(st analyticsStore, loc *time.Location) *AnalyticsService {
	if loc == nil {
		loc = time.UTC
	}
	return &AnalyticsService{store: st, loc: loc}
}

func (s *AnalyticsService) AccessStats(ctx context.Context, q types.StatsQuery) (types.AccessStats, error) {
	if q.From != nil && q.To != nil && q.From.After(*q.To) {
		return types.AccessStats{}, invalid("from", "must not be after to")
	}

	logs, err := s.store.ListAccessLogs(ctx, store.AccessLogFilter{From: q.From, To: q.To})
	if err != nil {
		return types.AccessStats{}, err
	}

	if q.Filtered() {
		logs, err = s.filterByCard(ctx, logs, q)
		if err != nil {
			return types.AccessStats{}, err
		}
	}

	return aggregate(logs, s.loc), nil
}

func (s *AnalyticsService) filterByCard(ctx context.Context, logs []types.AccessLog, q types.StatsQuery) ([]types.AccessLog, error) {
	seen := make(map[string]struct{})
	ids := make([]string, 0)
	for _, l := range logs {
		if l.CardID == "" {
			continue
		}
		if _, ok := seen[l.CardID]; !ok {
			seen[l.CardID] = struct{}{}
			ids = append(ids, l.CardID)
		}
	}

	cards, err := s.store.GetCards(ctx, ids)
	if err != nil {
		return nil, err
	}

	out := logs[:0:0]
	for _, l := range logs {
		c, ok := cards[l.CardID]
		if !ok {
			continue
		}
		if q.OrganizationID != "" && c.OrganizationID != q.OrganizationID {
			continue
		}
		if q.DepartmentID != "" && c.DepartmentID != q.DepartmentID {
			continue
		}
		out = append(out, l)
	}
	return out, nil
}

func aggregate(logs []types.AccessLog, loc *time.Location) types.AccessStats {
	var (
		sum    types.AccessSummary
		hourly [24]int
	)
	for _, l := range logs {
		sum.TotalAccess++
		if l.Authorized {
			sum.AuthorizedAccess++
		} else {
			sum.UnauthorizedAccess++
		}
		switch l.Method {
		case types.MethodCard:
			sum.CardOnlyVerifications++
		case types.MethodFingerprint:
			sum.FingerprintVerifications++
		case types.MethodBoth:
			sum.BothVerifications++
		}
		hourly[l.Timestamp.In(loc).Hour()]++
	}
	if sum.TotalAccess > 0 {
		sum.AuthorizedPercentage = 100 * float64(sum.AuthorizedAccess) / float64(sum.TotalAccess)
	}

	buckets := make([]types.HourBucket, 24)
	for h, n := range hourly {
		buckets[h] = types.HourBucket{Hour: h, Count: n}
	}
	return types.AccessStats{Summary: sum, HourlyDistribution: buckets}
}
