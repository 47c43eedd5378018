package service

import (
	"context"
	"errors"
	"log/slog"
	"sort"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/BrandonDHaskell/Janus/server/internal/janus/notify"
	"github.com/BrandonDHaskell/Janus/server/internal/janus/store"
	"github.com/BrandonDHaskell/Janus/server/internal/janus/types"
	"github.com/BrandonDHaskell/Janus/server/internal/metrics"
)

// DefaultCascadeConcurrency bounds parallel deletions inside one step.
const DefaultCascadeConcurrency = 8

type StepFailure struct {
	ID    string `json:"id"`
	Error string `json:"error"`
}

// CascadeStep records one stage of a cascade.
type CascadeStep struct {
	Entity  string        `json:"entity"`
	Deleted []string      `json:"deleted"`
	Failed  []StepFailure `json:"failed,omitempty"`
}

type CascadeReport struct {
	Entity string        `json:"entity"`
	ID     string        `json:"id"`
	Steps  []CascadeStep `json:"steps"`
}

func (r CascadeReport) Complete() bool {
	for _, s := range r.Steps {
		if len(s.Failed) > 0 {
			return false
		}
	}
	return true
}

// IntegrityManager performs ordered cascade deletes across collections that
// have no foreign keys. Dependents are resolved up front; every step runs
// even if an earlier one failed; nothing is rolled back. Access logs are
// never touched.
type IntegrityManager struct {
	registry    store.Registry
	bus         notify.Publisher
	metrics     *metrics.Metrics
	logger      *slog.Logger
	concurrency int
}

func NewIntegrityManager(reg store.Registry, bus notify.Publisher, m *metrics.Metrics, logger *slog.Logger) *IntegrityManager {
	if bus == nil {
		bus = notify.Discard{}
	}
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &IntegrityManager{
		registry:    reg,
		bus:         bus,
		metrics:     m,
		logger:      logger,
		concurrency: DefaultCascadeConcurrency,
	}
}

// DeleteOrganization removes the organization, then its departments, then
// every card under them (or carrying the organization id), then those
// cards' biometric data.
func (m *IntegrityManager) DeleteOrganization(ctx context.Context, id string) (CascadeReport, error) {
	if _, err := m.registry.GetOrganization(ctx, id); err != nil {
		return CascadeReport{}, translate("organization", id, err)
	}

	depts, err := m.registry.ListDepartments(ctx, id)
	if err != nil {
		return CascadeReport{}, err
	}
	deptIDs := make([]string, len(depts))
	for i, d := range depts {
		deptIDs[i] = d.ID
	}

	cardSet := make(map[string]struct{})
	if len(deptIDs) > 0 {
		byDept, err := m.registry.ListCards(ctx, store.CardFilter{DepartmentIDs: deptIDs})
		if err != nil {
			return CascadeReport{}, err
		}
		for _, c := range byDept {
			cardSet[c.CardID] = struct{}{}
		}
	}
	byOrg, err := m.registry.ListCards(ctx, store.CardFilter{OrganizationID: id})
	if err != nil {
		return CascadeReport{}, err
	}
	for _, c := range byOrg {
		cardSet[c.CardID] = struct{}{}
	}
	cardIDs := sortedKeys(cardSet)

	bioIDs, err := m.boundBiometrics(ctx, cardIDs)
	if err != nil {
		return CascadeReport{}, err
	}

	report := CascadeReport{Entity: notify.EntityOrganization, ID: id}
	report.Steps = append(report.Steps,
		m.runStep(ctx, notify.EntityOrganization, []string{id}, m.registry.DeleteOrganization),
		m.runStep(ctx, notify.EntityDepartment, deptIDs, m.registry.DeleteDepartment),
		m.runStep(ctx, notify.EntityCard, cardIDs, m.registry.DeleteCard),
		m.runStep(ctx, notify.EntityBiometric, bioIDs, m.registry.DeleteBiometric),
	)
	return m.finish(report)
}

// DeleteDepartment removes the department, its cards and their biometric
// data. The owning organization is untouched.
func (m *IntegrityManager) DeleteDepartment(ctx context.Context, id string) (CascadeReport, error) {
	if _, err := m.registry.GetDepartment(ctx, id); err != nil {
		return CascadeReport{}, translate("department", id, err)
	}

	cards, err := m.registry.ListCards(ctx, store.CardFilter{DepartmentIDs: []string{id}})
	if err != nil {
		return CascadeReport{}, err
	}
	cardIDs := cardIDsOf(cards)
	bioIDs, err := m.boundBiometrics(ctx, cardIDs)
	if err != nil {
		return CascadeReport{}, err
	}

	report := CascadeReport{Entity: notify.EntityDepartment, ID: id}
	report.Steps = append(report.Steps,
		m.runStep(ctx, notify.EntityDepartment, []string{id}, m.registry.DeleteDepartment),
		m.runStep(ctx, notify.EntityCard, cardIDs, m.registry.DeleteCard),
		m.runStep(ctx, notify.EntityBiometric, bioIDs, m.registry.DeleteBiometric),
	)
	return m.finish(report)
}

// DeleteCard removes the card and then its biometric data if bound.
func (m *IntegrityManager) DeleteCard(ctx context.Context, cardID string) (CascadeReport, error) {
	if _, err := m.registry.GetCard(ctx, cardID); err != nil {
		return CascadeReport{}, translate("card", cardID, err)
	}
	bioIDs, err := m.boundBiometrics(ctx, []string{cardID})
	if err != nil {
		return CascadeReport{}, err
	}

	report := CascadeReport{Entity: notify.EntityCard, ID: cardID}
	report.Steps = append(report.Steps,
		m.runStep(ctx, notify.EntityCard, []string{cardID}, m.registry.DeleteCard),
		m.runStep(ctx, notify.EntityBiometric, bioIDs, m.registry.DeleteBiometric),
	)
	return m.finish(report)
}

// boundBiometrics returns the subset of cardIDs that have a template row.
func (m *IntegrityManager) boundBiometrics(ctx context.Context, cardIDs []string) ([]string, error) {
	var (
		mu  sync.Mutex
		out []string
	)
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(m.concurrency)
	for _, id := range cardIDs {
		g.Go(func() error {
			_, err := m.registry.GetBiometric(gctx, id)
			if errors.Is(err, store.ErrNotFound) {
				return nil
			}
			if err != nil {
				return err
			}
			mu.Lock()
			out = append(out, id)
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	sort.Strings(out)
	return out, nil
}

// runStep deletes ids concurrently. A failure never cancels siblings; an id
// that is already gone counts as deleted.
func (m *IntegrityManager) runStep(ctx context.Context, entity string, ids []string, del func(context.Context, string) error) CascadeStep {
	step := CascadeStep{Entity: entity, Deleted: make([]string, 0, len(ids))}
	var mu sync.Mutex

	var g errgroup.Group
	g.SetLimit(m.concurrency)
	for _, id := range ids {
		g.Go(func() error {
			err := del(ctx, id)
			if errors.Is(err, store.ErrNotFound) {
				err = nil
			}
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				step.Failed = append(step.Failed, StepFailure{ID: id, Error: err.Error()})
				return nil
			}
			step.Deleted = append(step.Deleted, id)
			return nil
		})
	}
	_ = g.Wait()

	sort.Strings(step.Deleted)
	sort.Slice(step.Failed, func(i, j int) bool { return step.Failed[i].ID < step.Failed[j].ID })

	for _, id := range step.Deleted {
		m.bus.Publish(notify.Event{Type: notify.EntityDeleted, Entity: entity, Payload: map[string]string{"id": id}})
	}
	return step
}

func (m *IntegrityManager) finish(r CascadeReport) (CascadeReport, error) {
	complete := r.Complete()
	m.metrics.IncCascade(r.Entity, complete)
	if !complete {
		m.logger.Error("cascade delete incomplete", "entity", r.Entity, "id", r.ID)
		return r, &CascadeIncompleteError{Report: r}
	}
	m.logger.Info("cascade delete complete", "entity", r.Entity, "id", r.ID)
	return r, nil
}

func sortedKeys(set map[string]struct{}) []string {
	out := make([]string, 0, len(set))
	for k := range set {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

func cardIDsOf(cards []types.Card) []string {
	out := make([]string, len(cards))
	for i, c := range cards {
		out[i] = c.CardID
	}
	return out
}
