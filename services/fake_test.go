package services

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/Dosada05/run-contest/contest"
	"github.com/Dosada05/run-contest/ledger"
	"github.com/Dosada05/run-contest/models"
	"github.com/Dosada05/run-contest/repositories"
	"github.com/shopspring/decimal"
)

// ------------------------
// Fake Transactor
// ------------------------

// fakeTx runs fn directly. Rollback is emulated by restoring the store
// snapshot taken before fn ran.
type fakeTx struct {
	store *fakeStore
	calls int
}

func (f *fakeTx) WithinTx(_ context.Context, fn func(tx repositories.SQLExecutor) error) error {
	f.calls++
	snap := f.store.snapshot()
	if err := fn(nil); err != nil {
		f.store.restore(snap)
		return err
	}
	return nil
}

// ------------------------
// Fake Store
// ------------------------

type fakeStore struct {
	mu          sync.Mutex
	contests    map[models.Address]models.Contest
	regs        map[models.Address][]models.Registration
	registries  map[models.Address]models.Registry
	deployments []models.Deployment
	accounts    map[models.Address]models.Account
	assets      map[models.Address]*ledger.Memory

	trace []string
}

type storeSnapshot struct {
	contests    map[models.Address]models.Contest
	regs        map[models.Address][]models.Registration
	registries  map[models.Address]models.Registry
	deployments []models.Deployment
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		contests:   make(map[models.Address]models.Contest),
		regs:       make(map[models.Address][]models.Registration),
		registries: make(map[models.Address]models.Registry),
		accounts:   make(map[models.Address]models.Account),
		assets:     make(map[models.Address]*ledger.Memory),
	}
}

func (s *fakeStore) record(step string) {
	s.trace = append(s.trace, step)
}

func (s *fakeStore) snapshot() storeSnapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	snap := storeSnapshot{
		contests:    make(map[models.Address]models.Contest, len(s.contests)),
		regs:        make(map[models.Address][]models.Registration, len(s.regs)),
		registries:  make(map[models.Address]models.Registry, len(s.registries)),
		deployments: append([]models.Deployment(nil), s.deployments...),
	}
	for k, v := range s.contests {
		snap.contests[k] = v
	}
	for k, v := range s.regs {
		snap.regs[k] = append([]models.Registration(nil), v...)
	}
	for k, v := range s.registries {
		v.Contests = append([]models.Address(nil), v.Contests...)
		snap.registries[k] = v
	}
	return snap
}

func (s *fakeStore) restore(snap storeSnapshot) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.contests = snap.contests
	s.regs = snap.regs
	s.registries = snap.registries
	s.deployments = snap.deployments
}

func (s *fakeStore) asset(address models.Address) *ledger.Memory {
	s.mu.Lock()
	defer s.mu.Unlock()
	m, ok := s.assets[address]
	if !ok {
		m = ledger.NewMemory()
		s.assets[address] = m
	}
	return m
}

func (s *fakeStore) repositories() Repositories {
	return Repositories{
		Contests:      fakeContests{s},
		Registrations: fakeRegistrations{s},
		Registries:    fakeRegistries{s},
		Deployments:   fakeDeployments{s},
		Ledger:        fakeLedger{s},
		Accounts:      fakeAccounts{s},
	}
}

// --- ContestRepository ---

type fakeContests struct{ s *fakeStore }

func (f fakeContests) Create(_ context.Context, _ repositories.SQLExecutor, c *models.Contest) error {
	f.s.mu.Lock()
	defer f.s.mu.Unlock()
	f.s.record("Contests.Create")
	if _, ok := f.s.contests[c.Address]; ok {
		return repositories.ErrContestAddressConflict
	}
	f.s.contests[c.Address] = *c
	return nil
}

func (f fakeContests) GetByAddress(_ context.Context, _ repositories.SQLExecutor, address models.Address) (*models.Contest, error) {
	f.s.mu.Lock()
	defer f.s.mu.Unlock()
	c, ok := f.s.contests[address]
	if !ok {
		return nil, repositories.ErrContestNotFound
	}
	return &c, nil
}

func (f fakeContests) GetForUpdate(ctx context.Context, tx repositories.SQLExecutor, address models.Address) (*models.Contest, error) {
	f.s.record("Contests.GetForUpdate")
	return f.GetByAddress(ctx, tx, address)
}

func (f fakeContests) List(_ context.Context, filter repositories.ListContestsFilter) ([]models.Contest, error) {
	f.s.mu.Lock()
	defer f.s.mu.Unlock()
	out := make([]models.Contest, 0)
	for _, c := range f.s.contests {
		if filter.Owner != nil && c.Owner != *filter.Owner {
			continue
		}
		if filter.Status != nil && c.Status() != *filter.Status {
			continue
		}
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Address < out[j].Address })
	return out, nil
}

func (f fakeContests) UpdateState(_ context.Context, _ repositories.SQLExecutor, c *models.Contest) error {
	f.s.mu.Lock()
	defer f.s.mu.Unlock()
	f.s.record("Contests.UpdateState")
	if _, ok := f.s.contests[c.Address]; !ok {
		return repositories.ErrContestNotFound
	}
	f.s.contests[c.Address] = *c
	return nil
}

func (f fakeContests) ListResultsDue(_ context.Context, _ repositories.SQLExecutor, now time.Time) ([]models.Contest, error) {
	f.s.mu.Lock()
	defer f.s.mu.Unlock()
	var out []models.Contest
	for _, c := range f.s.contests {
		if c.Started && !c.Ended && !c.ResultsDueNotified && c.EndTimestamp != nil && !c.EndTimestamp.After(now) {
			out = append(out, c)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Address < out[j].Address })
	return out, nil
}

func (f fakeContests) MarkResultsDueNotified(_ context.Context, _ repositories.SQLExecutor, address models.Address) error {
	f.s.mu.Lock()
	defer f.s.mu.Unlock()
	c, ok := f.s.contests[address]
	if !ok || c.ResultsDueNotified {
		return repositories.ErrContestNotFound
	}
	c.ResultsDueNotified = true
	f.s.contests[address] = c
	return nil
}

func (f fakeContests) UpdateArchiveKey(_ context.Context, address models.Address, key *string) error {
	f.s.mu.Lock()
	defer f.s.mu.Unlock()
	c, ok := f.s.contests[address]
	if !ok {
		return repositories.ErrContestNotFound
	}
	c.ArchiveKey = key
	f.s.contests[address] = c
	return nil
}

// --- RegistrationRepository ---

type fakeRegistrations struct{ s *fakeStore }

func (f fakeRegistrations) ListByContest(_ context.Context, _ repositories.SQLExecutor, contest models.Address) ([]models.Registration, error) {
	f.s.mu.Lock()
	defer f.s.mu.Unlock()
	return append([]models.Registration{}, f.s.regs[contest]...), nil
}

func (f fakeRegistrations) ListByAccount(_ context.Context, account models.Address) ([]models.Registration, error) {
	f.s.mu.Lock()
	defer f.s.mu.Unlock()
	out := make([]models.Registration, 0)
	for _, regs := range f.s.regs {
		for _, r := range regs {
			if r.Account == account {
				out = append(out, r)
			}
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].RegisteredAt.Equal(out[j].RegisteredAt) {
			return out[i].RegisteredAt.After(out[j].RegisteredAt)
		}
		if out[i].Contest != out[j].Contest {
			return out[i].Contest < out[j].Contest
		}
		return out[i].RunnerID > out[j].RunnerID
	})
	return out, nil
}

func (f fakeRegistrations) Save(_ context.Context, _ repositories.SQLExecutor, reg *models.Registration) error {
	f.s.mu.Lock()
	defer f.s.mu.Unlock()
	f.s.record("Registrations.Save")
	regs := f.s.regs[reg.Contest]
	for i := range regs {
		if regs[i].RunnerID == reg.RunnerID {
			if regs[i].Account != reg.Account {
				return repositories.ErrRegistrationConflict
			}
			regs[i].Collected = reg.Collected
			regs[i].Refunded = reg.Refunded
			return nil
		}
	}
	f.s.regs[reg.Contest] = append(regs, *reg)
	return nil
}

// --- RegistryRepository ---

type fakeRegistries struct{ s *fakeStore }

func (f fakeRegistries) Create(_ context.Context, _ repositories.SQLExecutor, reg *models.Registry) error {
	f.s.mu.Lock()
	defer f.s.mu.Unlock()
	if _, ok := f.s.registries[reg.Address]; ok {
		return repositories.ErrRegistryAddressConflict
	}
	f.s.registries[reg.Address] = *reg
	return nil
}

func (f fakeRegistries) GetByAddress(_ context.Context, _ repositories.SQLExecutor, address models.Address) (*models.Registry, error) {
	f.s.mu.Lock()
	defer f.s.mu.Unlock()
	reg, ok := f.s.registries[address]
	if !ok {
		return nil, repositories.ErrRegistryNotFound
	}
	reg.Contests = append([]models.Address{}, reg.Contests...)
	return &reg, nil
}

func (f fakeRegistries) GetForUpdate(ctx context.Context, tx repositories.SQLExecutor, address models.Address) (*models.Registry, error) {
	return f.GetByAddress(ctx, tx, address)
}

func (f fakeRegistries) AppendContest(_ context.Context, _ repositories.SQLExecutor, registry models.Address, position int, contest models.Address) error {
	f.s.mu.Lock()
	defer f.s.mu.Unlock()
	reg, ok := f.s.registries[registry]
	if !ok {
		return repositories.ErrRegistryNotFound
	}
	if _, ok := f.s.contests[contest]; !ok {
		return repositories.ErrRegistryContestInvalid
	}
	for _, c := range reg.Contests {
		if c == contest {
			return repositories.ErrRegistryContestConflict
		}
	}
	if position != len(reg.Contests) {
		return repositories.ErrRegistryContestConflict
	}
	reg.Contests = append(append([]models.Address{}, reg.Contests...), contest)
	f.s.registries[registry] = reg
	return nil
}

// --- DeploymentRepository ---

type fakeDeployments struct{ s *fakeStore }

func (f fakeDeployments) Record(_ context.Context, _ repositories.SQLExecutor, d *models.Deployment) error {
	f.s.mu.Lock()
	defer f.s.mu.Unlock()
	for _, existing := range f.s.deployments {
		if existing.Network == d.Network && existing.Kind == d.Kind && existing.Index == d.Index {
			return repositories.ErrDeploymentConflict
		}
	}
	f.s.deployments = append(f.s.deployments, *d)
	return nil
}

func (f fakeDeployments) Get(_ context.Context, network string, kind models.DeploymentKind, idx int) (*models.Deployment, error) {
	f.s.mu.Lock()
	defer f.s.mu.Unlock()
	for _, d := range f.s.deployments {
		if d.Network == network && d.Kind == kind && d.Index == idx {
			return &d, nil
		}
	}
	return nil, repositories.ErrDeploymentNotFound
}

func (f fakeDeployments) List(_ context.Context, network string) ([]models.Deployment, error) {
	f.s.mu.Lock()
	defer f.s.mu.Unlock()
	out := make([]models.Deployment, 0)
	for _, d := range f.s.deployments {
		if d.Network == network {
			out = append(out, d)
		}
	}
	return out, nil
}

// --- LedgerRepository ---

type fakeLedger struct{ s *fakeStore }

func (f fakeLedger) Asset(_ repositories.SQLExecutor, asset models.Address) contest.Asset {
	return f.s.asset(asset)
}

func (f fakeLedger) Mint(_ context.Context, _ repositories.SQLExecutor, asset, account models.Address, amount decimal.Decimal) error {
	return f.s.asset(asset).Mint(account, amount)
}

func (f fakeLedger) Approve(_ context.Context, _ repositories.SQLExecutor, asset, owner, spender models.Address, amount decimal.Decimal) error {
	return f.s.asset(asset).Approve(owner, spender, amount)
}

func (f fakeLedger) BalanceOf(_ context.Context, _ repositories.SQLExecutor, asset, account models.Address) (decimal.Decimal, error) {
	return f.s.asset(asset).BalanceOf(account), nil
}

func (f fakeLedger) Allowance(_ context.Context, _ repositories.SQLExecutor, asset, owner, spender models.Address) (decimal.Decimal, error) {
	return f.s.asset(asset).Allowance(owner, spender), nil
}

func (f fakeLedger) ListTransfers(_ context.Context, asset, account models.Address, limit int) ([]models.Transfer, error) {
	all := f.s.asset(asset).Transfers()
	out := make([]models.Transfer, 0, len(all))
	for i := len(all) - 1; i >= 0; i-- {
		t := all[i]
		if account != "" && t.From != account && t.To != account {
			continue
		}
		t.Asset = asset
		out = append(out, t)
		if limit > 0 && len(out) == limit {
			break
		}
	}
	return out, nil
}

// --- AccountRepository ---

type fakeAccounts struct{ s *fakeStore }

func (f fakeAccounts) Create(_ context.Context, account *models.Account) error {
	f.s.mu.Lock()
	defer f.s.mu.Unlock()
	if _, ok := f.s.accounts[account.Address]; ok {
		return repositories.ErrAccountConflict
	}
	account.CreatedAt = time.Now()
	f.s.accounts[account.Address] = *account
	return nil
}

func (f fakeAccounts) GetByAddress(_ context.Context, address models.Address) (*models.Account, error) {
	f.s.mu.Lock()
	defer f.s.mu.Unlock()
	a, ok := f.s.accounts[address]
	if !ok {
		return nil, repositories.ErrAccountNotFound
	}
	return &a, nil
}

func (f fakeAccounts) UpdateKeyHash(_ context.Context, address models.Address, keyHash string) error {
	f.s.mu.Lock()
	defer f.s.mu.Unlock()
	a, ok := f.s.accounts[address]
	if !ok {
		return repositories.ErrAccountNotFound
	}
	a.KeyHash = keyHash
	f.s.accounts[address] = a
	return nil
}

// ------------------------
// Fake Publisher and Archiver
// ------------------------

type fakePublisher struct {
	mu     sync.Mutex
	events []models.ContestEvent
}

func (p *fakePublisher) Publish(ev models.ContestEvent) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, ev)
}

func (p *fakePublisher) Types() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]string, len(p.events))
	for i, ev := range p.events {
		out[i] = ev.Type
	}
	return out
}

type fakeArchiver struct {
	archived []*models.ContestView
	err      error
}

func (a *fakeArchiver) Archive(_ context.Context, view *models.ContestView) error {
	if a.err != nil {
		return a.err
	}
	a.archived = append(a.archived, view)
	return nil
}

func (a *fakeArchiver) PublicURL(key string) string {
	return "https://archive.test/" + key
}
