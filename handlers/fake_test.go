package handlers

import (
	"context"
	"time"

	"github.com/Dosada05/run-contest/contest"
	"github.com/Dosada05/run-contest/models"
	"github.com/Dosada05/run-contest/repositories"
	"github.com/shopspring/decimal"
)

// ------------------------
// Fake Contest Service
// ------------------------

type FakeContestService struct {
	trace []string

	DeployFunc          func(ctx context.Context, caller models.Address, params models.ContestParams) (*models.ContestView, error)
	DeployPresetFunc    func(ctx context.Context, caller models.Address, preset int) (*models.ContestView, error)
	GetFunc             func(ctx context.Context, address models.Address) (*models.ContestView, error)
	ListFunc            func(ctx context.Context, filter repositories.ListContestsFilter) ([]models.Contest, error)
	ListRegsFunc        func(ctx context.Context, account models.Address) ([]models.Registration, error)
	SetDescriptionFunc  func(ctx context.Context, caller, address models.Address, text string) (*models.Contest, error)
	RegisterRunnerFunc  func(ctx context.Context, caller, address models.Address, runner models.RunnerID) (*models.Registration, error)
	CancelFunc          func(ctx context.Context, caller, address models.Address) (*models.Contest, error)
	StartFunc           func(ctx context.Context, caller, address models.Address) (*models.Contest, error)
	WithdrawFunc        func(ctx context.Context, caller, address models.Address) (*contest.Payout, error)
	EndFunc             func(ctx context.Context, caller, address models.Address, first, second, third models.RunnerID) (*models.Contest, error)
	CollectWinningsFunc func(ctx context.Context, caller, address models.Address, runner models.RunnerID) (*contest.Payout, error)
	ProcessRefundFunc   func(ctx context.Context, caller, address models.Address, runner models.RunnerID) (*contest.Payout, error)
}

func (f *FakeContestService) record(step string) { f.trace = append(f.trace, step) }

func (f *FakeContestService) Trace() []string { return f.trace }

func (f *FakeContestService) Deploy(ctx context.Context, caller models.Address, params models.ContestParams) (*models.ContestView, error) {
	f.record("Deploy")
	if f.DeployFunc != nil {
		return f.DeployFunc(ctx, caller, params)
	}
	return &models.ContestView{Contest: &models.Contest{}}, nil
}

func (f *FakeContestService) DeployPreset(ctx context.Context, caller models.Address, preset int) (*models.ContestView, error) {
	f.record("DeployPreset")
	if f.DeployPresetFunc != nil {
		return f.DeployPresetFunc(ctx, caller, preset)
	}
	return &models.ContestView{Contest: &models.Contest{}}, nil
}

func (f *FakeContestService) Presets() []models.ContestParams {
	f.record("Presets")
	return []models.ContestParams{}
}

func (f *FakeContestService) Get(ctx context.Context, address models.Address) (*models.ContestView, error) {
	f.record("Get")
	if f.GetFunc != nil {
		return f.GetFunc(ctx, address)
	}
	return &models.ContestView{Contest: &models.Contest{Address: address}}, nil
}

func (f *FakeContestService) List(ctx context.Context, filter repositories.ListContestsFilter) ([]models.Contest, error) {
	f.record("List")
	if f.ListFunc != nil {
		return f.ListFunc(ctx, filter)
	}
	return []models.Contest{}, nil
}

func (f *FakeContestService) ListRegistrations(ctx context.Context, account models.Address) ([]models.Registration, error) {
	f.record("ListRegistrations")
	if f.ListRegsFunc != nil {
		return f.ListRegsFunc(ctx, account)
	}
	return []models.Registration{}, nil
}

func (f *FakeContestService) SetDescription(ctx context.Context, caller, address models.Address, text string) (*models.Contest, error) {
	f.record("SetDescription")
	if f.SetDescriptionFunc != nil {
		return f.SetDescriptionFunc(ctx, caller, address, text)
	}
	return &models.Contest{}, nil
}

func (f *FakeContestService) RegisterRunner(ctx context.Context, caller, address models.Address, runner models.RunnerID) (*models.Registration, error) {
	f.record("RegisterRunner")
	if f.RegisterRunnerFunc != nil {
		return f.RegisterRunnerFunc(ctx, caller, address, runner)
	}
	return &models.Registration{}, nil
}

func (f *FakeContestService) Cancel(ctx context.Context, caller, address models.Address) (*models.Contest, error) {
	f.record("Cancel")
	if f.CancelFunc != nil {
		return f.CancelFunc(ctx, caller, address)
	}
	return &models.Contest{}, nil
}

func (f *FakeContestService) Start(ctx context.Context, caller, address models.Address) (*models.Contest, error) {
	f.record("Start")
	if f.StartFunc != nil {
		return f.StartFunc(ctx, caller, address)
	}
	return &models.Contest{}, nil
}

func (f *FakeContestService) Withdraw(ctx context.Context, caller, address models.Address) (*contest.Payout, error) {
	f.record("Withdraw")
	if f.WithdrawFunc != nil {
		return f.WithdrawFunc(ctx, caller, address)
	}
	return &contest.Payout{}, nil
}

func (f *FakeContestService) End(ctx context.Context, caller, address models.Address, first, second, third models.RunnerID) (*models.Contest, error) {
	f.record("End")
	if f.EndFunc != nil {
		return f.EndFunc(ctx, caller, address, first, second, third)
	}
	return &models.Contest{}, nil
}

func (f *FakeContestService) CollectWinnings(ctx context.Context, caller, address models.Address, runner models.RunnerID) (*contest.Payout, error) {
	f.record("CollectWinnings")
	if f.CollectWinningsFunc != nil {
		return f.CollectWinningsFunc(ctx, caller, address, runner)
	}
	return &contest.Payout{}, nil
}

func (f *FakeContestService) ProcessRefund(ctx context.Context, caller, address models.Address, runner models.RunnerID) (*contest.Payout, error) {
	f.record("ProcessRefund")
	if f.ProcessRefundFunc != nil {
		return f.ProcessRefundFunc(ctx, caller, address, runner)
	}
	return &contest.Payout{}, nil
}

func (f *FakeContestService) NotifyResultsDue(context.Context) (int, error) {
	f.record("NotifyResultsDue")
	return 0, nil
}

// ------------------------
// Fake Registry Service
// ------------------------

type FakeRegistryService struct {
	DeployFunc         func(ctx context.Context, caller models.Address) (*models.RegistryView, error)
	CurrentFunc        func(ctx context.Context) (*models.RegistryView, error)
	AddContestFunc     func(ctx context.Context, caller, registry, handle models.Address) (*models.RegistryView, error)
	CurrentContestFunc func(ctx context.Context, registry models.Address) (models.Address, error)
}

func (f *FakeRegistryService) Deploy(ctx context.Context, caller models.Address) (*models.RegistryView, error) {
	if f.DeployFunc != nil {
		return f.DeployFunc(ctx, caller)
	}
	return &models.RegistryView{Owner: caller}, nil
}

func (f *FakeRegistryService) Current(ctx context.Context) (*models.RegistryView, error) {
	if f.CurrentFunc != nil {
		return f.CurrentFunc(ctx)
	}
	return &models.RegistryView{}, nil
}

func (f *FakeRegistryService) Get(_ context.Context, address models.Address) (*models.RegistryView, error) {
	return &models.RegistryView{Address: address}, nil
}

func (f *FakeRegistryService) AddContest(ctx context.Context, caller, registry, handle models.Address) (*models.RegistryView, error) {
	if f.AddContestFunc != nil {
		return f.AddContestFunc(ctx, caller, registry, handle)
	}
	return &models.RegistryView{Address: registry}, nil
}

func (f *FakeRegistryService) NumContests(context.Context, models.Address) (int, error) {
	return 0, nil
}

func (f *FakeRegistryService) CurrentContest(ctx context.Context, registry models.Address) (models.Address, error) {
	if f.CurrentContestFunc != nil {
		return f.CurrentContestFunc(ctx, registry)
	}
	return "", nil
}

func (f *FakeRegistryService) ListContests(context.Context, models.Address) ([]models.Address, error) {
	return []models.Address{}, nil
}

func (f *FakeRegistryService) Deployments(context.Context) ([]models.Deployment, error) {
	return []models.Deployment{}, nil
}

// ------------------------
// Fake Ledger Service
// ------------------------

type FakeLedgerService struct {
	ApproveFunc   func(ctx context.Context, caller, asset, spender models.Address, amount decimal.Decimal) (*models.Allowance, error)
	BalanceOfFunc func(ctx context.Context, asset, account models.Address) (decimal.Decimal, error)
}

func (f *FakeLedgerService) Approve(ctx context.Context, caller, asset, spender models.Address, amount decimal.Decimal) (*models.Allowance, error) {
	if f.ApproveFunc != nil {
		return f.ApproveFunc(ctx, caller, asset, spender, amount)
	}
	return &models.Allowance{Asset: asset, Owner: caller, Spender: spender, Amount: amount}, nil
}

func (f *FakeLedgerService) Mint(context.Context, models.Address, models.Address, decimal.Decimal) (decimal.Decimal, error) {
	return decimal.Zero, nil
}

func (f *FakeLedgerService) BalanceOf(ctx context.Context, asset, account models.Address) (decimal.Decimal, error) {
	if f.BalanceOfFunc != nil {
		return f.BalanceOfFunc(ctx, asset, account)
	}
	return decimal.Zero, nil
}

func (f *FakeLedgerService) Allowance(_ context.Context, asset, owner, spender models.Address) (*models.Allowance, error) {
	return &models.Allowance{Asset: asset, Owner: owner, Spender: spender}, nil
}

func (f *FakeLedgerService) ListTransfers(context.Context, models.Address, models.Address, int) ([]models.Transfer, error) {
	return []models.Transfer{}, nil
}

// ------------------------
// Fake Auth Service
// ------------------------

type FakeAuthService struct {
	CreateAccountFunc func(ctx context.Context, address models.Address) (*models.Account, string, error)
	IssueTokenFunc    func(ctx context.Context, address models.Address, apiKey string) (string, time.Time, error)
}

func (f *FakeAuthService) CreateAccount(ctx context.Context, address models.Address) (*models.Account, string, error) {
	if f.CreateAccountFunc != nil {
		return f.CreateAccountFunc(ctx, address)
	}
	return &models.Account{Address: address}, "key", nil
}

func (f *FakeAuthService) RotateKey(context.Context, models.Address) (string, error) {
	return "key", nil
}

func (f *FakeAuthService) IssueToken(ctx context.Context, address models.Address, apiKey string) (string, time.Time, error) {
	if f.IssueTokenFunc != nil {
		return f.IssueTokenFunc(ctx, address, apiKey)
	}
	return "token", time.Time{}, nil
}

func (f *FakeAuthService) ParseToken(string) (models.Address, error) {
	return "", nil
}
