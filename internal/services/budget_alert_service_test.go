package services

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"finance-tracker/internal/config"
	"finance-tracker/internal/models"
	"finance-tracker/internal/repositories/repository_mocks"

	"github.com/brianvoe/gofakeit/v6"
	"github.com/golang/mock/gomock"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/suite"
)

type BudgetAlertServiceSuite struct {
	suite.Suite
	ctrl            *gomock.Controller
	ctx             context.Context
	budgetRepo      *repository_mocks.MockBudgetRepositoryInterface
	transactionRepo *repository_mocks.MockTransactionRepositoryInterface
	email           *recordingEmailSender
	service         *budgetAlertService
	now             time.Time
}

func (s *BudgetAlertServiceSuite) SetupTest() {
	s.ctrl = gomock.NewController(s.T())
	s.ctx = context.Background()
	s.budgetRepo = repository_mocks.NewMockBudgetRepositoryInterface(s.ctrl)
	s.transactionRepo = repository_mocks.NewMockTransactionRepositoryInterface(s.ctrl)
	s.email = &recordingEmailSender{}

	cfg := &config.Config{
		Scheduler: config.SchedulerConfig{Timezone: "UTC", BudgetCheckLimit: 2},
		Budget:    config.BudgetConfig{AlertThreshold: 80},
		Email:     config.EmailConfig{AppURL: "http://localhost:3000"},
	}

	auditLogger, _ := newTestAuditLogger(s.ctrl)
	s.service = NewBudgetAlertService(
		s.budgetRepo,
		s.transactionRepo,
		s.email,
		auditLogger,
		newTestMetrics(),
		cfg,
		discardLogger(),
	).(*budgetAlertService)

	s.now = time.Date(2024, time.June, 20, 0, 0, 0, 0, time.UTC)
}

func (s *BudgetAlertServiceSuite) TearDownTest() {
	s.ctrl.Finish()
}

func TestBudgetAlertServiceSuite(t *testing.T) {
	suite.Run(t, new(BudgetAlertServiceSuite))
}

func (s *BudgetAlertServiceSuite) budget(lastAlertSent *time.Time) models.BudgetWithAccount {
	return models.BudgetWithAccount{
		BudgetID:      uuid.New(),
		UserID:        uuid.New(),
		Amount:        decimal.NewFromInt(1000),
		LastAlertSent: lastAlertSent,
		UserEmail:     gofakeit.Email(),
		UserName:      gofakeit.Name(),
		AccountID:     uuid.New(),
		AccountName:   "Everyday",
		AccountType:   models.AccountTypeCurrent,
	}
}

func (s *BudgetAlertServiceSuite) TestCheckBudget_SendsAlertAboveThreshold() {
	budget := s.budget(nil)

	s.transactionRepo.EXPECT().SumExpenses(gomock.Any(), budget.AccountID,
		time.Date(2024, time.June, 1, 0, 0, 0, 0, time.UTC),
		time.Date(2024, time.July, 1, 0, 0, 0, 0, time.UTC),
	).Return(decimal.NewFromInt(850), nil)
	s.budgetRepo.EXPECT().MarkAlertSent(gomock.Any(), budget.BudgetID, s.now).Return(nil)

	sent, err := s.service.CheckBudget(s.ctx, budget, s.now)

	s.Require().NoError(err)
	s.True(sent)
	s.Require().Equal(1, s.email.count())
	s.Equal(budget.UserEmail, s.email.sent[0].to)
	s.Equal("Budget Alert for Everyday", s.email.sent[0].subject)
	s.Contains(s.email.sent[0].html, "85.0%")
}

func (s *BudgetAlertServiceSuite) TestCheckBudget_BelowThreshold() {
	budget := s.budget(nil)
	s.transactionRepo.EXPECT().SumExpenses(gomock.Any(), budget.AccountID, gomock.Any(), gomock.Any()).Return(decimal.NewFromInt(799), nil)

	sent, err := s.service.CheckBudget(s.ctx, budget, s.now)

	s.Require().NoError(err)
	s.False(sent)
	s.Zero(s.email.count())
}

func (s *BudgetAlertServiceSuite) TestCheckBudget_AlreadyAlertedThisMonth() {
	earlier := s.now.AddDate(0, 0, -10)
	budget := s.budget(&earlier)
	s.transactionRepo.EXPECT().SumExpenses(gomock.Any(), budget.AccountID, gomock.Any(), gomock.Any()).Return(decimal.NewFromInt(950), nil)

	sent, err := s.service.CheckBudget(s.ctx, budget, s.now)

	s.Require().NoError(err)
	s.False(sent)
	s.Zero(s.email.count())
}

func (s *BudgetAlertServiceSuite) TestCheckBudget_AlertedLastMonth() {
	lastMonth := s.now.AddDate(0, -1, 0)
	budget := s.budget(&lastMonth)
	s.transactionRepo.EXPECT().SumExpenses(gomock.Any(), budget.AccountID, gomock.Any(), gomock.Any()).Return(decimal.NewFromInt(800), nil)
	s.budgetRepo.EXPECT().MarkAlertSent(gomock.Any(), budget.BudgetID, s.now).Return(nil)

	sent, err := s.service.CheckBudget(s.ctx, budget, s.now)

	s.Require().NoError(err)
	s.True(sent)
}

func (s *BudgetAlertServiceSuite) TestCheckBudget_EmailFailureLeavesAlertUnmarked() {
	budget := s.budget(nil)
	s.email.err = errors.New("provider unavailable")
	s.transactionRepo.EXPECT().SumExpenses(gomock.Any(), budget.AccountID, gomock.Any(), gomock.Any()).Return(decimal.NewFromInt(900), nil)
	s.budgetRepo.EXPECT().MarkAlertSent(gomock.Any(), gomock.Any(), gomock.Any()).Times(0)

	sent, err := s.service.CheckBudget(s.ctx, budget, s.now)

	s.False(sent)
	s.ErrorIs(err, ErrEmailDelivery)
	s.ErrorIs(err, ErrExternalService)
}

func (s *BudgetAlertServiceSuite) TestCheckAllBudgets_FailureDoesNotStopOthers() {
	failing := s.budget(nil)
	alerting := s.budget(nil)
	quiet := s.budget(nil)

	s.budgetRepo.EXPECT().ListWithDefaultAccount(gomock.Any()).Return([]models.BudgetWithAccount{failing, alerting, quiet}, nil)
	s.transactionRepo.EXPECT().SumExpenses(gomock.Any(), failing.AccountID, gomock.Any(), gomock.Any()).Return(decimal.Zero, errors.New("query timeout"))
	s.transactionRepo.EXPECT().SumExpenses(gomock.Any(), alerting.AccountID, gomock.Any(), gomock.Any()).Return(decimal.NewFromInt(1200), nil)
	s.transactionRepo.EXPECT().SumExpenses(gomock.Any(), quiet.AccountID, gomock.Any(), gomock.Any()).Return(decimal.NewFromInt(10), nil)
	s.budgetRepo.EXPECT().MarkAlertSent(gomock.Any(), alerting.BudgetID, s.now).Return(nil)

	summary, err := s.service.CheckAllBudgets(s.ctx, s.now)

	s.Require().NoError(err)
	s.Equal(3, summary.Checked)
	s.Equal(1, summary.Sent)
	s.Equal(1, summary.Failed)
	s.Equal(1, s.email.count())
}

func (s *BudgetAlertServiceSuite) TestCheckAllBudgets_BoundedConcurrency() {
	budgets := make([]models.BudgetWithAccount, 6)
	for i := range budgets {
		budgets[i] = s.budget(nil)
	}

	var mu sync.Mutex
	inFlight, peak := 0, 0

	s.budgetRepo.EXPECT().ListWithDefaultAccount(gomock.Any()).Return(budgets, nil)
	s.transactionRepo.EXPECT().SumExpenses(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).DoAndReturn(
		func(context.Context, uuid.UUID, time.Time, time.Time) (decimal.Decimal, error) {
			mu.Lock()
			inFlight++
			if inFlight > peak {
				peak = inFlight
			}
			mu.Unlock()

			time.Sleep(20 * time.Millisecond)

			mu.Lock()
			inFlight--
			mu.Unlock()
			return decimal.Zero, nil
		}).Times(len(budgets))

	summary, err := s.service.CheckAllBudgets(s.ctx, s.now)

	s.Require().NoError(err)
	s.Equal(6, summary.Checked)
	s.LessOrEqual(peak, 2)
}

func (s *BudgetAlertServiceSuite) TestCheckAllBudgets_ListError() {
	s.budgetRepo.EXPECT().ListWithDefaultAccount(gomock.Any()).Return(nil, errors.New("connection refused"))

	_, err := s.service.CheckAllBudgets(s.ctx, s.now)
	s.Error(err)
}
