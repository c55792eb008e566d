package services

import (
	"context"
	"strings"
	"testing"
	"time"

	"finance-tracker/internal/models"
	"finance-tracker/internal/repositories"
	"finance-tracker/internal/repositories/repository_mocks"

	"github.com/brianvoe/gofakeit/v7"
	"github.com/golang/mock/gomock"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/suite"
)

type TransactionSeederSuite struct {
	suite.Suite
	ctrl            *gomock.Controller
	ctx             context.Context
	accountRepo     *repository_mocks.MockAccountRepositoryInterface
	transactionRepo *repository_mocks.MockTransactionRepositoryInterface
	seeder          *transactionSeeder
	userID          uuid.UUID
	accountID       uuid.UUID
}

func (s *TransactionSeederSuite) SetupTest() {
	s.ctrl = gomock.NewController(s.T())
	s.ctx = context.Background()
	s.accountRepo = repository_mocks.NewMockAccountRepositoryInterface(s.ctrl)
	s.transactionRepo = repository_mocks.NewMockTransactionRepositoryInterface(s.ctrl)

	auditLogger, _ := newTestAuditLogger(s.ctrl)
	s.seeder = newTransactionSeeder(s.accountRepo, s.transactionRepo, auditLogger, discardLogger(), gofakeit.New(42))

	s.userID = uuid.New()
	s.accountID = uuid.New()
}

func (s *TransactionSeederSuite) TearDownTest() {
	s.ctrl.Finish()
}

func TestTransactionSeederSuite(t *testing.T) {
	suite.Run(t, new(TransactionSeederSuite))
}

func (s *TransactionSeederSuite) TestGenerateTransactions_Shape() {
	end := time.Date(2024, time.April, 30, 9, 0, 0, 0, time.UTC)
	ranges := map[string]models.CategoryRange{}
	for _, c := range append(models.IncomeCategories(), models.ExpenseCategories()...) {
		ranges[c.Name] = c
	}

	transactions := s.seeder.GenerateTransactions(s.userID, s.accountID, end, 30)

	s.GreaterOrEqual(len(transactions), 31)
	s.LessOrEqual(len(transactions), 93)

	perDay := map[string]int{}
	for _, tx := range transactions {
		perDay[tx.Date.Format("2006-01-02")]++

		s.Equal(s.userID, tx.UserID)
		s.Equal(s.accountID, tx.AccountID)
		s.Equal(models.TransactionStatusCompleted, tx.Status)
		s.False(tx.IsRecurring)
		s.False(tx.Date.After(end))
		s.False(tx.Date.Before(end.AddDate(0, 0, -30)))

		category, ok := ranges[tx.Category]
		s.Require().True(ok, tx.Category)
		s.True(tx.Amount.GreaterThanOrEqual(decimal.NewFromFloat(category.Min)), tx.Amount.String())
		s.True(tx.Amount.LessThanOrEqual(decimal.NewFromFloat(category.Max)), tx.Amount.String())
		s.True(tx.Amount.Equal(tx.Amount.Round(2)))

		if tx.Type == models.TransactionTypeIncome {
			s.True(strings.HasPrefix(tx.Description, "Received "))
		} else {
			s.Equal(models.TransactionTypeExpense, tx.Type)
			s.True(strings.HasPrefix(tx.Description, "Paid for "))
		}
		s.NoError(tx.Validate())
	}

	s.Len(perDay, 31)
	for day, count := range perDay {
		s.True(count >= 1 && count <= 3, day)
	}
}

func (s *TransactionSeederSuite) TestSeedTransactions_ReplacesHistory() {
	s.accountRepo.EXPECT().GetByIDForUser(gomock.Any(), s.accountID, s.userID).Return(&models.Account{ID: s.accountID}, nil)
	s.transactionRepo.EXPECT().ReplaceAllWithBalance(gomock.Any(), s.accountID, gomock.Any()).DoAndReturn(
		func(_ context.Context, _ uuid.UUID, transactions []models.Transaction) (decimal.Decimal, error) {
			net := decimal.Zero
			for _, tx := range transactions {
				net = net.Add(tx.SignedAmount())
			}
			return net, nil
		})

	result, err := s.seeder.SeedTransactions(s.ctx, s.userID, s.accountID, 0)

	s.Require().NoError(err)
	s.GreaterOrEqual(result.Created, DefaultSeedDays+1)
}

func (s *TransactionSeederSuite) TestSeedTransactions_ForeignAccount() {
	s.accountRepo.EXPECT().GetByIDForUser(gomock.Any(), s.accountID, s.userID).Return(nil, repositories.ErrAccountNotFound)

	_, err := s.seeder.SeedTransactions(s.ctx, s.userID, s.accountID, 30)
	s.ErrorIs(err, ErrAccountNotFound)
}
