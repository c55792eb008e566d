package repositories

import (
	"context"
	"testing"
	"time"

	"finance-tracker/internal/database"
	"finance-tracker/internal/models"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/suite"
)

type BudgetRepositorySuite struct {
	suite.Suite
	db       *database.DB
	repo     BudgetRepositoryInterface
	ctx      context.Context
	testUser *models.User
}

func (s *BudgetRepositorySuite) SetupTest() {
	s.db = database.SetupTestDB(s.T())
	s.repo = NewBudgetRepository(s.db.DB)
	s.ctx = context.Background()
	s.testUser = database.CreateTestUser(s.T(), s.db, "test@example.com")
}

func (s *BudgetRepositorySuite) TearDownTest() {
	database.CleanupTestDB(s.T(), s.db)
}

func TestBudgetRepositorySuite(t *testing.T) {
	suite.Run(t, new(BudgetRepositorySuite))
}

func (s *BudgetRepositorySuite) TestUpsert_CreatesThenUpdates() {
	created, err := s.repo.Upsert(s.ctx, s.testUser.ID, decimal.NewFromInt(500))
	s.NoError(err)
	s.True(created.Amount.Equal(decimal.NewFromInt(500)))

	updated, err := s.repo.Upsert(s.ctx, s.testUser.ID, decimal.RequireFromString("750.25"))
	s.NoError(err)
	s.Equal(created.ID, updated.ID)
	s.True(updated.Amount.Equal(decimal.RequireFromString("750.25")))

	var count int64
	s.NoError(s.db.Model(&models.Budget{}).Count(&count).Error)
	s.Equal(int64(1), count)
}

func (s *BudgetRepositorySuite) TestUpsert_InvalidAmount() {
	_, err := s.repo.Upsert(s.ctx, s.testUser.ID, decimal.Zero)
	s.ErrorIs(err, models.ErrInvalidBudgetAmount)
}

func (s *BudgetRepositorySuite) TestGetByUserID_NotFound() {
	_, err := s.repo.GetByUserID(s.ctx, s.testUser.ID)
	s.ErrorIs(err, ErrBudgetNotFound)
}

func (s *BudgetRepositorySuite) TestListWithDefaultAccount() {
	account := database.CreateTestAccount(s.T(), s.db, s.testUser.ID, "1000", true)
	database.CreateTestAccount(s.T(), s.db, s.testUser.ID, "50", false)
	budget, err := s.repo.Upsert(s.ctx, s.testUser.ID, decimal.NewFromInt(400))
	s.Require().NoError(err)

	// A budget whose owner has no default account is not listed.
	orphan := database.CreateTestUser(s.T(), s.db, "orphan@example.com")
	_, err = s.repo.Upsert(s.ctx, orphan.ID, decimal.NewFromInt(100))
	s.Require().NoError(err)

	rows, err := s.repo.ListWithDefaultAccount(s.ctx)
	s.NoError(err)
	s.Require().Len(rows, 1)

	row := rows[0]
	s.Equal(budget.ID, row.BudgetID)
	s.Equal(s.testUser.ID, row.UserID)
	s.Equal("test@example.com", row.UserEmail)
	s.Equal(account.ID, row.AccountID)
	s.Equal(account.Name, row.AccountName)
	s.True(row.Amount.Equal(decimal.NewFromInt(400)))
	s.Nil(row.LastAlertSent)
}

func (s *BudgetRepositorySuite) TestMarkAlertSent() {
	budget, err := s.repo.Upsert(s.ctx, s.testUser.ID, decimal.NewFromInt(400))
	s.Require().NoError(err)

	sentAt := time.Date(2024, 3, 15, 10, 0, 0, 0, time.UTC)
	s.NoError(s.repo.MarkAlertSent(s.ctx, budget.ID, sentAt))

	stored, err := s.repo.GetByUserID(s.ctx, s.testUser.ID)
	s.NoError(err)
	s.Require().NotNil(stored.LastAlertSent)
	s.True(stored.LastAlertSent.Equal(sentAt))

	s.ErrorIs(s.repo.MarkAlertSent(s.ctx, uuid.New(), sentAt), ErrBudgetNotFound)
}
