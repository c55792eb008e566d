package services

import (
	"context"
	"errors"
	"testing"

	"finance-tracker/internal/dto"
	"finance-tracker/internal/models"
	"finance-tracker/internal/repositories"
	"finance-tracker/internal/repositories/repository_mocks"

	"github.com/brianvoe/gofakeit/v6"
	"github.com/golang/mock/gomock"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/suite"
)

type AccountServiceSuite struct {
	suite.Suite
	ctrl            *gomock.Controller
	ctx             context.Context
	accountRepo     *repository_mocks.MockAccountRepositoryInterface
	transactionRepo *repository_mocks.MockTransactionRepositoryInterface
	auditRepo       *repository_mocks.MockAuditLogRepositoryInterface
	service         *accountService
	userID          uuid.UUID
}

func (s *AccountServiceSuite) SetupTest() {
	s.ctrl = gomock.NewController(s.T())
	s.ctx = context.Background()
	s.accountRepo = repository_mocks.NewMockAccountRepositoryInterface(s.ctrl)
	s.transactionRepo = repository_mocks.NewMockTransactionRepositoryInterface(s.ctrl)

	var auditLogger AuditLoggerInterface
	auditLogger, s.auditRepo = newTestAuditLogger(s.ctrl)

	s.service = NewAccountService(s.accountRepo, s.transactionRepo, auditLogger, discardLogger()).(*accountService)
	s.userID = uuid.New()
}

func (s *AccountServiceSuite) TearDownTest() {
	s.ctrl.Finish()
}

func TestAccountServiceSuite(t *testing.T) {
	suite.Run(t, new(AccountServiceSuite))
}

func (s *AccountServiceSuite) TestCreateAccount_Success() {
	name := gofakeit.Company()
	accountID := uuid.New()

	s.accountRepo.EXPECT().Create(gomock.Any(), gomock.Any()).DoAndReturn(
		func(_ context.Context, account *models.Account) error {
			account.ID = accountID
			account.IsDefault = true
			return nil
		})

	account, err := s.service.CreateAccount(s.ctx, s.userID, &dto.CreateAccountRequest{
		Name:    "  " + name + "  ",
		Type:    "savings",
		Balance: "150.456",
	})

	s.Require().NoError(err)
	s.Equal(accountID, account.ID)
	s.Equal(s.userID, account.UserID)
	s.Equal(name, account.Name)
	s.Equal(models.AccountTypeSavings, account.AccountType)
	s.True(account.Balance.Equal(decimal.RequireFromString("150.46")))
	s.True(account.IsDefault)
}

func (s *AccountServiceSuite) TestCreateAccount_EmptyBalanceDefaultsToZero() {
	s.accountRepo.EXPECT().Create(gomock.Any(), gomock.Any()).Return(nil)

	account, err := s.service.CreateAccount(s.ctx, s.userID, &dto.CreateAccountRequest{
		Name: "Main account",
		Type: models.AccountTypeCurrent,
	})

	s.Require().NoError(err)
	s.True(account.Balance.IsZero())
}

func (s *AccountServiceSuite) TestCreateAccount_InvalidBalance() {
	for _, balance := range []string{"-10", "NaN", "Infinity", "abc"} {
		_, err := s.service.CreateAccount(s.ctx, s.userID, &dto.CreateAccountRequest{
			Name:    "Main account",
			Type:    models.AccountTypeCurrent,
			Balance: balance,
		})
		s.ErrorIs(err, ErrInvalidBalance, balance)
		s.ErrorIs(err, ErrValidation, balance)
	}
}

func (s *AccountServiceSuite) TestCreateAccount_InvalidType() {
	_, err := s.service.CreateAccount(s.ctx, s.userID, &dto.CreateAccountRequest{
		Name: "Main account",
		Type: "checking",
	})

	s.ErrorIs(err, ErrValidation)
	s.ErrorIs(err, models.ErrInvalidAccountType)
}

func (s *AccountServiceSuite) TestCreateAccount_NameTooShort() {
	_, err := s.service.CreateAccount(s.ctx, s.userID, &dto.CreateAccountRequest{
		Name: " ab ",
		Type: models.AccountTypeCurrent,
	})

	s.ErrorIs(err, models.ErrInvalidAccountName)
}

func (s *AccountServiceSuite) TestCreateAccount_NoUser() {
	_, err := s.service.CreateAccount(s.ctx, uuid.Nil, &dto.CreateAccountRequest{})
	s.ErrorIs(err, ErrUnauthorized)
}

func (s *AccountServiceSuite) TestListAccounts_AttachesTransactionCounts() {
	first := models.Account{ID: uuid.New(), UserID: s.userID, Name: "Current"}
	second := models.Account{ID: uuid.New(), UserID: s.userID, Name: "Savings"}

	s.accountRepo.EXPECT().GetByUserID(gomock.Any(), s.userID).Return([]models.Account{first, second}, nil)
	s.transactionRepo.EXPECT().CountByAccount(gomock.Any(), s.userID).Return(map[uuid.UUID]int64{first.ID: 7}, nil)

	items, err := s.service.ListAccounts(s.ctx, s.userID)

	s.Require().NoError(err)
	s.Require().Len(items, 2)
	s.Equal(first.ID, items[0].ID)
	s.Equal(int64(7), items[0].TransactionCount)
	s.Equal(int64(0), items[1].TransactionCount)
}

func (s *AccountServiceSuite) TestListAccounts_RepositoryError() {
	s.accountRepo.EXPECT().GetByUserID(gomock.Any(), s.userID).Return(nil, errors.New("connection reset"))

	_, err := s.service.ListAccounts(s.ctx, s.userID)
	s.Error(err)
}

func (s *AccountServiceSuite) TestGetAccount_NotFound() {
	accountID := uuid.New()
	s.accountRepo.EXPECT().GetByIDForUser(gomock.Any(), accountID, s.userID).Return(nil, repositories.ErrAccountNotFound)

	_, err := s.service.GetAccount(s.ctx, s.userID, accountID)

	s.ErrorIs(err, ErrAccountNotFound)
	s.ErrorIs(err, ErrNotFound)
}

func (s *AccountServiceSuite) TestSetDefaultAccount_Success() {
	accountID := uuid.New()
	s.accountRepo.EXPECT().SetDefault(gomock.Any(), s.userID, accountID).Return(&models.Account{ID: accountID, IsDefault: true}, nil)

	account, err := s.service.SetDefaultAccount(s.ctx, s.userID, accountID)

	s.Require().NoError(err)
	s.True(account.IsDefault)
}

func (s *AccountServiceSuite) TestSetDefaultAccount_ForeignAccount() {
	accountID := uuid.New()
	s.accountRepo.EXPECT().SetDefault(gomock.Any(), s.userID, accountID).Return(nil, repositories.ErrAccountNotFound)

	_, err := s.service.SetDefaultAccount(s.ctx, s.userID, accountID)
	s.ErrorIs(err, ErrAccountNotFound)
}
