package repositories

import (
	"context"
	"testing"

	"finance-tracker/internal/database"
	"finance-tracker/internal/models"

	"github.com/google/uuid"
	"github.com/stretchr/testify/suite"
)

type UserRepositorySuite struct {
	suite.Suite
	db   *database.DB
	repo UserRepositoryInterface
	ctx  context.Context
}

func (s *UserRepositorySuite) SetupTest() {
	s.db = database.SetupTestDB(s.T())
	s.repo = NewUserRepository(s.db.DB)
	s.ctx = context.Background()
}

func (s *UserRepositorySuite) TearDownTest() {
	database.CleanupTestDB(s.T(), s.db)
}

func TestUserRepositorySuite(t *testing.T) {
	suite.Run(t, new(UserRepositorySuite))
}

func (s *UserRepositorySuite) TestCreateAndLookup() {
	user := &models.User{
		ExternalID: "user_2abc",
		Email:      "jane@example.com",
		Name:       "Jane Doe",
	}

	s.Require().NoError(s.repo.Create(s.ctx, user))
	s.NotEqual(uuid.Nil, user.ID)

	byExternal, err := s.repo.GetByExternalID(s.ctx, "user_2abc")
	s.NoError(err)
	s.Equal(user.ID, byExternal.ID)
	s.Equal("jane@example.com", byExternal.Email)
}

func (s *UserRepositorySuite) TestCreate_DuplicateExternalID() {
	first := &models.User{ExternalID: "user_dup", Email: "a@example.com"}
	s.Require().NoError(s.repo.Create(s.ctx, first))

	second := &models.User{ExternalID: "user_dup", Email: "b@example.com"}
	err := s.repo.Create(s.ctx, second)
	s.ErrorIs(err, ErrUserAlreadyExists)
}

func (s *UserRepositorySuite) TestGet_NotFound() {
	_, err := s.repo.GetByExternalID(s.ctx, "missing")
	s.ErrorIs(err, ErrUserNotFound)
}
