package service

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/PeterUlb/layeringtst/internal/db"
	"github.com/PeterUlb/layeringtst/internal/db/dbtest"
	"github.com/PeterUlb/layeringtst/internal/models"
)

type repoMock struct{ mock.Mock }

var _ UserRepository = (*repoMock)(nil)

func (m *repoMock) CreateUser(ctx context.Context, client db.Client, username string) (uint64, error) {
	args := m.Called(ctx, client, username)
	return args.Get(0).(uint64), args.Error(1)
}

func (m *repoMock) GetByUsername(ctx context.Context, client db.Client, username string) (*models.User, error) {
	args := m.Called(ctx, client, username)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.User), args.Error(1)
}

// stubTx records how a transaction was finished.
type stubTx struct {
	dbtest.Unusable
	commitErr  error
	commits    int
	rollbacks  int
	finishedBy string
}

func (s *stubTx) Commit(context.Context) error {
	s.commits++
	if s.finishedBy != "" {
		return errors.New("transaction already finished")
	}
	if s.commitErr != nil {
		return s.commitErr
	}
	s.finishedBy = "commit"
	return nil
}

func (s *stubTx) Rollback(context.Context) error {
	s.rollbacks++
	if s.finishedBy == "" {
		s.finishedBy = "rollback"
	}
	return nil
}

type stubClient struct {
	dbtest.Unusable
	tx *stubTx
}

func (c stubClient) Begin(context.Context) (db.Transaction, error) {
	return c.tx, nil
}

func TestRegisterUser_TakenUsernameSkipsInsert(t *testing.T) {
	repo := &repoMock{}
	client := dbtest.Unusable{TB: t}
	repo.On("GetByUsername", mock.Anything, client, "alice").
		Return(&models.User{ID: 1, Username: "alice"}, nil).Once()

	svc := NewRegistrationService(repo, zap.NewNop())
	_, err := svc.RegisterUser(context.Background(), client, "alice")

	require.ErrorIs(t, err, ErrUsernameAlreadyExists)
	repo.AssertExpectations(t)
	repo.AssertNotCalled(t, "CreateUser", mock.Anything, mock.Anything, mock.Anything)
}

func TestRegisterUsers_UsesTransactionHandle(t *testing.T) {
	tx := &stubTx{Unusable: dbtest.Unusable{TB: t}}
	client := stubClient{Unusable: dbtest.Unusable{TB: t}, tx: tx}

	repo := &repoMock{}
	repo.On("CreateUser", mock.Anything, mock.MatchedBy(func(c db.Client) bool {
		got, ok := c.(*stubTx)
		return ok && got == tx
	}), mock.AnythingOfType("string")).Return(uint64(1), nil).Times(3)

	svc := NewRegistrationService(repo, zap.NewNop())
	n, err := svc.RegisterUsers(context.Background(), client, 3)

	require.NoError(t, err)
	require.Equal(t, uint64(3), n)
	require.Equal(t, "commit", tx.finishedBy)
	repo.AssertExpectations(t)
}

func TestRegisterUsers_FailureRollsBack(t *testing.T) {
	tx := &stubTx{Unusable: dbtest.Unusable{TB: t}}
	client := stubClient{Unusable: dbtest.Unusable{TB: t}, tx: tx}
	cause := &db.StoreError{Op: "exec", Err: errors.New("disk full")}

	repo := &repoMock{}
	repo.On("CreateUser", mock.Anything, mock.Anything, mock.Anything).Return(uint64(1), nil).Once()
	repo.On("CreateUser", mock.Anything, mock.Anything, mock.Anything).Return(uint64(0), cause).Once()

	svc := NewRegistrationService(repo, zap.NewNop())
	_, err := svc.RegisterUsers(context.Background(), client, 5)

	require.ErrorIs(t, err, ErrStoreFailure)
	require.ErrorIs(t, err, cause)
	require.Equal(t, "rollback", tx.finishedBy)
	require.Zero(t, tx.commits)
	repo.AssertNumberOfCalls(t, "CreateUser", 2)
}

func TestRegisterUsers_CommitFailureIsStoreFailure(t *testing.T) {
	commitErr := &db.StoreError{Op: "commit", Err: errors.New("serialization failure")}
	tx := &stubTx{Unusable: dbtest.Unusable{TB: t}, commitErr: commitErr}
	client := stubClient{Unusable: dbtest.Unusable{TB: t}, tx: tx}

	repo := &repoMock{}
	repo.On("CreateUser", mock.Anything, mock.Anything, mock.Anything).Return(uint64(1), nil)

	svc := NewRegistrationService(repo, zap.NewNop())
	_, err := svc.RegisterUsers(context.Background(), client, 2)

	require.ErrorIs(t, err, ErrStoreFailure)
	require.ErrorIs(t, err, commitErr)
	require.Equal(t, "rollback", tx.finishedBy)
}
