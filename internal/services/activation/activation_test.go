package activation

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/magabrotheeeer/userbase/internal/models"
	"github.com/magabrotheeeer/userbase/internal/paymentprovider"
	"github.com/magabrotheeeer/userbase/internal/storage"
)

type RepoMock struct{ mock.Mock }

func (m *RepoMock) GetByUserID(ctx context.Context, userID string) (*models.Account, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Account), args.Error(1)
}

func (m *RepoMock) FindBySubscriptionID(ctx context.Context, subscriptionID, excludingUserID string) (*models.Account, error) {
	args := m.Called(ctx, subscriptionID, excludingUserID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Account), args.Error(1)
}

func (m *RepoMock) Save(ctx context.Context, acc *models.Account) (*models.Account, error) {
	args := m.Called(ctx, acc)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Account), args.Error(1)
}

type VerifierMock struct{ mock.Mock }

func (m *VerifierMock) GetSubscription(ctx context.Context, subscriptionID string) (*paymentprovider.Subscription, error) {
	args := m.Called(ctx, subscriptionID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*paymentprovider.Subscription), args.Error(1)
}

type CacheMock struct{ mock.Mock }

func (m *CacheMock) Invalidate(ctx context.Context, key string) error {
	return m.Called(ctx, key).Error(0)
}

type PublisherMock struct{ mock.Mock }

func (m *PublisherMock) PublishAccountActivated(ctx context.Context, acc *models.Account) error {
	return m.Called(ctx, acc).Error(0)
}

type fakeMetrics struct {
	results  []string
	upstream int
}

func (f *fakeMetrics) ObserveActivation(result string)       { f.results = append(f.results, result) }
func (f *fakeMetrics) ObserveUpstream(_ time.Time, _ error) { f.upstream++ }

type mocks struct {
	repo      *RepoMock
	verifier  *VerifierMock
	cache     *CacheMock
	publisher *PublisherMock
	metrics   *fakeMetrics
}

var fixedNow = time.Date(2026, 10, 1, 12, 0, 0, 0, time.UTC)

func newNoopLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{}))
}

func newTestService() (*Service, mocks) {
	m := mocks{
		repo:      &RepoMock{},
		verifier:  &VerifierMock{},
		cache:     &CacheMock{},
		publisher: &PublisherMock{},
		metrics:   &fakeMetrics{},
	}
	s := New(m.repo, m.verifier, m.cache, m.publisher, m.metrics, Config{
		TrialPeriod:   14 * 24 * time.Hour,
		VerifyTimeout: time.Second,
	}, newNoopLogger())
	s.now = func() time.Time { return fixedNow }
	return s, m
}

func pendingAccount(userID string) *models.Account {
	return &models.Account{
		UserID:  userID,
		Email:   userID + "@example.com",
		Status:  models.StatusPendingApproval,
		Plan:    models.DefaultPlan(),
		QuizIDs: []string{},
		Version: 1,
	}
}

func trialSubscription(id string, next *time.Time) *paymentprovider.Subscription {
	return &paymentprovider.Subscription{
		ID:     id,
		Status: paymentprovider.StatusActive,
		BillingCycles: []paymentprovider.BillingCycle{
			{TenureType: paymentprovider.TenureTrial, Sequence: 1, TotalCycles: 1},
			{TenureType: "REGULAR", Sequence: 2},
		},
		NextBillingTime: next,
	}
}

func TestActivate_TrialWithUpstreamEndDate(t *testing.T) {
	s, m := newTestService()
	next := time.Date(2026, 10, 15, 9, 30, 0, 0, time.UTC)

	m.repo.On("GetByUserID", mock.Anything, "u1").Return(pendingAccount("u1"), nil).Once()
	m.repo.On("FindBySubscriptionID", mock.Anything, "S1", "u1").Return(nil, storage.ErrAccountNotFound).Once()
	m.verifier.On("GetSubscription", mock.Anything, "S1").Return(trialSubscription("S1", &next), nil).Once()
	m.repo.On("Save", mock.Anything, mock.MatchedBy(func(a *models.Account) bool {
		return a.UserID == "u1" &&
			a.Status == models.StatusTrialing &&
			a.SubscriptionID() == "S1" &&
			a.TrialEndDate != nil && a.TrialEndDate.Equal(next) &&
			a.Version == 1
	})).Return(&models.Account{UserID: "u1", Status: models.StatusTrialing, Version: 2}, nil).Once()
	m.cache.On("Invalidate", mock.Anything, "account:u1").Return(nil).Once()
	m.publisher.On("PublishAccountActivated", mock.Anything, mock.Anything).Return(nil).Once()

	acc, err := s.Activate(context.Background(), "u1", "S1")
	require.NoError(t, err)
	assert.Equal(t, models.StatusTrialing, acc.Status)
	assert.Equal(t, int64(2), acc.Version)
	assert.Equal(t, []string{"activated"}, m.metrics.results)
	assert.Equal(t, 1, m.metrics.upstream)

	m.repo.AssertExpectations(t)
	m.verifier.AssertExpectations(t)
	m.cache.AssertExpectations(t)
	m.publisher.AssertExpectations(t)
}

func TestActivate_TrialWithoutUpstreamEndDate(t *testing.T) {
	tests := []struct {
		name string
		next *time.Time
	}{
		{name: "missing next billing time", next: nil},
		{name: "next billing time in the past", next: ptr(fixedNow.Add(-time.Hour))},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, m := newTestService()
			want := fixedNow.Add(14 * 24 * time.Hour)

			m.repo.On("GetByUserID", mock.Anything, "u1").Return(pendingAccount("u1"), nil).Once()
			m.repo.On("FindBySubscriptionID", mock.Anything, "S1", "u1").Return(nil, storage.ErrAccountNotFound).Once()
			m.verifier.On("GetSubscription", mock.Anything, "S1").Return(trialSubscription("S1", tt.next), nil).Once()

			var saved *models.Account
			m.repo.On("Save", mock.Anything, mock.Anything).Run(func(args mock.Arguments) {
				saved = args.Get(1).(*models.Account)
			}).Return(&models.Account{UserID: "u1", Status: models.StatusTrialing, TrialEndDate: &want, Version: 2}, nil).Once()
			m.cache.On("Invalidate", mock.Anything, "account:u1").Return(nil).Once()
			m.publisher.On("PublishAccountActivated", mock.Anything, mock.Anything).Return(nil).Once()

			_, err := s.Activate(context.Background(), "u1", "S1")
			require.NoError(t, err)

			require.NotNil(t, saved)
			assert.Equal(t, models.StatusTrialing, saved.Status)
			require.NotNil(t, saved.TrialEndDate)
			assert.True(t, saved.TrialEndDate.Equal(want))
		})
	}
}

func TestActivate_Active(t *testing.T) {
	s, m := newTestService()
	acc := pendingAccount("u1")
	stale := fixedNow
	acc.TrialEndDate = &stale

	m.repo.On("GetByUserID", mock.Anything, "u1").Return(acc, nil).Once()
	m.repo.On("FindBySubscriptionID", mock.Anything, "S1", "u1").Return(nil, storage.ErrAccountNotFound).Once()
	m.verifier.On("GetSubscription", mock.Anything, "S1").Return(&paymentprovider.Subscription{
		ID:     "S1",
		Status: paymentprovider.StatusActive,
		BillingCycles: []paymentprovider.BillingCycle{
			{TenureType: "REGULAR", Sequence: 1},
		},
	}, nil).Once()
	m.repo.On("Save", mock.Anything, mock.MatchedBy(func(a *models.Account) bool {
		return a.Status == models.StatusActive && a.TrialEndDate == nil && a.SubscriptionID() == "S1"
	})).Return(&models.Account{UserID: "u1", Status: models.StatusActive, Version: 2}, nil).Once()
	m.cache.On("Invalidate", mock.Anything, "account:u1").Return(nil).Once()
	m.publisher.On("PublishAccountActivated", mock.Anything, mock.Anything).Return(nil).Once()

	got, err := s.Activate(context.Background(), "u1", "S1")
	require.NoError(t, err)
	assert.Equal(t, models.StatusActive, got.Status)
	assert.Nil(t, got.TrialEndDate)

	// исходный аккаунт не изменяется
	assert.Equal(t, models.StatusPendingApproval, acc.Status)
	assert.Nil(t, acc.PayPalSubscriptionID)
	m.repo.AssertExpectations(t)
}

func TestActivate_ApprovalPendingUpstream(t *testing.T) {
	s, m := newTestService()

	m.repo.On("GetByUserID", mock.Anything, "u1").Return(pendingAccount("u1"), nil).Once()
	m.repo.On("FindBySubscriptionID", mock.Anything, "S1", "u1").Return(nil, storage.ErrAccountNotFound).Once()
	m.verifier.On("GetSubscription", mock.Anything, "S1").Return(&paymentprovider.Subscription{
		ID:     "S1",
		Status: paymentprovider.StatusApprovalPending,
	}, nil).Once()
	m.repo.On("Save", mock.Anything, mock.MatchedBy(func(a *models.Account) bool {
		return a.Status == models.StatusActive
	})).Return(&models.Account{UserID: "u1", Status: models.StatusActive, Version: 2}, nil).Once()
	m.cache.On("Invalidate", mock.Anything, "account:u1").Return(nil).Once()
	m.publisher.On("PublishAccountActivated", mock.Anything, mock.Anything).Return(nil).Once()

	_, err := s.Activate(context.Background(), "u1", "S1")
	require.NoError(t, err)
	m.repo.AssertExpectations(t)
}

func TestActivate_Idempotent(t *testing.T) {
	for _, status := range []models.Status{models.StatusActive, models.StatusTrialing} {
		t.Run(string(status), func(t *testing.T) {
			s, m := newTestService()
			acc := pendingAccount("u1")
			acc.Status = status
			acc.PayPalSubscriptionID = ptr("S1")
			acc.Version = 5

			m.repo.On("GetByUserID", mock.Anything, "u1").Return(acc, nil).Once()

			got, err := s.Activate(context.Background(), "u1", "S1")
			require.NoError(t, err)
			assert.Equal(t, acc, got)
			assert.Equal(t, []string{"noop"}, m.metrics.results)

			m.repo.AssertNotCalled(t, "Save", mock.Anything, mock.Anything)
			m.repo.AssertNotCalled(t, "FindBySubscriptionID", mock.Anything, mock.Anything, mock.Anything)
			m.verifier.AssertNotCalled(t, "GetSubscription", mock.Anything, mock.Anything)
			m.publisher.AssertNotCalled(t, "PublishAccountActivated", mock.Anything, mock.Anything)
		})
	}
}

func TestActivate_BoundButPendingProceeds(t *testing.T) {
	s, m := newTestService()
	acc := pendingAccount("u1")
	acc.PayPalSubscriptionID = ptr("S1")

	m.repo.On("GetByUserID", mock.Anything, "u1").Return(acc, nil).Once()
	m.repo.On("FindBySubscriptionID", mock.Anything, "S1", "u1").Return(nil, storage.ErrAccountNotFound).Once()
	m.verifier.On("GetSubscription", mock.Anything, "S1").Return(&paymentprovider.Subscription{
		ID: "S1", Status: paymentprovider.StatusActive,
	}, nil).Once()
	m.repo.On("Save", mock.Anything, mock.Anything).Return(&models.Account{UserID: "u1", Status: models.StatusActive}, nil).Once()
	m.cache.On("Invalidate", mock.Anything, "account:u1").Return(nil).Once()
	m.publisher.On("PublishAccountActivated", mock.Anything, mock.Anything).Return(nil).Once()

	got, err := s.Activate(context.Background(), "u1", "S1")
	require.NoError(t, err)
	assert.Equal(t, models.StatusActive, got.Status)
	m.verifier.AssertExpectations(t)
}

func TestActivate_Errors(t *testing.T) {
	upstreamErr := &paymentprovider.StatusError{StatusCode: 404, Name: "RESOURCE_NOT_FOUND"}

	tests := []struct {
		name       string
		userID     string
		subID      string
		setupMocks func(m mocks)
		wantErr    error
		wantCode   string
	}{
		{
			name:       "empty user id",
			userID:     "",
			subID:      "S1",
			setupMocks: func(_ mocks) {},
			wantErr:    ErrInvalidRequest,
			wantCode:   CodeInvalidRequest,
		},
		{
			name:       "blank subscription id",
			userID:     "u1",
			subID:      "   ",
			setupMocks: func(_ mocks) {},
			wantErr:    ErrInvalidRequest,
			wantCode:   CodeInvalidRequest,
		},
		{
			name:   "account not found",
			userID: "ghost",
			subID:  "S1",
			setupMocks: func(m mocks) {
				m.repo.On("GetByUserID", mock.Anything, "ghost").Return(nil, storage.ErrAccountNotFound).Once()
			},
			wantErr:  ErrAccountNotFound,
			wantCode: CodeAccountNotFound,
		},
		{
			name:   "account lookup fails",
			userID: "u1",
			subID:  "S1",
			setupMocks: func(m mocks) {
				m.repo.On("GetByUserID", mock.Anything, "u1").Return(nil, errors.New("db down")).Once()
			},
			wantErr:  ErrStorage,
			wantCode: CodeStorageError,
		},
		{
			name:   "subscription bound to another account",
			userID: "u2",
			subID:  "S1",
			setupMocks: func(m mocks) {
				m.repo.On("GetByUserID", mock.Anything, "u2").Return(pendingAccount("u2"), nil).Once()
				owner := pendingAccount("u1")
				owner.Status = models.StatusActive
				owner.PayPalSubscriptionID = ptr("S1")
				m.repo.On("FindBySubscriptionID", mock.Anything, "S1", "u2").Return(owner, nil).Once()
			},
			wantErr:  ErrSubscriptionConflict,
			wantCode: CodeSubscriptionConflict,
		},
		{
			name:   "owner lookup fails",
			userID: "u1",
			subID:  "S1",
			setupMocks: func(m mocks) {
				m.repo.On("GetByUserID", mock.Anything, "u1").Return(pendingAccount("u1"), nil).Once()
				m.repo.On("FindBySubscriptionID", mock.Anything, "S1", "u1").Return(nil, errors.New("db down")).Once()
			},
			wantErr:  ErrStorage,
			wantCode: CodeStorageError,
		},
		{
			name:   "upstream not found",
			userID: "u1",
			subID:  "S1",
			setupMocks: func(m mocks) {
				m.repo.On("GetByUserID", mock.Anything, "u1").Return(pendingAccount("u1"), nil).Once()
				m.repo.On("FindBySubscriptionID", mock.Anything, "S1", "u1").Return(nil, storage.ErrAccountNotFound).Once()
				m.verifier.On("GetSubscription", mock.Anything, "S1").Return(nil, upstreamErr).Once()
			},
			wantErr:  ErrUpstreamVerificationFailed,
			wantCode: CodeUpstreamVerificationFailed,
		},
		{
			name:   "upstream unreachable",
			userID: "u1",
			subID:  "S1",
			setupMocks: func(m mocks) {
				m.repo.On("GetByUserID", mock.Anything, "u1").Return(pendingAccount("u1"), nil).Once()
				m.repo.On("FindBySubscriptionID", mock.Anything, "S1", "u1").Return(nil, storage.ErrAccountNotFound).Once()
				m.verifier.On("GetSubscription", mock.Anything, "S1").Return(nil, paymentprovider.ErrNetwork).Once()
			},
			wantErr:  ErrUpstreamVerificationFailed,
			wantCode: CodeUpstreamVerificationFailed,
		},
		{
			name:   "cancelled upstream",
			userID: "u1",
			subID:  "S1",
			setupMocks: func(m mocks) {
				m.repo.On("GetByUserID", mock.Anything, "u1").Return(pendingAccount("u1"), nil).Once()
				m.repo.On("FindBySubscriptionID", mock.Anything, "S1", "u1").Return(nil, storage.ErrAccountNotFound).Once()
				m.verifier.On("GetSubscription", mock.Anything, "S1").Return(&paymentprovider.Subscription{
					ID: "S1", Status: paymentprovider.StatusCancelled,
				}, nil).Once()
			},
			wantErr:  ErrUnsupportedUpstreamStatus,
			wantCode: CodeUnsupportedUpstreamStatus,
		},
		{
			name:   "subscription taken at write",
			userID: "u1",
			subID:  "S1",
			setupMocks: func(m mocks) {
				m.repo.On("GetByUserID", mock.Anything, "u1").Return(pendingAccount("u1"), nil).Once()
				m.repo.On("FindBySubscriptionID", mock.Anything, "S1", "u1").Return(nil, storage.ErrAccountNotFound).Once()
				m.verifier.On("GetSubscription", mock.Anything, "S1").Return(&paymentprovider.Subscription{
					ID: "S1", Status: paymentprovider.StatusActive,
				}, nil).Once()
				m.repo.On("Save", mock.Anything, mock.Anything).Return(nil, storage.ErrSubscriptionTaken).Once()
			},
			wantErr:  ErrSubscriptionConflict,
			wantCode: CodeSubscriptionConflict,
		},
		{
			name:   "version conflict at write",
			userID: "u1",
			subID:  "S1",
			setupMocks: func(m mocks) {
				m.repo.On("GetByUserID", mock.Anything, "u1").Return(pendingAccount("u1"), nil).Once()
				m.repo.On("FindBySubscriptionID", mock.Anything, "S1", "u1").Return(nil, storage.ErrAccountNotFound).Once()
				m.verifier.On("GetSubscription", mock.Anything, "S1").Return(&paymentprovider.Subscription{
					ID: "S1", Status: paymentprovider.StatusActive,
				}, nil).Once()
				m.repo.On("Save", mock.Anything, mock.Anything).Return(nil, storage.ErrVersionConflict).Once()
			},
			wantErr:  ErrStorage,
			wantCode: CodeStorageError,
		},
		{
			name:   "write fails",
			userID: "u1",
			subID:  "S1",
			setupMocks: func(m mocks) {
				m.repo.On("GetByUserID", mock.Anything, "u1").Return(pendingAccount("u1"), nil).Once()
				m.repo.On("FindBySubscriptionID", mock.Anything, "S1", "u1").Return(nil, storage.ErrAccountNotFound).Once()
				m.verifier.On("GetSubscription", mock.Anything, "S1").Return(&paymentprovider.Subscription{
					ID: "S1", Status: paymentprovider.StatusActive,
				}, nil).Once()
				m.repo.On("Save", mock.Anything, mock.Anything).Return(nil, errors.New("connection reset")).Once()
			},
			wantErr:  ErrStorage,
			wantCode: CodeStorageError,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, m := newTestService()
			tt.setupMocks(m)

			acc, err := s.Activate(context.Background(), tt.userID, tt.subID)
			require.Error(t, err)
			assert.Nil(t, acc)
			assert.ErrorIs(t, err, tt.wantErr)
			assert.Equal(t, tt.wantCode, Code(err))
			assert.Equal(t, []string{tt.wantCode}, m.metrics.results)

			m.repo.AssertExpectations(t)
			m.verifier.AssertExpectations(t)
			m.publisher.AssertNotCalled(t, "PublishAccountActivated", mock.Anything, mock.Anything)
			m.cache.AssertNotCalled(t, "Invalidate", mock.Anything, mock.Anything)
		})
	}
}

func TestActivate_UpstreamErrorDetailsNotExposed(t *testing.T) {
	s, m := newTestService()

	m.repo.On("GetByUserID", mock.Anything, "u1").Return(pendingAccount("u1"), nil).Once()
	m.repo.On("FindBySubscriptionID", mock.Anything, "S1", "u1").Return(nil, storage.ErrAccountNotFound).Once()
	m.verifier.On("GetSubscription", mock.Anything, "S1").
		Return(nil, &paymentprovider.StatusError{StatusCode: 401, Name: "AUTHENTICATION_FAILURE", DebugID: "dbg-1"}).Once()

	_, err := s.Activate(context.Background(), "u1", "S1")
	require.Error(t, err)
	assert.NotContains(t, err.Error(), "dbg-1")
	assert.NotContains(t, err.Error(), "AUTHENTICATION_FAILURE")
}

func TestActivate_VerifyUsesDeadline(t *testing.T) {
	s, m := newTestService()

	m.repo.On("GetByUserID", mock.Anything, "u1").Return(pendingAccount("u1"), nil).Once()
	m.repo.On("FindBySubscriptionID", mock.Anything, "S1", "u1").Return(nil, storage.ErrAccountNotFound).Once()
	m.verifier.On("GetSubscription", mock.MatchedBy(func(ctx context.Context) bool {
		_, ok := ctx.Deadline()
		return ok
	}), "S1").Return(nil, paymentprovider.ErrNetwork).Once()

	_, err := s.Activate(context.Background(), "u1", "S1")
	assert.ErrorIs(t, err, ErrUpstreamVerificationFailed)
	m.verifier.AssertExpectations(t)
}

func TestActivate_SideEffectFailuresDoNotFail(t *testing.T) {
	s, m := newTestService()

	m.repo.On("GetByUserID", mock.Anything, "u1").Return(pendingAccount("u1"), nil).Once()
	m.repo.On("FindBySubscriptionID", mock.Anything, "S1", "u1").Return(nil, storage.ErrAccountNotFound).Once()
	m.verifier.On("GetSubscription", mock.Anything, "S1").Return(&paymentprovider.Subscription{
		ID: "S1", Status: paymentprovider.StatusActive,
	}, nil).Once()
	m.repo.On("Save", mock.Anything, mock.Anything).Return(&models.Account{UserID: "u1", Status: models.StatusActive, Version: 2}, nil).Once()
	m.cache.On("Invalidate", mock.Anything, "account:u1").Return(errors.New("redis down")).Once()
	m.publisher.On("PublishAccountActivated", mock.Anything, mock.Anything).Return(errors.New("broker down")).Once()

	acc, err := s.Activate(context.Background(), "u1", "S1")
	require.NoError(t, err)
	assert.Equal(t, models.StatusActive, acc.Status)
	m.cache.AssertExpectations(t)
	m.publisher.AssertExpectations(t)
}

func TestCode(t *testing.T) {
	assert.Equal(t, CodeStorageError, Code(errors.New("unknown")))
	assert.Equal(t, CodeAccountNotFound, Code(errors.Join(errors.New("x"), ErrAccountNotFound)))
}

func ptr[T any](v T) *T { return &v }
