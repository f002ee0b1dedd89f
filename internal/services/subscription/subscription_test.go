package subscription

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

	"github.com/streamtap/subscription-keeper/internal/models"
)

type MockRepository struct {
	mock.Mock
}

func (m *MockRepository) GetUser(ctx context.Context, id string) (*models.RawUser, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.RawUser), args.Error(1)
}

func (m *MockRepository) SaveUser(ctx context.Context, id string, raw models.RawUser) error {
	args := m.Called(ctx, id, raw)
	return args.Error(0)
}

func (m *MockRepository) CountUsers(ctx context.Context) (int, error) {
	args := m.Called(ctx)
	return args.Int(0), args.Error(1)
}

func newNoopLogger() *slog.Logger {
	h := slog.NewTextHandler(io.Discard, &slog.HandlerOptions{})
	return slog.New(h)
}

func TestGrant(t *testing.T) {
	existing := &models.RawUser{
		StartDate: "01-01-2026 10:00:00 AM",
		EndDate:   "31-01-2026 10:00:00 AM",
	}

	tests := []struct {
		name          string
		setupMocks    func(*MockRepository)
		expectedError bool
	}{
		{
			name: "success - new user gets thirty days",
			setupMocks: func(r *MockRepository) {
				r.On("GetUser", mock.Anything, "42").Return(nil, nil).Once()
				r.On("SaveUser", mock.Anything, "42", mock.MatchedBy(func(raw models.RawUser) bool {
					user, err := raw.ToUser("42", time.UTC)
					if err != nil {
						return false
					}
					days := user.EndDate.Sub(user.StartDate)
					return days == 30*24*time.Hour && user.Notified == models.NotifiedNone && user.ExtraDays == 0
				})).Return(nil).Once()
			},
			expectedError: false,
		},
		{
			name: "duplicate join is a no-op",
			setupMocks: func(r *MockRepository) {
				r.On("GetUser", mock.Anything, "42").Return(existing, nil).Once()
			},
			expectedError: false,
		},
		{
			name: "lookup error",
			setupMocks: func(r *MockRepository) {
				r.On("GetUser", mock.Anything, "42").Return(nil, errors.New("storage down")).Once()
			},
			expectedError: true,
		},
		{
			name: "save error",
			setupMocks: func(r *MockRepository) {
				r.On("GetUser", mock.Anything, "42").Return(nil, nil).Once()
				r.On("SaveUser", mock.Anything, "42", mock.Anything).Return(errors.New("storage down")).Once()
			},
			expectedError: true,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo := new(MockRepository)
			tt.setupMocks(repo)

			svc := New(repo, newNoopLogger(), time.UTC, 30, 40)
			err := svc.Grant(context.Background(), "42")
			if tt.expectedError {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
			repo.AssertExpectations(t)
		})
	}
}

func TestExtend(t *testing.T) {
	valid := &models.RawUser{
		StartDate: "01-01-2026 10:00:00 AM",
		EndDate:   "31-01-2026 10:00:00 AM",
		ExtraDays: 7,
		Notified:  "expired",
	}

	tests := []struct {
		name            string
		setupMocks      func(*MockRepository)
		expectedError   error
		expectedEndDate string
	}{
		{
			name: "success - end date and bonus days advance",
			setupMocks: func(r *MockRepository) {
				r.On("GetUser", mock.Anything, "42").Return(valid, nil).Once()
				r.On("SaveUser", mock.Anything, "42", models.RawUser{
					StartDate: "01-01-2026 10:00:00 AM",
					EndDate:   "07-02-2026 10:00:00 AM",
					ExtraDays: 14,
					Notified:  "expired",
				}).Return(nil).Once()
			},
			expectedEndDate: "07-02-2026 10:00:00 AM",
		},
		{
			name: "unknown user",
			setupMocks: func(r *MockRepository) {
				r.On("GetUser", mock.Anything, "42").Return(nil, nil).Once()
			},
			expectedError: ErrUserNotFound,
		},
		{
			name: "malformed record is not written back",
			setupMocks: func(r *MockRepository) {
				r.On("GetUser", mock.Anything, "42").Return(&models.RawUser{}, nil).Once()
			},
			expectedError: errors.New("validation"),
		},
		{
			name: "save error",
			setupMocks: func(r *MockRepository) {
				r.On("GetUser", mock.Anything, "42").Return(valid, nil).Once()
				r.On("SaveUser", mock.Anything, "42", mock.Anything).Return(errors.New("storage down")).Once()
			},
			expectedError: errors.New("storage down"),
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo := new(MockRepository)
			tt.setupMocks(repo)

			svc := New(repo, newNoopLogger(), time.UTC, 30, 40)
			user, err := svc.Extend(context.Background(), "42", 7)
			if tt.expectedError != nil {
				require.Error(t, err)
				if errors.Is(tt.expectedError, ErrUserNotFound) {
					assert.ErrorIs(t, err, ErrUserNotFound)
				}
			} else {
				require.NoError(t, err)
				assert.Equal(t, tt.expectedEndDate, user.ToRaw(time.UTC).EndDate)
				assert.Equal(t, 14, user.ExtraDays)
				// продление не сбрасывает отметку об уведомлениях
				assert.Equal(t, models.NotifiedExpired, user.Notified)
			}
			repo.AssertExpectations(t)
		})
	}
}

func TestStats(t *testing.T) {
	tests := []struct {
		name            string
		setupMocks      func(*MockRepository)
		expectedCount   int
		expectedRevenue int
		expectedError   bool
	}{
		{
			name: "success",
			setupMocks: func(r *MockRepository) {
				r.On("CountUsers", mock.Anything).Return(5, nil).Once()
			},
			expectedCount:   5,
			expectedRevenue: 200,
		},
		{
			name: "empty store",
			setupMocks: func(r *MockRepository) {
				r.On("CountUsers", mock.Anything).Return(0, nil).Once()
			},
		},
		{
			name: "count error",
			setupMocks: func(r *MockRepository) {
				r.On("CountUsers", mock.Anything).Return(0, errors.New("storage down")).Once()
			},
			expectedError: true,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo := new(MockRepository)
			tt.setupMocks(repo)

			svc := New(repo, newNoopLogger(), time.UTC, 30, 40)
			count, revenue, err := svc.Stats(context.Background())
			if tt.expectedError {
				assert.Error(t, err)
			} else {
				require.NoError(t, err)
				assert.Equal(t, tt.expectedCount, count)
				assert.Equal(t, tt.expectedRevenue, revenue)
			}
			repo.AssertExpectations(t)
		})
	}
}
