package enforcer

import (
	"context"
	"encoding/json"
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

type MockBanner struct {
	mock.Mock
}

func (m *MockBanner) BanMember(ctx context.Context, groupID int64, userID string) error {
	args := m.Called(ctx, groupID, userID)
	return args.Error(0)
}

func (m *MockBanner) UnbanMember(ctx context.Context, groupID int64, userID string) error {
	args := m.Called(ctx, groupID, userID)
	return args.Error(0)
}

func newNoopLogger() *slog.Logger {
	h := slog.NewTextHandler(io.Discard, &slog.HandlerOptions{})
	return slog.New(h)
}

const groupID = int64(-100123)

func revocationBody(t *testing.T, userID string) []byte {
	t.Helper()
	body, err := json.Marshal(models.Revocation{UserID: userID})
	require.NoError(t, err)
	return body
}

func TestHandleRevocation(t *testing.T) {
	banner := new(MockBanner)
	banner.On("BanMember", mock.Anything, groupID, "42").Return(nil).Once()
	banner.On("UnbanMember", mock.Anything, groupID, "42").Return(nil).Once()

	svc := New(banner, newNoopLogger(), groupID, 5*time.Second)
	err := svc.HandleRevocation(revocationBody(t, "42"))

	assert.NoError(t, err)
	banner.AssertExpectations(t)
}

func TestHandleRevocation_BanFailureIsSwallowed(t *testing.T) {
	banner := new(MockBanner)
	banner.On("BanMember", mock.Anything, groupID, "42").
		Return(errors.New("user not in group")).Once()

	svc := New(banner, newNoopLogger(), groupID, 5*time.Second)
	err := svc.HandleRevocation(revocationBody(t, "42"))

	assert.NoError(t, err)
	banner.AssertNotCalled(t, "UnbanMember")
}

func TestHandleRevocation_UnbanFailureIsSwallowed(t *testing.T) {
	banner := new(MockBanner)
	banner.On("BanMember", mock.Anything, groupID, "42").Return(nil).Once()
	banner.On("UnbanMember", mock.Anything, groupID, "42").
		Return(errors.New("api error")).Once()

	svc := New(banner, newNoopLogger(), groupID, 5*time.Second)
	err := svc.HandleRevocation(revocationBody(t, "42"))

	assert.NoError(t, err)
	banner.AssertExpectations(t)
}

// Нечитаемый payload всплывает ошибкой к потребителю очереди, который
// подтверждает и выбрасывает сообщение.
func TestHandleRevocation_BadPayloadIsSurfaced(t *testing.T) {
	banner := new(MockBanner)

	svc := New(banner, newNoopLogger(), groupID, 5*time.Second)
	err := svc.HandleRevocation([]byte("{"))

	assert.Error(t, err)
	banner.AssertNotCalled(t, "BanMember")
}
