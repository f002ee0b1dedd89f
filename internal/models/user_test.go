package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRawUserToUser(t *testing.T) {
	loc := time.UTC

	tests := []struct {
		name          string
		raw           RawUser
		expectedError bool
	}{
		{
			name: "valid record without notified",
			raw: RawUser{
				StartDate: "01-01-2026 10:00:00 AM",
				EndDate:   "31-01-2026 10:00:00 AM",
				ExtraDays: 3,
			},
			expectedError: false,
		},
		{
			name: "valid record with soon marker",
			raw: RawUser{
				StartDate: "01-01-2026 10:00:00 AM",
				EndDate:   "31-01-2026 10:00:00 AM",
				Notified:  "soon",
			},
			expectedError: false,
		},
		{
			name:          "missing start_date",
			raw:           RawUser{EndDate: "31-01-2026 10:00:00 AM"},
			expectedError: true,
		},
		{
			name:          "missing end_date",
			raw:           RawUser{StartDate: "01-01-2026 10:00:00 AM"},
			expectedError: true,
		},
		{
			name: "unparseable date",
			raw: RawUser{
				StartDate: "2026-01-01T10:00:00Z",
				EndDate:   "31-01-2026 10:00:00 AM",
			},
			expectedError: true,
		},
		{
			name: "unknown notified value",
			raw: RawUser{
				StartDate: "01-01-2026 10:00:00 AM",
				EndDate:   "31-01-2026 10:00:00 AM",
				Notified:  "maybe",
			},
			expectedError: true,
		},
		{
			name:          "zero value record",
			raw:           RawUser{},
			expectedError: true,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			user, err := tt.raw.ToUser("12345", loc)
			if tt.expectedError {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, "12345", user.ID)
			assert.Equal(t, tt.raw.ExtraDays, user.ExtraDays)
			assert.Equal(t, NotifyState(tt.raw.Notified), user.Notified)
			assert.True(t, user.EndDate.After(user.StartDate))
		})
	}
}

func TestUserRoundtrip(t *testing.T) {
	loc := time.UTC
	user := User{
		ID:        "42",
		StartDate: time.Date(2026, 2, 1, 9, 15, 0, 0, loc),
		EndDate:   time.Date(2026, 3, 3, 9, 15, 0, 0, loc),
		ExtraDays: 7,
		Notified:  NotifiedSoon,
	}

	back, err := user.ToRaw(loc).ToUser(user.ID, loc)
	require.NoError(t, err)
	assert.Equal(t, user, back)
}

func TestRawRemovalEntryToEntry(t *testing.T) {
	loc := time.UTC

	entry, err := RawRemovalEntry{Timestamp: "10-04-2026 11:30:00 PM"}.ToEntry("7", loc)
	require.NoError(t, err)
	assert.Equal(t, "7", entry.UserID)
	assert.Equal(t, time.Date(2026, 4, 10, 23, 30, 0, 0, loc), entry.QueuedAt)

	_, err = RawRemovalEntry{}.ToEntry("7", loc)
	assert.Error(t, err)

	_, err = RawRemovalEntry{Timestamp: "not a date"}.ToEntry("7", loc)
	assert.Error(t, err)
}

func TestRemovalEntryRoundtrip(t *testing.T) {
	loc := time.UTC
	entry := RemovalEntry{UserID: "99", QueuedAt: time.Date(2026, 6, 6, 6, 0, 0, 0, loc)}

	back, err := entry.ToRaw(loc).ToEntry(entry.UserID, loc)
	require.NoError(t, err)
	assert.Equal(t, entry, back)
}
