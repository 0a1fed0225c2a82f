package store

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMessageTime(t *testing.T) {
	want := time.Date(2024, 1, 1, 10, 0, 0, 0, time.UTC)
	for _, stamp := range []string{
		"2024-01-01T10:00:00Z",
		"2024-01-01T11:00:00+01:00",
		"2024-01-01T10:00:00",
		"2024-01-01T10:00:00.000",
		"2024-01-01T10:00",
	} {
		got, ok := Message{Timestamp: stamp}.Time()
		require.True(t, ok, stamp)
		assert.True(t, want.Equal(got), "%s parsed as %s", stamp, got)
	}

	for _, stamp := range []string{"", "yesterday", "10:00"} {
		_, ok := Message{Timestamp: stamp}.Time()
		assert.False(t, ok, "%q", stamp)
	}
}

func TestMessageTimestampRoundTripsVerbatim(t *testing.T) {
	raw := `{"id":"m","content":"x","role":"user","timestamp":"2024-01-01T10:00:00"}`
	var msg Message
	require.NoError(t, json.Unmarshal([]byte(raw), &msg))
	assert.Equal(t, "2024-01-01T10:00:00", msg.Timestamp)

	out, err := json.Marshal(msg)
	require.NoError(t, err)
	assert.JSONEq(t, raw, string(out))
}

func TestFormatTimestamp(t *testing.T) {
	local := time.Date(2024, 1, 1, 9, 0, 0, 5e6, time.FixedZone("X", -3600))
	assert.Equal(t, "2024-01-01T10:00:00.005Z", FormatTimestamp(local))
}

func TestRoleValid(t *testing.T) {
	for _, r := range []Role{RoleUser, RoleAssistant, RoleSystem} {
		assert.True(t, r.Valid(), r)
	}
	for _, r := range []Role{"", "User", "tool", "narrator"} {
		assert.False(t, r.Valid(), "%q", r)
	}
}
