package chat

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/kittclouds/chatsession/internal/store"
)

// DefaultNameLayout formats the creation time into a default chat name,
// e.g. "Chat Mar 4, 3:07 PM".
const DefaultNameLayout = "Jan 2, 3:04 PM"

// DefaultName returns the auto-derived name for a chat created at now.
func DefaultName(now time.Time) string {
	return "Chat " + now.Format(DefaultNameLayout)
}

// NewChat builds a fresh chat record. An empty name is replaced by
// DefaultName(now).
func NewChat(name string, now time.Time) store.Chat {
	if strings.TrimSpace(name) == "" {
		name = DefaultName(now)
	}
	ms := now.UnixMilli()
	return store.Chat{
		ID:           generateID("chat", now),
		Name:         name,
		Messages:     []store.Message{},
		CreatedAt:    ms,
		UpdatedAt:    ms,
		IsArchived:   false,
		IsSaved:      false,
		MessageCount: 0,
	}
}

// NewMessage builds a message stamped with now.
func NewMessage(role store.Role, content string, now time.Time) store.Message {
	return store.Message{
		ID:        generateID("msg", now),
		Content:   content,
		Role:      role,
		Timestamp: store.FormatTimestamp(now),
	}
}

// generateID combines millisecond time with a random suffix:
// <prefix>_<unix-ms>_<9 random hex chars>.
func generateID(prefix string, now time.Time) string {
	suffix := strings.ReplaceAll(uuid.NewString(), "-", "")[:9]
	return fmt.Sprintf("%s_%d_%s", prefix, now.UnixMilli(), suffix)
}
