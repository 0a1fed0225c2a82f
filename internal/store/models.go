// Package store provides the persisted data model and slice storage for
// chat sessions. Each logical state slice is one JSON document under a key.
package store

import (
	"fmt"
	"time"
)

// Storage keys. They match the keys the browser app has always written to
// localStorage so existing documents keep loading.
const (
	KeyChats         = "simpleChatBot_chats"
	KeyCurrentChatID = "simpleChatBot_currentChatId"
	KeyArchivedChats = "simpleChatBot_archivedChats"
	KeySettings      = "simpleChatBot_settings"
)

// AllKeys lists every slice the session manager persists.
var AllKeys = []string{KeyChats, KeyCurrentChatID, KeyArchivedChats, KeySettings}

// Role identifies the author of a message.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleSystem    Role = "system"
)

// Valid reports whether r is a known role.
func (r Role) Valid() bool {
	switch r {
	case RoleUser, RoleAssistant, RoleSystem:
		return true
	}
	return false
}

// Theme is the UI colour scheme preference.
type Theme string

const (
	ThemeLight Theme = "light"
	ThemeDark  Theme = "dark"
	ThemeAuto  Theme = "auto"
)

// Valid reports whether t is a known theme.
func (t Theme) Valid() bool {
	switch t {
	case ThemeLight, ThemeDark, ThemeAuto:
		return true
	}
	return false
}

// Message is one turn in a chat.
// Timestamp is an ISO-8601 string kept exactly as written, so documents
// from other writers round-trip even when they omit the UTC offset.
type Message struct {
	ID        string `json:"id"`
	Content   string `json:"content"`
	Role      Role   `json:"role"`
	Timestamp string `json:"timestamp"`
}

// timestampLayouts are the ISO-8601 forms Time understands, most specific
// first. Layouts without an offset are read as UTC.
var timestampLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02T15:04",
	"2006-01-02",
}

// FormatTimestamp renders t the way new messages are stamped.
func FormatTimestamp(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}

// Time parses Timestamp. ok is false for empty or unrecognised values; the
// raw string is still what gets persisted.
func (m Message) Time() (t time.Time, ok bool) {
	for _, layout := range timestampLayouts {
		if parsed, err := time.Parse(layout, m.Timestamp); err == nil {
			return parsed, true
		}
	}
	return time.Time{}, false
}

// Chat is a conversation thread.
// MessageCount is a cache of len(Messages) and is rewritten on every mutation.
type Chat struct {
	ID           string    `json:"id"`
	Name         string    `json:"name"`
	Messages     []Message `json:"messages"`
	CreatedAt    int64     `json:"createdAt"` // epoch ms
	UpdatedAt    int64     `json:"updatedAt"` // epoch ms
	IsArchived   bool      `json:"isArchived"`
	IsSaved      bool      `json:"isSaved"`
	MessageCount int       `json:"messageCount"`
}

// Clone returns a deep copy of the chat.
func (c Chat) Clone() Chat {
	out := c
	out.Messages = make([]Message, len(c.Messages))
	copy(out.Messages, c.Messages)
	return out
}

// SyncCount rewrites MessageCount from the message slice.
func (c *Chat) SyncCount() {
	if c.Messages == nil {
		c.Messages = []Message{}
	}
	c.MessageCount = len(c.Messages)
}

// Settings holds process-wide preferences.
type Settings struct {
	Theme          Theme `json:"theme"`
	AutoSave       bool  `json:"autoSave"`
	MaxRecentChats int   `json:"maxRecentChats"`
}

// DefaultSettings returns the settings used when none are persisted.
func DefaultSettings() Settings {
	return Settings{
		Theme:          ThemeLight,
		AutoSave:       true,
		MaxRecentChats: 10,
	}
}

// Validate checks the settings against the allowed values.
func (s Settings) Validate() error {
	if !s.Theme.Valid() {
		return fmt.Errorf("unknown theme %q", s.Theme)
	}
	if s.MaxRecentChats < 1 {
		return fmt.Errorf("maxRecentChats must be positive, got %d", s.MaxRecentChats)
	}
	return nil
}

// SliceStore is the key-value persistence contract used by the session
// manager. LoadSlice reports ok=false for keys that were never written.
type SliceStore interface {
	LoadSlice(key string) (value []byte, ok bool, err error)
	SaveSlice(key string, value []byte) error
	Close() error
}
