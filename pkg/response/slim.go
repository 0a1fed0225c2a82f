// Package response provides compact JSON views of chats for list UIs
// (sidebar, menus, CLI listings) that do not need full message bodies.
package response

import (
	"encoding/json"
	"unicode/utf8"

	"github.com/kittclouds/chatsession/internal/store"
)

// PreviewRunes caps the LastMessage preview.
const PreviewRunes = 80

// ChatSummary contains only the fields list views render.
type ChatSummary struct {
	ID           string `json:"id"`
	Name         string `json:"name"`
	MessageCount int    `json:"messageCount"`
	CreatedAt    int64  `json:"createdAt"`
	UpdatedAt    int64  `json:"updatedAt"`
	IsSaved      bool   `json:"isSaved"`
	IsArchived   bool   `json:"isArchived"`
	LastMessage  string `json:"lastMessage,omitempty"`
}

// FromChat converts a full chat into a summary.
func FromChat(c store.Chat) ChatSummary {
	s := ChatSummary{
		ID:           c.ID,
		Name:         c.Name,
		MessageCount: c.MessageCount,
		CreatedAt:    c.CreatedAt,
		UpdatedAt:    c.UpdatedAt,
		IsSaved:      c.IsSaved,
		IsArchived:   c.IsArchived,
	}
	if n := len(c.Messages); n > 0 {
		s.LastMessage = Preview(c.Messages[n-1].Content)
	}
	return s
}

// Summaries converts a list of chats, preserving order.
func Summaries(chats []store.Chat) []ChatSummary {
	out := make([]ChatSummary, 0, len(chats))
	for _, c := range chats {
		out = append(out, FromChat(c))
	}
	return out
}

// MarshalSummaries creates a minimal JSON array for chats.
func MarshalSummaries(chats []store.Chat) ([]byte, error) {
	return json.Marshal(Summaries(chats))
}

// Preview truncates text to PreviewRunes runes, appending "…" when cut.
func Preview(text string) string {
	if utf8.RuneCountInString(text) <= PreviewRunes {
		return text
	}
	runes := []rune(text)
	return string(runes[:PreviewRunes]) + "…"
}
