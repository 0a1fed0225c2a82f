package chat

import (
	"math"
	"sort"
	"time"

	"github.com/kittclouds/chatsession/internal/store"
)

// DefaultRecentLimit is used when RecentChats is called with limit <= 0.
const DefaultRecentLimit = 5

// NotAvailable is reported for analytics dates when there are no chats.
const NotAvailable = "N/A"

// dateLayout formats analytics dates.
const dateLayout = "2006-01-02"

// RecentChats returns up to limit non-archived chats, most recently updated
// first. Chats with equal UpdatedAt keep their insertion order.
func (m *Manager) RecentChats(limit int) []store.Chat {
	if limit <= 0 {
		limit = DefaultRecentLimit
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	recent := make([]store.Chat, 0, len(m.active))
	for _, c := range m.active {
		if !c.IsArchived {
			recent = append(recent, c.Clone())
		}
	}
	sort.SliceStable(recent, func(i, j int) bool {
		return recent[i].UpdatedAt > recent[j].UpdatedAt
	})
	if len(recent) > limit {
		recent = recent[:limit]
	}
	return recent
}

// SavedChats returns the active chats flagged as saved, in insertion order.
func (m *Manager) SavedChats() []store.Chat {
	m.mu.Lock()
	defer m.mu.Unlock()

	var saved []store.Chat
	for _, c := range m.active {
		if c.IsSaved && !c.IsArchived {
			saved = append(saved, c.Clone())
		}
	}
	return saved
}

// Analytics is an aggregate view over the session.
type Analytics struct {
	TotalChats             int     `json:"totalChats"`
	TotalArchivedChats     int     `json:"totalArchivedChats"`
	TotalMessages          int     `json:"totalMessages"`
	SavedChatsCount        int     `json:"savedChatsCount"`
	AverageMessagesPerChat float64 `json:"averageMessagesPerChat"`
	OldestChatDate         string  `json:"oldestChatDate"`
	NewestChatDate         string  `json:"newestChatDate"`
}

// Analytics computes totals over the active collection. Archived chats only
// contribute to TotalArchivedChats.
func (m *Manager) Analytics() Analytics {
	m.mu.Lock()
	defer m.mu.Unlock()

	return computeAnalytics(m.active, len(m.archived), m.now().Location())
}

func computeAnalytics(active []store.Chat, archived int, loc *time.Location) Analytics {
	a := Analytics{
		TotalChats:         len(active),
		TotalArchivedChats: archived,
		OldestChatDate:     NotAvailable,
		NewestChatDate:     NotAvailable,
	}
	if len(active) == 0 {
		return a
	}

	oldest, newest := active[0].CreatedAt, active[0].CreatedAt
	for _, c := range active {
		a.TotalMessages += c.MessageCount
		if c.IsSaved {
			a.SavedChatsCount++
		}
		oldest = min(oldest, c.CreatedAt)
		newest = max(newest, c.CreatedAt)
	}

	avg := float64(a.TotalMessages) / float64(a.TotalChats)
	a.AverageMessagesPerChat = math.Round(avg*10) / 10
	a.OldestChatDate = time.UnixMilli(oldest).In(loc).Format(dateLayout)
	a.NewestChatDate = time.UnixMilli(newest).In(loc).Format(dateLayout)
	return a
}
