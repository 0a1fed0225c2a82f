// Package chat provides chat session management: the active and archived
// collections, the current-chat pointer and write-through persistence.
package chat

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/kittclouds/chatsession/internal/store"
)

// Manager owns the session state. Every exported method runs under one
// mutex, so the never-empty and exactly-one-current invariants hold for
// concurrent callers.
//
// After any method returns:
//   - active holds at least one chat
//   - currentID names a chat in active
//   - every chat sits in exactly one of active / archived
type Manager struct {
	mu    sync.Mutex
	store store.SliceStore
	now   func() time.Time
	log   zerolog.Logger

	active    []store.Chat
	archived  []store.Chat
	currentID string
	settings  store.Settings
}

// Option configures a Manager.
type Option func(*Manager)

// WithClock overrides time.Now, mainly for tests.
func WithClock(now func() time.Time) Option {
	return func(m *Manager) { m.now = now }
}

// WithLogger sets the diagnostic logger. The default discards everything.
func WithLogger(log zerolog.Logger) Option {
	return func(m *Manager) { m.log = log.With().Str("component", "chat").Logger() }
}

// NewManager creates a manager backed by s and hydrates it from whatever s
// already holds. Missing or malformed slices fall back to defaults; the
// repaired state is written back before NewManager returns.
func NewManager(s store.SliceStore, opts ...Option) *Manager {
	m := &Manager{
		store: s,
		now:   time.Now,
		log:   zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(m)
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.load()
	return m
}

// =============================================================================
// Loading and persistence
// =============================================================================

func (m *Manager) load() {
	active, _ := store.LoadJSON[[]store.Chat](m.store, store.KeyChats, nil, m.log)
	archived, _ := store.LoadJSON[[]store.Chat](m.store, store.KeyArchivedChats, nil, m.log)
	settings, _ := store.LoadJSON(m.store, store.KeySettings, store.DefaultSettings(), m.log)

	if err := settings.Validate(); err != nil {
		m.log.Warn().Err(err).Msg("persisted settings invalid, using defaults")
		settings = store.DefaultSettings()
	}

	for i := range active {
		active[i].IsArchived = false
		active[i].SyncCount()
	}

	// A chat persisted in both collections stays active.
	activeIDs := idSet(active)
	kept := make([]store.Chat, 0, len(archived))
	for _, c := range archived {
		if _, dup := activeIDs[c.ID]; dup {
			m.log.Warn().Str("chat_id", c.ID).Msg("chat stored as both active and archived, keeping active copy")
			continue
		}
		c.IsArchived = true
		c.SyncCount()
		kept = append(kept, c)
	}

	m.active = active
	m.archived = kept
	m.settings = settings
	m.currentID = store.LoadString(m.store, store.KeyCurrentChatID, m.log)

	m.repair()
	m.persist(store.AllKeys...)

	m.log.Debug().
		Int("active", len(m.active)).
		Int("archived", len(m.archived)).
		Str("current", m.currentID).
		Msg("session loaded")
}

// repair restores the never-empty and current-pointer invariants.
// Returns true when it changed anything.
func (m *Manager) repair() bool {
	changed := false
	if len(m.active) == 0 {
		c := NewChat("", m.now())
		m.active = []store.Chat{c}
		m.currentID = c.ID
		m.log.Warn().Str("chat_id", c.ID).Msg("no active chats, created a default chat")
		changed = true
	}
	if indexOf(m.active, m.currentID) < 0 {
		m.log.Warn().
			Str("missing", m.currentID).
			Str("chat_id", m.active[0].ID).
			Msg("current chat id not found, switching to first chat")
		m.currentID = m.active[0].ID
		changed = true
	}
	return changed
}

// commit runs invariant repair and writes the touched slices.
func (m *Manager) commit(keys ...string) {
	if m.repair() {
		keys = append(keys, store.KeyChats, store.KeyCurrentChatID)
	}
	m.persist(keys...)
}

// persist writes the named slices in store.AllKeys order, each at most once.
// Failures are logged; the in-memory state stays authoritative and the next
// write of the same slice carries the latest state.
func (m *Manager) persist(keys ...string) error {
	want := make(map[string]bool, len(keys))
	for _, k := range keys {
		want[k] = true
	}

	var errs []error
	for _, key := range store.AllKeys {
		if !want[key] {
			continue
		}
		var err error
		switch key {
		case store.KeyChats:
			err = store.SaveJSON(m.store, key, m.active)
		case store.KeyArchivedChats:
			err = store.SaveJSON(m.store, key, m.archived)
		case store.KeySettings:
			err = store.SaveJSON(m.store, key, m.settings)
		case store.KeyCurrentChatID:
			err = m.store.SaveSlice(key, []byte(m.currentID))
		}
		if err != nil {
			m.log.Error().Err(err).Str("key", key).Msg("failed to persist slice")
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Flush rewrites every slice from the in-memory state.
func (m *Manager) Flush() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := m.persist(store.AllKeys...); err != nil {
		return fmt.Errorf("failed to flush session: %w", err)
	}
	return nil
}

// Close flushes the session and closes the underlying store.
func (m *Manager) Close() error {
	flushErr := m.Flush()

	m.mu.Lock()
	defer m.mu.Unlock()
	return errors.Join(flushErr, m.store.Close())
}

// =============================================================================
// Mutations
// =============================================================================

// CreateChat appends a new chat, makes it current and returns it.
func (m *Manager) CreateChat(name string) store.Chat {
	m.mu.Lock()
	defer m.mu.Unlock()

	c := NewChat(name, m.now())
	m.active = append(m.active, c)
	m.currentID = c.ID
	m.commit(store.KeyChats, store.KeyCurrentChatID)

	m.log.Debug().Str("chat_id", c.ID).Str("name", c.Name).Msg("created chat")
	return c.Clone()
}

// RenameChat changes the name of an active chat.
func (m *Manager) RenameChat(chatID, newName string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	i := indexOf(m.active, chatID)
	if i < 0 {
		m.missing("rename", chatID)
		return
	}
	m.active[i].Name = newName
	m.touch(i)
	m.commit(store.KeyChats)
}

// AddMessage appends msg to the current chat. Empty ID and Timestamp are
// filled in. Messages with an unknown role are dropped.
func (m *Manager) AddMessage(msg store.Message) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if !msg.Role.Valid() {
		m.invalidRole("add message", msg.Role)
		return
	}

	i := indexOf(m.active, m.currentID)
	if i < 0 {
		m.missing("add message", m.currentID)
		return
	}

	now := m.now()
	if msg.ID == "" {
		msg.ID = generateID("msg", now)
	}
	if msg.Timestamp == "" {
		msg.Timestamp = store.FormatTimestamp(now)
	}

	m.active[i].Messages = append(m.active[i].Messages, msg)
	m.active[i].SyncCount()
	m.touch(i)
	m.commit(store.KeyChats)
}

// ReplaceMessages swaps the current chat's message list for msgs. The call
// is ignored when any message has an unknown role.
func (m *Manager) ReplaceMessages(msgs []store.Message) {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, msg := range msgs {
		if !msg.Role.Valid() {
			m.invalidRole("replace messages", msg.Role)
			return
		}
	}

	i := indexOf(m.active, m.currentID)
	if i < 0 {
		m.missing("replace messages", m.currentID)
		return
	}

	replaced := make([]store.Message, len(msgs))
	copy(replaced, msgs)
	m.active[i].Messages = replaced
	m.active[i].SyncCount()
	m.touch(i)
	m.commit(store.KeyChats)
}

// SaveChat flags an active chat as saved. Idempotent.
func (m *Manager) SaveChat(chatID string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	i := indexOf(m.active, chatID)
	if i < 0 {
		m.missing("save", chatID)
		return
	}
	m.active[i].IsSaved = true
	m.touch(i)
	m.commit(store.KeyChats)
}

// ClearMessages empties the current chat.
func (m *Manager) ClearMessages() {
	m.mu.Lock()
	defer m.mu.Unlock()

	i := indexOf(m.active, m.currentID)
	if i < 0 {
		m.missing("clear", m.currentID)
		return
	}
	m.active[i].Messages = []store.Message{}
	m.active[i].SyncCount()
	m.touch(i)
	m.commit(store.KeyChats)
}

// ArchiveChat moves an active chat into the archived collection.
// Archiving the current chat moves the pointer to the first remaining chat,
// or to a freshly created one when none remain.
func (m *Manager) ArchiveChat(chatID string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	i := indexOf(m.active, chatID)
	if i < 0 {
		m.missing("archive", chatID)
		return
	}

	c := m.active[i]
	c.IsArchived = true
	m.archived = append(m.archived, c)
	m.active = removeAt(m.active, i)
	m.afterRemoval(chatID)
	m.commit(store.KeyChats, store.KeyArchivedChats, store.KeyCurrentChatID)

	m.log.Debug().Str("chat_id", chatID).Msg("archived chat")
}

// UnarchiveChat moves an archived chat back to the end of the active
// collection. The current pointer is left alone.
func (m *Manager) UnarchiveChat(chatID string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	i := indexOf(m.archived, chatID)
	if i < 0 {
		m.missing("unarchive", chatID)
		return
	}

	c := m.archived[i]
	c.IsArchived = false
	m.active = append(m.active, c)
	m.archived = removeAt(m.archived, i)
	m.commit(store.KeyChats, store.KeyArchivedChats)

	m.log.Debug().Str("chat_id", chatID).Msg("unarchived chat")
}

// DeleteChat permanently removes an active chat. Archived chats are not
// reachable through DeleteChat.
func (m *Manager) DeleteChat(chatID string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	i := indexOf(m.active, chatID)
	if i < 0 {
		m.missing("delete", chatID)
		return
	}

	m.active = removeAt(m.active, i)
	m.afterRemoval(chatID)
	m.commit(store.KeyChats, store.KeyCurrentChatID)

	m.log.Debug().Str("chat_id", chatID).Msg("deleted chat")
}

// SwitchChat points the current chat at chatID. An id that is not active is
// corrected to the first active chat.
func (m *Manager) SwitchChat(chatID string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.currentID = chatID
	m.commit(store.KeyCurrentChatID)
}

// UpdateSettings replaces the settings after validating them.
func (m *Manager) UpdateSettings(s store.Settings) error {
	if err := s.Validate(); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidSettings, err)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	m.settings = s
	m.commit(store.KeySettings)
	return nil
}

// afterRemoval moves the pointer off a removed chat, creating a default
// chat if the active collection is now empty.
func (m *Manager) afterRemoval(removedID string) {
	if len(m.active) == 0 {
		c := NewChat("", m.now())
		m.active = []store.Chat{c}
		m.currentID = c.ID
		m.log.Debug().Str("chat_id", c.ID).Msg("last active chat removed, created a default chat")
		return
	}
	if removedID == m.currentID {
		m.currentID = m.active[0].ID
	}
}

func (m *Manager) touch(i int) {
	m.active[i].UpdatedAt = m.now().UnixMilli()
}

func (m *Manager) missing(op, chatID string) {
	m.log.Debug().Str("op", op).Str("chat_id", chatID).Msg("chat not found, ignoring")
}

func (m *Manager) invalidRole(op string, role store.Role) {
	m.log.Debug().Str("op", op).Str("role", string(role)).Msg("unknown message role, ignoring")
}

// =============================================================================
// Accessors
// =============================================================================

// CurrentChat returns the active chat matching the current id, falling back
// to the first active chat.
func (m *Manager) CurrentChat() store.Chat {
	m.mu.Lock()
	defer m.mu.Unlock()

	if i := indexOf(m.active, m.currentID); i >= 0 {
		return m.active[i].Clone()
	}
	return m.active[0].Clone()
}

// CurrentChatID returns the current chat pointer.
func (m *Manager) CurrentChatID() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.currentID
}

// ActiveChats returns a copy of the active collection in insertion order.
func (m *Manager) ActiveChats() []store.Chat {
	m.mu.Lock()
	defer m.mu.Unlock()
	return cloneAll(m.active)
}

// ArchivedChats returns a copy of the archived collection.
func (m *Manager) ArchivedChats() []store.Chat {
	m.mu.Lock()
	defer m.mu.Unlock()
	return cloneAll(m.archived)
}

// Settings returns the current settings.
func (m *Manager) Settings() store.Settings {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.settings
}

// Snapshot is the full in-memory state at one point in time.
type Snapshot struct {
	ActiveChats   []store.Chat   `json:"activeChats"`
	ArchivedChats []store.Chat   `json:"archivedChats"`
	CurrentChatID string         `json:"currentChatId"`
	Settings      store.Settings `json:"settings"`
}

// Snapshot returns a consistent copy of the whole state.
func (m *Manager) Snapshot() Snapshot {
	m.mu.Lock()
	defer m.mu.Unlock()
	return Snapshot{
		ActiveChats:   cloneAll(m.active),
		ArchivedChats: cloneAll(m.archived),
		CurrentChatID: m.currentID,
		Settings:      m.settings,
	}
}

// =============================================================================
// Helpers
// =============================================================================

func indexOf(chats []store.Chat, id string) int {
	for i := range chats {
		if chats[i].ID == id {
			return i
		}
	}
	return -1
}

func removeAt(chats []store.Chat, i int) []store.Chat {
	out := make([]store.Chat, 0, len(chats)-1)
	out = append(out, chats[:i]...)
	return append(out, chats[i+1:]...)
}

func cloneAll(chats []store.Chat) []store.Chat {
	out := make([]store.Chat, len(chats))
	for i := range chats {
		out[i] = chats[i].Clone()
	}
	return out
}

func idSet(chats []store.Chat) map[string]struct{} {
	ids := make(map[string]struct{}, len(chats))
	for _, c := range chats {
		ids[c.ID] = struct{}{}
	}
	return ids
}
