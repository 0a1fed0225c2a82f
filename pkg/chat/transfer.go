package chat

import (
	"bytes"
	"encoding/json"
	"fmt"
	"time"

	"github.com/kittclouds/chatsession/internal/store"
)

// Envelope is the full-state export document.
type Envelope struct {
	ActiveChats   []store.Chat   `json:"activeChats"`
	ArchivedChats []store.Chat   `json:"archivedChats"`
	Settings      store.Settings `json:"settings"`
}

// =============================================================================
// Export
// =============================================================================

// ExportAll returns the full-state envelope.
func (m *Manager) ExportAll() Envelope {
	m.mu.Lock()
	defer m.mu.Unlock()

	return Envelope{
		ActiveChats:   cloneAll(m.active),
		ArchivedChats: cloneAll(m.archived),
		Settings:      m.settings,
	}
}

// Export serializes one chat, or the full envelope when chatID is empty.
// Archived chats can be exported individually too.
func (m *Manager) Export(chatID string) ([]byte, error) {
	if chatID == "" {
		return json.MarshalIndent(m.ExportAll(), "", "  ")
	}

	m.mu.Lock()
	c, ok := m.find(chatID)
	m.mu.Unlock()
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrChatNotFound, chatID)
	}
	return json.MarshalIndent(c, "", "  ")
}

// ExportFileName suggests a download name for an export made at now.
func ExportFileName(chatID string, now time.Time) string {
	if chatID == "" {
		return fmt.Sprintf("all_chats_%d.json", now.UnixMilli())
	}
	return fmt.Sprintf("chat_%s_%d.json", chatID, now.UnixMilli())
}

func (m *Manager) find(chatID string) (store.Chat, bool) {
	if i := indexOf(m.active, chatID); i >= 0 {
		return m.active[i].Clone(), true
	}
	if i := indexOf(m.archived, chatID); i >= 0 {
		return m.archived[i].Clone(), true
	}
	return store.Chat{}, false
}

// =============================================================================
// Import
// =============================================================================

// importDoc is a fully decoded and validated import document.
type importDoc struct {
	single *store.Chat

	active      []store.Chat
	archived    []store.Chat
	hasArchived bool
	settings    *store.Settings
}

// Import restores state from an export document.
//
// A JSON object with an array "activeChats" (or legacy "chats") replaces the
// active collection, and the archived collection and settings when present.
// Chat ids are kept as written: when an id appears more than once, the first
// active occurrence wins and later copies are dropped, including archived
// chats kept from before the import. Only chats with an empty id get a new
// one.
//
// An object with a string "id" and an array "messages" is appended as one
// active chat without moving the current pointer. It is a new copy, so it
// gets a fresh id when its id is already in use.
//
// Anything else, or any message with an unknown role, is rejected with an
// *ImportError and the state is left untouched.
func (m *Manager) Import(data []byte) error {
	doc, err := parseImport(data)
	if err != nil {
		m.log.Warn().Err(err).Msg("import rejected")
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.now()
	if doc.single != nil {
		c := *doc.single
		normalizeImported(&c, false, now)
		if _, taken := m.knownIDs()[c.ID]; taken || c.ID == "" {
			old := c.ID
			c.ID = generateID("chat", now)
			m.log.Debug().Str("imported_id", old).Str("chat_id", c.ID).Msg("imported chat id already in use, reassigned")
		}
		m.active = append(m.active, c)
		m.commit(store.KeyChats)
		m.log.Debug().Str("chat_id", c.ID).Msg("imported chat")
		return nil
	}

	seen := make(map[string]struct{})
	prepare := func(chats []store.Chat, archived bool) []store.Chat {
		out := make([]store.Chat, 0, len(chats))
		for _, c := range chats {
			if c.ID == "" {
				c.ID = generateID("chat", now)
			}
			if _, dup := seen[c.ID]; dup {
				m.log.Warn().Str("chat_id", c.ID).Bool("archived", archived).Msg("duplicate chat id in import, dropping later copy")
				continue
			}
			seen[c.ID] = struct{}{}
			normalizeImported(&c, archived, now)
			out = append(out, c)
		}
		return out
	}

	m.active = prepare(doc.active, false)
	if doc.hasArchived {
		m.archived = prepare(doc.archived, true)
	} else {
		m.archived = prepare(m.archived, true)
	}
	if doc.settings != nil {
		m.settings = *doc.settings
	}
	m.commit(store.AllKeys...)

	m.log.Debug().
		Int("active", len(m.active)).
		Int("archived", len(m.archived)).
		Msg("imported session")
	return nil
}

func (m *Manager) knownIDs() map[string]struct{} {
	ids := idSet(m.active)
	for _, c := range m.archived {
		ids[c.ID] = struct{}{}
	}
	return ids
}

// parseImport decodes data without touching any state.
func parseImport(data []byte) (*importDoc, error) {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(data, &fields); err != nil || fields == nil {
		return nil, importErr("document is not a JSON object", err)
	}

	for _, key := range []string{"activeChats", "chats"} {
		raw, ok := fields[key]
		if !ok || !isArray(raw) {
			continue
		}
		return parseFull(fields, raw, key)
	}

	if isSingleChat(fields) {
		var c store.Chat
		if err := json.Unmarshal(data, &c); err != nil {
			return nil, importErr("invalid chat", err)
		}
		if err := checkRoles(c); err != nil {
			return nil, err
		}
		return &importDoc{single: &c}, nil
	}

	return nil, importErr("document is neither a full export nor a single chat", nil)
}

func parseFull(fields map[string]json.RawMessage, activeRaw json.RawMessage, key string) (*importDoc, error) {
	doc := &importDoc{}
	if err := json.Unmarshal(activeRaw, &doc.active); err != nil {
		return nil, importErr("invalid "+key, err)
	}

	if raw, ok := fields["archivedChats"]; ok && !isNull(raw) {
		if !isArray(raw) {
			return nil, importErr("archivedChats must be an array", nil)
		}
		if err := json.Unmarshal(raw, &doc.archived); err != nil {
			return nil, importErr("invalid archivedChats", err)
		}
		doc.hasArchived = true
	}

	for _, chats := range [][]store.Chat{doc.active, doc.archived} {
		for _, c := range chats {
			if err := checkRoles(c); err != nil {
				return nil, err
			}
		}
	}

	if raw, ok := fields["settings"]; ok && !isNull(raw) {
		s := store.DefaultSettings()
		if err := json.Unmarshal(raw, &s); err != nil {
			return nil, importErr("invalid settings", err)
		}
		if err := s.Validate(); err != nil {
			return nil, importErr("invalid settings", err)
		}
		doc.settings = &s
	}

	return doc, nil
}

func checkRoles(c store.Chat) error {
	for i, msg := range c.Messages {
		if !msg.Role.Valid() {
			return importErr(fmt.Sprintf("chat %q message %d has unknown role %q", c.ID, i, msg.Role), nil)
		}
	}
	return nil
}

func isSingleChat(fields map[string]json.RawMessage) bool {
	rawID, ok := fields["id"]
	if !ok {
		return false
	}
	var id string
	if err := json.Unmarshal(rawID, &id); err != nil || id == "" {
		return false
	}
	msgs, ok := fields["messages"]
	return ok && isArray(msgs)
}

// normalizeImported enforces the collection flag, the cached count and
// sensible defaults for fields older exports may lack.
func normalizeImported(c *store.Chat, archived bool, now time.Time) {
	c.IsArchived = archived
	c.SyncCount()
	if c.CreatedAt == 0 {
		c.CreatedAt = now.UnixMilli()
	}
	if c.UpdatedAt == 0 {
		c.UpdatedAt = c.CreatedAt
	}
	if c.Name == "" {
		c.Name = DefaultName(time.UnixMilli(c.CreatedAt).In(now.Location()))
	}
}

func isArray(raw json.RawMessage) bool {
	trimmed := bytes.TrimSpace(raw)
	return len(trimmed) > 0 && trimmed[0] == '['
}

func isNull(raw json.RawMessage) bool {
	return bytes.Equal(bytes.TrimSpace(raw), []byte("null"))
}
