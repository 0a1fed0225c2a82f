package chat

import (
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kittclouds/chatsession/internal/store"
	"github.com/kittclouds/chatsession/pkg/docstore"
)

func TestExportImportRoundTrip(t *testing.T) {
	src, _ := newTestManager(t)
	src.AddMessage(store.Message{Role: store.RoleUser, Content: "hello"})
	b := src.CreateChat("b")
	src.SaveChat(b.ID)
	old := src.CreateChat("old")
	src.ArchiveChat(old.ID)
	require.NoError(t, src.UpdateSettings(store.Settings{Theme: store.ThemeDark, AutoSave: false, MaxRecentChats: 7}))

	data, err := src.Export("")
	require.NoError(t, err)

	dst, _ := newTestManager(t)
	require.NoError(t, dst.Import(data))
	checkInvariants(t, dst)

	want := src.ExportAll()
	got := dst.ExportAll()
	assert.Equal(t, want.ActiveChats, got.ActiveChats)
	assert.Equal(t, want.ArchivedChats, got.ArchivedChats)
	assert.Equal(t, want.Settings, got.Settings)
}

func TestExportIsIndented(t *testing.T) {
	m, _ := newTestManager(t)
	data, err := m.Export("")
	require.NoError(t, err)
	assert.Contains(t, string(data), "\n  \"activeChats\"")
}

func TestExportSingleChat(t *testing.T) {
	m, _ := newTestManager(t)
	a := m.CurrentChat()
	b := m.CreateChat("b")
	m.ArchiveChat(b.ID)

	data, err := m.Export(a.ID)
	require.NoError(t, err)
	var got store.Chat
	require.NoError(t, json.Unmarshal(data, &got))
	assert.Equal(t, a.ID, got.ID)

	data, err = m.Export(b.ID)
	require.NoError(t, err)
	require.NoError(t, json.Unmarshal(data, &got))
	assert.True(t, got.IsArchived)

	_, err = m.Export("nope")
	assert.ErrorIs(t, err, ErrChatNotFound)
}

func TestImportSingleChatKeepsCurrent(t *testing.T) {
	m, _ := newTestManager(t)
	current := m.CurrentChatID()

	doc := `{"id":"chat_ext","name":"External","messages":[{"id":"m","content":"x","role":"user"}],"isArchived":true,"messageCount":42}`
	require.NoError(t, m.Import([]byte(doc)))
	checkInvariants(t, m)

	assert.Equal(t, current, m.CurrentChatID())
	chats := m.ActiveChats()
	require.Len(t, chats, 2)
	imported := chats[1]
	assert.Equal(t, "chat_ext", imported.ID)
	assert.False(t, imported.IsArchived)
	assert.Equal(t, 1, imported.MessageCount)
	assert.NotZero(t, imported.CreatedAt)
}

func TestImportSingleChatCollisionGetsFreshID(t *testing.T) {
	m, _ := newTestManager(t)
	existing := m.CurrentChat()

	data, err := m.Export(existing.ID)
	require.NoError(t, err)
	require.NoError(t, m.Import(data))
	checkInvariants(t, m)

	chats := m.ActiveChats()
	require.Len(t, chats, 2)
	assert.NotEqual(t, existing.ID, chats[1].ID)
	assert.Equal(t, existing.Name, chats[1].Name)
}

func TestImportRejectsInvalidDocuments(t *testing.T) {
	for name, doc := range map[string]string{
		"unknown shape":         `{"foo":1}`,
		"not json":              `{{`,
		"array":                 `[1,2]`,
		"null":                  `null`,
		"chat without id":       `{"messages":[]}`,
		"messages not array":    `{"id":"x","messages":"nope"}`,
		"bad archived":          `{"activeChats":[],"archivedChats":{}}`,
		"bad settings":          `{"activeChats":[],"settings":{"theme":"neon","maxRecentChats":1}}`,
		"bad chat entry":        `{"activeChats":[{"id":7}]}`,
		"unknown role single":   `{"id":"q","messages":[{"id":"m","role":"nope"}]}`,
		"unknown role active":   `{"activeChats":[{"id":"q","messages":[{"id":"m","role":"narrator"}]}]}`,
		"missing role archived": `{"activeChats":[],"archivedChats":[{"id":"q","messages":[{"id":"m"}]}]}`,
	} {
		t.Run(name, func(t *testing.T) {
			m, s := newTestManager(t)
			m.CreateChat("keep me")
			before := m.Snapshot()
			versions := map[string]int64{}
			for _, k := range store.AllKeys {
				versions[k] = s.Version(k)
			}

			err := m.Import([]byte(doc))
			require.Error(t, err)
			assert.True(t, errors.Is(err, ErrImportValidation))
			var ie *ImportError
			assert.True(t, errors.As(err, &ie))

			assert.Equal(t, before, m.Snapshot(), "rejected import must not change state")
			for _, k := range store.AllKeys {
				assert.Equal(t, versions[k], s.Version(k), "rejected import must not write %s", k)
			}
		})
	}
}

func TestImportLegacyChatsKey(t *testing.T) {
	m, _ := newTestManager(t)
	oldArchived := m.CreateChat("archived")
	m.ArchiveChat(oldArchived.ID)

	doc := `{"chats":[{"id":"l1","name":"Legacy","messages":[],"createdAt":1000,"updatedAt":2000}]}`
	require.NoError(t, m.Import([]byte(doc)))
	checkInvariants(t, m)

	chats := m.ActiveChats()
	require.Len(t, chats, 1)
	assert.Equal(t, "l1", chats[0].ID)
	assert.Equal(t, "l1", m.CurrentChatID(), "stale current id is repaired")

	// No archivedChats in the document keeps the existing archive.
	arch := m.ArchivedChats()
	require.Len(t, arch, 1)
	assert.Equal(t, oldArchived.ID, arch[0].ID)
	assert.Equal(t, store.DefaultSettings(), m.Settings())
}

func TestImportFullWithEmptyActiveCreatesDefault(t *testing.T) {
	m, _ := newTestManager(t)
	require.NoError(t, m.Import([]byte(`{"activeChats":[],"archivedChats":[]}`)))
	checkInvariants(t, m)
	assert.Len(t, m.ActiveChats(), 1)
	assert.Empty(t, m.ArchivedChats())
}

func TestImportFullDedupesIDs(t *testing.T) {
	m, _ := newTestManager(t)
	doc := `{
		"activeChats":[{"id":"d","name":"one","messages":[]},{"id":"d","name":"two","messages":[]}],
		"archivedChats":[{"id":"d","name":"three","messages":[]}]
	}`
	require.NoError(t, m.Import([]byte(doc)))
	checkInvariants(t, m)

	chats := m.ActiveChats()
	require.Len(t, chats, 1, "first occurrence wins")
	assert.Equal(t, "d", chats[0].ID)
	assert.Equal(t, "one", chats[0].Name)
	assert.Empty(t, m.ArchivedChats(), "archived copy of an active id is dropped")
}

func TestImportFullDropsKeptArchivedCollision(t *testing.T) {
	m, _ := newTestManager(t)
	x := m.CreateChat("x")
	y := m.CreateChat("y")
	m.ArchiveChat(x.ID)
	m.ArchiveChat(y.ID)

	doc := `{"activeChats":[{"id":"` + x.ID + `","name":"imported x","messages":[]}]}`
	require.NoError(t, m.Import([]byte(doc)))
	checkInvariants(t, m)

	chats := m.ActiveChats()
	require.Len(t, chats, 1)
	assert.Equal(t, x.ID, chats[0].ID, "imported ids are kept as written")
	assert.Equal(t, "imported x", chats[0].Name)

	arch := m.ArchivedChats()
	require.Len(t, arch, 1, "colliding archived chat is dropped, not renamed")
	assert.Equal(t, y.ID, arch[0].ID)
	assert.Equal(t, "y", arch[0].Name)
}

func TestImportKeepsOffsetlessTimestamps(t *testing.T) {
	m, _ := newTestManager(t)
	doc := `{"activeChats":[{"id":"t","name":"local","messages":[` +
		`{"id":"m","content":"x","role":"user","timestamp":"2024-01-01T10:00:00"}]}]}`
	require.NoError(t, m.Import([]byte(doc)))
	checkInvariants(t, m)

	cur := m.CurrentChat()
	assert.Equal(t, "t", cur.ID)
	require.Len(t, cur.Messages, 1)
	assert.Equal(t, "2024-01-01T10:00:00", cur.Messages[0].Timestamp)

	data, err := m.Export("t")
	require.NoError(t, err)
	assert.Contains(t, string(data), `"timestamp": "2024-01-01T10:00:00"`, "exported verbatim")
}

func TestImportPersists(t *testing.T) {
	s := docstore.New()
	m := NewManager(s, WithClock(newStepClock().Now))
	doc := `{"activeChats":[{"id":"p","name":"persisted","messages":[]}],"settings":{"theme":"auto","autoSave":true,"maxRecentChats":3}}`
	require.NoError(t, m.Import([]byte(doc)))

	reloaded := NewManager(s)
	assert.Equal(t, "p", reloaded.CurrentChatID())
	assert.Equal(t, store.ThemeAuto, reloaded.Settings().Theme)
}

func TestExportFileName(t *testing.T) {
	now := time.UnixMilli(1700000000123)
	assert.Equal(t, "all_chats_1700000000123.json", ExportFileName("", now))
	assert.Equal(t, "chat_chat_1_abc_1700000000123.json", ExportFileName("chat_1_abc", now))
}
