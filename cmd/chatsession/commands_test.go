package main

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kittclouds/chatsession/pkg/chat"
)

// execute runs one command line against the database at dsn and returns
// what it printed.
func execute(t *testing.T, dsn string, args ...string) (string, error) {
	t.Helper()
	t.Setenv("CHATSESSION_LOG_LEVEL", "disabled")

	a := &app{}
	root := a.rootCmd()
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetArgs(append([]string{"--db", dsn}, args...))

	err := root.Execute()
	if a.mgr != nil {
		require.NoError(t, a.mgr.Close())
	}
	return out.String(), err
}

func TestCLISessionPersistsAcrossRuns(t *testing.T) {
	dsn := filepath.Join(t.TempDir(), "session.db")

	out, err := execute(t, dsn, "new", "Groceries")
	require.NoError(t, err)
	require.True(t, strings.HasPrefix(out, "created chat_"), out)

	_, err = execute(t, dsn, "say", "buy", "milk")
	require.NoError(t, err)

	out, err = execute(t, dsn, "current")
	require.NoError(t, err)
	assert.Contains(t, out, "Groceries (1 messages)")
	assert.Contains(t, out, "user: buy milk")

	out, err = execute(t, dsn, "list")
	require.NoError(t, err)
	assert.Contains(t, out, "* chat_")
	assert.Contains(t, out, "buy milk")

	out, err = execute(t, dsn, "search", "milk")
	require.NoError(t, err)
	assert.Contains(t, out, "Groceries")
}

func TestCLIRejectsUnknownIDs(t *testing.T) {
	dsn := filepath.Join(t.TempDir(), "session.db")

	_, err := execute(t, dsn, "archive", "chat_missing")
	assert.ErrorIs(t, err, chat.ErrChatNotFound)

	_, err = execute(t, dsn, "unarchive", "chat_missing")
	assert.ErrorIs(t, err, chat.ErrChatNotFound)
}

func TestCLISettings(t *testing.T) {
	dsn := filepath.Join(t.TempDir(), "session.db")

	out, err := execute(t, dsn, "settings", "--theme", "dark", "--max-recent", "3")
	require.NoError(t, err)

	var got map[string]any
	require.NoError(t, json.Unmarshal([]byte(out), &got))
	assert.Equal(t, "dark", got["theme"])
	assert.Equal(t, float64(3), got["maxRecentChats"])
	assert.Equal(t, true, got["autoSave"])

	_, err = execute(t, dsn, "settings", "--theme", "neon")
	assert.ErrorIs(t, err, chat.ErrInvalidSettings)
}

func TestCLIExportImport(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "src.db")
	dst := filepath.Join(dir, "dst.db")
	exported := filepath.Join(dir, "export.json")

	_, err := execute(t, src, "new", "Exported chat")
	require.NoError(t, err)
	_, err = execute(t, src, "export", "-o", exported)
	require.NoError(t, err)

	out, err := execute(t, dst, "import", exported)
	require.NoError(t, err)
	assert.Contains(t, out, "imported: 2 active, 0 archived")

	out, err = execute(t, dst, "list")
	require.NoError(t, err)
	assert.Contains(t, out, "Exported chat")

	bad := filepath.Join(dir, "bad.json")
	require.NoError(t, os.WriteFile(bad, []byte(`{"foo":1}`), 0o644))
	_, err = execute(t, dst, "import", bad)
	assert.ErrorIs(t, err, chat.ErrImportValidation)
}
