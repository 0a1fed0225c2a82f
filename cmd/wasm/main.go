//go:build js && wasm

package main

import (
	"encoding/json"
	"fmt"
	"syscall/js"
	"time"

	"github.com/rs/zerolog"

	"github.com/kittclouds/chatsession/internal/logger"
	"github.com/kittclouds/chatsession/internal/store"
	"github.com/kittclouds/chatsession/pkg/chat"
	"github.com/kittclouds/chatsession/pkg/docstore"
	"github.com/kittclouds/chatsession/pkg/response"
)

// Version info
const Version = "1.0.0"

// Global state
var mgr *chat.Manager
var snapshots snapshotter // set for the sqlite and memory backends
var log = zerolog.Nop()

func main() {
	fmt.Println("[ChatSession] WASM Ready v" + Version)

	js.Global().Set("ChatSession", js.ValueOf(map[string]interface{}{
		"version": js.FuncOf(getVersion),
		"init":    js.FuncOf(initialize),

		// Session mutations
		"createChat":      js.FuncOf(createChat),
		"renameChat":      js.FuncOf(renameChat),
		"addMessage":      js.FuncOf(addMessage),
		"replaceMessages": js.FuncOf(replaceMessages),
		"saveChat":        js.FuncOf(saveChat),
		"clearMessages":   js.FuncOf(clearMessages),
		"archiveChat":     js.FuncOf(archiveChat),
		"unarchiveChat":   js.FuncOf(unarchiveChat),
		"deleteChat":      js.FuncOf(deleteChat),
		"switchChat":      js.FuncOf(switchChat),
		"updateSettings":  js.FuncOf(updateSettings),

		// Reads
		"state":       js.FuncOf(state),
		"currentChat": js.FuncOf(currentChat),
		"recentChats": js.FuncOf(recentChats),
		"savedChats":  js.FuncOf(savedChats),
		"analytics":   js.FuncOf(analytics),
		"search":      js.FuncOf(search),

		// Import / export
		"exportData":     js.FuncOf(exportData),
		"importData":     js.FuncOf(importData),
		"exportFileName": js.FuncOf(exportFileName),

		// Store snapshot (OPFS sync)
		"storeExport": js.FuncOf(storeExport),
	}))

	// Keep alive
	select {}
}

func getVersion(this js.Value, args []js.Value) interface{} {
	return Version
}

// initialize opens the session.
// Args: [optionsJSON string?] - {backend?: "localStorage"|"sqlite"|"memory",
// snapshot?: string, logLevel?: string}
func initialize(this js.Value, args []js.Value) interface{} {
	var opts struct {
		Backend  string `json:"backend"`
		Snapshot string `json:"snapshot"`
		LogLevel string `json:"logLevel"`
	}
	if len(args) > 0 && args[0].Type() == js.TypeString && args[0].String() != "" {
		if err := json.Unmarshal([]byte(args[0].String()), &opts); err != nil {
			return errorResult(fmt.Sprintf("init: invalid options: %v", err))
		}
	}

	log = logger.New(logger.Config{Level: opts.LogLevel})

	if mgr != nil {
		if err := mgr.Close(); err != nil {
			log.Warn().Err(err).Msg("failed to close previous session")
		}
		mgr, snapshots = nil, nil
	}

	var backend store.SliceStore
	switch opts.Backend {
	case "", "localStorage":
		ls, err := NewLocalStorage()
		if err != nil {
			return errorResult(fmt.Sprintf("init: %v", err))
		}
		backend = ls
	case "sqlite":
		s, err := store.NewSQLiteStore()
		if err != nil {
			return errorResult(fmt.Sprintf("init: %v", err))
		}
		if opts.Snapshot != "" {
			if err := s.Import([]byte(opts.Snapshot)); err != nil {
				s.Close()
				return errorResult(fmt.Sprintf("init: failed to restore snapshot: %v", err))
			}
		}
		snapshots = s
		backend = s
	case "memory":
		docs := docstore.New()
		n, err := docs.Import([]byte(opts.Snapshot))
		if err != nil {
			return errorResult(fmt.Sprintf("init: failed to restore snapshot: %v", err))
		}
		log.Debug().Int("slices", n).Msg("memory store hydrated")
		snapshots = docs
		backend = docs
	default:
		return errorResult(fmt.Sprintf("init: unknown backend %q", opts.Backend))
	}

	mgr = chat.NewManager(backend, chat.WithLogger(log))
	log.Info().Str("backend", opts.Backend).Msg("session initialized")
	return jsonResult(mgr.Snapshot())
}

// =============================================================================
// Session mutations
// =============================================================================

// createChat creates a chat and makes it current.
// Args: [name string?]
func createChat(this js.Value, args []js.Value) interface{} {
	if mgr == nil {
		return errorResult("session not initialized")
	}
	name := ""
	if len(args) > 0 && args[0].Type() == js.TypeString {
		name = args[0].String()
	}
	return jsonResult(mgr.CreateChat(name))
}

// Args: [chatId string, newName string]
func renameChat(this js.Value, args []js.Value) interface{} {
	if mgr == nil {
		return errorResult("session not initialized")
	}
	if len(args) < 2 {
		return errorResult("renameChat requires 2 args: chatId, newName")
	}
	mgr.RenameChat(args[0].String(), args[1].String())
	return successResult("renamed")
}

// addMessage appends to the current chat.
// Args: [messageJSON string] - {id?, content, role, timestamp?}
func addMessage(this js.Value, args []js.Value) interface{} {
	if mgr == nil {
		return errorResult("session not initialized")
	}
	if len(args) < 1 {
		return errorResult("addMessage requires 1 arg: messageJSON")
	}

	var msg store.Message
	if err := json.Unmarshal([]byte(args[0].String()), &msg); err != nil {
		return errorResult(fmt.Sprintf("addMessage: invalid message: %v", err))
	}
	if !msg.Role.Valid() {
		return errorResult(fmt.Sprintf("addMessage: invalid role %q", msg.Role))
	}
	mgr.AddMessage(msg)
	return jsonResult(mgr.CurrentChat())
}

// Args: [messagesJSON string] - array of messages
func replaceMessages(this js.Value, args []js.Value) interface{} {
	if mgr == nil {
		return errorResult("session not initialized")
	}
	if len(args) < 1 {
		return errorResult("replaceMessages requires 1 arg: messagesJSON")
	}

	var msgs []store.Message
	if err := json.Unmarshal([]byte(args[0].String()), &msgs); err != nil {
		return errorResult(fmt.Sprintf("replaceMessages: invalid messages: %v", err))
	}
	mgr.ReplaceMessages(msgs)
	return jsonResult(mgr.CurrentChat())
}

// Args: [chatId string]
func saveChat(this js.Value, args []js.Value) interface{} {
	return withChatID("saveChat", args, func(id string) { mgr.SaveChat(id) }, "saved")
}

func clearMessages(this js.Value, args []js.Value) interface{} {
	if mgr == nil {
		return errorResult("session not initialized")
	}
	mgr.ClearMessages()
	return successResult("cleared")
}

// Args: [chatId string]
func archiveChat(this js.Value, args []js.Value) interface{} {
	return withChatID("archiveChat", args, func(id string) { mgr.ArchiveChat(id) }, "archived")
}

// Args: [chatId string]
func unarchiveChat(this js.Value, args []js.Value) interface{} {
	return withChatID("unarchiveChat", args, func(id string) { mgr.UnarchiveChat(id) }, "unarchived")
}

// Args: [chatId string]
func deleteChat(this js.Value, args []js.Value) interface{} {
	return withChatID("deleteChat", args, func(id string) { mgr.DeleteChat(id) }, "deleted")
}

// Args: [chatId string]
func switchChat(this js.Value, args []js.Value) interface{} {
	if mgr == nil {
		return errorResult("session not initialized")
	}
	if len(args) < 1 {
		return errorResult("switchChat requires 1 arg: chatId")
	}
	mgr.SwitchChat(args[0].String())
	return jsonResult(mgr.CurrentChat())
}

// Args: [settingsJSON string] - fields left out keep their current value
func updateSettings(this js.Value, args []js.Value) interface{} {
	if mgr == nil {
		return errorResult("session not initialized")
	}
	if len(args) < 1 {
		return errorResult("updateSettings requires 1 arg: settingsJSON")
	}

	s := mgr.Settings()
	if err := json.Unmarshal([]byte(args[0].String()), &s); err != nil {
		return errorResult(fmt.Sprintf("updateSettings: invalid settings: %v", err))
	}
	if err := mgr.UpdateSettings(s); err != nil {
		return errorResult(err.Error())
	}
	return jsonResult(s)
}

// =============================================================================
// Reads
// =============================================================================

func state(this js.Value, args []js.Value) interface{} {
	if mgr == nil {
		return errorResult("session not initialized")
	}
	return jsonResult(mgr.Snapshot())
}

func currentChat(this js.Value, args []js.Value) interface{} {
	if mgr == nil {
		return errorResult("session not initialized")
	}
	return jsonResult(mgr.CurrentChat())
}

// recentChats returns slim summaries for the sidebar.
// Args: [limit number?]
func recentChats(this js.Value, args []js.Value) interface{} {
	if mgr == nil {
		return errorResult("session not initialized")
	}
	limit := 0
	if len(args) > 0 && args[0].Type() == js.TypeNumber {
		limit = args[0].Int()
	}
	return summariesResult(mgr.RecentChats(limit))
}

func savedChats(this js.Value, args []js.Value) interface{} {
	if mgr == nil {
		return errorResult("session not initialized")
	}
	return summariesResult(mgr.SavedChats())
}

func analytics(this js.Value, args []js.Value) interface{} {
	if mgr == nil {
		return errorResult("session not initialized")
	}
	return jsonResult(mgr.Analytics())
}

// Args: [query string]
func search(this js.Value, args []js.Value) interface{} {
	if mgr == nil {
		return errorResult("session not initialized")
	}
	if len(args) < 1 {
		return errorResult("search requires 1 arg: query")
	}
	hits := mgr.Search(args[0].String())
	if hits == nil {
		hits = []chat.SearchHit{}
	}
	return jsonResult(hits)
}

// =============================================================================
// Import / export
// =============================================================================

// exportData returns the export document as a string.
// Args: [chatId string?] - omitted or empty exports everything
func exportData(this js.Value, args []js.Value) interface{} {
	if mgr == nil {
		return errorResult("session not initialized")
	}
	data, err := mgr.Export(optionalString(args))
	if err != nil {
		return errorResult(err.Error())
	}
	return string(data)
}

// Args: [documentJSON string]
func importData(this js.Value, args []js.Value) interface{} {
	if mgr == nil {
		return errorResult("session not initialized")
	}
	if len(args) < 1 {
		return errorResult("importData requires 1 arg: documentJSON")
	}
	if err := mgr.Import([]byte(args[0].String())); err != nil {
		return errorResult(err.Error())
	}
	return jsonResult(mgr.Snapshot())
}

// Args: [chatId string?]
func exportFileName(this js.Value, args []js.Value) interface{} {
	return chat.ExportFileName(optionalString(args), time.Now())
}

// storeExport returns every persisted slice as a key -> value object, the
// format init accepts as "snapshot".
func storeExport(this js.Value, args []js.Value) interface{} {
	if snapshots == nil {
		return errorResult("storeExport: localStorage backend has no snapshot")
	}
	if mgr != nil {
		if err := mgr.Flush(); err != nil {
			return errorResult(err.Error())
		}
	}
	data, err := snapshots.Export()
	if err != nil {
		return errorResult(err.Error())
	}
	return string(data)
}

// =============================================================================
// Helpers
// =============================================================================

// snapshotter is a store that can serialize all of its slices.
type snapshotter interface {
	Export() ([]byte, error)
}

func summariesResult(chats []store.Chat) interface{} {
	data, err := response.MarshalSummaries(chats)
	if err != nil {
		return errorResult(err.Error())
	}
	return string(data)
}

func withChatID(name string, args []js.Value, fn func(id string), done string) interface{} {
	if mgr == nil {
		return errorResult("session not initialized")
	}
	if len(args) < 1 {
		return errorResult(name + " requires 1 arg: chatId")
	}
	fn(args[0].String())
	return successResult(done)
}

func optionalString(args []js.Value) string {
	if len(args) > 0 && args[0].Type() == js.TypeString {
		return args[0].String()
	}
	return ""
}

func jsonResult(v interface{}) interface{} {
	jsonBytes, err := json.Marshal(v)
	if err != nil {
		return errorResult(err.Error())
	}
	return string(jsonBytes)
}

// Helper: Create error result
func errorResult(msg string) interface{} {
	result := map[string]interface{}{
		"error": msg,
	}
	jsonBytes, _ := json.Marshal(result)
	return string(jsonBytes)
}

// Helper: Create success result
func successResult(msg string) interface{} {
	result := map[string]interface{}{
		"success": msg,
	}
	jsonBytes, _ := json.Marshal(result)
	return string(jsonBytes)
}
