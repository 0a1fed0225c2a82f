package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/kittclouds/chatsession/internal/store"
	"github.com/kittclouds/chatsession/pkg/chat"
	"github.com/kittclouds/chatsession/pkg/response"
)

// =============================================================================
// Listing
// =============================================================================

func (a *app) listCmd() *cobra.Command {
	var archived bool
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List active chats, or archived chats with --archived",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			if archived {
				printSummaries(cmd.OutOrStdout(), a.mgr.ArchivedChats(), "")
				return
			}
			printSummaries(cmd.OutOrStdout(), a.mgr.ActiveChats(), a.mgr.CurrentChatID())
		},
	}
	cmd.Flags().BoolVar(&archived, "archived", false, "list archived chats")
	return cmd
}

func (a *app) currentCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "current",
		Short: "Show the current chat with its messages",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			printChat(cmd.OutOrStdout(), a.mgr.CurrentChat())
		},
	}
}

func (a *app) recentCmd() *cobra.Command {
	var limit int
	cmd := &cobra.Command{
		Use:   "recent",
		Short: "List the most recently updated chats",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			if limit <= 0 {
				limit = a.cfg.RecentLimit
			}
			printSummaries(cmd.OutOrStdout(), a.mgr.RecentChats(limit), a.mgr.CurrentChatID())
		},
	}
	cmd.Flags().IntVarP(&limit, "limit", "n", 0, "maximum chats to show (default CHATSESSION_RECENT_LIMIT)")
	return cmd
}

func (a *app) savedCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "saved",
		Short: "List chats flagged as saved",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			printSummaries(cmd.OutOrStdout(), a.mgr.SavedChats(), a.mgr.CurrentChatID())
		},
	}
}

func (a *app) statsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Show session analytics",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return printJSON(cmd.OutOrStdout(), a.mgr.Analytics())
		},
	}
}

func (a *app) searchCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "search <query...>",
		Short: "Search chat names and messages",
		Args:  cobra.MinimumNArgs(1),
		Run: func(cmd *cobra.Command, args []string) {
			out := cmd.OutOrStdout()
			hits := a.mgr.Search(strings.Join(args, " "))
			if len(hits) == 0 {
				fmt.Fprintln(out, "no matches")
				return
			}
			for _, h := range hits {
				fmt.Fprintf(out, "%-36s %3d  %s  [%s]\n", h.Chat.ID, h.Matches, h.Chat.Name, strings.Join(h.Terms, ", "))
			}
		},
	}
}

// =============================================================================
// Mutations
// =============================================================================

func (a *app) newCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "new [name]",
		Short: "Create a chat and make it current",
		Args:  cobra.MaximumNArgs(1),
		Run: func(cmd *cobra.Command, args []string) {
			name := ""
			if len(args) == 1 {
				name = args[0]
			}
			c := a.mgr.CreateChat(name)
			fmt.Fprintf(cmd.OutOrStdout(), "created %s (%s)\n", c.ID, c.Name)
		},
	}
}

func (a *app) renameCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "rename <chat-id> <name>",
		Short: "Rename a chat",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.requireActive(args[0]); err != nil {
				return err
			}
			a.mgr.RenameChat(args[0], args[1])
			return nil
		},
	}
}

func (a *app) sayCmd() *cobra.Command {
	var role string
	cmd := &cobra.Command{
		Use:   "say <text...>",
		Short: "Append a message to the current chat",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			r := store.Role(role)
			if !r.Valid() {
				return fmt.Errorf("invalid role %q", role)
			}
			a.mgr.AddMessage(chat.NewMessage(r, strings.Join(args, " "), time.Now()))
			c := a.mgr.CurrentChat()
			fmt.Fprintf(cmd.OutOrStdout(), "%s: %d messages\n", c.Name, c.MessageCount)
			return nil
		},
	}
	cmd.Flags().StringVarP(&role, "role", "r", string(store.RoleUser), "message role: user, assistant or system")
	return cmd
}

func (a *app) clearCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "clear",
		Short: "Remove every message from the current chat",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			a.mgr.ClearMessages()
		},
	}
}

func (a *app) saveCmd() *cobra.Command {
	return a.idCmd("save", "Flag a chat as saved", func(id string) { a.mgr.SaveChat(id) })
}

func (a *app) archiveCmd() *cobra.Command {
	return a.idCmd("archive", "Move a chat to the archive", func(id string) { a.mgr.ArchiveChat(id) })
}

func (a *app) deleteCmd() *cobra.Command {
	return a.idCmd("delete", "Permanently delete an active chat", func(id string) { a.mgr.DeleteChat(id) })
}

func (a *app) unarchiveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "unarchive <chat-id>",
		Short: "Restore an archived chat",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			for _, c := range a.mgr.ArchivedChats() {
				if c.ID == args[0] {
					a.mgr.UnarchiveChat(c.ID)
					return nil
				}
			}
			return fmt.Errorf("%w: %s", chat.ErrChatNotFound, args[0])
		},
	}
}

func (a *app) switchCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "switch <chat-id>",
		Short: "Make a chat current",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.requireActive(args[0]); err != nil {
				return err
			}
			a.mgr.SwitchChat(args[0])
			return nil
		},
	}
}

func (a *app) settingsCmd() *cobra.Command {
	var theme string
	var autoSave bool
	var maxRecent int
	cmd := &cobra.Command{
		Use:   "settings",
		Short: "Show or change settings",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			s := a.mgr.Settings()
			flags := cmd.Flags()
			changed := false
			if flags.Changed("theme") {
				s.Theme = store.Theme(theme)
				changed = true
			}
			if flags.Changed("auto-save") {
				s.AutoSave = autoSave
				changed = true
			}
			if flags.Changed("max-recent") {
				s.MaxRecentChats = maxRecent
				changed = true
			}
			if changed {
				if err := a.mgr.UpdateSettings(s); err != nil {
					return err
				}
			}
			return printJSON(cmd.OutOrStdout(), a.mgr.Settings())
		},
	}
	cmd.Flags().StringVar(&theme, "theme", "", "light, dark or auto")
	cmd.Flags().BoolVar(&autoSave, "auto-save", true, "enable auto save")
	cmd.Flags().IntVar(&maxRecent, "max-recent", 0, "maximum recent chats")
	return cmd
}

// =============================================================================
// Import / export
// =============================================================================

func (a *app) exportCmd() *cobra.Command {
	var output string
	cmd := &cobra.Command{
		Use:   "export [chat-id]",
		Short: "Export one chat, or everything when no id is given",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id := ""
			if len(args) == 1 {
				id = args[0]
			}
			data, err := a.mgr.Export(id)
			if err != nil {
				return err
			}

			switch output {
			case "-":
				_, err = cmd.OutOrStdout().Write(append(data, '\n'))
				return err
			case "":
				output = chat.ExportFileName(id, time.Now())
			}
			if err := os.WriteFile(output, data, 0o644); err != nil {
				return fmt.Errorf("failed to write export: %w", err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), "wrote", output)
			return nil
		},
	}
	cmd.Flags().StringVarP(&output, "output", "o", "", "output file, - for stdout (default: generated name)")
	return cmd
}

func (a *app) importCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "import <file|->",
		Short: "Import a full export or a single chat",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var data []byte
			var err error
			if args[0] == "-" {
				data, err = io.ReadAll(cmd.InOrStdin())
			} else {
				data, err = os.ReadFile(args[0])
			}
			if err != nil {
				return fmt.Errorf("failed to read import: %w", err)
			}
			if err := a.mgr.Import(data); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "imported: %d active, %d archived\n",
				len(a.mgr.ActiveChats()), len(a.mgr.ArchivedChats()))
			return nil
		},
	}
}

// =============================================================================
// Helpers
// =============================================================================

func (a *app) idCmd(use, short string, fn func(id string)) *cobra.Command {
	return &cobra.Command{
		Use:   use + " <chat-id>",
		Short: short,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.requireActive(args[0]); err != nil {
				return err
			}
			fn(args[0])
			return nil
		},
	}
}

// requireActive reports unknown ids to the user. The manager itself treats
// them as no-ops.
func (a *app) requireActive(id string) error {
	for _, c := range a.mgr.ActiveChats() {
		if c.ID == id {
			return nil
		}
	}
	return fmt.Errorf("%w: %s", chat.ErrChatNotFound, id)
}

func printSummaries(w io.Writer, chats []store.Chat, currentID string) {
	if len(chats) == 0 {
		fmt.Fprintln(w, "no chats")
		return
	}
	for _, s := range response.Summaries(chats) {
		marker := " "
		if s.ID == currentID {
			marker = "*"
		}
		flags := ""
		if s.IsSaved {
			flags = " [saved]"
		}
		fmt.Fprintf(w, "%s %-36s %4d  %s%s\n", marker, s.ID, s.MessageCount, s.Name, flags)
		if s.LastMessage != "" {
			fmt.Fprintf(w, "      %s\n", s.LastMessage)
		}
	}
}

func printChat(w io.Writer, c store.Chat) {
	fmt.Fprintf(w, "%s  %s (%d messages)\n", c.ID, c.Name, c.MessageCount)
	for _, m := range c.Messages {
		stamp := m.Timestamp
		if t, ok := m.Time(); ok {
			stamp = t.Local().Format(time.Kitchen)
		}
		fmt.Fprintf(w, "[%s] %s: %s\n", stamp, m.Role, m.Content)
	}
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
