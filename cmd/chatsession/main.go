// Command chatsession manages a persisted chat session from the terminal.
package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/kittclouds/chatsession/internal/config"
	"github.com/kittclouds/chatsession/internal/logger"
	"github.com/kittclouds/chatsession/internal/store"
	"github.com/kittclouds/chatsession/pkg/chat"
)

// app carries what every subcommand needs once the root pre-run has finished.
type app struct {
	cfg *config.Config
	log zerolog.Logger
	mgr *chat.Manager
}

func main() {
	a := &app{}
	if err := a.run(os.Args[1:]); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

// run executes one command line and closes the session afterwards, also
// when the command failed.
func (a *app) run(args []string) error {
	root := a.rootCmd()
	root.SetArgs(args)
	err := root.Execute()
	if a.mgr != nil {
		err = errors.Join(err, a.mgr.Close())
		a.mgr = nil
	}
	return err
}

func (a *app) rootCmd() *cobra.Command {
	var dsn string

	root := &cobra.Command{
		Use:           "chatsession",
		Short:         "Manage chats, archives and settings in a local session store",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			// Load .env file
			if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
				fmt.Fprintf(os.Stderr, "warning: failed to load .env file: %v\n", err)
			}

			cfg, err := config.Load()
			if err != nil {
				return err
			}
			if dsn != "" {
				cfg.DSN = dsn
			}
			a.cfg = cfg
			a.log = logger.New(logger.Config{Level: cfg.LogLevel, Pretty: cfg.LogPretty})

			s, err := store.NewSQLiteStoreWithDSN(cfg.DSN)
			if err != nil {
				return err
			}
			a.mgr = chat.NewManager(s, chat.WithLogger(a.log))
			a.log.Debug().Str("dsn", cfg.DSN).Msg("session opened")
			return nil
		},
	}
	root.PersistentFlags().StringVar(&dsn, "db", "", "SQLite database path (overrides CHATSESSION_DB)")

	root.AddCommand(
		a.listCmd(),
		a.currentCmd(),
		a.newCmd(),
		a.renameCmd(),
		a.sayCmd(),
		a.clearCmd(),
		a.saveCmd(),
		a.archiveCmd(),
		a.unarchiveCmd(),
		a.deleteCmd(),
		a.switchCmd(),
		a.recentCmd(),
		a.savedCmd(),
		a.statsCmd(),
		a.searchCmd(),
		a.exportCmd(),
		a.importCmd(),
		a.settingsCmd(),
	)
	return root
}
