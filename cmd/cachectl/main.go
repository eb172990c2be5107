package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
	"gorm.io/gorm"

	"github.com/timmy/ingestdesk/internal/clock"
	"github.com/timmy/ingestdesk/internal/config"
	"github.com/timmy/ingestdesk/internal/domain"
	"github.com/timmy/ingestdesk/internal/logger"
	"github.com/timmy/ingestdesk/internal/repository"
)

func main() {
	logger.SetDefaultLogger(logger.New(&logger.Config{
		Level:       "warn",
		Format:      "text",
		Output:      os.Stderr,
		ServiceName: "cachectl",
	}))

	if err := newRootCommand().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

type app struct {
	configPath string
	db         *gorm.DB
}

func (a *app) open() error {
	if a.db != nil {
		return nil
	}
	cfg, err := config.Load(a.configPath)
	if err != nil {
		return err
	}
	a.db, err = repository.InitDB(&cfg.Database)
	return err
}

func (a *app) snapshots() *repository.SnapshotRepository {
	return repository.NewSnapshotRepository(a.db, clock.Real{}, clock.UUIDGenerator{})
}

func newRootCommand() *cobra.Command {
	a := &app{}
	cmd := &cobra.Command{
		Use:           "cachectl",
		Short:         "Inspect and maintain the ingestdesk snapshot cache and import queues",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.open()
		},
		PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
			if a.db == nil {
				return nil
			}
			return repository.Close(a.db)
		},
	}
	cmd.PersistentFlags().StringVar(&a.configPath, "config", os.Getenv("CONFIG_PATH"), "Path to config file")

	cmd.AddCommand(newStatsCommand(a))
	cmd.AddCommand(newClearCommand(a))
	cmd.AddCommand(newExpireCommand(a))
	cmd.AddCommand(newQueueStatsCommand(a))
	return cmd
}

// cacheFlags binds --user and --kind, shared by the cache commands.
func cacheFlags(cmd *cobra.Command, user, kind *string) {
	cmd.Flags().StringVar(user, "user", "", "Owning user ID")
	cmd.Flags().StringVar(kind, "kind", "", "Resource kind (ingestion-points or import-jobs)")
	_ = cmd.MarkFlagRequired("user")
	_ = cmd.MarkFlagRequired("kind")
}

func newStatsCommand(a *app) *cobra.Command {
	var user, kind string
	cmd := &cobra.Command{
		Use:   "stats",
		Short: "Show fresh, expired and active snapshot counts",
		RunE: func(cmd *cobra.Command, args []string) error {
			k, err := domain.ParseResourceKind(kind)
			if err != nil {
				return err
			}
			stats, err := a.snapshots().Stats(commandContext(cmd), user, k)
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), stats)
		},
	}
	cacheFlags(cmd, &user, &kind)
	return cmd
}

func newClearCommand(a *app) *cobra.Command {
	var user, kind string
	cmd := &cobra.Command{
		Use:   "clear",
		Short: "Deactivate every active snapshot of a kind for a user",
		RunE: func(cmd *cobra.Command, args []string) error {
			k, err := domain.ParseResourceKind(kind)
			if err != nil {
				return err
			}
			n, err := a.snapshots().ClearAll(commandContext(cmd), user, k)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "cleared %d %s snapshots for %s\n", n, k, user)
			return nil
		},
	}
	cacheFlags(cmd, &user, &kind)
	return cmd
}

func newExpireCommand(a *app) *cobra.Command {
	var user, kind string
	cmd := &cobra.Command{
		Use:   "expire",
		Short: "Deactivate only the expired snapshots of a kind for a user",
		RunE: func(cmd *cobra.Command, args []string) error {
			k, err := domain.ParseResourceKind(kind)
			if err != nil {
				return err
			}
			n, err := a.snapshots().DeactivateExpired(commandContext(cmd), user, k)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "expired %d %s snapshots for %s\n", n, k, user)
			return nil
		},
	}
	cacheFlags(cmd, &user, &kind)
	return cmd
}

func newQueueStatsCommand(a *app) *cobra.Command {
	var importID string
	cmd := &cobra.Command{
		Use:   "queue-stats",
		Short: "Count an import's files by status",
		RunE: func(cmd *cobra.Command, args []string) error {
			stats, err := repository.NewFileRepository(a.db).CountByStatus(commandContext(cmd), importID)
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), stats)
		},
	}
	cmd.Flags().StringVar(&importID, "import", "", "Import job ID")
	_ = cmd.MarkFlagRequired("import")
	return cmd
}

func commandContext(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}

func printJSON(w io.Writer, v interface{}) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
