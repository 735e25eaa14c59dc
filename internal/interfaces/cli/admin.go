package cli

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"sort"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/aonawunmi/New-MinRisk-sub016/internal/config"
	"github.com/aonawunmi/New-MinRisk-sub016/internal/infrastructure/database/postgres"
	"github.com/aonawunmi/New-MinRisk-sub016/internal/infrastructure/messaging/kafka"
	"github.com/aonawunmi/New-MinRisk-sub016/internal/infrastructure/monitoring/logging"
	"github.com/aonawunmi/New-MinRisk-sub016/pkg/types/common"
)

// schemaMigrator is the part of postgres.Migrator the migrate commands use.
type schemaMigrator interface {
	Up() error
	Down(steps int) error
	Status() (postgres.MigrationState, error)
	Force(version int) error
	Close() error
}

// topicAdmin is the part of kafka.TopicManager the topics commands use.
type topicAdmin interface {
	EnsureTopics(ctx context.Context, topics []common.TopicConfig) error
	ListTopics(ctx context.Context) ([]string, error)
	Close() error
}

// Replaced in tests.
var (
	openMigrator = func(cfg *config.Config, log logging.Logger) (schemaMigrator, error) {
		conn, err := postgres.NewConnection(cfg.Database, log)
		if err != nil {
			return nil, err
		}
		m, err := postgres.NewMigratorForConnection(conn, cfg.Database.MigrationPath, log)
		if err != nil {
			conn.Close()
			return nil, err
		}
		return m, nil
	}
	openTopicAdmin = func(cfg *config.Config, log logging.Logger) (topicAdmin, error) {
		m, err := kafka.NewTopicManager(cfg.Kafka.Brokers, log)
		if err != nil {
			return nil, err
		}
		return m, nil
	}
)

// NewMigrateCmd returns the migrate command group.
func NewMigrateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Manage the PostgreSQL schema",
		Long:  "Apply, roll back and inspect schema migrations from database.migration_path.",
	}
	cmd.AddCommand(newMigrateUpCmd(), newMigrateDownCmd(), newMigrateStatusCmd(), newMigrateForceCmd())
	return cmd
}

func withMigrator(cmd *cobra.Command, fn func(m schemaMigrator) error) error {
	cliCtx, err := GetCLIContext(cmd)
	if err != nil {
		return err
	}
	m, err := openMigrator(cliCtx.Config, cliCtx.Logger)
	if err != nil {
		return err
	}
	defer m.Close()
	return fn(m)
}

func newMigrateUpCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "up",
		Short: "Apply all pending migrations",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withMigrator(cmd, func(m schemaMigrator) error {
				if err := m.Up(); err != nil {
					return err
				}
				return printMigrationState(cmd, m)
			})
		},
	}
}

func newMigrateDownCmd() *cobra.Command {
	var (
		steps int
		yes   bool
	)

	cmd := &cobra.Command{
		Use:   "down",
		Short: "Roll back migrations",
		RunE: func(cmd *cobra.Command, args []string) error {
			if steps < 1 {
				return fmt.Errorf("steps must be at least 1, got %d", steps)
			}
			if !yes {
				ok, err := confirm(cmd, fmt.Sprintf("Roll back %d migration(s)? Data in dropped tables is lost. [y/N] ", steps))
				if err != nil {
					return err
				}
				if !ok {
					return fmt.Errorf("aborted")
				}
			}
			return withMigrator(cmd, func(m schemaMigrator) error {
				if err := m.Down(steps); err != nil {
					return err
				}
				return printMigrationState(cmd, m)
			})
		},
	}
	cmd.Flags().IntVar(&steps, "steps", 1, "number of migrations to roll back")
	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "skip the confirmation prompt")
	return cmd
}

func newMigrateStatusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show the applied schema version",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withMigrator(cmd, func(m schemaMigrator) error {
				return printMigrationState(cmd, m)
			})
		},
	}
}

func newMigrateForceCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "force <version>",
		Short: "Mark a version as applied to clear a dirty state",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			v, err := strconv.Atoi(args[0])
			if err != nil || v < -1 {
				return fmt.Errorf("invalid version %q", args[0])
			}
			return withMigrator(cmd, func(m schemaMigrator) error {
				if err := m.Force(v); err != nil {
					return err
				}
				return printMigrationState(cmd, m)
			})
		},
	}
}

func printMigrationState(cmd *cobra.Command, m schemaMigrator) error {
	state, err := m.Status()
	if err != nil {
		return err
	}
	if isJSON(cmd) {
		return printJSON(cmd, state)
	}
	msg := fmt.Sprintf("schema version %d", state.Version)
	if state.Dirty {
		msg += " (dirty: repair and run migrate force)"
	}
	PrintSuccess(cmd, msg)
	return nil
}

// confirm reads a y/N answer from the command's input. Without a terminal
// the answer is no.
func confirm(cmd *cobra.Command, prompt string) (bool, error) {
	in := cmd.InOrStdin()
	if f, ok := in.(*os.File); ok {
		fi, err := f.Stat()
		if err != nil || fi.Mode()&os.ModeCharDevice == 0 {
			return false, fmt.Errorf("refusing to prompt without a terminal; pass --yes")
		}
	}
	fmt.Fprint(cmd.ErrOrStderr(), prompt)
	line, err := bufio.NewReader(in).ReadString('\n')
	if err != nil && line == "" {
		return false, nil
	}
	answer := strings.ToLower(strings.TrimSpace(line))
	return answer == "y" || answer == "yes", nil
}

// NewTopicsCmd returns the topics command group.
func NewTopicsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "topics",
		Short: "Manage the Kafka topics used by the engine",
	}
	cmd.AddCommand(newTopicsEnsureCmd(), newTopicsListCmd())
	return cmd
}

func withTopicAdmin(cmd *cobra.Command, fn func(ctx context.Context, a topicAdmin) error) error {
	cliCtx, err := GetCLIContext(cmd)
	if err != nil {
		return err
	}
	a, err := openTopicAdmin(cliCtx.Config, cliCtx.Logger)
	if err != nil {
		return err
	}
	defer a.Close()
	ctx, cancel := withTimeout(cmd, cliCtx)
	defer cancel()
	return fn(ctx, a)
}

func newTopicsEnsureCmd() *cobra.Command {
	var replication int

	cmd := &cobra.Command{
		Use:   "ensure",
		Short: "Create the engine topics and their dead-letter topics if missing",
		RunE: func(cmd *cobra.Command, args []string) error {
			if replication < 1 {
				return fmt.Errorf("replication-factor must be at least 1, got %d", replication)
			}
			topics := kafka.DefaultTopics(replication)
			return withTopicAdmin(cmd, func(ctx context.Context, a topicAdmin) error {
				if err := a.EnsureTopics(ctx, topics); err != nil {
					return err
				}
				PrintSuccess(cmd, fmt.Sprintf("%d topics ensured", len(topics)))
				return nil
			})
		},
	}
	cmd.Flags().IntVar(&replication, "replication-factor", 1, "replication factor for created topics")
	return cmd
}

func newTopicsListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List topics on the cluster",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withTopicAdmin(cmd, func(ctx context.Context, a topicAdmin) error {
				topics, err := a.ListTopics(ctx)
				if err != nil {
					return err
				}
				sort.Strings(topics)
				if isJSON(cmd) {
					return printJSON(cmd, topics)
				}
				for _, t := range topics {
					fmt.Fprintln(cmd.OutOrStdout(), t)
				}
				return nil
			})
		},
	}
}

//Personal.AI order the ending
