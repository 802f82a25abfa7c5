// Package main is the entrypoint for the openstack-gateway (binary name "gateway").
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/url"
	"os"
	"text/tabwriter"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/spf13/cobra"

	"github.com/morezero/openstack-gateway/internal/config"
	"github.com/morezero/openstack-gateway/internal/server"
	"github.com/morezero/openstack-gateway/pkg/db"
	"github.com/morezero/openstack-gateway/pkg/dispatcher"
	"github.com/morezero/openstack-gateway/pkg/gateway"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "gateway: %v\n", err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "gateway",
		Short: "OpenStack (ConoHa) operations exposed as tools",
		Long: `gateway exposes a fixed set of OpenStack compute, network, image and volume
operations as tools. Without a command it serves the MCP protocol on stdio.

Environment:
  OPENSTACK_IDENTITY_BASE_URL, OPENSTACK_{COMPUTE,NETWORK,IMAGE,VOLUME}_BASE_URL
  OPENSTACK_USER_ID, OPENSTACK_PASSWORD, OPENSTACK_TENANT_ID
  OPENSTACK_{COMPUTE,VOLUME}_MICROVERSION   optional microversion headers
  COMMS_URL, GATEWAY_SUBJECT, GATEWAY_REQUEST_TIMEOUT   serve only
  DATABASE_URL   audit log; required by migrate, ensure-db and clear
  GATEWAY_CATALOG_FILE, GATEWAY_SLIM_RESPONSES, GATEWAY_PUBLISH_EVENTS, LOG_LEVEL`,
		SilenceUsage:      true,
		DisableAutoGenTag: true,
		Args:              cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return server.RunStdio()
		},
	}

	root.AddCommand(
		newMCPCmd(),
		newServeCmd(),
		newRoutesCmd(),
		newMigrateCmd(),
		newEnsureDBCmd(),
		newClearCmd(),
	)
	return root
}

func newMCPCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "mcp",
		Short: "Serve the MCP protocol on stdio (default)",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return server.RunStdio()
		},
	}
}

func newServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Serve tools over COMMS request/reply with an HTTP health and metrics endpoint",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return server.Run()
		},
	}
}

func newRoutesCmd() *cobra.Command {
	var (
		kind   string
		asJSON bool
	)
	cmd := &cobra.Command{
		Use:   "routes",
		Short: "List the routed operations",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			var filter gateway.Kind
			if kind != "" {
				k, ok := gateway.ParseKind(kind)
				if !ok {
					return fmt.Errorf("unknown tool %q", kind)
				}
				filter = k
			}
			return printRoutes(cmd.OutOrStdout(), dispatcher.ListOperations(filter), asJSON)
		},
	}
	cmd.Flags().StringVar(&kind, "kind", "", "Only list routes of this tool")
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print JSON instead of a table")
	return cmd
}

func printRoutes(w io.Writer, ops *dispatcher.ListOperationsOutput, asJSON bool) error {
	if asJSON {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(ops)
	}
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "TOOL\tPATH\tFAMILY\tVERB\tBODY\tMUTATING")
	for _, op := range ops.Operations {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%v\n", op.Kind, op.Path, op.Family, op.Verb, op.Schema, op.Mutating)
	}
	return tw.Flush()
}

func newMigrateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Manage the audit log schema",
	}
	cmd.AddCommand(
		&cobra.Command{
			Use:   "up",
			Short: "Run database migrations",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, _ []string) error {
				return withPool(func(ctx context.Context, cfg *config.Config, pool *pgxpool.Pool) error {
					migrationSQL, err := db.LoadMigrationFiles(cfg.MigrationPath)
					if err != nil {
						return fmt.Errorf("load migrations: %w", err)
					}
					if err := db.RunMigrations(ctx, pool, migrationSQL); err != nil {
						return fmt.Errorf("run migrations: %w", err)
					}
					return nil
				})
			},
		},
		&cobra.Command{
			Use:   "down",
			Short: "Drop the audit log table",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, _ []string) error {
				return withPool(func(ctx context.Context, _ *config.Config, pool *pgxpool.Pool) error {
					return db.MigrationDown(ctx, pool)
				})
			},
		},
		&cobra.Command{
			Use:   "status",
			Short: "Show migration status",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, _ []string) error {
				return withPool(func(ctx context.Context, cfg *config.Config, pool *pgxpool.Pool) error {
					report, err := db.MigrationStatus(ctx, pool, cfg.MigrationPath)
					if err != nil {
						return err
					}
					fmt.Fprintln(cmd.OutOrStdout(), report.String())
					return nil
				})
			},
		},
	)
	return cmd
}

func newEnsureDBCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "ensure-db [name]",
		Short: "Create the database if missing (default: the database named in DATABASE_URL)",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadDBConfig()
			if err != nil {
				return err
			}
			target := cfg.DatabaseURL
			if len(args) == 1 && args[0] != "" {
				if target, err = withDatabaseName(cfg.DatabaseURL, args[0]); err != nil {
					return err
				}
			}
			if err := db.EnsureDatabase(cmd.Context(), target); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Database is ready.")
			return nil
		},
	}
}

func newClearCmd() *cobra.Command {
	var before string
	cmd := &cobra.Command{
		Use:   "clear",
		Short: "Delete audit log entries; schema is preserved",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cutoff, err := parseBefore(before, time.Now())
			if err != nil {
				return err
			}
			return withPool(func(ctx context.Context, _ *config.Config, pool *pgxpool.Pool) error {
				n, err := db.ClearInvocations(ctx, pool, cutoff)
				if err != nil {
					return fmt.Errorf("clear invocations: %w", err)
				}
				if n >= 0 {
					fmt.Fprintf(cmd.OutOrStdout(), "Deleted %d invocations.\n", n)
				} else {
					fmt.Fprintln(cmd.OutOrStdout(), "Audit log truncated.")
				}
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&before, "before", "", "Only delete entries older than an RFC3339 time or a duration such as 720h")
	return cmd
}

// parseBefore accepts "", an RFC3339 timestamp or a duration measured back from now.
// The zero time means everything.
func parseBefore(s string, now time.Time) (time.Time, error) {
	if s == "" {
		return time.Time{}, nil
	}
	if d, err := time.ParseDuration(s); err == nil {
		if d <= 0 {
			return time.Time{}, fmt.Errorf("--before duration must be positive, got %s", s)
		}
		return now.Add(-d), nil
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("--before must be an RFC3339 time or a duration, got %q", s)
	}
	return t, nil
}

// withDatabaseName replaces the database in a postgres URL; the query (e.g. sslmode) is kept.
func withDatabaseName(databaseURL, name string) (string, error) {
	u, err := url.Parse(databaseURL)
	if err != nil {
		return "", fmt.Errorf("parse DATABASE_URL: %w", err)
	}
	u.Path = "/" + name
	return u.String(), nil
}

func loadDBConfig() (*config.Config, error) {
	cfg, err := config.LoadConfig()
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	if err := cfg.ValidateForDB(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func withPool(fn func(ctx context.Context, cfg *config.Config, pool *pgxpool.Pool) error) error {
	cfg, err := loadDBConfig()
	if err != nil {
		return err
	}
	ctx := context.Background()
	pool, err := db.NewPool(ctx, cfg.DatabaseURL)
	if err != nil {
		return fmt.Errorf("connect database: %w", err)
	}
	defer pool.Close()
	return fn(ctx, cfg, pool)
}
