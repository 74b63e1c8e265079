// Command dbcheck verifies the database connection and bootstraps the schema.
package main

import (
	"context"
	"fmt"
	"io"
	"net/url"
	"os"
	"text/tabwriter"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/spf13/cobra"

	"github.com/harrylevesque/primetrade/internal/config"
	"github.com/harrylevesque/primetrade/internal/store"
	"github.com/harrylevesque/primetrade/internal/utils"
)

var (
	timeout time.Duration
	verbose bool
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "dbcheck",
		Short: "Check the primetrade database",
		Long: `Connect to the configured Postgres database, list its tables and
create the schema when the users table is missing. Otherwise print the
registered users.

Connection settings come from DATABASE_URL or the PG* variables, read
from the environment, .env.local or .env.`,
		SilenceUsage: true,
		RunE:         runCheck,
	}
	rootCmd.PersistentFlags().DurationVar(&timeout, "timeout", 30*time.Second, "overall deadline")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "log migration details")

	rootCmd.AddCommand(pingCmd(), tablesCmd(), usersCmd(), migrateCmd())

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Database error:", err)
		os.Exit(1)
	}
}

func newLogger() utils.Logger {
	if !verbose {
		return utils.NewNopLogger()
	}
	return utils.NewLogger(os.Stderr, "debug", "console")
}

// withDB opens the database for the duration of fn.
func withDB(cmd *cobra.Command, fn func(ctx context.Context, cfg *config.Config, db *sqlx.DB) error) error {
	cfg, err := config.Read()
	if err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(cmd.Context(), timeout)
	defer cancel()

	db, err := store.Open(ctx, cfg.Database)
	if err != nil {
		return err
	}
	defer db.Close()
	return fn(ctx, cfg, db)
}

func runCheck(cmd *cobra.Command, _ []string) error {
	out := cmd.OutOrStdout()
	cfg, err := config.Read()
	if err != nil {
		return err
	}
	fmt.Fprintln(out, "Testing database connection...")
	fmt.Fprintln(out, "Config:", describeDatabase(cfg.Database))

	return withDB(cmd, func(ctx context.Context, cfg *config.Config, db *sqlx.DB) error {
		fmt.Fprintln(out, "Database connected successfully!")
		if err := check(ctx, out, db, func() error {
			return store.Migrate(cfg.Database.DSN(), newLogger())
		}); err != nil {
			return err
		}
		fmt.Fprintln(out, "\nDatabase check completed successfully!")
		return nil
	})
}

// describeDatabase names the database the check connects to. A DATABASE_URL
// replaces the PG* settings and is printed with its password redacted.
func describeDatabase(d config.DatabaseConfig) string {
	if d.URL == "" {
		return fmt.Sprintf("host=%s user=%s database=%s port=%d", d.Host, d.User, d.Name, d.Port)
	}
	u, err := url.Parse(d.URL)
	if err != nil {
		return "DATABASE_URL (unparseable)"
	}
	return "url=" + u.Redacted()
}

// check lists the tables, then either creates the schema or reports the users.
func check(ctx context.Context, out io.Writer, db *sqlx.DB, migrate func() error) error {
	tables, err := store.Tables(ctx, db)
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "\nTables in database: %v\n", tables)

	if !contains(tables, "users") {
		fmt.Fprintln(out, "\nUsers table does not exist! Creating schema...")
		if err := migrate(); err != nil {
			return err
		}
		fmt.Fprintln(out, "Schema created successfully!")
		return nil
	}

	fmt.Fprintln(out, "Users table exists")
	users := store.NewUserStore(db)
	n, err := users.Count(ctx)
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "Total users: %d\n", n)
	if n == 0 {
		return nil
	}
	return printUsers(ctx, out, users)
}

func printUsers(ctx context.Context, out io.Writer, users *store.UserStore) error {
	list, err := users.List(ctx)
	if err != nil {
		return err
	}
	tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tEMAIL\tNAME")
	for _, u := range list {
		fmt.Fprintf(tw, "%d\t%s\t%s\n", u.ID, u.Email, u.Name)
	}
	return tw.Flush()
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
