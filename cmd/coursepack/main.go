// Command coursepack validates and imports course packs and bootstraps the
// first admin login, all against the same env-driven config as the gateway.
package main

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"golang.org/x/crypto/bcrypt"

	"github.com/coursekit/coursekit-lms/internal/authoring"
	"github.com/coursekit/coursekit-lms/internal/config"
	"github.com/coursekit/coursekit-lms/internal/course"
	"github.com/coursekit/coursekit-lms/internal/db"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "coursepack",
		Short:         "Course pack tooling for the coursekit gateway",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.AddCommand(
		newValidateCmd(),
		newImportCmd(),
		newSeedAdminCmd(),
	)
	return root
}

func newValidateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "validate PACK.yaml",
		Short: "Parse and validate a course pack without touching the database",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			p, err := authoring.LoadPack(args[0])
			if err != nil {
				return err
			}
			errs := authoring.ValidatePack(p)
			if len(errs) == 0 {
				fmt.Printf("%s: ok (%d items, %d tests)\n", args[0], len(p.Items), len(p.Tests))
				return nil
			}
			for _, e := range errs {
				fmt.Fprintf(os.Stderr, "  %v\n", e)
			}
			return fmt.Errorf("%s: %d problem(s)", args[0], len(errs))
		},
	}
}

func newImportCmd() *cobra.Command {
	var createdBy string
	cmd := &cobra.Command{
		Use:   "import PACK.yaml",
		Short: "Import a course pack into the configured database",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			p, err := authoring.LoadPack(args[0])
			if err != nil {
				return err
			}
			dbh, err := openDB(cmd.Context())
			if err != nil {
				return err
			}
			defer dbh.Close()

			cfg := config.FromEnv()
			st := course.NewSQLStore(dbh, cfg.DBDriver)
			im := authoring.NewImporter(st, time.Now)
			c, err := im.Import(cmd.Context(), p, createdBy)
			if err != nil {
				return err
			}
			fmt.Printf("imported course %s (%q, %d items)\n", c.ID, c.Title, len(p.Items))
			return nil
		},
	}
	cmd.Flags().StringVar(&createdBy, "created-by", "coursepack", "user id recorded as the course author")
	return cmd
}

func newSeedAdminCmd() *cobra.Command {
	var username, password string
	cmd := &cobra.Command{
		Use:   "seed-admin",
		Short: "Create or reset the admin login",
		RunE: func(cmd *cobra.Command, args []string) error {
			if password == "" {
				return fmt.Errorf("--password is required")
			}
			hash, err := bcrypt.GenerateFromPassword([]byte(password), 12)
			if err != nil {
				return err
			}
			dbh, err := openDB(cmd.Context())
			if err != nil {
				return err
			}
			defer dbh.Close()

			_, err = dbh.ExecContext(cmd.Context(), `INSERT INTO users (id, username, password_hash, role, created_at)
				VALUES ($1,$2,$3,'admin',$4)
				ON CONFLICT (username) DO UPDATE SET password_hash=EXCLUDED.password_hash, role='admin'`,
				username, username, string(hash), time.Now().Unix())
			if err != nil {
				return err
			}
			fmt.Printf("admin user %q ready\n", username)
			return nil
		},
	}
	cmd.Flags().StringVar(&username, "username", "admin", "admin username")
	cmd.Flags().StringVar(&password, "password", "", "admin password (hashed with bcrypt before storing)")
	return cmd
}

func openDB(ctx context.Context) (*sql.DB, error) {
	_ = godotenv.Load()
	cfg := config.FromEnv()
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	return db.Open(ctx, db.Driver(cfg.DBDriver), cfg.DBDSN)
}
