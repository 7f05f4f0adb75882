package main

import (
	"errors"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/phrazzld/lexi-api/internal/domain"
	"github.com/phrazzld/lexi-api/internal/platform/sqlstore"
	"github.com/phrazzld/lexi-api/internal/service/auth"
	"github.com/phrazzld/lexi-api/internal/transfer"
	"github.com/spf13/cobra"
	"golang.org/x/crypto/bcrypt"
)

func newServeCommand(c *cli) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			return c.withApp(ctx, func(app *application) error {
				handler, err := app.handler()
				if err != nil {
					return err
				}
				return app.startHTTPServer(ctx, handler)
			})
		},
	}
}

func newMigrateCommand(c *cli) *cobra.Command {
	return &cobra.Command{
		Use:       "migrate up|down|status|version|reset",
		Short:     "Manage the database schema",
		Args:      cobra.MatchAll(cobra.ExactArgs(1), cobra.OnlyValidArgs),
		ValidArgs: []string{"up", "down", "status", "version", "reset"},
		RunE: func(cmd *cobra.Command, args []string) error {
			db, err := c.openDB(cmd.Context(), false)
			if err != nil {
				return err
			}
			defer func() { _ = db.Close() }()

			return sqlstore.Migrate(cmd.Context(), db, sqlstore.Dialect(c.cfg.Database.Driver), args[0], c.logger)
		},
	}
}

func newHashKeyCommand() *cobra.Command {
	var cost int
	cmd := &cobra.Command{
		Use:   "hash-key <access-key>",
		Short: "Print the bcrypt hash to use as auth.access_key_hash",
		Args:  cobra.ExactArgs(1),
		// Hashing needs no configuration or database.
		PersistentPreRunE: func(*cobra.Command, []string) error { return nil },
		RunE: func(cmd *cobra.Command, args []string) error {
			hash, err := auth.HashAccessKey(args[0], cost)
			if err != nil {
				return err
			}
			_, err = fmt.Fprintln(cmd.OutOrStdout(), hash)
			return err
		},
	}
	cmd.Flags().IntVar(&cost, "cost", bcrypt.DefaultCost, "bcrypt cost")
	return cmd
}

func newExportCommand(c *cli) *cobra.Command {
	var format, out string
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Write the deck as JSON, CSV or Excel",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			f, err := resolveFormat(format, out)
			if err != nil {
				return err
			}

			return c.withApp(cmd.Context(), func(app *application) error {
				w := cmd.OutOrStdout()
				if out != "" {
					file, err := os.Create(out)
					if err != nil {
						return fmt.Errorf("failed to create %s: %w", out, err)
					}
					defer func() { _ = file.Close() }()
					w = file
				}

				n, err := app.transfer.Export(cmd.Context(), w, f)
				if err != nil {
					return err
				}
				if out != "" {
					_, err = fmt.Fprintf(cmd.ErrOrStderr(), "exported %d cards to %s\n", n, out)
				}
				return err
			})
		},
	}
	cmd.Flags().StringVar(&format, "format", "", "json, csv or xlsx (default: from --out, else json)")
	cmd.Flags().StringVarP(&out, "out", "o", "", "output file (default: stdout)")
	return cmd
}

func newImportCommand(c *cli) *cobra.Command {
	var format string
	var tags []string
	cmd := &cobra.Command{
		Use:   "import <file>",
		Short: "Add words from a JSON, CSV or Excel file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := resolveFormat(format, args[0])
			if err != nil {
				return err
			}

			return c.withApp(cmd.Context(), func(app *application) error {
				file, err := os.Open(args[0])
				if err != nil {
					return fmt.Errorf("failed to open %s: %w", args[0], err)
				}
				defer func() { _ = file.Close() }()

				user, err := app.progress.CurrentUser(cmd.Context())
				if err != nil {
					return err
				}

				result, err := app.transfer.Import(cmd.Context(), file, f, transfer.ImportOptions{
					SourceLanguage: user.SourceLanguage,
					TargetLanguage: user.TargetLanguage,
					Tags:           domain.NormalizeTags(tags),
				})
				if err != nil {
					return err
				}

				w := cmd.OutOrStdout()
				_, _ = fmt.Fprintf(w, "processed %d, created %d, skipped %d, failed %d\n",
					result.Processed, result.Created, result.Skipped, len(result.Errors))
				for _, rowErr := range result.Errors {
					_, _ = fmt.Fprintf(w, "  row %d %s: %s\n", rowErr.Row, rowErr.Word, rowErr.Message)
				}
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&format, "format", "", "json, csv or xlsx (default: from the file extension)")
	cmd.Flags().StringSliceVar(&tags, "tags", nil, "tags for rows that have none")
	return cmd
}

func newBackfillCommand(c *cli) *cobra.Command {
	return &cobra.Command{
		Use:   "backfill-cefr",
		Short: "Classify cards that have no CEFR level",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return c.withApp(cmd.Context(), func(app *application) error {
				n, err := app.deck.BackfillCEFR(cmd.Context())
				if err != nil {
					return err
				}
				_, err = fmt.Fprintf(cmd.OutOrStdout(), "classified %d cards\n", n)
				return err
			})
		},
	}
}

func newSeedCommand(c *cli) *cobra.Command {
	return &cobra.Command{
		Use:   "seed",
		Short: "Add the sample words to the deck",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return c.withApp(cmd.Context(), func(app *application) error {
				n, err := app.deck.Seed(cmd.Context())
				if err != nil {
					return err
				}
				_, err = fmt.Fprintf(cmd.OutOrStdout(), "seeded %d words\n", n)
				return err
			})
		},
	}
}

// errWipeNotConfirmed is returned by wipe without --yes.
var errWipeNotConfirmed = errors.New("wipe deletes every card, exam and the profile; pass --yes to confirm")

func newWipeCommand(c *cli) *cobra.Command {
	var yes bool
	cmd := &cobra.Command{
		Use:   "wipe",
		Short: "Delete all cards, exams and the learner profile",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if !yes {
				return errWipeNotConfirmed
			}
			return c.withApp(cmd.Context(), func(app *application) error {
				result, err := app.progress.Wipe(cmd.Context())
				if err != nil {
					return err
				}
				_, err = fmt.Fprintf(cmd.OutOrStdout(), "removed %d cards and %d exams\n", result.Cards, result.Exams)
				return err
			})
		},
	}
	cmd.Flags().BoolVar(&yes, "yes", false, "confirm the wipe")
	return cmd
}

// resolveFormat picks an explicit format, else the one implied by path,
// else JSON.
func resolveFormat(explicit, path string) (transfer.Format, error) {
	if explicit != "" {
		return transfer.ParseFormat(explicit)
	}
	if filepath.Ext(path) != "" {
		return transfer.FormatFromPath(path)
	}
	return transfer.FormatJSON, nil
}

