// Command bossctl is the bosswatch admin CLI. It works directly against the
// configured store; with Postgres a running bosswatch picks the changes up
// through LISTEN/NOTIFY.
//
// Usage:
//
//	bossctl migrate
//	bossctl seed --file bosses.yaml --update
//	bossctl list
//	bossctl kill 22 17:30 --note "raid"
//	bossctl restart 14:30
//	bossctl notifications 15 5 1
//	bossctl kills 22 --limit 10
//	bossctl backup export --out snap.json
//	bossctl backup import snap.json
//	bossctl migrate-kills --from old.json
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/albapepper/bosswatch/internal/backup"
	"github.com/albapepper/bosswatch/internal/boss"
	"github.com/albapepper/bosswatch/internal/config"
	"github.com/albapepper/bosswatch/internal/db"
	"github.com/albapepper/bosswatch/internal/respawn"
	"github.com/albapepper/bosswatch/internal/seed"
)

var logger = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelInfo}))

func main() {
	// Load .env if present
	_ = godotenv.Load(".env")

	root := &cobra.Command{
		Use:          "bossctl",
		Short:        "Bosswatch admin CLI",
		SilenceUsage: true,
	}

	root.AddCommand(migrateCmd())
	root.AddCommand(seedCmd())
	root.AddCommand(listCmd())
	root.AddCommand(killCmd())
	root.AddCommand(killsCmd())
	root.AddCommand(restartCmd())
	root.AddCommand(notificationsCmd())
	root.AddCommand(backupCmd())
	root.AddCommand(migrateKillsCmd())

	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}

// --------------------------------------------------------------------------
// migrate / seed
// --------------------------------------------------------------------------

func migrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply database migrations",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runStore(true, func(ctx context.Context, cfg *config.Config, svc *boss.Service) error {
				logger.Info("Migrations applied", "driver", cfg.StoreDriver)
				return nil
			})
		},
	}
}

func seedCmd() *cobra.Command {
	var (
		file   string
		update bool
	)
	cmd := &cobra.Command{
		Use:   "seed",
		Short: "Load the boss catalog from a YAML file",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runStore(false, func(ctx context.Context, cfg *config.Config, svc *boss.Service) error {
				if file == "" {
					file = cfg.CatalogFile
				}
				catalog, err := seed.LoadFile(file)
				if err != nil {
					return err
				}
				start := time.Now()
				result := seed.Seed(ctx, svc, catalog, update, logger)
				logger.Info("Seed finished", "file", file, "duration", time.Since(start).Round(time.Millisecond), "summary", result.Summary())
				if len(result.Errors) > 0 {
					for _, e := range result.Errors {
						logger.Error("seed error", "error", e)
					}
					return fmt.Errorf("%d catalog entries failed", len(result.Errors))
				}
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&file, "file", "", "Catalog file (default $CATALOG_FILE)")
	cmd.Flags().BoolVar(&update, "update", false, "Replace catalog fields of existing bosses")
	return cmd
}

// --------------------------------------------------------------------------
// state commands
// --------------------------------------------------------------------------

func listCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "Print active bosses by next spawn",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runStore(false, func(ctx context.Context, cfg *config.Config, svc *boss.Service) error {
				entries, err := svc.List(ctx)
				if err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), svc.FormatList(entries))
				return nil
			})
		},
	}
}

func killCmd() *cobra.Command {
	var note string
	cmd := &cobra.Command{
		Use:   "kill <id> [HH:MM | DD.MM.YYYY HH:MM]",
		Short: "Record a boss kill (default now)",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := strconv.Atoi(args[0])
			if err != nil {
				return fmt.Errorf("boss id must be a number: %q", args[0])
			}
			return runStore(false, func(ctx context.Context, cfg *config.Config, svc *boss.Service) error {
				at := svc.Now()
				if len(args) > 1 {
					if at, err = svc.Zone().ParseKill(strings.Join(args[1:], " "), at); err != nil {
						return err
					}
				}
				b, next, err := svc.Kill(ctx, id, at, note)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Kill of [%d] %s recorded: %s\nNext spawn: %s\n",
					b.ID, b.Name, svc.Zone().FormatFull(at), svc.Zone().FormatShort(next))
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&note, "note", "cli", "Kill history note")
	return cmd
}

func killsCmd() *cobra.Command {
	var limit int
	cmd := &cobra.Command{
		Use:   "kills <id>",
		Short: "Print the kill history of a boss",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := strconv.Atoi(args[0])
			if err != nil {
				return fmt.Errorf("boss id must be a number: %q", args[0])
			}
			return runStore(false, func(ctx context.Context, cfg *config.Config, svc *boss.Service) error {
				if _, err := svc.Store().GetBoss(ctx, id); err != nil {
					return err
				}
				kills, err := svc.Store().ListKills(ctx, id, limit)
				if err != nil {
					return err
				}
				for _, k := range kills {
					fmt.Fprintf(cmd.OutOrStdout(), "%d | %s | %s\n", k.ID, svc.Zone().FormatFull(k.KilledAt), k.Note)
				}
				return nil
			})
		},
	}
	cmd.Flags().IntVar(&limit, "limit", 20, "Max records")
	return cmd
}

func restartCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "restart [now | HH:MM | DD.MM.YYYY HH:MM]",
		Short: "Record a server restart and reset every kill",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runStore(false, func(ctx context.Context, cfg *config.Config, svc *boss.Service) error {
				at, err := svc.Zone().ParseRestart(strings.Join(args, " "), svc.Now())
				if err != nil {
					return err
				}
				if err := svc.Restart(ctx, at); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Restart time set: %s\n", svc.Zone().FormatFull(at))
				return nil
			})
		},
	}
}

func notificationsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "notifications <minutes...>",
		Short: "Set alert lead times",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			leads := make([]int, 0, len(args))
			for _, a := range args {
				n, err := strconv.Atoi(a)
				if err != nil {
					return fmt.Errorf("lead %q is not a number", a)
				}
				leads = append(leads, n)
			}
			return runStore(false, func(ctx context.Context, cfg *config.Config, svc *boss.Service) error {
				norm, err := svc.SetNotificationLeads(ctx, leads)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Alerts set: %s minutes before spawn\n", boss.FormatLeads(norm))
				return nil
			})
		},
	}
}

// --------------------------------------------------------------------------
// backup commands
// --------------------------------------------------------------------------

func backupCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "backup",
		Short: "Export or import JSON snapshots",
	}
	cmd.AddCommand(backupExportCmd())
	cmd.AddCommand(backupImportCmd())
	return cmd
}

func backupExportCmd() *cobra.Command {
	var out string
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Write a snapshot of the whole store",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runStore(false, func(ctx context.Context, cfg *config.Config, svc *boss.Service) error {
				data, snap, err := backup.Export(ctx, svc.Store())
				if err != nil {
					return err
				}
				if out == "" {
					out = backup.FileName(svc.Now())
				}
				if out == "-" {
					_, err = cmd.OutOrStdout().Write(data)
					return err
				}
				if err := os.WriteFile(out, data, 0o644); err != nil {
					return fmt.Errorf("write snapshot: %w", err)
				}
				logger.Info("Snapshot written", "file", out, "bosses", len(snap.Bosses), "kills", len(snap.Kills))
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&out, "out", "", "Output file, - for stdout (default bosswatch_backup_<time>.json)")
	return cmd
}

func backupImportCmd() *cobra.Command {
	var dir string
	cmd := &cobra.Command{
		Use:   "import <file>",
		Short: "Replace the store with a snapshot (the current state is saved first)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			snap, err := readSnapshot(args[0])
			if err != nil {
				return err
			}
			return runStore(false, func(ctx context.Context, cfg *config.Config, svc *boss.Service) error {
				if dir == "" {
					dir = cfg.BackupDir
				}
				_, err := backup.Restore(ctx, svc, snap, dir, logger)
				return err
			})
		},
	}
	cmd.Flags().StringVar(&dir, "dir", "", "Safety copy directory (default $BACKUP_DIR)")
	return cmd
}

func migrateKillsCmd() *cobra.Command {
	var from string
	cmd := &cobra.Command{
		Use:   "migrate-kills",
		Short: "Copy last kills by boss name from an older snapshot",
		RunE: func(cmd *cobra.Command, args []string) error {
			if from == "" {
				return fmt.Errorf("--from is required")
			}
			snap, err := readSnapshot(from)
			if err != nil {
				return err
			}
			return runStore(false, func(ctx context.Context, cfg *config.Config, svc *boss.Service) error {
				updated, err := backup.MigrateKills(ctx, svc, snap, logger)
				if err != nil {
					return err
				}
				logger.Info("Kills migrated", "from", from, "bosses", len(updated))
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&from, "from", "", "Snapshot file to copy kills from")
	return cmd
}

func readSnapshot(path string) (boss.Snapshot, error) {
	f, err := os.Open(path)
	if err != nil {
		return boss.Snapshot{}, fmt.Errorf("open snapshot: %w", err)
	}
	defer f.Close()
	return backup.Decode(f)
}

// --------------------------------------------------------------------------
// Helpers
// --------------------------------------------------------------------------

// runStore handles common setup: signal context, config loading, store and
// service construction.
func runStore(migrate bool, fn func(ctx context.Context, cfg *config.Config, svc *boss.Service) error) error {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if migrate {
		cfg.AutoMigrate = true
	}
	zone, err := cfg.Zone()
	if err != nil {
		return err
	}

	store, _, err := db.Open(ctx, cfg, zone, logger)
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}
	defer store.Close()

	svc := boss.NewService(store, zone, zone, respawn.New(cfg.GraceWindow), logger)
	return fn(ctx, cfg, svc)
}
