package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/pbaille/doselog/internal/api"
	"github.com/pbaille/doselog/internal/config"
	"github.com/pbaille/doselog/internal/domain"
	"github.com/pbaille/doselog/internal/kv"
	"github.com/pbaille/doselog/internal/ledger"
	"github.com/pbaille/doselog/internal/platform/logger"
	"github.com/pbaille/doselog/internal/store"
	"github.com/spf13/cobra"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd(config.Load(), time.Now).ExecuteContext(ctx); err != nil {
		os.Exit(1)
	}
}

// cli carries what every command needs to open the ledger
type cli struct {
	cfg *config.Config
	log *slog.Logger
	now func() time.Time
}

func newRootCmd(cfg *config.Config, now func() time.Time) *cobra.Command {
	c := &cli{cfg: cfg, now: now}

	rootCmd := &cobra.Command{
		Use:          "doselog",
		Short:        "Track doses, streaks and daily symptoms",
		SilenceUsage: true,
	}
	rootCmd.PersistentPreRun = func(cmd *cobra.Command, args []string) {
		c.log = logger.New(logger.Options{
			Level:  cfg.LogLevel,
			Format: cfg.LogFormat,
			App:    "doselog",
		})
	}

	rootCmd.PersistentFlags().StringVar(&cfg.DBPath, "db", cfg.DBPath, "sqlite database path")
	rootCmd.PersistentFlags().StringVar(&cfg.Driver, "driver", cfg.Driver, "storage driver: sqlite3, pgx or memory")
	rootCmd.PersistentFlags().StringVar(&cfg.Timezone, "tz", cfg.Timezone, "IANA timezone for calendar days (default local)")
	rootCmd.PersistentFlags().StringVar(&cfg.StorageKey, "key", cfg.StorageKey, "storage key holding the ledger")

	rootCmd.AddCommand(c.takeCmd())
	rootCmd.AddCommand(c.todayCmd())
	rootCmd.AddCommand(c.streakCmd())
	rootCmd.AddCommand(c.weeklyCmd())
	rootCmd.AddCommand(c.statusCmd())
	rootCmd.AddCommand(c.nextCmd())
	rootCmd.AddCommand(c.scheduleCmd())
	rootCmd.AddCommand(c.symptomsCmd())
	rootCmd.AddCommand(c.progressCmd())
	rootCmd.AddCommand(c.resetCmd())
	rootCmd.AddCommand(c.serveCmd())

	return rootCmd
}

func (c *cli) openStore(ctx context.Context) (kv.Store, func() error, error) {
	if c.cfg.IsMemory() {
		m := kv.NewMemory()
		return m, m.Close, nil
	}

	if c.cfg.IsPostgres() {
		if c.cfg.DatabaseURL == "" {
			return nil, nil, errors.New("DATABASE_URL is required for the pgx driver")
		}
	} else {
		// Ensure directory exists
		dir := filepath.Dir(c.cfg.DBPath)
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, nil, fmt.Errorf("create db dir: %w", err)
		}
	}

	c.logger().Debug("opening store", "driver", c.cfg.Driver, "dsn", c.cfg.DSNForLog())
	s, err := store.Open(ctx, c.cfg.Driver, c.cfg.DSN())
	if err != nil {
		return nil, nil, err
	}
	return s, s.Close, nil
}

// getLedger opens the store, hydrates the ledger and applies the daily reset
func (c *cli) getLedger(ctx context.Context) (*ledger.Ledger, func(), error) {
	loc, err := c.cfg.Location()
	if err != nil {
		return nil, nil, err
	}

	kvs, closeStore, err := c.openStore(ctx)
	if err != nil {
		return nil, nil, err
	}

	l, err := ledger.New(ctx, kvs, ledger.Options{
		Key:      c.cfg.StorageKey,
		Location: loc,
		Now:      c.now,
		Logger:   c.logger(),
	})
	if err != nil {
		_ = closeStore()
		return nil, nil, err
	}
	l.CheckAndResetDaily(ctx)

	closeFn := func() {
		if err := closeStore(); err != nil {
			c.logger().Warn("close store", "err", err)
		}
	}
	return l, closeFn, nil
}

func (c *cli) logger() *slog.Logger {
	if c.log == nil {
		return logger.Discard()
	}
	return c.log
}

// withLedger runs fn against an open ledger and flushes it afterwards
func (c *cli) withLedger(cmd *cobra.Command, fn func(l *ledger.Ledger) error) error {
	ctx := cmd.Context()
	l, closeFn, err := c.getLedger(ctx)
	if err != nil {
		return err
	}
	defer closeFn()

	if err := fn(l); err != nil {
		return err
	}
	if err := l.Flush(ctx); err != nil {
		return fmt.Errorf("save ledger: %w", err)
	}
	return nil
}

func (c *cli) takeCmd() *cobra.Command {
	var at string

	cmd := &cobra.Command{
		Use:   "take [label]",
		Short: "Log a dose",
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.withLedger(cmd, func(l *ledger.Ledger) error {
				when, err := parseAt(at, c.now(), l.Location())
				if err != nil {
					return err
				}

				dose := l.RecordDose(cmd.Context(), strings.Join(args, " "), when)
				out := cmd.OutOrStdout()
				fmt.Fprintf(out, "Logged %s at %s\n", dose.Type, dose.Time().In(l.Location()).Format("2006-01-02 15:04"))
				fmt.Fprintf(out, "Today: %d/%d\n", l.CountDosesToday(), l.TargetPerDay())
				return nil
			})
		},
	}

	cmd.Flags().StringVar(&at, "at", "", "when the dose was taken (RFC3339 or time of day)")
	return cmd
}

func (c *cli) todayCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "today",
		Short: "Show today's dose count",
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.withLedger(cmd, func(l *ledger.Ledger) error {
				n, target := l.CountDosesToday(), l.TargetPerDay()
				fmt.Fprintf(cmd.OutOrStdout(), "%d/%d doses today  %s\n", n, target, bar(n, target))
				return nil
			})
		},
	}
}

func (c *cli) streakCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "streak",
		Short: "Show the current streak of complete days",
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.withLedger(cmd, func(l *ledger.Ledger) error {
				streak := l.CurrentStreak()
				unit := "days"
				if streak == 1 {
					unit = "day"
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%d %s\n", streak, unit)
				return nil
			})
		},
	}
}

func (c *cli) weeklyCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "weekly",
		Short: "Show dose counts for the last 7 days",
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.withLedger(cmd, func(l *ledger.Ledger) error {
				counts := l.WeeklyCompliance()
				labels := weekdayLabels(c.now(), l.Location())
				target := l.TargetPerDay()
				for i, n := range counts {
					fmt.Fprintf(cmd.OutOrStdout(), "%s  %s %d\n", labels[i], bar(n, target), n)
				}
				return nil
			})
		},
	}
}

func (c *cli) statusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show the dashboard summary",
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.withLedger(cmd, func(l *ledger.Ledger) error {
				s := l.Summary()
				out := cmd.OutOrStdout()

				fmt.Fprintf(out, "Date:      %s\n", s.Date)
				fmt.Fprintf(out, "Today:     %d/%d %s\n", s.DosesToday, s.TargetPerDay, bar(s.DosesToday, s.TargetPerDay))
				fmt.Fprintf(out, "Streak:    %d\n", s.Streak)
				fmt.Fprintf(out, "Next dose: %s\n", s.Next)
				if s.AnsweredToday {
					fmt.Fprintln(out, "Symptoms:  answered")
				} else {
					fmt.Fprintln(out, "Symptoms:  not answered yet")
				}
				if s.ScheduleConfigured {
					fmt.Fprintln(out, "\nSchedule:")
					for _, slot := range s.Slots {
						mark := " "
						if slot.Taken {
							mark = "x"
						}
						fmt.Fprintf(out, "  [%s] %-8s %s\n", mark, slot.Time, slot.Label)
					}
				}
				return nil
			})
		},
	}
}

func (c *cli) nextCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "next",
		Short: "Show when the next dose is due",
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.withLedger(cmd, func(l *ledger.Ledger) error {
				next := l.NextDose()
				if next.Configured {
					fmt.Fprintf(cmd.OutOrStdout(), "%s (%s)\n", next, next.Slot.Label)
				} else {
					fmt.Fprintln(cmd.OutOrStdout(), next)
				}
				return nil
			})
		},
	}
}

func (c *cli) scheduleCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "schedule",
		Short: "Show or replace the daily dose schedule",
	}

	show := &cobra.Command{
		Use:   "show",
		Short: "Show the schedule",
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.withLedger(cmd, func(l *ledger.Ledger) error {
				out := cmd.OutOrStdout()
				if !l.ScheduleConfigured() {
					fmt.Fprintln(out, "(default schedule, not configured yet)")
				}
				for _, e := range l.Schedule() {
					fmt.Fprintf(out, "%-8s %s\n", e.Time, e.Label)
				}
				return nil
			})
		},
	}

	set := &cobra.Command{
		Use:     "set [TIME=LABEL]...",
		Short:   "Replace the schedule",
		Example: `  doselog schedule set "8:00 AM=Morning Dose" "8:00 PM=Evening Dose"`,
		Args:    cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			entries := make([]domain.ScheduleEntry, 0, len(args))
			for _, arg := range args {
				e, err := parseScheduleArg(arg)
				if err != nil {
					return err
				}
				entries = append(entries, e)
			}

			return c.withLedger(cmd, func(l *ledger.Ledger) error {
				l.SetSchedule(cmd.Context(), entries)
				l.MarkScheduleConfigured(cmd.Context(), true)
				fmt.Fprintf(cmd.OutOrStdout(), "Schedule saved: %d doses per day\n", l.TargetPerDay())
				return nil
			})
		},
	}

	cmd.AddCommand(show, set)
	return cmd
}

func (c *cli) symptomsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "symptoms",
		Short: "Record or show daily symptom ratings",
		RunE: func(cmd *cobra.Command, args []string) error {
			for _, s := range domain.Symptoms() {
				fmt.Fprintf(cmd.OutOrStdout(), "%d  %s\n", s.ID, s.Name)
			}
			return nil
		},
	}

	record := &cobra.Command{
		Use:     "record [ID=RATING]...",
		Short:   "Save today's ratings (1-5)",
		Example: "  doselog symptoms record 1=4 2=5 3=3 5=4",
		Args:    cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ratings, err := parseRatings(args)
			if err != nil {
				return err
			}

			return c.withLedger(cmd, func(l *ledger.Ledger) error {
				entry := l.RecordSymptoms(cmd.Context(), ratings)
				fmt.Fprintf(cmd.OutOrStdout(), "Saved %d ratings for %s\n", len(entry.Symptoms), entry.Date)
				return nil
			})
		},
	}

	var sampleAt string
	sample := &cobra.Command{
		Use:     "sample ID=RATING",
		Short:   "Log one rating to the history without saving a daily entry",
		Example: "  doselog symptoms sample 3=2 --at \"9:30 PM\"",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ratings, err := parseRatings(args)
			if err != nil {
				return err
			}

			return c.withLedger(cmd, func(l *ledger.Ledger) error {
				when, err := parseAt(sampleAt, c.now(), l.Location())
				if err != nil {
					return err
				}
				for id, rating := range ratings {
					s := l.RecordSymptomSample(cmd.Context(), id, rating, when)
					fmt.Fprintf(cmd.OutOrStdout(), "Logged symptom %d at %d/%d on %s\n",
						s.SymptomID, s.Rating, domain.MaxRating,
						s.Time().In(l.Location()).Format("2006-01-02 15:04"))
				}
				return nil
			})
		},
	}
	sample.Flags().StringVar(&sampleAt, "at", "", "when the rating applies (RFC3339 or time of day)")

	today := &cobra.Command{
		Use:   "today",
		Short: "Show today's ratings",
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.withLedger(cmd, func(l *ledger.Ledger) error {
				out := cmd.OutOrStdout()
				entry, ok := l.TodaySymptomEntry()
				if !ok || !l.HasAnsweredToday() {
					fmt.Fprintln(out, "No ratings yet today. Use 'doselog symptoms record'.")
					return nil
				}
				for _, id := range sortedIDs(entry.Symptoms) {
					name := fmt.Sprintf("symptom %d", id)
					if s, ok := domain.LookupSymptom(id); ok {
						name = s.Name
					}
					fmt.Fprintf(out, "%-14s %d/%d\n", name, entry.Symptoms[id], domain.MaxRating)
				}
				return nil
			})
		},
	}

	cmd.AddCommand(record, sample, today)
	return cmd
}

func (c *cli) progressCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "progress",
		Short: "Show compliance, energy and achievements",
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.withLedger(cmd, func(l *ledger.Ledger) error {
				p := l.Progress()
				out := cmd.OutOrStdout()

				fmt.Fprintf(out, "Days since start: %d (%d doses)\n", p.DaysSinceStart, p.TotalDoses)
				fmt.Fprintln(out, "\nWeekly compliance:")
				for i, pct := range p.MonthlyCompliance {
					fmt.Fprintf(out, "  week %d  %3d%%  energy %.1f\n", i+1, pct, p.Energy[i])
				}

				fmt.Fprintln(out, "\nAchievements:")
				for _, a := range p.Achievements {
					switch {
					case a.Unlocked:
						fmt.Fprintf(out, "  [x] %s\n", a.Title)
					case a.Progress != nil:
						fmt.Fprintf(out, "  [ ] %s (%d%%)\n", a.Title, *a.Progress)
					default:
						fmt.Fprintf(out, "  [ ] %s\n", a.Title)
					}
				}
				return nil
			})
		},
	}
}

func (c *cli) resetCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "reset",
		Short: "Run the daily reset check",
		RunE: func(cmd *cobra.Command, args []string) error {
			// getLedger already ran the check; report where it landed.
			return c.withLedger(cmd, func(l *ledger.Ledger) error {
				fmt.Fprintf(cmd.OutOrStdout(), "Last reset: %s\n", l.LastResetDate())
				return nil
			})
		},
	}
}

func (c *cli) serveCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the REST API server",
		RunE: func(cmd *cobra.Command, args []string) error {
			l, closeFn, err := c.getLedger(cmd.Context())
			if err != nil {
				return err
			}
			defer closeFn()

			server := api.New(l, c.cfg.Addr, c.logger())
			return server.Run(cmd.Context())
		},
	}

	cmd.Flags().StringVarP(&c.cfg.Addr, "addr", "a", c.cfg.Addr, "server address")
	return cmd
}
