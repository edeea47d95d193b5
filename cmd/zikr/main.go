package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/ytakahashi/zikr-companion/internal/logging"
	"github.com/ytakahashi/zikr-companion/internal/models"
	"github.com/ytakahashi/zikr-companion/internal/qibla"
	"github.com/ytakahashi/zikr-companion/internal/services"
	"github.com/ytakahashi/zikr-companion/internal/tracker"
)

type cli struct {
	dataDir string
	format  string
	key     string
	verbose bool
	clock   tracker.Clock
}

func defaultDataDir() string {
	if dir, err := os.UserConfigDir(); err == nil {
		return filepath.Join(dir, "zikr")
	}
	return ".zikr"
}

func newRootCmd(clock tracker.Clock) *cobra.Command {
	c := &cli{clock: clock}

	root := &cobra.Command{
		Use:           "zikr",
		Short:         "A tasbih counter, daily dhikr tracker and Qibla finder.",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			level := "warn"
			if c.verbose {
				level = "debug"
			}
			logging.Setup(level, true)
		},
	}
	root.PersistentFlags().StringVar(&c.dataDir, "data-dir", defaultDataDir(), "Directory holding tracker state.")
	root.PersistentFlags().StringVar(&c.format, "format", "json", "State file format (json or yaml).")
	root.PersistentFlags().StringVar(&c.key, "key", tracker.DefaultKey, "Storage key of the tracker.")
	root.PersistentFlags().BoolVarP(&c.verbose, "verbose", "v", false, "Enable debug logging.")

	root.AddCommand(c.qiblaCmd(), c.countCmd(), c.tasksCmd(), c.streakCmd(), c.settingsCmd())
	return root
}

func main() {
	if err := newRootCmd(tracker.SystemClock{}).Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func (c *cli) open(ctx context.Context) (*tracker.Tracker, error) {
	store, err := services.NewFileStore(c.dataDir, c.format)
	if err != nil {
		return nil, err
	}
	t := tracker.Open(ctx, store, c.key, tracker.WithClock(c.clock))
	if _, err := t.ResetDailyTasksIfNewDay(ctx); unsaved(err) != nil {
		return nil, err
	}
	return t, nil
}

// unsaved turns a persistence failure into a warning: the command still
// reports the in-memory result.
func unsaved(err error) error {
	if errors.Is(err, tracker.ErrSaveFailed) {
		fmt.Fprintln(os.Stderr, "warning: changes could not be saved:", err)
		return nil
	}
	return err
}

func (c *cli) qiblaCmd() *cobra.Command {
	var lat, lng float64
	cmd := &cobra.Command{
		Use:   "qibla",
		Short: "Show the Qibla bearing and distance from a location.",
		RunE: func(cmd *cobra.Command, args []string) error {
			coord := models.Coordinate{Latitude: lat, Longitude: lng}
			if err := coord.Validate(); err != nil {
				return err
			}
			d := qibla.Find(coord)
			fmt.Fprintf(cmd.OutOrStdout(), "Bearing:  %.2f° (%s)\nDistance: %.0f km\n", d.Bearing, d.Compass, d.DistanceKm)
			return nil
		},
	}
	cmd.Flags().Float64Var(&lat, "lat", 0, "Latitude in degrees.")
	cmd.Flags().Float64Var(&lng, "lng", 0, "Longitude in degrees.")
	_ = cmd.MarkFlagRequired("lat")
	_ = cmd.MarkFlagRequired("lng")
	return cmd
}

func printCounter(w io.Writer, st *models.TrackerState) {
	if st.Mode == models.ModeInfinite {
		fmt.Fprintf(w, "%d (infinite)\n", st.CurrentCount)
		return
	}
	fmt.Fprintf(w, "%d / %d\n", st.CurrentCount, st.TargetCount)
}

func (c *cli) countCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "count [inc|reset|target N|mode target|infinite]",
		Short: "Show or change the free tasbih counter.",
		Args:  cobra.MaximumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			t, err := c.open(ctx)
			if err != nil {
				return err
			}

			if len(args) > 0 {
				switch args[0] {
				case "inc":
					_, err = t.IncrementCount(ctx)
				case "reset":
					err = t.ResetCount(ctx)
				case "target":
					if len(args) != 2 {
						return fmt.Errorf("usage: count target N")
					}
					n, convErr := strconv.Atoi(args[1])
					if convErr != nil {
						return fmt.Errorf("target must be a number: %w", convErr)
					}
					err = t.SetTargetCount(ctx, n)
				case "mode":
					if len(args) != 2 || !models.CounterMode(args[1]).Valid() {
						return fmt.Errorf("usage: count mode target|infinite")
					}
					err = t.SetMode(ctx, models.CounterMode(args[1]))
				default:
					return fmt.Errorf("unknown counter action %q", args[0])
				}
				if err := unsaved(err); err != nil {
					return err
				}
			}

			printCounter(cmd.OutOrStdout(), t.Snapshot())
			return nil
		},
	}
	return cmd
}

func printTasks(w io.Writer, t *tracker.Tracker) {
	p := t.Progress()
	fmt.Fprintf(w, "Today: %d/%d completed\n", p.Completed, p.Total)
	for _, task := range t.Snapshot().Tasks {
		mark := " "
		if task.IsCompleted {
			mark = "x"
		}
		fmt.Fprintf(w, "[%s] %-22s %3d/%-3d %s\n", mark, task.Title, task.CurrentCount, task.TargetCount, task.ID)
	}
}

func printTask(w io.Writer, task models.ZikrTask) {
	status := "in progress"
	if task.IsCompleted {
		status = "completed"
	}
	fmt.Fprintf(w, "%s: %d/%d (%s)\n", task.Title, task.CurrentCount, task.TargetCount, status)
}

func (c *cli) tasksCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "tasks",
		Short: "List and update daily dhikr tasks.",
		RunE: func(cmd *cobra.Command, args []string) error {
			t, err := c.open(cmd.Context())
			if err != nil {
				return err
			}
			printTasks(cmd.OutOrStdout(), t)
			return nil
		},
	}

	var spec models.TaskSpec
	add := &cobra.Command{
		Use:   "add",
		Short: "Add a custom task.",
		RunE: func(cmd *cobra.Command, args []string) error {
			spec.Title = strings.TrimSpace(spec.Title)
			if spec.Title == "" {
				return fmt.Errorf("--title is required")
			}
			if spec.TargetCount < 1 {
				return fmt.Errorf("--target must be at least 1")
			}
			spec.IsCustom = true

			t, err := c.open(cmd.Context())
			if err != nil {
				return err
			}
			task, err := t.AddTask(cmd.Context(), spec)
			if err := unsaved(err); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Added %q (%s)\n", task.Title, task.ID)
			return nil
		},
	}
	add.Flags().StringVar(&spec.Title, "title", "", "Task title.")
	add.Flags().IntVar(&spec.TargetCount, "target", 33, "Repetitions needed to complete the task.")
	add.Flags().StringVar(&spec.ArabicText, "arabic", "", "Arabic text.")
	add.Flags().StringVar(&spec.Transliteration, "transliteration", "", "Transliteration.")
	add.Flags().StringVar(&spec.Meaning, "meaning", "", "Meaning.")

	taskAction := func(use, short string, fn func(ctx context.Context, t *tracker.Tracker, id string) (models.ZikrTask, error)) *cobra.Command {
		return &cobra.Command{
			Use:   use + " ID",
			Short: short,
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				t, err := c.open(cmd.Context())
				if err != nil {
					return err
				}
				task, err := fn(cmd.Context(), t, args[0])
				if errors.Is(err, tracker.ErrTaskNotFound) {
					return fmt.Errorf("no task with id %q", args[0])
				}
				if err := unsaved(err); err != nil {
					return err
				}
				printTask(cmd.OutOrStdout(), task)
				return nil
			},
		}
	}
	inc := taskAction("inc", "Count one repetition of a task.", func(ctx context.Context, t *tracker.Tracker, id string) (models.ZikrTask, error) {
		return t.IncrementTaskCount(ctx, id)
	})
	complete := taskAction("complete", "Mark a task as completed for today.", func(ctx context.Context, t *tracker.Tracker, id string) (models.ZikrTask, error) {
		return t.CompleteTask(ctx, id)
	})

	del := &cobra.Command{
		Use:   "delete ID",
		Short: "Delete a task.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			t, err := c.open(cmd.Context())
			if err != nil {
				return err
			}
			err = t.DeleteTask(cmd.Context(), args[0])
			if errors.Is(err, tracker.ErrTaskNotFound) {
				return fmt.Errorf("no task with id %q", args[0])
			}
			if err := unsaved(err); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Deleted", args[0])
			return nil
		},
	}

	reset := &cobra.Command{
		Use:   "reset",
		Short: "Reset today's task counts, keeping completion history.",
		RunE: func(cmd *cobra.Command, args []string) error {
			t, err := c.open(cmd.Context())
			if err != nil {
				return err
			}
			if err := unsaved(t.ResetDailyTasks(cmd.Context())); err != nil {
				return err
			}
			printTasks(cmd.OutOrStdout(), t)
			return nil
		},
	}

	cmd.AddCommand(add, inc, complete, del, reset)
	return cmd
}

func (c *cli) streakCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "streak",
		Short: "Show the number of consecutive active days.",
		RunE: func(cmd *cobra.Command, args []string) error {
			t, err := c.open(cmd.Context())
			if err != nil {
				return err
			}
			n := t.Streak()
			unit := "days"
			if n == 1 {
				unit = "day"
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Streak: %d %s\n", n, unit)
			return nil
		},
	}
}

// parseSettings turns key=value pairs into a SettingsPatch.
func parseSettings(pairs []string) (models.SettingsPatch, error) {
	var patch models.SettingsPatch
	for _, pair := range pairs {
		key, value, ok := strings.Cut(pair, "=")
		if !ok {
			return patch, fmt.Errorf("expected key=value, got %q", pair)
		}
		if key == "reminderTime" {
			v := value
			patch.ReminderTime = &v
			continue
		}
		b, err := strconv.ParseBool(value)
		if err != nil {
			return patch, fmt.Errorf("%s must be true or false", key)
		}
		switch key {
		case "soundEnabled":
			patch.SoundEnabled = &b
		case "vibrationEnabled":
			patch.VibrationEnabled = &b
		case "showTransliteration":
			patch.ShowTransliteration = &b
		case "showMeaning":
			patch.ShowMeaning = &b
		default:
			return patch, fmt.Errorf("unknown setting %q", key)
		}
	}
	return patch, nil
}

func printSettings(w io.Writer, s models.Settings) {
	fmt.Fprintf(w, "soundEnabled=%t\nvibrationEnabled=%t\nshowTransliteration=%t\nshowMeaning=%t\nreminderTime=%s\n",
		s.SoundEnabled, s.VibrationEnabled, s.ShowTransliteration, s.ShowMeaning, s.ReminderTime)
}

func (c *cli) settingsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "settings",
		Short: "Show preferences.",
		RunE: func(cmd *cobra.Command, args []string) error {
			t, err := c.open(cmd.Context())
			if err != nil {
				return err
			}
			printSettings(cmd.OutOrStdout(), t.Snapshot().Settings)
			return nil
		},
	}
	set := &cobra.Command{
		Use:   "set key=value...",
		Short: "Change preferences.",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			patch, err := parseSettings(args)
			if err != nil {
				return err
			}
			t, err := c.open(cmd.Context())
			if err != nil {
				return err
			}
			s, err := t.UpdateSettings(cmd.Context(), patch)
			if err := unsaved(err); err != nil {
				return err
			}
			printSettings(cmd.OutOrStdout(), s)
			return nil
		},
	}
	cmd.AddCommand(set)
	return cmd
}
