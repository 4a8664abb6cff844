package cli

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/lazypower/charmlink/internal/engine"
	"github.com/lazypower/charmlink/internal/store"
)

var (
	habitFocus  string
	habitTarget int
	habitVerify bool
	habitDays   int
)

var habitCmd = &cobra.Command{
	Use:   "habit",
	Short: "Track habits",
}

func printHabit(w io.Writer, h store.Habit) {
	fmt.Fprintf(w, "%s  %s [%s]\n", h.ID, h.Title, h.FocusArea)
	fmt.Fprintf(w, "  streak: %d (longest %d)  total: %d/%d days\n",
		h.CurrentStreak, h.LongestStreak, h.TotalCompletions, h.TargetDays)
}

var habitAddCmd = &cobra.Command{
	Use:   "add <charmID> <title...>",
	Short: "Add a habit to a habit charm",
	Args:  cobra.MinimumNArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := apiClient()
		if err != nil {
			return err
		}
		ctx, cancel := context.WithTimeout(cmd.Context(), commandTimeout)
		defer cancel()

		habits, err := c.CreateHabits(ctx, args[0], []engine.NewHabit{{
			Title:      strings.Join(args[1:], " "),
			FocusArea:  habitFocus,
			TargetDays: habitTarget,
		}})
		if err != nil {
			return fmt.Errorf("add habit: %w", err)
		}
		for _, h := range habits {
			printHabit(cmd.OutOrStdout(), h)
		}
		return nil
	},
}

var habitListCmd = &cobra.Command{
	Use:   "list <charmID>",
	Short: "List the habits of a charm",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := apiClient()
		if err != nil {
			return err
		}
		ctx, cancel := context.WithTimeout(cmd.Context(), commandTimeout)
		defer cancel()

		habits, err := c.Habits(ctx, args[0])
		if err != nil {
			return fmt.Errorf("list habits: %w", err)
		}
		out := cmd.OutOrStdout()
		if len(habits) == 0 {
			fmt.Fprintln(out, "No habits found.")
			return nil
		}
		for _, h := range habits {
			printHabit(out, h)
		}
		return nil
	},
}

var habitShowCmd = &cobra.Command{
	Use:   "show <habitID>",
	Short: "Show a habit's counters",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := apiClient()
		if err != nil {
			return err
		}
		ctx, cancel := context.WithTimeout(cmd.Context(), commandTimeout)
		defer cancel()

		resp, err := c.Habit(ctx, args[0], habitVerify)
		if err != nil {
			return fmt.Errorf("show habit: %w", err)
		}
		out := cmd.OutOrStdout()
		printHabit(out, resp.Habit)
		if d := resp.Verify; d != nil {
			status := "ok"
			if !d.OK {
				status = "DRIFT"
			}
			fmt.Fprintf(out, "  verify: %s as of %s (computed streak %d, longest run %d, total %d)\n",
				status, d.CountedOn, d.Computed.Current, d.Computed.Longest, d.Computed.Total)
		}
		return nil
	},
}

var habitLogCmd = &cobra.Command{
	Use:   "log <habitID>",
	Short: "Mark today as done",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := apiClient()
		if err != nil {
			return err
		}
		ctx, cancel := context.WithTimeout(cmd.Context(), commandTimeout)
		defer cancel()

		res, err := c.LogToday(ctx, args[0])
		if err != nil {
			return fmt.Errorf("log habit: %w", err)
		}
		out := cmd.OutOrStdout()
		if res.Created {
			fmt.Fprintf(out, "Logged %s for %s.\n", res.Day, res.Habit.Title)
		} else {
			fmt.Fprintf(out, "%s already logged for %s.\n", res.Day, res.Habit.Title)
		}
		printHabit(out, res.Habit)
		return nil
	},
}

var habitToggleCmd = &cobra.Command{
	Use:   "toggle <habitID> <YYYY-MM-DD>",
	Short: "Mark or unmark a past date",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		if _, err := engine.ParseDay(args[1]); err != nil {
			return err
		}
		c, err := apiClient()
		if err != nil {
			return err
		}
		ctx, cancel := context.WithTimeout(cmd.Context(), commandTimeout)
		defer cancel()

		res, err := c.Toggle(ctx, args[0], args[1])
		if err != nil {
			return fmt.Errorf("toggle habit: %w", err)
		}
		out := cmd.OutOrStdout()
		if res.Marked {
			fmt.Fprintf(out, "Marked %s done.\n", res.Day)
		} else {
			fmt.Fprintf(out, "Unmarked %s.\n", res.Day)
		}
		printHabit(out, res.Habit)
		return nil
	},
}

var habitGraphCmd = &cobra.Command{
	Use:   "graph <habitID>",
	Short: "Show the contribution graph",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := apiClient()
		if err != nil {
			return err
		}
		ctx, cancel := context.WithTimeout(cmd.Context(), commandTimeout)
		defer cancel()

		g, err := c.Graph(ctx, args[0], habitDays)
		if err != nil {
			return fmt.Errorf("graph: %w", err)
		}
		fmt.Fprintln(cmd.OutOrStdout(), renderGraph(g))
		return nil
	},
}

var habitDeleteCmd = &cobra.Command{
	Use:   "delete <habitID>",
	Short: "Delete a habit and its history",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := apiClient()
		if err != nil {
			return err
		}
		ctx, cancel := context.WithTimeout(cmd.Context(), commandTimeout)
		defer cancel()

		if err := c.DeleteHabit(ctx, args[0]); err != nil {
			return fmt.Errorf("delete habit: %w", err)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Deleted habit %s.\n", args[0])
		return nil
	},
}

func init() {
	habitAddCmd.Flags().StringVar(&habitFocus, "focus", "mindfulness",
		"Focus area: "+strings.Join(engine.FocusAreas, ", "))
	habitAddCmd.Flags().IntVar(&habitTarget, "target", 21, "Target length in days (1-365)")
	habitShowCmd.Flags().BoolVar(&habitVerify, "verify", false, "Cross-check counters against the log history")
	habitGraphCmd.Flags().IntVar(&habitDays, "days", 0, "Window length in days (default from server config)")

	habitCmd.AddCommand(habitAddCmd)
	habitCmd.AddCommand(habitListCmd)
	habitCmd.AddCommand(habitShowCmd)
	habitCmd.AddCommand(habitLogCmd)
	habitCmd.AddCommand(habitToggleCmd)
	habitCmd.AddCommand(habitGraphCmd)
	habitCmd.AddCommand(habitDeleteCmd)
}
