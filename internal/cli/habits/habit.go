package habits

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/julianstephens/streaklit/internal/cli"
	"github.com/julianstephens/streaklit/internal/render"
	"github.com/julianstephens/streaklit/internal/tracker"
	"github.com/julianstephens/streaklit/internal/utils"
)

type HabitCmd struct {
	Add    HabitAddCmd    `cmd:"" help:"Add a new habit."`
	Delete HabitDeleteCmd `cmd:"" help:"Delete a habit and all its marks."`
	Mark   HabitMarkCmd   `cmd:"" help:"Mark a habit as done for a day."`
	Unmark HabitUnmarkCmd `cmd:"" help:"Remove the done mark for a day."`
	List   HabitListCmd   `cmd:"" help:"Show the dashboard: totals, streaks and a bar chart." default:"1"`
	Show   HabitShowCmd   `cmd:"" help:"Show a habit's heatmap."`
}

type HabitAddCmd struct {
	Name        string `arg:"" help:"Habit name."`
	Description string `short:"d" help:"Optional description."`
}

func (c *HabitAddCmd) Run(ctx *cli.Context) error {
	h, err := ctx.Service().AddHabit(context.Background(), c.Name, c.Description)
	if err != nil {
		return err
	}
	ctx.Printf("Added habit %q (id %d)\n", h.Name, h.ID)
	return nil
}

type HabitDeleteCmd struct {
	Habit string `arg:"" help:"Habit name or id."`
	Yes   bool   `short:"y" help:"Skip the confirmation prompt."`
}

func (c *HabitDeleteCmd) Run(ctx *cli.Context) error {
	bg := context.Background()
	h, err := ctx.ResolveHabit(bg, c.Habit)
	if err != nil {
		return err
	}

	if !c.Yes {
		ok, err := ctx.ConfirmAction(
			fmt.Sprintf("Delete habit %q?", h.Name),
			fmt.Sprintf("This removes %d completion mark(s) and cannot be undone.", h.TotalDone),
		)
		if err != nil {
			return err
		}
		if !ok {
			ctx.Println("Delete cancelled.")
			return nil
		}
	}

	result, err := ctx.Service().DeleteHabit(bg, h.ID)
	if err != nil {
		return err
	}
	if !result.Found {
		ctx.Printf("Nothing to delete: habit %d no longer exists\n", h.ID)
		return nil
	}
	ctx.Printf("Deleted habit %q and %d mark(s)\n", h.Name, result.MarksRemoved)
	return nil
}

type HabitMarkCmd struct {
	Habit string `arg:"" help:"Habit name or id."`
	Date  string `help:"Date in YYYY-MM-DD format (default: today)." default:""`
}

func (c *HabitMarkCmd) Run(ctx *cli.Context) error {
	return changeMark(ctx, c.Habit, c.Date, "Marked", ctx.Service().MarkDone)
}

type HabitUnmarkCmd struct {
	Habit string `arg:"" help:"Habit name or id."`
	Date  string `help:"Date in YYYY-MM-DD format (default: today)." default:""`
}

func (c *HabitUnmarkCmd) Run(ctx *cli.Context) error {
	return changeMark(ctx, c.Habit, c.Date, "Unmarked", ctx.Service().Unmark)
}

func changeMark(ctx *cli.Context, ref, date, verb string, apply func(context.Context, int64, time.Time) error) error {
	bg := context.Background()
	h, err := ctx.ResolveHabit(bg, ref)
	if err != nil {
		return err
	}

	day := ctx.Service().Today()
	if date != "" {
		if day, err = utils.ParseDay(date); err != nil {
			return err
		}
	}

	if err := apply(bg, h.ID, day); err != nil {
		return err
	}
	ctx.Printf("%s habit %q for %s\n", verb, h.Name, utils.FormatDay(day))
	return nil
}

type HabitListCmd struct {
	JSON    bool `help:"Print the dashboard as JSON."`
	NoChart bool `help:"Skip the bar chart."`
}

func (c *HabitListCmd) Run(ctx *cli.Context) error {
	summaries, err := ctx.Service().GetDashboardSummary(context.Background())
	if err != nil {
		return err
	}

	if c.JSON {
		return printJSON(ctx, summaries)
	}

	if len(summaries) == 0 {
		ctx.Println("No habits found. Add one with 'streaklit habit add <name>'.")
		return nil
	}

	ctx.Printf("%-4s  %-24s  %6s  %6s\n", "ID", "HABIT", "DONE", "STREAK")
	for _, s := range summaries {
		ctx.Printf("%-4d  %-24s  %6d  %6d\n", s.ID, truncate(s.Name, 24), s.TotalDone, s.Streak)
	}

	if !c.NoChart {
		ctx.Println()
		ctx.Println(render.BarChart(render.ChartTitle, tracker.BarSeries(summaries), render.DefaultBarWidth))
	}
	return nil
}

type HabitShowCmd struct {
	Habit string `arg:"" help:"Habit name or id."`
	JSON  bool   `help:"Print the timeline as JSON."`
}

func (c *HabitShowCmd) Run(ctx *cli.Context) error {
	bg := context.Background()
	h, err := ctx.ResolveHabit(bg, c.Habit)
	if err != nil {
		return err
	}

	tl, err := ctx.Service().GetHabitTimeline(bg, h.ID)
	if err != nil {
		return err
	}

	if c.JSON {
		return printJSON(ctx, tl)
	}
	if h.Description != "" {
		ctx.Println(h.Description)
	}
	ctx.Println(render.Heatmap(tl))
	return nil
}

func printJSON(ctx *cli.Context, v interface{}) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	ctx.Println(string(data))
	return nil
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-1]) + "…"
}
