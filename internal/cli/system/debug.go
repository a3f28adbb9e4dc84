package system

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/julianstephens/streaklit/internal/cli"
	"github.com/julianstephens/streaklit/internal/keyring"
	"github.com/julianstephens/streaklit/internal/models"
	"github.com/julianstephens/streaklit/internal/storage"
	"github.com/julianstephens/streaklit/internal/utils"
)

type DebugCmd struct {
	DBPath    DebugDBPathCmd    `cmd:"" help:"Show the database location."`
	DumpHabit DebugDumpHabitCmd `cmd:"" help:"Dump a habit and its raw marks as JSON."`
}

type DebugDBPathCmd struct{}

func (cmd *DebugDBPathCmd) Run(ctx *cli.Context) error {
	output := map[string]string{
		"backend": "sqlite",
		"path":    ctx.Store.GetConfigPath(),
	}
	if !ctx.IsSQLite() {
		output["backend"] = "postgres"
		output["path"] = keyring.MaskPassword(ctx.Settings().Database.Path)
	}
	return printJSON(ctx, output)
}

type DebugDumpHabitCmd struct {
	Habit string `arg:"" help:"Habit name or id."`
}

type habitDump struct {
	models.HabitCount
	Marks []string `json:"marks"`
}

func (cmd *DebugDumpHabitCmd) Run(ctx *cli.Context) error {
	bg := context.Background()
	h, err := ctx.ResolveHabit(bg, cmd.Habit)
	if err != nil {
		return err
	}

	dates, err := ctx.Store.ListMarkedDates(bg, h.ID, storage.Ascending)
	if err != nil {
		return fmt.Errorf("failed to list marks: %w", err)
	}
	dump := habitDump{HabitCount: h, Marks: make([]string, len(dates))}
	for i, d := range dates {
		dump.Marks[i] = utils.FormatDay(d)
	}
	return printJSON(ctx, dump)
}

func printJSON(ctx *cli.Context, v interface{}) error {
	jsonBytes, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal output: %w", err)
	}
	ctx.Println(string(jsonBytes))
	return nil
}
