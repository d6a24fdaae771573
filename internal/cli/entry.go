package cli

import (
	"fmt"
	"strings"

	"github.com/bytedance/sonic"

	"github.com/julianstephens/activitytracker/internal/models"
	"github.com/julianstephens/activitytracker/internal/utils"
)

type AddCmd struct {
	Activity string  `arg:"" help:"Activity label."`
	Start    string  `short:"s" help:"Start timestamp (YYYY-MM-DDTHH:MM:SS). Defaults to now."`
	Stop     string  `short:"e" help:"Stop timestamp. Defaults to start plus the default duration."`
	Minutes  float64 `short:"m" help:"Duration in minutes, instead of --stop."`
	Notes    string  `short:"n" help:"Free-form notes."`
}

func (c *AddCmd) Validate() error {
	if c.Minutes < 0 {
		return fmt.Errorf("minutes must not be negative")
	}
	if c.Minutes > 0 && c.Stop != "" {
		return fmt.Errorf("--minutes and --stop are mutually exclusive")
	}
	return nil
}

func (c *AddCmd) Run(ctx *Context) error {
	if _, err := ctx.Load(); err != nil {
		return err
	}
	vm, err := ctx.ViewModel()
	if err != nil {
		return err
	}
	vm.Initialize()

	in := models.EntryInput{Start: c.Start, Stop: c.Stop, Activity: c.Activity, Notes: c.Notes}
	if c.Minutes > 0 {
		ts := ctx.Timestamps()
		start, err := ts.ValidateStart(c.Start)
		if err != nil {
			return err
		}
		stop, err := ts.Increase(start, 0, c.Minutes, 0)
		if err != nil {
			return err
		}
		in.Start, in.Stop = start, stop
	}

	entry, err := vm.AddEntry(in)
	if err != nil {
		return err
	}
	if err := vm.Save(""); err != nil {
		return err
	}

	ctx.printf("✓ Added %q %s → %s (%.2fh)\n", entry.Activity(), entry.Start(), entry.Stop(), entry.Duration())
	if entry.IsNegative() {
		ctx.printf("⚠ Stop is before start; run 'activitytracker validate' to review.\n")
	}
	return nil
}

type ListCmd struct {
	Activity string `short:"a" help:"Only show entries with this activity label."`
	Limit    int    `short:"l" help:"Show only the most recent N entries."`
	JSON     bool   `help:"Print entries as JSON."`
}

func (c *ListCmd) Run(ctx *Context) error {
	m, err := ctx.Load()
	if err != nil {
		return err
	}

	var entries []models.ActivityEntry
	for _, e := range m.Entries() {
		if c.Activity != "" && !strings.EqualFold(e.Activity(), c.Activity) {
			continue
		}
		entries = append(entries, e)
	}
	if c.Limit > 0 && len(entries) > c.Limit {
		entries = entries[len(entries)-c.Limit:]
	}

	if c.JSON {
		if entries == nil {
			entries = []models.ActivityEntry{}
		}
		data, err := sonic.MarshalIndent(entries, "", "  ")
		if err != nil {
			return fmt.Errorf("failed to marshal entries: %w", err)
		}
		ctx.println(string(data))
		return nil
	}

	if len(entries) == 0 {
		ctx.println("No entries found")
		return nil
	}

	ctx.println("Entries:")
	for _, e := range entries {
		ctx.printf("  %s → %s  %6.2fh  %s\n", e.Start(), e.Stop(), e.Duration(), e.Activity())
		if e.Notes() != "" {
			ctx.printf("      %s\n", e.Notes())
		}
	}
	return nil
}

type SummaryCmd struct {
	Unit string `short:"u" help:"Unit for totals (hours|minutes|seconds)." default:"hours"`
}

func (c *SummaryCmd) Run(ctx *Context) error {
	unit, err := utils.ParseUnit(c.Unit)
	if err != nil {
		return err
	}
	if _, err := ctx.Load(); err != nil {
		return err
	}
	vm, err := ctx.ViewModel()
	if err != nil {
		return err
	}

	totals := vm.Summary()
	if len(totals) == 0 {
		ctx.println("No entries found")
		return nil
	}

	scale := hoursTo(unit)
	width := 8
	for _, t := range totals {
		if len(t.Activity) > width {
			width = len(t.Activity)
		}
	}

	ctx.printf("Summary (%s):\n", unit)
	for _, t := range totals {
		label := t.Activity
		if label == "" {
			label = "(none)"
		}
		ctx.printf("  %-*s  %10.2f  (%d entries)\n", width, label, t.Hours*scale, t.Entries)
	}
	ctx.printf("  %-*s  %10.2f\n", width, "total", vm.TotalHours()*scale)
	return nil
}

func hoursTo(unit utils.Unit) float64 {
	switch unit {
	case utils.Minutes:
		return 60
	case utils.Seconds:
		return 3600
	default:
		return 1
	}
}
