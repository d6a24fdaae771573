package cli

import (
	"strconv"

	"github.com/julianstephens/activitytracker/internal/utils"
)

type DurationCmd struct {
	Start string `arg:"" help:"Start timestamp."`
	Stop  string `arg:"" help:"Stop timestamp."`
	Unit  string `short:"u" help:"Result unit (hours|minutes|seconds)." default:"hours"`
}

func (c *DurationCmd) Run(ctx *Context) error {
	unit, err := utils.ParseUnit(c.Unit)
	if err != nil {
		return err
	}
	d, err := ctx.Timestamps().Duration(c.Start, c.Stop, unit)
	if err != nil {
		return err
	}
	ctx.println(strconv.FormatFloat(d, 'f', -1, 64))
	return nil
}

type ShiftCmd struct {
	Timestamp string  `arg:"" help:"Timestamp to shift."`
	Hours     float64 `short:"H" help:"Hours to add."`
	Minutes   float64 `short:"M" help:"Minutes to add."`
	Seconds   float64 `short:"S" help:"Seconds to add."`
	Back      bool    `short:"b" help:"Subtract the magnitudes instead of adding."`
}

func (c *ShiftCmd) Run(ctx *Context) error {
	ts := ctx.Timestamps()
	shift := ts.Shift
	if c.Back {
		shift = ts.Decrease
	}
	out, err := shift(c.Timestamp, c.Hours, c.Minutes, c.Seconds)
	if err != nil {
		return err
	}
	ctx.println(out)
	return nil
}

type NowCmd struct{}

func (c *NowCmd) Run(ctx *Context) error {
	ctx.println(ctx.Timestamps().NowText())
	return nil
}

type CompareCmd struct {
	A         string  `arg:"" optional:"" help:"First timestamp. Defaults to now."`
	B         string  `arg:"" optional:"" help:"Second timestamp. Defaults to now."`
	Tolerance float64 `short:"t" help:"Tolerance in seconds." default:"${tolerance}"`
}

func (c *CompareCmd) Run(ctx *Context) error {
	ok, err := ctx.Timestamps().ApproxEqual(c.A, c.B, c.Tolerance)
	if err != nil {
		return err
	}
	if ok {
		ctx.println("equal")
	} else {
		ctx.println("different")
	}
	return nil
}
