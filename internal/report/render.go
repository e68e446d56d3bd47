package report

import (
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/fatih/color"
)

// Render writes a human readable summary. Color escapes are only emitted
// when colored is true.
func Render(w io.Writer, r Report, colored bool) error {
	pass := color.New(color.FgGreen, color.Bold)
	fail := color.New(color.FgRed, color.Bold)
	head := color.New(color.FgCyan)
	for _, c := range []*color.Color{pass, fail, head} {
		if colored {
			c.EnableColor()
		} else {
			c.DisableColor()
		}
	}

	verdict := pass.Sprint("PASS")
	if !r.OK() {
		verdict = fail.Sprint("FAIL")
	}
	if _, err := fmt.Fprintf(w, "%s runs=%s scenarios=%d passed=%d failed=%d fees=%s\n",
		verdict, strings.Join(r.RunIDs, ","), r.Total, r.Passed, r.Failed, r.Fees); err != nil {
		return fmt.Errorf("write summary: %w", err)
	}

	if err := writeGroups(w, head.Sprint("by action"), r.ByAction); err != nil {
		return err
	}
	if len(r.ByKind) > 0 {
		if err := writeGroups(w, head.Sprint("failures by kind"), r.ByKind); err != nil {
			return err
		}
	}

	if len(r.Failures) == 0 {
		return nil
	}
	if _, err := fmt.Fprintf(w, "\n%s\n", head.Sprint("failures")); err != nil {
		return fmt.Errorf("write failures: %w", err)
	}
	for _, f := range r.Failures {
		line := fmt.Sprintf("  %s %s [%s] step=%q: %s", fail.Sprint("x"), f.Scenario, f.Kind, f.Step, f.Error)
		if f.FormulaPrice != "" || f.LivePrice != "" {
			line += fmt.Sprintf(" (formula=%s live=%s)", f.FormulaPrice, f.LivePrice)
		}
		if _, err := fmt.Fprintln(w, line); err != nil {
			return fmt.Errorf("write failures: %w", err)
		}
		for _, m := range f.Mismatches {
			if _, err := fmt.Fprintf(w, "      %s expected=%s actual=%s\n", m.Balance, m.Expected, m.Actual); err != nil {
				return fmt.Errorf("write failures: %w", err)
			}
		}
	}
	return nil
}

func writeGroups(w io.Writer, title string, groups []Group) error {
	if _, err := fmt.Fprintf(w, "\n%s\n", title); err != nil {
		return fmt.Errorf("write groups: %w", err)
	}
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "  NAME\tTOTAL\tPASSED\tFAILED\tAVG\tMAX")
	for _, g := range groups {
		var avg int64
		if g.Total > 0 {
			avg = g.Duration.Milliseconds() / int64(g.Total)
		}
		fmt.Fprintf(tw, "  %s\t%d\t%d\t%d\t%dms\t%dms\n",
			g.Name, g.Total, g.Passed, g.Failed, avg, g.MaxDuration.Milliseconds())
	}
	if err := tw.Flush(); err != nil {
		return fmt.Errorf("write groups: %w", err)
	}
	return nil
}
