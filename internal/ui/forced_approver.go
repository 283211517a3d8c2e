package ui

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/vvka-141/csvetl/pkg/csvetl"
)

var dangerBanner = lipgloss.NewStyle().
	Border(lipgloss.DoubleBorder()).
	BorderForeground(lipgloss.Color("196")).
	Foreground(lipgloss.Color("196")).
	Bold(true).
	Padding(0, 2)

// ForcedApprover approves a replace load after a countdown. Used with --force.
type ForcedApprover struct {
	verbose bool
	output  io.Writer
	sleepFn func(time.Duration)
}

// NewForcedApprover writes its countdown to stderr.
func NewForcedApprover(verbose bool) csvetl.Approver {
	return &ForcedApprover{
		verbose: verbose,
		output:  os.Stderr,
		sleepFn: time.Sleep,
	}
}

// RequestApproval counts down DefaultForceApprovalCountdown, then approves.
// Cancelling ctx during the countdown denies with ctx's error.
func (a *ForcedApprover) RequestApproval(ctx context.Context, table string) (bool, error) {
	warning := fmt.Sprintf("DANGER: replace load\n\nEvery row in table %q will be deleted\nbefore the new data is loaded.", table)
	fmt.Fprintln(a.output)
	fmt.Fprintln(a.output, dangerBanner.Render(warning))
	fmt.Fprintln(a.output)

	countdownSeconds := int(csvetl.DefaultForceApprovalCountdown.Seconds())
	for i := countdownSeconds; i > 0; i-- {
		if err := ctx.Err(); err != nil {
			fmt.Fprintln(a.output)
			return false, err
		}
		fmt.Fprintf(a.output, "\rTruncating in: %d seconds... (Press Ctrl+C to cancel)", i)
		a.sleepFn(time.Second)
	}
	if err := ctx.Err(); err != nil {
		fmt.Fprintln(a.output)
		return false, err
	}

	fmt.Fprintf(a.output, "\r✓ Proceeding with replace of %s...                              \n", table)
	return true, nil
}

var _ csvetl.Approver = (*ForcedApprover)(nil)
