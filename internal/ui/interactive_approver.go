package ui

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/vvka-141/csvetl/pkg/csvetl"
)

// InteractiveApprover asks the user to type the table name before a
// replace load truncates it.
type InteractiveApprover struct {
	verbose bool
	input   io.Reader
	output  io.Writer
}

// NewInteractiveApprover reads from stdin and prompts on stderr.
func NewInteractiveApprover(verbose bool) csvetl.Approver {
	return &InteractiveApprover{
		verbose: verbose,
		input:   os.Stdin,
		output:  os.Stderr,
	}
}

// RequestApproval approves only when the typed line, trimmed, equals table.
func (a *InteractiveApprover) RequestApproval(ctx context.Context, table string) (bool, error) {
	fmt.Fprintf(a.output, "\n⚠️  WARNING: You are about to REPLACE the contents of table '%s'\n", table)
	fmt.Fprintln(a.output, "This will permanently delete every existing row in the table!")
	fmt.Fprintf(a.output, "\nTo confirm, type the table name '%s' and press Enter: ", table)

	// The read cannot be interrupted, so it runs in its own goroutine.
	inputChan := make(chan string, 1)
	errChan := make(chan error, 1)

	go func() {
		reader := bufio.NewReader(a.input)
		input, err := reader.ReadString('\n')
		if err != nil && input == "" {
			errChan <- err
			return
		}
		inputChan <- strings.TrimSpace(input)
	}()

	select {
	case <-ctx.Done():
		return false, ctx.Err()
	case err := <-errChan:
		return false, fmt.Errorf("failed to read input: %w", err)
	case input := <-inputChan:
		if input == table {
			fmt.Fprintln(a.output, "✓ Confirmed. Proceeding with replace...")
			return true, nil
		}
		fmt.Fprintf(a.output, "✗ Input '%s' does not match table name '%s'. Operation cancelled.\n", input, table)
		return false, nil
	}
}

var _ csvetl.Approver = (*InteractiveApprover)(nil)
