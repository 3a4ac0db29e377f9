// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package confirm asks the user before destructive actions. A non-interactive
// caller must pass an explicit bypass (the CLI's --yes) instead.
package confirm

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"golang.org/x/term"

	"github.com/pdiddy/rag-filesearch/pkg/types"
)

// ErrAborted means the user declined a confirmation step.
var ErrAborted = errors.New("aborted by user")

// Prompter reads answers from In and writes questions to Out.
type Prompter struct {
	Out         io.Writer
	Interactive bool

	in *bufio.Reader
}

// New creates a prompter. It is interactive when in is a terminal.
func New(in io.Reader, out io.Writer) *Prompter {
	return &Prompter{
		Out:         out,
		Interactive: IsTerminal(in),
		in:          bufio.NewReader(in),
	}
}

// IsTerminal reports whether r is a file attached to a terminal.
func IsTerminal(r io.Reader) bool {
	f, ok := r.(interface{ Fd() uintptr })
	return ok && term.IsTerminal(int(f.Fd()))
}

// ReadLine prints prompt and returns the trimmed reply. At end of input it
// returns io.EOF.
func (p *Prompter) ReadLine(prompt string) (string, error) {
	if prompt != "" {
		fmt.Fprint(p.Out, prompt)
	}
	line, err := p.in.ReadString('\n')
	if err != nil && !(errors.Is(err, io.EOF) && line != "") {
		return "", err
	}
	return strings.TrimSpace(line), nil
}

// Confirm asks a yes/no question. Only "y" or "yes" (any case) accepts;
// end of input declines.
func (p *Prompter) Confirm(question string) (bool, error) {
	answer, err := p.ReadLine(question + " (yes/no): ")
	if errors.Is(err, io.EOF) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	switch strings.ToLower(answer) {
	case "y", "yes":
		return true, nil
	}
	return false, nil
}

// ConfirmTyped asks the user to type token exactly.
func (p *Prompter) ConfirmTyped(question, token string) (bool, error) {
	answer, err := p.ReadLine(fmt.Sprintf("%s Type %s to confirm: ", question, token))
	if errors.Is(err, io.EOF) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return answer == token, nil
}

// Choose lists options and returns the zero-based index picked. An empty
// reply or end of input returns -1.
func (p *Prompter) Choose(question string, options []string) (int, error) {
	for i, opt := range options {
		fmt.Fprintf(p.Out, "  %d. %s\n", i+1, opt)
	}
	answer, err := p.ReadLine(fmt.Sprintf("%s [1-%d]: ", question, len(options)))
	if errors.Is(err, io.EOF) || (err == nil && answer == "") {
		return -1, nil
	}
	if err != nil {
		return -1, err
	}
	n, convErr := strconv.Atoi(answer)
	if convErr != nil || n < 1 || n > len(options) {
		return -1, fmt.Errorf("invalid selection %q", answer)
	}
	return n - 1, nil
}

// Step is one confirmation step.
type Step func(p *Prompter) (bool, error)

// YesNo is a Confirm step.
func YesNo(question string) Step {
	return func(p *Prompter) (bool, error) { return p.Confirm(question) }
}

// Typed is a ConfirmTyped step.
func Typed(question, token string) Step {
	return func(p *Prompter) (bool, error) { return p.ConfirmTyped(question, token) }
}

// RequireDestructive gates a destructive action. yes bypasses every step.
// Without yes, a non-interactive prompter fails with
// types.ErrConfirmationRequired, and an interactive one must pass every step
// in order or the result is ErrAborted.
func (p *Prompter) RequireDestructive(yes bool, steps ...Step) error {
	if yes {
		return nil
	}
	if !p.Interactive {
		return fmt.Errorf("%w: rerun with --yes to proceed non-interactively", types.ErrConfirmationRequired)
	}
	for _, step := range steps {
		ok, err := step(p)
		if err != nil {
			return err
		}
		if !ok {
			return ErrAborted
		}
	}
	return nil
}
