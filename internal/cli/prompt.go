package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/chzyer/readline"

	"github.com/mamaar/constprop/pkg/inspection"
)

// LinePrompter asks the extraction dialog on a line-oriented terminal
type LinePrompter struct {
	rl  *readline.Instance
	out io.Writer
}

// NewLinePrompter reads answers from in and writes prompts to out
func NewLinePrompter(in io.Reader, out io.Writer) (*LinePrompter, error) {
	rl, err := readline.NewEx(&readline.Config{
		Prompt:          "> ",
		Stdin:           io.NopCloser(in),
		Stdout:          out,
		Stderr:          out,
		InterruptPrompt: "^C",
		EOFPrompt:       "cancel",
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create readline: %w", err)
	}
	return &LinePrompter{rl: rl, out: out}, nil
}

// Close releases the terminal
func (p *LinePrompter) Close() error {
	return p.rl.Close()
}

// errCancel ends the dialog on ^C or end of input
var errCancel = errors.New("cancelled")

func (p *LinePrompter) readLine(prompt string) (string, error) {
	p.rl.SetPrompt(prompt)
	line, err := p.rl.Readline()
	if errors.Is(err, readline.ErrInterrupt) || errors.Is(err, io.EOF) {
		return "", errCancel
	}
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(line), nil
}

// Ask presents the name, the scope choice and the OK / Preview / Cancel buttons
func (p *LinePrompter) Ask(ctx context.Context, d inspection.Dialog) (inspection.Decision, error) {
	cancel := inspection.Decision{Action: inspection.ActionCancel}
	if ctx.Err() != nil {
		return cancel, nil
	}
	fmt.Fprintf(p.out, "Introduce constant for %s at %s:%d:%d\n", d.Literal.Text, d.Literal.File, d.Literal.Line, d.Literal.Column)

	name, err := p.readLine(fmt.Sprintf("Name [%s]: ", d.Name))
	if errors.Is(err, errCancel) {
		return cancel, nil
	} else if err != nil {
		return cancel, err
	}
	if name == "" {
		name = d.Name
	}

	def := 1
	for i, opt := range d.Options {
		fmt.Fprintf(p.out, "  %d) %s\n", i+1, opt.Label)
		if opt.Scope == d.Scope {
			def = i + 1
		}
	}
	scope := d.Scope
	for {
		answer, err := p.readLine(fmt.Sprintf("Scope [%d]: ", def))
		if errors.Is(err, errCancel) {
			return cancel, nil
		} else if err != nil {
			return cancel, err
		}
		if answer == "" {
			break
		}
		n, err := strconv.Atoi(answer)
		if err != nil || n < 1 || n > len(d.Options) {
			fmt.Fprintf(p.out, "choose 1-%d\n", len(d.Options))
			continue
		}
		scope = d.Options[n-1].Scope
		break
	}

	for {
		answer, err := p.readLine("[o]k, [p]review, [c]ancel [o]: ")
		if errors.Is(err, errCancel) {
			return cancel, nil
		} else if err != nil {
			return cancel, err
		}
		switch strings.ToLower(answer) {
		case "", "o", "ok":
			return inspection.Decision{Action: inspection.ActionOK, Name: name, Scope: scope}, nil
		case "p", "preview":
			return inspection.Decision{Action: inspection.ActionPreview, Name: name, Scope: scope}, nil
		case "c", "cancel":
			return cancel, nil
		}
	}
}

// Show prints text followed by a blank line
func (p *LinePrompter) Show(_ context.Context, text string) error {
	_, err := fmt.Fprintf(p.out, "%s\n", strings.TrimRight(text, "\n"))
	return err
}
