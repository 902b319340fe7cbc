// Package prompt reads operator answers from the terminal. All prompts
// block indefinitely; setup has no timeout on human input.
package prompt

import (
	"bufio"
	"fmt"
	"io"
	"strings"
)

// Prompter asks questions on out and reads answers from in. Tests feed
// it a scripted reader and a buffer.
type Prompter struct {
	in  *bufio.Reader
	out io.Writer
}

// New returns a Prompter reading from in and writing to out.
func New(in io.Reader, out io.Writer) *Prompter {
	return &Prompter{in: bufio.NewReader(in), out: out}
}

// Confirm asks a yes/no question. Enter and anything other than y/yes
// mean no. An input error (closed stdin) is returned so the caller can
// abort rather than loop.
func (p *Prompter) Confirm(question string) (bool, error) {
	fmt.Fprintf(p.out, "%s [y/N]: ", question)

	response, err := p.in.ReadString('\n')
	if err != nil && response == "" {
		return false, fmt.Errorf("reading answer: %w", err)
	}

	response = strings.TrimSpace(strings.ToLower(response))
	return response == "y" || response == "yes", nil
}

// Line asks a free-text question and returns the trimmed answer, which
// may be empty.
func (p *Prompter) Line(question string) (string, error) {
	fmt.Fprintf(p.out, "%s: ", question)

	response, err := p.in.ReadString('\n')
	if err != nil && response == "" {
		return "", fmt.Errorf("reading answer: %w", err)
	}
	return strings.TrimSpace(response), nil
}

// Choice asks the operator to pick one of options, matching answers
// case-insensitively. Invalid answers re-ask, without limit and without
// side effects, until a valid one arrives.
func (p *Prompter) Choice(question string, options []string) (string, error) {
	for {
		fmt.Fprintf(p.out, "%s (%s): ", question, strings.Join(options, "/"))

		response, err := p.in.ReadString('\n')
		if err != nil && response == "" {
			return "", fmt.Errorf("reading answer: %w", err)
		}

		response = strings.TrimSpace(response)
		for _, opt := range options {
			if strings.EqualFold(response, opt) {
				return opt, nil
			}
		}
		fmt.Fprintf(p.out, "Please answer one of: %s\n", strings.Join(options, ", "))
	}
}
