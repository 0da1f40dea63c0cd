package ui

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"

	"skinfetch/pkg/uploader"
)

// Prompter collects interactive input from the user. It reads and writes
// through injected streams so tests can script a session.
type Prompter struct {
	in  *bufio.Reader
	out io.Writer
}

// NewPrompter creates a prompter over the given streams.
func NewPrompter(in io.Reader, out io.Writer) *Prompter {
	return &Prompter{
		in:  bufio.NewReader(in),
		out: out,
	}
}

// IDRange asks for a start and end texture ID and validates them as a pair.
func (p *Prompter) IDRange() (int, int, error) {
	start, err := p.askInt("Start texture ID: ")
	if err != nil {
		return 0, 0, err
	}

	end, err := p.askInt("End texture ID: ")
	if err != nil {
		return 0, 0, err
	}

	if start > end {
		return 0, 0, fmt.Errorf("start ID %d is greater than end ID %d", start, end)
	}

	return start, end, nil
}

// Confirm asks a yes/no question. An empty answer takes the default.
func (p *Prompter) Confirm(question string, defaultYes bool) (bool, error) {
	hint := "y/N"
	if defaultYes {
		hint = "Y/n"
	}

	answer, err := p.ask(fmt.Sprintf("%s [%s]: ", question, hint))
	if err != nil {
		return false, err
	}

	switch strings.ToLower(answer) {
	case "":
		return defaultYes, nil
	case "y", "yes":
		return true, nil
	default:
		return false, nil
	}
}

// UploadMode asks whether to upload files one per request or in batches.
// Anything other than an explicit batch choice selects single mode.
func (p *Prompter) UploadMode() (uploader.Mode, error) {
	fmt.Fprintln(p.out, "Upload mode:")
	fmt.Fprintln(p.out, "  1. single (one file per request)")
	fmt.Fprintln(p.out, "  2. batch (groups of files per request)")

	answer, err := p.ask("Choose [1]: ")
	if err != nil {
		return "", err
	}

	if answer == "2" || strings.EqualFold(answer, "batch") {
		return uploader.ModeBatch, nil
	}
	return uploader.ModeSingle, nil
}

// EndpointOverride asks for a replacement upload URL. An empty answer keeps
// the current one.
func (p *Prompter) EndpointOverride(current string) (string, error) {
	answer, err := p.ask(fmt.Sprintf("Upload endpoint [%s]: ", current))
	if err != nil {
		return "", err
	}
	if answer == "" {
		return current, nil
	}
	return answer, nil
}

func (p *Prompter) askInt(prompt string) (int, error) {
	answer, err := p.ask(prompt)
	if err != nil {
		return 0, err
	}

	n, err := strconv.Atoi(answer)
	if err != nil {
		return 0, fmt.Errorf("not a number: %q", answer)
	}
	return n, nil
}

func (p *Prompter) ask(prompt string) (string, error) {
	fmt.Fprint(p.out, prompt)

	line, err := p.in.ReadString('\n')
	if err != nil && line == "" {
		return "", fmt.Errorf("failed to read input: %w", err)
	}
	return strings.TrimSpace(line), nil
}
