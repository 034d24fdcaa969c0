package prompt

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/charmbracelet/lipgloss"
)

var (
	ErrNoOptions        = errors.New("no options available")
	ErrInvalidSelection = errors.New("invalid selection")
)

// Level selects the style of a notification.
type Level int

const (
	LevelInfo Level = iota
	LevelSuccess
	LevelWarn
	LevelError
)

var (
	titleStyle    = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("12"))
	indexStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
	questionStyle = lipgloss.NewStyle().Bold(true)
	levelStyles   = map[Level]lipgloss.Style{
		LevelInfo:    lipgloss.NewStyle(),
		LevelSuccess: lipgloss.NewStyle().Foreground(lipgloss.Color("10")),
		LevelWarn:    lipgloss.NewStyle().Foreground(lipgloss.Color("11")),
		LevelError:   lipgloss.NewStyle().Foreground(lipgloss.Color("9")).Bold(true),
	}
)

// Prompter reads answers line by line, so it works with pipes as well as terminals.
type Prompter struct {
	in  *bufio.Reader
	out io.Writer
	ctx context.Context
}

func New(in io.Reader, out io.Writer) *Prompter {
	return &Prompter{in: bufio.NewReader(in), out: out}
}

// WithContext makes pending reads return ctx.Err() once ctx is done.
func (p *Prompter) WithContext(ctx context.Context) *Prompter {
	p.ctx = ctx
	return p
}

// Notify prints a styled message line.
func (p *Prompter) Notify(level Level, format string, args ...interface{}) {
	style, ok := levelStyles[level]
	if !ok {
		style = levelStyles[LevelInfo]
	}
	fmt.Fprintln(p.out, style.Render(fmt.Sprintf(format, args...)))
}

type lineResult struct {
	line string
	err  error
}

func (p *Prompter) readLine(label string) (string, error) {
	fmt.Fprint(p.out, questionStyle.Render(label))
	if p.ctx == nil {
		return p.read()
	}
	ch := make(chan lineResult, 1)
	go func() {
		line, err := p.read()
		ch <- lineResult{line, err}
	}()
	select {
	case r := <-ch:
		return r.line, r.err
	case <-p.ctx.Done():
		fmt.Fprintln(p.out)
		return "", p.ctx.Err()
	}
}

func (p *Prompter) read() (string, error) {
	line, err := p.in.ReadString('\n')
	if err != nil {
		if errors.Is(err, io.EOF) && strings.TrimSpace(line) != "" {
			return strings.TrimSpace(line), nil
		}
		if errors.Is(err, io.EOF) {
			fmt.Fprintln(p.out)
			return "", io.ErrUnexpectedEOF
		}
		return "", err
	}
	return strings.TrimSpace(line), nil
}

func (p *Prompter) printOptions(title string, options []string) {
	fmt.Fprintln(p.out, titleStyle.Render(title))
	for i, opt := range options {
		fmt.Fprintf(p.out, "  %s %s\n", indexStyle.Render(fmt.Sprintf("%d.", i+1)), opt)
	}
}

/**
 * Ask the user to pick one option
 * @param {string} title - Heading printed above the numbered list
 * @param {[]string} options - Choices
 * @returns {string} The chosen option
 * @returns {error} ErrNoOptions for an empty list, io.ErrUnexpectedEOF when input ends
 * @description
 * - Accepts the 1-based number or the exact name, invalid input re-prompts
 */
func (p *Prompter) ChooseOne(title string, options []string) (string, error) {
	if len(options) == 0 {
		return "", ErrNoOptions
	}
	p.printOptions(title, options)
	for {
		answer, err := p.readLine("Select a number or name: ")
		if err != nil {
			return "", err
		}
		choice, err := ParseChoice(answer, options)
		if err == nil {
			return choice, nil
		}
		p.Notify(LevelWarn, "%v", err)
	}
}

/**
 * Ask the user to pick several options
 * @param {string} title - Heading printed above the numbered list
 * @param {[]string} options - Choices
 * @returns {[]string} Chosen options in the order given
 * @returns {error} ErrNoOptions for an empty list, io.ErrUnexpectedEOF when input ends
 * @description
 * - Accepts comma-separated numbers or names, duplicates and unknown entries re-prompt
 */
func (p *Prompter) ChooseMany(title string, options []string) ([]string, error) {
	if len(options) == 0 {
		return nil, ErrNoOptions
	}
	p.printOptions(title, options)
	for {
		answer, err := p.readLine("Select numbers or names separated by commas: ")
		if err != nil {
			return nil, err
		}
		choices, err := ParseMultiChoice(answer, options)
		if err == nil {
			return choices, nil
		}
		p.Notify(LevelWarn, "%v", err)
	}
}

// Confirm asks a yes/no question until the answer is y or n.
func (p *Prompter) Confirm(question string) (bool, error) {
	for {
		answer, err := p.readLine(question + " (y/n): ")
		if err != nil {
			return false, err
		}
		switch strings.ToLower(answer) {
		case "y", "yes":
			return true, nil
		case "n", "no":
			return false, nil
		}
		p.Notify(LevelWarn, "Please answer 'y' or 'n'.")
	}
}

// Ask reads a non-empty free-text answer.
func (p *Prompter) Ask(label string) (string, error) {
	for {
		answer, err := p.readLine(label + ": ")
		if err != nil {
			return "", err
		}
		if answer != "" {
			return answer, nil
		}
		p.Notify(LevelWarn, "A value is required.")
	}
}

/**
 * Resolve one answer against the options
 * @param {string} input - A 1-based number or an exact option name
 * @param {[]string} options - Choices
 * @returns {string} The matching option
 * @returns {error} Wraps ErrInvalidSelection
 */
func ParseChoice(input string, options []string) (string, error) {
	input = strings.TrimSpace(input)
	if input == "" {
		return "", fmt.Errorf("%w: empty answer", ErrInvalidSelection)
	}
	if n, err := strconv.Atoi(input); err == nil {
		if n >= 1 && n <= len(options) {
			return options[n-1], nil
		}
		for _, opt := range options {
			if opt == input {
				return opt, nil
			}
		}
		return "", fmt.Errorf("%w: number %d is out of range 1-%d", ErrInvalidSelection, n, len(options))
	}
	for _, opt := range options {
		if opt == input {
			return opt, nil
		}
	}
	return "", fmt.Errorf("%w: '%s' is not one of the options", ErrInvalidSelection, input)
}

/**
 * Resolve a comma-separated answer against the options
 * @param {string} input - Numbers and/or names separated by commas
 * @param {[]string} options - Choices
 * @returns {[]string} Matching options in input order
 * @returns {error} Wraps ErrInvalidSelection for empty, unknown or repeated entries
 */
func ParseMultiChoice(input string, options []string) ([]string, error) {
	var result []string
	seen := make(map[string]bool)
	for _, part := range strings.Split(input, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		choice, err := ParseChoice(part, options)
		if err != nil {
			return nil, err
		}
		if seen[choice] {
			return nil, fmt.Errorf("%w: '%s' was selected more than once", ErrInvalidSelection, choice)
		}
		seen[choice] = true
		result = append(result, choice)
	}
	if len(result) == 0 {
		return nil, fmt.Errorf("%w: select at least one option", ErrInvalidSelection)
	}
	return result, nil
}

// ValidateSubset checks that every value is one of the options.
func ValidateSubset(kind string, values, options []string) error {
	allowed := make(map[string]bool, len(options))
	for _, opt := range options {
		allowed[opt] = true
	}
	seen := make(map[string]bool, len(values))
	for _, v := range values {
		if !allowed[v] {
			return fmt.Errorf("%w: %s '%s' is not available (available: %s)",
				ErrInvalidSelection, kind, v, strings.Join(options, ", "))
		}
		if seen[v] {
			return fmt.Errorf("%w: %s '%s' is listed more than once", ErrInvalidSelection, kind, v)
		}
		seen[v] = true
	}
	return nil
}

// SplitList splits a comma-separated flag value, dropping empty items.
func SplitList(value string) []string {
	var items []string
	for _, item := range strings.Split(value, ",") {
		if item = strings.TrimSpace(item); item != "" {
			items = append(items, item)
		}
	}
	return items
}
