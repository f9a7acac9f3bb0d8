package save

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strings"
	"sync"
)

// OverwriteConfirmer decides whether an existing file may be replaced.
type OverwriteConfirmer interface {
	ConfirmOverwrite(ctx context.Context, path string) (bool, error)
}

// ConfirmFunc adapts a function to OverwriteConfirmer.
type ConfirmFunc func(ctx context.Context, path string) (bool, error)

func (f ConfirmFunc) ConfirmOverwrite(ctx context.Context, path string) (bool, error) {
	return f(ctx, path)
}

var (
	// AlwaysOverwrite replaces existing files without asking.
	AlwaysOverwrite = ConfirmFunc(func(context.Context, string) (bool, error) { return true, nil })
	// NeverOverwrite keeps every existing file.
	NeverOverwrite = ConfirmFunc(func(context.Context, string) (bool, error) { return false, nil })
)

// PromptConfirmer asks on out and reads a yes/no answer from in. Answers
// are serialised so concurrent groups do not interleave prompts.
type PromptConfirmer struct {
	mu     sync.Mutex
	reader *bufio.Reader
	out    io.Writer
}

// NewPromptConfirmer returns a confirmer reading from in and prompting on out.
func NewPromptConfirmer(in io.Reader, out io.Writer) *PromptConfirmer {
	return &PromptConfirmer{reader: bufio.NewReader(in), out: out}
}

func (p *PromptConfirmer) ConfirmOverwrite(ctx context.Context, path string) (bool, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if err := ctx.Err(); err != nil {
		return false, err
	}

	fmt.Fprintf(p.out, "Do you want to overwrite %s? [y/N] ", path)
	line, err := p.reader.ReadString('\n')
	if err != nil && err != io.EOF {
		return false, fmt.Errorf("failed to read answer: %w", err)
	}
	switch strings.ToLower(strings.TrimSpace(line)) {
	case "y", "yes":
		return true, nil
	}
	return false, nil
}

// ParseOverwritePolicy maps ask, always and never to a confirmer.
func ParseOverwritePolicy(policy string, in io.Reader, out io.Writer) (OverwriteConfirmer, error) {
	switch strings.ToLower(policy) {
	case "", "ask":
		return NewPromptConfirmer(in, out), nil
	case "always":
		return AlwaysOverwrite, nil
	case "never":
		return NeverOverwrite, nil
	}
	return nil, fmt.Errorf("invalid overwrite policy: %s. Must be one of: ask, always, never", policy)
}
