package cli

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"sync"

	"github.com/schollz/progressbar/v3"

	"github.com/Veraticus/shelfwise/internal/model"
)

// ErrInputCancelled is returned when input is canceled by context.
var ErrInputCancelled = errors.New("input canceled")

// Prompter asks feedback questions on a terminal.
type Prompter struct {
	writer io.Writer
	reader *bufio.Reader
	mu     sync.Mutex
}

// NewPrompter creates a prompter reading from reader and writing to writer,
// defaulting to stdin and stdout.
func NewPrompter(reader io.Reader, writer io.Writer) *Prompter {
	if reader == nil {
		reader = os.Stdin
	}
	if writer == nil {
		writer = os.Stdout
	}
	return &Prompter{
		reader: bufio.NewReader(reader),
		writer: writer,
	}
}

// AskForm asks each question in turn. Blank answers are kept as empty
// strings; end of input answers the remaining questions with "".
func (p *Prompter) AskForm(ctx context.Context, questions []string) ([]model.Answer, error) {
	if _, err := fmt.Fprintln(p.writer, FormatTitle("Library Feedback")); err != nil {
		return nil, fmt.Errorf("failed to write prompt: %w", err)
	}

	answers := make([]model.Answer, 0, len(questions))
	for i, q := range questions {
		prompt := fmt.Sprintf("[%d/%d] %s", i+1, len(questions), q)
		if _, err := fmt.Fprint(p.writer, FormatPrompt(prompt)); err != nil {
			return nil, fmt.Errorf("failed to write prompt: %w", err)
		}

		line, err := p.readLine(ctx)
		if err != nil && !errors.Is(err, io.EOF) {
			return nil, err
		}
		answers = append(answers, model.Answer{Question: q, Answer: line})
	}
	return answers, nil
}

// readLine reads one trimmed line, returning early when ctx is done.
func (p *Prompter) readLine(ctx context.Context) (string, error) {
	type result struct {
		err   error
		value string
	}
	resultCh := make(chan result, 1)

	go func() {
		p.mu.Lock()
		defer p.mu.Unlock()

		value, err := p.reader.ReadString('\n')
		resultCh <- result{value: strings.TrimSpace(value), err: err}
	}()

	select {
	case <-ctx.Done():
		return "", ErrInputCancelled
	case res := <-resultCh:
		return res.value, res.err
	}
}

// NewProgressBar creates the bar used for bulk operations.
func NewProgressBar(w io.Writer, total int, description string) *progressbar.ProgressBar {
	if w == nil {
		w = os.Stderr
	}
	return progressbar.NewOptions(total,
		progressbar.OptionSetWriter(w),
		progressbar.OptionEnableColorCodes(true),
		progressbar.OptionShowCount(),
		progressbar.OptionShowElapsedTimeOnFinish(),
		progressbar.OptionSetWidth(40),
		progressbar.OptionSetDescription("[cyan][bold]"+description+"[reset]"),
		progressbar.OptionSetTheme(progressbar.Theme{
			Saucer:        "[green]=[reset]",
			SaucerHead:    "[green]>[reset]",
			SaucerPadding: " ",
			BarStart:      "[",
			BarEnd:        "]",
		}),
		progressbar.OptionOnCompletion(func() {
			if _, err := fmt.Fprintln(w); err != nil {
				slog.Warn("Failed to write newline after progress bar", "error", err)
			}
		}),
	)
}
