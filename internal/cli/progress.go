package cli

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sync"

	"github.com/Veraticus/scanfill/internal/model"
	"github.com/schollz/progressbar/v3"
)

// progressMax is the bar scale; events carry percentages.
const progressMax = 1000

// ProgressRenderer draws run progress events as a terminal progress bar.
type ProgressRenderer struct {
	writer io.Writer
	bar    *progressbar.ProgressBar
	state  model.RunState
	mu     sync.Mutex
}

// NewProgressRenderer creates a renderer writing to writer (stderr when nil).
func NewProgressRenderer(writer io.Writer) *ProgressRenderer {
	if writer == nil {
		writer = os.Stderr
	}
	return &ProgressRenderer{writer: writer}
}

// Handle consumes one progress event. It is safe to pass as the engine's
// progress callback.
func (p *ProgressRenderer) Handle(event model.ProgressEvent) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if event.State != p.state {
		p.finishBar()
		p.state = event.State
		p.announce(event)
	}

	if event.State != model.StateParsing || event.File == "" {
		return
	}
	if p.bar == nil {
		p.bar = p.newBar()
	}
	p.bar.Describe(fmt.Sprintf("[cyan]Extracting[reset] %s", filepath.Base(event.File)))
	if err := p.bar.Set(int(event.Percentage * progressMax / 100)); err != nil {
		slog.Warn("Failed to update progress bar", "error", err)
	}
}

// Close finishes any bar still on screen.
func (p *ProgressRenderer) Close() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.finishBar()
}

func (p *ProgressRenderer) announce(event model.ProgressEvent) {
	var line string
	switch event.State {
	case model.StateScanning:
		line = FormatInfo("Scanning folders...")
	case model.StateParsing:
		line = FormatInfo(event.Message)
	case model.StateWaitingResolutions:
		line = FormatWarning(event.Message)
	case model.StateReviewResults:
		line = FormatSuccess(event.Message)
	case model.StateWriting:
		line = FormatInfo("Writing totals to the spreadsheet...")
	case model.StateDone:
		line = FormatSuccess(event.Message)
	case model.StateError:
		msg := event.Message
		if event.Err != nil {
			msg = event.Err.Error()
		}
		line = FormatError(msg)
	}
	if line == "" {
		return
	}
	if _, err := fmt.Fprintln(p.writer, line); err != nil {
		slog.Warn("Failed to write progress line", "error", err)
	}
}

func (p *ProgressRenderer) newBar() *progressbar.ProgressBar {
	return progressbar.NewOptions(progressMax,
		progressbar.OptionSetWriter(p.writer),
		progressbar.OptionEnableColorCodes(true),
		progressbar.OptionSetWidth(40),
		progressbar.OptionShowElapsedTimeOnFinish(),
		progressbar.OptionSetPredictTime(false),
		progressbar.OptionSetTheme(progressbar.Theme{
			Saucer:        "[green]=[reset]",
			SaucerHead:    "[green]>[reset]",
			SaucerPadding: " ",
			BarStart:      "[",
			BarEnd:        "]",
		}),
	)
}

func (p *ProgressRenderer) finishBar() {
	if p.bar == nil {
		return
	}
	if err := p.bar.Finish(); err != nil {
		slog.Warn("Failed to finish progress bar", "error", err)
	}
	if _, err := fmt.Fprintln(p.writer); err != nil {
		slog.Warn("Failed to write newline after progress bar", "error", err)
	}
	p.bar = nil
}
