package output

import (
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/rafabd1/Parallax/internal/utils"
)

const maxSuffixLen = 60

// ProgressBar renders campaign progress on a terminal. It is a Sink (the latest
// status line becomes the bar suffix) and a Tracker (one step per collected
// combination). On non-terminal writers it only keeps counters.
type ProgressBar struct {
	total         int
	current       int
	width         int
	refresh       time.Duration
	startTime     time.Time
	mu            sync.Mutex
	done          chan struct{}
	writer        io.Writer
	isActive      bool
	spinner       int
	spinnerChars  []string
	prefix        string
	suffix        string
	isTerminal    bool
	renderPaused  bool
	outputControl chan struct{}
}

// NewProgressBar creates a bar writing to stderr.
func NewProgressBar(total int, width int) *ProgressBar {
	return NewProgressBarWithWriter(total, width, os.Stderr, utils.IsTerminal(os.Stderr.Fd()))
}

// NewProgressBarWithWriter creates a bar writing to w. isTerminal controls whether
// anything is drawn at all.
func NewProgressBarWithWriter(total int, width int, w io.Writer, isTerminal bool) *ProgressBar {
	return &ProgressBar{
		total:         total,
		width:         width,
		refresh:       250 * time.Millisecond,
		done:          make(chan struct{}),
		writer:        w,
		spinnerChars:  []string{"⠋", "⠙", "⠹", "⠸", "⠼", "⠴", "⠦", "⠧", "⠇", "⠏"},
		isTerminal:    isTerminal,
		outputControl: make(chan struct{}, 1),
	}
}

// Start activates the bar and, on terminals, its refresh loop.
func (pb *ProgressBar) Start() {
	pb.mu.Lock()
	if pb.isActive {
		pb.mu.Unlock()
		return
	}
	pb.startTime = time.Now()
	pb.isActive = true
	isTerminal := pb.isTerminal
	pb.mu.Unlock()

	if !isTerminal {
		return
	}
	utils.RegisterLogCallbacks(pb.MoveForLog, pb.ShowAfterLog)
	GetTerminalController().SetProgressBarActive(true)

	go pb.outputManager()
	go func() {
		ticker := time.NewTicker(pb.refresh)
		defer ticker.Stop()
		for {
			select {
			case <-pb.done:
				return
			case <-ticker.C:
				pb.requestRender()
			}
		}
	}()
	pb.requestRender()
}

func (pb *ProgressBar) outputManager() {
	for {
		select {
		case <-pb.done:
			return
		case <-pb.outputControl:
			pb.actualRender()
		}
	}
}

func (pb *ProgressBar) requestRender() {
	pb.mu.Lock()
	wantRender := pb.isActive && !pb.renderPaused && pb.isTerminal
	pb.mu.Unlock()

	if wantRender {
		select {
		case pb.outputControl <- struct{}{}:
		default: // a render is already pending
		}
	}
}

// Stop deactivates the bar and clears its line.
func (pb *ProgressBar) Stop() {
	pb.mu.Lock()
	if !pb.isActive {
		pb.mu.Unlock()
		return
	}
	pb.isActive = false
	close(pb.done)
	isTerminal := pb.isTerminal
	pb.mu.Unlock()

	if !isTerminal {
		return
	}
	utils.UnregisterLogCallbacks()
	tc := GetTerminalController()
	tc.SetProgressBarActive(false)
	tc.BeginOutput()
	fmt.Fprint(pb.writer, "\033[2K\r")
	tc.EndOutput()
}

// Report implements Sink.
func (pb *ProgressBar) Report(msg string) {
	msg = strings.Join(strings.Fields(msg), " ")
	if runes := []rune(msg); len(runes) > maxSuffixLen {
		msg = string(runes[:maxSuffixLen-3]) + "..."
	}
	pb.SetSuffix(msg)
}

// SetTotal implements Tracker. It resets the count and the ETA clock.
func (pb *ProgressBar) SetTotal(total int) {
	pb.mu.Lock()
	pb.total = total
	pb.current = 0
	pb.startTime = time.Now()
	pb.mu.Unlock()
	pb.requestRender()
}

// Advance implements Tracker.
func (pb *ProgressBar) Advance() {
	pb.mu.Lock()
	pb.current++
	pb.mu.Unlock()
	pb.requestRender()
}

// Progress returns the current and total counts.
func (pb *ProgressBar) Progress() (current, total int) {
	pb.mu.Lock()
	defer pb.mu.Unlock()
	return pb.current, pb.total
}

func (pb *ProgressBar) SetPrefix(prefix string) {
	pb.mu.Lock()
	pb.prefix = prefix
	pb.mu.Unlock()
}

func (pb *ProgressBar) SetSuffix(suffix string) {
	pb.mu.Lock()
	pb.suffix = suffix
	pb.mu.Unlock()
}

// Suffix returns the latest status line shown next to the bar.
func (pb *ProgressBar) Suffix() string {
	pb.mu.Lock()
	defer pb.mu.Unlock()
	return pb.suffix
}

// render builds the status line. Caller must hold pb.mu.
func (pb *ProgressBar) render() string {
	pb.spinner = (pb.spinner + 1) % len(pb.spinnerChars)

	currentTotal := pb.total
	currentProgress := pb.current
	if currentTotal == 0 {
		currentProgress = 0
	}

	percent := 0.0
	if currentTotal > 0 {
		percent = float64(currentProgress) / float64(currentTotal) * 100
	}

	elapsed := time.Since(pb.startTime)
	var etaStr string
	switch {
	case currentProgress > 0 && currentProgress < currentTotal:
		eta := time.Duration(float64(elapsed) * float64(currentTotal-currentProgress) / float64(currentProgress))
		etaStr = formatDuration(eta)
	case currentProgress >= currentTotal && currentTotal > 0:
		etaStr = "Done"
	default:
		etaStr = "N/A"
	}

	completedWidth := 0
	if currentTotal > 0 {
		completedWidth = int(float64(pb.width) * float64(currentProgress) / float64(currentTotal))
	}
	if completedWidth > pb.width {
		completedWidth = pb.width
	}
	if completedWidth < 0 {
		completedWidth = 0
	}
	bar := strings.Repeat("█", completedWidth) + strings.Repeat("░", pb.width-completedWidth)

	return fmt.Sprintf("%s%s [%s] %d/%d (%.2f%%) | Elapsed: %s | ETA: %s %s",
		pb.prefix,
		pb.spinnerChars[pb.spinner],
		bar,
		currentProgress, currentTotal,
		percent,
		formatDuration(elapsed),
		etaStr,
		pb.suffix,
	)
}

func (pb *ProgressBar) actualRender() {
	pb.mu.Lock()
	if !pb.isActive || !pb.isTerminal || pb.renderPaused {
		pb.mu.Unlock()
		return
	}
	status := pb.render()
	pb.mu.Unlock()

	tc := GetTerminalController()
	tc.BeginOutput()
	fmt.Fprint(pb.writer, "\033[2K\r"+status)
	tc.EndOutput()
}

// MoveForLog is called by the logger before a log line is printed.
func (pb *ProgressBar) MoveForLog() {
	pb.mu.Lock()
	isActiveAndTerminal := pb.isActive && pb.isTerminal
	pb.renderPaused = true
	pb.mu.Unlock()

	if isActiveAndTerminal {
		select {
		case <-pb.outputControl:
		default:
		}
		tc := GetTerminalController()
		tc.BeginOutput()
		fmt.Fprint(pb.writer, "\033[2K\r")
		tc.EndOutput()
	}
}

// ShowAfterLog is called by the logger after a log line is printed.
func (pb *ProgressBar) ShowAfterLog() {
	pb.mu.Lock()
	wasRenderPaused := pb.renderPaused
	pb.renderPaused = false
	pb.mu.Unlock()

	if wasRenderPaused {
		pb.requestRender()
	}
}

func formatDuration(d time.Duration) string {
	d = d.Round(time.Second)
	s := d.Seconds()
	if s < 0 {
		s = 0
	}
	if s < 60 {
		return fmt.Sprintf("%.0fs", s)
	}

	m := int(s/60) % 60
	h := int(s / 3600)
	sRemaining := int(s) % 60
	if h < 1 {
		return fmt.Sprintf("%dm%02ds", m, sRemaining)
	}
	return fmt.Sprintf("%dh%02dm%02ds", h, m, sRemaining)
}
