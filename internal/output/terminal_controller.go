package output

import (
	"fmt"
	"os"
	"sync"

	"github.com/rafabd1/Parallax/internal/utils"
)

// TerminalController serializes writes to the terminal between the progress bar
// and log output.
type TerminalController struct {
	mu             sync.Mutex
	outputMu       sync.Mutex
	isTerminal     bool
	hasProgressBar bool
}

var (
	terminalController *TerminalController
	once               sync.Once
)

// GetTerminalController returns the process-wide controller for stderr.
func GetTerminalController() *TerminalController {
	once.Do(func() {
		terminalController = &TerminalController{
			isTerminal: utils.IsTerminal(os.Stderr.Fd()),
		}
	})
	return terminalController
}

func (tc *TerminalController) BeginOutput() {
	tc.outputMu.Lock()
}

func (tc *TerminalController) EndOutput() {
	tc.outputMu.Unlock()
}

func (tc *TerminalController) SetProgressBarActive(active bool) {
	tc.mu.Lock()
	tc.hasProgressBar = active
	tc.mu.Unlock()
}

func (tc *TerminalController) HasProgressBar() bool {
	tc.mu.Lock()
	defer tc.mu.Unlock()
	return tc.hasProgressBar
}

// ClearLine clears the current terminal line if output is to a terminal.
func (tc *TerminalController) ClearLine() {
	if tc.isTerminal {
		fmt.Fprint(os.Stderr, "\033[2K\r")
	}
}

func (tc *TerminalController) IsTerminal() bool {
	tc.mu.Lock()
	defer tc.mu.Unlock()
	return tc.isTerminal
}
