package progress

import (
	"fmt"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/mattn/go-isatty"
	"golang.org/x/term"
)

// stdoutIsTerminal decides whether the in-place cursor-rewind redraw is
// safe to use. Piping makelint's stdout to a file or another process (CI
// logs, `| tee`) must not fill the output with ANSI rewind sequences -
// grounded on the teacher's own `pretty.Setup`, which makes the same call
// before deciding whether to emit color/cursor escapes.
var stdoutIsTerminal = isatty.IsTerminal(os.Stdout.Fd()) || isatty.IsCygwinTerminal(os.Stdout.Fd())

const (
	minBarWidth = 10
	maxBarWidth = 60
)

// barWidth sizes the progress bar to the terminal's actual width so the
// fixed-width label/percentage columns plus the bar never wrap a line; it
// falls back to a fixed 20 columns when stdout isn't a terminal or its size
// can't be determined (piped output, a dumb CI terminal).
func barWidth() int {
	if !stdoutIsTerminal {
		return 20
	}
	cols, _, err := term.GetSize(int(os.Stdout.Fd()))
	if err != nil {
		return 20
	}
	width := cols - 30
	if width < minBarWidth {
		return minBarWidth
	}
	if width > maxBarWidth {
		return maxBarWidth
	}
	return width
}

var blocks = []string{" ", "▏", "▎", "▍", "▌", "▋", "▊", "▉", "█"}

// bar renders a high resolution unicode progress bar of numchars columns,
// a direct port of the original's get_progress_bar.
func bar(numchars int, fraction float64) string {
	if fraction >= 1.0 {
		return strings.Repeat("█", numchars)
	}
	if fraction < 0 {
		fraction = 0
	}
	lengthInChars := fraction * float64(numchars)
	nFull := int(lengthInChars)
	iPartial := int(8 * (lengthInChars - float64(nFull)))
	if iPartial < 0 {
		iPartial = 0
	}
	if iPartial > 8 {
		iPartial = 8
	}
	nEmpty := numchars - nFull - 1
	if nEmpty < 0 {
		nEmpty = 0
	}
	return strings.Repeat("█", nFull) + blocks[iPartial] + strings.Repeat(" ", nEmpty)
}

// TextReporter is a direct port of the original ProgressReporter: a
// multi-line, in-place-redrawn status block written to stdout.
type TextReporter struct {
	mu sync.Mutex

	ndirs, nfiles, ntools    int
	dirIdx, fileIdx, toolIdx int
	tool                     string
	toolNames                map[int]string
	lastPrint                time.Time
	linesWritten             int
}

// NewTextReporter returns a ready-to-use TextReporter.
func NewTextReporter() *TextReporter {
	return &TextReporter{toolNames: map[int]string{}}
}

func (r *TextReporter) Update(c Counters) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if c.NDirs != 0 {
		r.ndirs = c.NDirs
	}
	if c.DirIdx != 0 {
		r.dirIdx = c.DirIdx
	}
	if c.NFiles != 0 {
		r.nfiles = c.NFiles
	}
	if c.FileIdx != 0 {
		r.fileIdx = c.FileIdx
	}
	if c.NTools != 0 {
		r.ntools = c.NTools
	}
	if c.ToolIdx != 0 {
		r.toolIdx = c.ToolIdx
		if c.Tool != "" {
			r.toolNames[c.ToolIdx] = c.Tool
		}
	}
	if c.Tool != "" {
		r.tool = c.Tool
	}

	if !c.Force && time.Since(r.lastPrint) < 100*time.Millisecond {
		return
	}
	r.lastPrint = time.Now()
	r.render(true)
}

func (r *TextReporter) Done() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.render(false)
}

func (r *TextReporter) nsteps() int {
	return r.nfiles + (r.ntools * r.nfiles)
}

func (r *TextReporter) istep() int {
	return (r.toolIdx * r.nfiles) + r.fileIdx
}

func (r *TextReporter) overallFraction() float64 {
	total := r.nsteps()
	if total == 0 {
		return 0
	}
	return float64(r.istep()) / float64(total)
}

func (r *TextReporter) render(rewind bool) {
	width := barWidth()
	var lines []string
	fraction := r.overallFraction()
	lines = append(lines, fmt.Sprintf("%10s: %5d/%-5d [%s] %6.2f%%",
		"Total", r.istep(), r.nsteps(), bar(width, fraction), fraction*100))

	dirFraction := 0.0
	if r.ndirs > 0 {
		dirFraction = float64(r.dirIdx) / float64(r.ndirs)
	}
	lines = append(lines, fmt.Sprintf("%10s: %5d/%-5d [%s] %6.2f%%",
		"Indexing", r.dirIdx, r.ndirs, bar(width, dirFraction), dirFraction*100))

	for idx := 1; idx < r.toolIdx; idx++ {
		name := r.toolNames[idx]
		lines = append(lines, fmt.Sprintf("%10s: %5d/%-5d [%s] %6.2f%%",
			name, r.nfiles, r.nfiles, bar(width, 1.0), 100.0))
	}

	if r.toolIdx > 0 {
		toolFraction := 0.0
		if r.nfiles > 0 {
			toolFraction = float64(r.fileIdx) / float64(r.nfiles)
		}
		lines = append(lines, fmt.Sprintf("%10s: %5d/%-5d [%s] %6.2f%%",
			r.tool, r.fileIdx, r.nfiles, bar(width, toolFraction), toolFraction*100))
	}

	for _, line := range lines {
		if stdoutIsTerminal {
			fmt.Fprint(os.Stdout, line, "\x1b[0K\n")
		} else {
			fmt.Fprintln(os.Stdout, line)
		}
	}
	if rewind && stdoutIsTerminal {
		fmt.Fprintf(os.Stdout, "\x1b[%dF", len(lines))
	}
	r.linesWritten = len(lines)
}
