package cmd

import (
	"fmt"
	"io"
	"sync"

	"github.com/fatih/color"

	"github.com/gradepush/gradepush/lib/run"
)

// consoleWriter syncs writes with everything else that prints to the same
// terminal.
type consoleWriter struct {
	io.Writer
	IsTTY bool
	Mutex *sync.Mutex
}

func (w *consoleWriter) Write(p []byte) (n int, err error) {
	w.Mutex.Lock()
	n, err = w.Writer.Write(p)
	w.Mutex.Unlock()
	return
}

//nolint:gochecknoglobals
var (
	succColor = color.New(color.FgGreen, color.Bold)
	failColor = color.New(color.FgRed, color.Bold)
	warnColor = color.New(color.FgYellow)
)

// printSummary writes the end-of-job summary to the console writer.
func printSummary(w io.Writer, summary *run.Summary) {
	statusColor, status := succColor, "done"
	if !summary.Success {
		statusColor, status = failColor, "failed"
	}
	fmt.Fprintf(w, "\n  %s: %s\n", statusColor.Sprint(status), summary.Message)
	if summary.Errored > 0 {
		fmt.Fprintf(w, "  %s\n", warnColor.Sprintf("%d student(s) need manual review", summary.Errored))
	}
}
