package api

import (
	"fmt"
	"io"
	"sync"

	"github.com/rs/zerolog/log"
)

// Notifier shows user facing messages. The TUI implements it with a status bar;
// the CLI writes to stderr.
type Notifier interface {
	Success(msg string)
	Error(msg string)
}

// LogNotifier only logs notifications.
type LogNotifier struct{}

// Success logs msg at info level.
func (LogNotifier) Success(msg string) {
	log.Info().Str("notification", "success").Msg(msg)
}

// Error logs msg at warn level.
func (LogNotifier) Error(msg string) {
	log.Warn().Str("notification", "error").Msg(msg)
}

// WriterNotifier writes one line per notification to W.
type WriterNotifier struct {
	mu sync.Mutex
	W  io.Writer
}

// Success writes msg prefixed with "ok:".
func (n *WriterNotifier) Success(msg string) {
	n.write("ok", msg)
}

// Error writes msg prefixed with "error:".
func (n *WriterNotifier) Error(msg string) {
	n.write("error", msg)
}

func (n *WriterNotifier) write(prefix, msg string) {
	n.mu.Lock()
	defer n.mu.Unlock()

	fmt.Fprintf(n.W, "%s: %s\n", prefix, msg)
}
