package recognizer

import (
	"bytes"
	"log/slog"
	"strings"
)

// stderrLogger forwards helper stderr to the runtime log one line at a time.
type stderrLogger struct {
	logger    *slog.Logger
	sessionID string
	pending   []byte
}

func (w *stderrLogger) Write(p []byte) (int, error) {
	w.pending = append(w.pending, p...)
	for {
		idx := bytes.IndexByte(w.pending, '\n')
		if idx < 0 {
			break
		}
		w.emit(string(w.pending[:idx]))
		w.pending = w.pending[idx+1:]
	}
	if len(w.pending) > maxLineBytes {
		w.emit(string(w.pending))
		w.pending = w.pending[:0]
	}
	return len(p), nil
}

func (w *stderrLogger) emit(line string) {
	line = strings.TrimSpace(line)
	if line == "" || w.logger == nil {
		return
	}
	w.logger.Debug("speech helper stderr", "session_id", w.sessionID, "line", line)
}
