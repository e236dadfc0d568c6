package stream

import (
	"context"
	"log/slog"
	"time"

	"github.com/randomizedcoder/go-exec-stream/internal/process"
)

// finalize waits for the child once both streams are finished, records the
// exit and delivers the FinalEvent. It returns the child's success flag.
func finalize(ctx context.Context, h *process.Handle, d *Dispatcher, rec Recorder, logger *slog.Logger) (bool, error) {
	status, err := h.Wait()
	if err != nil {
		logger.Error("process_wait_failed", "pid", h.PID(), "error", err)
		return false, err
	}

	rec.ProcessExited(status, time.Since(h.Started()))
	logger.Debug("process_exited",
		"pid", h.PID(),
		"exit_code", status.Code,
		"success", status.Success,
		"total_lines", d.ProcessedLines(),
	)

	if _, err := d.Final(ctx, status); err != nil {
		logger.Debug("callback_failed", "kind", KindFinal.String(), "error", err)
		return false, err
	}
	return status.Success, nil
}

// abort kills and reaps a child whose run ended early, so no zombie is
// left behind. Errors are logged, not returned: the caller already has
// the error that caused the abort.
func abort(h *process.Handle, logger *slog.Logger) {
	if err := h.Kill(); err != nil {
		logger.Warn("process_kill_failed", "pid", h.PID(), "error", err)
	}
	if _, err := h.Wait(); err != nil {
		logger.Debug("process_reap_failed", "pid", h.PID(), "error", err)
	}
}
