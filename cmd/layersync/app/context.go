package app

import (
	"context"
	"os/signal"
	"syscall"
)

// ContextWithSignals derives the root context for a command run. Ctrl-C or
// SIGTERM cancels it, which stops the scheduler and any refresh in
// progress; main still runs Shutdown afterwards.
func ContextWithSignals(parent context.Context) (context.Context, context.CancelFunc) {
	return signal.NotifyContext(parent, syscall.SIGINT, syscall.SIGTERM)
}
