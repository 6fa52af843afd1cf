package instrumentation

import (
	"time"

	"github.com/campfirenet/meshsim/bluetooth"
	"github.com/campfirenet/meshsim/hooking"
	"github.com/campfirenet/meshsim/simulation"
	"go.uber.org/zap"
)

// LogHook writes link events and simulation ticks to a logger.
type LogHook struct {
	logger *zap.Logger
}

// NewLogHook creates a LogHook. Link events are logged at debug level, except
// for broken links and failed handshakes, which are logged at info level.
func NewLogHook(logger *zap.Logger) *LogHook {
	return &LogHook{logger: logger}
}

// Func writes the hook context to the logger.
func (h *LogHook) Func(ctx hooking.HookCtx) {
	if ctx.Pos == simulation.HookPosTick {
		dt, _ := ctx.Item.(time.Duration)
		h.logger.Debug("simulation tick", zap.Duration("dt", dt))

		return
	}

	link, evt, outcome, ok := linkEvent(ctx)
	if !ok {
		return
	}

	fields := []zap.Field{
		zap.String("link", link.Name()),
		zap.String("event", evt.ID()),
		zap.String("kind", bluetooth.EventKind(evt)),
		zap.String("initiator", string(initiator(evt))),
		zap.String("outcome", string(outcome)),
		zap.Time("release", evt.Time()),
	}

	if n := deliveredBytes(evt, outcome); n > 0 {
		fields = append(fields, zap.Int("bytes", n))
	}

	switch outcome {
	case bluetooth.OutcomeDisconnected, bluetooth.OutcomeTimedOut:
		h.logger.Info("link event", fields...)
	default:
		h.logger.Debug("link event", fields...)
	}
}
