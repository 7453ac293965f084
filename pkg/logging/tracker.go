package logging

import (
	"go.uber.org/atomic"
	"go.uber.org/zap/zapcore"
)

// LevelTracker remembers whether anything at warn or error level was logged through the cores it wraps.
type LevelTracker struct {
	HadWarnings atomic.Bool
	HadErrors   atomic.Bool
}

type trackingCore struct {
	zapcore.Core
	tracker *LevelTracker
}

func (lt *LevelTracker) Wrap(core zapcore.Core) zapcore.Core {
	return &trackingCore{Core: core, tracker: lt}
}

func (c *trackingCore) With(f []zapcore.Field) zapcore.Core {
	return &trackingCore{Core: c.Core.With(f), tracker: c.tracker}
}

func (c *trackingCore) Check(e zapcore.Entry, ce *zapcore.CheckedEntry) *zapcore.CheckedEntry {
	switch {
	case e.Level >= zapcore.ErrorLevel:
		c.tracker.HadErrors.Store(true)
	case e.Level == zapcore.WarnLevel:
		c.tracker.HadWarnings.Store(true)
	}
	return c.Core.Check(e, ce)
}
