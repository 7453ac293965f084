package logging

import (
	"strings"
	"sync"

	"go.uber.org/zap/zapcore"
)

// EntryLeveller is a zapcore.Core that filters entries by logger name. A level set for "synth" applies to
// "synth.cdk" unless "synth.cdk" has its own; the empty name matches every logger.
type EntryLeveller struct {
	zapcore.Core

	levels sync.Map // map[string]zapcore.Level
}

func NewEntryLeveller(core zapcore.Core, levels map[string]zapcore.Level) *EntryLeveller {
	el := &EntryLeveller{Core: core}
	for k, v := range levels {
		el.levels.Store(k, v)
	}
	return el
}

func (el *EntryLeveller) With(f []zapcore.Field) zapcore.Core {
	next := &EntryLeveller{Core: el.Core.With(f)}
	el.levels.Range(func(k, v any) bool {
		next.levels.Store(k, v)
		return true
	})
	return next
}

// Enabled also admits levels that some configured logger allows, so a logger set below the core's level
// still gets its entries checked.
func (el *EntryLeveller) Enabled(lvl zapcore.Level) bool {
	if el.Core.Enabled(lvl) {
		return true
	}
	enabled := false
	el.levels.Range(func(_, v any) bool {
		enabled = lvl >= v.(zapcore.Level)
		return !enabled
	})
	return enabled
}

// levelFor finds the level of the closest configured ancestor of `name`, caching the answer under `name`.
func (el *EntryLeveller) levelFor(name string) (zapcore.Level, bool) {
	if lvl, ok := el.levels.Load(name); ok {
		return lvl.(zapcore.Level), true
	}
	module := name
	for module != "" {
		if i := strings.LastIndex(module, "."); i >= 0 {
			module = module[:i]
		} else {
			module = ""
		}
		if lvl, ok := el.levels.Load(module); ok {
			el.levels.Store(name, lvl)
			return lvl.(zapcore.Level), true
		}
	}
	return 0, false
}

func (el *EntryLeveller) Check(e zapcore.Entry, ce *zapcore.CheckedEntry) *zapcore.CheckedEntry {
	lvl, ok := el.levelFor(e.LoggerName)
	if !ok {
		return el.Core.Check(e, ce)
	}
	if e.Level < lvl {
		return ce
	}
	return ce.AddCore(e, el)
}
