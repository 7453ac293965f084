package logging

import (
	"fmt"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

func ResourceField(id fmt.Stringer) zap.Field {
	return zap.Stringer("resource", id)
}

// StackField logs the stack and engine a message relates to.
func StackField(stack, engine string) zap.Field {
	return zap.Object("stack", zapcore.ObjectMarshalerFunc(func(enc zapcore.ObjectEncoder) error {
		enc.AddString("name", stack)
		if engine != "" {
			enc.AddString("engine", engine)
		}
		return nil
	}))
}
