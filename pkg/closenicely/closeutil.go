package closenicely

import (
	"io"

	"go.uber.org/zap"
)

// OrDebug closes `closer`, logging rather than returning a failure. For read-only files whose close
// error has no bearing on the result.
func OrDebug(closer io.Closer) {
	FuncOrDebug(closer.Close)
}

func FuncOrDebug(closer func() error) {
	if err := closer(); err != nil {
		zap.L().Debug("Failed to close", zap.Error(err))
	}
}
