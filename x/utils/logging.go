package utils

import (
	"time"

	"github.com/iov-one/quorum"
)

// Logging is a handler decorator to log messages as they pass through
type Logging struct {
	next quorum.Handler
}

var _ quorum.Handler = Logging{}

// NewLogging wraps next with logging.
func NewLogging(next quorum.Handler) Logging {
	return Logging{next: next}
}

// Deliver logs error -> error, success -> info
func (l Logging) Deliver(ctx quorum.Context, msg quorum.Msg) (*quorum.Result, error) {
	start := time.Now()
	res, err := l.next.Deliver(ctx, msg)
	var resLog string
	if err == nil && res != nil {
		resLog = res.Log
	}
	LogDuration(ctx, start, msg.Path(), resLog, err)
	return res, err
}

// LogDuration writes information about the time and result to the logger
func LogDuration(ctx quorum.Context, start time.Time, path, msg string, err error) {
	delta := time.Since(start)
	logger := quorum.GetLogger(ctx).With("path", path, "duration", delta/time.Microsecond)

	if err != nil {
		logger.Error(msg, "err", err)
		return
	}
	// An empty message is still logged, the keyvals are relevant.
	logger.Info(msg)
}
