package logger

import (
	"sync/atomic"

	"golang.org/x/time/rate"
)

// RateLimited wraps inner so Warnf/Errorf calls beyond r events/sec
// (with bursts of at most burst calls) are dropped rather than flooding
// the console — a
// single retransmit storm or a peer stuck resending a malformed varint
// must not turn into thousands of log lines a second. Debugf/Infof pass
// through unthrottled since callers already gate those by level.
func RateLimited(inner Logger, r rate.Limit, burst int) Logger {
	return &rateLimited{
		inner:     inner,
		limiter:   rate.NewLimiter(r, burst),
		suppressed: new(int64),
	}
}

type rateLimited struct {
	inner      Logger
	limiter    *rate.Limiter
	suppressed *int64
}

func (l *rateLimited) allow() bool {
	if l.limiter.Allow() {
		if n := atomic.SwapInt64(l.suppressed, 0); n > 0 {
			l.inner.Warnf("suppressed %d log lines in the last interval", n)
		}
		return true
	}
	atomic.AddInt64(l.suppressed, 1)
	return false
}

func (l *rateLimited) Debugf(format string, args ...interface{}) { l.inner.Debugf(format, args...) }
func (l *rateLimited) Infof(format string, args ...interface{})  { l.inner.Infof(format, args...) }

func (l *rateLimited) Warnf(format string, args ...interface{}) {
	if l.allow() {
		l.inner.Warnf(format, args...)
	}
}

func (l *rateLimited) Errorf(format string, args ...interface{}) {
	if l.allow() {
		l.inner.Errorf(format, args...)
	}
}

func (l *rateLimited) WithField(key string, value interface{}) Logger {
	return &rateLimited{inner: l.inner.WithField(key, value), limiter: l.limiter, suppressed: l.suppressed}
}
