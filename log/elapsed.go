package log

import (
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

type elapsed struct {
	t   time.Time
	key string
}

func (v *elapsed) MarshalLogObject(e zapcore.ObjectEncoder) error {
	e.AddDuration(v.key, time.Since(v.t))
	return nil
}

// Elapsed is evaluated when the entry is written, so it can be created before the work starts.
func Elapsed(key string) zap.Field {
	return Since(key, time.Now())
}

func Since(key string, t time.Time) zap.Field {
	return zap.Inline(&elapsed{
		t:   t,
		key: key,
	})
}
