package log

import (
	"os"

	"curtsddns/config"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"
)

const megabyte = 1024 * 1024

// Rotation maps the byte size limits of the config onto lumberjack, which counts in megabytes.
func Rotation(c config.Logging) *lumberjack.Logger {
	maxSize := 1
	if c.MaxBytes != nil && *c.MaxBytes > 0 {
		maxSize = int((*c.MaxBytes + megabyte - 1) / megabyte)
	}

	backups := 0
	if c.BackupCount != nil {
		backups = *c.BackupCount
	}

	return &lumberjack.Logger{
		Filename:   c.File,
		MaxSize:    maxSize,
		MaxBackups: backups,
	}
}

// Build creates the long-running logger: stderr, plus a rotated file when LOG_FILE is set.
func Build(c config.Logging, name string, debug bool) (*zap.Logger, error) {
	var encCfg zapcore.EncoderConfig
	if debug {
		encCfg = zap.NewDevelopmentEncoderConfig()
	} else {
		encCfg = zap.NewProductionEncoderConfig()
		encCfg.EncodeTime = zapcore.ISO8601TimeEncoder
	}

	var encoder zapcore.Encoder
	if c.Encoding == "console" {
		encoder = zapcore.NewConsoleEncoder(encCfg)
	} else {
		encoder = zapcore.NewJSONEncoder(encCfg)
	}

	level := zap.NewAtomicLevelAt(zapcore.InfoLevel)
	if c.Level != nil {
		level.SetLevel(c.Level.Level())
	}
	if debug {
		level.SetLevel(zapcore.DebugLevel)
	}

	cores := []zapcore.Core{
		zapcore.NewCore(encoder, zapcore.Lock(os.Stderr), level),
	}

	if c.File != "" {
		// Fail early on an unwritable path instead of on the first log line.
		f, err := os.OpenFile(c.File, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
		if err != nil {
			return nil, err
		}
		_ = f.Close()

		cores = append(cores, zapcore.NewCore(encoder.Clone(), zapcore.AddSync(Rotation(c)), level))
	}

	opts := []zap.Option{zap.AddCaller(), zap.ErrorOutput(zapcore.Lock(os.Stderr))}
	if debug {
		opts = append(opts, zap.Development(), zap.AddStacktrace(zapcore.WarnLevel))
	} else {
		opts = append(opts, zap.AddStacktrace(zapcore.ErrorLevel))
	}

	logger := zap.New(zapcore.NewTee(cores...), opts...)
	if name != "" {
		logger = logger.With(zap.String("node", name))
	}

	return logger, nil
}
