package utils

import (
	"os"
	"path/filepath"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"
)

// LogFile rotated log file name
const LogFile = "vpa.log"

// LogOptions file rotation options, sizes in megabytes and ages in days
type LogOptions struct {
	Dir        string
	MaxSize    int
	MaxBackups int
	MaxAge     int
}

// NewLogger create console logger, also write json lines to a rotated file when dir is set
func NewLogger(level string, options LogOptions) (*zap.Logger, error) {
	var zapLevel zapcore.Level
	err := zapLevel.UnmarshalText([]byte(level))
	if err != nil {
		return nil, err
	}

	atomic := zap.NewAtomicLevelAt(zapLevel)

	consoleConfig := zap.NewDevelopmentEncoderConfig()
	cores := []zapcore.Core{
		zapcore.NewCore(zapcore.NewConsoleEncoder(consoleConfig), zapcore.Lock(os.Stderr), atomic),
	}

	if options.Dir != "" {
		err = os.MkdirAll(options.Dir, 0755)
		if err != nil {
			return nil, err
		}

		writer := &lumberjack.Logger{
			Filename:   filepath.Join(options.Dir, LogFile),
			MaxSize:    options.MaxSize,
			MaxBackups: options.MaxBackups,
			MaxAge:     options.MaxAge,
			Compress:   true,
		}

		fileConfig := zap.NewProductionEncoderConfig()
		fileConfig.EncodeTime = zapcore.ISO8601TimeEncoder
		cores = append(cores, zapcore.NewCore(zapcore.NewJSONEncoder(fileConfig), zapcore.AddSync(writer), atomic))
	}

	return zap.New(zapcore.NewTee(cores...), zap.AddCaller(), zap.AddStacktrace(zapcore.ErrorLevel)), nil
}
