package main

import (
	"os"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	lumberjack "gopkg.in/natefinch/lumberjack.v2"
)

// newLogger builds a console logger, teeing into a size-rotated file when
// path is non-empty.
func newLogger(level, path string) (*zap.Logger, error) {
	var lvl zapcore.Level
	if err := lvl.UnmarshalText([]byte(level)); err != nil {
		lvl = zapcore.InfoLevel
	}

	encCfg := zap.NewDevelopmentEncoderConfig()
	cores := []zapcore.Core{
		zapcore.NewCore(zapcore.NewConsoleEncoder(encCfg), zapcore.AddSync(os.Stderr), lvl),
	}
	if path != "" {
		w := &lumberjack.Logger{
			Filename:   path,
			MaxSize:    20, // MB
			MaxBackups: 3,
			MaxAge:     14, // days
		}
		fileEnc := zap.NewProductionEncoderConfig()
		cores = append(cores, zapcore.NewCore(zapcore.NewJSONEncoder(fileEnc), zapcore.AddSync(w), lvl))
	}
	return zap.New(zapcore.NewTee(cores...)), nil
}
