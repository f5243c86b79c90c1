package utils

import (
	"os"
	"path/filepath"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// NewLogger writes JSON to logRoot/YYYY/MM/YYYY-MM-DD.log and a console copy to stdout.
func NewLogger(logRoot string) *zap.Logger {
	if logRoot == "" {
		logRoot = "logs"
	}
	today := time.Now()

	// logs/YYYY/MM
	logDir := filepath.Join(logRoot, today.Format("2006"), today.Format("01"))
	logFileName := filepath.Join(logDir, today.Format("2006-01-02")+".log")

	if err := os.MkdirAll(logDir, os.ModePerm); err != nil {
		panic("Error creating log folder structure: " + err.Error())
	}

	encoderConfig := zap.NewProductionEncoderConfig()
	encoderConfig.TimeKey = "time"
	encoderConfig.MessageKey = "msg"
	encoderConfig.LevelKey = "level"
	encoderConfig.CallerKey = "caller"
	encoderConfig.StacktraceKey = "stacktrace"
	encoderConfig.EncodeTime = zapcore.TimeEncoderOfLayout("2006/01/02 3:04:05 pm")
	encoderConfig.EncodeLevel = zapcore.CapitalLevelEncoder

	consoleEncoder := zapcore.NewConsoleEncoder(zap.NewDevelopmentEncoderConfig())
	fileEncoder := zapcore.NewJSONEncoder(encoderConfig)
	fileWriter := zapcore.AddSync(openLogFile(logFileName))

	core := zapcore.NewTee(
		zapcore.NewCore(fileEncoder, fileWriter, zap.LevelEnablerFunc(func(l zapcore.Level) bool {
			return l >= zapcore.InfoLevel
		})),
		zapcore.NewCore(consoleEncoder, zapcore.Lock(os.Stdout), zap.DebugLevel),
	)

	return zap.New(core, zap.AddCaller())
}

func openLogFile(logFileName string) *os.File {
	file, err := os.OpenFile(logFileName, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		panic("Error opening log file: " + err.Error())
	}
	return file
}
