package log

import (
	"context"
	"fmt"
	"gopkg.in/natefinch/lumberjack.v2"
	"io"
	"os"
	"path"
	"runtime"
	"strings"
	"sync"
	"time"

	contextPkg "HotelGate/pkg/context"
	formatter "github.com/antonfisher/nested-logrus-formatter"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

var (
	logger *logrus.Logger
	once   sync.Once
)

type Fields = logrus.Fields

func NewLogger() *logrus.Logger {
	once.Do(func() {
		logger = logrus.New()
		logger.SetLevel(levelFromEnv())

		logger.SetFormatter(&formatter.Formatter{
			NoColors:        os.Getenv("LOG_NO_COLORS") == "true",
			TimestampFormat: "02 Jan 06 - 15:04:05",
			HideKeys:        false,
			CallerFirst:     true,
			CustomCallerFormatter: func(f *runtime.Frame) string {
				s := strings.Split(f.Function, ".")
				funcName := s[len(s)-1]
				return fmt.Sprintf(" \x1b[%dm[%s:%d][%s()]", 34, path.Base(f.File), f.Line, funcName)
			},
		})

		writers := []io.Writer{os.Stderr}

		if os.Getenv("APP_ENV") != "test" {
			fileWriter := &lumberjack.Logger{
				Filename:   fmt.Sprintf("./storage/logs/gate-%s.log", time.Now().Format("2006-01-02")),
				LocalTime:  true,
				Compress:   true,
				MaxSize:    100,
				MaxAge:     14,
				MaxBackups: 5,
			}
			writers = append(writers, fileWriter)
		}

		logger.SetOutput(io.MultiWriter(writers...))
		logger.SetReportCaller(true)
	})

	return logger
}

func levelFromEnv() logrus.Level {
	level, err := logrus.ParseLevel(os.Getenv("LOG_LEVEL"))
	if err != nil {
		return logrus.DebugLevel
	}
	return level
}

func std() *logrus.Logger {
	if logger == nil {
		return NewLogger()
	}
	return logger
}

func Debug(fields Fields, msg string) {
	std().WithFields(orEmpty(fields)).Debug(msg)
}

func Info(fields Fields, msg string) {
	std().WithFields(orEmpty(fields)).Info(msg)
}

func Warn(fields Fields, msg string) {
	std().WithFields(orEmpty(fields)).Warn(msg)
}

func Error(fields Fields, msg string) {
	std().WithFields(orEmpty(fields)).Error(msg)
}

// ErrorWithTraceID logs msg at error level and returns the trace id that was
// attached, reusing the request id when the caller has one.
func ErrorWithTraceID(fields Fields, msg string) string {
	fields = orEmpty(fields)

	var traceID string
	if reqID, ok := fields["request_id"].(string); ok && reqID != "" && reqID != "unknown" {
		traceID = reqID
	} else {
		id, err := uuid.NewRandom()
		if err != nil {
			Error(Fields{
				"error": err.Error(),
			}, "[log.ErrorWithTraceID] failed to generate trace ID")
			traceID = "unknown"
		} else {
			traceID = id.String()
		}
	}

	fields["trace_id"] = traceID
	std().WithFields(fields).Error(msg)

	return traceID
}

func Fatal(fields Fields, msg string) {
	std().WithFields(orEmpty(fields)).Fatal(msg)
}

// WithContext returns an entry carrying the request, attempt and operator ids
// found on ctx. A nil logger falls back to the shared one.
func WithContext(logger *logrus.Logger, ctx context.Context) *logrus.Entry {
	if logger == nil {
		logger = std()
	}
	entry := logger.WithField("request_id", "unknown")
	if ctx == nil {
		return entry
	}

	entry = entry.WithField("request_id", contextPkg.GetRequestID(ctx))
	if attemptID := contextPkg.GetAttemptID(ctx); attemptID != "" {
		entry = entry.WithField("attempt_id", attemptID)
	}
	if operatorID := contextPkg.GetOperatorID(ctx); operatorID != "" {
		entry = entry.WithField("operator_id", operatorID)
	}

	return entry
}

func orEmpty(fields Fields) Fields {
	if fields == nil {
		return Fields{}
	}
	return fields
}
