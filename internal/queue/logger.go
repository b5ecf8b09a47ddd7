package queue

import (
	"fmt"

	"github.com/adverant/nexus/ocr-engine/internal/logging"
)

// asynqLogger adapts logging.Logger to asynq.Logger
type asynqLogger struct {
	log *logging.Logger
}

func newAsynqLogger(log *logging.Logger) *asynqLogger {
	return &asynqLogger{log: log.With("component", "asynq")}
}

func (l *asynqLogger) Debug(args ...interface{}) { l.log.Debug(fmt.Sprint(args...)) }
func (l *asynqLogger) Info(args ...interface{})  { l.log.Info(fmt.Sprint(args...)) }
func (l *asynqLogger) Warn(args ...interface{})  { l.log.Warn(fmt.Sprint(args...)) }
func (l *asynqLogger) Error(args ...interface{}) { l.log.Error(fmt.Sprint(args...)) }

// Fatal logs at error level; the worker decides itself when to exit.
func (l *asynqLogger) Fatal(args ...interface{}) { l.log.Error(fmt.Sprint(args...)) }
