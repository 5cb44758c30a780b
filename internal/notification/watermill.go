package notification

import (
	"github.com/ThreeDotsLabs/watermill"

	"ticketsale/pkg/logger"
)

// WatermillLogger adapts the service logger to watermill's LoggerAdapter.
type WatermillLogger struct {
	log    logger.Logger
	fields watermill.LogFields
}

func NewWatermillLogger(log logger.Logger) *WatermillLogger {
	return &WatermillLogger{log: log}
}

func (l *WatermillLogger) merge(fields watermill.LogFields) map[string]interface{} {
	out := make(map[string]interface{}, len(l.fields)+len(fields))
	for k, v := range l.fields {
		out[k] = v
	}
	for k, v := range fields {
		out[k] = v
	}
	return out
}

func (l *WatermillLogger) Error(msg string, err error, fields watermill.LogFields) {
	f := l.merge(fields)
	if err != nil {
		f["error"] = err.Error()
	}
	l.log.Error(msg, f)
}

func (l *WatermillLogger) Info(msg string, fields watermill.LogFields) {
	l.log.Info(msg, l.merge(fields))
}

func (l *WatermillLogger) Debug(msg string, fields watermill.LogFields) {
	l.log.Debug(msg, l.merge(fields))
}

func (l *WatermillLogger) Trace(msg string, fields watermill.LogFields) {
	l.log.Debug(msg, l.merge(fields))
}

func (l *WatermillLogger) With(fields watermill.LogFields) watermill.LoggerAdapter {
	return &WatermillLogger{log: l.log, fields: l.merge(fields)}
}
