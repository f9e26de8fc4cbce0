package whatsapp

import (
	waLog "go.mau.fi/whatsmeow/util/log"
	"go.uber.org/zap"
)

// zapWALogger routes whatsmeow's logging into zap
type zapWALogger struct {
	sugar *zap.SugaredLogger
}

func newWALogger(logger *zap.Logger, module string) waLog.Logger {
	return &zapWALogger{sugar: logger.Named("whatsmeow").Named(module).Sugar()}
}

func (l *zapWALogger) Debugf(msg string, args ...interface{}) { l.sugar.Debugf(msg, args...) }
func (l *zapWALogger) Infof(msg string, args ...interface{}) { l.sugar.Infof(msg, args...) }
func (l *zapWALogger) Warnf(msg string, args ...interface{}) { l.sugar.Warnf(msg, args...) }
func (l *zapWALogger) Errorf(msg string, args ...interface{}) { l.sugar.Errorf(msg, args...) }

func (l *zapWALogger) Sub(module string) waLog.Logger {
	return &zapWALogger{sugar: l.sugar.Named(module)}
}
