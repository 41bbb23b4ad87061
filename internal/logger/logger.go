package logger

import (
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

const (
	FieldTenantID  = "tenant_id"
	FieldSessionID = "session_id"
)

// New construye el logger de zap: json para produccion, console para local.
func New(json bool, debug bool) (*zap.Logger, error) {
	level := zapcore.InfoLevel
	encoding := "console"

	if json {
		encoding = "json"
	}

	if debug {
		level = zapcore.DebugLevel
	}

	cfg := zap.Config{
		Encoding:         encoding,
		Level:            zap.NewAtomicLevelAt(level),
		OutputPaths:      []string{"stdout"},
		ErrorOutputPaths: []string{"stderr"},
		EncoderConfig: zapcore.EncoderConfig{
			MessageKey: "msg",

			LevelKey:    "level",
			EncodeLevel: zapcore.LowercaseLevelEncoder,

			TimeKey:    "time",
			EncodeTime: zapcore.RFC3339TimeEncoder,

			CallerKey:    "caller",
			EncodeCaller: zapcore.ShortCallerEncoder,
		},
	}
	return cfg.Build()
}

// ForSession agrega tenant y sesion; los valores vacios se omiten.
func ForSession(logger *zap.Logger, tenantID, sessionID string) *zap.Logger {
	if logger == nil {
		logger = zap.NewNop()
	}
	var fields []zap.Field
	if tenantID != "" {
		fields = append(fields, zap.String(FieldTenantID, tenantID))
	}
	if sessionID != "" {
		fields = append(fields, zap.String(FieldSessionID, sessionID))
	}
	if len(fields) == 0 {
		return logger
	}
	return logger.With(fields...)
}
