package logger

import (
	"strings"

	"go.uber.org/zap"
)

// field keys shared by every package
const (
	FieldProvider = "ai_provider"
	FieldModel    = "ai_model"

	FieldUser    = "user"
	FieldProfile = "profile"
	FieldRunType = "run_type"
)

type StringField struct {
	Key   string
	Value string
}

// StringFields converts key/value pairs into zap fields. Keys and values are trimmed and
// pairs with an empty side are dropped.
func StringFields(fields ...StringField) []zap.Field {
	result := make([]zap.Field, 0, len(fields))
	for _, field := range fields {
		key := strings.TrimSpace(field.Key)
		value := strings.TrimSpace(field.Value)
		if key == "" || value == "" {
			continue
		}
		result = append(result, zap.String(key, value))
	}
	return result
}

// WithFields attaches fields to the logger. A nil logger becomes a no-op logger.
func WithFields(logger *zap.Logger, fields ...zap.Field) *zap.Logger {
	if logger == nil {
		logger = zap.NewNop()
	}
	if len(fields) == 0 {
		return logger
	}
	return logger.With(fields...)
}

// CommonFields describe the language model behind a log entry.
func CommonFields(provider, model string) []zap.Field {
	return StringFields(
		StringField{Key: FieldProvider, Value: provider},
		StringField{Key: FieldModel, Value: model},
	)
}

func WithCommonFields(logger *zap.Logger, provider, model string) *zap.Logger {
	return WithFields(logger, CommonFields(provider, model)...)
}

// RunFields identify one pipeline run.
func RunFields(user, profile, runType string) []zap.Field {
	return StringFields(
		StringField{Key: FieldUser, Value: user},
		StringField{Key: FieldProfile, Value: profile},
		StringField{Key: FieldRunType, Value: runType},
	)
}
