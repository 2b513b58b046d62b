package log

import (
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

var _ Log = (*Logger)(nil)

// Options configures the zap backend.
type Options struct {
	Level    Level
	Encoding string // "json" or "console"
	Output   []string
}

type Logger struct {
	zapLogger *zap.Logger
	level     zap.AtomicLevel
}

// New builds a zap-backed Logger.
func New(opts Options) (*Logger, error) {
	encoding := opts.Encoding
	if encoding == "" {
		encoding = "json"
	}
	output := opts.Output
	if len(output) == 0 {
		output = []string{"stderr"}
	}

	encoderConfig := zap.NewProductionEncoderConfig()
	encoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	if encoding == "console" {
		encoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	}

	level := zap.NewAtomicLevelAt(toZapLevel(opts.Level))
	config := zap.Config{
		Level:       level,
		Development: false,
		Sampling: &zap.SamplingConfig{
			Initial:    100,
			Thereafter: 100,
		},
		Encoding:         encoding,
		EncoderConfig:    encoderConfig,
		OutputPaths:      output,
		ErrorOutputPaths: []string{"stderr"},
		DisableCaller:    true,
	}

	zapLogger, err := config.Build()
	if err != nil {
		return nil, err
	}

	return &Logger{
		zapLogger: zapLogger,
		level:     level,
	}, nil
}

// NewNop returns a Logger that discards everything.
func NewNop() *Logger {
	return &Logger{
		zapLogger: zap.NewNop(),
		level:     zap.NewAtomicLevelAt(zap.InfoLevel),
	}
}

// FromZap wraps an existing zap logger, e.g. one built by zaptest or observer.
func FromZap(z *zap.Logger, level Level) *Logger {
	return &Logger{
		zapLogger: z,
		level:     zap.NewAtomicLevelAt(toZapLevel(level)),
	}
}

func (l *Logger) Log(level Level, msg string, fields ...Field) {
	if !l.checkLevel(level) {
		return
	}
	l.zapLogger.Log(toZapLevel(level), msg, toZapFields(fields...)...)
}

func (l *Logger) Debug(msg string, fields ...Field) {
	l.Log(LevelDebug, msg, fields...)
}

func (l *Logger) Info(msg string, fields ...Field) {
	l.Log(LevelInfo, msg, fields...)
}

func (l *Logger) Warn(msg string, fields ...Field) {
	l.Log(LevelWarn, msg, fields...)
}

func (l *Logger) Error(msg string, fields ...Field) {
	l.Log(LevelError, msg, fields...)
}

func (l *Logger) With(fields ...Field) Log {
	return &Logger{
		zapLogger: l.zapLogger.With(toZapFields(fields...)...),
		level:     l.level,
	}
}

func (l *Logger) Named(name string) Log {
	return &Logger{
		zapLogger: l.zapLogger.Named(name),
		level:     l.level,
	}
}

// SetLevel changes the level for this logger and every logger derived from it.
func (l *Logger) SetLevel(level Level) {
	l.level.SetLevel(toZapLevel(level))
}

func (l *Logger) GetLevel() Level {
	if l.level.Level() > zap.FatalLevel {
		return LevelSilent
	}
	return fromZapLevel(l.level.Level())
}

// Sync flushes buffered output.
func (l *Logger) Sync() error {
	return l.zapLogger.Sync()
}

func (l *Logger) checkLevel(level Level) bool {
	return l.level.Enabled(toZapLevel(level))
}

// Helper functions to convert between levels and fields

func toZapLevel(level Level) zapcore.Level {
	switch level {
	case LevelDebug:
		return zap.DebugLevel
	case LevelInfo:
		return zap.InfoLevel
	case LevelWarn:
		return zap.WarnLevel
	case LevelError:
		return zap.ErrorLevel
	case LevelSilent:
		return zap.FatalLevel + 1
	default:
		return zap.InfoLevel
	}
}

func fromZapLevel(level zapcore.Level) Level {
	switch level {
	case zap.DebugLevel:
		return LevelDebug
	case zap.InfoLevel:
		return LevelInfo
	case zap.WarnLevel:
		return LevelWarn
	case zap.ErrorLevel:
		return LevelError
	default:
		return LevelInfo
	}
}

func toZapFields(fields ...Field) []zap.Field {
	zapFields := make([]zap.Field, len(fields))
	for i, f := range fields {
		switch f.Type {
		case BoolType:
			zapFields[i] = zap.Bool(f.Key, f.Value.(bool))
		case DurationType:
			zapFields[i] = zap.Duration(f.Key, f.Value.(time.Duration))
		case Float64Type:
			zapFields[i] = zap.Float64(f.Key, f.Value.(float64))
		case IntType:
			zapFields[i] = zap.Int(f.Key, f.Value.(int))
		case Int64Type:
			zapFields[i] = zap.Int64(f.Key, f.Value.(int64))
		case StringType:
			zapFields[i] = zap.String(f.Key, f.Value.(string))
		case Uint64Type:
			zapFields[i] = zap.Uint64(f.Key, f.Value.(uint64))
		case ErrorType:
			if err, ok := f.Value.(error); ok {
				zapFields[i] = zap.NamedError(f.Key, err)
			} else {
				zapFields[i] = zap.Skip()
			}
		case StringerType:
			zapFields[i] = zap.Stringer(f.Key, f.Value.(interface{ String() string }))
		default:
			zapFields[i] = zap.Any(f.Key, f.Value)
		}
	}
	return zapFields
}
