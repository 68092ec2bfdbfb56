package logger

import (
	"os"
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"
)

type ILogger interface {
	Debug(module, message string, details map[string]interface{})
	Info(module, message string, details map[string]interface{})
	Warn(module, message string, details map[string]interface{})
	Error(module, message string, details map[string]interface{})
	Sync() error
}

// Options selects the sinks of a ZapLogger. The file sink is always written
// at Info or above; Level only gates the console.
type Options struct {
	FilePath   string
	Production bool
	Console    bool
	Level      string // debug, info, warn or error
}

type ZapLogger struct {
	logger   *zap.Logger
	filePath string
}

// ParseLevel maps a level name to a zap level, falling back to debug.
func ParseLevel(name string) zapcore.Level {
	name = strings.ToLower(strings.TrimSpace(name))
	var lvl zapcore.Level
	if name == "" || lvl.UnmarshalText([]byte(name)) != nil {
		return zap.DebugLevel
	}
	return lvl
}

func jsonEncoder() zapcore.Encoder {
	cfg := zap.NewProductionEncoderConfig()
	cfg.TimeKey = "timestamp"
	cfg.EncodeTime = zapcore.ISO8601TimeEncoder
	cfg.MessageKey = "message"
	cfg.LevelKey = "level"
	cfg.EncodeLevel = zapcore.CapitalLevelEncoder
	return zapcore.NewJSONEncoder(cfg)
}

func rotatingWriter(path string) zapcore.WriteSyncer {
	return zapcore.AddSync(&lumberjack.Logger{
		Filename:   path,
		MaxSize:    10, // MB
		MaxBackups: 5,
		MaxAge:     30, // days
		Compress:   true,
	})
}

func New(opts Options) *ZapLogger {
	var cores []zapcore.Core
	if opts.FilePath != "" {
		cores = append(cores, zapcore.NewCore(jsonEncoder(), rotatingWriter(opts.FilePath), zap.InfoLevel))
	}
	if opts.Console {
		enc := jsonEncoder()
		if !opts.Production {
			enc = zapcore.NewConsoleEncoder(zap.NewDevelopmentEncoderConfig())
		}
		cores = append(cores, zapcore.NewCore(enc, zapcore.Lock(os.Stdout), ParseLevel(opts.Level)))
	}

	// skip the wrapper frame so callers show up in the caller field
	l := zap.New(zapcore.NewTee(cores...), zap.AddCaller(), zap.AddCallerSkip(2))
	return &ZapLogger{logger: l, filePath: opts.FilePath}
}

// NewIsolatedLogger writes only to its file. The persistence consumer uses it
// so store retries stay out of the main output.
func NewIsolatedLogger(logFilePath string) *ZapLogger {
	return New(Options{FilePath: logFilePath})
}

func NewNopLogger() *ZapLogger {
	return &ZapLogger{logger: zap.NewNop()}
}

func (l *ZapLogger) write(level zapcore.Level, module, message string, details map[string]interface{}) {
	ce := l.logger.Check(level, message)
	if ce == nil {
		return
	}
	if details == nil {
		details = map[string]interface{}{}
	}
	fields := []zap.Field{zap.String("module", module), zap.Any("details", details)}
	if err, ok := details["error"]; ok && level >= zap.ErrorLevel {
		fields = append(fields, zap.Any("error_ref", err))
	}
	ce.Write(fields...)
}

func (l *ZapLogger) Debug(module, message string, details map[string]interface{}) {
	l.write(zap.DebugLevel, module, message, details)
}

func (l *ZapLogger) Info(module, message string, details map[string]interface{}) {
	l.write(zap.InfoLevel, module, message, details)
}

func (l *ZapLogger) Warn(module, message string, details map[string]interface{}) {
	l.write(zap.WarnLevel, module, message, details)
}

func (l *ZapLogger) Error(module, message string, details map[string]interface{}) {
	l.write(zap.ErrorLevel, module, message, details)
}

func (l *ZapLogger) Sync() error {
	return l.logger.Sync()
}
