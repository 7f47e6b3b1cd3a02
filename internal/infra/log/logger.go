package log

// Application logging on top of zap
// File logger receives everything (DEBUG and above), console logger only SUCCESS/WARN/ERROR
// Loggers are no-ops until Init is called, so library code and tests stay silent

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"golang.org/x/term"
)

// MaxLogFileSize - log file is truncated once it grows past this size (50MB)
const MaxLogFileSize = 50 * 1024 * 1024

var (
	Logger        = zap.NewNop()
	consoleLogger = zap.NewNop()

	initOnce  sync.Once
	initError error
)

// Init builds the file and console loggers. Safe to call more than once;
// only the first call has effect.
func Init(logsDir string, level string) error {
	initOnce.Do(func() {
		initError = initializeLoggers(logsDir, level)
	})
	return initError
}

func initializeLoggers(logsDir string, level string) error {
	if logsDir == "" {
		logsDir = "logs"
	}
	if err := os.MkdirAll(logsDir, 0755); err != nil {
		return fmt.Errorf("failed to create logs directory: %w", err)
	}

	fileLevel := zapcore.DebugLevel
	if level != "" {
		if err := fileLevel.Set(level); err != nil {
			return fmt.Errorf("invalid log level %q: %w", level, err)
		}
	}

	fileConfig := zapcore.EncoderConfig{
		TimeKey:        "time",
		LevelKey:       "level",
		MessageKey:     "msg",
		StacktraceKey:  "stacktrace",
		LineEnding:     zapcore.DefaultLineEnding,
		EncodeLevel:    zapcore.CapitalLevelEncoder,
		EncodeTime:     zapcore.TimeEncoderOfLayout("2006-01-02 15:04:05"),
		EncodeDuration: zapcore.MillisDurationEncoder,
	}
	fileCore := zapcore.NewCore(
		zapcore.NewConsoleEncoder(fileConfig),
		getLogFileWriter(filepath.Join(logsDir, "app.log")),
		fileLevel,
	)

	consoleConfig := zap.NewDevelopmentConfig()
	consoleConfig.EncoderConfig.EncodeTime = zapcore.TimeEncoderOfLayout("15:04:05")
	consoleConfig.EncoderConfig.EncodeCaller = nil
	consoleConfig.EncoderConfig.EncodeLevel = plainLevelEncoder
	if term.IsTerminal(int(os.Stderr.Fd())) {
		consoleConfig.EncoderConfig.EncodeLevel = colorLevelEncoder
	}
	consoleConfig.Development = false
	consoleConfig.DisableStacktrace = true
	consoleConfig.Level = zap.NewAtomicLevelAt(zapcore.InfoLevel)

	console, err := consoleConfig.Build()
	if err != nil {
		return fmt.Errorf("failed to build console logger: %w", err)
	}

	Logger = zap.New(fileCore)
	consoleLogger = console
	return nil
}

// Sync flushes buffered entries of both loggers
func Sync() {
	_ = Logger.Sync()
	_ = consoleLogger.Sync()
}

// GenerateRequestID short random id to correlate request and response lines
func GenerateRequestID() string {
	b := make([]byte, 8)
	_, _ = rand.Read(b)
	return hex.EncodeToString(b)
}

// LogRequest outgoing HTTP request (file only)
func LogRequest(requestID, method, endpoint string, fields ...zap.Field) {
	all := append([]zap.Field{
		zap.String("request_id", requestID),
		zap.String("method", method),
		zap.String("endpoint", endpoint),
	}, fields...)
	Logger.Debug("HTTP request", all...)
}

// LogResponse HTTP response; non-2xx responses are echoed to the console
func LogResponse(requestID string, statusCode int, durationMs int64, fields ...zap.Field) {
	all := append([]zap.Field{
		zap.String("request_id", requestID),
		zap.Int("status_code", statusCode),
		zap.Int64("duration_ms", durationMs),
	}, fields...)

	if statusCode >= 200 && statusCode < 300 {
		Logger.Debug("HTTP response", all...)
		return
	}
	Logger.Error("HTTP response", all...)
	if endpoint := fieldString(fields, "endpoint"); endpoint != "" {
		consoleLogger.Error(fmt.Sprintf("✗ HTTP request failed [%d] %s", statusCode, endpoint))
	} else {
		consoleLogger.Error(fmt.Sprintf("✗ HTTP request failed [%d]", statusCode))
	}
}

const (
	colorReset  = "\033[0m"
	colorRed    = "\033[31m"
	colorGreen  = "\033[32m"
	colorYellow = "\033[33m"
	colorCyan   = "\033[36m"
)

func colorLevelEncoder(level zapcore.Level, enc zapcore.PrimitiveArrayEncoder) {
	switch level {
	case zapcore.DebugLevel:
		enc.AppendString(colorCyan + "DEBUG" + colorReset)
	case zapcore.InfoLevel:
		enc.AppendString(colorGreen + "SUCCESS" + colorReset)
	case zapcore.WarnLevel:
		enc.AppendString(colorYellow + "WARN" + colorReset)
	default:
		enc.AppendString(colorRed + level.CapitalString() + colorReset)
	}
}

func plainLevelEncoder(level zapcore.Level, enc zapcore.PrimitiveArrayEncoder) {
	if level == zapcore.InfoLevel {
		enc.AppendString("SUCCESS")
		return
	}
	enc.AppendString(level.CapitalString())
}

// LogInfo file only
func LogInfo(message string, fields ...zap.Field) {
	Logger.Info(message, fields...)
}

// LogSuccess file and console
func LogSuccess(message string, fields ...zap.Field) {
	Logger.Info(message, fields...)
	if ms := durationField(fields); ms > 0 {
		consoleLogger.Info(fmt.Sprintf("✓ %s (%dms)", message, ms))
		return
	}
	consoleLogger.Info("✓ " + message)
}

// LogWarn file and console
func LogWarn(message string, fields ...zap.Field) {
	Logger.Warn(message, fields...)
	consoleLogger.Warn("! " + message)
}

// LogError file and console
func LogError(message string, fields ...zap.Field) {
	Logger.Error(message, fields...)
	if ms := durationField(fields); ms > 0 {
		consoleLogger.Error(fmt.Sprintf("✗ %s (%dms)", message, ms))
		return
	}
	consoleLogger.Error("✗ " + message)
}

// LogDebug file only
func LogDebug(message string, fields ...zap.Field) {
	Logger.Debug(message, fields...)
}

func durationField(fields []zap.Field) int64 {
	for _, f := range fields {
		if f.Key == "duration_ms" && f.Type == zapcore.Int64Type {
			return f.Integer
		}
	}
	return 0
}

func fieldString(fields []zap.Field, key string) string {
	for _, f := range fields {
		if f.Key == key && f.Type == zapcore.StringType {
			return f.String
		}
	}
	return ""
}

type truncatingWriter struct {
	mu   sync.Mutex
	file *os.File
	path string
}

func (w *truncatingWriter) Write(p []byte) (int, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if info, err := w.file.Stat(); err == nil && info.Size() > MaxLogFileSize {
		w.file.Close()
		f, err := os.OpenFile(w.path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0644)
		if err != nil {
			return 0, fmt.Errorf("failed to truncate log file: %w", err)
		}
		w.file = f
	}
	return w.file.Write(p)
}

func (w *truncatingWriter) Sync() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.file.Sync()
}

func getLogFileWriter(path string) zapcore.WriteSyncer {
	file, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to open log file %s: %v, falling back to stderr\n", path, err)
		return zapcore.AddSync(os.Stderr)
	}
	return &truncatingWriter{file: file, path: path}
}
