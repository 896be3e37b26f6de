package log

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/sirupsen/logrus"
)

var logger *logrus.Logger

// LogConfig holds logging configuration
type LogConfig struct {
	Level      string `json:"level" yaml:"level"`
	LogDir     string `json:"log_dir" yaml:"log_dir"`
	MaxSize    int    `json:"max_size" yaml:"max_size"`       // MB
	MaxBackups int    `json:"max_backups" yaml:"max_backups"` // Number of backup files
	MaxAge     int    `json:"max_age" yaml:"max_age"`         // Days
	Compress   bool   `json:"compress" yaml:"compress"`
}

// DefaultLogConfig returns default logging configuration
func DefaultLogConfig() *LogConfig {
	return &LogConfig{
		Level:      "info",
		LogDir:     "logs",
		MaxSize:    100, // 100MB
		MaxBackups: 30,  // 30 backup files
		MaxAge:     30,  // 30 days
		Compress:   true,
	}
}

// InitLogger initializes the logger with default configuration
func InitLogger() {
	InitLoggerWithConfig(DefaultLogConfig())
}

// InitLoggerWithConfig initializes the logger with custom configuration
func InitLoggerWithConfig(config *LogConfig) {
	logger = logrus.New()

	// Set log level
	level, err := logrus.ParseLevel(config.Level)
	if err != nil {
		level = logrus.InfoLevel
	}
	logger.SetLevel(level)

	// Create log directory if it doesn't exist
	if err := os.MkdirAll(config.LogDir, 0755); err != nil {
		fmt.Printf("Failed to create log directory: %v\n", err)
		// Fallback to stdout
		logger.SetOutput(os.Stdout)
	} else {
		// Set up daily log file
		logFile := getDailyLogFile(config.LogDir)
		file, err := os.OpenFile(logFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0666)
		if err != nil {
			fmt.Printf("Failed to open log file: %v\n", err)
			// Fallback to stdout
			logger.SetOutput(os.Stdout)
		} else {
			// Write to the daily file only
			logger.SetOutput(file)
		}
	}

	// Set JSON formatter with timestamp
	logger.SetFormatter(&logrus.JSONFormatter{
		TimestampFormat: time.RFC3339,
		FieldMap: logrus.FieldMap{
			logrus.FieldKeyTime:  "timestamp",
			logrus.FieldKeyLevel: "level",
			logrus.FieldKeyMsg:   "message",
		},
	})

	// Log initialization
	logger.WithFields(logrus.Fields{
		"component": "logger",
		"log_dir":   config.LogDir,
		"level":     config.Level,
	}).Info("Logger initialized successfully")
}

// getDailyLogFile returns the log file path for the current day
func getDailyLogFile(logDir string) string {
	today := time.Now().Format("2006-01-02")
	return filepath.Join(logDir, fmt.Sprintf("choch_detector_%s.log", today))
}

// Info logs an info message
func Info(msg string, args ...interface{}) {
	if logger != nil {
		logger.Infof(msg, args...)
	}
}

// Error logs an error message
func Error(msg string, args ...interface{}) {
	if logger != nil {
		logger.Errorf(msg, args...)
	}
}

// Fatal logs a fatal message and exits
func Fatal(msg string, args ...interface{}) {
	if logger != nil {
		logger.Fatalf(msg, args...)
	}
}

// Fatalf logs a fatal message with format and exits
func Fatalf(format string, args ...interface{}) {
	if logger != nil {
		logger.Fatalf(format, args...)
	}
}

// Warn logs a warning message
func Warn(msg string, args ...interface{}) {
	if logger != nil {
		logger.Warnf(msg, args...)
	}
}

// Debug logs a debug message
func Debug(msg string, args ...interface{}) {
	if logger != nil {
		logger.Debugf(msg, args...)
	}
}


// Scheduler and pivot/signal specific structured logging below,
// replacing the dashboard-specific helpers the base logger used to
// carry — same logrus.Fields-building shape, new component names.

// SchedulerInfo logs scheduler/orchestrator info messages with
// structured (symbol, timeframe) fields.
func SchedulerInfo(symbol, timeframe, msg string, args ...interface{}) {
	if logger != nil {
		logger.WithFields(logrus.Fields{
			"component": "scheduler",
			"symbol":    symbol,
			"timeframe": timeframe,
		}).Infof(msg, args...)
	}
}

// SchedulerError logs scheduler/orchestrator error messages with
// structured (symbol, timeframe) fields.
func SchedulerError(symbol, timeframe, msg string, args ...interface{}) {
	if logger != nil {
		logger.WithFields(logrus.Fields{
			"component": "scheduler",
			"symbol":    symbol,
			"timeframe": timeframe,
		}).Errorf(msg, args...)
	}
}

// SignalInfo logs a fired or attempted CHoCH signal at info level.
func SignalInfo(symbol, timeframe, msg string, args ...interface{}) {
	if logger != nil {
		logger.WithFields(logrus.Fields{
			"component": "confirmer",
			"symbol":    symbol,
			"timeframe": timeframe,
		}).Infof(msg, args...)
	}
}

// SignalError logs a signal-publication failure.
func SignalError(symbol, timeframe, msg string, args ...interface{}) {
	if logger != nil {
		logger.WithFields(logrus.Fields{
			"component": "confirmer",
			"symbol":    symbol,
			"timeframe": timeframe,
		}).Errorf(msg, args...)
	}
}

// PivotDebug logs pivot-detector internals at debug level — variant
// classification, synthetic insertion, ring eviction.
func PivotDebug(symbol, timeframe, msg string, args ...interface{}) {
	if logger != nil {
		logger.WithFields(logrus.Fields{
			"component": "pivot_detector",
			"symbol":    symbol,
			"timeframe": timeframe,
		}).Debugf(msg, args...)
	}
}
