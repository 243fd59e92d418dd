package logger

import (
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/minhle-quant/tradesim/pkg/types"
)

// Logger writes timestamped run logs to a per-run file.
type Logger struct {
	runID   string
	mode    string
	logFile *os.File
	logger  *log.Logger
	mu      sync.Mutex
	logPath string
}

// LogLevel represents different types of log entries
type LogLevel string

const (
	LogLevelInfo    LogLevel = "INFO"
	LogLevelWarning LogLevel = "WARN"
	LogLevelError   LogLevel = "ERROR"
	LogLevelFill    LogLevel = "FILL"
	LogLevelRisk    LogLevel = "RISK"
)

// NewLogger creates a file logger under logDir for the given run.
func NewLogger(logDir, runID, mode string) (*Logger, error) {
	if err := os.MkdirAll(logDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create log directory: %w", err)
	}

	filename := fmt.Sprintf("%s_%s.log", mode, runID)
	logPath := filepath.Join(logDir, filename)

	file, err := os.OpenFile(logPath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return nil, fmt.Errorf("failed to open log file: %w", err)
	}

	l := &Logger{
		runID:   runID,
		mode:    mode,
		logFile: file,
		logger:  log.New(file, "", 0),
		logPath: logPath,
	}

	l.writeSessionHeader()

	return l, nil
}

func (l *Logger) writeSessionHeader() {
	l.mu.Lock()
	defer l.mu.Unlock()

	header := fmt.Sprintf(`
================================================================================
SIMULATION RUN STARTED
================================================================================
Run: %s | Mode: %s
Started: %s
================================================================================
`, l.runID, l.mode, time.Now().Format("2006-01-02 15:04:05"))

	l.logger.Print(header)
}

// Log writes a formatted log entry with the specified level
func (l *Logger) Log(level LogLevel, format string, args ...interface{}) {
	l.mu.Lock()
	defer l.mu.Unlock()

	timestamp := time.Now().Format("2006-01-02 15:04:05")
	message := fmt.Sprintf(format, args...)
	l.logger.Printf("[%s] [%s] %s", timestamp, level, message)
}

// Info logs an info message
func (l *Logger) Info(format string, args ...interface{}) {
	l.Log(LogLevelInfo, format, args...)
}

// Warning logs a warning message
func (l *Logger) Warning(format string, args ...interface{}) {
	l.Log(LogLevelWarning, format, args...)
}

// Error logs an error message
func (l *Logger) Error(format string, args ...interface{}) {
	l.Log(LogLevelError, format, args...)
}

// LogFill logs one simulated fill.
func (l *Logger) LogFill(fill types.Fill) {
	l.Log(LogLevelFill, "%s %s qty=%.6f price=%.4f fee=%.4f slippage=%.1fbps spread=%.1fbps",
		fill.Symbol, fill.Side, fill.Quantity, fill.Price, fill.Fee, fill.SlippageBps, fill.SpreadBps)
}

// LogRiskDecision logs one risk engine outcome.
func (l *Logger) LogRiskDecision(order types.OrderRequest, decision types.RiskDecision) {
	l.Log(LogLevelRisk, "%s %s qty=%.6f -> %s (%s) flags=%v",
		order.Symbol, order.Side, order.Quantity, decision.Decision, decision.Reason, decision.RiskFlags)
}

// LogMetrics logs the final metrics of a run.
func (l *Logger) LogMetrics(metrics map[string]float64) {
	l.mu.Lock()
	defer l.mu.Unlock()

	timestamp := time.Now().Format("2006-01-02 15:04:05")
	summary := fmt.Sprintf("[%s] [STATUS] ==================== RUN METRICS ====================", timestamp)
	for _, key := range []string{"cagr", "sharpe", "sortino", "calmar", "max_drawdown", "win_rate", "profit_factor", "expectancy"} {
		if value, ok := metrics[key]; ok {
			summary += fmt.Sprintf("\n%s: %.6f", key, value)
		}
	}
	summary += "\n=========================================================="
	l.logger.Println(summary)
}

// LogError logs error with context
func (l *Logger) LogError(context string, err error) {
	l.Error("%s: %v", context, err)
}

// Close closes the log file
func (l *Logger) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.logFile != nil {
		timestamp := time.Now().Format("2006-01-02 15:04:05")
		footer := fmt.Sprintf(`
================================================================================
SIMULATION RUN ENDED
================================================================================
Ended: %s
================================================================================

`, timestamp)
		l.logger.Print(footer)

		return l.logFile.Close()
	}
	return nil
}

// GetLogPath returns the current log file path
func (l *Logger) GetLogPath() string {
	return l.logPath
}
