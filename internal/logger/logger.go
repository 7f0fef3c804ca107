package logger

import (
	"io"
	"os"
	"strings"
	"sync"

	charmlog "github.com/charmbracelet/log"
)

var (
	mu      sync.RWMutex
	current = New(os.Stderr, "info", false)
)

// New 创建一个 charm logger
func New(out io.Writer, level string, json bool) *charmlog.Logger {
	l := charmlog.NewWithOptions(out, charmlog.Options{
		ReportTimestamp: true,
		TimeFormat:      "15:04:05",
		Level:           ParseLevel(level),
	})
	if json {
		l.SetFormatter(charmlog.JSONFormatter)
	} else {
		l.SetFormatter(charmlog.TextFormatter)
	}
	return l
}

// ParseLevel 未识别的级别按 info 处理
func ParseLevel(level string) charmlog.Level {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "debug":
		return charmlog.DebugLevel
	case "warn", "warning":
		return charmlog.WarnLevel
	case "error":
		return charmlog.ErrorLevel
	default:
		return charmlog.InfoLevel
	}
}

// Setup 按配置替换全局 logger
func Setup(level string, json bool) {
	SetDefault(New(os.Stderr, level, json))
}

// SetDefault 替换全局 logger（测试中可注入缓冲区）
func SetDefault(l *charmlog.Logger) {
	mu.Lock()
	current = l
	mu.Unlock()
}

// L 返回全局 logger
func L() *charmlog.Logger {
	mu.RLock()
	defer mu.RUnlock()
	return current
}

func Debug(msg string, keyvals ...any) { L().Debug(msg, keyvals...) }

func Info(msg string, keyvals ...any) { L().Info(msg, keyvals...) }

func Warn(msg string, keyvals ...any) { L().Warn(msg, keyvals...) }

func Error(msg string, keyvals ...any) { L().Error(msg, keyvals...) }

// With 带固定字段的子 logger
func With(keyvals ...any) *charmlog.Logger {
	return L().With(keyvals...)
}
