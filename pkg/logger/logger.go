package logger

import (
	"fmt"
	"log"
	"os"
	"strings"
	"time"
)

// LogLevel 日志级别
type LogLevel int

const (
	DebugLevel LogLevel = iota
	InfoLevel
	WarnLevel
	ErrorLevel
)

// 级别标签按LogLevel下标索引
var levelNames = [...]string{"DEBUG", "INFO", "WARN", "ERROR"}

func (l LogLevel) String() string {
	if l < DebugLevel || l > ErrorLevel {
		return "UNKNOWN"
	}
	return levelNames[l]
}

// ParseLevel 解析级别名称，无法识别时ok为false
func ParseLevel(name string) (level LogLevel, ok bool) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "debug":
		return DebugLevel, true
	case "info":
		return InfoLevel, true
	case "warn", "warning":
		return WarnLevel, true
	case "error":
		return ErrorLevel, true
	}
	return InfoLevel, false
}

// Logger 简单日志器，低于当前级别的消息直接丢弃
type Logger struct {
	level LogLevel
	out   *log.Logger
}

var std = &Logger{
	level: InfoLevel,
	out:   log.New(os.Stdout, "", 0), // 时间戳和级别自己格式化
}

func (l *Logger) write(level LogLevel, format string, args ...interface{}) {
	if level < l.level {
		return
	}
	l.out.Printf("[%s] [%s] %s", time.Now().Format("15:04:05"), level, fmt.Sprintf(format, args...))
}

// SetLevel 设置日志级别
func SetLevel(level LogLevel) {
	std.level = level
}

// SetLevelFromString 从配置字符串设置日志级别，非法值保持当前级别
func SetLevelFromString(name string) {
	if level, ok := ParseLevel(name); ok {
		std.level = level
	}
}

// IsDebugEnabled 是否启用调试级别
func IsDebugEnabled() bool {
	return std.level <= DebugLevel
}

// EnableDebugFromEnv 通过DEBUG环境变量启用调试模式
func EnableDebugFromEnv() {
	switch strings.ToLower(os.Getenv("DEBUG")) {
	case "true", "1", "on", "debug":
		SetLevel(DebugLevel)
		Debug("调试模式已启用")
	}
}

// Debug 调试日志
func Debug(format string, args ...interface{}) {
	std.write(DebugLevel, format, args...)
}

// Info 信息日志
func Info(format string, args ...interface{}) {
	std.write(InfoLevel, format, args...)
}

// Warn 警告日志
func Warn(format string, args ...interface{}) {
	std.write(WarnLevel, format, args...)
}

// Error 错误日志
func Error(format string, args ...interface{}) {
	std.write(ErrorLevel, format, args...)
}

// MaskToken 截断token用于日志输出，禁止记录完整凭证
func MaskToken(token string) string {
	if len(token) <= 8 {
		return "****"
	}
	return token[:8] + "..."
}
