package logger

import "testing"

func TestMaskToken(t *testing.T) {
	tests := []struct {
		token    string
		expected string
	}{
		{"", "****"},
		{"short", "****"},
		{"12345678", "****"},
		{"123456789", "12345678..."},
		{"eyJhbGciOiJIUzI1NiIsInR5cCI6IkpXVCJ9", "eyJhbGci..."},
	}

	for _, tt := range tests {
		if got := MaskToken(tt.token); got != tt.expected {
			t.Errorf("MaskToken(%q) = %q, 期望 %q", tt.token, got, tt.expected)
		}
	}
}

func TestParseLevel(t *testing.T) {
	tests := []struct {
		name  string
		level LogLevel
		ok    bool
	}{
		{"debug", DebugLevel, true},
		{"INFO", InfoLevel, true},
		{"warning", WarnLevel, true},
		{" error ", ErrorLevel, true},
		{"verbose", InfoLevel, false},
		{"", InfoLevel, false},
	}

	for _, tt := range tests {
		level, ok := ParseLevel(tt.name)
		if level != tt.level || ok != tt.ok {
			t.Errorf("ParseLevel(%q) = (%v, %v), 期望 (%v, %v)", tt.name, level, ok, tt.level, tt.ok)
		}
	}
}

func TestLevelString(t *testing.T) {
	if got := WarnLevel.String(); got != "WARN" {
		t.Errorf("WarnLevel.String() = %q, 期望 WARN", got)
	}
	if got := LogLevel(99).String(); got != "UNKNOWN" {
		t.Errorf("越界级别String() = %q, 期望 UNKNOWN", got)
	}
}

func TestSetLevelFromString(t *testing.T) {
	defer SetLevel(InfoLevel)

	SetLevelFromString("DEBUG")
	if !IsDebugEnabled() {
		t.Error("debug级别未生效")
	}

	SetLevelFromString("error")
	if IsDebugEnabled() {
		t.Error("error级别下不应启用debug")
	}

	// 非法级别保持不变
	SetLevelFromString("invalid")
	if IsDebugEnabled() {
		t.Error("非法级别不应改变当前设置")
	}
}
