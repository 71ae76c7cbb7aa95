package logger

import (
	"strings"
	"testing"
)

func TestSanitizeValue(t *testing.T) {
	if got := sanitizeValue("openai_api_key", "sk-123"); got != "[REDACTED]" {
		t.Fatalf("api key: want=[REDACTED] got=%v", got)
	}
	if got := sanitizeValue("tokens_in", 42); got != 42 {
		t.Fatalf("token count: want=42 got=%v", got)
	}
	got, _ := sanitizeValue("user_id", "4f7c").(string)
	if !strings.HasPrefix(got, "hash:") || strings.Contains(got, "4f7c") {
		t.Fatalf("user id: want hashed got=%q", got)
	}
	long := strings.Repeat("voice ", 40)
	clipped, _ := sanitizeValue("full_text", long).(string)
	if !strings.HasSuffix(clipped, "(240 chars)") || len(clipped) >= len(long) {
		t.Fatalf("full_text: want clipped got=%q", clipped)
	}
	if got := sanitizeValue("content", "short"); got != "short" {
		t.Fatalf("short content: want=short got=%v", got)
	}
}
