package main

import (
	"errors"
	"testing"

	"github.com/rs/zerolog"
)

func TestParseLogLevel(t *testing.T) {
	cases := map[string]zerolog.Level{
		"debug":   zerolog.DebugLevel,
		" WARN ":  zerolog.WarnLevel,
		"warning": zerolog.WarnLevel,
		"error":   zerolog.ErrorLevel,
		"":        zerolog.InfoLevel,
		"verbose": zerolog.InfoLevel,
	}
	for in, want := range cases {
		if got := parseLogLevel(in); got != want {
			t.Fatalf("parseLogLevel(%q) = %v, want %v", in, got, want)
		}
	}
}

func TestSanitizeTelegramErr(t *testing.T) {
	token := "12345:secret-token"
	err := errors.New("Post https://api.telegram.org/bot12345:secret-token/getUpdates: timeout")
	got := sanitizeTelegramErr(err, token)
	if got != "Post https://api.telegram.org/bot<redacted-token>/getUpdates: timeout" {
		t.Fatalf("unexpected sanitized error %q", got)
	}
	if sanitizeTelegramErr(nil, token) != "" {
		t.Fatalf("nil error must sanitize to empty string")
	}
}
