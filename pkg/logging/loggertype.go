package logging

import (
	"fmt"
	"strings"
)

// LoggerType is a type of logger output.
// Possible types:
//   - LoggerText: The standard slog.TextHandler.
//   - LoggerJSON: The standard slog.JSONHandler.
//   - LoggerPretty: Colored human-readable messages when writing to a terminal.
//   - LoggerPrettyNoColor: Human-readable messages without colors.
type LoggerType int

const (
	LoggerText LoggerType = iota
	LoggerJSON
	LoggerPretty
	LoggerPrettyNoColor
)

var loggerTypeNames = [...]string{
	LoggerText:          "text",
	LoggerJSON:          "json",
	LoggerPretty:        "pretty",
	LoggerPrettyNoColor: "prettynocolor",
}

func (t LoggerType) String() string {
	if t < 0 || int(t) >= len(loggerTypeNames) {
		return fmt.Sprintf("LoggerType(%d)", int(t))
	}
	return loggerTypeNames[t]
}

func (t LoggerType) MarshalText() ([]byte, error) {
	return []byte(t.String()), nil
}

func (t *LoggerType) UnmarshalText(text []byte) error {
	s := strings.ToLower(string(text))
	for i, name := range loggerTypeNames {
		if name == s {
			*t = LoggerType(i)
			return nil
		}
	}
	return fmt.Errorf("%q does not belong to LoggerType values", string(text))
}
