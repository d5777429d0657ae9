package service

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/avolhov/recovery-server/internal/model"
)

// Typed lookup helpers. Each substitutes the supplied default whenever the
// setting is absent, blank, unreadable or fails to parse under its expected
// type; they never surface errors to the caller.

// GetString returns the setting value or def.
func (s *Settings) GetString(ctx context.Context, key, def string) string {
	setting, err := s.Get(ctx, key)
	if err != nil || strings.TrimSpace(setting.Value) == "" {
		return def
	}
	return setting.Value
}

// GetRequiredString returns the setting value, or model.ErrNotConfigured
// when the setting is absent or blank. For settings whose absence should
// stop the caller instead of falling back to a default.
func (s *Settings) GetRequiredString(ctx context.Context, key string) (string, error) {
	setting, err := s.Get(ctx, key)
	if errors.Is(err, model.ErrNotFound) {
		return "", fmt.Errorf("%w: %s", model.ErrNotConfigured, key)
	}
	if err != nil {
		return "", err
	}
	if strings.TrimSpace(setting.Value) == "" {
		return "", fmt.Errorf("%w: %s", model.ErrNotConfigured, key)
	}
	return setting.Value, nil
}

// GetBool parses the setting value as a flexible boolean. Accepted forms,
// case-insensitive: true/false, 1/0, yes/no, on/off, enabled/disabled.
func (s *Settings) GetBool(ctx context.Context, key string, def bool) bool {
	setting, err := s.Get(ctx, key)
	if err != nil {
		return def
	}
	parsed, ok := parseFlexibleBool(setting.Value)
	if !ok {
		return def
	}
	return parsed
}

// GetInt returns the setting value parsed as an integer, or def.
func (s *Settings) GetInt(ctx context.Context, key string, def int64) int64 {
	setting, err := s.Get(ctx, key)
	if err != nil {
		return def
	}
	parsed, err := strconv.ParseInt(strings.TrimSpace(setting.Value), 10, 64)
	if err != nil {
		return def
	}
	return parsed
}

// GetFloat returns the setting value parsed as a float, or def.
func (s *Settings) GetFloat(ctx context.Context, key string, def float64) float64 {
	setting, err := s.Get(ctx, key)
	if err != nil {
		return def
	}
	parsed, err := strconv.ParseFloat(strings.TrimSpace(setting.Value), 64)
	if err != nil {
		return def
	}
	return parsed
}

func parseFlexibleBool(value string) (parsed, ok bool) {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "true", "1", "yes", "on", "enabled":
		return true, true
	case "false", "0", "no", "off", "disabled":
		return false, true
	default:
		return false, false
	}
}
