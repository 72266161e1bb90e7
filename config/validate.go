package config

import (
	"fmt"
	"reflect"

	"github.com/samber/lo"
	"github.com/sirupsen/logrus"
	"github.com/vesper-player/vesper/icon"
	"github.com/vesper-player/vesper/key"
	"github.com/vesper-player/vesper/player"
)

type validator func(v any) error

func oneOf(options ...string) validator {
	return func(v any) error {
		if s, ok := v.(string); ok && lo.Contains(options, s) {
			return nil
		}
		return fmt.Errorf("must be one of %v", options)
	}
}

func intRange(low, high int) validator {
	return func(v any) error {
		if n, ok := v.(int); ok && n >= low && n <= high {
			return nil
		}
		return fmt.Errorf("must be between %d and %d", low, high)
	}
}

func positive(v any) error {
	if n, ok := v.(int); ok && n > 0 {
		return nil
	}
	return fmt.Errorf("must be greater than 0")
}

func nonNegative(v any) error {
	if n, ok := v.(int); ok && n >= 0 {
		return nil
	}
	return fmt.Errorf("must not be negative")
}

func logLevel(v any) error {
	s, _ := v.(string)
	_, err := logrus.ParseLevel(s)
	return err
}

var validators = map[string]validator{
	key.EngineBackend:              oneOf(string(player.BackendProcess), string(player.BackendAttach)),
	key.EngineConnectIntervalMs:    positive,
	key.EngineConnectAttempts:      positive,
	key.PlaybackLoadingTimeout:     positive,
	key.PlaybackBufferingTimeout:   positive,
	key.PlaybackProgressInterval:   positive,
	key.PlayerCompletionPercentage: intRange(1, 100),
	key.TrickplayRequestsPerSecond: nonNegative,
	key.IconsVariant:               oneOf(icon.AvailableVariants()...),
	key.LogsLevel:                  logLevel,
}

// Validate reports whether v is acceptable for the field at k.
// v must already have the field's type.
func Validate(k string, v any) error {
	field, ok := Default[k]
	if !ok {
		return fmt.Errorf("unknown key %s", k)
	}

	if reflect.TypeOf(v) != reflect.TypeOf(field.Value) {
		return fmt.Errorf("%s: expected %s, got %T", k, field.typeName(), v)
	}

	if check, ok := validators[k]; ok {
		if err := check(v); err != nil {
			return fmt.Errorf("%s %w", k, err)
		}
	}

	return nil
}
