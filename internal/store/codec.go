package store

import (
	"encoding/json"
	"fmt"

	"github.com/rs/zerolog"
)

// LoadJSON decodes the slice under key into a T.
// Absent slices, read failures and malformed documents all yield def; the
// second return value is true only when a stored document decoded cleanly.
// def must not share backing storage the caller still needs.
func LoadJSON[T any](s SliceStore, key string, def T, log zerolog.Logger) (T, bool) {
	raw, ok, err := s.LoadSlice(key)
	if err != nil {
		log.Error().Err(err).Str("key", key).Msg("slice read failed, using default")
		return def, false
	}
	if !ok {
		return def, false
	}

	// Decoding on top of def keeps defaults for fields the document omits.
	v := def
	if err := json.Unmarshal(raw, &v); err != nil {
		log.Warn().Err(err).Str("key", key).Msg("malformed slice, using default")
		return def, false
	}
	return v, true
}

// SaveJSON encodes v and writes it under key.
func SaveJSON(s SliceStore, key string, v any) error {
	raw, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("failed to encode %s: %w", key, err)
	}
	return s.SaveSlice(key, raw)
}

// LoadString returns the raw slice under key as a string, or "" when absent
// or unreadable. The current chat id is stored this way rather than as JSON.
func LoadString(s SliceStore, key string, log zerolog.Logger) string {
	raw, ok, err := s.LoadSlice(key)
	if err != nil {
		log.Error().Err(err).Str("key", key).Msg("slice read failed")
		return ""
	}
	if !ok {
		return ""
	}
	return string(raw)
}
