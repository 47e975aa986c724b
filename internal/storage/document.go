package storage

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/starford/studycards/internal/apperr"
)

// CorruptError reports a stored document that could not be decoded.
type CorruptError struct {
	Key string
	Err error
}

func (e *CorruptError) Error() string {
	return fmt.Sprintf("storage: corrupt document %s: %v", e.Key, e.Err)
}

func (e *CorruptError) Unwrap() error { return e.Err }

// LoadJSON decodes the document under key into v. It reports found=false,
// with a nil error, when nothing or an empty value is stored under key.
// Decode failures are returned as *CorruptError.
func LoadJSON(p Provider, key string, v any) (bool, error) {
	data, err := p.Get(key)
	if err != nil {
		if errors.Is(err, apperr.ErrNotFound) {
			return false, nil
		}
		return false, err
	}
	if len(bytes.TrimSpace(data)) == 0 {
		return false, nil
	}
	if err := json.Unmarshal(data, v); err != nil {
		return true, &CorruptError{Key: key, Err: err}
	}
	return true, nil
}

// SaveJSON encodes v and overwrites the document under key.
func SaveJSON(p Provider, key string, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("storage: encode %s: %w", key, err)
	}
	return p.Put(key, data)
}
