// Package orphans tracks remote media objects that were uploaded but never got
// an images row, so a background job can delete them later.
package orphans

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/angelmondragon/gallery-backend/pkg/logger"
)

// Orphan identifies one remote object without metadata.
type Orphan struct {
	Provider  string    `json:"provider"`
	PublicID  string    `json:"public_id"`
	SecureURL string    `json:"secure_url"`
	FailedAt  time.Time `json:"failed_at"`
}

// Recorder persists orphans for later cleanup.
type Recorder interface {
	Record(ctx context.Context, orphan Orphan) error
}

// Encode returns the canonical set member for o.
func Encode(o Orphan) (string, error) {
	if o.PublicID == "" {
		return "", errors.New("orphan public id is required")
	}
	raw, err := json.Marshal(o)
	if err != nil {
		return "", fmt.Errorf("encode orphan: %w", err)
	}
	return string(raw), nil
}

// Decode parses a set member produced by Encode.
func Decode(member string) (Orphan, error) {
	var o Orphan
	if err := json.Unmarshal([]byte(member), &o); err != nil {
		return Orphan{}, fmt.Errorf("decode orphan: %w", err)
	}
	if o.PublicID == "" {
		return Orphan{}, errors.New("decode orphan: missing public id")
	}
	return o, nil
}

// LogRecorder only logs orphans. It is used when Redis is not configured.
type LogRecorder struct {
	logg *logger.Logger
}

func NewLogRecorder(logg *logger.Logger) *LogRecorder {
	return &LogRecorder{logg: logg}
}

func (r *LogRecorder) Record(ctx context.Context, o Orphan) error {
	if r.logg == nil {
		return nil
	}
	ctx = r.logg.WithFields(ctx, map[string]any{
		"provider":   o.Provider,
		"public_id":  o.PublicID,
		"secure_url": o.SecureURL,
	})
	r.logg.Warn(ctx, "orphaned media object requires manual cleanup")
	return nil
}
