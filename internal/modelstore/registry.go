// Package modelstore persists trained model artifacts. Saving never deletes
// a previous version: the existing blob is renamed with a timestamp suffix
// before the new one is written. The two steps are deliberately not atomic;
// a crash in between leaves only the backup, and the next Load reports
// ErrModelNotFound (callers tolerate this per the registry contract).
package modelstore

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/ssenyonjo/aircast/internal/model"
	"github.com/ssenyonjo/aircast/pkg/types"
)

// BlobStore is the storage contract the registry runs on. The filesystem
// implementation below is the default; an object store satisfies the same
// four methods.
type BlobStore interface {
	Read(ctx context.Context, key string) ([]byte, error)
	Write(ctx context.Context, key string, data []byte) error
	Rename(ctx context.Context, oldKey, newKey string) error
	Exists(ctx context.Context, key string) (bool, error)
}

type Registry struct {
	blobs  BlobStore
	logger zerolog.Logger
	now    func() time.Time
}

func New(blobs BlobStore, logger zerolog.Logger) *Registry {
	return &Registry{
		blobs:  blobs,
		logger: logger.With().Str("component", "modelstore").Logger(),
		now:    time.Now,
	}
}

// Load fetches and decodes the artifact at key.
func (r *Registry) Load(ctx context.Context, key string) (*model.Model, error) {
	ok, err := r.blobs.Exists(ctx, key)
	if err != nil {
		return nil, fmt.Errorf("failed to stat model %s: %w", key, err)
	}
	if !ok {
		return nil, fmt.Errorf("%w: %s", types.ErrModelNotFound, key)
	}
	b, err := r.blobs.Read(ctx, key)
	if err != nil {
		return nil, fmt.Errorf("failed to read model %s: %w", key, err)
	}
	return model.Unmarshal(b)
}

// Save backs up any existing blob at key to key-<timestamp>, then writes the
// new artifact. The backup step is best-effort: a missing previous blob is
// not an error.
func (r *Registry) Save(ctx context.Context, m *model.Model, key string) error {
	b, err := m.Marshal()
	if err != nil {
		return fmt.Errorf("failed to encode model %s: %w", key, err)
	}

	ok, err := r.blobs.Exists(ctx, key)
	if err == nil && ok {
		backup := fmt.Sprintf("%s-%s", key, r.now().UTC().Format(time.RFC3339))
		if err := r.blobs.Rename(ctx, key, backup); err != nil {
			r.logger.Warn().Err(err).Str("key", key).Msg("failed to back up previous model")
		} else {
			r.logger.Info().Str("key", key).Str("backup", backup).Msg("previous model backed up")
		}
	} else if err != nil {
		r.logger.Warn().Err(err).Str("key", key).Msg("could not check for previous model")
	}

	// Active model is absent between the rename above and this write.
	if err := r.blobs.Write(ctx, key, b); err != nil {
		return fmt.Errorf("failed to write model %s (backup exists, active key empty): %w", key, err)
	}
	r.logger.Info().Str("key", key).Int("bytes", len(b)).Msg("model saved")
	return nil
}
