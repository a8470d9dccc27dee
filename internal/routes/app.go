package routes

import (
	"context"

	"github.com/rs/zerolog"

	"github.com/ssenyonjo/aircast/internal/cache"
	"github.com/ssenyonjo/aircast/internal/docstore"
	"github.com/ssenyonjo/aircast/pkg/types"
)

// JobTrigger starts pipeline runs on demand.
type JobTrigger interface {
	Train(ctx context.Context, freq types.Frequency) error
	Forecast(ctx context.Context, freq types.Frequency) error
}

type App struct {
	Sink   *docstore.Sink
	Cache  cache.Cache
	Jobs   JobTrigger
	logger zerolog.Logger
}

func New(sink *docstore.Sink, docCache cache.Cache, jobs JobTrigger, logger zerolog.Logger) *App {
	return &App{
		Sink:   sink,
		Cache:  docCache,
		Jobs:   jobs,
		logger: logger.With().Str("component", "routes").Logger(),
	}
}
