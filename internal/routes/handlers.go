package routes

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/ssenyonjo/aircast/internal/docstore"
	"github.com/ssenyonjo/aircast/internal/metrics"
	"github.com/ssenyonjo/aircast/pkg/types"
	"github.com/ssenyonjo/aircast/pkg/utils"
)

const forecastCacheTTL = 5 * time.Minute

func healthHandler(w http.ResponseWriter, r *http.Request) {
	utils.ReplyJSON(w, http.StatusOK, utils.Body{
		"state": "healthy",
	})
}

func (app *App) forecastsHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		utils.ReplyMethodNotAllowed(w)
		return
	}

	start := time.Now()
	defer func() {
		metrics.HttpRequestLatencySeconds.WithLabelValues("GET").Observe(time.Since(start).Seconds())
	}()

	deviceID := r.URL.Query().Get("device_id")
	siteID := r.URL.Query().Get("site_id")
	freqStr := r.URL.Query().Get("frequency")
	if deviceID == "" || siteID == "" || freqStr == "" {
		utils.ReplyBadRequest(w, "missing query params")
		return
	}

	freq, err := types.ToFrequency(freqStr)
	if err != nil {
		utils.ReplyBadRequest(w, "invalid frequency")
		return
	}

	cacheKey := docstore.Key(string(freq), deviceID, siteID)
	if cached, err := app.Cache.FetchDocument(r.Context(), cacheKey); err == nil && cached != nil {
		var doc types.ForecastDocument
		if err = json.Unmarshal(cached, &doc); err == nil {
			utils.ReplyJSON(w, http.StatusOK, utils.Body{
				"data": doc,
			})
			return
		}
	}

	doc, err := app.Sink.Latest(r.Context(), freq, deviceID, siteID)
	if err != nil {
		if errors.Is(err, docstore.ErrNoDocument) {
			utils.ReplyNotFound(w, "no forecast found")
			return
		}
		utils.ReplyInternalServerError(w, err.Error())
		return
	}

	docBytes, _ := json.Marshal(doc)
	_ = app.Cache.StoreDocument(r.Context(), cacheKey, docBytes, forecastCacheTTL)

	utils.ReplyJSON(w, http.StatusOK, utils.Body{
		"data": doc,
	})
}

func (app *App) trainHandler(w http.ResponseWriter, r *http.Request) {
	app.triggerJob(w, r, "train", app.Jobs.Train)
}

func (app *App) forecastJobHandler(w http.ResponseWriter, r *http.Request) {
	app.triggerJob(w, r, "forecast", app.Jobs.Forecast)
}

// triggerJob kicks a pipeline run in the background and replies immediately.
func (app *App) triggerJob(
	w http.ResponseWriter,
	r *http.Request,
	name string,
	run func(ctx context.Context, freq types.Frequency) error,
) {
	if r.Method != http.MethodPost {
		utils.ReplyMethodNotAllowed(w)
		return
	}

	freq, err := types.ToFrequency(r.URL.Query().Get("frequency"))
	if err != nil {
		utils.ReplyBadRequest(w, "invalid frequency")
		return
	}

	go func() {
		if err := run(context.Background(), freq); err != nil {
			app.logger.Error().Err(err).
				Str("job", name).
				Str("frequency", string(freq)).
				Msg("triggered run failed")
		}
	}()

	utils.ReplyJSON(w, http.StatusAccepted, utils.Body{
		"state":     "accepted",
		"job":       name,
		"frequency": freq,
	})
}
