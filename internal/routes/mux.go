// Package routes
package routes

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/ssenyonjo/aircast/pkg/utils"
)

func (app *App) NewMux() http.Handler {
	mux := http.NewServeMux()

	// health check
	mux.HandleFunc("/healthz", healthHandler)

	// metrics
	mux.Handle("/metrics", promhttp.Handler())

	// latest forecast document for one (device, site, frequency)
	mux.HandleFunc("/forecasts", app.forecastsHandler)

	// on-demand pipeline runs
	mux.HandleFunc("/jobs/train", app.trainHandler)
	mux.HandleFunc("/jobs/forecast", app.forecastJobHandler)

	return utils.WithCORS(mux)
}
