package prom

import (
	"errors"
	"net/http"

	st "github.com/AustralianCyberSecurityCentre/azul-dedup.git/settings"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// StartStandalonePromServer serves /metrics on addr until the process exits.
// Intended to be run in a goroutine for long jobs that should be observable while running.
func StartStandalonePromServer(addr string) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())

	st.Logger.Info().Str("addr", addr).Msg("launching metrics server")

	err := http.ListenAndServe(addr, mux)
	if err != nil && !errors.Is(err, http.ErrServerClosed) {
		st.Logger.Error().Err(err).Msg("failed to listen for prometheus metrics")
	}
}
