// Package api serves the board's local status surface: lifecycle state,
// latest coefficient tables and prometheus metrics. It replaces the serial
// debug printout of earlier firmware with a small read-only HTTP API.
package api

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	kithttp "github.com/go-kit/kit/transport/http"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

const contentType = "application/json"

func MakeHandler(obs Observer, gatherer prometheus.Gatherer, instanceID string) http.Handler {
	mux := chi.NewRouter()

	mux.Get("/status", otelhttp.NewHandler(kithttp.NewServer(
		statusEndpoint(obs, instanceID),
		decodeEmptyRequest,
		encodeResponse,
	), "board-status").ServeHTTP)

	mux.Get("/coefficients", otelhttp.NewHandler(kithttp.NewServer(
		coefficientsEndpoint(obs),
		decodeEmptyRequest,
		encodeResponse,
	), "board-coefficients").ServeHTTP)

	mux.Get("/metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}).ServeHTTP)

	mux.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", contentType)
		w.WriteHeader(http.StatusOK)
		_ = json.NewEncoder(w).Encode(map[string]string{"status": "ok", "instance_id": instanceID})
	})

	return mux
}

func decodeEmptyRequest(_ context.Context, _ *http.Request) (any, error) {
	return nil, nil
}

func encodeResponse(_ context.Context, w http.ResponseWriter, response any) error {
	w.Header().Set("Content-Type", contentType)
	if ar, ok := response.(Response); ok {
		w.WriteHeader(ar.Code())
	}

	return json.NewEncoder(w).Encode(response)
}
