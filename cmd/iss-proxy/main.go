// Command iss-proxy is a pacing and caching reverse proxy for the ISS API.
// It funnels all callers through one session, so rate limiting, retries,
// and the response cache apply process-wide, and exposes Prometheus
// metrics for the whole pipeline.
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/finwerk/moexiss/pkg/client"
	"github.com/finwerk/moexiss/pkg/logging"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
)

func main() {
	logger := logging.Setup(logging.Config{
		Level:  logging.LogLevel(getEnv("LOG_LEVEL", "info")),
		Pretty: getEnv("LOG_PRETTY", "") == "true",
		Output: os.Stderr,
	})

	port := getEnv("PORT", "8080")
	userAgent := getEnv("USER_AGENT", "iss-proxy/0.1.0")

	cfg := client.DefaultConfig(userAgent)
	if baseURL := getEnv("ISS_BASE_URL", ""); baseURL != "" {
		cfg.BaseURL = baseURL
	}

	// Redis is optional: without it the proxy still paces and retries,
	// it just stops caching.
	if redisURL := getEnv("REDIS_URL", ""); redisURL != "" {
		redisClient := redis.NewClient(&redis.Options{Addr: redisURL})
		if err := redisClient.Ping(context.Background()).Err(); err != nil {
			logger.Fatal().Err(err).Str("redis_url", redisURL).Msg("Failed to connect to Redis")
		}
		cfg.Redis = redisClient
		logger.Info().Str("redis_url", redisURL).Msg("Response cache enabled")
	}

	issClient, err := client.New(cfg)
	if err != nil {
		logger.Fatal().Err(err).Msg("Failed to create ISS client")
	}
	defer issClient.Close()

	mux := http.NewServeMux()
	mux.HandleFunc("/health", healthHandler)
	mux.Handle("/metrics", promhttp.Handler())
	mux.HandleFunc("/iss/", proxyHandler(issClient))

	server := &http.Server{
		Addr:    ":" + port,
		Handler: mux,
	}

	go func() {
		logger.Info().Str("addr", server.Addr).Str("user_agent", userAgent).Msg("Starting ISS proxy")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal().Err(err).Msg("Server failed")
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop

	logger.Info().Msg("Shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("Shutdown failed")
	}
	_ = issClient.Close()
	logger.Info().Msg("Shutdown complete")
}

func healthHandler(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	fmt.Fprintf(w, "OK")
}

// proxyHandler forwards /iss/... requests through the shared session and
// maps terminal error kinds onto upstream-ish status codes.
func proxyHandler(issClient *client.Client) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		endpoint := r.URL.Path
		if !strings.HasSuffix(endpoint, ".json") {
			http.Error(w, "only .json ISS endpoints are proxied", http.StatusBadRequest)
			return
		}

		body, err := issClient.GetRaw(r.Context(), endpoint, r.URL.Query())
		if err != nil {
			http.Error(w, err.Error(), statusFor(err))
			return
		}

		w.Header().Set("Content-Type", "application/json; charset=utf-8")
		w.WriteHeader(http.StatusOK)
		w.Write(body)
	}
}

// statusFor maps a terminal failure to the proxy's response status.
func statusFor(err error) int {
	switch client.KindOf(err) {
	case client.KindClientError:
		return http.StatusBadRequest
	case client.KindRateLimited:
		return http.StatusTooManyRequests
	case client.KindTimeout:
		return http.StatusGatewayTimeout
	case client.KindCancelled:
		return 499 // client closed request
	default:
		return http.StatusBadGateway
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
