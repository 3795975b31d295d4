package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"strconv"
	"time"

	"github.com/openfda-go/openfda-client/pkg/client"
	"github.com/openfda-go/openfda-client/pkg/logging"
	"github.com/openfda-go/openfda-client/pkg/query"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
)

func main() {
	logger := logging.Setup(logging.Config{
		Level:  logging.LogLevel(getEnv("LOG_LEVEL", "info")),
		Pretty: getEnv("LOG_PRETTY", "") == "true",
	})

	port := getEnv("PORT", "8080")
	redisURL := getEnv("REDIS_URL", "")
	apiKey := getEnv("FDA_API_KEY", "")
	userAgent := getEnv("USER_AGENT", "openfda-go-client/1.0")

	cfg := client.DefaultConfig()
	cfg.APIKey = apiKey
	cfg.UserAgent = userAgent

	// Cache is optional for the proxy; without Redis every request goes
	// to the network.
	var redisClient *redis.Client
	if redisURL != "" {
		redisClient = redis.NewClient(&redis.Options{
			Addr: redisURL,
		})
		if err := redisClient.Ping(context.Background()).Err(); err != nil {
			logger.Fatal().Err(err).Str("redis", redisURL).Msg("Failed to connect to Redis")
		}
		cfg.Redis = redisClient
		logger.Info().Str("redis", redisURL).Msg("Connected to Redis")
	}

	fdaClient, err := client.New(cfg)
	if err != nil {
		logger.Fatal().Err(err).Msg("Failed to create openFDA client")
	}
	defer fdaClient.Close()

	http.HandleFunc("/health", healthHandler)
	http.HandleFunc("/ready", readyHandler(redisClient))
	http.HandleFunc("/search", searchHandler(fdaClient))
	http.Handle("/metrics", promhttp.Handler())

	addr := ":" + port
	logger.Info().
		Str("addr", addr).
		Str("user_agent", userAgent).
		Bool("api_key", apiKey != "").
		Msg("Starting openFDA proxy server")

	if err := http.ListenAndServe(addr, nil); err != nil {
		logger.Fatal().Err(err).Msg("Server failed")
	}
}

func healthHandler(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	fmt.Fprintf(w, "OK")
}

// readyHandler reports 503 while the Redis cache backend is unreachable.
// Without a configured cache the proxy is always ready.
func readyHandler(redisClient *redis.Client) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if redisClient != nil {
			ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
			defer cancel()
			if err := redisClient.Ping(ctx).Err(); err != nil {
				http.Error(w, fmt.Sprintf("Redis unavailable: %v", err), http.StatusServiceUnavailable)
				return
			}
		}
		w.WriteHeader(http.StatusOK)
		fmt.Fprintf(w, "OK")
	}
}

// searchResponse is the proxy's JSON reply shape.
type searchResponse struct {
	Total    int              `json:"total"`
	Returned int              `json:"returned"`
	Results  []map[string]any `json:"results"`
}

// searchHandler runs a full paginated search and returns the stitched
// result set. Example:
//
//	GET /search?endpoint=/drug/ndc.json&search=brand_name:"tylenol"&limit=100
func searchHandler(fdaClient *client.Client) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		params := r.URL.Query()

		endpoint := params.Get("endpoint")
		if endpoint == "" {
			http.Error(w, "endpoint parameter is required", http.StatusBadRequest)
			return
		}

		opts := []query.Option{}
		if search := params.Get("search"); search != "" {
			opts = append(opts, query.WithSearch(search))
		}
		if sort := params.Get("sort"); sort != "" {
			opts = append(opts, query.WithSort(sort))
		}
		if limitStr := params.Get("limit"); limitStr != "" {
			limit, err := strconv.Atoi(limitStr)
			if err != nil {
				http.Error(w, "limit must be an integer", http.StatusBadRequest)
				return
			}
			opts = append(opts, query.WithLimit(limit))
		}
		if skipStr := params.Get("skip"); skipStr != "" {
			skip, err := strconv.Atoi(skipStr)
			if err != nil {
				http.Error(w, "skip must be an integer", http.StatusBadRequest)
				return
			}
			opts = append(opts, query.WithSkip(skip))
		}

		q, err := query.New(query.Endpoint(endpoint), opts...)
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}

		ctx, cancel := context.WithTimeout(r.Context(), 5*time.Minute)
		defer cancel()

		result, err := fdaClient.Search(ctx, q)
		if err != nil {
			status := http.StatusBadGateway
			var httpErr *client.HTTPError
			if errors.As(err, &httpErr) && httpErr.Class() == client.ErrorClassClient {
				status = httpErr.StatusCode
			}
			http.Error(w, fmt.Sprintf("openFDA request failed: %v", err), status)
			return
		}

		results := make([]map[string]any, 0, len(result.Records))
		for _, rec := range result.Records {
			results = append(results, rec.Raw)
		}

		w.Header().Set("Content-Type", "application/json")
		if err := json.NewEncoder(w).Encode(searchResponse{
			Total:    result.TotalResults,
			Returned: result.Returned(),
			Results:  results,
		}); err != nil {
			http.Error(w, "encode response", http.StatusInternalServerError)
		}
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
