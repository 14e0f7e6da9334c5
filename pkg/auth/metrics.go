package auth

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// TokenLookups tracks token store lookups by result
	TokenLookups = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "aiod_token_store_lookups_total",
			Help: "Total token store lookups by result",
		},
		[]string{"result"}, // "hit", "miss"
	)

	// TokenStoreErrors tracks token store operation errors
	TokenStoreErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "aiod_token_store_errors_total",
			Help: "Total number of token store operation errors",
		},
		[]string{"operation"}, // "get", "set", "delete"
	)
)
