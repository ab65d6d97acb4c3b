// Package metrics defines the Prometheus collectors shared across the bot.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// CacheHits counts cache hits per pool.
	CacheHits = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "bot_cache_hits_total",
		Help: "Number of cache hits, labeled by pool.",
	}, []string{"pool"})

	// CacheMisses counts cache misses per pool.
	CacheMisses = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "bot_cache_misses_total",
		Help: "Number of cache misses, labeled by pool.",
	}, []string{"pool"})

	// ContentFetches counts Ghost Content API requests by resource and outcome.
	ContentFetches = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "bot_content_fetches_total",
		Help: "Number of Ghost Content API requests, labeled by resource and result.",
	}, []string{"resource", "result"})

	// IndexBuilds counts search index rebuilds.
	IndexBuilds = promauto.NewCounter(prometheus.CounterOpts{
		Name: "bot_search_index_builds_total",
		Help: "Number of search index rebuilds.",
	})

	// IndexDocuments reports the size of the current search index.
	IndexDocuments = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "bot_search_index_documents",
		Help: "Number of documents in the current search index.",
	})

	// SearchQueries counts search queries answered.
	SearchQueries = promauto.NewCounter(prometheus.CounterOpts{
		Name: "bot_search_queries_total",
		Help: "Number of search queries answered.",
	})

	// AnnouncerCycles counts announcer check cycles by outcome.
	AnnouncerCycles = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "bot_announcer_cycles_total",
		Help: "Number of announcer check cycles, labeled by result.",
	}, []string{"result"})

	// PostsAnnounced counts posts successfully delivered to Discord.
	PostsAnnounced = promauto.NewCounter(prometheus.CounterOpts{
		Name: "bot_posts_announced_total",
		Help: "Number of posts successfully announced to Discord.",
	})
)
