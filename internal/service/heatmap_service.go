package service

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/goccy/go-json"

	"github.com/jengzang/hexmap-backend-go/internal/cache"
	"github.com/jengzang/hexmap-backend-go/internal/hexagg"
	"github.com/jengzang/hexmap-backend-go/internal/loader"
	"github.com/jengzang/hexmap-backend-go/internal/logging"
	"github.com/jengzang/hexmap-backend-go/internal/metrics"
	"github.com/jengzang/hexmap-backend-go/internal/models"
)

// HeatmapResult is a serialized heatmap ready to be written to a client
type HeatmapResult struct {
	Body     []byte
	CacheHit bool
}

// HeatmapService handles business logic for hex heatmaps
type HeatmapService struct {
	loader  loader.Loader
	cache   *cache.Cache
	metrics *metrics.Metrics
}

// NewHeatmapService creates a new heatmap service. m may be nil.
func NewHeatmapService(l loader.Loader, c *cache.Cache, m *metrics.Metrics) *HeatmapService {
	return &HeatmapService{loader: l, cache: c, metrics: m}
}

// GetHeatmap returns the serialized buckets for column at resolution,
// serving from the cache when a live entry exists.
func (s *HeatmapService) GetHeatmap(ctx context.Context, column models.ValueColumn, resolution int) (*HeatmapResult, error) {
	if err := hexagg.ValidateResolution(resolution); err != nil {
		return nil, err
	}

	// The computation may be shared with other waiters, so it must not
	// be cut short by this caller going away.
	loadCtx := context.WithoutCancel(ctx)

	key := cache.Key{Column: column, Resolution: resolution}
	body, hit, err := s.cache.GetOrLoad(key, func() ([]byte, error) {
		return s.compute(loadCtx, column, resolution)
	})
	if err != nil {
		return nil, err
	}
	if hit {
		logging.Debug().Str("key", key.Label()).Msg("heatmap cache hit")
	}

	return &HeatmapResult{Body: body, CacheHit: hit}, nil
}

func (s *HeatmapService) compute(ctx context.Context, column models.ValueColumn, resolution int) ([]byte, error) {
	start := time.Now()

	records, err := s.loader.Load(ctx)
	if err != nil {
		if s.metrics != nil {
			s.metrics.LoadErrors.Inc()
		}
		return nil, fmt.Errorf("failed to load records: %w", err)
	}

	buckets, err := hexagg.Aggregate(records, column, resolution)
	if err != nil {
		return nil, fmt.Errorf("failed to aggregate records: %w", err)
	}

	// Stable order keeps cached bodies byte-identical across recomputations
	sort.Slice(buckets, func(i, j int) bool {
		return buckets[i].H3ID < buckets[j].H3ID
	})

	body, err := json.Marshal(buckets)
	if err != nil {
		return nil, fmt.Errorf("failed to encode heatmap: %w", err)
	}

	elapsed := time.Since(start)
	if s.metrics != nil {
		s.metrics.RecordsLoaded.Set(float64(len(records)))
		s.metrics.ObserveAggregation(column.String(), elapsed)
	}
	logging.Info().
		Str("col_name", column.String()).
		Int("resolution", resolution).
		Int("records", len(records)).
		Int("cells", len(buckets)).
		Dur("elapsed", elapsed).
		Msg("heatmap computed")

	return body, nil
}

// CacheInfo reports the state of the response cache
func (s *HeatmapService) CacheInfo() models.CacheInfo {
	return s.cache.Info()
}

// ClearCache removes every cached response
func (s *HeatmapService) ClearCache() {
	s.cache.Clear()
	logging.Info().Msg("heatmap cache cleared")
}
