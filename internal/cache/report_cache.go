package cache

import (
	"context"
	"crypto/sha1"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/andresuchdata/vendormetrics/internal/config"
	"github.com/andresuchdata/vendormetrics/internal/domain"
	"github.com/redis/go-redis/v9"
)

const (
	reportKeyPrefix  = "brand_metrics:report"
	summaryKeyPrefix = "brand_metrics:summary"
	scanBatchSize    = 100
)

// ReportCache caches read-side report queries. Runs are immutable until the
// same period is recomputed, so entries are invalidated per run.
type ReportCache interface {
	GetReport(ctx context.Context, filter domain.ReportFilter) ([]domain.BrandMetrics, bool, error)
	SetReport(ctx context.Context, filter domain.ReportFilter, metrics []domain.BrandMetrics) error
	GetSummaries(ctx context.Context, runID int64) ([]domain.PartitionSummary, bool, error)
	SetSummaries(ctx context.Context, runID int64, summaries []domain.PartitionSummary) error
	InvalidateRun(ctx context.Context, runID int64) error
	InvalidateAll(ctx context.Context) error
}

type redisReportCache struct {
	client *redis.Client
	ttl    time.Duration
}

type noopReportCache struct{}

func NewReportCache(cfg config.CacheConfig) (ReportCache, error) {
	if !cfg.Enabled {
		return &noopReportCache{}, nil
	}

	client, ttl, err := newRedisClient(cfg)
	if err != nil {
		return nil, err
	}

	return &redisReportCache{
		client: client,
		ttl:    ttl,
	}, nil
}

func NewNoopReportCache() ReportCache {
	return &noopReportCache{}
}

func (c *redisReportCache) GetReport(ctx context.Context, filter domain.ReportFilter) ([]domain.BrandMetrics, bool, error) {
	key := buildReportKey(filter)

	payload, err := c.client.Get(ctx, key).Bytes()
	if err == redis.Nil {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("redis get failed: %w", err)
	}

	var metrics []domain.BrandMetrics
	if err := json.Unmarshal(payload, &metrics); err != nil {
		return nil, false, fmt.Errorf("decode brand metrics cache: %w", err)
	}

	return metrics, true, nil
}

func (c *redisReportCache) SetReport(ctx context.Context, filter domain.ReportFilter, metrics []domain.BrandMetrics) error {
	key := buildReportKey(filter)
	payload, err := json.Marshal(metrics)
	if err != nil {
		return fmt.Errorf("encode brand metrics cache: %w", err)
	}

	if err := c.client.Set(ctx, key, payload, c.ttl).Err(); err != nil {
		return fmt.Errorf("redis set failed: %w", err)
	}
	return nil
}

func (c *redisReportCache) GetSummaries(ctx context.Context, runID int64) ([]domain.PartitionSummary, bool, error) {
	key := fmt.Sprintf("%s:%d", summaryKeyPrefix, runID)

	payload, err := c.client.Get(ctx, key).Bytes()
	if err == redis.Nil {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("redis get failed: %w", err)
	}

	var summaries []domain.PartitionSummary
	if err := json.Unmarshal(payload, &summaries); err != nil {
		return nil, false, fmt.Errorf("decode partition summary cache: %w", err)
	}

	return summaries, true, nil
}

func (c *redisReportCache) SetSummaries(ctx context.Context, runID int64, summaries []domain.PartitionSummary) error {
	key := fmt.Sprintf("%s:%d", summaryKeyPrefix, runID)
	payload, err := json.Marshal(summaries)
	if err != nil {
		return fmt.Errorf("encode partition summary cache: %w", err)
	}

	if err := c.client.Set(ctx, key, payload, c.ttl).Err(); err != nil {
		return fmt.Errorf("redis set failed: %w", err)
	}
	return nil
}

// InvalidateRun drops all cached entries for one run; called when a period
// is recomputed.
func (c *redisReportCache) InvalidateRun(ctx context.Context, runID int64) error {
	if err := deleteKeysWithPrefix(ctx, c.client, fmt.Sprintf("%s:%d", reportKeyPrefix, runID), scanBatchSize); err != nil {
		return err
	}
	return c.client.Del(ctx, fmt.Sprintf("%s:%d", summaryKeyPrefix, runID)).Err()
}

func (c *redisReportCache) InvalidateAll(ctx context.Context) error {
	if err := deleteKeysWithPrefix(ctx, c.client, reportKeyPrefix, scanBatchSize); err != nil {
		return err
	}
	return deleteKeysWithPrefix(ctx, c.client, summaryKeyPrefix, scanBatchSize)
}

func (n *noopReportCache) GetReport(ctx context.Context, filter domain.ReportFilter) ([]domain.BrandMetrics, bool, error) {
	return nil, false, nil
}

func (n *noopReportCache) SetReport(ctx context.Context, filter domain.ReportFilter, metrics []domain.BrandMetrics) error {
	return nil
}

func (n *noopReportCache) GetSummaries(ctx context.Context, runID int64) ([]domain.PartitionSummary, bool, error) {
	return nil, false, nil
}

func (n *noopReportCache) SetSummaries(ctx context.Context, runID int64, summaries []domain.PartitionSummary) error {
	return nil
}

func (n *noopReportCache) InvalidateRun(ctx context.Context, runID int64) error {
	return nil
}

func (n *noopReportCache) InvalidateAll(ctx context.Context) error {
	return nil
}

func buildReportKey(filter domain.ReportFilter) string {
	return fmt.Sprintf("%s:%d:%s", reportKeyPrefix, filter.RunID, reportFilterHash(filter))
}

func reportFilterHash(filter domain.ReportFilter) string {
	parts := []string{}

	if filter.Partition != "" {
		parts = append(parts, "partition="+strings.ToLower(strings.TrimSpace(filter.Partition)))
	}
	if len(filter.BrandIDs) > 0 {
		parts = append(parts, "brand_ids="+joinStrings(filter.BrandIDs))
	}

	if len(parts) == 0 {
		return "default"
	}

	sort.Strings(parts)
	raw := strings.Join(parts, "|")
	sum := sha1.Sum([]byte(raw))
	return hex.EncodeToString(sum[:])
}

func joinStrings(values []string) string {
	c := append([]string(nil), values...)
	for i := range c {
		c[i] = strings.TrimSpace(strings.ToLower(c[i]))
	}
	sort.Strings(c)
	return strings.Join(c, ",")
}
