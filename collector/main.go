package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/segmentio/kafka-go"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"github.com/DeafMist/news-verifier/internal/config"
	"github.com/DeafMist/news-verifier/internal/dedupe"
	"github.com/DeafMist/news-verifier/internal/feeds"
	"github.com/DeafMist/news-verifier/internal/logger"
	"github.com/DeafMist/news-verifier/internal/models"
)

// published links are remembered for a day to avoid re-sending unchanged feed entries.
const (
	seenCapacity = 50_000
	seenTTL      = 24 * time.Hour
)

type feedFetcher interface {
	Fetch(ctx context.Context, sourceID, url string) ([]models.NewsItem, error)
}

type publisher interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
}

type collector struct {
	log         *slog.Logger
	feeds       []config.Feed
	fetcher     feedFetcher
	pub         publisher
	limiter     *rate.Limiter
	concurrency int
	seen        *dedupe.Cache[struct{}]
}

func main() {
	log := logger.New("collector")
	cfg, err := config.LoadCollector()
	if err != nil {
		log.Error("load config", slog.Any("err", err))
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
	defer stop()

	writer := kafka.NewWriter(kafka.WriterConfig{
		Brokers:     cfg.KafkaBrokers,
		Topic:       cfg.KafkaTopic,
		Balancer:    &kafka.Hash{},
		MaxAttempts: 3,
	})
	defer writer.Close()

	c := &collector{
		log:         log,
		feeds:       cfg.Feeds,
		fetcher:     feeds.NewReader(cfg.FetchTimeout, cfg.UserAgent),
		pub:         writer,
		limiter:     rate.NewLimiter(rate.Limit(cfg.RequestsPerSecond), cfg.Burst),
		concurrency: cfg.Concurrency,
		seen:        dedupe.NewCache[struct{}](seenCapacity, seenTTL),
	}

	scheduler := cron.New(cron.WithChain(cron.SkipIfStillRunning(cron.DiscardLogger)))
	if _, err := scheduler.AddFunc(cfg.Schedule, func() { c.run(ctx) }); err != nil {
		log.Error("invalid schedule", slog.String("schedule", cfg.Schedule), slog.Any("err", err))
		os.Exit(1)
	}

	log.Info("collector started",
		slog.Int("feeds", len(cfg.Feeds)),
		slog.String("topic", cfg.KafkaTopic),
		slog.String("schedule", cfg.Schedule),
		slog.Float64("rps", cfg.RequestsPerSecond),
	)

	c.run(ctx)
	scheduler.Start()

	<-ctx.Done()
	log.Info("shutdown signal received")
	<-scheduler.Stop().Done()
}

func (c *collector) run(ctx context.Context) {
	start := time.Now()
	published, err := c.poll(ctx)
	if err != nil {
		c.log.Warn("poll failed (will retry on next run)", slog.Any("err", err))
		return
	}
	c.log.Info("poll completed",
		slog.Int64("published", published),
		slog.Duration("took", time.Since(start)),
	)
}

// poll fetches every feed once and publishes entries not seen before.
// A failing feed is logged and skipped; a failing publish aborts the run.
func (c *collector) poll(ctx context.Context) (int64, error) {
	var published atomic.Int64

	g, gctx := errgroup.WithContext(ctx)
	if c.concurrency > 0 {
		g.SetLimit(c.concurrency)
	}

	for _, feed := range c.feeds {
		g.Go(func() error {
			if err := c.limiter.Wait(gctx); err != nil {
				return err
			}

			items, err := c.fetcher.Fetch(gctx, feed.SourceID, feed.URL)
			if err != nil {
				c.log.Warn("fetch feed",
					slog.String("source", feed.SourceID),
					slog.String("url", feed.URL),
					slog.Any("err", err),
				)
				return nil
			}

			msgs, keys, err := c.messages(items)
			if err != nil {
				return err
			}
			if len(msgs) == 0 {
				return nil
			}

			if err := c.pub.WriteMessages(gctx, msgs...); err != nil {
				return fmt.Errorf("publish %s: %w", feed.SourceID, err)
			}
			for _, key := range keys {
				c.seen.MarkSeen(key)
			}
			published.Add(int64(len(msgs)))

			c.log.Debug("feed published",
				slog.String("source", feed.SourceID),
				slog.Int("fetched", len(items)),
				slog.Int("published", len(msgs)),
			)
			return nil
		})
	}

	err := g.Wait()
	return published.Load(), err
}

func (c *collector) messages(items []models.NewsItem) ([]kafka.Message, []string, error) {
	msgs := make([]kafka.Message, 0, len(items))
	keys := make([]string, 0, len(items))
	for _, item := range items {
		key := item.Link
		if key == "" {
			key = item.SourceID + "|" + item.Title
		}
		if c.seen.IsSeen(key) {
			continue
		}

		payload, err := json.Marshal(item)
		if err != nil {
			return nil, nil, fmt.Errorf("marshal item: %w", err)
		}
		msgs = append(msgs, kafka.Message{Key: []byte(key), Value: payload})
		keys = append(keys, key)
	}
	return msgs, keys, nil
}
