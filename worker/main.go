package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/segmentio/kafka-go"

	"github.com/DeafMist/news-verifier/internal/config"
	"github.com/DeafMist/news-verifier/internal/credibility"
	"github.com/DeafMist/news-verifier/internal/dedupe"
	"github.com/DeafMist/news-verifier/internal/elasticsearch"
	"github.com/DeafMist/news-verifier/internal/logger"
	"github.com/DeafMist/news-verifier/internal/models"
	"github.com/DeafMist/news-verifier/internal/processing"
	"github.com/DeafMist/news-verifier/internal/trust"
)

// rawNews accepts both the collector's NewsItem payload and the older
// title/text/timestamp/source shape.
type rawNews struct {
	ID          string `json:"id"`
	Title       string `json:"title"`
	Summary     string `json:"summary"`
	Text        string `json:"text"`
	SourceID    string `json:"source_id"`
	Source      string `json:"source"`
	Link        string `json:"link"`
	PublishedAt string `json:"published_at"`
	Timestamp   string `json:"timestamp"`
	Language    string `json:"language"`
}

type newsIndexer interface {
	IndexBatch(ctx context.Context, docs []models.NewsDocument) error
}

type verifier interface {
	Verify(ctx context.Context, items []models.NewsItem) ([]models.VerifiedItem, error)
}

type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
}

type pipeline struct {
	log     *slog.Logger
	indexer newsIndexer
	engine  verifier
	cache   *dedupe.Cache[struct{}]
	cfg     *config.Worker
}

func main() {
	log := logger.New("worker")
	cfg, err := config.LoadWorker()
	if err != nil {
		log.Error("load config", slog.Any("err", err))
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
	defer stop()

	esClient, err := elasticsearch.New(cfg.ElasticsearchAddr, cfg.ElasticsearchIndex, log)
	if err != nil {
		log.Error("init elasticsearch", slog.Any("err", err))
		os.Exit(1)
	}
	if err := esClient.EnsureIndex(ctx); err != nil {
		log.Error("ensure index", slog.Any("err", err))
		os.Exit(1)
	}

	registry, closeRegistry, err := trust.Build(ctx, cfg.TrustOptions())
	if err != nil {
		log.Error("init trust registry", slog.Any("err", err))
		os.Exit(1)
	}
	defer closeRegistry()

	engine, err := credibility.New(cfg.EngineConfig(), registry, log)
	if err != nil {
		log.Error("init credibility engine", slog.Any("err", err))
		os.Exit(1)
	}

	p := &pipeline{
		log:     log,
		indexer: esClient,
		engine:  engine,
		cache:   dedupe.NewCache[struct{}](cfg.DedupeCapacity, cfg.DedupeTTL),
		cfg:     cfg,
	}

	reader := kafka.NewReader(kafka.ReaderConfig{
		Brokers:        cfg.KafkaBrokers,
		Topic:          cfg.KafkaTopic,
		GroupID:        cfg.KafkaConsumer,
		QueueCapacity:  cfg.BatchSize,
		MinBytes:       1e3,
		MaxBytes:       10e6,
		CommitInterval: 0, // Disable auto-commit; manual commit only
	})
	defer reader.Close()

	dlqWriter := kafka.NewWriter(kafka.WriterConfig{
		Brokers:     cfg.KafkaBrokers,
		Topic:       cfg.KafkaTopic + "_dlq",
		MaxAttempts: 3,
	})
	defer dlqWriter.Close()

	log.Info("worker started",
		slog.String("topic", cfg.KafkaTopic),
		slog.String("group", cfg.KafkaConsumer),
		slog.String("dlq_topic", cfg.KafkaTopic+"_dlq"),
		slog.Int("batch_size", cfg.BatchSize),
		slog.Duration("batch_wait", cfg.BatchWait),
	)

	for {
		msgs, err := fetchBatch(ctx, reader, cfg.BatchSize, cfg.BatchWait)
		if len(msgs) > 0 {
			p.handleBatch(ctx, reader, dlqWriter, msgs)
		}
		if err != nil {
			if errors.Is(err, context.Canceled) {
				log.Info("context canceled, stopping")
				return
			}
			log.Error("fetch message", slog.Any("err", err))
		}
	}
}

// fetchBatch collects up to size messages, returning early once wait has
// elapsed since the first message arrived.
func fetchBatch(ctx context.Context, reader *kafka.Reader, size int, wait time.Duration) ([]kafka.Message, error) {
	msgs := make([]kafka.Message, 0, size)

	first, err := reader.FetchMessage(ctx)
	if err != nil {
		return nil, err
	}
	msgs = append(msgs, first)

	batchCtx, cancel := context.WithTimeout(ctx, wait)
	defer cancel()

	for len(msgs) < size {
		msg, err := reader.FetchMessage(batchCtx)
		if err != nil {
			if errors.Is(err, context.DeadlineExceeded) {
				return msgs, nil
			}
			return msgs, err
		}
		msgs = append(msgs, msg)
	}
	return msgs, nil
}

func (p *pipeline) handleBatch(ctx context.Context, reader *kafka.Reader, dlq messageWriter, msgs []kafka.Message) {
	batchID := uuid.NewString()
	log := p.log.With(slog.String("batch_id", batchID))

	items := make([]models.NewsItem, 0, len(msgs))
	valid := make([]kafka.Message, 0, len(msgs))
	commit := make([]kafka.Message, 0, len(msgs))

	for _, msg := range msgs {
		item, err := decodeMessage(msg.Value)
		if err != nil {
			log.Warn("invalid message, sending to DLQ",
				slog.Any("err", err),
				slog.Int("partition", msg.Partition),
				slog.Int64("offset", msg.Offset),
			)
			if sendToDLQ(ctx, log, dlq, msg, err) {
				commit = append(commit, msg)
			}
			continue
		}
		items = append(items, item)
		valid = append(valid, msg)
	}

	indexed, err := p.processBatch(ctx, items)
	if err != nil {
		log.Warn("process batch failed, sending to DLQ", slog.Any("err", err), slog.Int("items", len(items)))
		for _, msg := range valid {
			if sendToDLQ(ctx, log, dlq, msg, err) {
				commit = append(commit, msg)
			}
		}
	} else {
		commit = append(commit, valid...)
	}

	if len(commit) > 0 {
		if err := reader.CommitMessages(ctx, commit...); err != nil {
			log.Error("commit messages", slog.Any("err", err))
		}
	}

	log.Info("batch processed",
		slog.Int("messages", len(msgs)),
		slog.Int("indexed", indexed),
		slog.Int("committed", len(commit)),
	)
}

// processBatch verifies the unseen items together and indexes the results.
func (p *pipeline) processBatch(ctx context.Context, items []models.NewsItem) (int, error) {
	fresh := make([]models.NewsItem, 0, len(items))
	inBatch := make(map[string]struct{}, len(items))
	for _, item := range items {
		if _, dup := inBatch[item.ID]; dup || p.cache.IsSeen(item.ID) {
			p.log.Debug("duplicate news", slog.String("id", item.ID))
			continue
		}
		inBatch[item.ID] = struct{}{}
		fresh = append(fresh, item)
	}
	if len(fresh) == 0 {
		return 0, nil
	}

	verified, err := p.engine.Verify(ctx, fresh)
	if err != nil {
		return 0, fmt.Errorf("verify: %w", err)
	}

	docs := make([]models.NewsDocument, 0, len(verified))
	for _, v := range verified {
		docs = append(docs, toDocument(v, p.cfg.KeywordLimit, p.cfg.KeywordMinLength))
	}

	if err := p.indexer.IndexBatch(ctx, docs); err != nil {
		return 0, fmt.Errorf("index: %w", err)
	}

	for _, d := range docs {
		p.cache.MarkSeen(d.ID)
		p.log.Debug("indexed news",
			slog.String("id", d.ID),
			slog.Int("credibility", d.Credibility),
			slog.Bool("confident", d.Confident),
		)
	}
	return len(docs), nil
}

// decodeMessage parses and validates one payload and assigns its document ID.
func decodeMessage(value []byte) (models.NewsItem, error) {
	var payload rawNews
	if err := json.Unmarshal(value, &payload); err != nil {
		return models.NewsItem{}, err
	}

	summary := strings.TrimSpace(firstNonEmpty(payload.Summary, payload.Text))
	item := models.NewsItem{
		ID:          strings.TrimSpace(payload.ID),
		Title:       strings.TrimSpace(payload.Title),
		Summary:     summary,
		SourceID:    strings.TrimSpace(firstNonEmpty(payload.SourceID, payload.Source)),
		Link:        strings.TrimSpace(payload.Link),
		PublishedAt: strings.TrimSpace(firstNonEmpty(payload.PublishedAt, payload.Timestamp)),
		Language:    strings.TrimSpace(payload.Language),
	}

	if item.Title == "" && item.Summary == "" {
		return models.NewsItem{}, errors.New("empty payload")
	}
	if item.SourceID == "" {
		return models.NewsItem{}, errors.New("missing source")
	}

	// Generate title from text if missing
	if item.Title == "" {
		item.Title = processing.GenerateTitleFromText(item.Summary, 10)
		if item.Title == "" {
			return models.NewsItem{}, errors.New("cannot derive title")
		}
	}

	if item.ID == "" {
		published, _ := item.Published()
		item.ID = processing.BuildDocumentID(item.SourceID, item.Title, processing.CleanText(item.Summary), published)
	}
	return item, nil
}

func toDocument(v models.VerifiedItem, keywordLimit, keywordMinLen int) models.NewsDocument {
	ts, ok := v.Published()
	if !ok {
		ts = time.Now().UTC()
	}

	urls := processing.ExtractURLs(v.Summary)
	if v.Link != "" {
		urls = append([]string{v.Link}, urls...)
	}

	cleaned := processing.CleanText(v.Summary)
	return models.NewsDocument{
		ID:                  v.ID,
		Title:               v.Title,
		Text:                v.Summary, // Original text with all punctuation and URLs
		Timestamp:           ts,
		Keywords:            processing.TopKeywords(v.Title+" "+cleaned, v.Language, keywordLimit, keywordMinLen),
		Source:              v.SourceID,
		URLs:                urls,
		Language:            v.Language,
		Credibility:         v.Credibility,
		CredibilityOriginal: v.CredibilityOriginal,
		Confident:           v.Confident,
		Reasons:             v.CredibilityReasons,
		CrossReference:      v.CrossReference,
	}
}

// sendToDLQ writes msg to the dead letter topic with error context, retrying
// with exponential backoff. It reports whether the write succeeded.
func sendToDLQ(ctx context.Context, log *slog.Logger, w messageWriter, msg kafka.Message, cause error) bool {
	headers := make([]kafka.Header, 0, len(msg.Headers)+4)
	headers = append(headers, msg.Headers...)
	dlqMsg := kafka.Message{
		Key:   msg.Key,
		Value: msg.Value,
		Headers: append(headers,
			kafka.Header{Key: "original_partition", Value: []byte(fmt.Sprintf("%d", msg.Partition))},
			kafka.Header{Key: "original_offset", Value: []byte(fmt.Sprintf("%d", msg.Offset))},
			kafka.Header{Key: "error", Value: []byte(cause.Error())},
			kafka.Header{Key: "timestamp", Value: []byte(time.Now().UTC().Format(time.RFC3339))},
		),
	}

	for attempt := range 5 {
		dlqErr := w.WriteMessages(ctx, dlqMsg)
		if dlqErr == nil {
			log.Info("message sent to DLQ",
				slog.Int("partition", msg.Partition),
				slog.Int64("offset", msg.Offset),
				slog.Int("attempt", attempt+1),
			)
			return true
		}

		backoff := time.Duration(1<<uint(attempt)) * dlqBackoffUnit
		log.Warn("DLQ write failed, retrying",
			slog.Any("err", dlqErr),
			slog.Int("attempt", attempt+1),
			slog.Duration("backoff", backoff),
		)
		select {
		case <-time.After(backoff):
		case <-ctx.Done():
			log.Info("context canceled during DLQ retry")
			return false
		}
	}

	// Not committing keeps the message for redelivery after a restart.
	log.Error("DLQ write exhausted retries",
		slog.Int("partition", msg.Partition),
		slog.Int64("offset", msg.Offset),
	)
	return false
}

// dlqBackoffUnit is the first DLQ retry delay.
var dlqBackoffUnit = time.Second

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}
