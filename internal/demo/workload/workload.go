package workload

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"
)

// Service replays generated analytical queries against a running gateway at a
// fixed interval. Failures are logged and the loop keeps going; a demo load
// generator has no business taking itself down over one bad response.
type Service struct {
	cfg       Config
	log       *slog.Logger
	http      *http.Client
	generator *Generator
}

type queryRequest struct {
	Dataset string `json:"dataset"`
	Query   string `json:"query"`
}

func NewService(cfg Config, logger *slog.Logger, client *http.Client) (*Service, error) {
	if strings.TrimSpace(cfg.APIBaseURL) == "" {
		return nil, fmt.Errorf("api base url is required")
	}
	if strings.TrimSpace(cfg.Dataset) == "" {
		return nil, fmt.Errorf("dataset is required")
	}

	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	if client == nil {
		client = &http.Client{Timeout: cfg.HTTPTimeout}
	}

	return &Service{
		cfg:       cfg,
		log:       logger,
		http:      client,
		generator: NewGenerator(cfg.Seed),
	}, nil
}

func (s *Service) Run(ctx context.Context) error {
	ticker := time.NewTicker(s.cfg.Interval)
	defer ticker.Stop()

	for {
		if err := s.QueryOnce(ctx); err != nil {
			s.log.Error("demo query failed", slog.Any("error", err))
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

func (s *Service) QueryOnce(ctx context.Context) error {
	queryText := s.generator.NextQuery("Sales")

	payload, err := json.Marshal(queryRequest{Dataset: s.cfg.Dataset, Query: queryText})
	if err != nil {
		return fmt.Errorf("marshal request body: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.cfg.APIBaseURL+"/query", bytes.NewReader(payload))
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.http.Do(req)
	if err != nil {
		return err
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return err
	}
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("query status %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}

	var rows []json.RawMessage
	if err := json.Unmarshal(body, &rows); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}

	s.log.Info("demo query completed",
		slog.String("dataset", s.cfg.Dataset),
		slog.String("query", queryText),
		slog.Int("row_count", len(rows)),
	)
	return nil
}
