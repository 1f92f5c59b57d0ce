// Package classifier calls the external mail classification service.
//
// The wire contract is positional: request items and response results pair
// one-to-one by index. The client resolves that pairing against the stable
// source id before anything else sees the results, so downstream stages
// never match on subject strings.
package classifier

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/santhosh-tekuri/jsonschema/v6"
	"go.uber.org/zap"

	"github.com/aviralsaxena16/Campus-Companion/internal/errs"
	"github.com/aviralsaxena16/Campus-Companion/internal/model"
	"github.com/aviralsaxena16/Campus-Companion/pkg/config"
	"github.com/aviralsaxena16/Campus-Companion/pkg/logger"
	"github.com/aviralsaxena16/Campus-Companion/pkg/metrics"
)

type Client struct {
	baseURL     string
	httpClient  *http.Client
	maxAttempts int
	backoffBase time.Duration
	schema      *jsonschema.Schema
	log         *zap.Logger
}

func NewClient(cfg config.ClassifierConfig, log *zap.Logger) *Client {
	timeout := time.Duration(cfg.TimeoutSeconds) * time.Second
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	maxAttempts := cfg.MaxAttempts
	if maxAttempts <= 0 {
		maxAttempts = 3
	}
	backoffBase := time.Duration(cfg.BackoffBaseMS) * time.Millisecond
	if backoffBase <= 0 {
		backoffBase = 500 * time.Millisecond
	}

	return &Client{
		baseURL:     cfg.URL,
		httpClient:  &http.Client{Timeout: timeout},
		maxAttempts: maxAttempts,
		backoffBase: backoffBase,
		schema:      compileResultSchema(),
		log:         log,
	}
}

type requestItem struct {
	Subject string `json:"subject"`
	Body    string `json:"body"`
}

type classifyRequest struct {
	Items []requestItem `json:"items"`
}

type classifyResponse struct {
	Results []json.RawMessage `json:"results"`
}

type resultItem struct {
	Label      string  `json:"label"`
	Confidence float64 `json:"confidence"`
}

// Classify labels a batch of mail items. Results pair with the input batch
// by index; predictions carry the source id of their input item.
//
// Timeouts and 5xx responses are retried with exponential backoff. On
// exhaustion a TransientError is returned and the caller defers the whole
// batch to the next run. 4xx responses are permanent and never retried.
// A result failing schema validation is skipped (that item is deferred);
// a response shorter than the batch defers the unmatched tail.
func (c *Client) Classify(ctx context.Context, batch []model.MailItem) ([]model.Prediction, error) {
	if len(batch) == 0 {
		return nil, nil
	}

	items := make([]requestItem, len(batch))
	for i, m := range batch {
		items[i] = requestItem{Subject: m.Subject, Body: m.Snippet}
	}
	body, err := json.Marshal(classifyRequest{Items: items})
	if err != nil {
		return nil, err
	}

	log := logger.WithTrace(ctx, c.log)

	var resp classifyResponse
	var lastErr error
	for attempt := 1; attempt <= c.maxAttempts; attempt++ {
		start := time.Now()
		resp, lastErr = c.doOnce(ctx, body)
		if lastErr == nil {
			metrics.RecordClassifierCall("success", time.Since(start))
			break
		}
		metrics.RecordClassifierCall("error", time.Since(start))

		if !errs.IsTransient(lastErr) {
			return nil, lastErr
		}
		if attempt == c.maxAttempts {
			return nil, lastErr
		}

		metrics.ClassifierRetryCount.Inc()
		delay := c.backoffBase * (1 << (attempt - 1))
		log.Warn("Classifier call failed, backing off",
			zap.Int("attempt", attempt),
			zap.Duration("delay", delay),
			zap.Error(lastErr),
		)
		select {
		case <-ctx.Done():
			return nil, &errs.TransientError{Op: "classify", Err: ctx.Err()}
		case <-time.After(delay):
		}
	}

	if len(resp.Results) > len(batch) {
		log.Warn("Classifier returned more results than items, truncating",
			zap.Int("items", len(batch)),
			zap.Int("results", len(resp.Results)),
		)
		resp.Results = resp.Results[:len(batch)]
	}
	if len(resp.Results) < len(batch) {
		log.Warn("Classifier returned fewer results than items, deferring tail",
			zap.Int("items", len(batch)),
			zap.Int("results", len(resp.Results)),
		)
	}

	preds := make([]model.Prediction, 0, len(resp.Results))
	for i, raw := range resp.Results {
		if err := validateResult(c.schema, raw); err != nil {
			log.Warn("Skipping malformed classifier result",
				zap.String("source_id", batch[i].SourceID),
				zap.Error(&errs.ValidationError{Field: fmt.Sprintf("results[%d]", i), Reason: err.Error()}),
			)
			continue
		}

		var r resultItem
		if err := json.Unmarshal(raw, &r); err != nil {
			log.Warn("Skipping undecodable classifier result",
				zap.String("source_id", batch[i].SourceID),
				zap.Error(err),
			)
			continue
		}

		preds = append(preds, model.Prediction{
			SourceID:   batch[i].SourceID,
			Label:      r.Label,
			Confidence: r.Confidence,
		})
	}

	return preds, nil
}

func (c *Client) doOnce(ctx context.Context, body []byte) (classifyResponse, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/classify", bytes.NewReader(body))
	if err != nil {
		return classifyResponse{}, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return classifyResponse{}, &errs.TransientError{Op: "classify", Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 500 {
		return classifyResponse{}, &errs.TransientError{
			Op:  "classify",
			Err: fmt.Errorf("classifier service 5xx: %d", resp.StatusCode),
		}
	}
	if resp.StatusCode != http.StatusOK {
		return classifyResponse{}, fmt.Errorf("classifier service error: %d", resp.StatusCode)
	}

	var out classifyResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return classifyResponse{}, fmt.Errorf("classifier response decode failed: %w", err)
	}
	return out, nil
}
