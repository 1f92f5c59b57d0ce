package classifier

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/aviralsaxena16/Campus-Companion/internal/errs"
	"github.com/aviralsaxena16/Campus-Companion/internal/model"
	"github.com/aviralsaxena16/Campus-Companion/pkg/config"
)

func newTestClient(url string) *Client {
	return NewClient(config.ClassifierConfig{
		URL:            url,
		TimeoutSeconds: 2,
		MaxAttempts:    3,
		BackoffBaseMS:  1,
	}, zap.NewNop())
}

func testBatch(n int) []model.MailItem {
	items := make([]model.MailItem, n)
	for i := range items {
		items[i] = model.MailItem{
			SourceID:  string(rune('a' + i)),
			Subject:   "subject",
			Snippet:   "body",
			Timestamp: time.Now(),
		}
	}
	return items
}

func resultsBody(results ...string) string {
	body := `{"results":[`
	for i, r := range results {
		if i > 0 {
			body += ","
		}
		body += r
	}
	return body + `]}`
}

func TestClassifySuccess(t *testing.T) {
	var gotItems int
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Items []struct {
				Subject string `json:"subject"`
				Body    string `json:"body"`
			} `json:"items"`
		}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		gotItems = len(req.Items)

		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(resultsBody(
			`{"label":"career","confidence":0.9}`,
			`{"label":"spam","confidence":0.95}`,
		)))
	}))
	defer srv.Close()

	preds, err := newTestClient(srv.URL).Classify(context.Background(), testBatch(2))
	require.NoError(t, err)
	assert.Equal(t, 2, gotItems)
	require.Len(t, preds, 2)

	assert.Equal(t, "a", preds[0].SourceID)
	assert.Equal(t, "career", preds[0].Label)
	assert.InDelta(t, 0.9, preds[0].Confidence, 1e-9)
	assert.Equal(t, "b", preds[1].SourceID)
	assert.Equal(t, "spam", preds[1].Label)
}

func TestClassifyRetriesOn5xxThenSucceeds(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) <= 2 {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		w.Write([]byte(resultsBody(`{"label":"event","confidence":0.8}`)))
	}))
	defer srv.Close()

	preds, err := newTestClient(srv.URL).Classify(context.Background(), testBatch(1))
	require.NoError(t, err)
	assert.Equal(t, int32(3), calls.Load())
	require.Len(t, preds, 1)
	assert.Equal(t, "event", preds[0].Label)
}

func TestClassifyExhaustsRetries(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	preds, err := newTestClient(srv.URL).Classify(context.Background(), testBatch(2))
	require.Error(t, err)
	assert.True(t, errs.IsTransient(err))
	assert.Nil(t, preds)
	assert.Equal(t, int32(3), calls.Load())
}

func TestClassifyNoRetryOn4xx(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusUnprocessableEntity)
	}))
	defer srv.Close()

	_, err := newTestClient(srv.URL).Classify(context.Background(), testBatch(1))
	require.Error(t, err)
	assert.False(t, errs.IsTransient(err))
	assert.Equal(t, int32(1), calls.Load(), "4xx must not be retried")
}

func TestClassifyShortResponseDefersTail(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(resultsBody(`{"label":"career","confidence":0.7}`)))
	}))
	defer srv.Close()

	preds, err := newTestClient(srv.URL).Classify(context.Background(), testBatch(3))
	require.NoError(t, err)
	require.Len(t, preds, 1)
	assert.Equal(t, "a", preds[0].SourceID)
}

func TestClassifySkipsInvalidResults(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(resultsBody(
			`{"label":"career","confidence":1.5}`,
			`{"label":"","confidence":0.9}`,
			`{"confidence":0.9}`,
			`"not an object"`,
			`{"label":"event","confidence":0.8}`,
		)))
	}))
	defer srv.Close()

	preds, err := newTestClient(srv.URL).Classify(context.Background(), testBatch(5))
	require.NoError(t, err)
	require.Len(t, preds, 1, "only the well-formed result survives")
	assert.Equal(t, "e", preds[0].SourceID)
	assert.Equal(t, "event", preds[0].Label)
}

func TestClassifyEmptyBatch(t *testing.T) {
	preds, err := newTestClient("http://unused").Classify(context.Background(), nil)
	require.NoError(t, err)
	assert.Nil(t, preds)
}

func TestClassifyNetworkErrorIsTransient(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	srv.Close() // refuse connections

	_, err := newTestClient(srv.URL).Classify(context.Background(), testBatch(1))
	require.Error(t, err)
	assert.True(t, errs.IsTransient(err))
}
