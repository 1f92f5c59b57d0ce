package fetcher

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"golang.org/x/oauth2"
	gmail "google.golang.org/api/gmail/v1"
	"google.golang.org/api/googleapi"

	"github.com/aviralsaxena16/Campus-Companion/internal/errs"
	"github.com/aviralsaxena16/Campus-Companion/internal/model"
	"github.com/aviralsaxena16/Campus-Companion/pkg/config"
)

func TestFetchRejectsUserWithoutCredentials(t *testing.T) {
	f := NewGmailFetcher(config.GoogleConfig{ClientID: "id", ClientSecret: "secret"}, zap.NewNop())

	_, err := f.Fetch(context.Background(), &model.User{ID: 1, Email: "u@example.com"})
	require.Error(t, err)
	assert.True(t, errs.IsAuth(err))
}

func TestToMailItem(t *testing.T) {
	msg := &gmail.Message{
		Id:           "abc123",
		Snippet:      "Deadline extended to Monday",
		InternalDate: 1700000000000,
		Payload: &gmail.MessagePart{
			Headers: []*gmail.MessagePartHeader{
				{Name: "From", Value: "registrar@uni.edu"},
				{Name: "Subject", Value: "Registration deadline"},
			},
		},
	}

	item, ok := toMailItem(msg)
	require.True(t, ok)
	assert.Equal(t, "abc123", item.SourceID)
	assert.Equal(t, "Registration deadline", item.Subject)
	assert.Equal(t, "Deadline extended to Monday", item.Snippet)
	assert.Equal(t, time.UnixMilli(1700000000000), item.Timestamp)
}

func TestToMailItemRejectsMissingID(t *testing.T) {
	_, ok := toMailItem(nil)
	assert.False(t, ok)

	_, ok = toMailItem(&gmail.Message{Snippet: "no id"})
	assert.False(t, ok)
}

func TestToMailItemWithoutSubjectHeader(t *testing.T) {
	item, ok := toMailItem(&gmail.Message{Id: "x", Snippet: "body"})
	require.True(t, ok)
	assert.Empty(t, item.Subject)
	assert.Equal(t, "x", item.SourceID)
}

type timeoutNetError struct{}

func (timeoutNetError) Error() string   { return "i/o timeout" }
func (timeoutNetError) Timeout() bool   { return true }
func (timeoutNetError) Temporary() bool { return true }

func TestClassifyGmailError(t *testing.T) {
	tests := []struct {
		name      string
		err       error
		wantAuth  bool
		wantTrans bool
	}{
		{name: "401 is auth", err: &googleapi.Error{Code: 401}, wantAuth: true},
		{name: "403 is auth", err: &googleapi.Error{Code: 403}, wantAuth: true},
		{name: "500 is transient", err: &googleapi.Error{Code: 500}, wantTrans: true},
		{name: "503 is transient", err: &googleapi.Error{Code: 503}, wantTrans: true},
		{name: "404 is permanent", err: &googleapi.Error{Code: 404}},
		{name: "network timeout is transient", err: timeoutNetError{}, wantTrans: true},
		{name: "deadline is transient", err: context.DeadlineExceeded, wantTrans: true},
		{name: "refresh rejection is auth", err: &oauth2.RetrieveError{ErrorCode: "invalid_grant"}, wantAuth: true},
		{name: "unknown is transient", err: errors.New("connection reset"), wantTrans: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := classifyGmailError(tt.err)
			assert.Equal(t, tt.wantAuth, errs.IsAuth(got))
			assert.Equal(t, tt.wantTrans, errs.IsTransient(got))
		})
	}
}
