package fetcher

import (
	"context"
	"errors"
	"fmt"
	"net"
	"time"

	"go.uber.org/zap"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	gmail "google.golang.org/api/gmail/v1"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"

	"github.com/aviralsaxena16/Campus-Companion/internal/errs"
	"github.com/aviralsaxena16/Campus-Companion/internal/model"
	"github.com/aviralsaxena16/Campus-Companion/pkg/config"
	"github.com/aviralsaxena16/Campus-Companion/pkg/logger"
)

const (
	// gmailQuery limits a scan to recent inbox mail; older mail has either
	// been seen by a previous run or is not worth surfacing anymore.
	gmailQuery      = "in:inbox newer_than:2d"
	maxResults      = 50
	fetchRetries    = 2
	fetchRetryDelay = 2 * time.Second
)

// GmailFetcher fetches recent inbox messages through the Gmail API using
// the user's stored OAuth tokens.
type GmailFetcher struct {
	clientID     string
	clientSecret string
	log          *zap.Logger
}

func NewGmailFetcher(cfg config.GoogleConfig, log *zap.Logger) *GmailFetcher {
	return &GmailFetcher{
		clientID:     cfg.ClientID,
		clientSecret: cfg.ClientSecret,
		log:          log,
	}
}

func (f *GmailFetcher) service(ctx context.Context, user *model.User) (*gmail.Service, error) {
	if !user.HasGoogleCredentials() {
		return nil, &errs.AuthError{Reason: "user has not connected a Google account"}
	}

	token := &oauth2.Token{
		AccessToken:  user.GoogleAccessToken,
		RefreshToken: user.GoogleRefreshToken,
		TokenType:    "Bearer",
	}
	// Force a refresh when we hold a refresh token, so a stale access
	// token does not surface as a permanent auth failure.
	if user.GoogleRefreshToken != "" {
		token.Expiry = time.Now()
	}

	oauthCfg := &oauth2.Config{
		ClientID:     f.clientID,
		ClientSecret: f.clientSecret,
		Endpoint:     google.Endpoint,
	}

	client := oauth2.NewClient(ctx, oauthCfg.TokenSource(ctx, token))
	srv, err := gmail.NewService(ctx, option.WithHTTPClient(client))
	if err != nil {
		return nil, fmt.Errorf("unable to create Gmail service: %w", err)
	}
	return srv, nil
}

// Fetch lists recent inbox messages and converts them to MailItems.
// Individually malformed messages are skipped, not fatal.
func (f *GmailFetcher) Fetch(ctx context.Context, user *model.User) ([]model.MailItem, error) {
	srv, err := f.service(ctx, user)
	if err != nil {
		return nil, err
	}

	log := logger.WithTrace(ctx, f.log)

	var listResp *gmail.ListMessagesResponse
	for attempt := 0; ; attempt++ {
		listResp, err = srv.Users.Messages.List("me").
			Q(gmailQuery).
			MaxResults(maxResults).
			Context(ctx).
			Do()
		if err == nil {
			break
		}

		cerr := classifyGmailError(err)
		if !errs.IsTransient(cerr) || attempt >= fetchRetries {
			return nil, cerr
		}
		log.Warn("Gmail list failed, retrying",
			zap.Int("attempt", attempt+1),
			zap.Error(err),
		)
		select {
		case <-ctx.Done():
			return nil, &errs.TransientError{Op: "gmail list", Err: ctx.Err()}
		case <-time.After(fetchRetryDelay):
		}
	}

	items := make([]model.MailItem, 0, len(listResp.Messages))
	for _, ref := range listResp.Messages {
		msg, err := srv.Users.Messages.Get("me", ref.Id).
			Format("metadata").
			MetadataHeaders("Subject").
			Context(ctx).
			Do()
		if err != nil {
			cerr := classifyGmailError(err)
			if errs.IsAuth(cerr) {
				return nil, cerr
			}
			// One unreadable message does not spoil the batch; the item
			// stays unrecorded and is retried next run.
			log.Warn("Skipping unreadable Gmail message",
				zap.String("message_id", ref.Id),
				zap.Error(err),
			)
			continue
		}

		item, ok := toMailItem(msg)
		if !ok {
			log.Warn("Skipping malformed Gmail message",
				zap.String("message_id", ref.Id),
			)
			continue
		}
		items = append(items, item)
	}

	return items, nil
}

// toMailItem converts a raw Gmail message into the canonical MailItem.
// This is the parsing boundary: anything without a stable id is rejected.
func toMailItem(msg *gmail.Message) (model.MailItem, bool) {
	if msg == nil || msg.Id == "" {
		return model.MailItem{}, false
	}

	subject := ""
	if msg.Payload != nil {
		for _, h := range msg.Payload.Headers {
			if h.Name == "Subject" {
				subject = h.Value
				break
			}
		}
	}

	return model.MailItem{
		SourceID:  msg.Id,
		Subject:   subject,
		Snippet:   msg.Snippet,
		Timestamp: time.UnixMilli(msg.InternalDate),
	}, true
}

func classifyGmailError(err error) error {
	var gerr *googleapi.Error
	if errors.As(err, &gerr) {
		if gerr.Code == 401 || gerr.Code == 403 {
			return &errs.AuthError{Reason: "gmail credentials rejected", Err: err}
		}
		if gerr.Code >= 500 {
			return &errs.TransientError{Op: "gmail", Err: err}
		}
		return fmt.Errorf("gmail request failed: %w", err)
	}

	var netErr net.Error
	if errors.As(err, &netErr) {
		return &errs.TransientError{Op: "gmail", Err: err}
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return &errs.TransientError{Op: "gmail", Err: err}
	}

	// oauth2 surfaces invalid_grant as a RetrieveError on refresh.
	var rerr *oauth2.RetrieveError
	if errors.As(err, &rerr) {
		return &errs.AuthError{Reason: "token refresh rejected", Err: err}
	}

	return &errs.TransientError{Op: "gmail", Err: err}
}
