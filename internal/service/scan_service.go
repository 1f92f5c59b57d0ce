package service

import (
	"context"

	"go.uber.org/zap"

	"github.com/aviralsaxena16/Campus-Companion/internal/errs"
	"github.com/aviralsaxena16/Campus-Companion/internal/fetcher"
	"github.com/aviralsaxena16/Campus-Companion/internal/gating"
	"github.com/aviralsaxena16/Campus-Companion/internal/model"
	"github.com/aviralsaxena16/Campus-Companion/internal/mq"
	"github.com/aviralsaxena16/Campus-Companion/pkg/logger"
	"github.com/aviralsaxena16/Campus-Companion/pkg/metrics"
	"github.com/aviralsaxena16/Campus-Companion/pkg/trace"

	"github.com/google/uuid"
)

// Classifier labels a batch of mail items, pairing results to items by
// source id.
type Classifier interface {
	Classify(ctx context.Context, batch []model.MailItem) ([]model.Prediction, error)
}

// UpdateStore is the persistence surface the pipeline writes through.
type UpdateStore interface {
	Upsert(ctx context.Context, u *model.Update) (bool, error)
	ListSourceIDs(ctx context.Context, userID int) (map[string]struct{}, error)
	ListByUser(ctx context.Context, userID int, onlyImportant bool, limit int) ([]model.Update, error)
	LowerImportance(ctx context.Context, updateID int64, userID int) error
}

// UserStore resolves scan targets.
type UserStore interface {
	FindByID(ctx context.Context, id int) (*model.User, error)
}

// Publisher fans out pipeline events. May be nil when MQ is not deployed.
type Publisher interface {
	Publish(routingKey string, payload any) error
}

// RunReport summarizes one pipeline run.
type RunReport struct {
	RunID    string
	UserID   int
	Fetched  int
	New      int
	Accepted int
	Rejected int
	Deferred int
}

// ScanService runs the update discovery pipeline for one user:
// fetch -> dedupe -> classify -> gate -> upsert.
//
// Every stage is safe to repeat and safe to race: deduplication reads
// persisted state, the upsert is keyed on (user_id, source_id), and items
// the classifier could not label are simply left for the next run. A run
// that dies mid-stream leaves the store correct.
type ScanService struct {
	users      UserStore
	updates    UpdateStore
	fetcher    fetcher.Fetcher
	classifier Classifier
	policy     gating.Policy
	publisher  Publisher
	log        *zap.Logger
}

func NewScanService(
	users UserStore,
	updates UpdateStore,
	f fetcher.Fetcher,
	c Classifier,
	policy gating.Policy,
	publisher Publisher,
	log *zap.Logger,
) *ScanService {
	return &ScanService{
		users:      users,
		updates:    updates,
		fetcher:    f,
		classifier: c,
		policy:     policy,
		publisher:  publisher,
		log:        log,
	}
}

// Run executes one pipeline run for the user.
//
// An AuthError aborts the run and is returned so an on-demand trigger can
// surface it. A classifier failure after all retries defers the batch and
// returns a nil error: the scheduler keeps the job and the next interval
// retries, since nothing was persisted for the deferred items.
func (s *ScanService) Run(ctx context.Context, userID int) (RunReport, error) {
	if trace.FromContext(ctx) == "" {
		ctx = trace.WithContext(ctx, uuid.NewString())
	}
	report := RunReport{RunID: trace.FromContext(ctx), UserID: userID}
	log := logger.WithTrace(ctx, s.log).With(zap.Int("user_id", userID))

	user, err := s.users.FindByID(ctx, userID)
	if err != nil {
		log.Error("Scan aborted, user lookup failed", zap.Error(err))
		metrics.RecordScanRun("error")
		return report, err
	}

	items, err := s.fetcher.Fetch(ctx, user)
	if err != nil {
		if errs.IsAuth(err) {
			log.Warn("Scan aborted, credentials rejected", zap.Error(err))
			metrics.RecordScanRun("auth_error")
			return report, err
		}
		// Nothing was persisted; the next scheduled run covers the gap.
		log.Warn("Scan aborted, fetch failed", zap.Error(err))
		metrics.RecordScanRun("transient_error")
		return report, err
	}
	report.Fetched = len(items)
	metrics.RecordScanItems("fetched", len(items))

	newItems, err := s.filterNew(ctx, userID, items)
	if err != nil {
		log.Error("Scan aborted, dedup lookup failed", zap.Error(err))
		metrics.RecordScanRun("error")
		return report, err
	}
	report.New = len(newItems)
	metrics.RecordScanItems("new", len(newItems))

	if len(newItems) == 0 {
		log.Info("No new mail items this run", zap.Int("fetched", report.Fetched))
		metrics.RecordScanRun("success")
		s.publishCompleted(log, report)
		return report, nil
	}

	preds, err := s.classifier.Classify(ctx, newItems)
	if err != nil {
		// Deferred, not failed: no speculative labels are stored and the
		// items are still absent from persistence, so the next run
		// re-classifies them.
		report.Deferred = len(newItems)
		metrics.RecordScanItems("deferred", report.Deferred)
		metrics.RecordScanRun("transient_error")
		log.Warn("Classifier unavailable, deferring batch",
			zap.Int("deferred", report.Deferred),
			zap.Error(err),
		)
		s.publishCompleted(log, report)
		return report, nil
	}
	report.Deferred = len(newItems) - len(preds)
	metrics.RecordScanItems("deferred", report.Deferred)

	byID := make(map[string]model.MailItem, len(newItems))
	for _, it := range newItems {
		byID[it.SourceID] = it
	}

	for _, p := range preds {
		item, ok := byID[p.SourceID]
		if !ok {
			log.Warn("Prediction without matching item, skipping",
				zap.String("source_id", p.SourceID),
			)
			continue
		}

		if !s.policy.Decide(p.Label, p.Confidence) {
			report.Rejected++
			continue
		}

		u := &model.Update{
			UserID:   userID,
			SourceID: item.SourceID,
			Label:    p.Label,
			Title:    item.Subject,
			Summary:  item.Snippet,
		}
		created, err := s.updates.Upsert(ctx, u)
		if err != nil {
			// The item stays unrecorded and is retried next run.
			log.Error("Upsert failed, item deferred",
				zap.String("source_id", item.SourceID),
				zap.Error(err),
			)
			report.Deferred++
			continue
		}
		if created {
			report.Accepted++
			s.publishDiscovered(log, u)
		}
	}

	metrics.RecordScanItems("accepted", report.Accepted)
	metrics.RecordScanItems("rejected", report.Rejected)
	metrics.RecordScanRun("success")

	log.Info("Scan run completed",
		zap.String("run_id", report.RunID),
		zap.Int("fetched", report.Fetched),
		zap.Int("new", report.New),
		zap.Int("accepted", report.Accepted),
		zap.Int("rejected", report.Rejected),
		zap.Int("deferred", report.Deferred),
	)

	s.publishCompleted(log, report)
	return report, nil
}

// filterNew drops items whose source id is already recorded for the user.
// Persistence is the only ground truth here; no cache is consulted.
func (s *ScanService) filterNew(ctx context.Context, userID int, items []model.MailItem) ([]model.MailItem, error) {
	if len(items) == 0 {
		return nil, nil
	}

	seen, err := s.updates.ListSourceIDs(ctx, userID)
	if err != nil {
		return nil, err
	}

	fresh := make([]model.MailItem, 0, len(items))
	for _, it := range items {
		if _, ok := seen[it.SourceID]; !ok {
			fresh = append(fresh, it)
		}
	}
	return fresh, nil
}

// ListUpdates is the query surface: the user's updates, newest first.
func (s *ScanService) ListUpdates(ctx context.Context, userID int, onlyImportant bool, limit int) ([]model.Update, error) {
	if limit <= 0 {
		limit = 20
	}
	return s.updates.ListByUser(ctx, userID, onlyImportant, limit)
}

func (s *ScanService) publishDiscovered(log *zap.Logger, u *model.Update) {
	if s.publisher == nil {
		return
	}
	payload := mq.UpdateDiscoveredPayload{
		UpdateID:     u.ID,
		UserID:       u.UserID,
		SourceID:     u.SourceID,
		Label:        u.Label,
		Title:        u.Title,
		DiscoveredAt: u.DiscoveredAt,
	}
	if err := s.publisher.Publish("update.discovered", payload); err != nil {
		log.Warn("Failed to publish update.discovered event",
			zap.Int64("update_id", u.ID),
			zap.Error(err),
		)
	}
}

func (s *ScanService) publishCompleted(log *zap.Logger, report RunReport) {
	if s.publisher == nil {
		return
	}
	payload := mq.ScanCompletedPayload{
		RunID:    report.RunID,
		UserID:   report.UserID,
		Fetched:  report.Fetched,
		New:      report.New,
		Accepted: report.Accepted,
		Deferred: report.Deferred,
	}
	if err := s.publisher.Publish("scan.completed", payload); err != nil {
		log.Warn("Failed to publish scan.completed event", zap.Error(err))
	}
}
