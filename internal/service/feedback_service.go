package service

import (
	"context"

	"go.uber.org/zap"

	"github.com/aviralsaxena16/Campus-Companion/internal/errs"
	"github.com/aviralsaxena16/Campus-Companion/internal/model"
	"github.com/aviralsaxena16/Campus-Companion/pkg/logger"
	"github.com/aviralsaxena16/Campus-Companion/pkg/metrics"
)

// FeedbackStore persists feedback audit rows.
type FeedbackStore interface {
	Insert(ctx context.Context, f *model.Feedback) error
}

// OwnershipStore checks that an update belongs to a user.
type OwnershipStore interface {
	Exists(ctx context.Context, updateID int64, userID int) (bool, error)
	LowerImportance(ctx context.Context, updateID int64, userID int) error
}

// FeedbackService applies user corrections to update visibility.
//
// Visibility is one-way: negative feedback (or an explicit hide) moves an
// update to hidden, and nothing here or anywhere else moves it back.
type FeedbackService struct {
	updates  OwnershipStore
	feedback FeedbackStore
	log      *zap.Logger
}

func NewFeedbackService(updates OwnershipStore, feedback FeedbackStore, log *zap.Logger) *FeedbackService {
	return &FeedbackService{
		updates:  updates,
		feedback: feedback,
		log:      log,
	}
}

// Record stores a feedback signal for an update owned by userID. Negative
// feedback permanently hides the update. Returns errs.ErrNotFound when the
// update does not exist or belongs to another user.
func (s *FeedbackService) Record(ctx context.Context, updateID int64, userID int, isCorrect bool) error {
	log := logger.WithTrace(ctx, s.log)

	if !isCorrect {
		if err := s.updates.LowerImportance(ctx, updateID, userID); err != nil {
			return err
		}
		log.Info("Update hidden by negative feedback",
			zap.Int64("update_id", updateID),
			zap.Int("user_id", userID),
		)
	} else {
		// Positive feedback never restores a hidden update; it only has
		// to pass the ownership check to be acknowledged.
		owned, err := s.updates.Exists(ctx, updateID, userID)
		if err != nil {
			return err
		}
		if !owned {
			return errs.ErrNotFound
		}
	}

	// The audit row is best-effort and has no effect on visibility.
	f := &model.Feedback{UpdateID: updateID, IsCorrect: isCorrect}
	if err := s.feedback.Insert(ctx, f); err != nil {
		log.Warn("Failed to store feedback audit row",
			zap.Int64("update_id", updateID),
			zap.Error(err),
		)
	}

	if isCorrect {
		metrics.FeedbackCount.WithLabelValues("true").Inc()
	} else {
		metrics.FeedbackCount.WithLabelValues("false").Inc()
	}
	return nil
}

// Hide hides an update without a feedback signal.
func (s *FeedbackService) Hide(ctx context.Context, updateID int64, userID int) error {
	if err := s.updates.LowerImportance(ctx, updateID, userID); err != nil {
		return err
	}
	logger.WithTrace(ctx, s.log).Info("Update hidden",
		zap.Int64("update_id", updateID),
		zap.Int("user_id", userID),
	)
	return nil
}
