package services

import (
	"context"

	"github.com/meetsmatch/swipeclient/internal/api"
	apperrors "github.com/meetsmatch/swipeclient/internal/errors"
	"github.com/meetsmatch/swipeclient/internal/interfaces"
	"github.com/meetsmatch/swipeclient/internal/rating"
	"github.com/meetsmatch/swipeclient/internal/telemetry"
)

// RateResult describes an accepted rating
type RateResult struct {
	RatingID string
	// true when an earlier rating by the viewer was replaced
	Updated bool
	// match and conversation entries whose aggregate was patched locally
	Patched int
}

// RatingService submits the viewer's ratings and keeps the displayed
// aggregates in step through the Reconciler.
type RatingService struct {
	api        interfaces.RatingAPI
	reconciler *Reconciler
}

func NewRatingService(client interfaces.RatingAPI, reconciler *Reconciler) *RatingService {
	return &RatingService{api: client, reconciler: reconciler}
}

// Rate records the viewer's rating of counterpartID, replacing an earlier one
// if it exists, then patches the local aggregates.
func (s *RatingService) Rate(ctx context.Context, counterpartID string, sub rating.Submission) (RateResult, error) {
	if counterpartID == "" {
		return RateResult{}, apperrors.NewValidationError("rated_uid", "rated user id is required")
	}
	if err := sub.Validate(); err != nil {
		return RateResult{}, err
	}

	logger := telemetry.GetContextualLogger(ctx).WithFields(map[string]interface{}{
		"operation": "rate_user",
		"rated_uid": counterpartID,
	})

	existing, err := s.api.MyRating(ctx, counterpartID)
	if err != nil {
		logger.WithError(err).Error("Failed to look up existing rating")
		return RateResult{}, err
	}

	payload := api.RatingPayload{RatedUID: counterpartID, Submission: sub}
	var result RateResult
	if existing != nil && existing.ID != "" {
		if err := s.api.UpdateRating(ctx, existing.ID, payload); err != nil {
			logger.WithError(err).Error("Failed to update rating")
			return RateResult{}, err
		}
		result = RateResult{RatingID: existing.ID, Updated: true}
	} else {
		id, err := s.api.SubmitRating(ctx, payload)
		if err != nil {
			logger.WithError(err).Error("Failed to submit rating")
			return RateResult{}, err
		}
		result = RateResult{RatingID: id}
	}

	if s.reconciler != nil {
		patched, err := s.reconciler.ApplyRatingPatch(counterpartID, sub)
		if err != nil {
			logger.WithError(err).Warn("Rating saved but local aggregate could not be patched")
		}
		result.Patched = patched
	}

	logger.WithFields(map[string]interface{}{
		"rating_id": result.RatingID,
		"updated":   result.Updated,
	}).Info("Rating saved")
	return result, nil
}

// ForUser lists every rating uid received
func (s *RatingService) ForUser(ctx context.Context, uid string) (*api.UserRatings, error) {
	return s.api.UserRatings(ctx, uid)
}

// Mine returns the viewer's rating of uid, or nil
func (s *RatingService) Mine(ctx context.Context, uid string) (*api.Rating, error) {
	return s.api.MyRating(ctx, uid)
}

// Delete removes one of the viewer's ratings
func (s *RatingService) Delete(ctx context.Context, ratingID string) error {
	return s.api.DeleteRating(ctx, ratingID)
}

// ClearAll removes every rating the viewer gave or received
func (s *RatingService) ClearAll(ctx context.Context) error {
	if err := s.api.ClearRatings(ctx); err != nil {
		telemetry.GetContextualLogger(ctx).WithError(err).WithField("operation", "clear_ratings").
			Error("Failed to clear ratings")
		return err
	}
	return nil
}
