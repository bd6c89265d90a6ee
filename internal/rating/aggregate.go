// Package rating holds the per-user rating aggregate and the client-side
// estimate shown between a submission and the next authoritative fetch.
package rating

import (
	"fmt"
	"math"

	apperrors "github.com/meetsmatch/swipeclient/internal/errors"
)

// Allowed range for every rating category.
const (
	MinValue = 1.0
	MaxValue = 5.0
)

// Aggregate is the running mean of each category for one rated user.
type Aggregate struct {
	Overall       float64 `json:"overall"`
	Personality   float64 `json:"personality"`
	Reliability   float64 `json:"reliability"`
	Communication float64 `json:"communication"`
	Authenticity  float64 `json:"authenticity"`
	Count         int     `json:"rating_count"`
}

// Submission is a single rating. Overall is required; a zero category means
// the rater left it out.
type Submission struct {
	Overall       float64 `json:"overall"`
	Personality   float64 `json:"personality,omitempty"`
	Reliability   float64 `json:"reliability,omitempty"`
	Communication float64 `json:"communication,omitempty"`
	Authenticity  float64 `json:"authenticity,omitempty"`
	Comment       string  `json:"comment,omitempty"`
}

// Validate rejects values outside [MinValue, MaxValue].
func (s Submission) Validate() error {
	if err := checkValue("overall", s.Overall, true); err != nil {
		return err
	}
	categories := []struct {
		name  string
		value float64
	}{
		{"personality", s.Personality},
		{"reliability", s.Reliability},
		{"communication", s.Communication},
		{"authenticity", s.Authenticity},
	}
	for _, c := range categories {
		if err := checkValue(c.name, c.value, false); err != nil {
			return err
		}
	}
	return nil
}

func checkValue(field string, v float64, required bool) error {
	if v == 0 && !required {
		return nil
	}
	if math.IsNaN(v) || v < MinValue || v > MaxValue {
		return apperrors.NewValidationError(field,
			fmt.Sprintf("rating %s must be between %.0f and %.0f, got %g", field, MinValue, MaxValue, v))
	}
	return nil
}

// Blend returns the aggregate to display right after sub was accepted.
//
// For a user with no prior ratings the result is the submission itself with a
// count of one. Otherwise the overall value becomes the latest submitted
// overall rather than a recomputed mean, the other categories are kept and the
// count grows by one. The next fetch from the backend replaces the estimate.
func Blend(prior Aggregate, sub Submission) (Aggregate, error) {
	if prior.Count < 0 {
		return Aggregate{}, apperrors.NewValidationError("rating_count",
			fmt.Sprintf("rating count cannot be negative, got %d", prior.Count))
	}
	if err := sub.Validate(); err != nil {
		return Aggregate{}, err
	}

	if prior.Count == 0 {
		next := prior
		next.Overall = sub.Overall
		next.Count = 1
		applyCategory(&next.Personality, sub.Personality)
		applyCategory(&next.Reliability, sub.Reliability)
		applyCategory(&next.Communication, sub.Communication)
		applyCategory(&next.Authenticity, sub.Authenticity)
		return next, nil
	}

	next := prior
	next.Overall = sub.Overall
	next.Count = prior.Count + 1
	return next, nil
}

func applyCategory(dst *float64, v float64) {
	if v != 0 {
		*dst = v
	}
}
