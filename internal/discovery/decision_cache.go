// Package discovery drives the swipe flow: the local record of decisions,
// the filtered candidate feed, and the like/dislike processor.
package discovery

import (
	"context"
	"sync"

	apperrors "github.com/meetsmatch/swipeclient/internal/errors"
	"github.com/meetsmatch/swipeclient/internal/interfaces"
	"github.com/meetsmatch/swipeclient/internal/telemetry"
)

// Outcome is the viewer's decision on a candidate
type Outcome string

const (
	OutcomeLiked    Outcome = "liked"
	OutcomeDisliked Outcome = "disliked"
)

// LikedKey is the store key of the liked set for userID
func LikedKey(userID string) string { return "liked_profiles_" + userID }

// DislikedKey is the store key of the disliked set for userID
func DislikedKey(userID string) string { return "disliked_profiles_" + userID }

// idSet keeps insertion order so persisted sets stay stable across saves
type idSet struct {
	index map[string]struct{}
	order []string
}

func newIDSet() *idSet {
	return &idSet{index: make(map[string]struct{})}
}

func (s *idSet) add(id string) bool {
	if _, ok := s.index[id]; ok {
		return false
	}
	s.index[id] = struct{}{}
	s.order = append(s.order, id)
	return true
}

func (s *idSet) has(id string) bool {
	_, ok := s.index[id]
	return ok
}

func (s *idSet) snapshot() []string {
	out := make([]string, len(s.order))
	copy(out, s.order)
	return out
}

// DecisionCache is the local record of which candidates the viewer already
// liked or disliked, plus the ids the viewer is already matched with.
// Decisions are written through to a DecisionStore; store failures are
// logged and never fail the caller.
type DecisionCache struct {
	store  interfaces.DecisionStore
	userID string

	mu       sync.RWMutex
	liked    *idSet
	disliked *idSet
	matched  map[string]struct{}

	// serializes store writes so the last save always carries the newest set
	persistMu sync.Mutex
}

func NewDecisionCache(store interfaces.DecisionStore, userID string) *DecisionCache {
	if store == nil {
		store = NewMemoryStore()
	}
	return &DecisionCache{
		store:    store,
		userID:   userID,
		liked:    newIDSet(),
		disliked: newIDSet(),
		matched:  make(map[string]struct{}),
	}
}

func (c *DecisionCache) UserID() string { return c.userID }

// Load replaces the in-memory sets with what the store holds. A set that
// cannot be read is treated as empty.
func (c *DecisionCache) Load(ctx context.Context) {
	logger := telemetry.GetContextualLogger(ctx).WithFields(map[string]interface{}{
		"operation": "load_decisions",
		"user_id":   c.userID,
	})

	liked := c.loadSet(ctx, LikedKey(c.userID), logger)
	disliked := c.loadSet(ctx, DislikedKey(c.userID), logger)

	c.mu.Lock()
	c.liked = liked
	c.disliked = disliked
	c.mu.Unlock()

	logger.WithFields(map[string]interface{}{
		"liked":    len(liked.order),
		"disliked": len(disliked.order),
	}).Debug("Decision cache loaded")
}

func (c *DecisionCache) loadSet(ctx context.Context, key string, logger *telemetry.ContextualLogger) *idSet {
	set := newIDSet()
	ids, err := c.store.LoadIDs(ctx, key)
	if err != nil {
		logger.WithError(err).WithField("key", key).Warn("Failed to load decision set, starting empty")
		return set
	}
	for _, id := range ids {
		if id != "" {
			set.add(id)
		}
	}
	return set
}

// RecordDecision adds id to the set for outcome and persists that set.
// A candidate that was already decided keeps its first outcome.
func (c *DecisionCache) RecordDecision(ctx context.Context, id string, outcome Outcome) error {
	if id == "" {
		return apperrors.NewValidationError("candidate_id", "candidate id is required")
	}

	var key string
	c.mu.Lock()
	if c.liked.has(id) || c.disliked.has(id) {
		c.mu.Unlock()
		return nil
	}
	switch outcome {
	case OutcomeLiked:
		c.liked.add(id)
		key = LikedKey(c.userID)
	case OutcomeDisliked:
		c.disliked.add(id)
		key = DislikedKey(c.userID)
	default:
		c.mu.Unlock()
		return apperrors.NewValidationError("outcome", "unknown outcome "+string(outcome))
	}
	c.mu.Unlock()

	c.persist(ctx, key, outcome)
	return nil
}

func (c *DecisionCache) persist(ctx context.Context, key string, outcome Outcome) {
	c.persistMu.Lock()
	defer c.persistMu.Unlock()

	c.mu.RLock()
	var ids []string
	if outcome == OutcomeLiked {
		ids = c.liked.snapshot()
	} else {
		ids = c.disliked.snapshot()
	}
	c.mu.RUnlock()

	if err := c.store.SaveIDs(ctx, key, ids); err != nil {
		telemetry.GetContextualLogger(ctx).WithError(err).WithFields(map[string]interface{}{
			"operation": "persist_decision",
			"key":       key,
		}).Warn("Failed to persist decision set, keeping it in memory only")
	}
}

// IsDecided reports whether id was liked, disliked, or is already a match
func (c *DecisionCache) IsDecided(id string) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if _, ok := c.matched[id]; ok {
		return true
	}
	return c.liked.has(id) || c.disliked.has(id)
}

// Outcome returns the recorded outcome for id
func (c *DecisionCache) Outcome(id string) (Outcome, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	switch {
	case c.liked.has(id):
		return OutcomeLiked, true
	case c.disliked.has(id):
		return OutcomeDisliked, true
	}
	return "", false
}

// SetMatched replaces the known-match set
func (c *DecisionCache) SetMatched(ids map[string]struct{}) {
	matched := make(map[string]struct{}, len(ids))
	for id := range ids {
		matched[id] = struct{}{}
	}
	c.mu.Lock()
	c.matched = matched
	c.mu.Unlock()
}

// AddMatched adds a single id to the known-match set
func (c *DecisionCache) AddMatched(id string) {
	c.mu.Lock()
	c.matched[id] = struct{}{}
	c.mu.Unlock()
}

// Liked returns the liked ids in the order they were recorded
func (c *DecisionCache) Liked() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.liked.snapshot()
}

// Disliked returns the disliked ids in the order they were recorded
func (c *DecisionCache) Disliked() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.disliked.snapshot()
}

// Reset forgets every decision and removes both durable sets. The known-match
// set is kept. A store failure is logged; memory is cleared regardless.
func (c *DecisionCache) Reset(ctx context.Context) {
	c.persistMu.Lock()
	defer c.persistMu.Unlock()

	c.mu.Lock()
	c.liked = newIDSet()
	c.disliked = newIDSet()
	c.mu.Unlock()

	if err := c.store.Delete(ctx, LikedKey(c.userID), DislikedKey(c.userID)); err != nil {
		telemetry.GetContextualLogger(ctx).WithError(err).WithFields(map[string]interface{}{
			"operation": "reset_decisions",
			"user_id":   c.userID,
		}).Warn("Failed to remove decision sets from store")
	}
}
