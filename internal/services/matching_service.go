package services

import (
	"context"
	"sort"
	"sync"

	"github.com/meetsmatch/swipeclient/internal/api"
	"github.com/meetsmatch/swipeclient/internal/interfaces"
	"github.com/meetsmatch/swipeclient/internal/rating"
	"github.com/meetsmatch/swipeclient/internal/telemetry"
)

// Reconciler keeps the viewer's match and conversation lists. Lists are
// replaced wholesale on every load; local patches only live until then.
type Reconciler struct {
	api interfaces.ConversationAPI

	mu            sync.RWMutex
	matches       []api.Match
	conversations []api.Conversation
}

func NewReconciler(client interfaces.ConversationAPI) *Reconciler {
	return &Reconciler{api: client}
}

// MergeConversations keeps one conversation per match id, the one with the
// latest last_message_at, and orders the result newest first. Entries
// without a timestamp count as oldest. Merging a merged list is a no-op.
func MergeConversations(raw []api.Conversation) []api.Conversation {
	merged := make([]api.Conversation, 0, len(raw))
	index := make(map[string]int, len(raw))

	for _, c := range raw {
		if c.MatchID == "" {
			continue
		}
		if i, seen := index[c.MatchID]; seen {
			if c.LastMessageAt.After(merged[i].LastMessageAt.Time) {
				merged[i] = c
			}
			continue
		}
		index[c.MatchID] = len(merged)
		merged = append(merged, c)
	}

	sort.SliceStable(merged, func(i, j int) bool {
		return merged[i].LastMessageAt.After(merged[j].LastMessageAt.Time)
	})
	return merged
}

// LoadMatches fetches the match list and replaces the local copy
func (r *Reconciler) LoadMatches(ctx context.Context) ([]api.Match, error) {
	matches, err := r.api.Matches(ctx)
	if err != nil {
		telemetry.GetContextualLogger(ctx).WithError(err).WithField("operation", "load_matches").
			Error("Failed to load matches")
		return nil, err
	}

	r.mu.Lock()
	r.matches = matches
	r.mu.Unlock()
	return r.Matches(), nil
}

// LoadConversations fetches, merges and replaces the conversation list
func (r *Reconciler) LoadConversations(ctx context.Context) ([]api.Conversation, error) {
	raw, err := r.api.Conversations(ctx)
	if err != nil {
		telemetry.GetContextualLogger(ctx).WithError(err).WithField("operation", "load_conversations").
			Error("Failed to load conversations")
		return nil, err
	}

	merged := MergeConversations(raw)
	if dropped := len(raw) - len(merged); dropped > 0 {
		telemetry.GetContextualLogger(ctx).WithField("duplicates", dropped).
			Debug("Dropped duplicate conversations")
	}

	r.mu.Lock()
	r.conversations = merged
	r.mu.Unlock()
	return r.Conversations(), nil
}

// Matches returns a copy of the current match list
func (r *Reconciler) Matches() []api.Match {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]api.Match, len(r.matches))
	copy(out, r.matches)
	return out
}

// Conversations returns a copy of the current conversation list
func (r *Reconciler) Conversations() []api.Conversation {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]api.Conversation, len(r.conversations))
	copy(out, r.conversations)
	return out
}

// FindMatch returns the match with matchID
func (r *Reconciler) FindMatch(matchID string) (api.Match, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, m := range r.matches {
		if m.MatchID == matchID {
			return m, true
		}
	}
	return api.Match{}, false
}

// Unmatch ends a match on the server, then drops it from both lists.
// On failure the lists are left as they were.
func (r *Reconciler) Unmatch(ctx context.Context, matchID string) error {
	logger := telemetry.GetContextualLogger(ctx).WithFields(map[string]interface{}{
		"operation": "unmatch",
		"match_id":  matchID,
	})

	if err := r.api.Unmatch(ctx, matchID); err != nil {
		logger.WithError(err).Error("Failed to unmatch")
		return err
	}

	r.mu.Lock()
	matches := r.matches[:0:0]
	for _, m := range r.matches {
		if m.MatchID != matchID {
			matches = append(matches, m)
		}
	}
	conversations := r.conversations[:0:0]
	for _, c := range r.conversations {
		if c.MatchID != matchID {
			conversations = append(conversations, c)
		}
	}
	r.matches = matches
	r.conversations = conversations
	r.mu.Unlock()

	logger.Info("Match removed")
	return nil
}

// ApplyRatingPatch updates the displayed aggregate of every match and
// conversation with counterpartID after the viewer rated them. It is an
// estimate; the next load brings the real figures. Returns how many entries
// were patched.
func (r *Reconciler) ApplyRatingPatch(counterpartID string, sub rating.Submission) (int, error) {
	if err := sub.Validate(); err != nil {
		return 0, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	// patch copies so a bad aggregate leaves both lists untouched
	matches := make([]api.Match, len(r.matches))
	copy(matches, r.matches)
	conversations := make([]api.Conversation, len(r.conversations))
	copy(conversations, r.conversations)

	patched := 0
	for i := range matches {
		m := &matches[i]
		if m.CounterpartID() != counterpartID {
			continue
		}
		next, err := blendInto(m.AverageRating, sub)
		if err != nil {
			return 0, err
		}
		m.AverageRating = next
		if m.MatchProfile != nil {
			profile := *m.MatchProfile
			profile.AverageRating = next
			m.MatchProfile = &profile
		}
		patched++
	}

	for i := range conversations {
		c := &conversations[i]
		if c.OtherUser.UID != counterpartID {
			continue
		}
		next, err := blendInto(c.OtherUser.AverageRating, sub)
		if err != nil {
			return 0, err
		}
		c.OtherUser.AverageRating = next
		patched++
	}

	r.matches = matches
	r.conversations = conversations
	return patched, nil
}

func blendInto(prior *rating.Aggregate, sub rating.Submission) (*rating.Aggregate, error) {
	var base rating.Aggregate
	if prior != nil {
		base = *prior
	}
	next, err := rating.Blend(base, sub)
	if err != nil {
		return nil, err
	}
	return &next, nil
}
