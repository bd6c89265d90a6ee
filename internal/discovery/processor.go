package discovery

import (
	"context"
	"errors"
	"sync"
	"time"

	"go.opentelemetry.io/otel/attribute"

	"github.com/meetsmatch/swipeclient/internal/api"
	apperrors "github.com/meetsmatch/swipeclient/internal/errors"
	"github.com/meetsmatch/swipeclient/internal/interfaces"
	"github.com/meetsmatch/swipeclient/internal/monitoring"
	"github.com/meetsmatch/swipeclient/internal/telemetry"
)

// SwipeState is the lifecycle of one decision
type SwipeState string

const (
	StatePending    SwipeState = "pending"
	StateSubmitted  SwipeState = "submitted"
	StateMatched    SwipeState = "matched"
	StateNotMatched SwipeState = "not_matched"
)

// ErrProcessorClosed is returned for decisions that finish after Close
var ErrProcessorClosed = errors.New("processor closed")

const codeDecisionInFlight = "DECISION_IN_FLIGHT"

// ErrDecisionInFlight returns the conflict error for a second concurrent
// decision on the same candidate.
func ErrDecisionInFlight(candidateID string) error {
	return apperrors.NewAppError(apperrors.ErrorTypeConflict, codeDecisionInFlight,
		"a decision for this candidate is already in flight").
		WithMetadata("candidate_id", candidateID)
}

// IsDecisionInFlight reports whether err came from ErrDecisionInFlight
func IsDecisionInFlight(err error) bool {
	var appErr *apperrors.AppError
	return errors.As(err, &appErr) && appErr.Code == codeDecisionInFlight
}

// Result is the outcome of a submitted decision
type Result struct {
	CandidateID string
	State       SwipeState
	MatchID     string
}

// ProcessorOption configures a Processor
type ProcessorOption func(*Processor)

// WithProcessorInstrumentation records decision metrics on inst
func WithProcessorInstrumentation(inst *monitoring.ClientInstrumentation) ProcessorOption {
	return func(p *Processor) { p.inst = inst }
}

// Processor submits like/dislike decisions and keeps the cache and feed in step
type Processor struct {
	api   interfaces.DecisionAPI
	feed  *Feed
	cache *DecisionCache
	inst  *monitoring.ClientInstrumentation

	mu       sync.Mutex
	inFlight map[string]struct{}
	states   map[string]SwipeState
	// candidate whose match notice is showing
	pendingMatch string
	closed       bool
}

func NewProcessor(client interfaces.DecisionAPI, feed *Feed, cache *DecisionCache, opts ...ProcessorOption) *Processor {
	p := &Processor{
		api:      client,
		feed:     feed,
		cache:    cache,
		inFlight: make(map[string]struct{}),
		states:   make(map[string]SwipeState),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Like submits a like. On a match the feed is held on the candidate until
// DismissMatch is called.
func (p *Processor) Like(ctx context.Context, candidate api.Profile) (Result, error) {
	return p.decide(ctx, candidate.UID, OutcomeLiked)
}

// Dislike submits a dislike and advances the feed
func (p *Processor) Dislike(ctx context.Context, candidate api.Profile) (Result, error) {
	return p.decide(ctx, candidate.UID, OutcomeDisliked)
}

func (p *Processor) decide(ctx context.Context, id string, outcome Outcome) (Result, error) {
	if id == "" {
		return Result{}, apperrors.NewValidationError("candidate_id", "candidate id is required")
	}

	if err := p.begin(id); err != nil {
		return Result{CandidateID: id, State: p.State(id)}, err
	}
	defer p.finish(id)

	ctx, span := p.inst.TraceOperation(ctx, string(outcome), attribute.String("candidate.id", id))
	defer span.End()

	logger := telemetry.GetContextualLogger(ctx).WithFields(map[string]interface{}{
		"operation":    string(outcome),
		"candidate_id": id,
	})

	start := time.Now()
	var (
		matched bool
		matchID string
		err     error
	)
	if outcome == OutcomeLiked {
		var res *api.LikeResult
		res, err = p.api.Like(ctx, id)
		if res != nil {
			matched = res.IsMatch
			matchID = res.MatchID
		}
	} else {
		err = p.api.Dislike(ctx, id)
	}
	p.inst.RecordDecision(ctx, string(outcome), matched, time.Since(start), err)

	if err != nil {
		// the candidate stays current, so any failure short of a lost session can be retried
		err = apperrors.MarkRetryable(err)
		p.inst.RecordError(ctx, err, string(outcome), span)
		logger.WithError(err).Warn("Decision failed, candidate stays current")
		p.setState(id, StatePending)
		return Result{CandidateID: id, State: StatePending}, err
	}

	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		logger.Debug("Decision completed after close, result discarded")
		return Result{CandidateID: id, State: StateSubmitted}, ErrProcessorClosed
	}
	state := StateNotMatched
	if matched {
		state = StateMatched
		p.pendingMatch = id
	}
	p.states[id] = state
	p.mu.Unlock()

	if recErr := p.cache.RecordDecision(ctx, id, outcome); recErr != nil {
		logger.WithError(recErr).Warn("Failed to record decision locally")
	}
	if matched {
		p.cache.AddMatched(id)
		logger.WithField("match_id", matchID).Info("New match")
	} else {
		p.feed.AdvancePast(id)
	}

	return Result{CandidateID: id, State: state, MatchID: matchID}, nil
}

func (p *Processor) begin(id string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return ErrProcessorClosed
	}
	if _, busy := p.inFlight[id]; busy {
		return ErrDecisionInFlight(id)
	}
	p.inFlight[id] = struct{}{}
	p.states[id] = StateSubmitted
	return nil
}

func (p *Processor) finish(id string) {
	p.mu.Lock()
	delete(p.inFlight, id)
	p.mu.Unlock()
}

func (p *Processor) setState(id string, state SwipeState) {
	p.mu.Lock()
	p.states[id] = state
	p.mu.Unlock()
}

// State returns the decision state of a candidate
func (p *Processor) State(id string) SwipeState {
	p.mu.Lock()
	defer p.mu.Unlock()
	if s, ok := p.states[id]; ok {
		return s
	}
	return StatePending
}

// PendingMatch returns the candidate whose match notice has not been dismissed
func (p *Processor) PendingMatch() (string, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.pendingMatch, p.pendingMatch != ""
}

// DismissMatch closes the match notice and moves the feed past the matched candidate
func (p *Processor) DismissMatch() {
	p.mu.Lock()
	id := p.pendingMatch
	p.pendingMatch = ""
	closed := p.closed
	p.mu.Unlock()

	if id == "" || closed {
		return
	}
	p.feed.AdvancePast(id)
}

// Close stops the processor from applying results of decisions still in flight
func (p *Processor) Close() {
	p.mu.Lock()
	p.closed = true
	p.mu.Unlock()
}

// ResetAll clears every like and dislike on the server and locally, then
// reloads the feed without the local filter.
func ResetAll(ctx context.Context, client interfaces.DecisionAPI, cache *DecisionCache, feed *Feed) ([]api.Profile, error) {
	logger := telemetry.GetContextualLogger(ctx).WithField("operation", "reset_decisions")

	if err := client.ClearLikes(ctx); err != nil {
		logger.WithError(err).Error("Failed to clear decisions on server")
		return nil, err
	}
	cache.Reset(ctx)

	profiles, err := feed.FetchCandidates(ctx, true)
	if err != nil {
		return nil, err
	}
	logger.WithField("candidates", len(profiles)).Info("Decisions reset")
	return profiles, nil
}
