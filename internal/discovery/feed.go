package discovery

import (
	"context"
	"errors"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"

	"github.com/meetsmatch/swipeclient/internal/api"
	apperrors "github.com/meetsmatch/swipeclient/internal/errors"
	"github.com/meetsmatch/swipeclient/internal/interfaces"
	"github.com/meetsmatch/swipeclient/internal/monitoring"
	"github.com/meetsmatch/swipeclient/internal/telemetry"
)

// ErrFeedClosed is returned when a fetch completes after the feed was closed
var ErrFeedClosed = errors.New("feed closed")

const prefetchKey = "prefetch"

// FeedOption configures a Feed
type FeedOption func(*Feed)

// WithFeedInstrumentation records fetch metrics on inst
func WithFeedInstrumentation(inst *monitoring.ClientInstrumentation) FeedOption {
	return func(f *Feed) { f.inst = inst }
}

// WithPrefetchErrorHandler is called with every background prefetch failure
func WithPrefetchErrorHandler(fn func(error)) FeedOption {
	return func(f *Feed) { f.onPrefetchError = fn }
}

// Feed is the ordered list of candidates the viewer is swiping through
type Feed struct {
	api   interfaces.DiscoveryAPI
	cache *DecisionCache
	inst  *monitoring.ClientInstrumentation

	onPrefetchError func(error)

	mu       sync.Mutex
	profiles []api.Profile
	cursor   int
	// bumped on every batch replacement; one prefetch per batch
	batch      uint64
	prefetched uint64
	closed     bool

	group  singleflight.Group
	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

func NewFeed(client interfaces.DiscoveryAPI, cache *DecisionCache, opts ...FeedOption) *Feed {
	ctx, cancel := context.WithCancel(context.Background())
	f := &Feed{
		api:    client,
		cache:  cache,
		ctx:    ctx,
		cancel: cancel,
		batch:  1,
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// LoadMatchedIDs returns the counterpart ids of every current match
func (f *Feed) LoadMatchedIDs(ctx context.Context) (map[string]struct{}, error) {
	matches, err := f.api.Matches(ctx)
	if err != nil {
		return nil, err
	}
	ids := make(map[string]struct{}, len(matches))
	for _, m := range matches {
		if id := m.CounterpartID(); id != "" {
			ids[id] = struct{}{}
		}
	}
	return ids, nil
}

// FetchCandidates replaces the feed with a fresh batch and resets the cursor.
// Unless skipLocalFilter is set, candidates already decided or matched are
// dropped. An empty result is not an error.
func (f *Feed) FetchCandidates(ctx context.Context, skipLocalFilter bool) ([]api.Profile, error) {
	start := time.Now()
	logger := telemetry.GetContextualLogger(ctx).WithFields(map[string]interface{}{
		"operation":   "fetch_candidates",
		"skip_filter": skipLocalFilter,
	})

	var (
		batch   []api.Profile
		matched map[string]struct{}
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		profiles, err := f.api.Discover(gctx)
		if err != nil {
			return err
		}
		batch = profiles
		return nil
	})
	g.Go(func() error {
		ids, err := f.LoadMatchedIDs(gctx)
		if err != nil {
			if apperrors.IsAuthentication(err) {
				return err
			}
			// the batch is still usable without match exclusion
			logger.WithError(err).Warn("Failed to load matched ids, continuing without match exclusion")
			return nil
		}
		matched = ids
		return nil
	})
	if err := g.Wait(); err != nil {
		logger.WithError(err).Error("Failed to fetch candidates")
		f.inst.RecordFetch(ctx, 0, time.Since(start), err)
		return nil, err
	}

	if matched != nil {
		f.cache.SetMatched(matched)
	}

	kept := batch
	if !skipLocalFilter {
		kept = make([]api.Profile, 0, len(batch))
		for _, p := range batch {
			if p.UID == "" || f.cache.IsDecided(p.UID) {
				continue
			}
			kept = append(kept, p)
		}
	}

	f.mu.Lock()
	if f.closed {
		f.mu.Unlock()
		return nil, ErrFeedClosed
	}
	f.profiles = kept
	f.cursor = 0
	f.batch++
	f.mu.Unlock()

	filtered := len(batch) - len(kept)
	f.inst.RecordFetch(ctx, filtered, time.Since(start), nil)
	logger.WithFields(map[string]interface{}{
		"received": len(batch),
		"filtered": filtered,
	}).Debug("Candidates fetched")

	out := make([]api.Profile, len(kept))
	copy(out, kept)
	return out, nil
}

// Current returns the profile at the cursor, or false when the feed is exhausted
func (f *Feed) Current() (api.Profile, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.cursor >= len(f.profiles) {
		return api.Profile{}, false
	}
	return f.profiles[f.cursor], true
}

// Position returns the cursor and the batch length
func (f *Feed) Position() (cursor, total int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.cursor, len(f.profiles)
}

// Advance moves the cursor forward one candidate. Reaching the second-to-last
// candidate starts a background prefetch of the next batch.
func (f *Feed) Advance() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.advanceLocked()
}

// AdvancePast advances if id is the current candidate. If the batch was
// replaced since id was shown, id is dropped from the remaining candidates.
func (f *Feed) AdvancePast(id string) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.cursor < len(f.profiles) && f.profiles[f.cursor].UID == id {
		f.advanceLocked()
		return
	}
	for i := f.cursor; i < len(f.profiles); i++ {
		if f.profiles[i].UID == id {
			f.profiles = append(f.profiles[:i:i], f.profiles[i+1:]...)
			return
		}
	}
}

func (f *Feed) advanceLocked() {
	if f.closed || f.cursor >= len(f.profiles) {
		return
	}
	f.cursor++
	if f.cursor >= len(f.profiles)-2 && f.prefetched != f.batch {
		f.prefetched = f.batch
		f.startPrefetchLocked()
	}
}

func (f *Feed) startPrefetchLocked() {
	f.wg.Add(1)
	go func() {
		defer f.wg.Done()
		_, err, _ := f.group.Do(prefetchKey, func() (interface{}, error) {
			return f.FetchCandidates(f.ctx, false)
		})
		if err == nil || errors.Is(err, ErrFeedClosed) || errors.Is(err, context.Canceled) {
			return
		}
		telemetry.GetContextualLogger(f.ctx).WithError(err).WithField("operation", "prefetch").
			Warn("Background prefetch failed")
		if f.onPrefetchError != nil {
			f.onPrefetchError(err)
		}
	}()
}

// Close cancels any background prefetch and waits for it to exit
func (f *Feed) Close() {
	f.mu.Lock()
	if f.closed {
		f.mu.Unlock()
		return
	}
	f.closed = true
	f.mu.Unlock()

	f.cancel()
	f.wg.Wait()
}
