package services

import (
	"context"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/meetsmatch/swipeclient/internal/api"
	"github.com/meetsmatch/swipeclient/internal/interfaces"
	"github.com/meetsmatch/swipeclient/internal/telemetry"
)

// DefaultProfileTTL bounds how long a fetched profile is reused
const DefaultProfileTTL = 5 * time.Minute

type cachedProfile struct {
	profile   api.Profile
	expiresAt time.Time
}

// UserService reads profiles, reusing recent lookups of other users.
// Concurrent lookups of the same uid share one request.
type UserService struct {
	api interfaces.ProfileAPI
	ttl time.Duration
	now func() time.Time

	group singleflight.Group
	mu    sync.Mutex
	cache map[string]cachedProfile
}

func NewUserService(client interfaces.ProfileAPI, ttl time.Duration) *UserService {
	if ttl <= 0 {
		ttl = DefaultProfileTTL
	}
	return &UserService{
		api:   client,
		ttl:   ttl,
		now:   time.Now,
		cache: make(map[string]cachedProfile),
	}
}

// Me returns the signed-in user
func (s *UserService) Me(ctx context.Context) (*api.Profile, error) {
	return s.api.Me(ctx)
}

// OwnProfile returns the signed-in user's full profile
func (s *UserService) OwnProfile(ctx context.Context) (*api.Profile, error) {
	return s.api.GetProfile(ctx)
}

// Profile returns uid's public profile
func (s *UserService) Profile(ctx context.Context, uid string) (*api.Profile, error) {
	s.mu.Lock()
	if entry, ok := s.cache[uid]; ok && s.now().Before(entry.expiresAt) {
		s.mu.Unlock()
		p := entry.profile
		return &p, nil
	}
	s.mu.Unlock()

	v, err, shared := s.group.Do(uid, func() (interface{}, error) {
		p, err := s.api.GetUserProfile(ctx, uid)
		if err != nil {
			return nil, err
		}
		s.mu.Lock()
		s.cache[uid] = cachedProfile{profile: *p, expiresAt: s.now().Add(s.ttl)}
		s.mu.Unlock()
		return *p, nil
	})
	if err != nil {
		telemetry.GetContextualLogger(ctx).WithError(err).WithFields(map[string]interface{}{
			"operation": "get_user_profile",
			"uid":       uid,
		}).Warn("Failed to load profile")
		return nil, err
	}
	if shared {
		telemetry.GetContextualLogger(ctx).WithField("uid", uid).Debug("Profile lookup shared")
	}
	p := v.(api.Profile)
	return &p, nil
}

// Invalidate drops uid from the profile cache
func (s *UserService) Invalidate(uid string) {
	s.mu.Lock()
	delete(s.cache, uid)
	s.mu.Unlock()
}
