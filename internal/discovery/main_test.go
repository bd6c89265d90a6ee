package discovery

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/mock"
	"go.uber.org/goleak"

	"github.com/meetsmatch/swipeclient/internal/api"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

// mockBackend implements DiscoveryAPI and DecisionAPI
type mockBackend struct {
	mock.Mock
}

func (m *mockBackend) Discover(ctx context.Context) ([]api.Profile, error) {
	args := m.Called(ctx)
	profiles, _ := args.Get(0).([]api.Profile)
	return profiles, args.Error(1)
}

func (m *mockBackend) Matches(ctx context.Context) ([]api.Match, error) {
	args := m.Called(ctx)
	matches, _ := args.Get(0).([]api.Match)
	return matches, args.Error(1)
}

func (m *mockBackend) Like(ctx context.Context, uid string) (*api.LikeResult, error) {
	args := m.Called(ctx, uid)
	res, _ := args.Get(0).(*api.LikeResult)
	return res, args.Error(1)
}

func (m *mockBackend) Dislike(ctx context.Context, uid string) error {
	return m.Called(ctx, uid).Error(0)
}

func (m *mockBackend) ClearLikes(ctx context.Context) error {
	return m.Called(ctx).Error(0)
}

// failingStore fails every operation
type failingStore struct{}

func (failingStore) LoadIDs(context.Context, string) ([]string, error) {
	return nil, errors.New("store offline")
}

func (failingStore) SaveIDs(context.Context, string, []string) error {
	return errors.New("store offline")
}

func (failingStore) Delete(context.Context, ...string) error {
	return errors.New("store offline")
}

func profiles(ids ...string) []api.Profile {
	out := make([]api.Profile, 0, len(ids))
	for _, id := range ids {
		out = append(out, api.Profile{UID: id, DisplayName: "user " + id})
	}
	return out
}

func uids(ps []api.Profile) []string {
	out := make([]string, 0, len(ps))
	for _, p := range ps {
		out = append(out, p.UID)
	}
	return out
}
