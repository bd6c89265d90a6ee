package interfaces

import (
	"context"

	"github.com/meetsmatch/swipeclient/internal/api"
)

// DiscoveryAPI is the part of the backend the candidate feed reads from
type DiscoveryAPI interface {
	Discover(ctx context.Context) ([]api.Profile, error)
	Matches(ctx context.Context) ([]api.Match, error)
}

// DecisionAPI records swipe outcomes on the backend
type DecisionAPI interface {
	Like(ctx context.Context, uid string) (*api.LikeResult, error)
	Dislike(ctx context.Context, uid string) error
	ClearLikes(ctx context.Context) error
}

// ConversationAPI serves the match and conversation lists
type ConversationAPI interface {
	Matches(ctx context.Context) ([]api.Match, error)
	Conversations(ctx context.Context) ([]api.Conversation, error)
	Unmatch(ctx context.Context, matchID string) error
}

// MessageAPI reads and writes the messages of one match
type MessageAPI interface {
	Messages(ctx context.Context, matchID string) ([]api.Message, error)
	SendMessage(ctx context.Context, matchID, content string) (*api.SendResult, error)
}

// RatingAPI manages the viewer's ratings of other users
type RatingAPI interface {
	MyRating(ctx context.Context, uid string) (*api.Rating, error)
	SubmitRating(ctx context.Context, payload api.RatingPayload) (string, error)
	UpdateRating(ctx context.Context, ratingID string, payload api.RatingPayload) error
	DeleteRating(ctx context.Context, ratingID string) error
	UserRatings(ctx context.Context, uid string) (*api.UserRatings, error)
	ClearRatings(ctx context.Context) error
}

// DecisionStore persists small id sets under string keys. A missing key
// loads as an empty set.
type DecisionStore interface {
	LoadIDs(ctx context.Context, key string) ([]string, error)
	SaveIDs(ctx context.Context, key string, ids []string) error
	Delete(ctx context.Context, keys ...string) error
}

// ProfileAPI reads user profiles
type ProfileAPI interface {
	Me(ctx context.Context) (*api.Profile, error)
	GetProfile(ctx context.Context) (*api.Profile, error)
	GetUserProfile(ctx context.Context, uid string) (*api.Profile, error)
}
