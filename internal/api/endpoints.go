package api

import (
	"context"
	"net/http"
	"strings"

	apperrors "github.com/meetsmatch/swipeclient/internal/errors"
)

func requireID(field, value string) error {
	if strings.TrimSpace(value) == "" {
		return apperrors.NewValidationError(field, field+" is required")
	}
	return nil
}

// Auth and profiles

// Me returns the signed-in user's profile as the auth endpoint sees it.
func (c *Client) Me(ctx context.Context) (*Profile, error) {
	var p Profile
	if err := c.do(ctx, http.MethodGet, "/api/auth/me", "me", nil, &p); err != nil {
		return nil, err
	}
	return &p, nil
}

// GetProfile returns the signed-in user's own profile.
func (c *Client) GetProfile(ctx context.Context) (*Profile, error) {
	var p Profile
	if err := c.do(ctx, http.MethodGet, "/api/profiles/", "get_profile", nil, &p); err != nil {
		return nil, err
	}
	return &p, nil
}

// GetUserProfile returns another user's public profile.
func (c *Client) GetUserProfile(ctx context.Context, uid string) (*Profile, error) {
	if err := requireID("uid", uid); err != nil {
		return nil, err
	}
	var p Profile
	if err := c.do(ctx, http.MethodGet, "/api/profiles/"+escape(uid), "get_user_profile", nil, &p); err != nil {
		return nil, err
	}
	return &p, nil
}

// Discover returns the next batch of candidate profiles in backend order.
func (c *Client) Discover(ctx context.Context) ([]Profile, error) {
	var profiles []Profile
	if err := c.do(ctx, http.MethodGet, "/api/profiles/discover", "discover", nil, &profiles); err != nil {
		return nil, err
	}
	return profiles, nil
}

// Matches

// Like records a like for uid and reports whether it completed a match.
func (c *Client) Like(ctx context.Context, uid string) (*LikeResult, error) {
	if err := requireID("candidate_id", uid); err != nil {
		return nil, err
	}
	var res LikeResult
	if err := c.do(ctx, http.MethodPost, "/api/matches/like/"+escape(uid), "like", nil, &res); err != nil {
		return nil, err
	}
	return &res, nil
}

// Dislike records a dislike for uid.
func (c *Client) Dislike(ctx context.Context, uid string) error {
	if err := requireID("candidate_id", uid); err != nil {
		return err
	}
	return c.do(ctx, http.MethodPost, "/api/matches/dislike/"+escape(uid), "dislike", nil, nil)
}

// Matches lists the viewer's active matches.
func (c *Client) Matches(ctx context.Context) ([]Match, error) {
	var matches []Match
	if err := c.do(ctx, http.MethodGet, "/api/matches/matches", "matches", nil, &matches); err != nil {
		return nil, err
	}
	return matches, nil
}

// Unmatch deactivates a match.
func (c *Client) Unmatch(ctx context.Context, matchID string) error {
	if err := requireID("match_id", matchID); err != nil {
		return err
	}
	return c.do(ctx, http.MethodPost, "/api/matches/unmatch/"+escape(matchID), "unmatch", nil, nil)
}

// ClearLikes removes every like and dislike the viewer has given.
func (c *Client) ClearLikes(ctx context.Context) error {
	return c.do(ctx, http.MethodPost, "/api/matches/clear-likes", "clear_likes", nil, nil)
}

// Messages

// Conversations lists one summary per active match, as the backend returns it.
func (c *Client) Conversations(ctx context.Context) ([]Conversation, error) {
	var convos []Conversation
	if err := c.do(ctx, http.MethodGet, "/api/messages/conversations", "conversations", nil, &convos); err != nil {
		return nil, err
	}
	return convos, nil
}

// Messages returns the messages of a match, oldest first.
func (c *Client) Messages(ctx context.Context, matchID string) ([]Message, error) {
	if err := requireID("match_id", matchID); err != nil {
		return nil, err
	}
	var msgs []Message
	if err := c.do(ctx, http.MethodGet, "/api/messages/"+escape(matchID), "get_messages", nil, &msgs); err != nil {
		return nil, err
	}
	return msgs, nil
}

// SendMessage posts content to a match.
func (c *Client) SendMessage(ctx context.Context, matchID, content string) (*SendResult, error) {
	if err := requireID("match_id", matchID); err != nil {
		return nil, err
	}
	if strings.TrimSpace(content) == "" {
		return nil, apperrors.NewValidationError("content", "message content is required")
	}
	var res SendResult
	body := map[string]string{"content": content}
	if err := c.do(ctx, http.MethodPost, "/api/messages/"+escape(matchID), "send_message", body, &res); err != nil {
		return nil, err
	}
	return &res, nil
}

// UnreadCount returns how many messages in a match the viewer has not read.
func (c *Client) UnreadCount(ctx context.Context, matchID string) (int, error) {
	if err := requireID("match_id", matchID); err != nil {
		return 0, err
	}
	var res unreadResponse
	if err := c.do(ctx, http.MethodGet, "/api/messages/"+escape(matchID)+"/unread", "unread_count", nil, &res); err != nil {
		return 0, err
	}
	return res.UnreadCount, nil
}

// Ratings

// SubmitRating creates the viewer's rating of payload.RatedUID and returns its id.
func (c *Client) SubmitRating(ctx context.Context, payload RatingPayload) (string, error) {
	if err := requireID("rated_uid", payload.RatedUID); err != nil {
		return "", err
	}
	if err := payload.Validate(); err != nil {
		return "", err
	}
	var res submitRatingResponse
	if err := c.do(ctx, http.MethodPost, "/api/ratings", "submit_rating", payload, &res); err != nil {
		return "", err
	}
	return res.RatingID, nil
}

// UpdateRating replaces the fields of an existing rating.
func (c *Client) UpdateRating(ctx context.Context, ratingID string, payload RatingPayload) error {
	if err := requireID("rating_id", ratingID); err != nil {
		return err
	}
	if err := payload.Validate(); err != nil {
		return err
	}
	return c.do(ctx, http.MethodPut, "/api/ratings/"+escape(ratingID), "update_rating", payload, nil)
}

// DeleteRating removes one of the viewer's ratings.
func (c *Client) DeleteRating(ctx context.Context, ratingID string) error {
	if err := requireID("rating_id", ratingID); err != nil {
		return err
	}
	return c.do(ctx, http.MethodDelete, "/api/ratings/"+escape(ratingID), "delete_rating", nil, nil)
}

// UserRatings returns every rating uid has received.
func (c *Client) UserRatings(ctx context.Context, uid string) (*UserRatings, error) {
	if err := requireID("uid", uid); err != nil {
		return nil, err
	}
	var res UserRatings
	if err := c.do(ctx, http.MethodGet, "/api/ratings/"+escape(uid), "user_ratings", nil, &res); err != nil {
		return nil, err
	}
	return &res, nil
}

// MyRating returns the viewer's rating of uid, or nil if there is none.
func (c *Client) MyRating(ctx context.Context, uid string) (*Rating, error) {
	if err := requireID("uid", uid); err != nil {
		return nil, err
	}
	var res myRatingResponse
	if err := c.do(ctx, http.MethodGet, "/api/ratings/my/"+escape(uid), "my_rating", nil, &res); err != nil {
		return nil, err
	}
	if !res.Exists {
		return nil, nil
	}
	return res.Rating, nil
}

// ClearRatings removes every rating given by or to the viewer.
func (c *Client) ClearRatings(ctx context.Context) error {
	return c.do(ctx, http.MethodPost, "/api/ratings/clear-all", "clear_ratings", nil, nil)
}
