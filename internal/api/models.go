package api

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/meetsmatch/swipeclient/internal/rating"
)

// Timestamp accepts the formats the backend emits: RFC 3339, ISO 8601 without
// a zone, HTTP dates and null. The zero value means "no timestamp".
type Timestamp struct {
	time.Time
}

var timestampLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02 15:04:05.999999999",
	http.TimeFormat,
	time.RFC1123Z,
}

// UnmarshalJSON implements json.Unmarshaler
func (t *Timestamp) UnmarshalJSON(data []byte) error {
	if bytes.Equal(data, []byte("null")) {
		t.Time = time.Time{}
		return nil
	}

	var raw string
	if err := json.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("timestamp must be a string: %w", err)
	}
	if raw == "" {
		t.Time = time.Time{}
		return nil
	}

	for _, layout := range timestampLayouts {
		if parsed, err := time.Parse(layout, raw); err == nil {
			t.Time = parsed.UTC()
			return nil
		}
	}
	return fmt.Errorf("unrecognised timestamp %q", raw)
}

// MarshalJSON implements json.Marshaler
func (t Timestamp) MarshalJSON() ([]byte, error) {
	if t.IsZero() {
		return []byte("null"), nil
	}
	return json.Marshal(t.UTC().Format(time.RFC3339Nano))
}

// Location is where a profile says it is.
type Location struct {
	Latitude  float64 `json:"latitude,omitempty"`
	Longitude float64 `json:"longitude,omitempty"`
	City      string  `json:"city,omitempty"`
	Country   string  `json:"country,omitempty"`
}

// Profile is a candidate or counterpart snapshot as returned by the backend.
// The client never mutates a fetched profile except for AverageRating patches.
type Profile struct {
	UID           string                 `json:"uid"`
	DisplayName   string                 `json:"display_name"`
	Age           int                    `json:"age,omitempty"`
	Gender        string                 `json:"gender,omitempty"`
	Bio           string                 `json:"bio,omitempty"`
	Photos        []string               `json:"photos,omitempty"`
	Location      *Location              `json:"location,omitempty"`
	Interests     []string               `json:"interests,omitempty"`
	Details       map[string]interface{} `json:"profile_details,omitempty"`
	AverageRating *rating.Aggregate      `json:"average_rating,omitempty"`
}

// LikeResult is the backend's answer to a like.
type LikeResult struct {
	IsMatch bool   `json:"is_match"`
	MatchID string `json:"match_id,omitempty"`
	Message string `json:"message,omitempty"`
}

// Match is a mutual like. The backend flattens the counterpart's profile into
// the match; newer deployments also send it nested under match_profile.
type Match struct {
	MatchID      string    `json:"match_id"`
	UserUID      string    `json:"user_uid"`
	DisplayName  string    `json:"display_name,omitempty"`
	Bio          string    `json:"bio,omitempty"`
	Photos       []string  `json:"photos,omitempty"`
	CreatedAt    Timestamp `json:"created_at"`
	MatchProfile *Profile  `json:"match_profile,omitempty"`
	// Counterpart's rating aggregate, nil when nobody rated them yet
	AverageRating *rating.Aggregate `json:"average_rating,omitempty"`
}

// CounterpartID is the id of the other user in the match.
func (m Match) CounterpartID() string {
	if m.MatchProfile != nil && m.MatchProfile.UID != "" {
		return m.MatchProfile.UID
	}
	return m.UserUID
}

// Message is one chat line inside a match.
type Message struct {
	ID        string    `json:"id"`
	MatchID   string    `json:"match_id,omitempty"`
	SenderID  string    `json:"sender_uid"`
	Content   string    `json:"content"`
	CreatedAt Timestamp `json:"created_at"`
	Read      bool      `json:"read,omitempty"`
}

// Conversation summarises the chat for one match.
type Conversation struct {
	MatchID       string    `json:"match_id"`
	OtherUser     Profile   `json:"other_user"`
	LastMessage   *Message  `json:"last_message,omitempty"`
	LastMessageAt Timestamp `json:"last_message_at"`
	UnreadCount   int       `json:"unread_count"`
}

// SendResult identifies a message accepted by the backend.
type SendResult struct {
	MessageID string `json:"message_id"`
}

// RatingPayload is the body of a rating submit or update.
type RatingPayload struct {
	RatedUID string `json:"rated_uid,omitempty"`
	rating.Submission
}

// Rating is one stored rating.
type Rating struct {
	ID               string    `json:"id"`
	RaterUID         string    `json:"rater_uid"`
	RatedUID         string    `json:"rated_uid"`
	RaterDisplayName string    `json:"rater_display_name,omitempty"`
	Overall          float64   `json:"overall"`
	Personality      float64   `json:"personality"`
	Reliability      float64   `json:"reliability"`
	Communication    float64   `json:"communication"`
	Authenticity     float64   `json:"authenticity"`
	Comment          string    `json:"comment,omitempty"`
	CreatedAt        Timestamp `json:"created_at"`
	UpdatedAt        Timestamp `json:"updated_at"`
}

// UserRatings lists every rating a user received.
type UserRatings struct {
	Count   int      `json:"count"`
	Ratings []Rating `json:"ratings"`
}

type submitRatingResponse struct {
	RatingID string `json:"rating_id"`
}

type myRatingResponse struct {
	Exists bool    `json:"exists"`
	Rating *Rating `json:"rating"`
}

type unreadResponse struct {
	UnreadCount int `json:"unread_count"`
}

type errorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}
