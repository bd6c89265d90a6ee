package services

import (
	"context"
	"net/http"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/meetsmatch/swipeclient/internal/api"
	apperrors "github.com/meetsmatch/swipeclient/internal/errors"
	"github.com/meetsmatch/swipeclient/internal/rating"
)

func matchIDs(convos []api.Conversation) []string {
	out := make([]string, 0, len(convos))
	for _, c := range convos {
		out = append(out, c.MatchID)
	}
	return out
}

func TestMergeConversations_KeepsNewestDuplicate(t *testing.T) {
	raw := []api.Conversation{
		{MatchID: "m1", UnreadCount: 1, LastMessageAt: ts(t, "2024-05-01T10:00:00Z")},
		{MatchID: "m2", LastMessageAt: ts(t, "2024-05-01T09:00:00Z")},
		{MatchID: "m1", UnreadCount: 3, LastMessageAt: ts(t, "2024-05-01T11:00:00Z")},
	}

	merged := MergeConversations(raw)
	require.Len(t, merged, 2)
	assert.Equal(t, []string{"m1", "m2"}, matchIDs(merged))
	assert.Equal(t, 3, merged[0].UnreadCount)
}

func TestMergeConversations_MissingTimestampIsOldest(t *testing.T) {
	raw := []api.Conversation{
		{MatchID: "new-match"},
		{MatchID: "m1", LastMessageAt: ts(t, "2024-05-01T10:00:00Z")},
		{MatchID: "m1"},
		{MatchID: "m2", LastMessageAt: ts(t, "2024-05-02T10:00:00Z")},
		{MatchID: ""},
	}

	merged := MergeConversations(raw)
	assert.Equal(t, []string{"m2", "m1", "new-match"}, matchIDs(merged))
	assert.False(t, merged[1].LastMessageAt.IsZero())
}

func TestMergeConversations_IsIdempotentAndStable(t *testing.T) {
	same := ts(t, "2024-05-01T10:00:00Z")
	raw := []api.Conversation{
		{MatchID: "a", LastMessageAt: same},
		{MatchID: "b", LastMessageAt: ts(t, "2024-06-01T10:00:00Z")},
		{MatchID: "c", LastMessageAt: same},
		{MatchID: "a", LastMessageAt: ts(t, "2024-04-01T10:00:00Z")},
	}

	once := MergeConversations(raw)
	twice := MergeConversations(once)
	assert.Equal(t, once, twice)
	assert.Equal(t, []string{"b", "a", "c"}, matchIDs(once))

	assert.Empty(t, MergeConversations(nil))
}

func TestReconciler_LoadConversationsMergesServerList(t *testing.T) {
	client := newFakeBackend(t, func(r *gin.Engine) {
		r.GET("/api/messages/conversations", func(c *gin.Context) {
			c.JSON(http.StatusOK, []gin.H{
				{"match_id": "m1", "other_user": gin.H{"uid": "u1"}, "last_message_at": "2024-05-01T10:00:00Z", "unread_count": 1},
				{"match_id": "m2", "other_user": gin.H{"uid": "u2"}, "last_message_at": nil},
				{"match_id": "m1", "other_user": gin.H{"uid": "u1"}, "last_message_at": "2024-05-01T12:00:00Z", "unread_count": 4},
			})
		})
	})

	reconciler := NewReconciler(client)
	convos, err := reconciler.LoadConversations(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"m1", "m2"}, matchIDs(convos))
	assert.Equal(t, 4, convos[0].UnreadCount)
	assert.Equal(t, convos, reconciler.Conversations())
}

func unmatchBackend(t *testing.T, status int) *api.Client {
	return newFakeBackend(t, func(r *gin.Engine) {
		r.GET("/api/matches/matches", func(c *gin.Context) {
			c.JSON(http.StatusOK, []gin.H{
				{"match_id": "m1", "user_uid": "u1", "display_name": "Ana"},
				{"match_id": "m2", "user_uid": "u2", "display_name": "Bo"},
			})
		})
		r.GET("/api/messages/conversations", func(c *gin.Context) {
			c.JSON(http.StatusOK, []gin.H{
				{"match_id": "m1", "other_user": gin.H{"uid": "u1"}},
				{"match_id": "m2", "other_user": gin.H{"uid": "u2"}},
			})
		})
		r.POST("/api/matches/unmatch/:id", func(c *gin.Context) {
			if status != http.StatusOK {
				c.JSON(status, gin.H{"error": "cannot unmatch"})
				return
			}
			c.JSON(http.StatusOK, gin.H{"message": "unmatched " + c.Param("id")})
		})
	})
}

func TestReconciler_UnmatchRemovesFromBothLists(t *testing.T) {
	ctx := context.Background()
	reconciler := NewReconciler(unmatchBackend(t, http.StatusOK))
	_, err := reconciler.LoadMatches(ctx)
	require.NoError(t, err)
	_, err = reconciler.LoadConversations(ctx)
	require.NoError(t, err)

	require.NoError(t, reconciler.Unmatch(ctx, "m1"))

	matches := reconciler.Matches()
	require.Len(t, matches, 1)
	assert.Equal(t, "m2", matches[0].MatchID)
	assert.Equal(t, []string{"m2"}, matchIDs(reconciler.Conversations()))

	_, ok := reconciler.FindMatch("m1")
	assert.False(t, ok)
}

func TestReconciler_UnmatchFailureLeavesListsUnchanged(t *testing.T) {
	ctx := context.Background()
	reconciler := NewReconciler(unmatchBackend(t, http.StatusInternalServerError))
	_, err := reconciler.LoadMatches(ctx)
	require.NoError(t, err)
	_, err = reconciler.LoadConversations(ctx)
	require.NoError(t, err)

	err = reconciler.Unmatch(ctx, "m1")
	require.Error(t, err)
	assert.True(t, apperrors.IsRetryable(err))

	assert.Len(t, reconciler.Matches(), 2)
	assert.Len(t, reconciler.Conversations(), 2)
}

func ratingBackend(t *testing.T) *api.Client {
	return newFakeBackend(t, func(r *gin.Engine) {
		r.GET("/api/matches/matches", func(c *gin.Context) {
			c.JSON(http.StatusOK, []gin.H{
				{"match_id": "m1", "user_uid": "fresh"},
				{
					"match_id": "m2", "user_uid": "rated",
					"match_profile": gin.H{"uid": "rated"},
					"average_rating": gin.H{
						"overall": 3.0, "personality": 3.5, "reliability": 4.0,
						"communication": 2.5, "authenticity": 4.5, "rating_count": 2,
					},
				},
			})
		})
		r.GET("/api/messages/conversations", func(c *gin.Context) {
			c.JSON(http.StatusOK, []gin.H{
				{"match_id": "m1", "other_user": gin.H{"uid": "fresh"}},
				{"match_id": "m3", "other_user": gin.H{"uid": "someone-else"}},
			})
		})
	})
}

func TestReconciler_ApplyRatingPatch(t *testing.T) {
	ctx := context.Background()
	reconciler := NewReconciler(ratingBackend(t))
	_, err := reconciler.LoadMatches(ctx)
	require.NoError(t, err)
	_, err = reconciler.LoadConversations(ctx)
	require.NoError(t, err)

	sub := rating.Submission{Overall: 5, Personality: 4, Reliability: 3, Communication: 2, Authenticity: 1}

	patched, err := reconciler.ApplyRatingPatch("fresh", sub)
	require.NoError(t, err)
	assert.Equal(t, 2, patched)

	m1, ok := reconciler.FindMatch("m1")
	require.True(t, ok)
	require.NotNil(t, m1.AverageRating)
	assert.Equal(t, rating.Aggregate{
		Overall: 5, Personality: 4, Reliability: 3, Communication: 2, Authenticity: 1, Count: 1,
	}, *m1.AverageRating)

	convos := reconciler.Conversations()
	require.NotNil(t, convos[0].OtherUser.AverageRating)
	assert.Equal(t, 1, convos[0].OtherUser.AverageRating.Count)
	assert.Nil(t, convos[1].OtherUser.AverageRating)

	patched, err = reconciler.ApplyRatingPatch("rated", sub)
	require.NoError(t, err)
	assert.Equal(t, 1, patched)

	m2, _ := reconciler.FindMatch("m2")
	assert.Equal(t, rating.Aggregate{
		Overall: 5, Personality: 3.5, Reliability: 4, Communication: 2.5, Authenticity: 4.5, Count: 3,
	}, *m2.AverageRating)
	assert.Equal(t, m2.AverageRating, m2.MatchProfile.AverageRating)

	patched, err = reconciler.ApplyRatingPatch("nobody", sub)
	require.NoError(t, err)
	assert.Zero(t, patched)
}

func TestReconciler_ApplyRatingPatchRejectsInvalidSubmission(t *testing.T) {
	ctx := context.Background()
	reconciler := NewReconciler(ratingBackend(t))
	_, err := reconciler.LoadMatches(ctx)
	require.NoError(t, err)

	_, err = reconciler.ApplyRatingPatch("fresh", rating.Submission{Overall: 6})
	assert.True(t, apperrors.IsErrorType(err, apperrors.ErrorTypeValidation))

	m1, _ := reconciler.FindMatch("m1")
	assert.Nil(t, m1.AverageRating)
}

func TestReconciler_LoadSupersedesPatch(t *testing.T) {
	ctx := context.Background()
	reconciler := NewReconciler(ratingBackend(t))
	_, err := reconciler.LoadMatches(ctx)
	require.NoError(t, err)

	_, err = reconciler.ApplyRatingPatch("rated", rating.Submission{Overall: 1})
	require.NoError(t, err)
	m2, _ := reconciler.FindMatch("m2")
	assert.Equal(t, 3, m2.AverageRating.Count)

	_, err = reconciler.LoadMatches(ctx)
	require.NoError(t, err)
	m2, _ = reconciler.FindMatch("m2")
	assert.Equal(t, 2, m2.AverageRating.Count)
	assert.Equal(t, 3.0, m2.AverageRating.Overall)
}
