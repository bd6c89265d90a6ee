package main

import (
	"fmt"
	"io"
	"strings"
	"sync"
	"text/tabwriter"

	"github.com/meetsmatch/swipeclient/internal/api"
	"github.com/meetsmatch/swipeclient/internal/rating"
)

// syncWriter serialises writes from background goroutines and the prompt
type syncWriter struct {
	mu sync.Mutex
	w  io.Writer
}

func (s *syncWriter) Write(p []byte) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.w.Write(p)
}

func printProfile(w io.Writer, p api.Profile) {
	header := p.DisplayName
	if header == "" {
		header = p.UID
	}
	if p.Age > 0 {
		header = fmt.Sprintf("%s, %d", header, p.Age)
	}
	fmt.Fprintf(w, "\n%s\n", header)
	if p.Location != nil && p.Location.City != "" {
		fmt.Fprintf(w, "  %s\n", p.Location.City)
	}
	if p.Bio != "" {
		fmt.Fprintf(w, "  %s\n", p.Bio)
	}
	if len(p.Interests) > 0 {
		fmt.Fprintf(w, "  interests: %s\n", strings.Join(p.Interests, ", "))
	}
	if p.AverageRating != nil {
		fmt.Fprintf(w, "  rating: %s\n", formatAggregate(p.AverageRating))
	}
}

func formatAggregate(agg *rating.Aggregate) string {
	if agg == nil || agg.Count == 0 {
		return "-"
	}
	return fmt.Sprintf("%.1f (%d)", agg.Overall, agg.Count)
}

func printMatches(w io.Writer, matches []api.Match) {
	if len(matches) == 0 {
		fmt.Fprintln(w, "No matches yet.")
		return
	}
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "MATCH\tUSER\tNAME\tRATING\tSINCE")
	for _, m := range matches {
		since := ""
		if !m.CreatedAt.IsZero() {
			since = m.CreatedAt.Format("2006-01-02")
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n",
			m.MatchID, m.CounterpartID(), m.DisplayName, formatAggregate(m.AverageRating), since)
	}
	tw.Flush()
}

func printConversations(w io.Writer, convos []api.Conversation) {
	if len(convos) == 0 {
		fmt.Fprintln(w, "No conversations yet.")
		return
	}
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "MATCH\tWITH\tUNREAD\tLAST MESSAGE\tAT")
	for _, c := range convos {
		last := ""
		if c.LastMessage != nil {
			last = truncate(c.LastMessage.Content, 40)
		}
		at := ""
		if !c.LastMessageAt.IsZero() {
			at = c.LastMessageAt.Format("2006-01-02 15:04")
		}
		name := c.OtherUser.DisplayName
		if name == "" {
			name = c.OtherUser.UID
		}
		fmt.Fprintf(tw, "%s\t%s\t%d\t%s\t%s\n", c.MatchID, name, c.UnreadCount, last, at)
	}
	tw.Flush()
}

func printMessage(w io.Writer, m api.Message, self string) {
	who := m.SenderID
	if who == self {
		who = "you"
	}
	at := ""
	if !m.CreatedAt.IsZero() {
		at = m.CreatedAt.Format("15:04") + " "
	}
	fmt.Fprintf(w, "%s%s: %s\n", at, who, m.Content)
}

func printRatings(w io.Writer, ratings *api.UserRatings) {
	if ratings == nil || len(ratings.Ratings) == 0 {
		fmt.Fprintln(w, "No ratings yet.")
		return
	}
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "FROM\tOVERALL\tPERSONALITY\tRELIABILITY\tCOMMUNICATION\tAUTHENTICITY\tCOMMENT")
	for _, r := range ratings.Ratings {
		from := r.RaterDisplayName
		if from == "" {
			from = r.RaterUID
		}
		fmt.Fprintf(tw, "%s\t%.1f\t%.1f\t%.1f\t%.1f\t%.1f\t%s\n",
			from, r.Overall, r.Personality, r.Reliability, r.Communication, r.Authenticity, truncate(r.Comment, 40))
	}
	tw.Flush()
	fmt.Fprintf(w, "%d rating(s)\n", ratings.Count)
}

func truncate(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n-1]) + "…"
}
