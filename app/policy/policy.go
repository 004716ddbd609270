package policy

import (
	"context"
	"fmt"
	"math/rand/v2"
	"time"

	"github.com/lysyi3m/social-comb/app/database"
)

const (
	ReasonOutsideHours = "Outside posting hours"
	ReasonDailyLimit   = "Daily limit reached"
)

type PostCounter interface {
	CountCreatedSince(ctx context.Context, since time.Time, statuses ...database.PostStatus) (int, error)
}

type Decision struct {
	Allowed bool   `json:"allowed"`
	Reason  string `json:"reason,omitempty"`
}

// Policy decides whether automatic content generation may run right now.
type Policy struct {
	Posts      PostCounter
	HoursStart int
	HoursEnd   int
	MaxPerDay  int
}

func New(posts PostCounter, hoursStart, hoursEnd, maxPerDay int) *Policy {
	return &Policy{Posts: posts, HoursStart: hoursStart, HoursEnd: hoursEnd, MaxPerDay: maxPerDay}
}

// Check applies the posting window first, then the daily cap on posts that are
// published or scheduled and were created since local midnight.
func (p *Policy) Check(ctx context.Context, now time.Time) (Decision, error) {
	if !WithinPostingHours(now, p.HoursStart, p.HoursEnd) {
		return Decision{Reason: ReasonOutsideHours}, nil
	}

	count, err := p.Posts.CountCreatedSince(ctx, StartOfDay(now), database.StatusPublished, database.StatusScheduled)
	if err != nil {
		return Decision{}, fmt.Errorf("failed to count today's posts: %w", err)
	}

	if !UnderDailyCap(count, p.MaxPerDay) {
		return Decision{Reason: ReasonDailyLimit}, nil
	}

	return Decision{Allowed: true}, nil
}

// WithinPostingHours reports whether start <= hour < end in now's location.
func WithinPostingHours(now time.Time, start, end int) bool {
	hour := now.Hour()
	return hour >= start && hour < end
}

func UnderDailyCap(count, limit int) bool {
	return count < limit
}

func StartOfDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}

// NextSlot picks a publish time one to four whole hours after now.
func NextSlot(now time.Time, rnd *rand.Rand) time.Time {
	var n int
	if rnd != nil {
		n = rnd.IntN(4)
	} else {
		n = rand.IntN(4)
	}
	return now.Add(time.Duration(n+1) * time.Hour)
}

var transitions = map[database.PostStatus][]database.PostStatus{
	database.StatusDraft:      {database.StatusScheduled, database.StatusPublishing, database.StatusFailed},
	database.StatusScheduled:  {database.StatusDraft, database.StatusPublishing, database.StatusFailed},
	database.StatusPublishing: {database.StatusPublished, database.StatusFailed},
	database.StatusFailed:     {database.StatusDraft, database.StatusScheduled, database.StatusPublishing},
	database.StatusPublished:  {},
}

// CanTransition reports whether a post may move from one status to another.
// PUBLISHED is terminal.
func CanTransition(from, to database.PostStatus) bool {
	if from == to {
		return from != database.StatusPublished
	}
	for _, s := range transitions[from] {
		if s == to {
			return true
		}
	}
	return false
}
