package scoring

import (
	"context"
	"testing"
	"time"

	"filmdex/pkg/models"
)

var now = time.Date(2026, 9, 1, 12, 0, 0, 0, time.UTC)

func ts(t time.Time) *time.Time { return &t }

func TestScoreZeroInputs(t *testing.T) {
	if got := Score(models.Copy{}, 0, now); got != 0 {
		t.Fatalf("empty copy: got %d, want 0", got)
	}
}

func TestScoreViewTerm(t *testing.T) {
	cases := []struct {
		views int64
		want  int
	}{
		{0, 0},
		{10, 5},       // log10(10)*5
		{1_000, 15},   // log10(1e3)*5
		{1_000_000, 30},
		{100_000_000, 40}, // capped
		{10_000_000_000, 40},
	}
	for _, tc := range cases {
		got := Score(models.Copy{ViewCount: tc.views}, 0, now)
		if got != tc.want {
			t.Errorf("views=%d: got %d, want %d", tc.views, got, tc.want)
		}
	}
}

func TestScoreReputationTerm(t *testing.T) {
	if got := Score(models.Copy{}, 0.5, now); got != 15 {
		t.Errorf("rep 0.5: got %d, want 15", got)
	}
	if got := Score(models.Copy{}, 1.0, now); got != 30 {
		t.Errorf("rep 1.0: got %d, want 30", got)
	}
	// out-of-range reputation is clamped, not amplified
	if got := Score(models.Copy{}, 3.0, now); got != 30 {
		t.Errorf("rep 3.0: got %d, want 30", got)
	}
}

func TestScoreEmbeddableTerm(t *testing.T) {
	if got := Score(models.Copy{Embeddable: true}, 0, now); got != 10 {
		t.Errorf("embeddable: got %d, want 10", got)
	}
}

func TestScoreRecencyTerm(t *testing.T) {
	cases := []struct {
		published *time.Time
		want      int
	}{
		{ts(now), 20},
		{ts(now.AddDate(-1, 0, 0)), 10},
		{ts(now.AddDate(-2, 0, 0)), 0},
		{ts(now.AddDate(-5, 0, 0)), 0},
		{nil, 0},
	}
	for _, tc := range cases {
		got := Score(models.Copy{PublishedAt: tc.published}, 0, now)
		if got != tc.want {
			t.Errorf("published=%v: got %d, want %d", tc.published, got, tc.want)
		}
	}
}

func TestScoreMonotonicInViews(t *testing.T) {
	base := models.Copy{Embeddable: true, PublishedAt: ts(now.AddDate(0, -6, 0))}
	prev := -1
	for _, views := range []int64{0, 1, 10, 500, 10_000, 1_000_000, 1_000_000_000} {
		c := base
		c.ViewCount = views
		got := Score(c, 0.5, now)
		if got < prev {
			t.Fatalf("score decreased at views=%d: %d < %d", views, got, prev)
		}
		prev = got
	}
}

func TestScoreNonIncreasingInAge(t *testing.T) {
	prev := 101
	for months := 0; months <= 36; months += 6 {
		c := models.Copy{ViewCount: 1000, PublishedAt: ts(now.AddDate(0, -months, 0))}
		got := Score(c, 0.5, now)
		if got > prev {
			t.Fatalf("score increased at age %d months: %d > %d", months, got, prev)
		}
		prev = got
	}
}

func TestScoreFuturePublishCappedAtRecencyMax(t *testing.T) {
	c := models.Copy{PublishedAt: ts(now.AddDate(2, 0, 0))}
	if got := Score(c, 0, now); got != 20 {
		t.Fatalf("future publish: got %d, want 20", got)
	}

	c = models.Copy{
		ViewCount:   1_000_000_000_000,
		Embeddable:  true,
		PublishedAt: ts(now.AddDate(2, 0, 0)),
	}
	if got := Score(c, 1.0, now); got != 100 {
		t.Fatalf("maxed inputs with future publish: got %d, want 100", got)
	}
}

func TestScoreBounded(t *testing.T) {
	c := models.Copy{
		ViewCount:   1_000_000_000_000,
		Embeddable:  true,
		PublishedAt: ts(now),
	}
	if got := Score(c, 1.0, now); got != 100 {
		t.Fatalf("maxed inputs: got %d, want 100", got)
	}
}

func TestScorerUsesInjectedReputation(t *testing.T) {
	s := NewScorer(StubReputation{Value: 1.0})
	s.Now = func() time.Time { return now }

	got, err := s.ScoreCopy(context.Background(), models.Copy{ChannelID: "ch1", ViewCount: 1000})
	if err != nil {
		t.Fatalf("score copy: %v", err)
	}
	if got != 45 { // 15 views + 30 reputation
		t.Fatalf("got %d, want 45", got)
	}
}
