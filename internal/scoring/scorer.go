package scoring

import (
	"context"
	"fmt"
	"math"
	"time"

	"filmdex/pkg/models"
)

// Per-term caps. The rounded sum is naturally bounded to [0,100].
const (
	viewCap     = 40.0
	repWeight   = 30.0
	embedPoints = 10.0
	recencyCap  = 20.0
)

// Score computes a copy's 0-100 quality score from engagement and recency
// signals plus the channel's reputation in [0,1]. Pure and deterministic for
// a fixed now; missing inputs contribute zero rather than failing.
//
// View counts are scored logarithmically: a channel with 100M views is not
// 100x more valuable than one with 1M.
func Score(c models.Copy, reputation float64, now time.Time) int {
	total := 0.0

	if c.ViewCount > 0 {
		total += math.Min(math.Log10(float64(c.ViewCount))*5, viewCap)
	}

	if reputation > 0 {
		if reputation > 1 {
			reputation = 1
		}
		total += reputation * repWeight
	}

	if c.Embeddable {
		total += embedPoints
	}

	if c.PublishedAt != nil {
		years := now.Sub(*c.PublishedAt).Hours() / (24 * 365.25)
		if years < 0 {
			// future publish dates (clock skew, bad feed data) count as brand
			// new, they must not push the term past its cap
			years = 0
		}
		total += math.Max(recencyCap-years*10, 0)
	}

	return int(math.Round(total))
}

// Scorer binds the pure formula to an injected reputation model.
type Scorer struct {
	Rep ReputationModel
	Now func() time.Time
}

func NewScorer(rep ReputationModel) *Scorer {
	return &Scorer{Rep: rep, Now: time.Now}
}

func (s *Scorer) ScoreCopy(ctx context.Context, c models.Copy) (int, error) {
	rep, err := s.Rep.Reputation(ctx, c.ChannelID)
	if err != nil {
		return 0, fmt.Errorf("reputation for channel %s: %w", c.ChannelID, err)
	}
	return Score(c, rep, s.Now()), nil
}
