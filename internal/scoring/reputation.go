package scoring

import "context"

// ReputationModel scores a source channel in [0,1]. Kept as an interface so
// the stub below can be swapped for a real model without touching the
// scoring formula.
type ReputationModel interface {
	Reputation(ctx context.Context, channelID string) (float64, error)
}

// StubReputation returns the same value for every channel. The shipped
// default is 0.5 pending a real reputation model.
type StubReputation struct {
	Value float64
}

func DefaultReputation() StubReputation {
	return StubReputation{Value: 0.5}
}

func (s StubReputation) Reputation(_ context.Context, _ string) (float64, error) {
	return s.Value, nil
}
