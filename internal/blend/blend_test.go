package blend

import (
	"math/rand"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yourusername/oscar-odds/internal/models"
)

const (
	bestPicture = "best_picture"
	tolerance   = 1e-9
)

type recordingSink struct {
	unmatched []string
	ambiguous [][]string
}

func (r *recordingSink) UnmatchedSignal(categoryID, target string, signal models.PrecursorSignal) {
	r.unmatched = append(r.unmatched, target)
}

func (r *recordingSink) AmbiguousMatch(categoryID, target string, signal models.PrecursorSignal, matched []string) {
	r.ambiguous = append(r.ambiguous, matched)
}

func work(id string, noms int) models.Candidate {
	return models.Candidate{
		CategoryID:         bestPicture,
		CandidateID:        id,
		Nominee:            models.Work(id),
		RawNominationCount: noms,
	}
}

func threeFilms() []models.Candidate {
	return []models.Candidate{
		work("Sinners", 15),
		work("Hamnet", 9),
		work("Bugonia", 2),
	}
}

func sum(values []float64) float64 {
	total := 0.0
	for _, v := range values {
		total += v
	}
	return total
}

func finalByID(t *testing.T, d *models.CategoryDistribution, id string) float64 {
	t.Helper()
	e, ok := d.Lookup(id)
	require.True(t, ok, "candidate %s missing", id)
	return e.FinalProbability
}

func TestBlendNominationSharePrior(t *testing.T) {
	dist, err := Blend(threeFilms(), nil)
	require.NoError(t, err)

	assert.InDelta(t, 15.0/26, finalByID(t, dist, "Sinners"), tolerance)
	assert.InDelta(t, 9.0/26, finalByID(t, dist, "Hamnet"), tolerance)
	assert.InDelta(t, 2.0/26, finalByID(t, dist, "Bugonia"), tolerance)
	assert.InDelta(t, 1.0, sum(dist.Probabilities()), tolerance)

	for _, e := range dist.Entries {
		assert.Equal(t, e.BaseProbability, e.FinalProbability)
	}
	assert.Equal(t, "Sinners", dist.Top().Candidate.CandidateID)
}

func TestBlendDramaBoostChangesLeader(t *testing.T) {
	signals := SignalSet{
		"Hamnet": {{SignalName: "golden_globes_drama", Won: true, Tier: models.TierDrama}},
	}

	dist, err := Blend(threeFilms(), signals)
	require.NoError(t, err)

	weights := []float64{15.0 / 26, 9.0 / 26 * 1.8, 2.0 / 26}
	total := sum(weights)

	assert.InDelta(t, weights[0]/total, finalByID(t, dist, "Sinners"), tolerance)
	assert.InDelta(t, weights[1]/total, finalByID(t, dist, "Hamnet"), tolerance)
	assert.InDelta(t, weights[2]/total, finalByID(t, dist, "Bugonia"), tolerance)
	assert.InDelta(t, 0.452, finalByID(t, dist, "Sinners"), 1e-3)
	assert.InDelta(t, 0.488, finalByID(t, dist, "Hamnet"), 1e-3)
	assert.InDelta(t, 0.060, finalByID(t, dist, "Bugonia"), 1e-3)

	top := dist.Top()
	assert.Equal(t, "Hamnet", top.Candidate.CandidateID)
	assert.Equal(t, []string{"golden_globes_drama"}, top.AppliedBoosts)
	assert.InDelta(t, weights[1], top.WorkingWeight, tolerance)
}

func TestBlendAllZeroNominationsFails(t *testing.T) {
	candidates := []models.Candidate{work("A", 0), work("B", 0), work("C", 0)}

	_, err := Blend(candidates, nil)
	require.Error(t, err)
	assert.ErrorIs(t, err, models.ErrInvalidInput)
}

func TestBlendZeroNominationsWithBaseProbabilities(t *testing.T) {
	candidates := []models.Candidate{
		work("A", 0).WithBaseProbability(0.2),
		work("B", 0).WithBaseProbability(0.6),
	}

	dist, err := Blend(candidates, nil)
	require.NoError(t, err)
	assert.InDelta(t, 0.75, finalByID(t, dist, "B"), tolerance)
	assert.InDelta(t, 0.25, finalByID(t, dist, "A"), tolerance)
}

func TestBlendDivisionByZero(t *testing.T) {
	candidates := []models.Candidate{
		work("A", 3).WithBaseProbability(0),
		work("B", 1).WithBaseProbability(0),
	}

	_, err := Blend(candidates, nil)
	require.Error(t, err)
	assert.ErrorIs(t, err, models.ErrDivisionByZero)
}

func TestBlendRejectsInvalidInput(t *testing.T) {
	tests := []struct {
		name       string
		candidates []models.Candidate
	}{
		{name: "empty", candidates: nil},
		{name: "duplicate id", candidates: []models.Candidate{work("A", 1), work("A", 2)}},
		{name: "negative nominations", candidates: []models.Candidate{work("A", -1), work("B", 2)}},
		{name: "base above one", candidates: []models.Candidate{work("A", 1).WithBaseProbability(1.2)}},
		{name: "base below zero", candidates: []models.Candidate{work("A", 1).WithBaseProbability(-0.1)}},
		{
			name: "mixed categories",
			candidates: []models.Candidate{
				work("A", 1),
				{CategoryID: "best_director", CandidateID: "B", RawNominationCount: 1},
			},
		},
		{
			name: "sentiment out of range",
			candidates: []models.Candidate{
				{CategoryID: bestPicture, CandidateID: "A", RawNominationCount: 1, Sentiment: models.Float(1.5)},
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Blend(tt.candidates, nil)
			require.Error(t, err)
			assert.ErrorIs(t, err, models.ErrInvalidInput)
		})
	}
}

func TestBlendUnknownTier(t *testing.T) {
	signals := SignalSet{"Hamnet": {{SignalName: "mystery", Won: true, Tier: "penalty"}}}

	_, err := Blend(threeFilms(), signals)
	require.Error(t, err)
	assert.ErrorIs(t, err, models.ErrUnknownTier)
}

func TestBlendIgnoresLostSignals(t *testing.T) {
	signals := SignalSet{"Hamnet": {{SignalName: "bafta", Won: false, Tier: models.TierDrama}}}

	dist, err := Blend(threeFilms(), signals)
	require.NoError(t, err)
	assert.InDelta(t, 9.0/26, finalByID(t, dist, "Hamnet"), tolerance)
	e, _ := dist.Lookup("Hamnet")
	assert.False(t, e.Boosted())
}

func TestBlendDoesNotMutateInputs(t *testing.T) {
	candidates := threeFilms()
	signals := SignalSet{"Hamnet": {{SignalName: "gg", Won: true, Tier: models.TierDrama}}}

	_, err := Blend(candidates, signals)
	require.NoError(t, err)

	assert.Equal(t, threeFilms(), candidates)
	assert.Len(t, signals["Hamnet"], 1)
	for _, c := range candidates {
		assert.Nil(t, c.BaseProbability)
	}
}

func TestBlendIsIdempotent(t *testing.T) {
	candidates := threeFilms()
	signals := SignalSet{
		"Hamnet":  {{SignalName: "gg_drama", Won: true, Tier: models.TierDrama}},
		"Sinners": {{SignalName: "gg_score", Won: true, Tier: models.TierScore}},
	}

	first, err := Blend(candidates, signals)
	require.NoError(t, err)
	second, err := Blend(candidates, signals)
	require.NoError(t, err)

	assert.Equal(t, first.Entries, second.Entries)
}

func TestBlendBoostsCommute(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	tiers := []models.BoostTier{
		models.TierDrama, models.TierMusical, models.TierSupporting,
		models.TierDirector, models.TierScore, models.TierUngrouped,
	}

	for trial := 0; trial < 50; trial++ {
		n := 1 + rng.Intn(8)
		own := make([]models.PrecursorSignal, n)
		for i := range own {
			own[i] = models.PrecursorSignal{
				SignalName: string(rune('a' + i)),
				Won:        rng.Intn(4) != 0,
				Tier:       tiers[rng.Intn(len(tiers))],
			}
		}

		reference, err := Blend(threeFilms(), SignalSet{"Bugonia": own})
		require.NoError(t, err)
		want, _ := reference.Lookup("Bugonia")

		for perm := 0; perm < 10; perm++ {
			shuffled := make([]models.PrecursorSignal, n)
			copy(shuffled, own)
			rng.Shuffle(n, func(i, j int) { shuffled[i], shuffled[j] = shuffled[j], shuffled[i] })

			dist, err := Blend(threeFilms(), SignalSet{"Bugonia": shuffled})
			require.NoError(t, err)
			got, _ := dist.Lookup("Bugonia")
			assert.Equal(t, want.WorkingWeight, got.WorkingWeight)
			assert.Equal(t, want.AppliedBoosts, got.AppliedBoosts)
		}
	}
}

func TestBlendMonotonicInSignals(t *testing.T) {
	candidates := []models.Candidate{work("Twin A", 5), work("Twin B", 5), work("Other", 3)}
	base := SignalSet{
		"Twin A": {{SignalName: "sag", Won: true, Tier: models.TierSupporting}},
		"Twin B": {{SignalName: "sag", Won: true, Tier: models.TierSupporting}},
	}
	extra := base.Clone()
	extra["Twin A"] = append(extra["Twin A"], models.PrecursorSignal{SignalName: "bafta", Won: true, Tier: models.TierMusical})

	dist, err := Blend(candidates, extra)
	require.NoError(t, err)
	assert.Greater(t, finalByID(t, dist, "Twin A"), finalByID(t, dist, "Twin B"))
	assert.Len(t, base["Twin A"], 1)
}

func TestBlendTiesKeepInputOrder(t *testing.T) {
	candidates := []models.Candidate{work("C", 4), work("A", 4), work("B", 4), work("D", 8)}

	dist, err := Blend(candidates, nil)
	require.NoError(t, err)

	order := make([]string, len(dist.Entries))
	for i, e := range dist.Entries {
		order[i] = e.Candidate.CandidateID
	}
	assert.Equal(t, []string{"D", "C", "A", "B"}, order)
}

func TestBlendUnmatchedSignalIsNonFatal(t *testing.T) {
	sink := &recordingSink{}
	signals := SignalSet{
		"Wicked: For Good": {{SignalName: "gg_musical", Won: true, Tier: models.TierMusical}},
	}

	dist, err := NewBlender(WithEventSink(sink)).Blend(threeFilms(), signals)
	require.NoError(t, err)
	assert.Len(t, dist.Entries, 3)
	assert.InDelta(t, 1.0, sum(dist.Probabilities()), tolerance)
	assert.Equal(t, []string{"Wicked: For Good"}, sink.unmatched)
}

func TestBlendSentimentPass(t *testing.T) {
	candidates := []models.Candidate{
		{CategoryID: bestPicture, CandidateID: "A", RawNominationCount: 1, Sentiment: models.Float(0.8)},
		{CategoryID: bestPicture, CandidateID: "B", RawNominationCount: 1, Sentiment: models.Float(0.3)},
		{CategoryID: bestPicture, CandidateID: "C", RawNominationCount: 1, Sentiment: models.Float(-0.4)},
		{CategoryID: bestPicture, CandidateID: "D", RawNominationCount: 1},
	}

	dist, err := NewBlender(WithSentiment(DefaultSentimentBoost())).Blend(candidates, nil)
	require.NoError(t, err)

	total := 1.3 + 1.15 + 1.0 + 1.0
	assert.InDelta(t, 1.3/total, finalByID(t, dist, "A"), tolerance)
	assert.InDelta(t, 1.15/total, finalByID(t, dist, "B"), tolerance)
	assert.InDelta(t, 1.0/total, finalByID(t, dist, "C"), tolerance)
	assert.InDelta(t, 1.0/total, finalByID(t, dist, "D"), tolerance)

	withoutPass, err := Blend(candidates, nil)
	require.NoError(t, err)
	assert.InDelta(t, 0.25, finalByID(t, withoutPass, "A"), tolerance)
}

func TestBlendCustomBoostTable(t *testing.T) {
	table := DefaultBoostTable()
	table[models.TierUngrouped] = 1.25
	signals := SignalSet{"Bugonia": {{SignalName: "critics", Won: true}}}

	dist, err := NewBlender(WithBoostTable(table)).Blend(threeFilms(), signals)
	require.NoError(t, err)
	e, _ := dist.Lookup("Bugonia")
	assert.InDelta(t, 2.0/26*1.25, e.WorkingWeight, tolerance)
}

func TestBlendStampsRunID(t *testing.T) {
	id := uuid.New()
	dist, err := NewBlender(WithRunID(id)).Blend(threeFilms(), nil)
	require.NoError(t, err)
	assert.Equal(t, id, dist.RunID)

	dist, err = Blend(threeFilms(), nil)
	require.NoError(t, err)
	assert.Equal(t, uuid.Nil, dist.RunID)
}

func TestBlendNormalizesRandomInputs(t *testing.T) {
	rng := rand.New(rand.NewSource(42))
	for trial := 0; trial < 100; trial++ {
		n := 1 + rng.Intn(12)
		candidates := make([]models.Candidate, n)
		signals := SignalSet{}
		for i := range candidates {
			id := string(rune('A' + i))
			candidates[i] = work(id, 1+rng.Intn(14))
			if rng.Intn(2) == 0 {
				candidates[i] = candidates[i].WithBaseProbability(0.01 + rng.Float64()*0.99)
			}
			if rng.Intn(3) == 0 {
				signals[id] = []models.PrecursorSignal{{SignalName: "gg", Won: true, Tier: models.AllTiers[rng.Intn(len(models.AllTiers))]}}
			}
		}

		dist, err := Blend(candidates, signals)
		require.NoError(t, err)
		assert.InDelta(t, 1.0, sum(dist.Probabilities()), tolerance)
		for i := 1; i < len(dist.Entries); i++ {
			assert.GreaterOrEqual(t, dist.Entries[i-1].FinalProbability, dist.Entries[i].FinalProbability)
		}
	}
}
