package focusgroup

import (
	"fmt"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"

	"github.com/BaSui01/contentcycle/store"
	"github.com/BaSui01/contentcycle/types"
)

func fb(id string, rating int, likes, dislikes []string) store.Feedback {
	return store.Feedback{
		ParticipantID:   id,
		ParticipantType: types.PersonaRandom,
		Rating:          rating,
		Likes:           likes,
		Dislikes:        dislikes,
	}
}

func TestAggregate(t *testing.T) {
	t.Run("empty input", func(t *testing.T) {
		agg := Aggregate(nil)
		assert.Zero(t, agg.AverageRating)
		assert.Zero(t, agg.ConvergenceScore)
		assert.Empty(t, agg.TopLikes)
	})

	t.Run("average and distribution", func(t *testing.T) {
		agg := Aggregate([]store.Feedback{
			fb("p-1", 3, nil, nil),
			fb("p-2", 4, nil, nil),
			fb("p-3", 6, nil, nil),
			fb("p-4", 7, nil, nil),
		})
		assert.InDelta(t, 5.0, agg.AverageRating, 1e-9)
		assert.Equal(t, 1, agg.RatingDistribution.Low)
		assert.Equal(t, 2, agg.RatingDistribution.Mid)
		assert.Equal(t, 1, agg.RatingDistribution.High)
	})

	t.Run("top items ranked by frequency then first seen", func(t *testing.T) {
		agg := Aggregate([]store.Feedback{
			fb("p-1", 7, []string{"tone", "clarity"}, nil),
			fb("p-2", 8, []string{"clarity", "structure"}, nil),
			fb("p-3", 6, []string{"clarity", "tone"}, nil),
		})
		// clarity x3, tone x2, structure x1
		assert.Equal(t, []string{"clarity", "tone", "structure"}, agg.TopLikes)
	})

	t.Run("top items truncated to five", func(t *testing.T) {
		likes := []string{"a", "b", "c", "d", "e", "f", "g"}
		agg := Aggregate([]store.Feedback{fb("p-1", 7, likes, nil)})
		assert.Len(t, agg.TopLikes, 5)
	})

	t.Run("single reviewer converges fully", func(t *testing.T) {
		agg := Aggregate([]store.Feedback{fb("p-1", 5, nil, nil)})
		assert.Equal(t, 1.0, agg.ConvergenceScore)
	})

	t.Run("themes stay empty until synthesis", func(t *testing.T) {
		agg := Aggregate([]store.Feedback{fb("p-1", 5, []string{"tone"}, nil)})
		assert.Empty(t, agg.Themes)
	})

	t.Run("does not mutate input", func(t *testing.T) {
		in := []store.Feedback{
			fb("p-2", 8, nil, nil),
			fb("p-1", 5, nil, nil),
		}
		Aggregate(in)
		assert.Equal(t, "p-2", in[0].ParticipantID)
	})
}

func TestConvergenceScore(t *testing.T) {
	assert.Equal(t, 0.0, ConvergenceScore(nil))
	assert.Equal(t, 1.0, ConvergenceScore([]float64{4}))
	// identical ratings mean perfect agreement
	assert.Equal(t, 1.0, ConvergenceScore([]float64{6, 6, 6}))
	// maximum spread clamps at 0
	assert.Equal(t, 0.0, ConvergenceScore([]float64{1, 10, 1, 10, 1, 10}))

	// spread widens, convergence drops
	tight := ConvergenceScore([]float64{7, 8, 7, 8})
	loose := ConvergenceScore([]float64{3, 9, 2, 10})
	assert.Greater(t, tight, loose)
}

func TestDeriveThemes(t *testing.T) {
	themes := DeriveThemes([]store.Feedback{
		fb("p-1", 7, []string{"Clarity", "tone"}, []string{"length"}),
		fb("p-2", 6, []string{"clarity"}, []string{"tone"}),
	})

	byName := make(map[string]store.FeedbackTheme)
	for _, th := range themes {
		byName[th.Theme] = th
	}

	require.Contains(t, byName, "clarity")
	assert.Equal(t, types.SentimentPositive, byName["clarity"].Sentiment)
	assert.Equal(t, 2, byName["clarity"].Frequency)

	// liked by one, disliked by another
	assert.Equal(t, types.SentimentNeutral, byName["tone"].Sentiment)
	assert.Equal(t, types.SentimentNegative, byName["length"].Sentiment)

	// highest frequency first
	assert.Equal(t, "clarity", themes[0].Theme)
}

func TestAggregatePermutationInvariance(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		n := rapid.IntRange(1, 12).Draw(t, "n")
		items := make([]store.Feedback, 0, n)
		for i := 0; i < n; i++ {
			likes := rapid.SliceOfN(rapid.SampledFrom([]string{"clarity", "tone", "structure", "hook"}), 0, 3).Draw(t, fmt.Sprintf("likes%d", i))
			dislikes := rapid.SliceOfN(rapid.SampledFrom([]string{"length", "jargon", "pacing"}), 0, 3).Draw(t, fmt.Sprintf("dislikes%d", i))
			items = append(items, fb(
				fmt.Sprintf("p-%02d", i),
				rapid.IntRange(1, 10).Draw(t, fmt.Sprintf("rating%d", i)),
				likes, dislikes,
			))
		}

		base := Aggregate(items)

		seed := rapid.Int64().Draw(t, "seed")
		shuffled := make([]store.Feedback, len(items))
		copy(shuffled, items)
		rand.New(rand.NewSource(seed)).Shuffle(len(shuffled), func(i, j int) {
			shuffled[i], shuffled[j] = shuffled[j], shuffled[i]
		})

		got := Aggregate(shuffled)
		assert.Equal(t, base, got)

		// buckets always account for every rating
		total := got.RatingDistribution.Low + got.RatingDistribution.Mid + got.RatingDistribution.High
		assert.Equal(t, n, total)

		assert.GreaterOrEqual(t, got.ConvergenceScore, 0.0)
		assert.LessOrEqual(t, got.ConvergenceScore, 1.0)

		themes := DeriveThemes(items)
		assert.Equal(t, themes, DeriveThemes(shuffled))
	})
}
