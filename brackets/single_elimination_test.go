package brackets

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSeedOrderMirrors(t *testing.T) {
	cases := []struct {
		size int
		want []int
	}{
		{2, []int{1, 2}},
		{4, []int{1, 4, 2, 3}},
		{8, []int{1, 8, 4, 5, 2, 7, 3, 6}},
	}
	for _, tc := range cases {
		got, err := SeedOrder(tc.size)
		require.NoError(t, err)
		assert.Equal(t, tc.want, got, "size %d", tc.size)
	}
}

func TestSeedOrderRejectsNonPowerOfTwo(t *testing.T) {
	for _, size := range []int{0, 1, 3, 6, 12} {
		_, err := SeedOrder(size)
		assert.ErrorIs(t, err, ErrBracketInconsistent, "size %d", size)
	}
}

func seedIDs(n int) []int {
	ids := make([]int, n)
	for i := range ids {
		ids[i] = 100 + i // userID сида i+1
	}
	return ids
}

func TestFirstRoundFullBracket(t *testing.T) {
	gen := NewSingleEliminationGenerator()

	matches, err := gen.FirstRound(8, seedIDs(8))
	require.NoError(t, err)
	require.Len(t, matches, 4)

	// Сид 1 играет с сидом 8 в первом матче.
	assert.Equal(t, 100, matches[0].Player1)
	require.NotNil(t, matches[0].Player2)
	assert.Equal(t, 107, *matches[0].Player2)
	assert.Equal(t, "R1M1", matches[0].Pos)
	assert.Equal(t, "R2M1", matches[0].WinnerTo)
}

func TestFirstRoundAssignsByes(t *testing.T) {
	gen := NewSingleEliminationGenerator()

	// 5 вышедших в сетке на 8: сиды 6-8 отсутствуют, три автопрохода.
	matches, err := gen.FirstRound(8, seedIDs(5))
	require.NoError(t, err)
	require.Len(t, matches, 4)

	byes := 0
	for _, m := range matches {
		if m.Player2 == nil {
			byes++
		}
	}
	assert.Equal(t, 3, byes)
	// Сид 1 без оппонента (зеркальный сид 8 не вышел).
	assert.Equal(t, 100, matches[0].Player1)
	assert.Nil(t, matches[0].Player2)
}

func TestFirstRoundRejectsBadSeedData(t *testing.T) {
	gen := NewSingleEliminationGenerator()

	_, err := gen.FirstRound(4, []int{100, 0, 102})
	assert.ErrorIs(t, err, ErrBracketInconsistent)

	_, err = gen.FirstRound(4, seedIDs(5))
	assert.ErrorIs(t, err, ErrBracketInconsistent)

	_, err = gen.FirstRound(4, seedIDs(1))
	assert.ErrorIs(t, err, ErrBracketInconsistent)
}

// simulateBracket прогоняет сетку до финала; победителем каждого матча
// выходит игрок с меньшим id (более высокий сид).
func simulateBracket(t *testing.T, size int) [][]BracketMatch {
	t.Helper()
	gen := NewSingleEliminationGenerator()

	matches, err := gen.FirstRound(size, seedIDs(size))
	require.NoError(t, err)

	rounds := [][]BracketMatch{matches}
	round := 1
	for len(matches) > 1 {
		reported := make([]ReportedBracketMatch, len(matches))
		for i, m := range matches {
			winner := m.Player1
			if m.Player2 != nil && *m.Player2 < winner {
				winner = *m.Player2
			}
			reported[i] = ReportedBracketMatch{Order: m.Order, WinnerTo: m.WinnerTo, WinnerID: winner}
		}
		matches, err = gen.NextRound(size, round, reported)
		require.NoError(t, err)
		rounds = append(rounds, matches)
		round++
	}
	return rounds
}

func TestBracketTopologyTerminatesAtSingleFinal(t *testing.T) {
	for _, size := range []int{2, 4, 8, 16, 32} {
		t.Run(fmt.Sprintf("size%d", size), func(t *testing.T) {
			rounds := simulateBracket(t, size)

			final := rounds[len(rounds)-1]
			require.Len(t, final, 1)
			assert.Empty(t, final[0].WinnerTo, "у финала нет следующего слота")

			// Каждый нефинальный матч ведет в существующий слот следующего раунда.
			for r := 0; r < len(rounds)-1; r++ {
				targets := map[string]int{}
				for _, m := range rounds[r+1] {
					targets[m.Pos]++
				}
				for _, m := range rounds[r] {
					assert.Contains(t, targets, m.WinnerTo)
				}
			}
		})
	}
}

func TestTopSeedsMeetOnlyInFinal(t *testing.T) {
	for _, size := range []int{4, 8, 16, 32} {
		rounds := simulateBracket(t, size)

		for r, matches := range rounds {
			for _, m := range matches {
				if m.Player2 == nil {
					continue
				}
				if m.Player1 == 100 && *m.Player2 == 101 || m.Player1 == 101 && *m.Player2 == 100 {
					assert.Equal(t, len(rounds)-1, r, "сиды 1 и 2 встретились раньше финала (size %d)", size)
				}
			}
		}

		final := rounds[len(rounds)-1][0]
		require.NotNil(t, final.Player2)
		got := []int{final.Player1, *final.Player2}
		assert.ElementsMatch(t, []int{100, 101}, got)
	}
}

func TestNextRoundRejectsIncompleteFeed(t *testing.T) {
	gen := NewSingleEliminationGenerator()

	_, err := gen.NextRound(8, 1, []ReportedBracketMatch{
		{Order: 1, WinnerTo: "R2M1", WinnerID: 100},
		{Order: 2, WinnerTo: "R2M2", WinnerID: 101}, // второй слот R2M1 не питается
		{Order: 3, WinnerTo: "R2M2", WinnerID: 102},
		{Order: 4, WinnerTo: "R2M2", WinnerID: 103},
	})
	assert.ErrorIs(t, err, ErrBracketInconsistent)

	_, err = gen.NextRound(8, 1, []ReportedBracketMatch{
		{Order: 1, WinnerTo: "R2M1", WinnerID: 0},
	})
	assert.ErrorIs(t, err, ErrBracketInconsistent)
}

func TestRoundName(t *testing.T) {
	assert.Equal(t, "Finals", RoundName(2))
	assert.Equal(t, "Semifinals", RoundName(4))
	assert.Equal(t, "Quarterfinals", RoundName(8))
	assert.Equal(t, "Top 16", RoundName(16))
	assert.Equal(t, "Top 32", RoundName(32))
}

func TestNextPowerOfTwo(t *testing.T) {
	assert.Equal(t, 2, NextPowerOfTwo(1))
	assert.Equal(t, 2, NextPowerOfTwo(2))
	assert.Equal(t, 4, NextPowerOfTwo(3))
	assert.Equal(t, 8, NextPowerOfTwo(5))
	assert.Equal(t, 16, NextPowerOfTwo(16))
	assert.Equal(t, 32, NextPowerOfTwo(17))
}
