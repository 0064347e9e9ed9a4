package brackets

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestCalculator(seed int64) *TiebreakerCalculator {
	return NewTiebreakerCalculator(rand.New(rand.NewSource(seed)))
}

func TestComputeOWPFloorAndCap(t *testing.T) {
	calc := newTestCalculator(1)

	players := []*TiebreakPlayer{
		{UserID: 1, Opponents: []int{2, 3, 4}},
		{UserID: 2, Wins: 0, Losses: 3, Matches: 3, Opponents: []int{1, 3, 4}},     // winrate 0 → пол 0.25
		{UserID: 3, Wins: 3, Matches: 3, Opponents: []int{1, 2, 4}},                // winrate 1.0
		{UserID: 4, Wins: 3, Matches: 3, Opponents: []int{1, 2, 3}, Dropped: true}, // 1.0, но снялся → кап 0.75
	}
	calc.Compute(players)

	assert.InDelta(t, (0.25+1.0+0.75)/3, players[0].OWP, 1e-9)
}

func TestComputeOWPExcludesOpponentByeWin(t *testing.T) {
	calc := newTestCalculator(2)

	// Оппонент: 3 победы из 3, одна из них bye → считается 2/2 = 1.0,
	// а не 3/3; bye исключается и из числителя, и из знаменателя.
	players := []*TiebreakPlayer{
		{UserID: 1, Opponents: []int{2}},
		{UserID: 2, Wins: 3, Matches: 3, HadBye: true, Opponents: []int{1, 3}},
		{UserID: 3, Wins: 1, Losses: 1, Matches: 2, Opponents: []int{2}},
	}
	calc.Compute(players)

	assert.InDelta(t, 1.0, players[0].OWP, 1e-9)
}

func TestComputeOWPOpponentWithOnlyByeContributesFloor(t *testing.T) {
	calc := newTestCalculator(3)

	// У оппонента нет не-bye матчей: вклад 0 до пола, 0.25 после.
	players := []*TiebreakPlayer{
		{UserID: 1, Opponents: []int{2}},
		{UserID: 2, Wins: 1, Matches: 1, HadBye: true, Opponents: []int{}},
	}
	calc.Compute(players)

	assert.InDelta(t, 0.25, players[0].OWP, 1e-9)
}

func TestComputeNoOpponentsGivesZero(t *testing.T) {
	calc := newTestCalculator(4)

	players := []*TiebreakPlayer{{UserID: 1}}
	calc.Compute(players)

	assert.Zero(t, players[0].OWP)
	assert.Zero(t, players[0].OOWP)
}

func TestComputeOOWPUsesFreshOWP(t *testing.T) {
	calc := newTestCalculator(5)

	players := []*TiebreakPlayer{
		{UserID: 1, Wins: 2, Matches: 2, Opponents: []int{2, 3}},
		{UserID: 2, Wins: 1, Losses: 1, Matches: 2, Opponents: []int{1, 3}},
		{UserID: 3, Losses: 2, Matches: 2, Opponents: []int{1, 2}},
	}
	calc.Compute(players)

	// OWP считается для всех до прохода OOWP.
	expected := (players[1].OWP + players[2].OWP) / 2
	assert.InDelta(t, expected, players[0].OOWP, 1e-9)
}

func TestComputeSkipsFrozenPlayers(t *testing.T) {
	calc := newTestCalculator(6)

	frozen := &TiebreakPlayer{UserID: 1, Frozen: true, OWP: 0.62, OOWP: 0.55, Opponents: []int{2}}
	players := []*TiebreakPlayer{
		frozen,
		{UserID: 2, Wins: 1, Matches: 2, Losses: 1, Opponents: []int{1}},
	}
	calc.Compute(players)

	assert.Equal(t, 0.62, frozen.OWP, "замороженные тай-брейки не пересчитываются")
	assert.Equal(t, 0.55, frozen.OOWP)
}

func TestSortStandingsOrder(t *testing.T) {
	calc := newTestCalculator(7)

	players := []*TiebreakPlayer{
		{UserID: 1, Matches: 5, Score: 9, OWP: 0.5},
		{UserID: 2, Matches: 5, Score: 12, OWP: 0.4},
		{UserID: 3, Matches: 3, Score: 15}, // рано снялся: меньше матчей — ниже
		{UserID: 4, Matches: 5, Score: 9, OWP: 0.6},
	}
	calc.SortStandings(players, nil)

	ids := []int{players[0].UserID, players[1].UserID, players[2].UserID, players[3].UserID}
	assert.Equal(t, []int{2, 4, 1, 3}, ids)
}

func TestSortStandingsHeadToHeadBreaksFullTie(t *testing.T) {
	calc := newTestCalculator(8)

	players := []*TiebreakPlayer{
		{UserID: 1, Matches: 4, Score: 9, OWP: 0.5, OOWP: 0.5},
		{UserID: 2, Matches: 4, Score: 9, OWP: 0.5, OOWP: 0.5},
	}
	h2h := func(a, b int) int {
		if a == 2 && b == 1 {
			return 1
		}
		if a == 1 && b == 2 {
			return -1
		}
		return 0
	}

	calc.SortStandings(players, h2h)
	assert.Equal(t, 2, players[0].UserID)
}

func TestSortStandingsRandomFallbackIsSeedStable(t *testing.T) {
	build := func() []*TiebreakPlayer {
		return []*TiebreakPlayer{
			{UserID: 1, Matches: 4, Score: 9},
			{UserID: 2, Matches: 4, Score: 9},
			{UserID: 3, Matches: 4, Score: 9},
		}
	}

	a := build()
	newTestCalculator(99).SortStandings(a, nil)
	b := build()
	newTestCalculator(99).SortStandings(b, nil)

	require.Equal(t, len(a), len(b))
	for i := range a {
		assert.Equal(t, a[i].UserID, b[i].UserID, "жребий воспроизводим при фиксированном seed")
	}
}
