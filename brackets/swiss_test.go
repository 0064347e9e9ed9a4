package brackets

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestEngine(seed int64) *SwissPairingEngine {
	return NewSwissPairingEngine(rand.New(rand.NewSource(seed)))
}

func makePlayers(n int) []SwissPlayer {
	players := make([]SwissPlayer, n)
	for i := 0; i < n; i++ {
		players[i] = SwissPlayer{
			UserID:    i + 1,
			Opponents: map[int]struct{}{},
		}
	}
	return players
}

func TestPairRoundEvenFieldPairsEveryone(t *testing.T) {
	engine := newTestEngine(1)

	round, err := engine.PairRound(makePlayers(8))
	require.NoError(t, err)
	assert.Zero(t, round.ByeUserID)
	require.Len(t, round.Pairings, 4)

	seen := map[int]bool{}
	for _, p := range round.Pairings {
		assert.False(t, seen[p.Player1], "player %d paired twice", p.Player1)
		assert.False(t, seen[p.Player2], "player %d paired twice", p.Player2)
		seen[p.Player1] = true
		seen[p.Player2] = true
	}
	assert.Len(t, seen, 8)
}

func TestPairRoundOddFieldAssignsSingleBye(t *testing.T) {
	engine := newTestEngine(2)

	round, err := engine.PairRound(makePlayers(5))
	require.NoError(t, err)
	assert.NotZero(t, round.ByeUserID)
	assert.Len(t, round.Pairings, 2)
}

func TestPairRoundByeGoesToWorstWithoutPriorBye(t *testing.T) {
	engine := newTestEngine(3)

	players := makePlayers(5)
	players[0].Score = 9
	players[1].Score = 6
	players[2].Score = 3
	players[3].Score = 0 // худший, но bye уже получал
	players[3].HadBye = true
	players[4].Score = 3
	players[4].OWP = 0.3
	players[2].OWP = 0.5

	round, err := engine.PairRound(players)
	require.NoError(t, err)
	// 4-й исключен (уже имел bye); среди остальных худший по (score, OWP) — 5-й.
	assert.Equal(t, 5, round.ByeUserID)
}

func TestPairRoundByeFallsBackWhenEveryoneHadOne(t *testing.T) {
	engine := newTestEngine(4)

	players := makePlayers(3)
	for i := range players {
		players[i].HadBye = true
		players[i].Score = (2 - i) * 3
	}

	round, err := engine.PairRound(players)
	require.NoError(t, err)
	assert.Equal(t, 3, round.ByeUserID, "worst-standing player receives the repeat bye")
}

func TestPairRoundAvoidsRematches(t *testing.T) {
	// Прогоняем несколько раундов подряд, накапливая оппонентов,
	// и проверяем, что повторных встреч не возникает.
	engine := newTestEngine(5)
	players := makePlayers(8)

	for round := 0; round < 3; round++ {
		result, err := engine.PairRound(players)
		require.NoError(t, err)

		for _, pair := range result.Pairings {
			_, met := players[pair.Player1-1].Opponents[pair.Player2]
			require.False(t, met, "round %d repeated pairing %d vs %d", round+1, pair.Player1, pair.Player2)

			players[pair.Player1-1].Opponents[pair.Player2] = struct{}{}
			players[pair.Player2-1].Opponents[pair.Player1] = struct{}{}
			players[pair.Player1-1].Score += 3
		}
	}
}

func TestPairRoundImpossibleFailsFatally(t *testing.T) {
	engine := newTestEngine(6)

	// Полный граф на четырех игроках: любая пара уже встречалась.
	players := makePlayers(4)
	for i := range players {
		for j := range players {
			if i != j {
				players[i].Opponents[players[j].UserID] = struct{}{}
			}
		}
	}

	_, err := engine.PairRound(players)
	require.ErrorIs(t, err, ErrPairingImpossible)
}

func TestPairRoundBacktracksThroughConstraints(t *testing.T) {
	engine := newTestEngine(7)

	// 1 играл с 2 и 3: жадное спаривание может завести в тупик,
	// но полное решение существует: (1,4), (2,3).
	players := makePlayers(4)
	players[0].Opponents[2] = struct{}{}
	players[1].Opponents[1] = struct{}{}
	players[0].Opponents[3] = struct{}{}
	players[2].Opponents[1] = struct{}{}

	round, err := engine.PairRound(players)
	require.NoError(t, err)
	require.Len(t, round.Pairings, 2)
	for _, p := range round.Pairings {
		if p.Player1 == 1 || p.Player2 == 1 {
			other := p.Player1 + p.Player2 - 1
			assert.Equal(t, 4, other)
		}
	}
}

func TestPairRoundDeterministicForFixedSeed(t *testing.T) {
	first, err := newTestEngine(42).PairRound(makePlayers(16))
	require.NoError(t, err)
	second, err := newTestEngine(42).PairRound(makePlayers(16))
	require.NoError(t, err)

	assert.Equal(t, first, second)
}

func TestPairRoundEmptyPool(t *testing.T) {
	_, err := newTestEngine(8).PairRound(nil)
	require.ErrorIs(t, err, ErrNoActivePlayers)
}
