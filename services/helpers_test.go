package services

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/GaburaisuVGC/fumble-bot-reloaded/models"
)

func TestSwissPlayersFrom_Phase2ResetsScopeAndBye(t *testing.T) {
	tournament := &models.Tournament{TwoPhase: true, Phase1Rounds: 6, Phase2Rounds: 2, SwissRounds: 8}
	stats := []*models.PlayerStats{
		{
			UserID:          1,
			Score:           15,
			Opponents:       []int64{2, 3, 4},
			Phase2Opponents: []int64{4},
			ByeRound:        3, // bye первой фазы не считается во второй
			Active:          true,
		},
		{UserID: 2, Active: false}, // выбыл по срезу
		{UserID: 4, ByeRound: 7, Active: true},
	}

	players := swissPlayersFrom(stats, tournament, 7)
	require.Len(t, players, 2)

	p1 := players[0]
	assert.Equal(t, 1, p1.UserID)
	assert.False(t, p1.HadBye)
	assert.Len(t, p1.Opponents, 1)
	_, met := p1.Opponents[4]
	assert.True(t, met)

	p4 := players[1]
	assert.True(t, p4.HadBye)
}

func TestSwissPlayersFrom_SinglePhaseKeepsFullScope(t *testing.T) {
	tournament := &models.Tournament{SwissRounds: 4}
	stats := []*models.PlayerStats{
		{UserID: 1, Opponents: []int64{2, 3}, ByeRound: 1, Active: true},
	}

	players := swissPlayersFrom(stats, tournament, 3)
	require.Len(t, players, 1)
	assert.True(t, players[0].HadBye)
	assert.Len(t, players[0].Opponents, 2)
}

func TestTiebreakPlayersFrom_DeduplicatesOpponents(t *testing.T) {
	stats := []*models.PlayerStats{
		{
			UserID:        1,
			Wins:          3,
			MatchesPlayed: []int64{1, 2, 3},
			Opponents:     []int64{2, 3, 2}, // рематч второй фазы
			Active:        true,
		},
	}

	players := tiebreakPlayersFrom(stats)
	require.Len(t, players, 1)
	assert.Equal(t, []int{2, 3}, players[0].Opponents)
	assert.Equal(t, 3, players[0].Matches)
	assert.False(t, players[0].Dropped)
}

func TestTiebreakPlayersFrom_InactiveIsDropped(t *testing.T) {
	players := tiebreakPlayersFrom([]*models.PlayerStats{{UserID: 7, Active: false}})
	require.Len(t, players, 1)
	assert.True(t, players[0].Dropped)
}

func TestHeadToHeadFromMatches(t *testing.T) {
	matches := []*models.Match{
		{Player1ID: 1, Player2ID: intPtr(2), WinnerID: intPtr(1), Reported: true},
		{Player1ID: 2, Player2ID: intPtr(1), WinnerID: intPtr(1), Reported: true},
		{Player1ID: 1, Player2ID: intPtr(3), WinnerID: intPtr(3), Reported: true},
		{Player1ID: 4, Player2ID: nil, WinnerID: intPtr(4), Reported: true}, // bye не считается
		{Player1ID: 1, Player2ID: intPtr(5), Reported: false},
	}

	h2h := headToHeadFromMatches(matches)
	assert.Equal(t, 2, h2h(1, 2))
	assert.Equal(t, -2, h2h(2, 1))
	assert.Equal(t, -1, h2h(1, 3))
	assert.Equal(t, 0, h2h(1, 5))
	assert.Equal(t, 0, h2h(4, 1))
}
