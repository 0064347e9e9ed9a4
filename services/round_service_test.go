package services

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/GaburaisuVGC/fumble-bot-reloaded/brackets"
	"github.com/GaburaisuVGC/fumble-bot-reloaded/models"
)

func intPtr(v int) *int { return &v }

func topCutMatch(round int, p1, p2, winner int) *models.Match {
	return &models.Match{
		Round:     round,
		IsTopCut:  true,
		Player1ID: p1,
		Player2ID: intPtr(p2),
		WinnerID:  intPtr(winner),
		Reported:  true,
	}
}

func TestFinalRanking_Top4CutThenSwissTail(t *testing.T) {
	tournament := &models.Tournament{SwissRounds: 3, TopCutSize: 4}

	stats := []*models.PlayerStats{
		{UserID: 1, Seed: 1},
		{UserID: 2, Seed: 2},
		{UserID: 3, Seed: 3},
		{UserID: 4, Seed: 4},
		{UserID: 5},
		{UserID: 6},
	}

	// Полуфиналы (раунд 4): сид 1 бьет сида 4, сид 3 бьет сида 2.
	// Финал (раунд 5): сид 3 берет титул.
	matches := []*models.Match{
		topCutMatch(4, 1, 4, 1),
		topCutMatch(4, 2, 3, 3),
		topCutMatch(5, 1, 3, 3),
	}

	swissOrdered := []int{1, 3, 2, 4, 5, 6}

	order := finalRanking(tournament, stats, matches, swissOrdered)
	// Чемпион, финалист, затем проигравшие полуфиналы по сиду, затем хвост швейцарки.
	assert.Equal(t, []int{3, 1, 2, 4, 5, 6}, order)
}

func TestFinalRanking_NoCutUsesSwissOrder(t *testing.T) {
	tournament := &models.Tournament{SwissRounds: 3}
	stats := []*models.PlayerStats{{UserID: 1}, {UserID: 2}, {UserID: 3}}
	order := finalRanking(tournament, stats, nil, []int{2, 3, 1})
	assert.Equal(t, []int{2, 3, 1}, order)
}

func TestCutField_ByRankSkipsDroppedAndFrozen(t *testing.T) {
	tournament := &models.Tournament{TopCutSize: 2, CutMethod: models.CutByRank}
	standings := []*brackets.TiebreakPlayer{
		{UserID: 1, Score: 9},
		{UserID: 2, Score: 9, Dropped: true},
		{UserID: 3, Score: 6, Frozen: true},
		{UserID: 4, Score: 6},
		{UserID: 5, Score: 3},
	}
	assert.Equal(t, []int{1, 4}, cutField(tournament, standings))
}

func TestCutField_ByPointsThreshold(t *testing.T) {
	tournament := &models.Tournament{TopCutSize: 8, CutMethod: models.CutByPoints, PointsRequired: 7}
	standings := []*brackets.TiebreakPlayer{
		{UserID: 1, Score: 9},
		{UserID: 2, Score: 7},
		{UserID: 3, Score: 6},
	}
	assert.Equal(t, []int{1, 2}, cutField(tournament, standings))

	tournament.PointsRequired = 100
	assert.Empty(t, cutField(tournament, standings))
}

func TestCutField_NoCutConfigured(t *testing.T) {
	tournament := &models.Tournament{CutMethod: models.CutByRank}
	assert.Nil(t, cutField(tournament, []*brackets.TiebreakPlayer{{UserID: 1}}))
}

func TestApplyResult_WinUpdatesBothPlayers(t *testing.T) {
	m := &models.Match{ID: 10, Player1ID: 1, Player2ID: intPtr(2)}
	p1 := &models.PlayerStats{UserID: 1}
	p2 := &models.PlayerStats{UserID: 2}

	applyResult(m, p1, p2, intPtr(2), false, false)

	require.True(t, m.Reported)
	require.NotNil(t, m.WinnerID)
	assert.Equal(t, 2, *m.WinnerID)

	assert.Equal(t, 0, p1.Score)
	assert.Equal(t, 1, p1.Losses)
	assert.Equal(t, 3, p2.Score)
	assert.Equal(t, 1, p2.Wins)

	assert.Equal(t, []int64{10}, p1.MatchesPlayed)
	assert.Equal(t, []int64{2}, p1.Opponents)
	assert.Equal(t, []int64{1}, p2.Opponents)
	assert.Empty(t, p1.Phase2Opponents)
}

func TestApplyResult_DrawGivesOnePointEach(t *testing.T) {
	m := &models.Match{ID: 11, Player1ID: 1, Player2ID: intPtr(2)}
	p1 := &models.PlayerStats{UserID: 1}
	p2 := &models.PlayerStats{UserID: 2}

	applyResult(m, p1, p2, nil, true, true)

	assert.True(t, m.IsDraw)
	assert.Nil(t, m.WinnerID)
	assert.Equal(t, 1, p1.Score)
	assert.Equal(t, 1, p2.Score)
	assert.Equal(t, 1, p1.Draws)
	// Вторая фаза пишет оппонента в оба скоупа.
	assert.Equal(t, []int64{2}, p1.Phase2Opponents)
	assert.Equal(t, []int64{1}, p2.Phase2Opponents)
}

func TestApplyResult_ReportThenRestoreRoundTrips(t *testing.T) {
	m := &models.Match{ID: 12, Player1ID: 1, Player2ID: intPtr(2)}
	p1 := &models.PlayerStats{UserID: 1, Score: 6, Wins: 2, MatchesPlayed: []int64{1, 2}, Opponents: []int64{3, 4}}
	p2 := &models.PlayerStats{UserID: 2, Score: 3, Wins: 1, Losses: 1, MatchesPlayed: []int64{1, 2}, Opponents: []int64{3, 4}}

	before1 := p1.Snapshot()
	before2 := p2.Snapshot()
	m.P1Snapshot = before1
	m.P2Snapshot = before2

	applyResult(m, p1, p2, intPtr(1), false, false)
	require.Equal(t, 9, p1.Score)

	p1.Restore(m.P1Snapshot)
	p2.Restore(m.P2Snapshot)

	assert.Equal(t, 6, p1.Score)
	assert.Equal(t, 2, p1.Wins)
	assert.Equal(t, []int64{1, 2}, p1.MatchesPlayed)
	assert.Equal(t, []int64{3, 4}, p1.Opponents)
	assert.Equal(t, 3, p2.Score)
	assert.Equal(t, 1, p2.Losses)
}

func TestCanTransitionStatus(t *testing.T) {
	assert.True(t, canTransitionStatus(models.StatusPending, models.StatusActive))
	assert.True(t, canTransitionStatus(models.StatusPending, models.StatusCancelled))
	assert.True(t, canTransitionStatus(models.StatusActive, models.StatusFinished))
	assert.True(t, canTransitionStatus(models.StatusActive, models.StatusCancelled))

	assert.False(t, canTransitionStatus(models.StatusFinished, models.StatusActive))
	assert.False(t, canTransitionStatus(models.StatusCancelled, models.StatusActive))
	assert.False(t, canTransitionStatus(models.StatusActive, models.StatusPending))
	assert.False(t, canTransitionStatus(models.StatusPending, models.StatusFinished))
}
