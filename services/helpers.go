package services

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/GaburaisuVGC/fumble-bot-reloaded/brackets"
	"github.com/GaburaisuVGC/fumble-bot-reloaded/models"
	"github.com/GaburaisuVGC/fumble-bot-reloaded/repositories"
)

// Допустимые переходы статуса турнира. Статусы монотонны:
// pending → active → finished, cancelled — терминальный выход.
var tournamentStatusTransitions = map[models.TournamentStatus][]models.TournamentStatus{
	models.StatusPending: {models.StatusActive, models.StatusCancelled},
	models.StatusActive:  {models.StatusFinished, models.StatusCancelled},
}

func canTransitionStatus(from, to models.TournamentStatus) bool {
	for _, allowed := range tournamentStatusTransitions[from] {
		if allowed == to {
			return true
		}
	}
	return false
}

// runInTx оборачивает операцию в транзакцию: либо все записи коммитятся,
// либо ни одна (поздний сбой не оставляет stats рассинхронизированными с matches).
func runInTx(ctx context.Context, db *sql.DB, fn func(tx *sql.Tx) error) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	if err := fn(tx); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil && rbErr != sql.ErrTxDone {
			return fmt.Errorf("rollback failed: %v (original error: %w)", rbErr, err)
		}
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// swissPlayersFrom готовит вход генератора пар: только активные игроки,
// скоуп оппонентов и bye-право зависят от фазы (вторая фаза двухдневки
// сбрасывает и то, и другое).
func swissPlayersFrom(stats []*models.PlayerStats, t *models.Tournament, round int) []brackets.SwissPlayer {
	phase2 := t.InPhase2(round)
	players := make([]brackets.SwissPlayer, 0, len(stats))
	for _, s := range stats {
		if !s.Active {
			continue
		}
		opponents := make(map[int]struct{})
		for _, opp := range s.OpponentScope(phase2) {
			opponents[int(opp)] = struct{}{}
		}
		hadBye := s.ByeRound > 0
		if phase2 {
			hadBye = s.ByeRound > t.Phase1Rounds
		}
		players = append(players, brackets.SwissPlayer{
			UserID:    s.UserID,
			Score:     s.Score,
			OWP:       s.OWP,
			OOWP:      s.OOWP,
			HadBye:    hadBye,
			Opponents: opponents,
		})
	}
	return players
}

// createSwissMatches сохраняет результат генератора: обычные пары и
// bye-матч, который сразу Reported с автопобедой получателя.
// Мутирует t.MatchCounter; вызывающий обязан сохранить турнир.
func createSwissMatches(
	ctx context.Context,
	exec repositories.SQLExecutor,
	matchRepo repositories.MatchRepository,
	statsRepo repositories.PlayerStatsRepository,
	t *models.Tournament,
	round int,
	sr *brackets.SwissRound,
	statsByID map[int]*models.PlayerStats,
) error {
	for _, p := range sr.Pairings {
		t.MatchCounter++
		p2 := p.Player2
		m := &models.Match{
			TournamentID: t.ID,
			Seq:          t.MatchCounter,
			Round:        round,
			Player1ID:    p.Player1,
			Player2ID:    &p2,
		}
		if err := matchRepo.Create(ctx, exec, m); err != nil {
			return fmt.Errorf("failed to create match %d of round %d: %w", m.Seq, round, err)
		}
	}

	if sr.ByeUserID != 0 {
		t.MatchCounter++
		byeID := sr.ByeUserID
		m := &models.Match{
			TournamentID: t.ID,
			Seq:          t.MatchCounter,
			Round:        round,
			Player1ID:    byeID,
			WinnerID:     &byeID,
			Reported:     true,
		}
		if err := matchRepo.Create(ctx, exec, m); err != nil {
			return fmt.Errorf("failed to create bye match of round %d: %w", round, err)
		}

		s, ok := statsByID[byeID]
		if !ok {
			return fmt.Errorf("%w: bye recipient %d", ErrPlayerNotInTournament, byeID)
		}
		s.Score += 3
		s.Wins++
		s.MatchesPlayed = append(s.MatchesPlayed, int64(m.ID))
		s.ByeRound = round
		if err := statsRepo.Update(ctx, exec, s); err != nil {
			return fmt.Errorf("failed to apply bye result to player %d: %w", byeID, err)
		}
	}
	return nil
}

// tiebreakPlayersFrom конвертирует stats в вход калькулятора.
// Оппоненты дедуплицируются: OWP/OOWP считаются по различным оппонентам.
func tiebreakPlayersFrom(stats []*models.PlayerStats) []*brackets.TiebreakPlayer {
	players := make([]*brackets.TiebreakPlayer, 0, len(stats))
	for _, s := range stats {
		seen := make(map[int]struct{}, len(s.Opponents))
		distinct := make([]int, 0, len(s.Opponents))
		for _, opp := range s.Opponents {
			id := int(opp)
			if _, ok := seen[id]; ok {
				continue
			}
			seen[id] = struct{}{}
			distinct = append(distinct, id)
		}
		players = append(players, &brackets.TiebreakPlayer{
			UserID:    s.UserID,
			Score:     s.Score,
			Wins:      s.Wins,
			Losses:    s.Losses,
			Draws:     s.Draws,
			Matches:   len(s.MatchesPlayed),
			Opponents: distinct,
			HadBye:    s.ByeRound > 0,
			Dropped:   !s.Active,
			Frozen:    s.Frozen,
			OWP:       s.OWP,
			OOWP:      s.OOWP,
		})
	}
	return players
}

// headToHeadFromMatches строит функцию личных встреч по всем матчам
// турнира: победы a над b минус победы b над a.
func headToHeadFromMatches(matches []*models.Match) brackets.HeadToHead {
	type pair struct{ winner, loser int }
	wins := make(map[pair]int)
	for _, m := range matches {
		if !m.Reported || m.IsBye() || m.WinnerID == nil {
			continue
		}
		loser, ok := m.OpponentOf(*m.WinnerID)
		if !ok {
			continue
		}
		wins[pair{*m.WinnerID, loser}]++
	}
	return func(a, b int) int {
		return wins[pair{a, b}] - wins[pair{b, a}]
	}
}
