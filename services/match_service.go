package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"

	"github.com/GaburaisuVGC/fumble-bot-reloaded/events"
	"github.com/GaburaisuVGC/fumble-bot-reloaded/models"
	"github.com/GaburaisuVGC/fumble-bot-reloaded/repositories"
)

// stageDropped помечает снявшегося игрока; отличает drop от вылета
// по кату при реактивации на reset.
const stageDropped = "Dropped"

// MatchService обрабатывает репорты результатов, снятия игроков
// и организаторский откат раунда.
type MatchService struct {
	db           *sql.DB
	tournaments  repositories.TournamentRepository
	participants repositories.ParticipantRepository
	stats        repositories.PlayerStatsRepository
	matches      repositories.MatchRepository
	hub          *events.Hub
	logger       *slog.Logger
}

func NewMatchService(
	db *sql.DB,
	tournaments repositories.TournamentRepository,
	participants repositories.ParticipantRepository,
	stats repositories.PlayerStatsRepository,
	matches repositories.MatchRepository,
	hub *events.Hub,
	logger *slog.Logger,
) *MatchService {
	return &MatchService{
		db:           db,
		tournaments:  tournaments,
		participants: participants,
		stats:        stats,
		matches:      matches,
		hub:          hub,
		logger:       logger,
	}
}

type ReportResultInput struct {
	WinnerID *int
	IsDraw   bool
}

// Report валидирует и записывает результат одного матча.
// Репортит участник матча или организатор; повторный репорт отклоняется.
func (s *MatchService) Report(ctx context.Context, tournamentID string, seq int, reporterID int, input ReportResultInput) error {
	if (input.WinnerID == nil) == !input.IsDraw {
		return fmt.Errorf("%w: exactly one of winner or draw must be declared", ErrValidationFailed)
	}

	return runInTx(ctx, s.db, func(tx *sql.Tx) error {
		t, err := s.lockTournament(ctx, tx, tournamentID)
		if err != nil {
			return err
		}
		if t.Status != models.StatusActive {
			return ErrInvalidState
		}

		m, err := s.matches.GetBySeq(ctx, tx, tournamentID, seq)
		if err != nil {
			if errors.Is(err, repositories.ErrMatchNotFound) {
				return ErrMatchNotFound
			}
			return err
		}
		if m.IsBye() {
			return ErrByeMatchNotReportable
		}
		if m.Reported {
			return ErrAlreadyReported
		}
		if m.IsTopCut && input.IsDraw {
			return fmt.Errorf("%w: single elimination matches cannot end in a draw", ErrValidationFailed)
		}
		if reporterID != t.OrganizerID && !m.HasPlayer(reporterID) {
			return ErrReporterNotAllowed
		}
		if input.WinnerID != nil && !m.HasPlayer(*input.WinnerID) {
			return ErrNotMatchParticipant
		}

		p1, err := s.stats.Get(ctx, tx, tournamentID, m.Player1ID)
		if err != nil {
			return fmt.Errorf("failed to load stats of player %d: %w", m.Player1ID, err)
		}
		p2, err := s.stats.Get(ctx, tx, tournamentID, *m.Player2ID)
		if err != nil {
			return fmt.Errorf("failed to load stats of player %d: %w", *m.Player2ID, err)
		}

		// Снапшоты до применения результата делают репорт обратимым.
		m.P1Snapshot = p1.Snapshot()
		m.P2Snapshot = p2.Snapshot()
		applyResult(m, p1, p2, input.WinnerID, input.IsDraw, t.InPhase2(m.Round) && !m.IsTopCut)

		if err := s.stats.Update(ctx, tx, p1); err != nil {
			return fmt.Errorf("failed to update stats of player %d: %w", p1.UserID, err)
		}
		if err := s.stats.Update(ctx, tx, p2); err != nil {
			return fmt.Errorf("failed to update stats of player %d: %w", p2.UserID, err)
		}
		if err := s.matches.Update(ctx, tx, m); err != nil {
			return fmt.Errorf("failed to update match %d: %w", seq, err)
		}

		s.logger.Info("match reported",
			"tournament_id", tournamentID, "seq", seq, "round", m.Round,
			"reporter_id", reporterID, "is_draw", input.IsDraw,
		)
		return nil
	})
}

// applyResult мутирует матч и обе записи статистики под объявленный исход.
func applyResult(m *models.Match, p1, p2 *models.PlayerStats, winnerID *int, isDraw bool, phase2 bool) {
	m.Reported = true
	m.IsDraw = isDraw
	m.WinnerID = nil
	if winnerID != nil {
		w := *winnerID
		m.WinnerID = &w
	}

	p1.MatchesPlayed = append(p1.MatchesPlayed, int64(m.ID))
	p2.MatchesPlayed = append(p2.MatchesPlayed, int64(m.ID))
	p1.AddOpponent(p2.UserID, phase2)
	p2.AddOpponent(p1.UserID, phase2)

	if isDraw {
		p1.Score++
		p1.Draws++
		p2.Score++
		p2.Draws++
		return
	}

	winner, loser := p1, p2
	if *winnerID == p2.UserID {
		winner, loser = p2, p1
	}
	winner.Score += 3
	winner.Wins++
	loser.Losses++
}

// Drop снимает игрока с турнира: организатор-only. Нерепортнутый матч
// текущего раунда превращается в автопобеду оппонента; нерепортнутый
// по факту bye аннулируется.
func (s *MatchService) Drop(ctx context.Context, tournamentID string, actorID, userID int) error {
	err := runInTx(ctx, s.db, func(tx *sql.Tx) error {
		t, err := s.lockTournament(ctx, tx, tournamentID)
		if err != nil {
			return err
		}
		if actorID != t.OrganizerID {
			return ErrOrganizerOnly
		}
		if t.Status != models.StatusActive {
			return ErrInvalidState
		}

		ps, err := s.stats.Get(ctx, tx, tournamentID, userID)
		if err != nil || !ps.Active {
			return ErrPlayerNotInTournament
		}
		ps.Active = false
		ps.Stage = stageDropped

		round := t.CurrentRound
		matches, err := s.matches.ListByTournament(ctx, tx, tournamentID, &round)
		if err != nil {
			return fmt.Errorf("failed to list round %d matches: %w", round, err)
		}

		for _, m := range matches {
			if !m.HasPlayer(userID) {
				continue
			}
			if m.IsBye() {
				// Bye текущего раунда считается несыгранным: аннулируем
				// и матч, и его автопобеду.
				ps.Score -= 3
				ps.Wins--
				ps.MatchesPlayed = trimMatchID(ps.MatchesPlayed, int64(m.ID))
				ps.ByeRound = 0
				if err := s.matches.Delete(ctx, tx, m.ID); err != nil {
					return fmt.Errorf("failed to void bye match: %w", err)
				}
				break
			}
			if m.Reported {
				break
			}

			opponentID, _ := m.OpponentOf(userID)
			opp, err := s.stats.Get(ctx, tx, tournamentID, opponentID)
			if err != nil {
				return fmt.Errorf("failed to load stats of player %d: %w", opponentID, err)
			}
			p1, p2 := ps, opp
			if m.Player1ID == opponentID {
				p1, p2 = opp, ps
			}
			m.P1Snapshot = p1.Snapshot()
			m.P2Snapshot = p2.Snapshot()
			applyResult(m, p1, p2, &opponentID, false, t.InPhase2(m.Round) && !m.IsTopCut)

			if err := s.stats.Update(ctx, tx, opp); err != nil {
				return fmt.Errorf("failed to update stats of player %d: %w", opponentID, err)
			}
			if err := s.matches.Update(ctx, tx, m); err != nil {
				return fmt.Errorf("failed to auto-award match %d: %w", m.Seq, err)
			}
			break
		}

		if err := s.stats.Update(ctx, tx, ps); err != nil {
			return fmt.Errorf("failed to update stats of player %d: %w", userID, err)
		}

		// Из видимого списка участников игрок пропадает; запись статистики
		// остается для тай-брейков оппонентов.
		if err := s.participants.Delete(ctx, tx, tournamentID, userID); err != nil &&
			!errors.Is(err, repositories.ErrParticipantNotFound) {
			return err
		}

		s.logger.Info("player dropped", "tournament_id", tournamentID, "user_id", userID, "round", round)
		return nil
	})
	if err != nil {
		return err
	}
	s.hub.Broadcast(events.Event{
		Type:         events.EventPlayerDropped,
		TournamentID: tournamentID,
		Payload:      map[string]int{"user_id": userID},
	})
	return nil
}

// ResetRound откатывает все репорты указанного раунда по снапшотам.
// Откат прошлого раунда удаляет все более поздние матчи и возвращает
// в строй вылетевших по кату.
func (s *MatchService) ResetRound(ctx context.Context, tournamentID string, actorID, round int) error {
	return runInTx(ctx, s.db, func(tx *sql.Tx) error {
		t, err := s.lockTournament(ctx, tx, tournamentID)
		if err != nil {
			return err
		}
		if actorID != t.OrganizerID {
			return ErrOrganizerOnly
		}
		if t.Status != models.StatusActive {
			return ErrInvalidState
		}
		if round < 1 || round > t.CurrentRound {
			return ErrInvalidRound
		}

		// Участники матчей топ-ката откатываемых раундов: их вылеты
		// нужно отменить, и собрать их можно только до удаления матчей.
		var cutPlayers map[int]bool
		if round > t.SwissRounds && t.TopCutSize > 0 {
			cutPlayers = make(map[int]bool)
			for r := round; r <= t.CurrentRound; r++ {
				rr := r
				ms, err := s.matches.ListByTournament(ctx, tx, tournamentID, &rr)
				if err != nil {
					return fmt.Errorf("failed to list round %d matches: %w", rr, err)
				}
				for _, m := range ms {
					cutPlayers[m.Player1ID] = true
					if m.Player2ID != nil {
						cutPlayers[*m.Player2ID] = true
					}
				}
			}
		}

		// Поздние раунды откатываются первыми, от текущего вниз: снапшоты
		// каждого матча хранят состояние именно перед его репортом.
		for r := t.CurrentRound; r > round; r-- {
			if err := s.revertRound(ctx, tx, tournamentID, r, true); err != nil {
				return err
			}
		}
		if round < t.CurrentRound {
			if err := s.matches.DeleteAfterRound(ctx, tx, tournamentID, round); err != nil {
				return fmt.Errorf("failed to delete matches after round %d: %w", round, err)
			}
		}
		if err := s.reactivateEliminated(ctx, tx, t, round, cutPlayers); err != nil {
			return err
		}
		if err := s.revertRound(ctx, tx, tournamentID, round, false); err != nil {
			return err
		}

		t.CurrentRound = round
		if err := s.tournaments.Update(ctx, tx, t); err != nil {
			return fmt.Errorf("failed to update tournament: %w", err)
		}

		s.logger.Info("round reset", "tournament_id", tournamentID, "round", round)
		return nil
	})
}

// revertRound возвращает статистику игроков к состоянию до репортов
// раунда. При deleting=true матчи раунда будут удалены вызывающим,
// иначе непустые матчи остаются в раунде как нерепортнутые.
func (s *MatchService) revertRound(ctx context.Context, tx *sql.Tx, tournamentID string, round int, deleting bool) error {
	matches, err := s.matches.ListByTournament(ctx, tx, tournamentID, &round)
	if err != nil {
		return fmt.Errorf("failed to list round %d matches: %w", round, err)
	}

	for _, m := range matches {
		if !m.Reported {
			continue
		}
		if m.IsBye() {
			if !deleting {
				// Bye остающегося раунда детерминирован, его не откатываем.
				continue
			}
			ps, err := s.stats.Get(ctx, tx, tournamentID, m.Player1ID)
			if err != nil {
				return fmt.Errorf("failed to load stats of player %d: %w", m.Player1ID, err)
			}
			ps.Score -= 3
			ps.Wins--
			ps.MatchesPlayed = trimMatchID(ps.MatchesPlayed, int64(m.ID))
			ps.ByeRound = 0
			if err := s.stats.Update(ctx, tx, ps); err != nil {
				return fmt.Errorf("failed to revert bye of player %d: %w", m.Player1ID, err)
			}
			continue
		}

		if err := s.restorePlayer(ctx, tx, tournamentID, m.Player1ID, m.P1Snapshot); err != nil {
			return err
		}
		if err := s.restorePlayer(ctx, tx, tournamentID, *m.Player2ID, m.P2Snapshot); err != nil {
			return err
		}

		if !deleting {
			m.Reported = false
			m.WinnerID = nil
			m.IsDraw = false
			m.P1Snapshot = nil
			m.P2Snapshot = nil
			if err := s.matches.Update(ctx, tx, m); err != nil {
				return fmt.Errorf("failed to unreport match %d: %w", m.Seq, err)
			}
		}
	}
	return nil
}

func (s *MatchService) restorePlayer(ctx context.Context, tx *sql.Tx, tournamentID string, userID int, snap *models.StatsSnapshot) error {
	if snap == nil {
		return fmt.Errorf("match of player %d has no pre-report snapshot", userID)
	}
	ps, err := s.stats.Get(ctx, tx, tournamentID, userID)
	if err != nil {
		return fmt.Errorf("failed to load stats of player %d: %w", userID, err)
	}
	ps.Restore(snap)
	if err := s.stats.Update(ctx, tx, ps); err != nil {
		return fmt.Errorf("failed to restore stats of player %d: %w", userID, err)
	}
	return nil
}

// reactivateEliminated возвращает в строй игроков, выбывших на
// откатываемых раундах: по срезу день-2, по границе швейцарка→кат
// или в откатываемых раундах топ-ката (cutPlayers — участники их
// матчей). Снявшиеся (stageDropped) остаются снятыми.
func (s *MatchService) reactivateEliminated(ctx context.Context, tx *sql.Tx, t *models.Tournament, round int, cutPlayers map[int]bool) error {
	undoDay2Cut := t.TwoPhase && round <= t.Phase1Rounds && t.CurrentRound > t.Phase1Rounds
	undoSwissCut := round <= t.SwissRounds && t.CurrentRound > t.SwissRounds

	if !undoDay2Cut && !undoSwissCut && len(cutPlayers) == 0 {
		return nil
	}

	stats, err := s.stats.ListByTournament(ctx, tx, t.ID)
	if err != nil {
		return fmt.Errorf("failed to list player stats: %w", err)
	}
	for _, ps := range stats {
		if ps.Stage == stageDropped {
			continue // drop не откатывается раундом
		}
		changed := false
		if undoDay2Cut && ps.Frozen {
			ps.Frozen = false
			ps.Active = true
			ps.Stage = ""
			changed = true
		}
		if undoSwissCut && !ps.Frozen {
			if !ps.Active || ps.Stage != "" || ps.Seed != 0 {
				ps.Active = true
				ps.Stage = ""
				ps.Seed = 0
				changed = true
			}
		}
		if cutPlayers[ps.UserID] && (!ps.Active || ps.Stage != "") {
			ps.Active = true
			ps.Stage = ""
			changed = true
		}
		if changed {
			if err := s.stats.Update(ctx, tx, ps); err != nil {
				return fmt.Errorf("failed to reactivate player %d: %w", ps.UserID, err)
			}
		}
	}
	return nil
}

func trimMatchID(ids []int64, id int64) []int64 {
	out := ids[:0]
	for _, v := range ids {
		if v != id {
			out = append(out, v)
		}
	}
	return out
}

func (s *MatchService) lockTournament(ctx context.Context, tx *sql.Tx, id string) (*models.Tournament, error) {
	t, err := s.tournaments.GetByIDForUpdate(ctx, tx, id)
	if err != nil {
		if errors.Is(err, repositories.ErrTournamentNotFound) {
			return nil, ErrTournamentNotFound
		}
		return nil, err
	}
	return t, nil
}
