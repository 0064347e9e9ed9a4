package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"math/rand"
	"sort"

	"github.com/GaburaisuVGC/fumble-bot-reloaded/brackets"
	"github.com/GaburaisuVGC/fumble-bot-reloaded/events"
	"github.com/GaburaisuVGC/fumble-bot-reloaded/models"
	"github.com/GaburaisuVGC/fumble-bot-reloaded/repositories"
)

// ValidateResult описывает, куда валидация продвинула турнир.
type ValidateResult struct {
	Finished      bool `json:"finished"`
	TopCutStarted bool `json:"top_cut_started"`
	NextRound     int  `json:"next_round,omitempty"`
	ChampionID    int  `json:"champion_id,omitempty"`
}

// RoundService валидирует завершенный раунд и двигает турнир дальше:
// пересчет тай-брейков, срез день-2, следующий раунд швейцарки, выход
// в топ-кат, следующий раунд сетки или финализация с призами.
type RoundService struct {
	db          *sql.DB
	tournaments repositories.TournamentRepository
	stats       repositories.PlayerStatsRepository
	matches     repositories.MatchRepository
	users       repositories.UserRepository
	pairing     *brackets.SwissPairingEngine
	tiebreaks   *brackets.TiebreakerCalculator
	bracket     *brackets.SingleEliminationGenerator
	hub         *events.Hub
	logger      *slog.Logger
}

func NewRoundService(
	db *sql.DB,
	tournaments repositories.TournamentRepository,
	stats repositories.PlayerStatsRepository,
	matches repositories.MatchRepository,
	users repositories.UserRepository,
	rng *rand.Rand,
	hub *events.Hub,
	logger *slog.Logger,
) *RoundService {
	return &RoundService{
		db:          db,
		tournaments: tournaments,
		stats:       stats,
		matches:     matches,
		users:       users,
		pairing:     brackets.NewSwissPairingEngine(rng),
		tiebreaks:   brackets.NewTiebreakerCalculator(rng),
		bracket:     brackets.NewSingleEliminationGenerator(),
		hub:         hub,
		logger:      logger,
	}
}

// ValidateRound — организаторская валидация текущего раунда.
// Требует, чтобы все матчи раунда были отрепорчены.
func (s *RoundService) ValidateRound(ctx context.Context, tournamentID string, actorID int) (*ValidateResult, error) {
	result := &ValidateResult{}
	err := runInTx(ctx, s.db, func(tx *sql.Tx) error {
		t, err := s.tournaments.GetByIDForUpdate(ctx, tx, tournamentID)
		if err != nil {
			if errors.Is(err, repositories.ErrTournamentNotFound) {
				return ErrTournamentNotFound
			}
			return err
		}
		if actorID != t.OrganizerID {
			return ErrOrganizerOnly
		}
		if t.Status != models.StatusActive {
			return ErrInvalidState
		}

		round := t.CurrentRound
		roundMatches, err := s.matches.ListByTournament(ctx, tx, tournamentID, &round)
		if err != nil {
			return fmt.Errorf("failed to list round %d matches: %w", round, err)
		}
		if len(roundMatches) == 0 {
			return ErrRoundNotComplete
		}
		for _, m := range roundMatches {
			if !m.Reported {
				return ErrRoundNotComplete
			}
		}

		stats, err := s.stats.ListByTournament(ctx, tx, tournamentID)
		if err != nil {
			return fmt.Errorf("failed to list player stats: %w", err)
		}

		if t.Phase().Kind == models.PhaseSwiss {
			return s.validateSwissRound(ctx, tx, t, stats, result)
		}
		return s.validateCutRound(ctx, tx, t, roundMatches, stats, result)
	})
	if err != nil {
		return nil, err
	}

	s.hub.Broadcast(events.Event{Type: events.EventRoundValidated, TournamentID: tournamentID, Payload: result})
	if result.Finished {
		s.hub.Broadcast(events.Event{
			Type:         events.EventTournamentFinished,
			TournamentID: tournamentID,
			Payload:      map[string]int{"champion_id": result.ChampionID},
		})
	} else {
		s.hub.Broadcast(events.Event{Type: events.EventRoundPaired, TournamentID: tournamentID, Payload: map[string]int{"round": result.NextRound}})
	}
	return result, nil
}

func (s *RoundService) validateSwissRound(ctx context.Context, tx *sql.Tx, t *models.Tournament, stats []*models.PlayerStats, result *ValidateResult) error {
	statsByID := make(map[int]*models.PlayerStats, len(stats))
	for _, ps := range stats {
		statsByID[ps.UserID] = ps
	}

	players := tiebreakPlayersFrom(stats)
	s.tiebreaks.Compute(players)
	for _, p := range players {
		ps := statsByID[p.UserID]
		if ps.Frozen {
			continue
		}
		ps.OWP = p.OWP
		ps.OOWP = p.OOWP
	}

	round := t.CurrentRound

	// Срез день-1 → день-2: не добравшие порог выбывают с заморозкой
	// тай-брейков, у остальных сбрасывается право на bye (скоуп фазы).
	if t.TwoPhase && round == t.Phase1Rounds {
		threshold := brackets.Day2Threshold(t.Phase1Rounds)
		cut := 0
		for _, ps := range stats {
			if ps.Active && ps.Score < threshold {
				ps.Active = false
				ps.Frozen = true
				ps.Stage = "Day 1"
				cut++
			}
		}
		s.logger.Info("day 2 cut applied", "tournament_id", t.ID, "threshold", threshold, "cut_players", cut)
	}

	if round < t.SwissRounds {
		t.CurrentRound++
		sr, err := s.pairing.PairRound(swissPlayersFrom(stats, t, t.CurrentRound))
		if err != nil {
			return err
		}
		if err := createSwissMatches(ctx, tx, s.matches, s.stats, t, t.CurrentRound, sr, statsByID); err != nil {
			return err
		}
		if err := s.flushStats(ctx, tx, stats); err != nil {
			return err
		}
		if err := s.tournaments.Update(ctx, tx, t); err != nil {
			return fmt.Errorf("failed to update tournament: %w", err)
		}
		result.NextRound = t.CurrentRound
		return nil
	}

	// Швейцарка завершена: полный порядок таблицы нужен и для сидов
	// топ-ката, и для итоговых мест при финише без ката.
	allMatches, err := s.matches.ListByTournament(ctx, tx, t.ID, nil)
	if err != nil {
		return fmt.Errorf("failed to list matches: %w", err)
	}
	s.tiebreaks.SortStandings(players, headToHeadFromMatches(allMatches))
	ordered := make([]int, len(players))
	for i, p := range players {
		ordered[i] = p.UserID
	}

	qualifiers := cutField(t, players)
	if len(qualifiers) < 2 {
		if err := s.flushStats(ctx, tx, stats); err != nil {
			return err
		}
		return s.finalize(ctx, tx, t, stats, allMatches, ordered, result)
	}

	bracketSize := brackets.NextPowerOfTwo(len(qualifiers))
	t.TopCutSize = bracketSize
	for i, uid := range qualifiers {
		statsByID[uid].Seed = i + 1
	}
	qualifierSet := make(map[int]bool, len(qualifiers))
	for _, uid := range qualifiers {
		qualifierSet[uid] = true
	}
	for _, ps := range stats {
		if ps.Active && !qualifierSet[ps.UserID] {
			ps.Active = false
		}
	}

	firstRound, err := s.bracket.FirstRound(bracketSize, qualifiers)
	if err != nil {
		return err
	}
	t.CurrentRound++
	if err := s.createBracketMatches(ctx, tx, t, t.CurrentRound, firstRound, statsByID); err != nil {
		return err
	}
	if err := s.flushStats(ctx, tx, stats); err != nil {
		return err
	}
	if err := s.tournaments.Update(ctx, tx, t); err != nil {
		return fmt.Errorf("failed to update tournament: %w", err)
	}

	s.logger.Info("top cut started",
		"tournament_id", t.ID, "bracket_size", bracketSize, "qualifiers", len(qualifiers))
	result.TopCutStarted = true
	result.NextRound = t.CurrentRound
	return nil
}

// cutField отбирает поле топ-ката в порядке сидов: срез по местам или
// все, кто набрал порог очков. Замороженные и снявшиеся не проходят.
func cutField(t *models.Tournament, standings []*brackets.TiebreakPlayer) []int {
	if t.TopCutSize == 0 {
		return nil
	}
	qualifiers := make([]int, 0, t.TopCutSize)
	for _, p := range standings {
		if p.Dropped || p.Frozen {
			continue
		}
		if t.CutMethod == models.CutByPoints {
			if p.Score >= t.PointsRequired {
				qualifiers = append(qualifiers, p.UserID)
			}
			continue
		}
		if len(qualifiers) < t.TopCutSize {
			qualifiers = append(qualifiers, p.UserID)
		}
	}
	return qualifiers
}

func (s *RoundService) validateCutRound(ctx context.Context, tx *sql.Tx, t *models.Tournament, roundMatches []*models.Match, stats []*models.PlayerStats, result *ValidateResult) error {
	statsByID := make(map[int]*models.PlayerStats, len(stats))
	for _, ps := range stats {
		statsByID[ps.UserID] = ps
	}

	phase := t.Phase()
	playersLeft := t.TopCutSize >> uint(phase.Round-1)
	stage := brackets.RoundName(playersLeft)

	reported := make([]brackets.ReportedBracketMatch, 0, len(roundMatches))
	for _, m := range roundMatches {
		if m.WinnerID == nil || m.BracketPos == nil {
			return fmt.Errorf("%w: match %d of %s has no winner or position", brackets.ErrBracketInconsistent, m.Seq, stage)
		}
		if loserID, ok := m.OpponentOf(*m.WinnerID); ok {
			loser := statsByID[loserID]
			if loser == nil {
				return fmt.Errorf("%w: player %d", ErrPlayerNotInTournament, loserID)
			}
			loser.Active = false
			loser.Stage = stage
			if err := s.stats.Update(ctx, tx, loser); err != nil {
				return fmt.Errorf("failed to eliminate player %d: %w", loserID, err)
			}
		}

		var br, order int
		if _, err := fmt.Sscanf(*m.BracketPos, "R%dM%d", &br, &order); err != nil {
			return fmt.Errorf("%w: malformed bracket position %q", brackets.ErrBracketInconsistent, *m.BracketPos)
		}
		winnerTo := ""
		if m.WinnerTo != nil {
			winnerTo = *m.WinnerTo
		}
		reported = append(reported, brackets.ReportedBracketMatch{
			Order:    order,
			WinnerTo: winnerTo,
			WinnerID: *m.WinnerID,
		})
	}

	if len(roundMatches) == 1 {
		// Финал сыгран, чемпион определен.
		allMatches, err := s.matches.ListByTournament(ctx, tx, t.ID, nil)
		if err != nil {
			return fmt.Errorf("failed to list matches: %w", err)
		}
		ordered := s.swissOrder(stats, allMatches)
		return s.finalize(ctx, tx, t, stats, allMatches, ordered, result)
	}

	next, err := s.bracket.NextRound(t.TopCutSize, phase.Round, reported)
	if err != nil {
		return err
	}
	t.CurrentRound++
	if err := s.createBracketMatches(ctx, tx, t, t.CurrentRound, next, statsByID); err != nil {
		return err
	}
	if err := s.tournaments.Update(ctx, tx, t); err != nil {
		return fmt.Errorf("failed to update tournament: %w", err)
	}
	result.NextRound = t.CurrentRound
	return nil
}

// createBracketMatches сохраняет раунд сетки. Автопроход (bye) сразу
// Reported и засчитывается получателю как победа.
func (s *RoundService) createBracketMatches(ctx context.Context, tx *sql.Tx, t *models.Tournament, round int, bracketMatches []brackets.BracketMatch, statsByID map[int]*models.PlayerStats) error {
	for _, bm := range bracketMatches {
		t.MatchCounter++
		pos := bm.Pos
		m := &models.Match{
			TournamentID: t.ID,
			Seq:          t.MatchCounter,
			Round:        round,
			IsTopCut:     true,
			BracketPos:   &pos,
			Player1ID:    bm.Player1,
			Player2ID:    bm.Player2,
		}
		if bm.WinnerTo != "" {
			winnerTo := bm.WinnerTo
			m.WinnerTo = &winnerTo
		}
		if bm.Player2 == nil {
			winner := bm.Player1
			m.WinnerID = &winner
			m.Reported = true
		}
		if err := s.matches.Create(ctx, tx, m); err != nil {
			return fmt.Errorf("failed to create bracket match %s: %w", pos, err)
		}

		if bm.Player2 == nil {
			ps, ok := statsByID[bm.Player1]
			if !ok {
				return fmt.Errorf("%w: bye recipient %d", ErrPlayerNotInTournament, bm.Player1)
			}
			ps.Score += 3
			ps.Wins++
			ps.MatchesPlayed = append(ps.MatchesPlayed, int64(m.ID))
			ps.ByeRound = round
			if err := s.stats.Update(ctx, tx, ps); err != nil {
				return fmt.Errorf("failed to apply bracket bye to player %d: %w", bm.Player1, err)
			}
		}
	}
	return nil
}

// swissOrder строит порядок таблицы для игроков вне топ-ката на момент
// финализации (места после всех участников сетки).
func (s *RoundService) swissOrder(stats []*models.PlayerStats, allMatches []*models.Match) []int {
	players := tiebreakPlayersFrom(stats)
	s.tiebreaks.SortStandings(players, headToHeadFromMatches(allMatches))
	ordered := make([]int, len(players))
	for i, p := range players {
		ordered[i] = p.UserID
	}
	return ordered
}

// finalize — единственный переход active→finished: итоговые места,
// распределение призов, пожизненная статистика и зачистка строк
// матчей и статистики. Все в той же транзакции, что и валидация.
func (s *RoundService) finalize(ctx context.Context, tx *sql.Tx, t *models.Tournament, stats []*models.PlayerStats, allMatches []*models.Match, swissOrdered []int, result *ValidateResult) error {
	if !canTransitionStatus(t.Status, models.StatusFinished) {
		return ErrInvalidState
	}

	statsByID := make(map[int]*models.PlayerStats, len(stats))
	for _, ps := range stats {
		statsByID[ps.UserID] = ps
	}

	finalOrder := finalRanking(t, stats, allMatches, swissOrdered)

	pool := t.Stake * len(stats)
	prizes := PrizeByRank(t.PrizeMode, pool, t.TopCutSize, len(stats))

	standings := make([]models.FinalStanding, 0, len(finalOrder))
	for i, userID := range finalOrder {
		rank := i + 1
		ps := statsByID[userID]
		prize := prizes[rank]

		user, err := s.users.GetByIDForUpdate(ctx, tx, userID)
		if err != nil {
			if errors.Is(err, repositories.ErrUserNotFound) {
				return ErrUserNotFound
			}
			return err
		}
		if prize > 0 {
			user.ApplyAuraDelta(prize)
			user.AuraFromTournaments += prize
		}
		user.TournamentsPlayed++
		user.MatchWins += ps.Wins
		user.MatchLosses += ps.Losses
		if rank == 1 {
			user.TournamentWins++
		}
		if t.GuildID != "" && !user.HasServer(t.GuildID) {
			user.Servers = append(user.Servers, t.GuildID)
		}
		if err := s.users.Update(ctx, tx, user); err != nil {
			return fmt.Errorf("failed to apply prize and stats to user %d: %w", userID, err)
		}

		standings = append(standings, models.FinalStanding{
			Rank:   rank,
			UserID: userID,
			Tag:    ps.Tag,
			Score:  ps.Score,
			Wins:   ps.Wins,
			Losses: ps.Losses,
			Draws:  ps.Draws,
			OWP:    ps.OWP,
			OOWP:   ps.OOWP,
			Stage:  ps.Stage,
			Prize:  prize,
		})
	}

	// Снапшот итоговой таблицы — единственный долговечный след деталей.
	if err := s.matches.DeleteByTournament(ctx, tx, t.ID); err != nil {
		return fmt.Errorf("failed to delete matches: %w", err)
	}
	if err := s.stats.DeleteByTournament(ctx, tx, t.ID); err != nil {
		return fmt.Errorf("failed to delete player stats: %w", err)
	}

	t.Status = models.StatusFinished
	t.FinalStandings = standings
	if err := s.tournaments.Update(ctx, tx, t); err != nil {
		return fmt.Errorf("failed to update tournament: %w", err)
	}

	result.Finished = true
	if len(finalOrder) > 0 {
		result.ChampionID = finalOrder[0]
	}
	s.logger.Info("tournament finished",
		"tournament_id", t.ID, "champion_id", result.ChampionID,
		"pool", pool, "players", len(stats))
	return nil
}

// finalRanking восстанавливает итоговые места: участники сетки по
// стадии вылета (позже вылетел — выше место, внутри стадии по сиду),
// затем все остальные в порядке таблицы швейцарки.
func finalRanking(t *models.Tournament, stats []*models.PlayerStats, allMatches []*models.Match, swissOrdered []int) []int {
	type cutEntry struct {
		userID      int
		seed        int
		playersLeft int // сколько оставалось при вылете; 1 = чемпион
	}

	// Последний проигранный матч сетки определяет стадию вылета.
	lossRound := make(map[int]int)
	for _, m := range allMatches {
		if !m.IsTopCut || !m.Reported || m.WinnerID == nil {
			continue
		}
		if loserID, ok := m.OpponentOf(*m.WinnerID); ok {
			if m.Round > lossRound[loserID] {
				lossRound[loserID] = m.Round
			}
		}
	}

	cut := make([]cutEntry, 0)
	inCut := make(map[int]bool)
	for _, ps := range stats {
		if ps.Seed == 0 {
			continue
		}
		inCut[ps.UserID] = true
		left := 1 // не проиграл ни одного матча сетки — чемпион
		if r, ok := lossRound[ps.UserID]; ok {
			left = t.TopCutSize >> uint(r-t.SwissRounds-1)
		}
		cut = append(cut, cutEntry{userID: ps.UserID, seed: ps.Seed, playersLeft: left})
	}
	sort.Slice(cut, func(i, j int) bool {
		if cut[i].playersLeft != cut[j].playersLeft {
			return cut[i].playersLeft < cut[j].playersLeft
		}
		return cut[i].seed < cut[j].seed
	})

	order := make([]int, 0, len(stats))
	for _, e := range cut {
		order = append(order, e.userID)
	}
	for _, userID := range swissOrdered {
		if !inCut[userID] {
			order = append(order, userID)
		}
	}
	return order
}

func (s *RoundService) flushStats(ctx context.Context, tx *sql.Tx, stats []*models.PlayerStats) error {
	for _, ps := range stats {
		if err := s.stats.Update(ctx, tx, ps); err != nil {
			return fmt.Errorf("failed to persist stats of player %d: %w", ps.UserID, err)
		}
	}
	return nil
}
