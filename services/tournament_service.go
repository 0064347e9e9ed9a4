package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math/rand"
	"time"

	gonanoid "github.com/matoous/go-nanoid/v2"
	"golang.org/x/sync/errgroup"

	"github.com/GaburaisuVGC/fumble-bot-reloaded/brackets"
	"github.com/GaburaisuVGC/fumble-bot-reloaded/events"
	"github.com/GaburaisuVGC/fumble-bot-reloaded/models"
	"github.com/GaburaisuVGC/fumble-bot-reloaded/repositories"
	"github.com/GaburaisuVGC/fumble-bot-reloaded/storage"
)

const (
	tournamentCodeAlphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"
	tournamentCodeLength   = 6
	minPlayersToStart      = 4
)

// TournamentService ведет жизненный цикл турнира: создание, регистрация
// со ставкой Aura, старт со структурой по числу участников, отмена
// с возвратом ставок, чтение таблицы.
type TournamentService struct {
	db           *sql.DB
	tournaments  repositories.TournamentRepository
	participants repositories.ParticipantRepository
	stats        repositories.PlayerStatsRepository
	matches      repositories.MatchRepository
	users        repositories.UserRepository
	pairing      *brackets.SwissPairingEngine
	tiebreaks    *brackets.TiebreakerCalculator
	uploader     storage.FileUploader
	hub          *events.Hub
	logger       *slog.Logger
}

func NewTournamentService(
	db *sql.DB,
	tournaments repositories.TournamentRepository,
	participants repositories.ParticipantRepository,
	stats repositories.PlayerStatsRepository,
	matches repositories.MatchRepository,
	users repositories.UserRepository,
	rng *rand.Rand,
	uploader storage.FileUploader,
	hub *events.Hub,
	logger *slog.Logger,
) *TournamentService {
	return &TournamentService{
		db:           db,
		tournaments:  tournaments,
		participants: participants,
		stats:        stats,
		matches:      matches,
		users:        users,
		pairing:      brackets.NewSwissPairingEngine(rng),
		tiebreaks:    brackets.NewTiebreakerCalculator(rng),
		uploader:     uploader,
		hub:          hub,
		logger:       logger,
	}
}

type CreateTournamentInput struct {
	GuildID        string
	OrganizerID    int
	Stake          int
	PrizeMode      models.PrizeMode
	CutMethod      models.CutMethod
	PointsRequired int
	MaxPlayers     int
}

func (s *TournamentService) Create(ctx context.Context, input CreateTournamentInput) (*models.Tournament, error) {
	if input.Stake < 0 {
		return nil, ErrInvalidStake
	}
	if input.MaxPlayers < 0 {
		return nil, fmt.Errorf("%w: max players must be non-negative", ErrValidationFailed)
	}
	if input.PrizeMode == "" {
		input.PrizeMode = models.PrizeModeAll
	}
	if input.PrizeMode != models.PrizeModeAll && input.PrizeMode != models.PrizeModeSpread {
		return nil, fmt.Errorf("%w: unknown prize mode %q", ErrValidationFailed, input.PrizeMode)
	}
	if input.CutMethod == "" {
		input.CutMethod = models.CutByRank
	}
	if input.CutMethod != models.CutByRank && input.CutMethod != models.CutByPoints {
		return nil, fmt.Errorf("%w: unknown cut method %q", ErrValidationFailed, input.CutMethod)
	}
	if input.CutMethod == models.CutByPoints && input.PointsRequired <= 0 {
		return nil, fmt.Errorf("%w: points cut requires a positive threshold", ErrValidationFailed)
	}

	t := &models.Tournament{
		GuildID:        input.GuildID,
		OrganizerID:    input.OrganizerID,
		Stake:          input.Stake,
		PrizeMode:      input.PrizeMode,
		CutMethod:      input.CutMethod,
		PointsRequired: input.PointsRequired,
		MaxPlayers:     input.MaxPlayers,
		Status:         models.StatusPending,
	}

	// Коллизия 6-символьного кода маловероятна, но конфликт уникальности
	// дешево пережить повторной генерацией.
	for attempt := 0; attempt < 3; attempt++ {
		code, err := gonanoid.Generate(tournamentCodeAlphabet, tournamentCodeLength)
		if err != nil {
			return nil, fmt.Errorf("failed to generate tournament code: %w", err)
		}
		t.ID = code

		err = s.tournaments.Create(ctx, t)
		if err == nil {
			s.logger.Info("tournament created", "tournament_id", t.ID, "guild_id", t.GuildID, "organizer_id", t.OrganizerID)
			return t, nil
		}
		if errors.Is(err, repositories.ErrTournamentIDConflict) {
			continue
		}
		if errors.Is(err, repositories.ErrTournamentInvalidOrg) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("failed to create tournament: %w", err)
	}
	return nil, fmt.Errorf("failed to create tournament: code generation kept colliding")
}

// Join регистрирует игрока и списывает ставку одной транзакцией.
// Организатор может регистрировать другого игрока.
func (s *TournamentService) Join(ctx context.Context, tournamentID string, actorID, userID int, tag string) error {
	return runInTx(ctx, s.db, func(tx *sql.Tx) error {
		t, err := s.lockTournament(ctx, tx, tournamentID)
		if err != nil {
			return err
		}
		if t.Status != models.StatusPending {
			return ErrInvalidState
		}
		if userID != actorID && actorID != t.OrganizerID {
			return ErrForbiddenOperation
		}

		if t.MaxPlayers > 0 {
			count, err := s.participants.CountByTournament(ctx, tx, tournamentID)
			if err != nil {
				return fmt.Errorf("failed to count participants: %w", err)
			}
			if count >= t.MaxPlayers {
				return ErrTournamentFull
			}
		}

		user, err := s.users.GetByIDForUpdate(ctx, tx, userID)
		if err != nil {
			if errors.Is(err, repositories.ErrUserNotFound) {
				return ErrUserNotFound
			}
			return err
		}
		if user.Aura < t.Stake {
			return ErrInsufficientBalance
		}

		user.ApplyAuraDelta(-t.Stake)
		user.AuraSpentOnTournaments += t.Stake
		if err := s.users.Update(ctx, tx, user); err != nil {
			return fmt.Errorf("failed to deduct stake from user %d: %w", userID, err)
		}

		p := &models.Participant{TournamentID: tournamentID, UserID: userID, Tag: tag}
		if err := s.participants.Create(ctx, tx, p); err != nil {
			if errors.Is(err, repositories.ErrParticipantConflict) {
				return ErrRegistrationConflict
			}
			return err
		}

		ps := &models.PlayerStats{TournamentID: tournamentID, UserID: userID, Tag: tag}
		if err := s.stats.Create(ctx, tx, ps); err != nil {
			return fmt.Errorf("failed to create player stats: %w", err)
		}

		s.logger.Info("player joined tournament", "tournament_id", tournamentID, "user_id", userID, "stake", t.Stake)
		return nil
	})
}

// Leave снимает регистрацию и возвращает ставку. Только пока pending.
func (s *TournamentService) Leave(ctx context.Context, tournamentID string, actorID, userID int) error {
	return runInTx(ctx, s.db, func(tx *sql.Tx) error {
		t, err := s.lockTournament(ctx, tx, tournamentID)
		if err != nil {
			return err
		}
		if t.Status != models.StatusPending {
			return ErrInvalidState
		}
		if userID != actorID && actorID != t.OrganizerID {
			return ErrForbiddenOperation
		}

		if err := s.participants.Delete(ctx, tx, tournamentID, userID); err != nil {
			if errors.Is(err, repositories.ErrParticipantNotFound) {
				return ErrPlayerNotInTournament
			}
			return err
		}
		if err := s.stats.Delete(ctx, tx, tournamentID, userID); err != nil {
			return fmt.Errorf("failed to delete player stats: %w", err)
		}

		if err := s.refundStake(ctx, tx, userID, t.Stake); err != nil {
			return err
		}

		s.logger.Info("player left tournament", "tournament_id", tournamentID, "user_id", userID)
		return nil
	})
}

// Start выводит структуру по числу участников и генерирует первый раунд.
func (s *TournamentService) Start(ctx context.Context, tournamentID string, actorID int) (*models.Tournament, error) {
	var started *models.Tournament
	err := runInTx(ctx, s.db, func(tx *sql.Tx) error {
		t, err := s.lockTournament(ctx, tx, tournamentID)
		if err != nil {
			return err
		}
		if actorID != t.OrganizerID {
			return ErrOrganizerOnly
		}
		if !canTransitionStatus(t.Status, models.StatusActive) {
			return ErrInvalidState
		}

		stats, err := s.stats.ListByTournament(ctx, tx, tournamentID)
		if err != nil {
			return fmt.Errorf("failed to list player stats: %w", err)
		}
		if len(stats) < minPlayersToStart {
			return ErrNotEnoughPlayers
		}

		structure := brackets.StructureFor(len(stats))
		t.SwissRounds = structure.SwissRounds
		t.TopCutSize = structure.TopCutSize
		t.TwoPhase = structure.TwoPhase
		t.Phase1Rounds = structure.Phase1Rounds
		t.Phase2Rounds = structure.Phase2Rounds
		t.Status = models.StatusActive
		t.CurrentRound = 1

		statsByID := make(map[int]*models.PlayerStats, len(stats))
		for _, ps := range stats {
			statsByID[ps.UserID] = ps
		}

		round, err := s.pairing.PairRound(swissPlayersFrom(stats, t, 1))
		if err != nil {
			return err
		}
		if err := createSwissMatches(ctx, tx, s.matches, s.stats, t, 1, round, statsByID); err != nil {
			return err
		}

		if err := s.tournaments.Update(ctx, tx, t); err != nil {
			return fmt.Errorf("failed to update tournament: %w", err)
		}
		started = t
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("tournament started",
		"tournament_id", started.ID,
		"swiss_rounds", started.SwissRounds,
		"top_cut_size", started.TopCutSize,
		"two_phase", started.TwoPhase,
	)
	s.hub.Broadcast(events.Event{Type: events.EventTournamentStarted, TournamentID: started.ID})
	s.hub.Broadcast(events.Event{Type: events.EventRoundPaired, TournamentID: started.ID, Payload: map[string]int{"round": 1}})
	return started, nil
}

// Cancel — терминальный выход с возвратом ставок всем, у кого еще есть
// запись статистики (снявшиеся ставку не возвращают).
func (s *TournamentService) Cancel(ctx context.Context, tournamentID string, actorID int) error {
	err := runInTx(ctx, s.db, func(tx *sql.Tx) error {
		t, err := s.lockTournament(ctx, tx, tournamentID)
		if err != nil {
			return err
		}
		if actorID != t.OrganizerID {
			return ErrOrganizerOnly
		}
		return s.cancelLocked(ctx, tx, t)
	})
	if err != nil {
		return err
	}
	s.hub.Broadcast(events.Event{Type: events.EventTournamentCanceled, TournamentID: tournamentID})
	return nil
}

func (s *TournamentService) cancelLocked(ctx context.Context, tx *sql.Tx, t *models.Tournament) error {
	if !canTransitionStatus(t.Status, models.StatusCancelled) {
		return ErrInvalidState
	}

	stats, err := s.stats.ListByTournament(ctx, tx, t.ID)
	if err != nil {
		return fmt.Errorf("failed to list player stats: %w", err)
	}
	for _, ps := range stats {
		if err := s.refundStake(ctx, tx, ps.UserID, t.Stake); err != nil {
			return err
		}
	}

	if err := s.matches.DeleteByTournament(ctx, tx, t.ID); err != nil {
		return fmt.Errorf("failed to delete matches: %w", err)
	}
	if err := s.stats.DeleteByTournament(ctx, tx, t.ID); err != nil {
		return fmt.Errorf("failed to delete player stats: %w", err)
	}

	t.Status = models.StatusCancelled
	if err := s.tournaments.Update(ctx, tx, t); err != nil {
		return fmt.Errorf("failed to update tournament: %w", err)
	}

	s.logger.Info("tournament cancelled", "tournament_id", t.ID, "refunded_players", len(stats))
	return nil
}

// CancelStalePending отменяет зависшие pending-турниры старше cutoff
// с возвратом ставок. Вызывается ежедневной задачей планировщика.
func (s *TournamentService) CancelStalePending(ctx context.Context, maxAge time.Duration) error {
	stale, err := s.tournaments.ListStalePending(ctx, nil, time.Now().Add(-maxAge))
	if err != nil {
		return fmt.Errorf("failed to list stale pending tournaments: %w", err)
	}

	for _, t := range stale {
		err := runInTx(ctx, s.db, func(tx *sql.Tx) error {
			locked, err := s.lockTournament(ctx, tx, t.ID)
			if err != nil {
				return err
			}
			if locked.Status != models.StatusPending {
				return nil // кто-то успел стартовать или отменить
			}
			return s.cancelLocked(ctx, tx, locked)
		})
		if err != nil {
			s.logger.Error("failed to cancel stale tournament", "tournament_id", t.ID, "error", err)
			continue
		}
		s.hub.Broadcast(events.Event{Type: events.EventTournamentCanceled, TournamentID: t.ID})
	}
	return nil
}

// Get собирает турнир с участниками параллельно.
func (s *TournamentService) Get(ctx context.Context, tournamentID string) (*models.Tournament, error) {
	var (
		t            *models.Tournament
		participants []models.Participant
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		t, err = s.tournaments.GetByID(gctx, nil, tournamentID)
		if errors.Is(err, repositories.ErrTournamentNotFound) {
			return ErrTournamentNotFound
		}
		return err
	})
	g.Go(func() error {
		var err error
		participants, err = s.participants.ListByTournament(gctx, nil, tournamentID)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	t.Participants = participants
	s.populateLogoURL(t)
	return t, nil
}

func (s *TournamentService) List(ctx context.Context, filter repositories.ListTournamentsFilter) ([]models.Tournament, error) {
	tournaments, err := s.tournaments.List(ctx, filter)
	if err != nil {
		return nil, err
	}
	for i := range tournaments {
		s.populateLogoURL(&tournaments[i])
	}
	return tournaments, nil
}

// StandingRow — строка текущей таблицы турнира.
type StandingRow struct {
	Rank   int     `json:"rank"`
	UserID int     `json:"user_id"`
	Tag    string  `json:"tag"`
	Score  int     `json:"score"`
	Wins   int     `json:"wins"`
	Losses int     `json:"losses"`
	Draws  int     `json:"draws"`
	OWP    float64 `json:"owp"`
	OOWP   float64 `json:"oowp"`
	Active bool    `json:"active"`
}

// GetStandings считает текущую таблицу: тай-брейки по §-правилам и
// порядок с развязкой личными встречами. Чтение ничего не персистит.
func (s *TournamentService) GetStandings(ctx context.Context, tournamentID string) ([]StandingRow, error) {
	var (
		stats   []*models.PlayerStats
		matches []*models.Match
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		stats, err = s.stats.ListByTournament(gctx, nil, tournamentID)
		return err
	})
	g.Go(func() error {
		var err error
		matches, err = s.matches.ListByTournament(gctx, nil, tournamentID, nil)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	if len(stats) == 0 {
		// Либо турнир не существует, либо уже завершен и строки удалены.
		t, err := s.tournaments.GetByID(ctx, nil, tournamentID)
		if err != nil {
			if errors.Is(err, repositories.ErrTournamentNotFound) {
				return nil, ErrTournamentNotFound
			}
			return nil, err
		}
		rows := make([]StandingRow, 0, len(t.FinalStandings))
		for _, fs := range t.FinalStandings {
			rows = append(rows, StandingRow{
				Rank: fs.Rank, UserID: fs.UserID, Tag: fs.Tag,
				Score: fs.Score, Wins: fs.Wins, Losses: fs.Losses, Draws: fs.Draws,
				OWP: fs.OWP, OOWP: fs.OOWP,
			})
		}
		return rows, nil
	}

	statsByID := make(map[int]*models.PlayerStats, len(stats))
	for _, ps := range stats {
		statsByID[ps.UserID] = ps
	}

	players := tiebreakPlayersFrom(stats)
	s.tiebreaks.Compute(players)
	s.tiebreaks.SortStandings(players, headToHeadFromMatches(matches))

	rows := make([]StandingRow, 0, len(players))
	for i, p := range players {
		ps := statsByID[p.UserID]
		rows = append(rows, StandingRow{
			Rank:   i + 1,
			UserID: p.UserID,
			Tag:    ps.Tag,
			Score:  p.Score,
			Wins:   p.Wins,
			Losses: p.Losses,
			Draws:  p.Draws,
			OWP:    p.OWP,
			OOWP:   p.OOWP,
			Active: ps.Active,
		})
	}
	return rows, nil
}

// UploadLogo загружает логотип турнира в R2 и сохраняет ключ.
func (s *TournamentService) UploadLogo(ctx context.Context, tournamentID string, actorID int, contentType string, file io.Reader) (string, error) {
	if s.uploader == nil {
		return "", fmt.Errorf("%w: logo storage is not configured", ErrValidationFailed)
	}
	t, err := s.tournaments.GetByID(ctx, nil, tournamentID)
	if err != nil {
		if errors.Is(err, repositories.ErrTournamentNotFound) {
			return "", ErrTournamentNotFound
		}
		return "", err
	}
	if actorID != t.OrganizerID {
		return "", ErrOrganizerOnly
	}

	key := fmt.Sprintf("tournaments/%s/logo", tournamentID)
	result, err := s.uploader.Upload(ctx, key, contentType, file)
	if err != nil {
		return "", fmt.Errorf("failed to upload tournament logo: %w", err)
	}
	if err := s.tournaments.UpdateLogoKey(ctx, tournamentID, &result.Key); err != nil {
		return "", err
	}
	return result.Location, nil
}

func (s *TournamentService) populateLogoURL(t *models.Tournament) {
	if t.LogoKey == nil || s.uploader == nil {
		return
	}
	if url := s.uploader.GetPublicURL(*t.LogoKey); url != "" {
		t.LogoURL = &url
	}
}

func (s *TournamentService) lockTournament(ctx context.Context, tx *sql.Tx, id string) (*models.Tournament, error) {
	t, err := s.tournaments.GetByIDForUpdate(ctx, tx, id)
	if err != nil {
		if errors.Is(err, repositories.ErrTournamentNotFound) {
			return nil, ErrTournamentNotFound
		}
		return nil, err
	}
	return t, nil
}

func (s *TournamentService) refundStake(ctx context.Context, tx *sql.Tx, userID, stake int) error {
	if stake == 0 {
		return nil
	}
	user, err := s.users.GetByIDForUpdate(ctx, tx, userID)
	if err != nil {
		if errors.Is(err, repositories.ErrUserNotFound) {
			return ErrUserNotFound
		}
		return err
	}
	user.ApplyAuraDelta(stake)
	user.AuraSpentOnTournaments -= stake
	if err := s.users.Update(ctx, tx, user); err != nil {
		return fmt.Errorf("failed to refund stake to user %d: %w", userID, err)
	}
	return nil
}
