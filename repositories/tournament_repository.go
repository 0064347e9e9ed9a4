package repositories

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/GaburaisuVGC/fumble-bot-reloaded/models"
	"github.com/lib/pq"
)

var (
	ErrTournamentNotFound   = errors.New("tournament not found")
	ErrTournamentIDConflict = errors.New("tournament id conflict")
	ErrTournamentInvalidOrg = errors.New("invalid organizer reference")
)

type ListTournamentsFilter struct {
	GuildID     *string
	OrganizerID *int
	Status      *models.TournamentStatus
	Limit       int
	Offset      int
}

type TournamentRepository interface {
	Create(ctx context.Context, tournament *models.Tournament) error
	GetByID(ctx context.Context, exec SQLExecutor, id string) (*models.Tournament, error)
	// GetByIDForUpdate блокирует строку турнира: два конкурентных validate
	// одного турнира сериализуются, второй видит уже закоммиченный раунд.
	GetByIDForUpdate(ctx context.Context, exec SQLExecutor, id string) (*models.Tournament, error)
	List(ctx context.Context, filter ListTournamentsFilter) ([]models.Tournament, error)
	Update(ctx context.Context, exec SQLExecutor, tournament *models.Tournament) error
	UpdateLogoKey(ctx context.Context, id string, logoKey *string) error
	ListStalePending(ctx context.Context, exec SQLExecutor, olderThan time.Time) ([]*models.Tournament, error)
}

type postgresTournamentRepository struct {
	db *sql.DB
}

func NewPostgresTournamentRepository(db *sql.DB) TournamentRepository {
	return &postgresTournamentRepository{db: db}
}

func (r *postgresTournamentRepository) getExecutor(exec SQLExecutor) SQLExecutor {
	if exec != nil {
		return exec
	}
	return r.db
}

const tournamentColumns = `
	id, guild_id, organizer_id, stake, prize_mode, cut_method, status, current_round,
	swiss_rounds, top_cut_size, points_required, two_phase, phase1_rounds, phase2_rounds,
	max_players, match_counter, final_standings, logo_key, created_at`

func (r *postgresTournamentRepository) Create(ctx context.Context, t *models.Tournament) error {
	query := `
		INSERT INTO tournaments (
			id, guild_id, organizer_id, stake, prize_mode, cut_method, status,
			points_required, max_players
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING created_at`

	err := r.db.QueryRowContext(ctx, query,
		t.ID, t.GuildID, t.OrganizerID, t.Stake, t.PrizeMode, t.CutMethod, t.Status,
		t.PointsRequired, t.MaxPlayers,
	).Scan(&t.CreatedAt)

	return handleTournamentError(err)
}

func (r *postgresTournamentRepository) scanTournament(row interface{ Scan(...interface{}) error }) (*models.Tournament, error) {
	t := &models.Tournament{}
	var standingsRaw []byte
	err := row.Scan(
		&t.ID, &t.GuildID, &t.OrganizerID, &t.Stake, &t.PrizeMode, &t.CutMethod, &t.Status, &t.CurrentRound,
		&t.SwissRounds, &t.TopCutSize, &t.PointsRequired, &t.TwoPhase, &t.Phase1Rounds, &t.Phase2Rounds,
		&t.MaxPlayers, &t.MatchCounter, &standingsRaw, &t.LogoKey, &t.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrTournamentNotFound
		}
		return nil, err
	}
	if len(standingsRaw) > 0 {
		if err := json.Unmarshal(standingsRaw, &t.FinalStandings); err != nil {
			return nil, fmt.Errorf("failed to decode final standings for tournament %s: %w", t.ID, err)
		}
	}
	return t, nil
}

func (r *postgresTournamentRepository) GetByID(ctx context.Context, exec SQLExecutor, id string) (*models.Tournament, error) {
	executor := r.getExecutor(exec)
	row := executor.QueryRowContext(ctx, `SELECT `+tournamentColumns+` FROM tournaments WHERE id = $1`, id)
	return r.scanTournament(row)
}

func (r *postgresTournamentRepository) GetByIDForUpdate(ctx context.Context, exec SQLExecutor, id string) (*models.Tournament, error) {
	executor := r.getExecutor(exec)
	row := executor.QueryRowContext(ctx, `SELECT `+tournamentColumns+` FROM tournaments WHERE id = $1 FOR UPDATE`, id)
	return r.scanTournament(row)
}

func (r *postgresTournamentRepository) List(ctx context.Context, filter ListTournamentsFilter) ([]models.Tournament, error) {
	query := `SELECT ` + tournamentColumns + ` FROM tournaments WHERE 1=1`
	args := []interface{}{}

	if filter.GuildID != nil {
		args = append(args, *filter.GuildID)
		query += fmt.Sprintf(" AND guild_id = $%d", len(args))
	}
	if filter.OrganizerID != nil {
		args = append(args, *filter.OrganizerID)
		query += fmt.Sprintf(" AND organizer_id = $%d", len(args))
	}
	if filter.Status != nil {
		args = append(args, *filter.Status)
		query += fmt.Sprintf(" AND status = $%d", len(args))
	}

	query += " ORDER BY created_at DESC"
	if filter.Limit > 0 {
		args = append(args, filter.Limit)
		query += fmt.Sprintf(" LIMIT $%d", len(args))
	}
	if filter.Offset > 0 {
		args = append(args, filter.Offset)
		query += fmt.Sprintf(" OFFSET $%d", len(args))
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	tournaments := make([]models.Tournament, 0)
	for rows.Next() {
		t, scanErr := r.scanTournament(rows)
		if scanErr != nil {
			return nil, scanErr
		}
		tournaments = append(tournaments, *t)
	}
	return tournaments, rows.Err()
}

func (r *postgresTournamentRepository) Update(ctx context.Context, exec SQLExecutor, t *models.Tournament) error {
	executor := r.getExecutor(exec)

	var standingsRaw interface{}
	if t.FinalStandings != nil {
		data, err := json.Marshal(t.FinalStandings)
		if err != nil {
			return fmt.Errorf("failed to encode final standings for tournament %s: %w", t.ID, err)
		}
		standingsRaw = data
	}

	query := `
		UPDATE tournaments SET
			status = $1, current_round = $2,
			swiss_rounds = $3, top_cut_size = $4, points_required = $5,
			two_phase = $6, phase1_rounds = $7, phase2_rounds = $8,
			max_players = $9, match_counter = $10, final_standings = $11
		WHERE id = $12`

	result, err := executor.ExecContext(ctx, query,
		t.Status, t.CurrentRound,
		t.SwissRounds, t.TopCutSize, t.PointsRequired,
		t.TwoPhase, t.Phase1Rounds, t.Phase2Rounds,
		t.MaxPlayers, t.MatchCounter, standingsRaw,
		t.ID,
	)
	if err != nil {
		return handleTournamentError(err)
	}
	return checkAffectedRows(result, ErrTournamentNotFound)
}

func (r *postgresTournamentRepository) UpdateLogoKey(ctx context.Context, id string, logoKey *string) error {
	query := `UPDATE tournaments SET logo_key = $1 WHERE id = $2`
	result, err := r.db.ExecContext(ctx, query, logoKey, id)
	if err != nil {
		return fmt.Errorf("failed to update tournament logo key: %w", err)
	}
	return checkAffectedRows(result, ErrTournamentNotFound)
}

func (r *postgresTournamentRepository) ListStalePending(ctx context.Context, exec SQLExecutor, olderThan time.Time) ([]*models.Tournament, error) {
	executor := r.getExecutor(exec)
	query := `SELECT ` + tournamentColumns + ` FROM tournaments WHERE status = $1 AND created_at <= $2`

	rows, err := executor.QueryContext(ctx, query, models.StatusPending, olderThan)
	if err != nil {
		return nil, fmt.Errorf("failed to query stale pending tournaments: %w", err)
	}
	defer rows.Close()

	var tournaments []*models.Tournament
	for rows.Next() {
		t, scanErr := r.scanTournament(rows)
		if scanErr != nil {
			return nil, scanErr
		}
		tournaments = append(tournaments, t)
	}
	return tournaments, rows.Err()
}

func handleTournamentError(err error) error {
	if err == nil {
		return nil
	}
	if pqErr, ok := err.(*pq.Error); ok {
		switch pqErr.Code {
		case "23505":
			return ErrTournamentIDConflict
		case "23503":
			if pqErr.Constraint == "tournaments_organizer_id_fkey" {
				return ErrTournamentInvalidOrg
			}
		}
	}
	return err
}
