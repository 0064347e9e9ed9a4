package repositories

import (
	"context"
	"database/sql"
	"errors"

	"github.com/GaburaisuVGC/fumble-bot-reloaded/models"
	"github.com/lib/pq"
)

var (
	ErrPlayerStatsNotFound = errors.New("player stats not found")
	ErrPlayerStatsConflict = errors.New("player stats already exist for this tournament")
)

type PlayerStatsRepository interface {
	Create(ctx context.Context, exec SQLExecutor, stats *models.PlayerStats) error
	Get(ctx context.Context, exec SQLExecutor, tournamentID string, userID int) (*models.PlayerStats, error)
	ListByTournament(ctx context.Context, exec SQLExecutor, tournamentID string) ([]*models.PlayerStats, error)
	Update(ctx context.Context, exec SQLExecutor, stats *models.PlayerStats) error
	Delete(ctx context.Context, exec SQLExecutor, tournamentID string, userID int) error
	DeleteByTournament(ctx context.Context, exec SQLExecutor, tournamentID string) error
}

type postgresPlayerStatsRepository struct {
	db *sql.DB
}

func NewPostgresPlayerStatsRepository(db *sql.DB) PlayerStatsRepository {
	return &postgresPlayerStatsRepository{db: db}
}

func (r *postgresPlayerStatsRepository) getExecutor(exec SQLExecutor) SQLExecutor {
	if exec != nil {
		return exec
	}
	return r.db
}

const playerStatsColumns = `
	tournament_id, user_id, tag, score, wins, losses, draws,
	matches_played, opponents, phase2_opponents, owp, oowp,
	bye_round, active, frozen, seed, final_rank, stage`

func (r *postgresPlayerStatsRepository) Create(ctx context.Context, exec SQLExecutor, s *models.PlayerStats) error {
	executor := r.getExecutor(exec)
	query := `
		INSERT INTO player_stats (
			tournament_id, user_id, tag, matches_played, opponents, phase2_opponents, active
		) VALUES ($1, $2, $3, $4, $5, $6, TRUE)`

	_, err := executor.ExecContext(ctx, query,
		s.TournamentID, s.UserID, s.Tag,
		pq.Array(s.MatchesPlayed), pq.Array(s.Opponents), pq.Array(s.Phase2Opponents),
	)
	if err != nil {
		if pqErr, ok := err.(*pq.Error); ok && pqErr.Code == "23505" {
			return ErrPlayerStatsConflict
		}
		return err
	}
	s.Active = true
	return nil
}

func (r *postgresPlayerStatsRepository) scanStats(row interface{ Scan(...interface{}) error }) (*models.PlayerStats, error) {
	s := &models.PlayerStats{}
	err := row.Scan(
		&s.TournamentID, &s.UserID, &s.Tag, &s.Score, &s.Wins, &s.Losses, &s.Draws,
		pq.Array(&s.MatchesPlayed), pq.Array(&s.Opponents), pq.Array(&s.Phase2Opponents),
		&s.OWP, &s.OOWP,
		&s.ByeRound, &s.Active, &s.Frozen, &s.Seed, &s.FinalRank, &s.Stage,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrPlayerStatsNotFound
		}
		return nil, err
	}
	return s, nil
}

func (r *postgresPlayerStatsRepository) Get(ctx context.Context, exec SQLExecutor, tournamentID string, userID int) (*models.PlayerStats, error) {
	executor := r.getExecutor(exec)
	row := executor.QueryRowContext(ctx,
		`SELECT `+playerStatsColumns+` FROM player_stats WHERE tournament_id = $1 AND user_id = $2`,
		tournamentID, userID,
	)
	return r.scanStats(row)
}

func (r *postgresPlayerStatsRepository) ListByTournament(ctx context.Context, exec SQLExecutor, tournamentID string) ([]*models.PlayerStats, error) {
	executor := r.getExecutor(exec)
	rows, err := executor.QueryContext(ctx,
		`SELECT `+playerStatsColumns+` FROM player_stats WHERE tournament_id = $1 ORDER BY user_id ASC`,
		tournamentID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	stats := make([]*models.PlayerStats, 0)
	for rows.Next() {
		s, scanErr := r.scanStats(rows)
		if scanErr != nil {
			return nil, scanErr
		}
		stats = append(stats, s)
	}
	return stats, rows.Err()
}

func (r *postgresPlayerStatsRepository) Update(ctx context.Context, exec SQLExecutor, s *models.PlayerStats) error {
	executor := r.getExecutor(exec)
	query := `
		UPDATE player_stats SET
			score = $1, wins = $2, losses = $3, draws = $4,
			matches_played = $5, opponents = $6, phase2_opponents = $7,
			owp = $8, oowp = $9, bye_round = $10, active = $11, frozen = $12,
			seed = $13, final_rank = $14, stage = $15
		WHERE tournament_id = $16 AND user_id = $17`

	result, err := executor.ExecContext(ctx, query,
		s.Score, s.Wins, s.Losses, s.Draws,
		pq.Array(s.MatchesPlayed), pq.Array(s.Opponents), pq.Array(s.Phase2Opponents),
		s.OWP, s.OOWP, s.ByeRound, s.Active, s.Frozen,
		s.Seed, s.FinalRank, s.Stage,
		s.TournamentID, s.UserID,
	)
	if err != nil {
		return err
	}
	return checkAffectedRows(result, ErrPlayerStatsNotFound)
}

func (r *postgresPlayerStatsRepository) Delete(ctx context.Context, exec SQLExecutor, tournamentID string, userID int) error {
	executor := r.getExecutor(exec)
	result, err := executor.ExecContext(ctx,
		`DELETE FROM player_stats WHERE tournament_id = $1 AND user_id = $2`,
		tournamentID, userID,
	)
	if err != nil {
		return err
	}
	return checkAffectedRows(result, ErrPlayerStatsNotFound)
}

func (r *postgresPlayerStatsRepository) DeleteByTournament(ctx context.Context, exec SQLExecutor, tournamentID string) error {
	executor := r.getExecutor(exec)
	_, err := executor.ExecContext(ctx, `DELETE FROM player_stats WHERE tournament_id = $1`, tournamentID)
	return err
}
