package repositories

import (
	"context"
	"database/sql"
	"errors"

	"github.com/GaburaisuVGC/fumble-bot-reloaded/models"
	"github.com/lib/pq"
)

var (
	ErrParticipantNotFound = errors.New("participant registration not found")
	ErrParticipantConflict = errors.New("user is already registered for this tournament")
)

type ParticipantRepository interface {
	Create(ctx context.Context, exec SQLExecutor, p *models.Participant) error
	Delete(ctx context.Context, exec SQLExecutor, tournamentID string, userID int) error
	ListByTournament(ctx context.Context, exec SQLExecutor, tournamentID string) ([]models.Participant, error)
	CountByTournament(ctx context.Context, exec SQLExecutor, tournamentID string) (int, error)
	Exists(ctx context.Context, exec SQLExecutor, tournamentID string, userID int) (bool, error)
}

type postgresParticipantRepository struct {
	db *sql.DB
}

func NewPostgresParticipantRepository(db *sql.DB) ParticipantRepository {
	return &postgresParticipantRepository{db: db}
}

func (r *postgresParticipantRepository) getExecutor(exec SQLExecutor) SQLExecutor {
	if exec != nil {
		return exec
	}
	return r.db
}

func (r *postgresParticipantRepository) Create(ctx context.Context, exec SQLExecutor, p *models.Participant) error {
	executor := r.getExecutor(exec)
	query := `
		INSERT INTO participants (tournament_id, user_id, tag)
		VALUES ($1, $2, $3)
		RETURNING created_at`

	err := executor.QueryRowContext(ctx, query, p.TournamentID, p.UserID, p.Tag).Scan(&p.CreatedAt)
	if err != nil {
		if pqErr, ok := err.(*pq.Error); ok && pqErr.Code == "23505" {
			return ErrParticipantConflict
		}
		return err
	}
	return nil
}

func (r *postgresParticipantRepository) Delete(ctx context.Context, exec SQLExecutor, tournamentID string, userID int) error {
	executor := r.getExecutor(exec)
	query := `DELETE FROM participants WHERE tournament_id = $1 AND user_id = $2`
	result, err := executor.ExecContext(ctx, query, tournamentID, userID)
	if err != nil {
		return err
	}
	return checkAffectedRows(result, ErrParticipantNotFound)
}

func (r *postgresParticipantRepository) ListByTournament(ctx context.Context, exec SQLExecutor, tournamentID string) ([]models.Participant, error) {
	executor := r.getExecutor(exec)
	query := `
		SELECT tournament_id, user_id, tag, created_at
		FROM participants
		WHERE tournament_id = $1
		ORDER BY created_at ASC, user_id ASC`

	rows, err := executor.QueryContext(ctx, query, tournamentID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	participants := make([]models.Participant, 0)
	for rows.Next() {
		var p models.Participant
		if scanErr := rows.Scan(&p.TournamentID, &p.UserID, &p.Tag, &p.CreatedAt); scanErr != nil {
			return nil, scanErr
		}
		participants = append(participants, p)
	}
	return participants, rows.Err()
}

func (r *postgresParticipantRepository) CountByTournament(ctx context.Context, exec SQLExecutor, tournamentID string) (int, error) {
	executor := r.getExecutor(exec)
	var count int
	err := executor.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM participants WHERE tournament_id = $1`, tournamentID,
	).Scan(&count)
	return count, err
}

func (r *postgresParticipantRepository) Exists(ctx context.Context, exec SQLExecutor, tournamentID string, userID int) (bool, error) {
	executor := r.getExecutor(exec)
	var exists bool
	err := executor.QueryRowContext(ctx,
		`SELECT EXISTS(SELECT 1 FROM participants WHERE tournament_id = $1 AND user_id = $2)`,
		tournamentID, userID,
	).Scan(&exists)
	return exists, err
}
