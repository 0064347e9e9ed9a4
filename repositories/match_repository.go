package repositories

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/GaburaisuVGC/fumble-bot-reloaded/models"
)

var ErrMatchNotFound = errors.New("match not found")

type MatchRepository interface {
	Create(ctx context.Context, exec SQLExecutor, match *models.Match) error
	GetBySeq(ctx context.Context, exec SQLExecutor, tournamentID string, seq int) (*models.Match, error)
	ListByTournament(ctx context.Context, exec SQLExecutor, tournamentID string, round *int) ([]*models.Match, error)
	Update(ctx context.Context, exec SQLExecutor, match *models.Match) error
	Delete(ctx context.Context, exec SQLExecutor, id int) error
	DeleteAfterRound(ctx context.Context, exec SQLExecutor, tournamentID string, round int) error
	DeleteByTournament(ctx context.Context, exec SQLExecutor, tournamentID string) error
}

type postgresMatchRepository struct {
	db *sql.DB
}

func NewPostgresMatchRepository(db *sql.DB) MatchRepository {
	return &postgresMatchRepository{db: db}
}

func (r *postgresMatchRepository) getExecutor(exec SQLExecutor) SQLExecutor {
	if exec != nil {
		return exec
	}
	return r.db
}

const matchColumns = `
	id, tournament_id, seq, round, is_top_cut, bracket_pos, winner_to,
	player1_id, player2_id, winner_id, is_draw, reported, p1_snapshot, p2_snapshot`

func encodeSnapshot(s *models.StatsSnapshot) (interface{}, error) {
	if s == nil {
		return nil, nil
	}
	return json.Marshal(s)
}

func decodeSnapshot(raw []byte) (*models.StatsSnapshot, error) {
	if len(raw) == 0 {
		return nil, nil
	}
	s := &models.StatsSnapshot{}
	if err := json.Unmarshal(raw, s); err != nil {
		return nil, err
	}
	return s, nil
}

func (r *postgresMatchRepository) Create(ctx context.Context, exec SQLExecutor, m *models.Match) error {
	executor := r.getExecutor(exec)

	p1Snap, err := encodeSnapshot(m.P1Snapshot)
	if err != nil {
		return fmt.Errorf("failed to encode p1 snapshot: %w", err)
	}
	p2Snap, err := encodeSnapshot(m.P2Snapshot)
	if err != nil {
		return fmt.Errorf("failed to encode p2 snapshot: %w", err)
	}

	query := `
		INSERT INTO matches (
			tournament_id, seq, round, is_top_cut, bracket_pos, winner_to,
			player1_id, player2_id, winner_id, is_draw, reported, p1_snapshot, p2_snapshot
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
		RETURNING id`

	return executor.QueryRowContext(ctx, query,
		m.TournamentID, m.Seq, m.Round, m.IsTopCut, m.BracketPos, m.WinnerTo,
		m.Player1ID, m.Player2ID, m.WinnerID, m.IsDraw, m.Reported, p1Snap, p2Snap,
	).Scan(&m.ID)
}

func (r *postgresMatchRepository) scanMatch(row interface{ Scan(...interface{}) error }) (*models.Match, error) {
	m := &models.Match{}
	var p1Raw, p2Raw []byte
	err := row.Scan(
		&m.ID, &m.TournamentID, &m.Seq, &m.Round, &m.IsTopCut, &m.BracketPos, &m.WinnerTo,
		&m.Player1ID, &m.Player2ID, &m.WinnerID, &m.IsDraw, &m.Reported, &p1Raw, &p2Raw,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrMatchNotFound
		}
		return nil, err
	}
	if m.P1Snapshot, err = decodeSnapshot(p1Raw); err != nil {
		return nil, fmt.Errorf("failed to decode p1 snapshot of match %d: %w", m.ID, err)
	}
	if m.P2Snapshot, err = decodeSnapshot(p2Raw); err != nil {
		return nil, fmt.Errorf("failed to decode p2 snapshot of match %d: %w", m.ID, err)
	}
	return m, nil
}

func (r *postgresMatchRepository) GetBySeq(ctx context.Context, exec SQLExecutor, tournamentID string, seq int) (*models.Match, error) {
	executor := r.getExecutor(exec)
	row := executor.QueryRowContext(ctx,
		`SELECT `+matchColumns+` FROM matches WHERE tournament_id = $1 AND seq = $2`,
		tournamentID, seq,
	)
	return r.scanMatch(row)
}

func (r *postgresMatchRepository) ListByTournament(ctx context.Context, exec SQLExecutor, tournamentID string, round *int) ([]*models.Match, error) {
	executor := r.getExecutor(exec)
	query := `SELECT ` + matchColumns + ` FROM matches WHERE tournament_id = $1`
	args := []interface{}{tournamentID}
	if round != nil {
		args = append(args, *round)
		query += fmt.Sprintf(" AND round = $%d", len(args))
	}
	query += " ORDER BY round ASC, seq ASC"

	rows, err := executor.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	matches := make([]*models.Match, 0)
	for rows.Next() {
		m, scanErr := r.scanMatch(rows)
		if scanErr != nil {
			return nil, scanErr
		}
		matches = append(matches, m)
	}
	return matches, rows.Err()
}

func (r *postgresMatchRepository) Update(ctx context.Context, exec SQLExecutor, m *models.Match) error {
	executor := r.getExecutor(exec)

	p1Snap, err := encodeSnapshot(m.P1Snapshot)
	if err != nil {
		return fmt.Errorf("failed to encode p1 snapshot: %w", err)
	}
	p2Snap, err := encodeSnapshot(m.P2Snapshot)
	if err != nil {
		return fmt.Errorf("failed to encode p2 snapshot: %w", err)
	}

	query := `
		UPDATE matches SET
			winner_id = $1, is_draw = $2, reported = $3, p1_snapshot = $4, p2_snapshot = $5
		WHERE id = $6`

	result, err := executor.ExecContext(ctx, query,
		m.WinnerID, m.IsDraw, m.Reported, p1Snap, p2Snap, m.ID,
	)
	if err != nil {
		return err
	}
	return checkAffectedRows(result, ErrMatchNotFound)
}

func (r *postgresMatchRepository) Delete(ctx context.Context, exec SQLExecutor, id int) error {
	executor := r.getExecutor(exec)
	result, err := executor.ExecContext(ctx, `DELETE FROM matches WHERE id = $1`, id)
	if err != nil {
		return err
	}
	return checkAffectedRows(result, ErrMatchNotFound)
}

func (r *postgresMatchRepository) DeleteAfterRound(ctx context.Context, exec SQLExecutor, tournamentID string, round int) error {
	executor := r.getExecutor(exec)
	_, err := executor.ExecContext(ctx,
		`DELETE FROM matches WHERE tournament_id = $1 AND round > $2`,
		tournamentID, round,
	)
	return err
}

func (r *postgresMatchRepository) DeleteByTournament(ctx context.Context, exec SQLExecutor, tournamentID string) error {
	executor := r.getExecutor(exec)
	_, err := executor.ExecContext(ctx, `DELETE FROM matches WHERE tournament_id = $1`, tournamentID)
	return err
}
