package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/GaburaisuVGC/fumble-bot-reloaded/models"
	"github.com/lib/pq"
)

var (
	ErrUserNotFound         = errors.New("user not found")
	ErrUserEmailConflict    = errors.New("email address is already in use")
	ErrUserNicknameConflict = errors.New("nickname is already in use")
)

type LeaderboardFilter struct {
	GuildID *string
	Limit   int
	Offset  int
}

type UserRepository interface {
	Create(ctx context.Context, user *models.User) error
	GetByID(ctx context.Context, exec SQLExecutor, id int) (*models.User, error)
	GetByIDForUpdate(ctx context.Context, exec SQLExecutor, id int) (*models.User, error)
	GetByEmail(ctx context.Context, email string) (*models.User, error)
	Update(ctx context.Context, exec SQLExecutor, user *models.User) error
	Leaderboard(ctx context.Context, filter LeaderboardFilter) ([]models.User, error)
}

type postgresUserRepository struct {
	db *sql.DB
}

func NewPostgresUserRepository(db *sql.DB) UserRepository {
	return &postgresUserRepository{db: db}
}

func (r *postgresUserRepository) getExecutor(exec SQLExecutor) SQLExecutor {
	if exec != nil {
		return exec
	}
	return r.db
}

const userColumns = `
	id, nickname, email, password_hash, aura, rank_title, peak_aura, lowest_aura,
	tournament_wins, tournaments_played, match_wins, match_losses,
	aura_from_tournaments, aura_spent_on_tournaments, servers, created_at`

func (r *postgresUserRepository) Create(ctx context.Context, u *models.User) error {
	query := `
		INSERT INTO users (
			nickname, email, password_hash, aura, rank_title, peak_aura, lowest_aura, servers
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING id, created_at`

	err := r.db.QueryRowContext(ctx, query,
		u.Nickname, u.Email, u.PasswordHash, u.Aura, u.RankTitle, u.PeakAura, u.LowestAura,
		pq.Array(u.Servers),
	).Scan(&u.ID, &u.CreatedAt)

	return handleUserError(err)
}

func (r *postgresUserRepository) scanUser(row interface{ Scan(...interface{}) error }) (*models.User, error) {
	u := &models.User{}
	err := row.Scan(
		&u.ID, &u.Nickname, &u.Email, &u.PasswordHash, &u.Aura, &u.RankTitle, &u.PeakAura, &u.LowestAura,
		&u.TournamentWins, &u.TournamentsPlayed, &u.MatchWins, &u.MatchLosses,
		&u.AuraFromTournaments, &u.AuraSpentOnTournaments, pq.Array(&u.Servers), &u.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}
	return u, nil
}

func (r *postgresUserRepository) GetByID(ctx context.Context, exec SQLExecutor, id int) (*models.User, error) {
	executor := r.getExecutor(exec)
	row := executor.QueryRowContext(ctx, `SELECT `+userColumns+` FROM users WHERE id = $1`, id)
	return r.scanUser(row)
}

// GetByIDForUpdate блокирует строку пользователя на время транзакции:
// конкурентные списания/начисления Aura сериализуются на уровне БД.
func (r *postgresUserRepository) GetByIDForUpdate(ctx context.Context, exec SQLExecutor, id int) (*models.User, error) {
	executor := r.getExecutor(exec)
	row := executor.QueryRowContext(ctx, `SELECT `+userColumns+` FROM users WHERE id = $1 FOR UPDATE`, id)
	return r.scanUser(row)
}

func (r *postgresUserRepository) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+userColumns+` FROM users WHERE email = $1`, email)
	return r.scanUser(row)
}

func (r *postgresUserRepository) Update(ctx context.Context, exec SQLExecutor, u *models.User) error {
	executor := r.getExecutor(exec)
	query := `
		UPDATE users SET
			nickname = $1, aura = $2, rank_title = $3, peak_aura = $4, lowest_aura = $5,
			tournament_wins = $6, tournaments_played = $7, match_wins = $8, match_losses = $9,
			aura_from_tournaments = $10, aura_spent_on_tournaments = $11, servers = $12
		WHERE id = $13`

	result, err := executor.ExecContext(ctx, query,
		u.Nickname, u.Aura, u.RankTitle, u.PeakAura, u.LowestAura,
		u.TournamentWins, u.TournamentsPlayed, u.MatchWins, u.MatchLosses,
		u.AuraFromTournaments, u.AuraSpentOnTournaments, pq.Array(u.Servers),
		u.ID,
	)
	if err != nil {
		return handleUserError(err)
	}
	return checkAffectedRows(result, ErrUserNotFound)
}

func (r *postgresUserRepository) Leaderboard(ctx context.Context, filter LeaderboardFilter) ([]models.User, error) {
	query := `SELECT ` + userColumns + ` FROM users`
	args := []interface{}{}

	if filter.GuildID != nil {
		query += ` WHERE $1 = ANY(servers)`
		args = append(args, *filter.GuildID)
	}
	query += ` ORDER BY aura DESC, peak_aura DESC, id ASC`
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

	users := make([]models.User, 0)
	for rows.Next() {
		u, scanErr := r.scanUser(rows)
		if scanErr != nil {
			return nil, scanErr
		}
		users = append(users, *u)
	}
	return users, rows.Err()
}

func handleUserError(err error) error {
	if err == nil {
		return nil
	}
	if pqErr, ok := err.(*pq.Error); ok && pqErr.Code == "23505" {
		switch pqErr.Constraint {
		case "users_email_key":
			return ErrUserEmailConflict
		case "users_nickname_key":
			return ErrUserNicknameConflict
		}
	}
	return err
}
