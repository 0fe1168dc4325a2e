package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/Kananelo-MotubaSt10134954/INSYBankSystemPOE/internal/models"
	"github.com/Kananelo-MotubaSt10134954/INSYBankSystemPOE/internal/store"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

const uniqueViolation = "23505"

const userColumns = `user_id, username, full_name, id_number, account_number, password_hash, role, created_at`

func (s *Store) UserExists(ctx context.Context, username, accountNumber, idNumber string) (bool, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	var exists bool
	err := s.pool.QueryRow(ctx, `
		SELECT EXISTS (
			SELECT 1 FROM users
			WHERE username = $1 OR account_number = $2 OR id_number = $3
		)
	`, username, accountNumber, idNumber).Scan(&exists)
	return exists, err
}

func (s *Store) CreateUser(ctx context.Context, user models.User) (models.User, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	if user.UserID == "" {
		user.UserID = uuid.NewString()
	}
	if user.CreatedAt.IsZero() {
		user.CreatedAt = time.Now().UTC()
	}

	row := s.pool.QueryRow(ctx, `
		INSERT INTO users (user_id, username, full_name, id_number, account_number, password_hash, role, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING `+userColumns,
		user.UserID, user.Username, user.FullName, user.IDNumber, user.AccountNumber, user.PasswordHash, string(user.Role), user.CreatedAt)
	created, err := scanUser(row)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return models.User{}, store.ErrUserExists
		}
		return models.User{}, err
	}
	return created, nil
}

func (s *Store) FindUser(ctx context.Context, lookup store.UserLookup) (models.User, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	var row pgx.Row
	if lookup.AccountNumber != "" {
		row = s.pool.QueryRow(ctx, `
			SELECT `+userColumns+`
			FROM users
			WHERE username = $1 AND account_number = $2 AND role = $3
		`, lookup.Username, lookup.AccountNumber, string(lookup.Role))
	} else {
		row = s.pool.QueryRow(ctx, `
			SELECT `+userColumns+`
			FROM users
			WHERE username = $1 AND role = $2
		`, lookup.Username, string(lookup.Role))
	}
	return scanUser(row)
}

func (s *Store) GetUser(ctx context.Context, userID string) (models.User, error) {
	if _, err := uuid.Parse(userID); err != nil {
		return models.User{}, store.ErrUserNotFound
	}
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	row := s.pool.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE user_id = $1`, userID)
	return scanUser(row)
}

func (s *Store) ListUsers(ctx context.Context, limit int) ([]models.User, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	rows, err := s.pool.Query(ctx, `
		SELECT `+userColumns+`
		FROM users
		ORDER BY created_at
		LIMIT $1
	`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	users := make([]models.User, 0)
	for rows.Next() {
		user, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		users = append(users, user)
	}
	return users, rows.Err()
}

func scanUser(row pgx.Row) (models.User, error) {
	var user models.User
	var role string
	if err := row.Scan(&user.UserID, &user.Username, &user.FullName, &user.IDNumber, &user.AccountNumber, &user.PasswordHash, &role, &user.CreatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return models.User{}, store.ErrUserNotFound
		}
		return models.User{}, err
	}
	user.Role = models.Role(role)
	return user, nil
}
