package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	sq "github.com/Masterminds/squirrel"
	"github.com/nasermirzaei89/threadline/authentication"
)

const tableUsers = "users"

type UserRepository struct {
	db *sql.DB
	sb sq.StatementBuilderType
}

var _ authentication.UserRepository = (*UserRepository)(nil)

func NewUserRepository(db *sql.DB, placeholder sq.PlaceholderFormat) *UserRepository {
	return &UserRepository{db: db, sb: builder(placeholder)}
}

const (
	userFieldID             = "id"
	userFieldUsername       = "username"
	userFieldPasswordHash   = "password_hash"
	userFieldDisplayPicture = "display_picture"
	userFieldBio            = "bio"
	userFieldEmail          = "email"
	userFieldRegisteredAt   = "registered_at"
)

func userColumns() []string {
	return []string{
		userFieldID,
		userFieldUsername,
		userFieldPasswordHash,
		userFieldDisplayPicture,
		userFieldBio,
		userFieldEmail,
		userFieldRegisteredAt,
	}
}

func scanUser(row sq.RowScanner) (*authentication.User, error) {
	var user authentication.User

	err := row.Scan(
		&user.ID,
		&user.Username,
		&user.PasswordHash,
		&user.DisplayPicture,
		&user.Bio,
		&user.Email,
		&user.RegisteredAt,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to scan row: %w", err)
	}

	return &user, nil
}

func (repo *UserRepository) Insert(ctx context.Context, user *authentication.User) error {
	q := repo.sb.Insert(tableUsers).
		Columns(userColumns()...).
		Values(user.ID, user.Username, user.PasswordHash, user.DisplayPicture, user.Bio, user.Email, user.RegisteredAt).
		RunWith(repo.db)

	_, err := q.ExecContext(ctx)
	if err != nil {
		if isUniqueViolation(err) {
			return &authentication.UserAlreadyExistsError{Username: user.Username}
		}

		return fmt.Errorf("failed to exec insert: %w", err)
	}

	return nil
}

func (repo *UserRepository) Find(ctx context.Context, userID string) (*authentication.User, error) {
	q := repo.sb.Select(userColumns()...).
		From(tableUsers).
		Where(sq.Eq{userFieldID: userID}).
		RunWith(repo.db)

	user, err := scanUser(q.QueryRowContext(ctx))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, &authentication.UserNotFoundError{ID: userID}
		}

		return nil, fmt.Errorf("failed to scan user: %w", err)
	}

	return user, nil
}

func (repo *UserRepository) FindByUsername(ctx context.Context, username string) (*authentication.User, error) {
	q := repo.sb.Select(userColumns()...).
		From(tableUsers).
		Where(sq.Eq{userFieldUsername: username}).
		RunWith(repo.db)

	user, err := scanUser(q.QueryRowContext(ctx))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, &authentication.UserByUsernameNotFoundError{Username: username}
		}

		return nil, fmt.Errorf("failed to scan user: %w", err)
	}

	return user, nil
}

func (repo *UserRepository) ListUsernames(ctx context.Context) ([]string, error) {
	q := repo.sb.Select(userFieldUsername).From(tableUsers).RunWith(repo.db)

	rows, err := q.QueryContext(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to query usernames: %w", err)
	}

	defer closeRows(ctx, rows)

	usernames := make([]string, 0)

	for rows.Next() {
		var username string

		err := rows.Scan(&username)
		if err != nil {
			return nil, fmt.Errorf("failed to scan username: %w", err)
		}

		usernames = append(usernames, username)
	}

	err = rows.Err()
	if err != nil {
		return nil, fmt.Errorf("failed to iterate usernames: %w", err)
	}

	return usernames, nil
}

// Update stores the profile fields of user. Renaming onto a taken username
// answers *authentication.UserAlreadyExistsError.
func (repo *UserRepository) Update(ctx context.Context, user *authentication.User) error {
	q := repo.sb.Update(tableUsers).
		Set(userFieldUsername, user.Username).
		Set(userFieldDisplayPicture, user.DisplayPicture).
		Set(userFieldBio, user.Bio).
		Set(userFieldEmail, user.Email).
		Where(sq.Eq{userFieldID: user.ID}).
		RunWith(repo.db)

	result, err := q.ExecContext(ctx)
	if err != nil {
		if isUniqueViolation(err) {
			return &authentication.UserAlreadyExistsError{Username: user.Username}
		}

		return fmt.Errorf("failed to exec update: %w", err)
	}

	return requireAffected(result, user.ID)
}

func (repo *UserRepository) UpdatePasswordHash(ctx context.Context, userID, passwordHash string) error {
	q := repo.sb.Update(tableUsers).
		Set(userFieldPasswordHash, passwordHash).
		Where(sq.Eq{userFieldID: userID}).
		RunWith(repo.db)

	result, err := q.ExecContext(ctx)
	if err != nil {
		return fmt.Errorf("failed to exec update: %w", err)
	}

	return requireAffected(result, userID)
}

func (repo *UserRepository) Delete(ctx context.Context, userID string) error {
	q := repo.sb.Delete(tableUsers).
		Where(sq.Eq{userFieldID: userID}).
		RunWith(repo.db)

	_, err := q.ExecContext(ctx)
	if err != nil {
		return fmt.Errorf("failed to exec delete: %w", err)
	}

	return nil
}

func requireAffected(result sql.Result, userID string) error {
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}

	if rowsAffected == 0 {
		return &authentication.UserNotFoundError{ID: userID}
	}

	return nil
}
