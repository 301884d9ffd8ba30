package postgres

import (
	"context"
	"strings"

	"travelbook/internal/models"
	"travelbook/internal/store"

	"github.com/google/uuid"
)

func (s *Store) CreateUser(ctx context.Context, input store.CreateUserInput) (models.User, error) {
	user := models.User{
		UserID:       uuid.NewString(),
		Name:         input.Name,
		Email:        strings.ToLower(input.Email),
		Role:         input.Role,
		PasswordHash: input.PasswordHash,
	}
	row := s.pool.QueryRow(ctx, `
		INSERT INTO users (user_id, name, email, role, password_hash)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING created_at
	`, user.UserID, user.Name, user.Email, user.Role, user.PasswordHash)
	if err := row.Scan(&user.Created); err != nil {
		if isUniqueViolation(err) {
			return models.User{}, store.ErrEmailTaken
		}
		return models.User{}, err
	}
	return user, nil
}

func (s *Store) GetUserByEmail(ctx context.Context, email string) (models.User, error) {
	var user models.User
	row := s.pool.QueryRow(ctx, `
		SELECT user_id, name, email, role, password_hash, created_at
		FROM users
		WHERE lower(email) = lower($1)
	`, email)
	if err := row.Scan(&user.UserID, &user.Name, &user.Email, &user.Role, &user.PasswordHash, &user.Created); err != nil {
		return models.User{}, notFound(err)
	}
	return user, nil
}

func (s *Store) GetUser(ctx context.Context, userID string) (models.User, error) {
	var user models.User
	row := s.pool.QueryRow(ctx, `
		SELECT user_id, name, email, role, password_hash, created_at
		FROM users
		WHERE user_id = $1
	`, userID)
	if err := row.Scan(&user.UserID, &user.Name, &user.Email, &user.Role, &user.PasswordHash, &user.Created); err != nil {
		return models.User{}, notFound(err)
	}
	return user, nil
}
