package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/Veraticus/shelfwise/internal/common"
	"github.com/Veraticus/shelfwise/internal/model"
)

// GetUser returns a submitter by email.
func (s *SQLiteStorage) GetUser(ctx context.Context, email string) (*model.User, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	if err := validateString(email, "email"); err != nil {
		return nil, err
	}

	var (
		user         model.User
		lastFeedback sql.NullTime
	)
	err := s.db.QueryRowContext(ctx, `
		SELECT email, roll_no, last_login, last_feedback
		FROM users
		WHERE email = ?`, email).Scan(&user.Email, &user.RollNo, &user.LastLogin, &lastFeedback)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("user %s: %w", email, common.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query user: %w", err)
	}

	if lastFeedback.Valid {
		user.LastFeedback = &lastFeedback.Time
	}
	return &user, nil
}
