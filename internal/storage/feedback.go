package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/goccy/go-json"

	"github.com/Veraticus/shelfwise/internal/common"
	"github.com/Veraticus/shelfwise/internal/model"
	"github.com/Veraticus/shelfwise/internal/service"
)

// SaveSubmission stores a feedback record, its issue when present, and the
// submitter's cooldown timestamp in one transaction. Either everything is
// written or nothing is. When the submitter's previous feedback is less than
// cooldown old, nothing is written and common.ErrCooldownActive is returned;
// a cooldown of zero or less disables the check.
func (s *SQLiteStorage) SaveSubmission(ctx context.Context, feedback *model.Feedback, issue *model.Issue, cooldown time.Duration) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if err := validateFeedback(feedback); err != nil {
		return err
	}
	if issue != nil {
		if err := validateIssue(issue); err != nil {
			return err
		}
	}

	answers, err := json.Marshal(feedback.Answers)
	if err != nil {
		return fmt.Errorf("failed to encode answers: %w", err)
	}

	submitted := feedback.SubmittedAt.UTC()

	return s.inTx(ctx, func(tx *sql.Tx) error {
		// The upsert claims the cooldown. It changes no row while the
		// previous feedback is too recent.
		res, err := tx.ExecContext(ctx, `
			INSERT INTO users (email, roll_no, last_login, last_feedback)
			VALUES (?, ?, ?, ?)
			ON CONFLICT(email) DO UPDATE SET
				last_login = excluded.last_login,
				last_feedback = excluded.last_feedback
			WHERE ? OR users.last_feedback IS NULL OR users.last_feedback <= ?`,
			feedback.Email, feedback.RollNo, submitted, submitted,
			cooldown <= 0, submitted.Add(-cooldown))
		if err != nil {
			return fmt.Errorf("failed to update user: %w", err)
		}
		claimed, err := res.RowsAffected()
		if err != nil {
			return fmt.Errorf("failed to update user: %w", err)
		}
		if claimed == 0 {
			return fmt.Errorf("%w: %s", common.ErrCooldownActive, feedback.Email)
		}

		if issue != nil {
			if err := insertIssueTx(ctx, tx, issue); err != nil {
				return err
			}
		}

		_, err = tx.ExecContext(ctx, `
			INSERT INTO feedback (id, email, roll_no, answers, submitted_at, time_taken, floor_no, issue_presence, issue_id)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			feedback.ID, feedback.Email, feedback.RollNo, string(answers), submitted,
			feedback.TimeTakenSeconds, feedback.FloorNo, feedback.IssuePresence, feedback.IssueID)
		if err != nil {
			if isUniqueViolation(err) {
				return fmt.Errorf("%w: feedback %s", common.ErrDuplicateEntry, feedback.ID)
			}
			return fmt.Errorf("failed to insert feedback: %w", err)
		}

		_, err = tx.ExecContext(ctx, `INSERT INTO user_logs (roll_no, logged_at) VALUES (?, ?)`,
			feedback.RollNo, submitted)
		if err != nil {
			return fmt.Errorf("failed to log submission: %w", err)
		}
		return nil
	})
}

// GetFeedback returns one feedback record by ID.
func (s *SQLiteStorage) GetFeedback(ctx context.Context, id string) (*model.Feedback, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	if err := validateString(id, "id"); err != nil {
		return nil, err
	}

	row := s.db.QueryRowContext(ctx, feedbackColumns+` WHERE id = ?`, id)
	feedback, err := scanFeedback(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("feedback %s: %w", id, common.ErrNotFound)
	}
	if err != nil {
		return nil, err
	}
	return feedback, nil
}

// ListFeedback returns feedback matching the filter, newest first.
func (s *SQLiteStorage) ListFeedback(ctx context.Context, filter service.FeedbackFilter) ([]model.Feedback, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}

	var (
		where []string
		args  []any
	)
	if filter.RollNo != "" {
		where = append(where, "LOWER(roll_no) LIKE ?")
		args = append(args, "%"+strings.ToLower(filter.RollNo)+"%")
	}
	if filter.Keyword != "" {
		where = append(where, `EXISTS (
			SELECT 1 FROM json_each(feedback.answers)
			WHERE LOWER(json_extract(json_each.value, '$.answer')) LIKE ?)`)
		args = append(args, "%"+strings.ToLower(filter.Keyword)+"%")
	}
	if filter.Start != nil {
		where = append(where, "submitted_at >= ?")
		args = append(args, filter.Start.UTC())
	}
	if filter.End != nil {
		where = append(where, "submitted_at <= ?")
		args = append(args, filter.End.UTC())
	}

	query := feedbackColumns
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += " ORDER BY submitted_at DESC"
	if filter.Limit > 0 {
		query += fmt.Sprintf(" LIMIT %d", filter.Limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query feedback: %w", err)
	}
	defer rows.Close()

	var result []model.Feedback
	for rows.Next() {
		feedback, err := scanFeedback(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *feedback)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating feedback: %w", err)
	}
	return result, nil
}

// FeedbackCountsByDay counts submissions per calendar day (in loc) since the
// given instant. Days without feedback are absent from the map.
func (s *SQLiteStorage) FeedbackCountsByDay(ctx context.Context, since time.Time, loc *time.Location) (map[string]int, error) {
	return s.countByDay(ctx, `SELECT submitted_at FROM feedback WHERE submitted_at >= ?`, since, loc)
}

// ActivityCountsByDay counts user_logs entries per calendar day (in loc)
// since the given instant.
func (s *SQLiteStorage) ActivityCountsByDay(ctx context.Context, since time.Time, loc *time.Location) (map[string]int, error) {
	return s.countByDay(ctx, `SELECT logged_at FROM user_logs WHERE logged_at >= ?`, since, loc)
}

// countByDay buckets the single timestamp column returned by query.
func (s *SQLiteStorage) countByDay(ctx context.Context, query string, since time.Time, loc *time.Location) (map[string]int, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	if loc == nil {
		loc = time.UTC
	}

	rows, err := s.db.QueryContext(ctx, query, since.UTC())
	if err != nil {
		return nil, fmt.Errorf("failed to query dates: %w", err)
	}
	defer rows.Close()

	counts := make(map[string]int)
	for rows.Next() {
		var at time.Time
		if err := rows.Scan(&at); err != nil {
			return nil, fmt.Errorf("failed to scan date: %w", err)
		}
		counts[at.In(loc).Format(time.DateOnly)]++
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating dates: %w", err)
	}
	return counts, nil
}

const feedbackColumns = `
	SELECT id, email, roll_no, answers, submitted_at, time_taken, floor_no, issue_presence, issue_id
	FROM feedback`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanFeedback(row rowScanner) (*model.Feedback, error) {
	var (
		feedback model.Feedback
		answers  string
		issueID  sql.NullString
	)
	err := row.Scan(&feedback.ID, &feedback.Email, &feedback.RollNo, &answers, &feedback.SubmittedAt,
		&feedback.TimeTakenSeconds, &feedback.FloorNo, &feedback.IssuePresence, &issueID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to scan feedback: %w", err)
	}

	if err := json.Unmarshal([]byte(answers), &feedback.Answers); err != nil {
		return nil, fmt.Errorf("failed to decode answers of feedback %s: %w", feedback.ID, err)
	}
	if issueID.Valid {
		feedback.IssueID = &issueID.String
	}
	return &feedback, nil
}

func isUniqueViolation(err error) bool {
	return err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed")
}
