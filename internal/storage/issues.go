package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/Veraticus/shelfwise/internal/common"
	"github.com/Veraticus/shelfwise/internal/model"
)

const issueColumns = `
	SELECT id, raised_by, roll_no, issue, raised_at, user_score, status, category, resolved_at
	FROM issues`

func insertIssueTx(ctx context.Context, tx *sql.Tx, issue *model.Issue) error {
	_, err := tx.ExecContext(ctx, `
		INSERT INTO issues (id, raised_by, roll_no, issue, raised_at, user_score, status, category, resolved_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		issue.ID, issue.RaisedBy, issue.RollNo, issue.Text, issue.RaisedAt.UTC(),
		issue.UserScore, string(issue.Status), issue.Category, utcPtr(issue.ResolvedAt))
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("%w: issue %s", common.ErrDuplicateEntry, issue.ID)
		}
		return fmt.Errorf("failed to insert issue: %w", err)
	}
	return nil
}

// GetIssue returns one issue by ID.
func (s *SQLiteStorage) GetIssue(ctx context.Context, id string) (*model.Issue, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	if err := validateString(id, "id"); err != nil {
		return nil, err
	}

	issue, err := scanIssue(s.db.QueryRowContext(ctx, issueColumns+` WHERE id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("issue %s: %w", id, common.ErrNotFound)
	}
	return issue, err
}

// ListIssues returns issues matching the filter, newest first.
func (s *SQLiteStorage) ListIssues(ctx context.Context, filter model.IssueFilter) ([]model.Issue, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}

	var (
		where []string
		args  []any
	)
	if filter.Status != "" {
		if err := validateStatus(filter.Status); err != nil {
			return nil, err
		}
		where = append(where, "status = ?")
		args = append(args, string(filter.Status))
	}
	if filter.Category != "" {
		where = append(where, "category = ?")
		args = append(args, filter.Category)
	}
	if filter.Query != "" {
		pattern := "%" + strings.ToLower(filter.Query) + "%"
		where = append(where, "(LOWER(raised_by) LIKE ? OR LOWER(roll_no) LIKE ?)")
		args = append(args, pattern, pattern)
	}

	query := issueColumns
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += " ORDER BY raised_at DESC"

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query issues: %w", err)
	}
	defer rows.Close()

	var issues []model.Issue
	for rows.Next() {
		issue, err := scanIssue(rows)
		if err != nil {
			return nil, err
		}
		issues = append(issues, *issue)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating issues: %w", err)
	}

	slog.Debug("retrieved issues", "count", len(issues))
	return issues, nil
}

// UpdateIssueStatus moves an issue to a new status. Resolving stamps the
// resolution time; any other status clears it.
func (s *SQLiteStorage) UpdateIssueStatus(ctx context.Context, id string, status model.IssueStatus, at time.Time) (*model.Issue, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	if err := validateString(id, "id"); err != nil {
		return nil, err
	}
	if err := validateStatus(status); err != nil {
		return nil, err
	}

	var resolvedAt *time.Time
	if status == model.IssueResolved {
		at = at.UTC()
		resolvedAt = &at
	}

	var updated *model.Issue
	err := s.inTx(ctx, func(tx *sql.Tx) error {
		result, err := tx.ExecContext(ctx, `UPDATE issues SET status = ?, resolved_at = ? WHERE id = ?`,
			string(status), resolvedAt, id)
		if err != nil {
			return fmt.Errorf("failed to update issue status: %w", err)
		}

		affected, err := result.RowsAffected()
		if err != nil {
			return fmt.Errorf("failed to get rows affected: %w", err)
		}
		if affected == 0 {
			return fmt.Errorf("issue %s: %w", id, common.ErrNotFound)
		}

		updated, err = scanIssue(tx.QueryRowContext(ctx, issueColumns+` WHERE id = ?`, id))
		return err
	})
	if err != nil {
		return nil, err
	}

	slog.Info("updated issue status", "id", id, "status", status)
	return updated, nil
}

// CountIssues summarizes issues by status.
func (s *SQLiteStorage) CountIssues(ctx context.Context) (model.IssueCounts, error) {
	if err := validateContext(ctx); err != nil {
		return model.IssueCounts{}, err
	}

	rows, err := s.db.QueryContext(ctx, `SELECT status, COUNT(*) FROM issues GROUP BY status`)
	if err != nil {
		return model.IssueCounts{}, fmt.Errorf("failed to count issues: %w", err)
	}
	defer rows.Close()

	var counts model.IssueCounts
	for rows.Next() {
		var (
			status string
			n      int
		)
		if err := rows.Scan(&status, &n); err != nil {
			return model.IssueCounts{}, fmt.Errorf("failed to scan issue count: %w", err)
		}
		counts.Total += n
		switch model.IssueStatus(status) {
		case model.IssuePending:
			counts.Pending = n
		case model.IssueResolved:
			counts.Resolved = n
		case model.IssueSuspended:
			counts.Suspended = n
		}
	}
	if err := rows.Err(); err != nil {
		return model.IssueCounts{}, fmt.Errorf("error iterating issue counts: %w", err)
	}
	return counts, nil
}

// CountIssuesByCategory returns the number of issues per category.
func (s *SQLiteStorage) CountIssuesByCategory(ctx context.Context) (map[string]int, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx, `SELECT category, COUNT(*) FROM issues GROUP BY category`)
	if err != nil {
		return nil, fmt.Errorf("failed to count issues by category: %w", err)
	}
	defer rows.Close()

	counts := make(map[string]int)
	for rows.Next() {
		var (
			category string
			n        int
		)
		if err := rows.Scan(&category, &n); err != nil {
			return nil, fmt.Errorf("failed to scan category count: %w", err)
		}
		counts[category] = n
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating category counts: %w", err)
	}
	return counts, nil
}

func scanIssue(row rowScanner) (*model.Issue, error) {
	var (
		issue      model.Issue
		status     string
		resolvedAt sql.NullTime
	)
	err := row.Scan(&issue.ID, &issue.RaisedBy, &issue.RollNo, &issue.Text, &issue.RaisedAt,
		&issue.UserScore, &status, &issue.Category, &resolvedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to scan issue: %w", err)
	}

	issue.Status = model.IssueStatus(status)
	if resolvedAt.Valid {
		issue.ResolvedAt = &resolvedAt.Time
	}
	return &issue, nil
}

func utcPtr(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	utc := t.UTC()
	return &utc
}
