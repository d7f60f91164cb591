package storage

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Veraticus/shelfwise/internal/common"
	"github.com/Veraticus/shelfwise/internal/model"
)

func TestListIssues(t *testing.T) {
	store := createTestStorage(t)
	ctx := context.Background()

	saveWithIssue(t, store, 0, "22z201@psgtech.ac.in", "Network & IT", baseTime)
	saveWithIssue(t, store, 1, "22z202@psgtech.ac.in", "Collection", baseTime.Add(time.Hour))
	saveWithIssue(t, store, 2, "21c101@psgtech.ac.in", "Network & IT", baseTime.Add(2*time.Hour))
	_, err := store.UpdateIssueStatus(ctx, "issue-b", model.IssueResolved, baseTime.Add(3*time.Hour))
	require.NoError(t, err)

	tests := []struct {
		name    string
		filter  model.IssueFilter
		want    []string
		wantErr error
	}{
		{name: "all newest first", want: []string{"issue-c", "issue-b", "issue-a"}},
		{name: "by status", filter: model.IssueFilter{Status: model.IssuePending}, want: []string{"issue-c", "issue-a"}},
		{name: "by category", filter: model.IssueFilter{Category: "Collection"}, want: []string{"issue-b"}},
		{name: "by roll number query", filter: model.IssueFilter{Query: "21C"}, want: []string{"issue-c"}},
		{name: "by email query", filter: model.IssueFilter{Query: "22z202@"}, want: []string{"issue-b"}},
		{
			name:   "combined",
			filter: model.IssueFilter{Status: model.IssuePending, Category: "Network & IT", Query: "22z"},
			want:   []string{"issue-a"},
		},
		{name: "invalid status", filter: model.IssueFilter{Status: "OPEN"}, wantErr: ErrInvalidStatus},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			issues, err := store.ListIssues(ctx, tt.filter)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			var ids []string
			for _, issue := range issues {
				ids = append(ids, issue.ID)
			}
			assert.Equal(t, tt.want, ids)
		})
	}
}

func TestUpdateIssueStatus(t *testing.T) {
	store := createTestStorage(t)
	ctx := context.Background()
	saveWithIssue(t, store, 0, "22z201@psgtech.ac.in", "Environment", baseTime)

	resolvedAt := baseTime.Add(24 * time.Hour)
	issue, err := store.UpdateIssueStatus(ctx, "issue-a", model.IssueResolved, resolvedAt)
	require.NoError(t, err)
	assert.Equal(t, model.IssueResolved, issue.Status)
	require.NotNil(t, issue.ResolvedAt)
	assert.True(t, issue.ResolvedAt.Equal(resolvedAt))

	issue, err = store.UpdateIssueStatus(ctx, "issue-a", model.IssueSuspended, resolvedAt.Add(time.Hour))
	require.NoError(t, err)
	assert.Equal(t, model.IssueSuspended, issue.Status)
	assert.Nil(t, issue.ResolvedAt, "leaving RESOLVED clears the resolution time")

	_, err = store.UpdateIssueStatus(ctx, "missing", model.IssueResolved, resolvedAt)
	assert.ErrorIs(t, err, common.ErrNotFound)

	_, err = store.UpdateIssueStatus(ctx, "issue-a", "DONE", resolvedAt)
	assert.ErrorIs(t, err, ErrInvalidStatus)
}

func TestCountIssues(t *testing.T) {
	store := createTestStorage(t)
	ctx := context.Background()

	counts, err := store.CountIssues(ctx)
	require.NoError(t, err)
	assert.Equal(t, model.IssueCounts{}, counts)

	saveWithIssue(t, store, 0, "22z201@psgtech.ac.in", "Network & IT", baseTime)
	saveWithIssue(t, store, 1, "22z202@psgtech.ac.in", "Collection", baseTime)
	saveWithIssue(t, store, 2, "22z203@psgtech.ac.in", "Network & IT", baseTime)
	saveWithIssue(t, store, 3, "22z204@psgtech.ac.in", "Other Issues", baseTime)
	_, err = store.UpdateIssueStatus(ctx, "issue-b", model.IssueResolved, baseTime)
	require.NoError(t, err)
	_, err = store.UpdateIssueStatus(ctx, "issue-d", model.IssueSuspended, baseTime)
	require.NoError(t, err)

	counts, err = store.CountIssues(ctx)
	require.NoError(t, err)
	assert.Equal(t, model.IssueCounts{Total: 4, Pending: 2, Resolved: 1, Suspended: 1}, counts)

	byCategory, err := store.CountIssuesByCategory(ctx)
	require.NoError(t, err)
	assert.Equal(t, map[string]int{"Network & IT": 2, "Collection": 1, "Other Issues": 1}, byCategory)
}

func TestGetIssue_NotFound(t *testing.T) {
	store := createTestStorage(t)
	_, err := store.GetIssue(context.Background(), "missing")
	assert.ErrorIs(t, err, common.ErrNotFound)

	_, err = store.GetIssue(context.Background(), " ")
	assert.ErrorIs(t, err, ErrEmptyString)
}

func TestGetUser_NotFound(t *testing.T) {
	store := createTestStorage(t)
	_, err := store.GetUser(context.Background(), "nobody@psgtech.ac.in")
	assert.ErrorIs(t, err, common.ErrNotFound)
}
