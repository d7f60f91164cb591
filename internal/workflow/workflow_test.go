package workflow

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/Veraticus/shelfwise/internal/common"
	"github.com/Veraticus/shelfwise/internal/model"
	"github.com/Veraticus/shelfwise/internal/pipeline"
	"github.com/Veraticus/shelfwise/internal/service"
	"github.com/Veraticus/shelfwise/internal/testutil"
)

type mockNotifier struct {
	mock.Mock
}

func (m *mockNotifier) FeedbackReceived(ctx context.Context, email string) error {
	return m.Called(ctx, email).Error(0)
}

func (m *mockNotifier) IssueRaised(ctx context.Context, issue *model.Issue) error {
	return m.Called(ctx, issue).Error(0)
}

func (m *mockNotifier) IssueStatusChanged(ctx context.Context, issue *model.Issue) error {
	return m.Called(ctx, issue).Error(0)
}

// fakeProcessor raises an issue when the last answer contains "broken".
type fakeProcessor struct {
	err  error
	last pipeline.Submission
	n    int
}

func (p *fakeProcessor) Process(_ context.Context, sub pipeline.Submission) (*model.Feedback, *model.Issue, error) {
	p.last = sub
	if p.err != nil {
		return nil, nil, p.err
	}
	p.n++
	id := sub.Email + "-" + string(rune('0'+p.n))
	fb := &model.Feedback{
		ID:               "fb-" + id,
		Email:            sub.Email,
		RollNo:           sub.UserID,
		Answers:          sub.Answers,
		SubmittedAt:      sub.SubmittedAt,
		TimeTakenSeconds: sub.SubmittedAt.Sub(sub.StartedAt).Seconds(),
		FloorNo:          sub.FloorNo,
	}
	text := sub.Answers[len(sub.Answers)-1].Answer
	if text != "broken" {
		return fb, nil, nil
	}
	issue := &model.Issue{
		ID:        "issue-" + id,
		RaisedBy:  sub.Email,
		RollNo:    sub.UserID,
		Text:      text,
		RaisedAt:  sub.SubmittedAt,
		UserScore: 0.55,
		Status:    model.IssuePending,
		Category:  "Other Issues",
	}
	fb.IssuePresence = true
	fb.IssueID = &issue.ID
	return fb, issue, nil
}

type fixture struct {
	svc      *Service
	db       *testutil.TestDB
	proc     *fakeProcessor
	notifier *mockNotifier
	now      time.Time
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{
		db:       testutil.SetupTestDB(t),
		proc:     &fakeProcessor{},
		notifier: new(mockNotifier),
		now:      testutil.FixedNow,
	}
	cfg := DefaultConfig()
	cfg.DefaultFloor = 1
	f.svc = New(f.db.Storage, f.proc, f.notifier, cfg)
	f.svc.now = func() time.Time { return f.now }
	return f
}

func request(email, answer string) Request {
	return Request{
		Email:     email,
		StartedAt: testutil.FixedNow.Add(-90 * time.Second),
		Answers: []model.Answer{
			{Question: "Rate us", Answer: "4"},
			{Question: "Comments", Answer: answer},
		},
	}
}

func TestSubmit_Compliment(t *testing.T) {
	f := newFixture(t)
	f.notifier.On("FeedbackReceived", mock.Anything, "22z201@psgtech.ac.in").Return(nil).Once()

	result, err := f.svc.Submit(context.Background(), request(" 22Z201@PSGTech.ac.in ", "great"))
	require.NoError(t, err)
	assert.Nil(t, result.Issue)
	assert.False(t, result.Feedback.IssuePresence)

	assert.Equal(t, "22Z201", f.proc.last.UserID)
	assert.Equal(t, "22z201@psgtech.ac.in", f.proc.last.Email)
	assert.Equal(t, 1, f.proc.last.FloorNo)
	assert.InDelta(t, 90, result.Feedback.TimeTakenSeconds, 1e-9)

	stored, err := f.db.Storage.GetFeedback(context.Background(), result.Feedback.ID)
	require.NoError(t, err)
	assert.Equal(t, "great", stored.LastAnswer())
	f.notifier.AssertExpectations(t)
}

func TestSubmit_Issue(t *testing.T) {
	f := newFixture(t)
	f.notifier.On("FeedbackReceived", mock.Anything, mock.Anything).Return(nil)
	f.notifier.On("IssueRaised", mock.Anything, mock.MatchedBy(func(i *model.Issue) bool {
		return i.RaisedBy == "22z201@psgtech.ac.in"
	})).Return(nil).Once()

	result, err := f.svc.Submit(context.Background(), request("22z201@psgtech.ac.in", "broken"))
	require.NoError(t, err)
	require.NotNil(t, result.Issue)

	issue, err := f.db.Storage.GetIssue(context.Background(), result.Issue.ID)
	require.NoError(t, err)
	assert.Equal(t, model.IssuePending, issue.Status)
	f.notifier.AssertExpectations(t)
}

func TestSubmit_MailFailureDoesNotFail(t *testing.T) {
	f := newFixture(t)
	f.notifier.On("FeedbackReceived", mock.Anything, mock.Anything).Return(errors.New("smtp down"))
	f.notifier.On("IssueRaised", mock.Anything, mock.Anything).Return(errors.New("smtp down"))

	result, err := f.svc.Submit(context.Background(), request("22z201@psgtech.ac.in", "broken"))
	require.NoError(t, err)
	assert.NotNil(t, result.Issue)
}

func TestSubmit_Gating(t *testing.T) {
	tests := []struct {
		setup   func(*testing.T, *fixture)
		name    string
		email   string
		wantErr error
	}{
		{name: "foreign domain", email: "someone@gmail.com", wantErr: ErrDomainNotAllowed},
		{name: "subdomain is foreign", email: "x@mail.psgtech.ac.in", wantErr: ErrDomainNotAllowed},
		{name: "not an email", email: "22z201", wantErr: ErrInvalidEmail},
		{name: "empty local part", email: "@psgtech.ac.in", wantErr: ErrInvalidEmail},
		{
			name:  "within cooldown",
			email: "22z201@psgtech.ac.in",
			setup: func(t *testing.T, f *fixture) {
				t.Helper()
				f.db.Seed(testutil.NewSubmission(t).From("22z201@psgtech.ac.in").
					At(f.now.Add(-29 * 24 * time.Hour)).Build())
			},
			wantErr: ErrCooldownActive,
		},
		{
			name:  "cooldown elapsed",
			email: "22z201@psgtech.ac.in",
			setup: func(t *testing.T, f *fixture) {
				t.Helper()
				f.db.Seed(testutil.NewSubmission(t).From("22z201@psgtech.ac.in").
					At(f.now.Add(-30 * 24 * time.Hour)).Build())
				f.notifier.On("FeedbackReceived", mock.Anything, mock.Anything).Return(nil)
			},
		},
		{
			name:  "other user in cooldown",
			email: "22z202@psgtech.ac.in",
			setup: func(t *testing.T, f *fixture) {
				t.Helper()
				f.db.Seed(testutil.NewSubmission(t).From("22z201@psgtech.ac.in").At(f.now).Build())
				f.notifier.On("FeedbackReceived", mock.Anything, mock.Anything).Return(nil)
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			if tt.setup != nil {
				tt.setup(t, f)
			}

			_, err := f.svc.Submit(context.Background(), request(tt.email, "fine"))
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				assert.Equal(t, 0, f.proc.n, "rejected submissions never reach the pipeline")
				return
			}
			require.NoError(t, err)
		})
	}
}

func TestSubmit_NoDomainRestriction(t *testing.T) {
	f := newFixture(t)
	f.svc.cfg.AllowedDomain = ""
	f.notifier.On("FeedbackReceived", mock.Anything, mock.Anything).Return(nil)

	_, err := f.svc.Submit(context.Background(), request("visitor@example.org", "fine"))
	require.NoError(t, err)
}

func TestSubmit_ProcessorError(t *testing.T) {
	f := newFixture(t)
	f.proc.err = common.ErrModelUnavailable

	_, err := f.svc.Submit(context.Background(), request("22z201@psgtech.ac.in", "fine"))
	require.ErrorIs(t, err, common.ErrModelUnavailable)

	_, err = f.db.Storage.GetUser(context.Background(), "22z201@psgtech.ac.in")
	assert.ErrorIs(t, err, common.ErrNotFound, "nothing is persisted on failure")
	f.notifier.AssertNotCalled(t, "FeedbackReceived", mock.Anything, mock.Anything)
}

func TestSubmit_ClampsStartTime(t *testing.T) {
	f := newFixture(t)
	f.notifier.On("FeedbackReceived", mock.Anything, mock.Anything).Return(nil)

	req := request("22z201@psgtech.ac.in", "fine")
	req.StartedAt = f.now.Add(time.Hour)
	req.FloorNo = 3
	result, err := f.svc.Submit(context.Background(), req)
	require.NoError(t, err)
	assert.Zero(t, result.Feedback.TimeTakenSeconds)
	assert.Equal(t, 3, result.Feedback.FloorNo)
}

func TestRollNumber(t *testing.T) {
	tests := []struct {
		email   string
		want    string
		wantErr bool
	}{
		{email: "22z201@psgtech.ac.in", want: "22z201"},
		{email: "  c1234@psgtech.ac.in ", want: "c1234"},
		{email: "no-at-sign", wantErr: true},
		{email: "a@b@c", wantErr: true},
		{email: "user@", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.email, func(t *testing.T) {
			got, err := RollNumber(tt.email)
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrInvalidEmail)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

// barrierProcessor releases callers only once all of them have passed the
// eligibility check and reached the pipeline.
type barrierProcessor struct {
	arrived sync.WaitGroup
	seq     atomic.Int32
}

func (p *barrierProcessor) Process(_ context.Context, sub pipeline.Submission) (*model.Feedback, *model.Issue, error) {
	p.arrived.Done()
	p.arrived.Wait()
	return &model.Feedback{
		ID:          fmt.Sprintf("fb-%d", p.seq.Add(1)),
		Email:       sub.Email,
		RollNo:      sub.UserID,
		Answers:     sub.Answers,
		SubmittedAt: sub.SubmittedAt,
	}, nil, nil
}

func TestSubmit_ConcurrentWithinCooldown(t *testing.T) {
	const submitters = 2
	db := testutil.SetupTestDB(t)
	proc := &barrierProcessor{}
	proc.arrived.Add(submitters)
	notifier := new(mockNotifier)
	notifier.On("FeedbackReceived", mock.Anything, "22z201@psgtech.ac.in").Return(nil)

	svc := New(db.Storage, proc, notifier, DefaultConfig())
	svc.now = func() time.Time { return testutil.FixedNow }

	errs := make(chan error, submitters)
	for i := 0; i < submitters; i++ {
		go func() {
			_, err := svc.Submit(context.Background(), request("22z201@psgtech.ac.in", "great"))
			errs <- err
		}()
	}

	var saved, rejected int
	for i := 0; i < submitters; i++ {
		err := <-errs
		switch {
		case err == nil:
			saved++
		case errors.Is(err, ErrCooldownActive):
			rejected++
		default:
			t.Fatalf("unexpected error: %v", err)
		}
	}
	assert.Equal(t, 1, saved)
	assert.Equal(t, 1, rejected)

	stored, err := db.Storage.ListFeedback(context.Background(), service.FeedbackFilter{})
	require.NoError(t, err)
	assert.Len(t, stored, 1)
	notifier.AssertNumberOfCalls(t, "FeedbackReceived", 1)
}
