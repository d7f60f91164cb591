package notify

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"net/textproto"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/Veraticus/shelfwise/internal/common"
	"github.com/Veraticus/shelfwise/internal/model"
)

type mockMailer struct {
	mock.Mock
}

func (m *mockMailer) Send(ctx context.Context, msg Message) error {
	args := m.Called(ctx, msg)
	return args.Error(0)
}

func testIssue(status model.IssueStatus) *model.Issue {
	return &model.Issue{
		ID:       "issue-1",
		RaisedBy: "22z201@psgtech.ac.in",
		RollNo:   "22z201",
		Text:     "The wifi is broken <again>",
		Category: "Network & IT",
		Status:   status,
	}
}

func newTestNotifier(t *testing.T, mailer Mailer) *Notifier {
	t.Helper()
	n, err := NewNotifier(mailer, "https://library.psgtech.ac.in")
	require.NoError(t, err)
	n.now = func() time.Time { return time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC) }
	return n
}

func TestRender(t *testing.T) {
	n := newTestNotifier(t, NewLogMailer(nil))

	tests := []struct {
		issue       *model.Issue
		name        string
		kind        Kind
		wantSubject string
		wantBody    []string
	}{
		{
			name:        "thanks",
			kind:        KindThanks,
			wantSubject: "Thank You for Your Feedback - GRD Library",
			wantBody:    []string{"Dear 22Z201,", "Thank you for your valuable feedback", "https://library.psgtech.ac.in", "2025 GRD Library"},
		},
		{
			name:        "issue raised escapes text",
			kind:        KindIssueRaised,
			issue:       testIssue(model.IssuePending),
			wantSubject: "We Have Received Your Issue",
			wantBody:    []string{"The wifi is broken &lt;again&gt;", "Network &amp; IT"},
		},
		{
			name:        "resolved",
			kind:        KindResolved,
			issue:       testIssue(model.IssueResolved),
			wantSubject: "Your Issue Has Been Resolved",
			wantBody:    []string{"has been resolved", "#28a745"},
		},
		{
			name:        "suspended",
			kind:        KindSuspended,
			issue:       testIssue(model.IssueSuspended),
			wantSubject: "Your Issue Has Been Suspended",
			wantBody:    []string{"has been suspended"},
		},
		{
			name:        "pending",
			kind:        KindPending,
			issue:       testIssue(model.IssuePending),
			wantSubject: "Your Issue Is Pending",
			wantBody:    []string{"currently pending"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			msg, err := n.Render(tt.kind, "22z201@psgtech.ac.in", tt.issue)
			require.NoError(t, err)
			assert.Equal(t, "22z201@psgtech.ac.in", msg.To)
			assert.Equal(t, tt.wantSubject, msg.Subject)
			for _, want := range tt.wantBody {
				assert.Contains(t, msg.HTML, want)
			}
		})
	}
}

func TestRender_Errors(t *testing.T) {
	n := newTestNotifier(t, NewLogMailer(nil))

	_, err := n.Render("birthday", "a@b.c", nil)
	assert.Error(t, err)

	_, err = n.Render(KindResolved, "a@b.c", nil)
	assert.Error(t, err)
}

func TestIssueStatusChanged(t *testing.T) {
	tests := []struct {
		name        string
		status      model.IssueStatus
		wantSubject string
		wantErr     bool
	}{
		{name: "resolved", status: model.IssueResolved, wantSubject: "Your Issue Has Been Resolved"},
		{name: "suspended", status: model.IssueSuspended, wantSubject: "Your Issue Has Been Suspended"},
		{name: "pending", status: model.IssuePending, wantSubject: "Your Issue Is Pending"},
		{name: "unknown", status: "ARCHIVED", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mailer := new(mockMailer)
			if !tt.wantErr {
				mailer.On("Send", mock.Anything, mock.MatchedBy(func(msg Message) bool {
					return msg.Subject == tt.wantSubject && msg.To == "22z201@psgtech.ac.in"
				})).Return(nil).Once()
			}

			err := newTestNotifier(t, mailer).IssueStatusChanged(context.Background(), testIssue(tt.status))
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
			mailer.AssertExpectations(t)
		})
	}
}

func TestFeedbackReceived_PropagatesMailerError(t *testing.T) {
	mailer := new(mockMailer)
	sendErr := errors.New("connection refused")
	mailer.On("Send", mock.Anything, mock.Anything).Return(sendErr)

	err := newTestNotifier(t, mailer).FeedbackReceived(context.Background(), "22z201@psgtech.ac.in")
	require.ErrorIs(t, err, sendErr)
	assert.Contains(t, err.Error(), "thanks")
}

func TestIssueRaised(t *testing.T) {
	mailer := new(mockMailer)
	mailer.On("Send", mock.Anything, mock.MatchedBy(func(msg Message) bool {
		return msg.Subject == "We Have Received Your Issue"
	})).Return(nil)

	require.NoError(t, newTestNotifier(t, mailer).IssueRaised(context.Background(), testIssue(model.IssuePending)))
	mailer.AssertExpectations(t)
}

func TestRecipientName(t *testing.T) {
	assert.Equal(t, "22Z201", RecipientName("22z201@psgtech.ac.in"))
	assert.Equal(t, "USER", RecipientName("user"))
	assert.Equal(t, "User", RecipientName("@psgtech.ac.in"))
}

func TestLogMailer(t *testing.T) {
	var buf bytes.Buffer
	mailer := NewLogMailer(slog.New(slog.NewTextHandler(&buf, nil)))

	err := mailer.Send(context.Background(), Message{To: "a@psgtech.ac.in", Subject: "Hi", HTML: "<p>x</p>"})
	require.NoError(t, err)
	assert.Contains(t, buf.String(), "to=a@psgtech.ac.in")
	assert.Contains(t, buf.String(), "subject=Hi")
}

func TestSMTPConfigValidate(t *testing.T) {
	valid := SMTPConfig{Host: "smtp.gmail.com", Port: 587, From: "library@psgtech.ac.in"}
	require.NoError(t, valid.Validate())

	noHost := valid
	noHost.Host = ""
	assert.ErrorIs(t, noHost.Validate(), common.ErrMissingConfig)

	badPort := valid
	badPort.Port = 70000
	assert.ErrorIs(t, badPort.Validate(), common.ErrInvalidConfig)

	noFrom := valid
	noFrom.From = ""
	assert.ErrorIs(t, noFrom.Validate(), common.ErrMissingConfig)

	_, err := NewSMTPMailer(noHost)
	assert.Error(t, err)
}

func TestClassifySMTPError(t *testing.T) {
	transient := classifySMTPError(&textproto.Error{Code: 421, Msg: "service not available"})
	assert.True(t, common.IsRetryable(transient))

	permanent := classifySMTPError(&textproto.Error{Code: 550, Msg: "mailbox unavailable"})
	assert.False(t, common.IsRetryable(permanent))
}

func TestBuildMessage(t *testing.T) {
	body := buildMessage("library@psgtech.ac.in", Message{To: "a@psgtech.ac.in", Subject: "Hello", HTML: "<p>hi</p>"})
	assert.Contains(t, body, "From: GRD Library <library@psgtech.ac.in>\r\n")
	assert.Contains(t, body, "To: a@psgtech.ac.in\r\n")
	assert.Contains(t, body, "Subject: Hello\r\n")
	assert.Contains(t, body, "Content-Type: text/html; charset=UTF-8\r\n\r\n<p>hi</p>")
}
