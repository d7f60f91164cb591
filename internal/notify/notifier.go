// Package notify renders and sends the emails that accompany feedback
// submissions and issue status changes.
package notify

import (
	"bytes"
	"context"
	"embed"
	"fmt"
	"html/template"
	"strings"
	"time"

	"github.com/Veraticus/shelfwise/internal/model"
)

//go:embed templates/*.html
var templateFS embed.FS

// Kind identifies an email template.
type Kind string

// Email kinds.
const (
	KindThanks      Kind = "thanks"
	KindIssueRaised Kind = "issue_raised"
	KindResolved    Kind = "resolved"
	KindSuspended   Kind = "suspended"
	KindPending     Kind = "pending"
)

type kindInfo struct {
	subject string
	heading string
	accent  string
}

var kinds = map[Kind]kindInfo{
	KindThanks:      {subject: "Thank You for Your Feedback - GRD Library", heading: "GRD Library Feedback System", accent: "#4a90e2"},
	KindIssueRaised: {subject: "We Have Received Your Issue", heading: "Issue Received", accent: "#4a90e2"},
	KindResolved:    {subject: "Your Issue Has Been Resolved", heading: "Issue Resolved", accent: "#28a745"},
	KindSuspended:   {subject: "Your Issue Has Been Suspended", heading: "Issue Suspended", accent: "#dc3545"},
	KindPending:     {subject: "Your Issue Is Pending", heading: "Issue Pending", accent: "#f0ad4e"},
}

// Message is a rendered email.
type Message struct {
	To      string
	Subject string
	HTML    string
}

// Mailer delivers rendered messages.
type Mailer interface {
	Send(ctx context.Context, msg Message) error
}

type templateData struct {
	Issue     *model.Issue
	Name      string
	Heading   string
	Accent    string
	PortalURL string
	Year      int
}

// Notifier renders templates and hands them to a Mailer.
type Notifier struct {
	mailer    Mailer
	templates map[Kind]*template.Template
	now       func() time.Time
	portalURL string
}

// NewNotifier parses the embedded templates.
func NewNotifier(mailer Mailer, portalURL string) (*Notifier, error) {
	templates := make(map[Kind]*template.Template, len(kinds))
	for kind := range kinds {
		tmpl, err := template.ParseFS(templateFS, "templates/layout.html", "templates/"+string(kind)+".html")
		if err != nil {
			return nil, fmt.Errorf("failed to parse %s template: %w", kind, err)
		}
		templates[kind] = tmpl
	}

	return &Notifier{
		mailer:    mailer,
		templates: templates,
		portalURL: portalURL,
		now:       time.Now,
	}, nil
}

// Render produces the message of the given kind for a recipient. Issue may be
// nil for KindThanks.
func (n *Notifier) Render(kind Kind, to string, issue *model.Issue) (Message, error) {
	info, ok := kinds[kind]
	if !ok {
		return Message{}, fmt.Errorf("unknown email kind %q", kind)
	}
	if kind != KindThanks && issue == nil {
		return Message{}, fmt.Errorf("%s email requires an issue", kind)
	}

	data := templateData{
		Issue:     issue,
		Name:      RecipientName(to),
		Heading:   info.heading,
		Accent:    info.accent,
		PortalURL: n.portalURL,
		Year:      n.now().Year(),
	}

	var buf bytes.Buffer
	if err := n.templates[kind].ExecuteTemplate(&buf, "layout", data); err != nil {
		return Message{}, fmt.Errorf("failed to render %s email: %w", kind, err)
	}

	return Message{To: to, Subject: info.subject, HTML: buf.String()}, nil
}

// FeedbackReceived thanks a submitter.
func (n *Notifier) FeedbackReceived(ctx context.Context, email string) error {
	return n.send(ctx, KindThanks, email, nil)
}

// IssueRaised tells the submitter their feedback was filed as an issue.
func (n *Notifier) IssueRaised(ctx context.Context, issue *model.Issue) error {
	return n.send(ctx, KindIssueRaised, issue.RaisedBy, issue)
}

// IssueStatusChanged tells the submitter about the issue's current status.
func (n *Notifier) IssueStatusChanged(ctx context.Context, issue *model.Issue) error {
	var kind Kind
	switch issue.Status {
	case model.IssueResolved:
		kind = KindResolved
	case model.IssueSuspended:
		kind = KindSuspended
	case model.IssuePending:
		kind = KindPending
	default:
		return fmt.Errorf("no email for issue status %q", issue.Status)
	}
	return n.send(ctx, kind, issue.RaisedBy, issue)
}

func (n *Notifier) send(ctx context.Context, kind Kind, to string, issue *model.Issue) error {
	msg, err := n.Render(kind, to, issue)
	if err != nil {
		return err
	}
	if err := n.mailer.Send(ctx, msg); err != nil {
		return fmt.Errorf("failed to send %s email to %s: %w", kind, to, err)
	}
	return nil
}

// RecipientName is the greeting used for an address: its uppercased local part,
// which for institutional addresses is the roll number.
func RecipientName(email string) string {
	local, _, _ := strings.Cut(email, "@")
	if local == "" {
		return "User"
	}
	return strings.ToUpper(local)
}
