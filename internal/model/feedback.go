package model

import "time"

// Answer is one question/answer pair of a feedback form.
type Answer struct {
	Question string `json:"question" validate:"required"`
	Answer   string `json:"answer"`
}

// Feedback is a stored feedback submission.
type Feedback struct {
	SubmittedAt      time.Time `json:"date"`
	IssueID          *string   `json:"issue_id,omitempty"`
	ID               string    `json:"id"`
	Email            string    `json:"email"`
	RollNo           string    `json:"roll_no"`
	Answers          []Answer  `json:"feedback_answers"`
	TimeTakenSeconds float64   `json:"feedback_time_taken"`
	FloorNo          int       `json:"floor_no"`
	IssuePresence    bool      `json:"issue_presence"`
}

// LastAnswer returns the free-text answer that gets classified, or "" when
// the form is empty.
func (f *Feedback) LastAnswer() string {
	if len(f.Answers) == 0 {
		return ""
	}
	return f.Answers[len(f.Answers)-1].Answer
}

// User is a feedback submitter as tracked for the resubmission cooldown.
type User struct {
	LastLogin    time.Time
	LastFeedback *time.Time
	Email        string
	RollNo       string
}
