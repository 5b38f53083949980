// Package models defines data structures used throughout the study and planning backend.
package models

import (
	"database/sql"
	"time"
)

// Tag groups questions; the slug is the human-assigned key
type Tag struct {
	Slug          string `json:"slug"`
	Title         string `json:"title"`
	QuestionCount int    `json:"question_count,omitempty" yaml:"-"`
}

// Question is a question/answer pair with an optional authoring-time difficulty
type Question struct {
	ID           int       `json:"id"`
	QuestionText string    `json:"question"`
	AnswerText   string    `json:"answer"`
	Difficulty   *string   `json:"difficulty,omitempty"`
	Tags         []Tag     `json:"tags"`
	CreatedAt    time.Time `json:"created_at" yaml:"created_at"`
}

// TagSlugs returns the slugs of the question's tags in their current order
func (q *Question) TagSlugs() []string {
	slugs := make([]string, 0, len(q.Tags))
	for _, t := range q.Tags {
		slugs = append(slugs, t.Slug)
	}
	return slugs
}

// StudySession is a named run over the question bank
type StudySession struct {
	ID          int        `json:"id"`
	Name        string     `json:"name"`
	Description *string    `json:"description,omitempty"`
	StartTime   time.Time  `json:"start_time" yaml:"start_time"`
	EndTime     *time.Time `json:"end_time,omitempty" yaml:"end_time,omitempty"`
	IsActive    bool       `json:"is_active" yaml:"is_active"`
	CreatedAt   time.Time  `json:"created_at" yaml:"created_at"`
}

// SessionQuestionStatus is the per-session rating state of a shown question
type SessionQuestionStatus string

const (
	// StatusPending means shown but not rated yet
	StatusPending SessionQuestionStatus = "pending"
	// StatusEasy marks the question as mastered; it is excluded from selection
	StatusEasy SessionQuestionStatus = "easy"
	// StatusMedium means rated medium
	StatusMedium SessionQuestionStatus = "medium"
	// StatusHard means rated hard
	StatusHard SessionQuestionStatus = "hard"
)

// IsValid reports whether s is one of the four known statuses
func (s SessionQuestionStatus) IsValid() bool {
	switch s {
	case StatusPending, StatusEasy, StatusMedium, StatusHard:
		return true
	}
	return false
}

// Rating is a user-submitted difficulty for a shown question
type Rating string

const (
	RatingEasy   Rating = "easy"
	RatingMedium Rating = "medium"
	RatingHard   Rating = "hard"
)

// IsValid reports whether r is easy, medium or hard
func (r Rating) IsValid() bool {
	switch r {
	case RatingEasy, RatingMedium, RatingHard:
		return true
	}
	return false
}

// Status maps a rating onto the status it produces
func (r Rating) Status() SessionQuestionStatus {
	return SessionQuestionStatus(r)
}

// SessionQuestion tracks how often a question was shown in a session and how it was rated
type SessionQuestion struct {
	ID         int                   `json:"id"`
	SessionID  int                   `json:"session_id" yaml:"session_id"`
	QuestionID int                   `json:"question_id" yaml:"question_id"`
	TimesShown int                   `json:"times_shown" yaml:"times_shown"`
	LastShown  *time.Time            `json:"last_shown,omitempty" yaml:"last_shown,omitempty"`
	Status     SessionQuestionStatus `json:"status"`
	CreatedAt  time.Time             `json:"created_at" yaml:"created_at"`
}

// SessionQuestionUpdate lists the fields to change; nil fields are left alone
type SessionQuestionUpdate struct {
	TimesShown *int
	LastShown  *time.Time
	Status     *SessionQuestionStatus
}

// SelectionStatus distinguishes a served question from an exhausted session
type SelectionStatus string

const (
	SelectionStatusQuestion     SelectionStatus = "question"
	SelectionStatusNoQuestions  SelectionStatus = "no_questions_available"
	noQuestionsAvailableMessage                 = "All questions in this session are mastered"
)

// SelectionResult is the outcome of asking for the next question
type SelectionResult struct {
	Status            SelectionStatus       `json:"status"`
	Question          *Question             `json:"question,omitempty"`
	SessionQuestionID int                   `json:"session_question_id,omitempty"`
	TimesShown        int                   `json:"times_shown,omitempty"`
	LastShown         *time.Time            `json:"last_shown,omitempty"`
	QuestionStatus    SessionQuestionStatus `json:"question_status,omitempty"`
	Message           string                `json:"message,omitempty"`
}

// NoQuestionsAvailable builds the terminal selection result
func NoQuestionsAvailable() *SelectionResult {
	return &SelectionResult{Status: SelectionStatusNoQuestions, Message: noQuestionsAvailableMessage}
}

// HasQuestion reports whether a question was served
func (r *SelectionResult) HasQuestion() bool {
	return r != nil && r.Status == SelectionStatusQuestion && r.Question != nil
}

// SessionStatistics summarises progress of a session
type SessionStatistics struct {
	Session          StudySession `json:"session"`
	TotalQuestions   int          `json:"total_questions"`
	EasyQuestions    int          `json:"easy_questions"`
	MediumQuestions  int          `json:"medium_questions"`
	HardQuestions    int          `json:"hard_questions"`
	PendingQuestions int          `json:"pending_questions"`
	TotalShows       int          `json:"total_shows"`
	AverageShows     float64      `json:"average_shows"`
}

// QuestionPage is one page of a question listing
type QuestionPage struct {
	Items    []Question `json:"items"`
	Total    int        `json:"total"`
	Page     int        `json:"page"`
	PageSize int        `json:"page_size"`
}

// QuestionInput carries question fields for create and update
type QuestionInput struct {
	QuestionText string   `json:"question" binding:"required"`
	AnswerText   string   `json:"answer" binding:"required"`
	Difficulty   *string  `json:"difficulty,omitempty" binding:"omitempty,max=20"`
	Tags         []string `json:"tags"`
}

// SessionInput carries the fields of a new study session
type SessionInput struct {
	Name        string  `json:"name" binding:"required,max=200"`
	Description *string `json:"description,omitempty"`
}

// TableInfo describes one application table for inspection
type TableInfo struct {
	Name     string `json:"name"`
	RowCount int64  `json:"row_count"`
}

// Helper functions for converting sql.Null types to pointers
func nullStringToPointer(ns sql.NullString) *string {
	if ns.Valid {
		return &ns.String
	}
	return nil
}

func nullTimeToPointer(nt sql.NullTime) *time.Time {
	if nt.Valid {
		return &nt.Time
	}
	return nil
}

func nullInt64ToIntPointer(ni sql.NullInt64) *int {
	if ni.Valid {
		v := int(ni.Int64)
		return &v
	}
	return nil
}

// NullString converts a nullable column into an optional string
func NullString(ns sql.NullString) *string { return nullStringToPointer(ns) }

// NullTime converts a nullable column into an optional time
func NullTime(nt sql.NullTime) *time.Time { return nullTimeToPointer(nt) }

// NullInt converts a nullable integer column into an optional int
func NullInt(ni sql.NullInt64) *int { return nullInt64ToIntPointer(ni) }

// TagInput carries tag fields for create and update
type TagInput struct {
	Slug  string `json:"slug"`
	Title string `json:"title" binding:"required,max=200"`
}

// QuestionFilter narrows and pages a question listing
type QuestionFilter struct {
	Page     int
	PageSize int
	Tag      string
	Search   string
}
