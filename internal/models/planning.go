package models

import (
	"time"
)

// Act is a hierarchical, optionally time-boxed activity
type Act struct {
	ID        int    `json:"id"`
	Title     string `json:"title"`
	StartDate *Date  `json:"start_date,omitempty"`
	EndDate   *Date  `json:"end_date,omitempty"`
	Hidden    bool   `json:"hidden"`
	ParentID  *int   `json:"parent_id,omitempty"`
	SortOrder int    `json:"sort_order"`
	Children  []*Act `json:"children,omitempty"`
}

// Plan is a hierarchical plan
type Plan struct {
	ID        int     `json:"id"`
	Title     string  `json:"title"`
	StartDate *Date   `json:"start_date,omitempty"`
	EndDate   *Date   `json:"end_date,omitempty"`
	ParentID  *int    `json:"parent_id,omitempty"`
	SortOrder int     `json:"sort_order"`
	Children  []*Plan `json:"children,omitempty"`
}

// ActInput carries act fields; nil fields are left unchanged on update
type ActInput struct {
	Title       *string `json:"title,omitempty" binding:"omitempty,min=1,max=200"`
	StartDate   *Date   `json:"start_date,omitempty"`
	EndDate     *Date   `json:"end_date,omitempty"`
	Hidden      *bool   `json:"hidden,omitempty"`
	ParentID    *int    `json:"parent_id,omitempty"`
	ClearParent bool    `json:"clear_parent,omitempty"`
	SortOrder   *int    `json:"sort_order,omitempty"`
}

// PlanInput carries plan fields; nil fields are left unchanged on update
type PlanInput struct {
	Title       *string `json:"title,omitempty" binding:"omitempty,min=1,max=200"`
	StartDate   *Date   `json:"start_date,omitempty"`
	EndDate     *Date   `json:"end_date,omitempty"`
	ParentID    *int    `json:"parent_id,omitempty"`
	ClearParent bool    `json:"clear_parent,omitempty"`
	SortOrder   *int    `json:"sort_order,omitempty"`
}

// Task is a unit of work attached to a plan and/or an act
type Task struct {
	ID          int        `json:"id"`
	Title       string     `json:"title"`
	Description *string    `json:"description,omitempty"`
	StartDate   *time.Time `json:"start_date,omitempty"`
	EndDate     *time.Time `json:"end_date,omitempty"`
	PlanID      *int       `json:"plan_id,omitempty"`
	ActID       *int       `json:"act_id,omitempty"`
	SortOrder   int        `json:"sort_order"`
}

// TaskInput carries task fields; nil fields are left unchanged on update
type TaskInput struct {
	Title       *string    `json:"title,omitempty" binding:"omitempty,min=1,max=200"`
	Description *string    `json:"description,omitempty"`
	StartDate   *time.Time `json:"start_date,omitempty"`
	EndDate     *time.Time `json:"end_date,omitempty"`
	PlanID      *int       `json:"plan_id,omitempty"`
	ActID       *int       `json:"act_id,omitempty"`
	SortOrder   *int       `json:"sort_order,omitempty"`
}

// TaskFilter narrows task listings
type TaskFilter struct {
	PlanID *int
	ActID  *int
}

// NoteKind names the owner table of a note
type NoteKind string

const (
	NoteKindAct  NoteKind = "act"
	NoteKindPlan NoteKind = "plan"
)

// Note is a free-text note attached to an act or a plan
type Note struct {
	ID        int       `json:"id"`
	Kind      NoteKind  `json:"kind"`
	OwnerID   int       `json:"owner_id"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"created_at"`
}

// TimeEntry is the time spent on an act during one day
type TimeEntry struct {
	Day   Date    `json:"day"`
	ActID int     `json:"act_id"`
	Time  int     `json:"time"`
	Count float64 `json:"count"`
}

// TimerState is the state of a stopwatch timer
type TimerState string

const (
	TimerStopped  TimerState = "stopped"
	TimerCounting TimerState = "counting"
	TimerPaused   TimerState = "paused"
)

// Timer accumulates seconds between start/pause/stop transitions
type Timer struct {
	ID        int        `json:"id"`
	Time      int        `json:"time"`
	StartTime *time.Time `json:"start_time,omitempty"`
	ActID     *int       `json:"act_id,omitempty"`
	State     TimerState `json:"state"`
}

// Elapsed returns accumulated seconds including the running interval when counting
func (t *Timer) Elapsed(now time.Time) int {
	total := t.Time
	if t.State == TimerCounting && t.StartTime != nil && now.After(*t.StartTime) {
		total += int(now.Sub(*t.StartTime) / time.Second)
	}
	return total
}
