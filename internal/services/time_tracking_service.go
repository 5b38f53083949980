package services

import (
	"context"
	"database/sql"
	"time"

	"github.com/rshatalov/rpy/internal/database"
	"github.com/rshatalov/rpy/internal/models"
	"github.com/rshatalov/rpy/internal/observability"
	contextutils "github.com/rshatalov/rpy/internal/utils"

	"go.opentelemetry.io/otel/attribute"
)

// TimeTrackingServiceInterface defines time entry and timer operations
type TimeTrackingServiceInterface interface {
	UpsertTime(ctx context.Context, actID int, day models.Date, seconds int, count float64) (*models.TimeEntry, error)
	AddTime(ctx context.Context, actID int, day models.Date, seconds int) (*models.TimeEntry, error)
	ListTimes(ctx context.Context, actID int, from, to *models.Date) ([]models.TimeEntry, error)

	CreateTimer(ctx context.Context, actID *int) (*models.Timer, error)
	GetTimer(ctx context.Context, id int) (*models.Timer, error)
	ListTimers(ctx context.Context) ([]models.Timer, error)
	DeleteTimer(ctx context.Context, id int) error
	StartTimer(ctx context.Context, id int) (*models.Timer, error)
	PauseTimer(ctx context.Context, id int) (*models.Timer, error)
	StopTimer(ctx context.Context, id int) (*models.Timer, error)
}

// TimeTrackingService records time spent on acts and drives stopwatch timers
type TimeTrackingService struct {
	db     *sql.DB
	logger *observability.Logger
	now    func() time.Time
}

// NewTimeTrackingServiceWithLogger creates a new time tracking service
func NewTimeTrackingServiceWithLogger(db *sql.DB, logger *observability.Logger) *TimeTrackingService {
	return &TimeTrackingService{db: db, logger: logger, now: func() time.Time { return time.Now().UTC() }}
}

const (
	timeEntryColumns = `day, act_id, time, count`
	timerColumns     = `id, time, start_time, act_id, state`
)

func scanTimeEntry(row rowScanner) (*models.TimeEntry, error) {
	var e models.TimeEntry
	if err := row.Scan(&e.Day, &e.ActID, &e.Time, &e.Count); err != nil {
		return nil, err
	}
	return &e, nil
}

func scanTimer(row rowScanner) (*models.Timer, error) {
	var t models.Timer
	var start sql.NullTime
	var act sql.NullInt64
	var state string
	if err := row.Scan(&t.ID, &t.Time, &start, &act, &state); err != nil {
		return nil, err
	}
	t.StartTime, t.ActID, t.State = models.NullTime(start), models.NullInt(act), models.TimerState(state)
	return &t, nil
}

func ensureActExists(ctx context.Context, q database.Querier, actID int) error {
	var exists bool
	if err := q.QueryRowContext(ctx, `SELECT EXISTS (SELECT 1 FROM acts WHERE id = $1)`, actID).Scan(&exists); err != nil {
		return contextutils.WrapError(err, "failed to check act")
	}
	if !exists {
		return contextutils.NotFoundf(contextutils.ErrRecordNotFound, "act %d", actID)
	}
	return nil
}

// addTime accumulates seconds and count onto the act's entry for day
func addTime(ctx context.Context, q database.Querier, actID int, day models.Date, seconds int, count float64) (*models.TimeEntry, error) {
	entry, err := scanTimeEntry(q.QueryRowContext(ctx, `
		INSERT INTO times (day, act_id, time, count)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (day, act_id) DO UPDATE
		SET time = times.time + EXCLUDED.time, count = times.count + EXCLUDED.count
		RETURNING `+timeEntryColumns, day, actID, seconds, count))
	if err != nil {
		return nil, contextutils.FromDatabaseError(err, "failed to add time")
	}
	return entry, nil
}

// UpsertTime sets the time and count of an act for a day
func (s *TimeTrackingService) UpsertTime(ctx context.Context, actID int, day models.Date, seconds int, count float64) (result *models.TimeEntry, err error) {
	ctx, span := observability.TraceTimeFunction(ctx, "upsert_time", observability.AttributeActID(actID), attribute.String("day", day.String()))
	defer observability.FinishSpan(span, &err)

	if seconds < 0 || count < 0 {
		return nil, contextutils.NewInvalidInputf("time and count must not be negative")
	}
	err = database.WithTx(ctx, s.db, s.logger, func(tx *sql.Tx) error {
		if err := ensureActExists(ctx, tx, actID); err != nil {
			return err
		}
		entry, err := scanTimeEntry(tx.QueryRowContext(ctx, `
			INSERT INTO times (day, act_id, time, count)
			VALUES ($1, $2, $3, $4)
			ON CONFLICT (day, act_id) DO UPDATE
			SET time = EXCLUDED.time, count = EXCLUDED.count
			RETURNING `+timeEntryColumns, day, actID, seconds, count))
		if err != nil {
			return contextutils.FromDatabaseError(err, "failed to upsert time")
		}
		result = entry
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// AddTime adds seconds to an act's entry for a day, creating it when missing
func (s *TimeTrackingService) AddTime(ctx context.Context, actID int, day models.Date, seconds int) (result *models.TimeEntry, err error) {
	ctx, span := observability.TraceTimeFunction(ctx, "add_time", observability.AttributeActID(actID), attribute.Int("seconds", seconds))
	defer observability.FinishSpan(span, &err)

	if seconds < 0 {
		return nil, contextutils.NewInvalidInputf("seconds must not be negative")
	}
	err = database.WithTx(ctx, s.db, s.logger, func(tx *sql.Tx) error {
		if err := ensureActExists(ctx, tx, actID); err != nil {
			return err
		}
		entry, err := addTime(ctx, tx, actID, day, seconds, 0)
		if err != nil {
			return err
		}
		result = entry
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// ListTimes returns an act's entries ordered by day within the optional inclusive range
func (s *TimeTrackingService) ListTimes(ctx context.Context, actID int, from, to *models.Date) (result []models.TimeEntry, err error) {
	ctx, span := observability.TraceTimeFunction(ctx, "list_times", observability.AttributeActID(actID))
	defer observability.FinishSpan(span, &err)

	if err := contextutils.ValidateDateRange(dateTime(from), dateTime(to)); err != nil {
		return nil, err
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+timeEntryColumns+`
		FROM times
		WHERE act_id = $1
		  AND ($2::DATE IS NULL OR day >= $2::DATE)
		  AND ($3::DATE IS NULL OR day <= $3::DATE)
		ORDER BY day`, actID, models.DateValue(from), models.DateValue(to))
	if err != nil {
		return nil, contextutils.WrapError(err, "failed to list time entries")
	}
	defer func() { _ = rows.Close() }()

	result = []models.TimeEntry{}
	for rows.Next() {
		entry, err := scanTimeEntry(rows)
		if err != nil {
			return nil, contextutils.WrapError(err, "failed to scan time entry")
		}
		result = append(result, *entry)
	}
	if err := rows.Err(); err != nil {
		return nil, contextutils.WrapError(err, "failed to iterate time entries")
	}
	return result, nil
}

// CreateTimer creates a stopped timer, optionally bound to an act
func (s *TimeTrackingService) CreateTimer(ctx context.Context, actID *int) (result *models.Timer, err error) {
	ctx, span := observability.TraceTimeFunction(ctx, "create_timer")
	defer observability.FinishSpan(span, &err)

	err = database.WithTx(ctx, s.db, s.logger, func(tx *sql.Tx) error {
		if actID != nil {
			if err := ensureActExists(ctx, tx, *actID); err != nil {
				return err
			}
		}
		timer, err := scanTimer(tx.QueryRowContext(ctx, `
			INSERT INTO timers (time, act_id, state)
			VALUES (0, $1, $2)
			RETURNING `+timerColumns, intValue(actID), string(models.TimerStopped)))
		if err != nil {
			return contextutils.FromDatabaseError(err, "failed to create timer")
		}
		result = timer
		return nil
	})
	if err != nil {
		return nil, err
	}
	span.SetAttributes(observability.AttributeTimerID(result.ID))
	return result, nil
}

func getTimer(ctx context.Context, q database.Querier, id int, lock bool) (*models.Timer, error) {
	query := `SELECT ` + timerColumns + ` FROM timers WHERE id = $1`
	if lock {
		query += ` FOR UPDATE`
	}
	timer, err := noRows(scanTimer(q.QueryRowContext(ctx, query, id)))
	if err != nil {
		return nil, contextutils.WrapErrorf(err, "failed to get timer %d", id)
	}
	if timer == nil {
		return nil, contextutils.NotFoundf(contextutils.ErrRecordNotFound, "timer %d", id)
	}
	return timer, nil
}

// GetTimer returns a single timer
func (s *TimeTrackingService) GetTimer(ctx context.Context, id int) (result *models.Timer, err error) {
	ctx, span := observability.TraceTimeFunction(ctx, "get_timer", observability.AttributeTimerID(id))
	defer observability.FinishSpan(span, &err)

	return getTimer(ctx, s.db, id, false)
}

// ListTimers returns every timer ordered by id
func (s *TimeTrackingService) ListTimers(ctx context.Context) (result []models.Timer, err error) {
	ctx, span := observability.TraceTimeFunction(ctx, "list_timers")
	defer observability.FinishSpan(span, &err)

	rows, err := s.db.QueryContext(ctx, `SELECT `+timerColumns+` FROM timers ORDER BY id`)
	if err != nil {
		return nil, contextutils.WrapError(err, "failed to list timers")
	}
	defer func() { _ = rows.Close() }()

	result = []models.Timer{}
	for rows.Next() {
		timer, err := scanTimer(rows)
		if err != nil {
			return nil, contextutils.WrapError(err, "failed to scan timer")
		}
		result = append(result, *timer)
	}
	if err := rows.Err(); err != nil {
		return nil, contextutils.WrapError(err, "failed to iterate timers")
	}
	return result, nil
}

// DeleteTimer removes a timer without recording its time
func (s *TimeTrackingService) DeleteTimer(ctx context.Context, id int) (err error) {
	ctx, span := observability.TraceTimeFunction(ctx, "delete_timer", observability.AttributeTimerID(id))
	defer observability.FinishSpan(span, &err)

	res, err := s.db.ExecContext(ctx, `DELETE FROM timers WHERE id = $1`, id)
	if err != nil {
		return contextutils.WrapErrorf(err, "failed to delete timer %d", id)
	}
	if affected, _ := res.RowsAffected(); affected == 0 {
		return contextutils.NotFoundf(contextutils.ErrRecordNotFound, "timer %d", id)
	}
	return nil
}

// startTimer moves a stopped or paused timer to counting
func startTimer(t models.Timer, now time.Time) (models.Timer, error) {
	if t.State == models.TimerCounting {
		return t, contextutils.NewConflictf("timer %d is already counting", t.ID)
	}
	t.State = models.TimerCounting
	t.StartTime = &now
	return t, nil
}

// pauseTimer banks the running interval and moves the timer to paused
func pauseTimer(t models.Timer, now time.Time) (models.Timer, error) {
	if t.State != models.TimerCounting {
		return t, contextutils.NewConflictf("timer %d is %s, not counting", t.ID, t.State)
	}
	t.Time = t.Elapsed(now)
	t.State = models.TimerPaused
	return t, nil
}

// stopTimer resets the timer and returns the seconds it had accumulated
func stopTimer(t models.Timer, now time.Time) (models.Timer, int, error) {
	if t.State == models.TimerStopped {
		return t, 0, contextutils.NewConflictf("timer %d is already stopped", t.ID)
	}
	seconds := t.Elapsed(now)
	t.Time = 0
	t.StartTime = nil
	t.State = models.TimerStopped
	return t, seconds, nil
}

func saveTimer(ctx context.Context, q database.Querier, t models.Timer) (*models.Timer, error) {
	var start interface{}
	if t.StartTime != nil {
		start = *t.StartTime
	}
	saved, err := scanTimer(q.QueryRowContext(ctx, `
		UPDATE timers
		SET time = $2, start_time = $3, state = $4
		WHERE id = $1
		RETURNING `+timerColumns, t.ID, t.Time, start, string(t.State)))
	if err != nil {
		return nil, contextutils.FromDatabaseError(err, "failed to save timer")
	}
	return saved, nil
}

func (s *TimeTrackingService) transition(ctx context.Context, id int, apply func(tx *sql.Tx, t models.Timer, now time.Time) (models.Timer, error)) (*models.Timer, error) {
	var result *models.Timer
	err := database.WithTx(ctx, s.db, s.logger, func(tx *sql.Tx) error {
		timer, err := getTimer(ctx, tx, id, true)
		if err != nil {
			return err
		}
		next, err := apply(tx, *timer, s.now())
		if err != nil {
			return err
		}
		saved, err := saveTimer(ctx, tx, next)
		if err != nil {
			return err
		}
		result = saved
		return nil
	})
	return result, err
}

// StartTimer starts or resumes a timer
func (s *TimeTrackingService) StartTimer(ctx context.Context, id int) (result *models.Timer, err error) {
	ctx, span := observability.TraceTimeFunction(ctx, "start_timer", observability.AttributeTimerID(id))
	defer observability.FinishSpan(span, &err)

	return s.transition(ctx, id, func(_ *sql.Tx, t models.Timer, now time.Time) (models.Timer, error) {
		return startTimer(t, now)
	})
}

// PauseTimer pauses a counting timer
func (s *TimeTrackingService) PauseTimer(ctx context.Context, id int) (result *models.Timer, err error) {
	ctx, span := observability.TraceTimeFunction(ctx, "pause_timer", observability.AttributeTimerID(id))
	defer observability.FinishSpan(span, &err)

	return s.transition(ctx, id, func(_ *sql.Tx, t models.Timer, now time.Time) (models.Timer, error) {
		return pauseTimer(t, now)
	})
}

// StopTimer stops a counting or paused timer. When the timer belongs to an act, its
// accumulated seconds are added to the act's entry for the stop day and the count
// is incremented.
func (s *TimeTrackingService) StopTimer(ctx context.Context, id int) (result *models.Timer, err error) {
	ctx, span := observability.TraceTimeFunction(ctx, "stop_timer", observability.AttributeTimerID(id))
	defer observability.FinishSpan(span, &err)

	return s.transition(ctx, id, func(tx *sql.Tx, t models.Timer, now time.Time) (models.Timer, error) {
		next, seconds, err := stopTimer(t, now)
		if err != nil {
			return t, err
		}
		span.SetAttributes(attribute.Int("timer.seconds", seconds))
		if t.ActID != nil && seconds > 0 {
			if _, err := addTime(ctx, tx, *t.ActID, models.NewDate(now), seconds, 1); err != nil {
				return t, err
			}
			s.logger.Info(ctx, "Timer time recorded", map[string]interface{}{"timer_id": id, "act_id": *t.ActID, "seconds": seconds})
		}
		return next, nil
	})
}
