package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"

	contextutils "github.com/rshatalov/rpy/internal/utils"
)

const dateLayout = contextutils.DateLayout

// Date is a calendar day without clock or zone, serialized as YYYY-MM-DD
type Date struct {
	time.Time
}

// NewDate truncates t to its UTC calendar day
func NewDate(t time.Time) Date {
	return Date{Time: contextutils.TruncateToDay(t)}
}

// ParseDate parses YYYY-MM-DD; failures carry INVALID_FORMAT
func ParseDate(s string) (Date, error) {
	t, err := contextutils.ParseDate(s)
	if err != nil {
		return Date{}, err
	}
	return Date{Time: t}, nil
}

// String formats the day as YYYY-MM-DD
func (d Date) String() string {
	return d.Format(dateLayout)
}

// MarshalJSON implements json.Marshaler
func (d Date) MarshalJSON() ([]byte, error) {
	return json.Marshal(d.String())
}

// UnmarshalJSON implements json.Unmarshaler
func (d *Date) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	parsed, err := ParseDate(s)
	if err != nil {
		return fmt.Errorf("invalid date %q: expected YYYY-MM-DD", s)
	}
	*d = parsed
	return nil
}

// Value implements driver.Valuer
func (d Date) Value() (driver.Value, error) {
	return d.Time, nil
}

// Scan implements sql.Scanner for DATE columns
func (d *Date) Scan(src interface{}) error {
	switch v := src.(type) {
	case time.Time:
		*d = NewDate(v)
		return nil
	case string:
		parsed, err := ParseDate(v[:min(len(v), len(dateLayout))])
		if err != nil {
			return err
		}
		*d = parsed
		return nil
	case []byte:
		return d.Scan(string(v))
	default:
		return fmt.Errorf("cannot scan %T into Date", src)
	}
}

// NullDate scans a nullable DATE column
type NullDate struct {
	Date  Date
	Valid bool
}

// Scan implements sql.Scanner
func (nd *NullDate) Scan(src interface{}) error {
	if src == nil {
		nd.Date, nd.Valid = Date{}, false
		return nil
	}
	nd.Valid = true
	return nd.Date.Scan(src)
}

// Ptr returns nil for NULL
func (nd NullDate) Ptr() *Date {
	if !nd.Valid {
		return nil
	}
	d := nd.Date
	return &d
}

// DateValue converts an optional date for use as a query argument
func DateValue(d *Date) interface{} {
	if d == nil {
		return nil
	}
	return d.Time
}
