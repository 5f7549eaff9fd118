package models

import (
	"database/sql/driver"
	"errors"
	"fmt"
	"time"
)

// DateLayout is the wire and storage format for record dates.
const DateLayout = "2006-01-02"

// Date is a calendar date without a time component. It marshals to
// "YYYY-MM-DD" in JSON and maps to a DATE column in the store.
type Date struct {
	time.Time
}

// NewDate builds a Date at midnight UTC.
func NewDate(year int, month time.Month, day int) Date {
	return Date{time.Date(year, month, day, 0, 0, 0, 0, time.UTC)}
}

// Today returns the current calendar date.
func Today() Date {
	now := time.Now().UTC()
	return NewDate(now.Year(), now.Month(), now.Day())
}

func (d Date) String() string {
	return d.Format(DateLayout)
}

// MarshalJSON implements json.Marshaler
func (d Date) MarshalJSON() ([]byte, error) {
	return []byte(fmt.Sprintf("%q", d.Format(DateLayout))), nil
}

// UnmarshalJSON implements json.Unmarshaler
func (d *Date) UnmarshalJSON(data []byte) error {
	s := string(data)
	if len(s) < 2 || s[0] != '"' || s[len(s)-1] != '"' {
		return errors.New("date must be a JSON string")
	}
	t, err := time.Parse(DateLayout, s[1:len(s)-1])
	if err != nil {
		return fmt.Errorf("invalid date %s: expected %s", s, DateLayout)
	}
	d.Time = t
	return nil
}

// Value implements driver.Valuer for Date
func (d Date) Value() (driver.Value, error) {
	return d.Time, nil
}

// Scan implements sql.Scanner for Date
func (d *Date) Scan(value any) error {
	if value == nil {
		d.Time = time.Time{}
		return nil
	}

	t, ok := value.(time.Time)
	if !ok {
		return errors.New("type assertion to time.Time failed")
	}

	d.Time = t.UTC()
	return nil
}
