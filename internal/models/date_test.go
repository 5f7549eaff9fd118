package models

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestDateJSON(t *testing.T) {
	t.Run("marshals to a bare calendar date", func(t *testing.T) {
		d := NewDate(2024, time.March, 7)
		data, err := json.Marshal(d)
		assert.NoError(t, err)
		assert.Equal(t, `"2024-03-07"`, string(data))
	})

	t.Run("unmarshals the same form", func(t *testing.T) {
		var d Date
		assert.NoError(t, json.Unmarshal([]byte(`"2024-03-07"`), &d))
		assert.Equal(t, NewDate(2024, time.March, 7).Time, d.Time)
	})

	t.Run("rejects non-string and malformed input", func(t *testing.T) {
		var d Date
		assert.Error(t, json.Unmarshal([]byte(`20240307`), &d))
		assert.Error(t, json.Unmarshal([]byte(`"07/03/2024"`), &d))
	})
}

func TestDateScan(t *testing.T) {
	t.Run("accepts a timestamp and keeps the day", func(t *testing.T) {
		var d Date
		assert.NoError(t, d.Scan(time.Date(2024, 3, 7, 0, 0, 0, 0, time.UTC)))
		assert.Equal(t, "2024-03-07", d.String())
	})

	t.Run("nil clears the value", func(t *testing.T) {
		var d Date
		assert.NoError(t, d.Scan(nil))
		assert.True(t, d.IsZero())
	})

	t.Run("other types are rejected", func(t *testing.T) {
		var d Date
		assert.Error(t, d.Scan("2024-03-07"))
	})
}

func TestDateValue(t *testing.T) {
	d := NewDate(2024, time.March, 7)
	v, err := d.Value()
	assert.NoError(t, err)
	assert.Equal(t, d.Time, v)
}
