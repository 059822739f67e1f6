package testutil

import (
	"database/sql/driver"
	"testing"
	"time"

	"github.com/rs/zerolog"
)

// PanicIfNotTest panics if the function was called directly or indirectly by a test function via go test
func PanicIfNotTest() {
	if !testing.Testing() {
		panic("the testutil package should only be used in tests")
	}
}

// GetTestLogs returns logs with info, warn, and error levels respectively for testing
func GetTestLogs(t *testing.T) (*zerolog.Event, *zerolog.Event, *zerolog.Event) {
	logger := zerolog.New(zerolog.NewTestWriter(t))
	return logger.Info(), logger.Warn(), logger.Error()
}

// TestLogger returns a logger that writes to the test's output
func TestLogger(t *testing.T) zerolog.Logger {
	return zerolog.New(zerolog.NewTestWriter(t))
}

// FuzzyTime is a wrapper around time.Time that allows for fuzzy matching of time values within a 10-minute window
// to be used in SQL query tests
type FuzzyTime time.Time

func (f FuzzyTime) Match(val driver.Value) bool {
	ft := time.Time(f)
	var t time.Time
	switch timeVal := val.(type) {
	case time.Time:
		t = timeVal
	case int64:
		t = time.Unix(timeVal, 0)
	case string:
		var err error
		t, err = time.Parse(time.RFC3339, timeVal)
		if err != nil {
			return false
		}
	default:
		return false
	}
	diff := t.Sub(ft)
	return diff > -10*time.Minute && diff < 10*time.Minute
}

// AnyInt matches any integer argument in sqlmock expectations
type AnyInt struct{}

func (AnyInt) Match(val driver.Value) bool {
	_, ok := val.(int64)
	return ok
}
