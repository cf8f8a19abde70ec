package scraper

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEstimateDailyCalls(t *testing.T) {
	est := EstimateDailyCalls(5*time.Minute, 3, nil)

	assert.Equal(t, 24*time.Hour, est.ActivePerDay)
	assert.Equal(t, 288, est.PollsPerDay)
	assert.Equal(t, 864, est.CallsPerDay)
	assert.False(t, est.ExceedsLimit())
}

func TestEstimateDailyCalls_WithSleepWindow(t *testing.T) {
	w, err := ParseSleepWindow("23:00+00:00", "07:00+00:00")
	require.NoError(t, err)

	est := EstimateDailyCalls(10*time.Minute, 2, w)

	assert.Equal(t, 16*time.Hour, est.ActivePerDay)
	assert.Equal(t, 96, est.PollsPerDay)
	assert.Equal(t, 192, est.CallsPerDay)
}

func TestEstimateDailyCalls_OverLimit(t *testing.T) {
	est := EstimateDailyCalls(time.Minute, 5, nil)

	assert.Equal(t, 1440, est.PollsPerDay)
	assert.Equal(t, 7200, est.CallsPerDay)
	assert.True(t, est.ExceedsLimit())
}

func TestEstimateDailyCalls_ZeroInterval(t *testing.T) {
	est := EstimateDailyCalls(0, 3, nil)
	assert.Equal(t, 0, est.CallsPerDay)
}
