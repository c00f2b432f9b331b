package streak

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func date(s string) time.Time {
	t, err := ParseDate(s)
	if err != nil {
		panic(err)
	}
	return t
}

func TestUpdate(t *testing.T) {
	tests := []struct {
		name  string
		state State
		today string
		want  State
	}{
		{"first drill", State{}, "2025-03-10", State{Count: 1, LastDate: date("2025-03-10")}},
		{"same day", State{Count: 4, LastDate: date("2025-03-10")}, "2025-03-10", State{Count: 4, LastDate: date("2025-03-10")}},
		{"yesterday", State{Count: 4, LastDate: date("2025-03-09")}, "2025-03-10", State{Count: 5, LastDate: date("2025-03-10")}},
		{"gap of two days", State{Count: 4, LastDate: date("2025-03-08")}, "2025-03-10", State{Count: 1, LastDate: date("2025-03-10")}},
		{"future date", State{Count: 4, LastDate: date("2025-03-12")}, "2025-03-10", State{Count: 1, LastDate: date("2025-03-10")}},
		{"month boundary", State{Count: 2, LastDate: date("2025-02-28")}, "2025-03-01", State{Count: 3, LastDate: date("2025-03-01")}},
		{"year boundary", State{Count: 9, LastDate: date("2024-12-31")}, "2025-01-01", State{Count: 10, LastDate: date("2025-01-01")}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Update(tt.state, date(tt.today))
			assert.Equal(t, tt.want.Count, got.Count)
			assert.True(t, tt.want.LastDate.Equal(got.LastDate), "last date = %s", got.LastDate)
		})
	}
}

func TestUpdateIgnoresTimeOfDay(t *testing.T) {
	s := State{Count: 1, LastDate: time.Date(2025, 3, 9, 23, 59, 0, 0, time.UTC)}
	got := Update(s, time.Date(2025, 3, 10, 0, 1, 0, 0, time.UTC))
	assert.Equal(t, 2, got.Count)
	assert.Equal(t, "2025-03-10", FormatDate(got.LastDate))
}

func TestUpdateTwiceSameDay(t *testing.T) {
	s := Update(State{Count: 3, LastDate: date("2025-03-09")}, date("2025-03-10"))
	s = Update(s, date("2025-03-10"))
	assert.Equal(t, 4, s.Count)
}

func TestParseDate(t *testing.T) {
	d, err := ParseDate("2025-07-04")
	require.NoError(t, err)
	assert.Equal(t, "2025-07-04", FormatDate(d))

	_, err = ParseDate("07/04/2025")
	assert.Error(t, err)
}

func TestActive(t *testing.T) {
	today := date("2025-03-10")
	assert.False(t, Active(State{}, today))
	assert.True(t, Active(State{Count: 2, LastDate: date("2025-03-10")}, today))
	assert.True(t, Active(State{Count: 2, LastDate: date("2025-03-09")}, today))
	assert.False(t, Active(State{Count: 2, LastDate: date("2025-03-07")}, today))
}

func TestNextMilestone(t *testing.T) {
	tests := []struct {
		current int
		want    int
	}{
		{0, 3},
		{2, 3},
		{3, 7},
		{6, 7},
		{7, 14},
		{14, 30},
		{29, 30},
		{30, 60},
		{61, 90},
	}

	for _, tt := range tests {
		if got := NextMilestone(tt.current); got != tt.want {
			t.Errorf("NextMilestone(%d) = %d, want %d", tt.current, got, tt.want)
		}
	}
}
