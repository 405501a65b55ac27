package month

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestAdd_CalendarMonths(t *testing.T) {
	tests := []struct {
		name  string
		start time.Time
		n     int
		want  time.Time
	}{
		{
			name:  "one month from mid january",
			start: time.Date(2024, 1, 15, 10, 30, 0, 0, time.UTC),
			n:     1,
			want:  time.Date(2024, 2, 15, 10, 30, 0, 0, time.UTC),
		},
		{
			name:  "six months crosses year",
			start: time.Date(2024, 9, 1, 0, 0, 0, 0, time.UTC),
			n:     6,
			want:  time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC),
		},
		{
			name:  "twelve months",
			start: time.Date(2024, 3, 10, 0, 0, 0, 0, time.UTC),
			n:     12,
			want:  time.Date(2025, 3, 10, 0, 0, 0, 0, time.UTC),
		},
		{
			name:  "thirty first of january normalises like AddDate",
			start: time.Date(2023, 1, 31, 0, 0, 0, 0, time.UTC),
			n:     1,
			want:  time.Date(2023, 3, 3, 0, 0, 0, 0, time.UTC),
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Add(tt.start, tt.n))
		})
	}
}

func TestDayComparisons(t *testing.T) {
	today := time.Date(2024, 5, 10, 18, 0, 0, 0, time.UTC)

	sameDayEarlier := time.Date(2024, 5, 10, 1, 0, 0, 0, time.UTC)
	assert.True(t, OnOrAfter(sameDayEarlier, today))
	assert.True(t, OnOrBefore(sameDayEarlier, today))

	yesterday := time.Date(2024, 5, 9, 23, 59, 0, 0, time.UTC)
	assert.False(t, OnOrAfter(yesterday, today))
	assert.True(t, OnOrBefore(yesterday, today))

	tomorrow := time.Date(2024, 5, 11, 0, 0, 0, 0, time.UTC)
	assert.True(t, OnOrAfter(tomorrow, today))
	assert.False(t, OnOrBefore(tomorrow, today))

	assert.Equal(t, time.Date(2024, 5, 10, 0, 0, 0, 0, time.UTC), Day(today))
}

func TestDayComparisons_DifferentZones(t *testing.T) {
	// Дата заявки хранится как полночь UTC, «сегодня» берётся в локальной зоне.
	expected := time.Date(2024, 5, 10, 0, 0, 0, 0, time.UTC)
	west := time.FixedZone("UTC-5", -5*60*60)
	today := time.Date(2024, 5, 10, 21, 0, 0, 0, west)

	assert.True(t, OnOrAfter(expected, today))
	assert.True(t, OnOrBefore(expected, today))
	assert.Equal(t, expected, Civil(today))
}
