package session

import (
	"testing"
	"time"
)

func nyDate(year int, month time.Month, day, hour int) time.Time {
	loc, err := time.LoadLocation("America/New_York")
	if err != nil {
		return time.Date(year, month, day, hour, 0, 0, 0, time.UTC)
	}
	return time.Date(year, month, day, hour, 0, 0, 0, loc)
}

func TestOf(t *testing.T) {
	tests := []struct {
		name string
		at   time.Time
		want Session
	}{
		{name: "Asia session Tuesday 21.00 NY", at: nyDate(2025, time.March, 4, 21), want: Asia},
		{name: "Asia session Wednesday 01.00 NY", at: nyDate(2025, time.March, 5, 1), want: Asia},
		{name: "London session Tuesday 04.00 NY", at: nyDate(2025, time.March, 4, 4), want: London},
		{name: "US session Tuesday 10.00 NY", at: nyDate(2025, time.March, 4, 10), want: US},
		{name: "US session Tuesday 16.59 NY", at: nyDate(2025, time.March, 4, 16).Add(59 * time.Minute), want: US},
		{name: "Dead zone Tuesday 18.00 NY", at: nyDate(2025, time.March, 4, 18), want: DeadZone},
		{name: "Saturday", at: nyDate(2025, time.March, 8, 12), want: WeekendHoliday},
		{name: "Sunday evening", at: nyDate(2025, time.March, 9, 19), want: WeekendHoliday},
		{name: "Sunday London hours", at: nyDate(2025, time.March, 9, 4), want: London},
		{name: "Thanksgiving", at: nyDate(2025, time.November, 27, 11), want: WeekendHoliday},
		{name: "Independence Day", at: nyDate(2025, time.July, 4, 11), want: WeekendHoliday},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Of(tt.at); got != tt.want {
				t.Fatalf("Of(%s) = %s, want %s", tt.at, got, tt.want)
			}
		})
	}
}

func TestIsHoliday(t *testing.T) {
	tests := []struct {
		name string
		day  time.Time
		want bool
	}{
		{"MLK day 2025", time.Date(2025, time.January, 20, 0, 0, 0, 0, time.UTC), true},
		{"Presidents day 2025", time.Date(2025, time.February, 17, 0, 0, 0, 0, time.UTC), true},
		{"Memorial day 2025", time.Date(2025, time.May, 26, 0, 0, 0, 0, time.UTC), true},
		{"Labor day 2025", time.Date(2025, time.September, 1, 0, 0, 0, 0, time.UTC), true},
		{"Christmas 2022 observed Monday", time.Date(2022, time.December, 26, 0, 0, 0, 0, time.UTC), true},
		{"Regular Tuesday", time.Date(2025, time.March, 4, 0, 0, 0, 0, time.UTC), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IsHoliday(tt.day); got != tt.want {
				t.Fatalf("IsHoliday(%s) = %v, want %v", tt.day.Format("2006-01-02"), got, tt.want)
			}
		})
	}
}
