package core

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestWindowPolicy_EntryLowerBound(t *testing.T) {
	w := WindowPolicy{}

	tests := []struct {
		name string
		now  time.Time
		want string
	}{
		{
			name: "subtracts seven days",
			now:  time.Date(2026, 7, 31, 12, 0, 0, 0, time.UTC),
			want: "2026-07-24",
		},
		{
			name: "crosses a month boundary",
			now:  time.Date(2026, 8, 3, 0, 0, 0, 0, time.UTC),
			want: "2026-07-27",
		},
		{
			name: "crosses a year boundary",
			now:  time.Date(2026, 1, 2, 0, 0, 0, 0, time.UTC),
			want: "2025-12-26",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, w.EntryLowerBound(tt.now))
		})
	}
}
