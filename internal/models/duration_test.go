package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDurationFromString(t *testing.T) {
	cases := []struct {
		raw  string
		want *int
	}{
		{"1:02:03", intPtr(3723)},
		{"5:30", intPtr(330)},
		{"90", intPtr(90)},
		{" 45 ", intPtr(45)},
		{"0:00", intPtr(0)},
		{"", nil},
		{"abc", nil},
		{"1:2:3:4", nil},
		{"-10", nil},
	}
	for _, c := range cases {
		got := DurationFromString(c.raw)
		if c.want == nil {
			assert.Nil(t, got, "input %q", c.raw)
		} else {
			assert.NotNil(t, got, "input %q", c.raw)
			assert.Equal(t, *c.want, *got, "input %q", c.raw)
		}
	}
}

func TestDurationFromMillis(t *testing.T) {
	got := DurationFromMillis(90000)
	assert.NotNil(t, got)
	assert.Equal(t, 90, *got)

	// Sub-second remainders truncate.
	got = DurationFromMillis(90999)
	assert.Equal(t, 90, *got)

	assert.Nil(t, DurationFromMillis(0))
	assert.Nil(t, DurationFromMillis(-5))
}

func intPtr(n int) *int { return &n }
