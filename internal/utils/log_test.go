package utils

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTruncateForLog(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		input  string
		limit  int
		expect string
	}{
		{
			name:   "returns empty when limit non-positive",
			input:  "hello world",
			limit:  0,
			expect: "",
		},
		{
			name:   "shorter than limit",
			input:  "привет",
			limit:  10,
			expect: "привет",
		},
		{
			name:   "truncates by runes and adds ellipsis",
			input:  "расскажите о проекте",
			limit:  9,
			expect: "расскажит...",
		},
		{
			name:   "trims surrounding whitespace",
			input:  "  spaced  ",
			limit:  5,
			expect: "space...",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.expect, TruncateForLog(tt.input, tt.limit))
		})
	}
}

func TestUnique(t *testing.T) {
	got := Unique([]string{"Python", "SQL", "Python", "", "SQL", ""})
	assert.Equal(t, []string{"Python", "SQL", ""}, got)
	assert.Empty(t, Unique(nil))
}

func TestRound1(t *testing.T) {
	assert.Equal(t, 66.7, Round1(200.0/3))
	assert.Equal(t, 100.0, Round1(100))
	assert.Equal(t, 0.0, Round1(0.0/zero()))
}

func zero() float64 { return 0 }

func TestWaitForHonoursContext(t *testing.T) {
	original := sleep
	sleep = func(time.Duration) { time.Sleep(time.Second) }
	defer func() { sleep = original }()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := WaitFor(ctx, time.Hour)
	require.ErrorIs(t, err, context.Canceled)
}

func TestWaitForElapses(t *testing.T) {
	original := sleep
	var slept time.Duration
	sleep = func(d time.Duration) { slept = d }
	defer func() { sleep = original }()

	require.NoError(t, WaitFor(context.Background(), 3*time.Second))
	assert.Equal(t, 3*time.Second, slept)
}

func TestWaitForZeroDuration(t *testing.T) {
	require.NoError(t, WaitFor(context.Background(), 0))
}
