package level_test

import (
	"testing"

	"github.com/pqtu-edu/progresskit/level"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew_RejectsBadTables(t *testing.T) {
	cases := []struct {
		name       string
		thresholds []int
	}{
		{"empty", nil},
		{"nonzero start", []int{100, 200}},
		{"not increasing", []int{0, 100, 100}},
		{"decreasing", []int{0, 200, 100}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := level.New(tc.thresholds)
			assert.Error(t, err)
		})
	}
}

func TestCalculate_Table(t *testing.T) {
	c, err := level.New(level.DefaultThresholds)
	require.NoError(t, err)

	cases := []struct {
		xp        int
		level     int
		nextLevel int
	}{
		{0, 1, 100},
		{99, 1, 100},
		{100, 2, 250}, // first_time interaction on a fresh ledger lands here
		{249, 2, 250},
		{250, 3, 500},
		{900, 5, 1400},
		{4999, 9, 5000},
		{5000, 10, 5000},  // cap: NextLevelXP freezes
		{99999, 10, 5000}, // beyond the cap stays at the cap
		{-5, 1, 100},      // clamped
	}
	for _, tc := range cases {
		got := c.Calculate(tc.xp)
		assert.Equal(t, tc.level, got.Level, "xp=%d", tc.xp)
		assert.Equal(t, tc.nextLevel, got.NextLevelXP, "xp=%d", tc.xp)
	}
}

func TestCalculate_Monotonic(t *testing.T) {
	c, err := level.New(level.DefaultThresholds)
	require.NoError(t, err)

	prev := 0
	for xp := 0; xp <= 6000; xp += 7 {
		lvl := c.Calculate(xp).Level
		require.GreaterOrEqual(t, lvl, prev, "level decreased at xp=%d", xp)
		prev = lvl
	}
}

func TestCalculate_NextAlwaysAheadExceptAtCap(t *testing.T) {
	c, err := level.New(level.DefaultThresholds)
	require.NoError(t, err)

	for xp := 0; xp < 5000; xp += 13 {
		r := c.Calculate(xp)
		require.Greater(t, r.NextLevelXP, r.CurrentXP, "xp=%d", xp)
	}
	r := c.Calculate(7777)
	assert.Equal(t, c.Cap(), r.Level)
	assert.Equal(t, 5000, r.NextLevelXP)
}
