// Package level maps cumulative XP to a level number. The mapping is a
// pure lookup over a fixed threshold table: monotonic, capped, no I/O.
package level

import "fmt"

// DefaultThresholds is the minimum cumulative XP per level (index i is
// level i+1). Ten levels; XP past the last threshold keeps the level at
// the cap.
var DefaultThresholds = []int{0, 100, 250, 500, 900, 1400, 2000, 2800, 3800, 5000}

// Result is the derived level state for a given XP total.
type Result struct {
	Level       int
	CurrentXP   int
	NextLevelXP int
}

// Calculator resolves XP totals against a threshold table.
type Calculator struct {
	thresholds []int
}

// New validates the table and returns a Calculator. The table must start
// at 0 and be strictly increasing; anything else is a programming error in
// the config defaults.
func New(thresholds []int) (*Calculator, error) {
	if len(thresholds) == 0 {
		return nil, fmt.Errorf("level: empty threshold table")
	}
	if thresholds[0] != 0 {
		return nil, fmt.Errorf("level: first threshold must be 0, got %d", thresholds[0])
	}
	for i := 1; i < len(thresholds); i++ {
		if thresholds[i] <= thresholds[i-1] {
			return nil, fmt.Errorf("level: thresholds not strictly increasing at index %d", i)
		}
	}
	c := &Calculator{thresholds: make([]int, len(thresholds))}
	copy(c.thresholds, thresholds)
	return c, nil
}

// Cap returns the maximum reachable level.
func (c *Calculator) Cap() int {
	return len(c.thresholds)
}

// Calculate returns the level for the given cumulative XP. Negative input
// is clamped to 0 (the tracker rejects it earlier). At the cap,
// NextLevelXP freezes at the cap's threshold.
func (c *Calculator) Calculate(xp int) Result {
	if xp < 0 {
		xp = 0
	}
	lvl := 1
	for i := len(c.thresholds) - 1; i >= 0; i-- {
		if xp >= c.thresholds[i] {
			lvl = i + 1
			break
		}
	}
	next := c.thresholds[len(c.thresholds)-1]
	if lvl < len(c.thresholds) {
		next = c.thresholds[lvl]
	}
	return Result{Level: lvl, CurrentXP: xp, NextLevelXP: next}
}
