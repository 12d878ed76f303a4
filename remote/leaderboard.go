package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"

	"github.com/pqtu-edu/progresskit/model"
	"go.uber.org/zap"
)

// LeaderboardEntry is one row in the leaderboard.
type LeaderboardEntry struct {
	Rank        int    `json:"rank"`
	UserID      string `json:"user_id"`
	DisplayName string `json:"display_name"`
	Points      int    `json:"points"`
	Level       int    `json:"level"`
	StreakDays  int    `json:"streak_days"`
}

// Leaderboard is the typed leaderboard response.
type Leaderboard struct {
	Category   string             `json:"category"`
	Period     string             `json:"period"`
	Entries    []LeaderboardEntry `json:"leaderboard"`
	TotalUsers int                `json:"total_users"`
}

// ScoreUpdate reports points earned in a category.
type ScoreUpdate struct {
	Category string                 `json:"category"`
	Points   int                    `json:"points"`
	Metadata map[string]interface{} `json:"metadata,omitempty"`
}

// AchievementReport tells the leaderboard service about an unlock.
type AchievementReport struct {
	Type     string                 `json:"type"`
	Value    int                    `json:"value"`
	Metadata map[string]interface{} `json:"metadata,omitempty"`
}

func leaderboardCacheKey(category, period string) string {
	return "leaderboard_" + category + "_" + period
}

// GetLeaderboard fetches the leaderboard, falling back to the last cached
// copy when the backend is unreachable.
func (c *Client) GetLeaderboard(ctx context.Context, category, period string, limit int) (*Leaderboard, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	lb, err := c.fetchLeaderboard(ctx, category, period, limit)
	if err == nil {
		if c.store != nil {
			if raw, mErr := json.Marshal(lb); mErr == nil {
				c.store.Set(ctx, leaderboardCacheKey(category, period), string(raw))
			}
		}
		return lb, nil
	}

	// Serve stale data rather than nothing.
	if c.store != nil {
		if raw, ok := c.store.Get(ctx, leaderboardCacheKey(category, period)); ok {
			cached := &Leaderboard{}
			if uErr := json.Unmarshal([]byte(raw), cached); uErr == nil {
				c.logger.Debug("serving cached leaderboard",
					zap.String("category", category), zap.String("period", period))
				return cached, nil
			}
		}
	}
	return nil, err
}

func (c *Client) fetchLeaderboard(ctx context.Context, category, period string, limit int) (*Leaderboard, error) {
	if !c.Enabled() {
		return nil, ErrUnavailable
	}
	q := url.Values{}
	q.Set("category", category)
	q.Set("period", period)
	q.Set("limit", strconv.Itoa(limit))
	endpoint := c.baseURL + "/gamification/leaderboard?" + q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, err
	}
	c.authorize(req)

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("leaderboard: %w: %v", ErrUnavailable, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("leaderboard: %w: status %d", ErrUnavailable, resp.StatusCode)
	}

	lb := &Leaderboard{}
	if err := json.NewDecoder(resp.Body).Decode(lb); err != nil {
		return nil, fmt.Errorf("leaderboard: decode: %w", err)
	}
	for i, e := range lb.Entries {
		if e.UserID == "" || e.Points < 0 {
			return nil, fmt.Errorf("leaderboard: invalid entry at %d", i)
		}
	}
	return lb, nil
}

// UpdateUserScore pushes points to the leaderboard service. Best-effort.
func (c *Client) UpdateUserScore(ctx context.Context, userID string, update ScoreUpdate) error {
	return c.postJSON(ctx,
		fmt.Sprintf("%s/gamification/user/%s/score", c.baseURL, url.PathEscape(userID)),
		update)
}

// RecordAchievement reports an unlock to the leaderboard service.
// Best-effort.
func (c *Client) RecordAchievement(ctx context.Context, userID string, report AchievementReport) error {
	return c.postJSON(ctx,
		fmt.Sprintf("%s/gamification/user/%s/achievements", c.baseURL, url.PathEscape(userID)),
		report)
}

// FetchCatalog retrieves the backend's achievement catalog.
func (c *Client) FetchCatalog(ctx context.Context) ([]model.Achievement, error) {
	if !c.Enabled() {
		return nil, ErrUnavailable
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/gamification/achievements", nil)
	if err != nil {
		return nil, err
	}
	c.authorize(req)

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("catalog: %w: %v", ErrUnavailable, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("catalog: %w: status %d", ErrUnavailable, resp.StatusCode)
	}

	var payload struct {
		Achievements []model.Achievement `json:"achievements"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, fmt.Errorf("catalog: decode: %w", err)
	}
	for i, a := range payload.Achievements {
		if a.ID == "" || a.XPReward < 0 {
			return nil, fmt.Errorf("catalog: invalid entry at %d", i)
		}
	}
	return payload.Achievements, nil
}

// FetchUserAchievements retrieves the backend's unlock records for the
// user.
func (c *Client) FetchUserAchievements(ctx context.Context, userID string) ([]model.UnlockedAchievement, error) {
	if !c.Enabled() {
		return nil, ErrUnavailable
	}
	endpoint := fmt.Sprintf("%s/gamification/user/%s/achievements", c.baseURL, url.PathEscape(userID))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, err
	}
	c.authorize(req)

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("achievements: %w: %v", ErrUnavailable, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("achievements: %w: status %d", ErrUnavailable, resp.StatusCode)
	}

	var payload struct {
		Achievements []model.UnlockedAchievement `json:"achievements"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, fmt.Errorf("achievements: decode: %w", err)
	}
	for i, a := range payload.Achievements {
		if a.ID == "" {
			return nil, fmt.Errorf("achievements: invalid entry at %d", i)
		}
	}
	return payload.Achievements, nil
}

func (c *Client) postJSON(ctx context.Context, endpoint string, body interface{}) error {
	if !c.Enabled() {
		return nil
	}
	raw, err := json.Marshal(body)
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(raw))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	c.authorize(req)

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("%w: status %d", ErrUnavailable, resp.StatusCode)
	}
	return nil
}
