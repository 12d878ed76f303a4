package progresskit_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/pqtu-edu/progresskit"
	"github.com/pqtu-edu/progresskit/config"
	"github.com/pqtu-edu/progresskit/model"
	"github.com/pqtu-edu/progresskit/notify"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestEngine_LocalOnlyLifecycle(t *testing.T) {
	e, err := progresskit.Open(nil, zap.NewNop())
	require.NoError(t, err)
	defer e.Close()
	ctx := context.Background()

	res, err := e.RecordInteraction(ctx, model.PersonaGa, model.InteractionFirstTime)
	require.NoError(t, err)
	assert.Equal(t, 2, res.Ledger.Level)

	l, err := e.GetLedger(model.PersonaGa)
	require.NoError(t, err)
	assert.Equal(t, 110, l.CurrentXP)
	assert.True(t, l.HasAchievement("first_question"))

	// Feedback goes to the offline queue; no backend is configured.
	require.NoError(t, e.SubmitFeedback(ctx, model.FeedbackRecord{
		MessageID: "m1", ResponseID: "r1", Rating: 5,
	}))
	assert.Equal(t, 1, e.Feedback().Pending(ctx))

	e.ResetAll(ctx)
	l, err = e.GetLedger(model.PersonaGa)
	require.NoError(t, err)
	assert.Equal(t, 0, l.CurrentXP)
}

func TestEngine_EventsReachSubscribers(t *testing.T) {
	e, err := progresskit.Open(nil, zap.NewNop())
	require.NoError(t, err)
	defer e.Close()

	ch, cancel := e.Subscribe()
	defer cancel()

	_, err = e.RecordInteraction(context.Background(), model.PersonaDr, model.InteractionQuestion)
	require.NoError(t, err)

	select {
	case ev := <-ch:
		assert.Equal(t, notify.EventXPGained, ev.Type)
		assert.Equal(t, model.PersonaDr, ev.Persona)
	case <-time.After(time.Second):
		t.Fatal("no event delivered")
	}
}

func TestEngine_RemotePushAfterMutation(t *testing.T) {
	gin.SetMode(gin.TestMode)
	var mu sync.Mutex
	pushes := 0

	r := gin.New()
	r.GET("/health", func(c *gin.Context) { c.JSON(http.StatusOK, gin.H{"status": "ok"}) })
	r.PUT("/gamification/user/:uid/progress", func(c *gin.Context) {
		mu.Lock()
		pushes++
		mu.Unlock()
		c.JSON(http.StatusOK, gin.H{"status": "stored"})
	})
	r.POST("/gamification/user/:uid/score", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.POST("/gamification/user/:uid/achievements", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	srv := httptest.NewServer(r)
	t.Cleanup(srv.Close)

	cfg := config.Default()
	cfg.Remote.BaseURL = srv.URL
	cfg.Remote.PushRPS = 1000
	cfg.Remote.PushBurst = 1000

	e, err := progresskit.Open(cfg, zap.NewNop())
	require.NoError(t, err)
	defer e.Close()

	_, err = e.RecordInteraction(context.Background(), model.PersonaGa, model.InteractionQuestion)
	require.NoError(t, err)

	assert.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return pushes >= 1
	}, 2*time.Second, 10*time.Millisecond, "mutation should trigger a background push")
}

func TestEngine_SurvivesDeadRemote(t *testing.T) {
	cfg := config.Default()
	cfg.Remote.BaseURL = "http://127.0.0.1:1"
	cfg.Remote.HealthTimeout = 100 * time.Millisecond

	e, err := progresskit.Open(cfg, zap.NewNop())
	require.NoError(t, err)
	defer e.Close()

	res, err := e.RecordInteraction(context.Background(), model.PersonaGa, model.InteractionQuestion)
	require.NoError(t, err, "local progress must not depend on the backend")
	assert.Equal(t, 1, res.Ledger.TotalInteractions)

	err = e.SyncNow(context.Background())
	assert.Error(t, err)
}
