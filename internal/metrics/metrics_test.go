package metrics

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCounters(t *testing.T) {
	before := testutil.ToFloat64(turnsTotal.WithLabelValues("game_master", OutcomeOK))
	TurnCompleted("game_master", OutcomeOK)
	assert.Equal(t, before+1, testutil.ToFloat64(turnsTotal.WithLabelValues("game_master", OutcomeOK)))

	before = testutil.ToFloat64(memoryFailures.WithLabelValues("save_record"))
	MemoryFailure("save_record")
	assert.Equal(t, before+1, testutil.ToFloat64(memoryFailures.WithLabelValues("save_record")))

	before = testutil.ToFloat64(persistenceFailures)
	PersistenceFailure()
	assert.Equal(t, before+1, testutil.ToFloat64(persistenceFailures))

	SetQueueDepth(7)
	assert.Equal(t, float64(7), testutil.ToFloat64(queueDepth))
}

func TestHandler(t *testing.T) {
	ModelError("mock")
	ObserveInvocation("mock", time.Now().Add(-time.Second))
	LockContention()

	rec := httptest.NewRecorder()
	Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	body, err := io.ReadAll(rec.Body)
	require.NoError(t, err)
	text := string(body)
	for _, name := range []string{
		"persona_engine_model_errors_total",
		"persona_engine_model_invocation_seconds",
		"persona_engine_conversation_lock_contention_total",
	} {
		assert.True(t, strings.Contains(text, name), "missing %s", name)
	}
}
