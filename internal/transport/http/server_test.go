package http

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xiaot623/librarydesk/internal/adapter/llm"
	"github.com/xiaot623/librarydesk/internal/config"
	"github.com/xiaot623/librarydesk/internal/policy"
	"github.com/xiaot623/librarydesk/internal/service"
	"github.com/xiaot623/librarydesk/internal/toolargs"
	"github.com/xiaot623/librarydesk/internal/tools"
	"github.com/xiaot623/librarydesk/tests/helpers"
)

func TestNewServerRoutes(t *testing.T) {
	cfg := config.Defaults()
	db := helpers.NewSeededStore(t)
	engine, err := policy.NewEngine(context.Background(), policy.DefaultPolicy)
	require.NoError(t, err)
	dispatcher := tools.NewDispatcher(db, toolargs.NewNormalizer(toolargs.DefaultPolicy()))
	svc, err := service.New(db, llm.NewMockClient(), dispatcher, cfg, engine, nil)
	require.NoError(t, err)

	e := NewServer(svc, nil, cfg)

	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.NotEmpty(t, rec.Header().Get("X-Request-Id"))

	rec = httptest.NewRecorder()
	e.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/ws/s1", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)

	rec = httptest.NewRecorder()
	e.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/missing", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}
