package services

import (
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	"github.com/meetsmatch/swipeclient/internal/api"
)

// newFakeBackend serves the routes registered by register and returns a
// client pointed at it
func newFakeBackend(t *testing.T, register func(r *gin.Engine)) *api.Client {
	t.Helper()
	gin.SetMode(gin.TestMode)

	router := gin.New()
	router.Use(otelgin.Middleware("fake-backend"))
	register(router)

	server := httptest.NewServer(router)
	t.Cleanup(server.Close)

	client, err := api.NewClient(server.URL, api.WithTokenSource(api.StaticToken("token")), api.WithTimeout(2*time.Second))
	require.NoError(t, err)
	return client
}

func ts(t *testing.T, value string) api.Timestamp {
	t.Helper()
	if value == "" {
		return api.Timestamp{}
	}
	parsed, err := time.Parse(time.RFC3339, value)
	require.NoError(t, err)
	return api.Timestamp{Time: parsed}
}
