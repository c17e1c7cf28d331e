package shared

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stockyourlot/internal/http/response"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var errRuleMissing = errors.New("rule missing")

func newTestContext() (*gin.Context, *httptest.ResponseRecorder) {
	gin.SetMode(gin.TestMode)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodGet, "/", nil)
	c.Set("request_id", "req-1")
	return c, w
}

func decodeResponse(t *testing.T, w *httptest.ResponseRecorder) response.Response {
	t.Helper()
	require.Equal(t, http.StatusOK, w.Code)
	var resp response.Response
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	return resp
}

func TestRespondWithMappedError(t *testing.T) {
	rules := []MappedError{{Target: errRuleMissing, Code: response.CodeNotFound, Key: "error.bad_request"}}

	c, w := newTestContext()
	RespondWithMappedError(c, fmt.Errorf("load: %w", errRuleMissing), rules, response.CodeInternal, "error.internal")
	resp := decodeResponse(t, w)
	assert.Equal(t, response.CodeNotFound, resp.StatusCode)
	assert.Equal(t, "Invalid request parameters", resp.Msg)
	assert.Equal(t, map[string]interface{}{"request_id": "req-1"}, resp.Data)

	c, w = newTestContext()
	RespondWithMappedError(c, errors.New("boom"), rules, response.CodeInternal, "error.internal")
	assert.Equal(t, response.CodeInternal, decodeResponse(t, w).StatusCode)
}

func TestRespondWithMappedErrorHonorsAppError(t *testing.T) {
	c, w := newTestContext()
	appErr := response.NewAppError(response.CodeInternal, "error.queue_unavailable", errors.New("redis down"))
	RespondWithMappedError(c, fmt.Errorf("enqueue: %w", appErr), nil, response.CodeBadRequest, "error.bad_request")

	resp := decodeResponse(t, w)
	assert.Equal(t, response.CodeInternal, resp.StatusCode)
	assert.Equal(t, "Task queue unavailable", resp.Msg)
}

func TestRequireUserID(t *testing.T) {
	c, w := newTestContext()
	_, ok := RequireUserID(c)
	assert.False(t, ok)
	assert.Equal(t, response.CodeUnauthorized, decodeResponse(t, w).StatusCode)

	c, w = newTestContext()
	c.Set(ContextKeyUserID, "7")
	_, ok = RequireUserID(c)
	assert.False(t, ok)
	assert.Equal(t, response.CodeInternal, decodeResponse(t, w).StatusCode)

	c, _ = newTestContext()
	c.Set(ContextKeyUserID, uint(7))
	c.Set(ContextKeyUsername, " buyer.rivera ")
	c.Set(ContextKeyRoles, []string{"buyer"})
	userID, ok := RequireUserID(c)
	require.True(t, ok)
	assert.Equal(t, uint(7), userID)
	assert.Equal(t, Identity{UserID: 7, Username: "buyer.rivera", Roles: []string{"buyer"}}, CurrentIdentity(c))
}
