package errors

import (
	stderrors "errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAppErrorWrapsCause(t *testing.T) {
	cause := stderrors.New("disk full")
	err := NewInternalError("failed to save", cause)

	assert.Equal(t, "failed to save: disk full", err.Error())
	assert.ErrorIs(t, err, cause)
}

func TestConstructorsSetHTTPStatus(t *testing.T) {
	assert.Equal(t, http.StatusBadRequest, NewValidationError("bad", "field").HTTPStatus)
	assert.Equal(t, http.StatusConflict, NewConflictError("busy").HTTPStatus)
	assert.Equal(t, http.StatusNotFound, NewNotFoundError("scan", "id").HTTPStatus)
	assert.Equal(t, http.StatusForbidden, NewAuthorizationError("nope").HTTPStatus)
	assert.Equal(t, http.StatusInternalServerError, NewInternalError("boom", nil).HTTPStatus)
}

func TestToGinResponse(t *testing.T) {
	gin.SetMode(gin.TestMode)

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodGet, "/api/scans/x", nil)

	HandleNotFound(c, "scan", "x")

	require.Equal(t, http.StatusNotFound, w.Code)
	assert.JSONEq(t, `{
		"error": "scan not found",
		"code": "NOT_FOUND",
		"details": {"resource": "scan", "id": "x"}
	}`, w.Body.String())
}
