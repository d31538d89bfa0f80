package handlers

import (
	"OnlineStore/apperr"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func serveError(t *testing.T, err error) (int, map[string]any) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	rec := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(rec)
	c.Request = httptest.NewRequest(http.MethodGet, "/", nil)
	respondError(c, err)

	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	return rec.Code, body
}

func TestRespondErrorStatus(t *testing.T) {
	tests := []struct {
		kind apperr.Kind
		want int
	}{
		{apperr.KindUnauthenticated, http.StatusUnauthorized},
		{apperr.KindForbidden, http.StatusForbidden},
		{apperr.KindNotFound, http.StatusNotFound},
		{apperr.KindInvalidArgument, http.StatusBadRequest},
		{apperr.KindEmptyCart, http.StatusBadRequest},
		{apperr.KindInsufficientStock, http.StatusConflict},
		{apperr.KindInvalidState, http.StatusConflict},
		{apperr.KindConflict, http.StatusConflict},
		{apperr.KindInternal, http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(string(tt.kind), func(t *testing.T) {
			code, body := serveError(t, apperr.New(tt.kind, "錯誤"))
			assert.Equal(t, tt.want, code)
			assert.Equal(t, string(tt.kind), body["error"])
		})
	}
}

func TestRespondErrorCarriesShortfalls(t *testing.T) {
	code, body := serveError(t, apperr.InsufficientStock([]apperr.Shortfall{
		{ProductID: 1, ProductName: "P", Requested: 3, Available: 1},
		{ProductID: 2, ProductName: "Q", Requested: 2, Available: 0},
	}))

	assert.Equal(t, http.StatusConflict, code)
	items := body["insufficientItems"].([]any)
	require.Len(t, items, 2)
	first := items[0].(map[string]any)
	assert.Equal(t, float64(1), first["productID"])
	assert.Equal(t, float64(3), first["requested"])
	assert.Equal(t, float64(1), first["available"])
}

func TestRespondErrorHidesInternalDetails(t *testing.T) {
	code, body := serveError(t, errors.New("dial tcp 10.0.0.1:3306: connection refused"))

	assert.Equal(t, http.StatusInternalServerError, code)
	assert.Equal(t, "internal", body["error"])
	assert.NotContains(t, body["message"], "10.0.0.1")
	assert.NotContains(t, body, "insufficientItems")
}

func TestPageQuery(t *testing.T) {
	gin.SetMode(gin.TestMode)

	tests := []struct {
		query     string
		wantOK    bool
		wantSkip  int
		wantLimit int
	}{
		{"", true, 0, 100},
		{"?skip=10&limit=20", true, 10, 20},
		{"?limit=500", true, 0, 100},
		{"?skip=-1", false, 0, 0},
		{"?limit=abc", false, 0, 0},
	}
	for _, tt := range tests {
		t.Run(tt.query, func(t *testing.T) {
			rec := httptest.NewRecorder()
			c, _ := gin.CreateTestContext(rec)
			c.Request = httptest.NewRequest(http.MethodGet, "/"+tt.query, nil)

			page, ok := pageQuery(c)
			assert.Equal(t, tt.wantOK, ok)
			if !tt.wantOK {
				assert.Equal(t, http.StatusBadRequest, rec.Code)
				return
			}
			assert.Equal(t, tt.wantSkip, page.Skip)
			assert.Equal(t, tt.wantLimit, page.Limit)
		})
	}
}
