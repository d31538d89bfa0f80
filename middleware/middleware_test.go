package middleware

import (
	"OnlineStore/jwt"
	"OnlineStore/logger"
	"OnlineStore/models"
	"OnlineStore/storetest"
	"crypto/rand"
	"crypto/rsa"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

type fixture struct {
	router *gin.Engine
	db     *gorm.DB
	tokens *jwt.Manager
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	gin.SetMode(gin.TestMode)

	key, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)
	f := &fixture{
		db:     storetest.OpenDB(t),
		tokens: jwt.NewManagerFromKeys(key, &key.PublicKey, time.Hour),
	}

	router := gin.New()
	router.Use(RequestIDMiddleware(slog.New(slog.NewTextHandler(io.Discard, nil))))
	router.Use(CORSMiddleware())
	router.Use(AuthMiddleware(f.tokens, f.db))

	router.GET("/whoami", func(c *gin.Context) {
		caller, ok := CallerFrom(c)
		_, hasLogger := logger.FromCtx(c.Request.Context())
		c.JSON(http.StatusOK, gin.H{
			"loggedIn":  ok,
			"userID":    caller.ID,
			"isAdmin":   caller.IsAdmin,
			"token":     TokenFrom(c),
			"hasLogger": hasLogger,
		})
	})
	router.GET("/private", CheckLoginMiddleware(), func(c *gin.Context) {
		c.Status(http.StatusOK)
	})
	router.GET("/admin", CheckLoginMiddleware(), CheckAdminPermissionMiddleware(), func(c *gin.Context) {
		c.Status(http.StatusOK)
	})

	f.router = router
	return f
}

// issue 簽發token並寫入登入紀錄
func (f *fixture) issue(t *testing.T, user models.User) string {
	t.Helper()
	token, expiresAt, err := f.tokens.GenerateToken(user.ID, user.IsAdmin)
	require.NoError(t, err)
	require.NoError(t, f.db.Create(&models.LoginToken{Token: token, ExpirationTime: expiresAt, UserID: user.ID}).Error)
	return token
}

func (f *fixture) get(path, token string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, path, nil)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	f.router.ServeHTTP(rec, req)
	return rec
}

func TestAuthSetsCaller(t *testing.T) {
	f := newFixture(t)
	user := storetest.CreateUser(t, f.db, "alice", false)
	token := f.issue(t, user)

	rec := f.get("/whoami", token)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"loggedIn":true,"userID":`+itoa(user.ID)+`,"isAdmin":false,"token":"`+token+`","hasLogger":true}`,
		rec.Body.String())
}

func TestAuthIsSoft(t *testing.T) {
	f := newFixture(t)

	for _, token := range []string{"", "garbage"} {
		rec := f.get("/whoami", token)
		require.Equal(t, http.StatusOK, rec.Code)
		assert.Contains(t, rec.Body.String(), `"loggedIn":false`)
	}

	// 簽章正確但沒有登入紀錄
	user := storetest.CreateUser(t, f.db, "bob", false)
	token, _, err := f.tokens.GenerateToken(user.ID, false)
	require.NoError(t, err)
	rec := f.get("/whoami", token)
	assert.Contains(t, rec.Body.String(), `"loggedIn":false`)
}

func TestCheckLoginAndAdmin(t *testing.T) {
	f := newFixture(t)
	alice := storetest.CreateUser(t, f.db, "alice", false)
	root := storetest.CreateUser(t, f.db, "root", true)
	aliceToken := f.issue(t, alice)
	rootToken := f.issue(t, root)

	assert.Equal(t, http.StatusUnauthorized, f.get("/private", "").Code)
	assert.Equal(t, http.StatusOK, f.get("/private", aliceToken).Code)

	assert.Equal(t, http.StatusUnauthorized, f.get("/admin", "").Code)
	assert.Equal(t, http.StatusForbidden, f.get("/admin", aliceToken).Code)
	assert.Equal(t, http.StatusOK, f.get("/admin", rootToken).Code)
}

func TestRequestIDIsEchoed(t *testing.T) {
	f := newFixture(t)

	req := httptest.NewRequest(http.MethodGet, "/whoami", nil)
	req.Header.Set(RequestIDHeader, "req-123")
	rec := httptest.NewRecorder()
	f.router.ServeHTTP(rec, req)
	assert.Equal(t, "req-123", rec.Header().Get(RequestIDHeader))

	rec = f.get("/whoami", "")
	assert.Len(t, rec.Header().Get(RequestIDHeader), 36)
}

func TestCORSPreflight(t *testing.T) {
	f := newFixture(t)

	req := httptest.NewRequest(http.MethodOptions, "/private", nil)
	rec := httptest.NewRecorder()
	f.router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, "*", rec.Header().Get("Access-Control-Allow-Origin"))
}

func itoa(id uint) string {
	return strconv.FormatUint(uint64(id), 10)
}
