package handlers

import (
	"OnlineStore/access"
	"OnlineStore/apperr"
	"OnlineStore/logger"
	"OnlineStore/middleware"
	"OnlineStore/services"
	"errors"
	"github.com/gin-gonic/gin"
	"net/http"
	"strconv"
)

func statusOf(kind apperr.Kind) int {
	switch kind {
	case apperr.KindUnauthenticated:
		return http.StatusUnauthorized
	case apperr.KindForbidden:
		return http.StatusForbidden
	case apperr.KindNotFound:
		return http.StatusNotFound
	case apperr.KindInvalidArgument, apperr.KindEmptyCart:
		return http.StatusBadRequest
	case apperr.KindInsufficientStock, apperr.KindInvalidState, apperr.KindConflict:
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

// respondError 將服務層錯誤轉為JSON回應，非預期錯誤只回傳通用訊息
func respondError(c *gin.Context, err error) {
	kind := apperr.KindOf(err)
	status := statusOf(kind)

	message := "伺服器內部錯誤"
	var appErr *apperr.Error
	if errors.As(err, &appErr) && kind != apperr.KindInternal {
		message = appErr.Message
	}
	if status == http.StatusInternalServerError {
		logger.WithCtx(c.Request.Context()).Error("請求處理失敗", "error", err)
	}

	body := gin.H{
		"message": message,
		"error":   kind,
	}
	if shortfalls := apperr.ShortfallsOf(err); len(shortfalls) > 0 {
		body["insufficientItems"] = shortfalls
	}
	c.AbortWithStatusJSON(status, body)
}

func respondBindError(c *gin.Context, err error) {
	c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{
		"message": "請求資料格式錯誤: " + err.Error(),
		"error":   apperr.KindInvalidArgument,
	})
}

// callerOf 路由已經過CheckLoginMiddleware，取不到代表中介層設定錯誤
func callerOf(c *gin.Context) (access.Caller, bool) {
	caller, ok := middleware.CallerFrom(c)
	if !ok {
		respondError(c, apperr.New(apperr.KindUnauthenticated, "尚未登入"))
	}
	return caller, ok
}

func uintParam(c *gin.Context, name string) (uint, bool) {
	value, err := strconv.ParseUint(c.Param(name), 10, 64)
	if err != nil || value == 0 {
		respondError(c, apperr.Newf(apperr.KindInvalidArgument, "%s格式錯誤", name))
		return 0, false
	}
	return uint(value), true
}

func intQuery(c *gin.Context, name string, fallback int) (int, bool) {
	raw, ok := c.GetQuery(name)
	if !ok || raw == "" {
		return fallback, true
	}
	value, err := strconv.Atoi(raw)
	if err != nil {
		respondError(c, apperr.Newf(apperr.KindInvalidArgument, "%s格式錯誤", name))
		return 0, false
	}
	return value, true
}

func pageQuery(c *gin.Context) (services.Page, bool) {
	skip, ok := intQuery(c, "skip", 0)
	if !ok {
		return services.Page{}, false
	}
	limit, ok := intQuery(c, "limit", services.DefaultPageLimit)
	if !ok {
		return services.Page{}, false
	}
	page, err := services.NewPage(skip, limit)
	if err != nil {
		respondError(c, err)
		return services.Page{}, false
	}
	return page, true
}
