package handler

import (
	"context"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"garage/backend/pkg/response"
)

// TokenRevoker Token 吊销存储（Redis 黑名单）
type TokenRevoker interface {
	BlacklistToken(ctx context.Context, jti string, ttl time.Duration) error
}

// AuthHandler 认证模块 HTTP 处理器
// 登录与签发由外部身份服务负责，这里只处理注销
type AuthHandler struct {
	revoker TokenRevoker
	logger  *zap.Logger
}

// NewAuthHandler 创建 AuthHandler，revoker 为 nil 时注销只返回成功
func NewAuthHandler(revoker TokenRevoker, logger *zap.Logger) *AuthHandler {
	return &AuthHandler{revoker: revoker, logger: logger}
}

// Logout 吊销当前 Access Token
// POST /api/v1/auth/logout
func (h *AuthHandler) Logout(c *gin.Context) {
	userID, ok := MustGetUserID(c)
	if !ok {
		return
	}

	jti, exp := GetTokenMeta(c)
	if h.revoker == nil || jti == "" {
		h.logger.Warn("Token 黑名单不可用，注销仅在客户端生效", zap.String("user_id", userID))
		response.OK(c, nil)
		return
	}

	if err := h.revoker.BlacklistToken(c.Request.Context(), jti, time.Until(exp)); err != nil {
		h.logger.Error("写入 Token 黑名单失败", zap.String("user_id", userID), zap.Error(err))
		response.InternalError(c)
		return
	}

	response.OK(c, nil)
}
