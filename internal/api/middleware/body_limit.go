package middleware

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"garage/backend/pkg/response"
)

// BodyLimit 请求体大小限制
// 声明了 Content-Length 的超限请求直接拒绝；分块上传由 MaxBytesReader 在读取时截断，
// Handler 绑定失败后这里把错误改写为 413
func BodyLimit(maxBytes int64) gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.Request.ContentLength > maxBytes {
			response.Error(c, http.StatusRequestEntityTooLarge, 10005, "请求体过大")
			c.Abort()
			return
		}
		if c.Request.Body != nil {
			c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxBytes)
		}

		c.Next()

		if c.Writer.Written() {
			return
		}
		for _, ginErr := range c.Errors {
			var tooLarge *http.MaxBytesError
			if errors.As(ginErr.Err, &tooLarge) {
				response.Error(c, http.StatusRequestEntityTooLarge, 10005, "请求体过大")
				return
			}
		}
	}
}
