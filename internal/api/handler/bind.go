package handler

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"

	"garage/backend/pkg/response"
)

// bindError 请求绑定失败统一返回 10001，details 列出未通过校验的字段
func bindError(c *gin.Context, err error) {
	var tooLarge *http.MaxBytesError
	if errors.As(err, &tooLarge) {
		response.Error(c, http.StatusRequestEntityTooLarge, 10005, "请求体过大")
		return
	}

	var ve validator.ValidationErrors
	if errors.As(err, &ve) {
		fields := make([]string, 0, len(ve))
		for _, fe := range ve {
			fields = append(fields, fmt.Sprintf("%s(%s)", fe.Namespace(), fe.Tag()))
		}
		response.Error(c, http.StatusBadRequest, 10001, "参数校验失败", strings.Join(fields, ", "))
		return
	}

	response.Error(c, http.StatusBadRequest, 10001, "参数校验失败", "请求体格式错误")
}
