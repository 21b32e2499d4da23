package response

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// 业务码：0 成功；10xxx 通用；11xxx 车辆/用户；12xxx 排班；13xxx 预约；
// 14xxx 工单；15xxx 库存；16xxx 通知；17xxx 导出；50000 未预期错误
const (
	codeOK       = 0
	codeInternal = 50000
)

// Response 所有接口共用的 JSON 信封
type Response struct {
	Code    int         `json:"code"`
	Message string      `json:"message"`
	Data    interface{} `json:"data,omitempty"`
	Details string      `json:"details,omitempty"`
}

// PageData 分页列表
type PageData struct {
	List       interface{} `json:"list"`
	Pagination Pagination  `json:"pagination"`
}

// Pagination total_pages 由 total 与 page_size 向上取整得到
type Pagination struct {
	Page       int   `json:"page"`
	PageSize   int   `json:"page_size"`
	Total      int64 `json:"total"`
	TotalPages int   `json:"total_pages"`
}

func success(c *gin.Context, status int, data interface{}) {
	c.JSON(status, Response{Code: codeOK, Message: "success", Data: data})
}

func OK(c *gin.Context, data interface{})      { success(c, http.StatusOK, data) }
func Created(c *gin.Context, data interface{}) { success(c, http.StatusCreated, data) }

// OKPage 返回一页数据及分页信息
func OKPage(c *gin.Context, list interface{}, total int64, page, pageSize int) {
	p := Pagination{Page: page, PageSize: pageSize, Total: total}
	if pageSize > 0 {
		p.TotalPages = int((total + int64(pageSize) - 1) / int64(pageSize))
	}
	success(c, http.StatusOK, PageData{List: list, Pagination: p})
}

// Error 写入错误信封并中止后续处理；details 最多取第一个
func Error(c *gin.Context, status, code int, message string, details ...string) {
	body := Response{Code: code, Message: message}
	if len(details) > 0 {
		body.Details = details[0]
	}
	c.AbortWithStatusJSON(status, body)
}

func BadRequest(c *gin.Context, code int, message string) {
	Error(c, http.StatusBadRequest, code, message)
}

func Unauthorized(c *gin.Context, code int, message string) {
	Error(c, http.StatusUnauthorized, code, message)
}

func Forbidden(c *gin.Context, code int, message string) {
	Error(c, http.StatusForbidden, code, message)
}

func NotFound(c *gin.Context, code int, message string) {
	Error(c, http.StatusNotFound, code, message)
}

func Conflict(c *gin.Context, code int, message string) {
	Error(c, http.StatusConflict, code, message)
}

// InternalError 不向调用方暴露底层错误
func InternalError(c *gin.Context) {
	Error(c, http.StatusInternalServerError, codeInternal, "服务器内部错误")
}
