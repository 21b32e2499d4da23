package middleware

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"garage/backend/config"
	"garage/backend/pkg/jwt"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func newTestJWT() *jwt.Manager {
	return jwt.NewManager(&config.AuthConfig{
		JWTSecret:      "test-secret-0123456789",
		Issuer:         "garage-auth",
		AccessTokenTTL: 15 * time.Minute,
	})
}

func serve(r *gin.Engine, req *http.Request) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

// ── JWTAuth / RoleAuth ──

func TestJWTAuth(t *testing.T) {
	mgr := newTestJWT()
	token, err := mgr.GenerateAccessToken("mech-1", "mechanic")
	if err != nil {
		t.Fatalf("生成 Token 失败: %v", err)
	}

	r := gin.New()
	r.GET("/me", JWTAuth(mgr, nil, zap.NewNop()), func(c *gin.Context) {
		if _, ok := c.Get(CtxTokenExp); !ok {
			t.Error("应注入 token_exp")
		}
		c.String(http.StatusOK, c.GetString(CtxUserID)+"|"+c.GetString(CtxRole)+"|"+c.GetString(CtxTokenJTI))
	})

	tests := []struct {
		name   string
		header string
		want   int
	}{
		{"缺少认证头", "", http.StatusUnauthorized},
		{"格式错误", "Token " + token, http.StatusUnauthorized},
		{"签名无效", "Bearer " + token + "x", http.StatusUnauthorized},
		{"合法", "Bearer " + token, http.StatusOK},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/me", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			w := serve(r, req)
			if w.Code != tt.want {
				t.Fatalf("期望 %d，实际 %d", tt.want, w.Code)
			}
			if tt.want == http.StatusOK {
				parts := strings.Split(w.Body.String(), "|")
				if parts[0] != "mech-1" || parts[1] != "mechanic" || parts[2] == "" {
					t.Errorf("上下文注入错误: %s", w.Body.String())
				}
			}
		})
	}
}

func TestRoleAuth(t *testing.T) {
	r := gin.New()
	r.GET("/admin", func(c *gin.Context) {
		if role := c.GetHeader("X-Test-Role"); role != "" {
			c.Set(CtxRole, role)
		}
		c.Next()
	}, RoleAuth("admin", "mechanic"), func(c *gin.Context) {
		c.Status(http.StatusOK)
	})

	for role, want := range map[string]int{
		"admin":    http.StatusOK,
		"mechanic": http.StatusOK,
		"client":   http.StatusForbidden,
		"":         http.StatusUnauthorized,
	} {
		req := httptest.NewRequest(http.MethodGet, "/admin", nil)
		if role != "" {
			req.Header.Set("X-Test-Role", role)
		}
		if w := serve(r, req); w.Code != want {
			t.Errorf("角色 %q 期望 %d，实际 %d", role, want, w.Code)
		}
	}
}

// ── RequestID ──

func TestRequestID(t *testing.T) {
	r := gin.New()
	r.Use(RequestID())
	r.GET("/", func(c *gin.Context) { c.String(http.StatusOK, c.GetString(requestIDKey)) })

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("X-Request-ID", "abc-123")
	if w := serve(r, req); w.Header().Get("X-Request-ID") != "abc-123" || w.Body.String() != "abc-123" {
		t.Errorf("合法的外部 ID 应透传，实际 %q", w.Header().Get("X-Request-ID"))
	}

	req = httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("X-Request-ID", "bad id\nwith newline")
	w := serve(r, req)
	if got := w.Header().Get("X-Request-ID"); got == "" || strings.Contains(got, " ") {
		t.Errorf("非法 ID 应被替换，实际 %q", got)
	}
}

// ── BodyLimit ──

func TestBodyLimit(t *testing.T) {
	r := gin.New()
	r.Use(BodyLimit(16))
	r.POST("/", func(c *gin.Context) {
		var body map[string]string
		if err := c.ShouldBindJSON(&body); err != nil {
			_ = c.Error(err)
			return
		}
		c.Status(http.StatusOK)
	})

	small := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"a":"b"}`))
	small.Header.Set("Content-Type", "application/json")
	if w := serve(r, small); w.Code != http.StatusOK {
		t.Errorf("小请求期望 200，实际 %d", w.Code)
	}

	big := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"a":"`+strings.Repeat("x", 64)+`"}`))
	big.Header.Set("Content-Type", "application/json")
	if w := serve(r, big); w.Code != http.StatusRequestEntityTooLarge {
		t.Errorf("超限请求期望 413，实际 %d", w.Code)
	}
}

// ── CORS / SecurityHeaders ──

func TestCORS(t *testing.T) {
	r := gin.New()
	r.Use(CORS([]string{"http://localhost:5173/"}))
	r.GET("/", func(c *gin.Context) { c.Status(http.StatusOK) })

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Origin", "http://localhost:5173")
	w := serve(r, req)
	if w.Header().Get("Access-Control-Allow-Origin") != "http://localhost:5173" {
		t.Error("白名单来源应回写 Allow-Origin")
	}

	req = httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Origin", "http://evil.example")
	if w := serve(r, req); w.Header().Get("Access-Control-Allow-Origin") != "" {
		t.Error("非白名单来源不应回写 Allow-Origin")
	}

	req = httptest.NewRequest(http.MethodOptions, "/", nil)
	if w := serve(r, req); w.Code != http.StatusNoContent {
		t.Errorf("预检请求期望 204，实际 %d", w.Code)
	}
}

func TestSecurityHeaders(t *testing.T) {
	r := gin.New()
	r.Use(SecurityHeaders())
	r.GET("/", func(c *gin.Context) { c.Status(http.StatusOK) })

	w := serve(r, httptest.NewRequest(http.MethodGet, "/", nil))
	if w.Header().Get("X-Content-Type-Options") != "nosniff" || w.Header().Get("X-Frame-Options") != "DENY" {
		t.Errorf("缺少安全响应头: %v", w.Header())
	}
}

func TestRateLimit_NoRedisPassesThrough(t *testing.T) {
	r := gin.New()
	r.POST("/appointments", RateLimit(nil, 1, time.Minute, zap.NewNop()), func(c *gin.Context) {
		c.Status(http.StatusCreated)
	})

	for i := 0; i < 3; i++ {
		if w := serve(r, httptest.NewRequest(http.MethodPost, "/appointments", nil)); w.Code != http.StatusCreated {
			t.Fatalf("未配置 Redis 时应放行，第 %d 次得到 %d", i+1, w.Code)
		}
	}
}
