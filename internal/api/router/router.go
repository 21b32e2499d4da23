package router

import (
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"garage/backend/config"
	"garage/backend/internal/api/handler"
	"garage/backend/internal/api/middleware"
	"garage/backend/pkg/jwt"
	"garage/backend/pkg/redis"
)

// 角色
const (
	roleAdmin    = "admin"
	roleMechanic = "mechanic"
	roleClient   = "client"
)

// Setup 初始化并返回 Gin 路由引擎，rdb 为 nil 时黑名单与限流降级为放行
func Setup(cfg *config.Config, h *handler.Handler, jwtMgr *jwt.Manager, rdb *redis.Client, logger *zap.Logger) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)

	r := gin.New()

	// ── 全局中间件 ──
	r.Use(gin.Recovery())
	r.Use(middleware.RequestID())
	r.Use(middleware.Logger(logger))
	r.Use(middleware.SecurityHeaders())
	r.Use(middleware.CORS(cfg.Server.CORS.AllowOrigins))
	r.Use(middleware.BodyLimit(cfg.Server.BodyLimit))

	// ── 健康检查 ──
	r.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "ok"})
	})

	// ── API v1（全部需要认证）──
	v1 := r.Group("/api/v1")
	v1.Use(middleware.JWTAuth(jwtMgr, rdb, logger))
	{
		v1.POST("/auth/logout", h.Auth.Logout)

		users := v1.Group("/users")
		{
			users.GET("/me", h.User.GetCurrentUser)
			users.GET("/mechanics", h.User.ListMechanics)
		}

		// 车辆
		vehicles := v1.Group("/vehicles")
		{
			vehicles.POST("", middleware.RoleAuth(roleClient), h.Vehicle.Register)
			vehicles.GET("/mine", middleware.RoleAuth(roleClient), h.Vehicle.ListMine)
			vehicles.GET("/:id", h.Vehicle.GetVehicle) // 本人/技师/管理员（Service 层鉴权）
		}

		// 技师排班
		schedules := v1.Group("/schedules")
		{
			schedules.POST("", middleware.RoleAuth(roleMechanic), h.Schedule.CreateSchedule)
			schedules.GET("/available", h.Schedule.ListAvailable)
			schedules.GET("/mechanic/:mechanicId", h.Schedule.ListByMechanic)
			schedules.GET("/:id", h.Schedule.GetSchedule)
			schedules.PUT("/:id", middleware.RoleAuth(roleMechanic), h.Schedule.UpdateSchedule)
			schedules.DELETE("/:id", middleware.RoleAuth(roleMechanic), h.Schedule.DeleteSchedule)
		}

		// 预约
		appointments := v1.Group("/appointments")
		{
			appointments.POST("",
				middleware.RoleAuth(roleClient),
				middleware.RateLimit(rdb, cfg.RateLimit.BookingLimit, cfg.RateLimit.BookingWindow, logger),
				h.Appointment.CreateAppointment,
			)
			appointments.GET("/client", middleware.RoleAuth(roleClient), h.Appointment.ListMineAsClient)
			appointments.GET("/mechanic", middleware.RoleAuth(roleMechanic), h.Appointment.ListMineAsMechanic)
			appointments.GET("/:id", h.Appointment.GetAppointment)
			appointments.PATCH("/:id/accept", middleware.RoleAuth(roleMechanic), h.Appointment.Accept)
			appointments.PATCH("/:id/reject", middleware.RoleAuth(roleMechanic), h.Appointment.Reject)
			appointments.PATCH("/:id/status", middleware.RoleAuth(roleMechanic), h.Appointment.UpdateStatus)
			appointments.DELETE("/:id", middleware.RoleAuth(roleClient), h.Appointment.Cancel)
		}

		// 工单
		workOrders := v1.Group("/work-orders")
		{
			workOrders.POST("", middleware.RoleAuth(roleMechanic), h.WorkOrder.CreateWorkOrder)
			workOrders.GET("", h.WorkOrder.ListWorkOrders)
			workOrders.PATCH("/items/:itemId/approve", middleware.RoleAuth(roleClient), h.WorkOrder.ApproveItem)
			workOrders.GET("/:id", h.WorkOrder.GetWorkOrder)
			workOrders.PATCH("/:id/status", middleware.RoleAuth(roleMechanic), h.WorkOrder.UpdateStatus)
			workOrders.POST("/:id/items", middleware.RoleAuth(roleMechanic), h.WorkOrder.AddItems)
			workOrders.POST("/:id/notes", middleware.RoleAuth(roleClient, roleMechanic), h.WorkOrder.AddNote)
		}

		// 库存
		inventory := v1.Group("/inventory")
		inventory.Use(middleware.RoleAuth(roleAdmin, roleMechanic))
		{
			inventory.GET("", h.Inventory.ListItems)
			inventory.GET("/low-stock", h.Inventory.ListLowStock)
			inventory.GET("/:id", h.Inventory.GetItem)
			inventory.POST("", middleware.RoleAuth(roleAdmin), h.Inventory.CreateItem)
			inventory.PUT("/:id", middleware.RoleAuth(roleAdmin), h.Inventory.UpdateItem)
			inventory.DELETE("/:id", middleware.RoleAuth(roleAdmin), h.Inventory.DeleteItem)
			inventory.PATCH("/:id/stock", middleware.RoleAuth(roleAdmin), h.Inventory.UpdateStock)
		}

		// 通知
		notifications := v1.Group("/notifications")
		{
			notifications.GET("", h.Notification.ListNotifications)
			notifications.GET("/unread-count", h.Notification.UnreadCount)
			notifications.GET("/stream", h.Notification.Stream)
			notifications.PATCH("/read-all", h.Notification.MarkAllAsRead)
			notifications.PATCH("/:id/read", h.Notification.MarkAsRead)
			notifications.DELETE("/:id", h.Notification.DeleteNotification)
		}

		// 导出
		export := v1.Group("/export")
		{
			export.GET("/inventory", middleware.RoleAuth(roleAdmin), h.Export.ExportInventory)
			export.GET("/calendar", middleware.RoleAuth(roleMechanic), h.Export.ExportCalendar)
		}
	}

	return r
}
