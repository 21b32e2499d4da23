package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"garage/backend/config"
	"garage/backend/internal/api/handler"
	"garage/backend/internal/api/router"
	"garage/backend/internal/api/validation"
	"garage/backend/internal/events"
	"garage/backend/internal/realtime"
	"garage/backend/internal/repository"
	"garage/backend/internal/service"
	"garage/backend/pkg/database"
	"garage/backend/pkg/jwt"
	"garage/backend/pkg/kafka"
	applogger "garage/backend/pkg/logger"
	"garage/backend/pkg/redis"
)

func main() {
	// 0. 本地开发读取 .env，文件不存在时忽略
	_ = godotenv.Load()

	// 1. 加载配置
	cfg, err := config.Load(os.Getenv("GARAGE_CONFIG"))
	if err != nil {
		fmt.Fprintf(os.Stderr, "加载配置失败: %v\n", err)
		os.Exit(1)
	}

	// 2. 初始化日志
	logger, err := applogger.NewLogger(&cfg.Log)
	if err != nil {
		fmt.Fprintf(os.Stderr, "初始化日志失败: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	logger.Info("应用启动中...",
		zap.Int("port", cfg.Server.Port),
		zap.String("log_level", cfg.Log.Level),
		zap.String("shop_timezone", cfg.Shop.Timezone),
	)

	if err := validation.Register(); err != nil {
		logger.Fatal("注册参数校验规则失败", zap.Error(err))
	}

	// 3. 连接数据库并执行迁移
	db, err := database.NewDB(&cfg.Database, cfg.Log.Level, logger)
	if err != nil {
		logger.Fatal("数据库连接失败", zap.Error(err))
	}
	logger.Info("数据库连接成功")

	sqlDB, err := db.DB()
	if err != nil {
		logger.Fatal("获取底层 sql.DB 失败", zap.Error(err))
	}
	if err := database.RunMigrations(sqlDB, logger); err != nil {
		logger.Fatal("数据库迁移失败", zap.Error(err))
	}

	// 4. 连接 Redis（可选：失败时降级为单实例模式，黑名单与限流不可用）
	rdb, err := redis.NewClient(&cfg.Redis, logger)
	if err != nil {
		logger.Warn("Redis 连接失败，Token 黑名单、限流与跨实例推送将不可用", zap.Error(err))
		rdb = nil
	}

	bgCtx, stopBackground := context.WithCancel(context.Background())
	defer stopBackground()

	// 5. 实时推送
	var (
		hub    *realtime.Hub
		pusher realtime.Pusher
	)
	if cfg.Feature.RealtimePush {
		hub = realtime.NewHub(32, logger)
		if rdb != nil {
			pusher = realtime.NewRedisPusher(rdb)
			go realtime.RunRedisRelay(bgCtx, rdb, hub, logger)
		} else {
			pusher = realtime.NewLocalPusher(hub)
		}
	}

	// 6. 领域事件
	var (
		publisher events.Publisher = events.NopPublisher{}
		producer  *kafka.Producer
	)
	if cfg.Kafka.Enabled {
		producer = kafka.NewProducer(&cfg.Kafka, logger)
		producer.Start(bgCtx)
		publisher = events.NewKafkaPublisher(producer)
		logger.Info("领域事件投递已启用", zap.Strings("brokers", cfg.Kafka.Brokers), zap.String("topic", cfg.Kafka.Topic))
	}

	// 7. 依赖注入: Repository → Service → Handler
	jwtMgr := jwt.NewManager(&cfg.Auth)
	repo := repository.NewRepository(db)
	svc := service.NewService(cfg, repo, pusher, publisher, logger)
	h := handler.NewHandler(svc, rdb, hub, logger)

	// 8. 初始化路由
	engine := router.Setup(cfg, h, jwtMgr, rdb, logger)

	// 9. 启动 HTTP 服务器（优雅关闭）
	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:           engine,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      0, // 通知 SSE 为长连接
		IdleTimeout:       60 * time.Second,
	}

	go func() {
		logger.Info("HTTP 服务器已启动", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("HTTP 服务器异常", zap.Error(err))
		}
	}()

	// 10. 监听系统信号，优雅关闭
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	sig := <-quit

	logger.Info("收到关闭信号，开始优雅关闭...", zap.String("signal", sig.String()))

	// 先断开 SSE 长连接，否则 Shutdown 会一直等待
	if hub != nil {
		hub.Shutdown()
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logger.Error("服务器关闭异常", zap.Error(err))
	}

	// 停止 Redis 转发，Kafka 投递完缓冲区后退出
	stopBackground()
	if producer != nil {
		producer.WaitClosed()
	}

	if closeDB, _ := db.DB(); closeDB != nil {
		closeDB.Close()
	}

	if rdb != nil {
		rdb.Close()
	}

	logger.Info("服务器已关闭")
}
