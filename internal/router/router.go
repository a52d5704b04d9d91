package router

import (
	"fmt"
	"sort"
	"strings"

	"github.com/festipick/festipick/internal/authz"
	"github.com/festipick/festipick/internal/cache"
	"github.com/festipick/festipick/internal/config"
	adminhandlers "github.com/festipick/festipick/internal/http/handlers/admin"
	publichandlers "github.com/festipick/festipick/internal/http/handlers/public"
	"github.com/festipick/festipick/internal/http/response"
	"github.com/festipick/festipick/internal/logger"
	"github.com/festipick/festipick/internal/provider"

	"github.com/gin-gonic/gin"
)

// SetupRouter 初始化路由
func SetupRouter(cfg *config.Config, c *provider.Container) *gin.Engine {
	log := logger.L
	if log == nil {
		log = logger.Init(cfg.Server.Mode, cfg.Log.ToLoggerOptions())
	}
	r := gin.New()

	// 初始化 Handler（按前台/后台分组）
	publicHandler := publichandlers.New(c)
	adminHandler := adminhandlers.New(c)
	redisPrefix := strings.TrimSpace(cfg.Redis.Prefix)
	if redisPrefix == "" {
		redisPrefix = "fp"
	}
	redisClient := cache.Client()
	adminLoginRule := RateLimitRule{
		Prefix:        fmt.Sprintf("%s:rate:admin_login", redisPrefix),
		WindowSeconds: cfg.Security.LoginRateLimit.WindowSeconds,
		MaxRequests:   cfg.Security.LoginRateLimit.MaxAttempts,
		BlockSeconds:  cfg.Security.LoginRateLimit.BlockSeconds,
		Message:       "登录尝试过于频繁，请 %d 秒后重试",
	}
	createOrderRule := RateLimitRule{
		Prefix:        fmt.Sprintf("%s:rate:create_order", redisPrefix),
		WindowSeconds: 60,
		MaxRequests:   10,
		Message:       "下单过于频繁，请 %d 秒后重试",
	}

	// 中间件
	r.Use(gin.Recovery())
	r.Use(RequestIDMiddleware())
	r.Use(LoggerMiddleware(log))
	r.Use(CORSMiddleware(cfg.CORS))

	// API 路由组
	apiV1 := r.Group("/api/v1")
	{
		// 公开接口
		public := apiV1.Group("/public")
		{
			public.GET("/bundles", publicHandler.ListBundles)
			public.GET("/batches/current", publicHandler.GetCurrentBatch)
			public.POST("/orders", RateLimitMiddleware(redisClient, createOrderRule, KeyByIPAndJSONField("email")), publicHandler.CreateOrder)
			public.GET("/orders/:order_no", publicHandler.GetOrder)
			public.POST("/orders/:order_no/payment-proof", publicHandler.SubmitPaymentProof)
			public.GET("/pickup/verify/:token", publicHandler.VerifyPickupToken)
		}

		// 定时任务入口（共享密钥鉴权）
		cron := apiV1.Group("/cron")
		cron.Use(CronAuthMiddleware(cfg.Cron))
		{
			cron.POST("/maintenance", publicHandler.RunMaintenance)
		}

		// 管理员接口
		admin := apiV1.Group("/admin")
		{
			// 登录接口（无需鉴权）
			admin.POST("/login", RateLimitMiddleware(redisClient, adminLoginRule, KeyByIP), adminHandler.AdminLogin)

			// 需要鉴权的接口
			authorized := admin.Use(JWTAuthMiddleware(cfg.JWT.SecretKey, c.AdminRepo), AdminRBACMiddleware(c.AuthzService))
			{
				authorized.PUT("/password", adminHandler.UpdateAdminPassword)

				// 订单生命周期
				authorized.GET("/orders", adminHandler.AdminListOrders)
				authorized.GET("/orders/:id", adminHandler.AdminGetOrder)
				authorized.POST("/orders/:id/confirm", adminHandler.AdminConfirmOrder)
				authorized.POST("/orders/:id/start-preparation", adminHandler.AdminStartPreparation)
				authorized.POST("/orders/:id/mark-delayed", adminHandler.AdminMarkDelayed)
				authorized.POST("/orders/:id/mark-ready", adminHandler.AdminMarkReady)
				authorized.POST("/orders/:id/cancel", adminHandler.AdminCancelOrder)

				// 支付记录
				authorized.GET("/payments", adminHandler.AdminListPayments)
				authorized.GET("/payments/:id", adminHandler.AdminGetPayment)
				authorized.POST("/payments/:id/mark-paid", adminHandler.AdminMarkPaid)
				authorized.POST("/payments/:id/mark-failed", adminHandler.AdminMarkFailed)
				authorized.POST("/payments/:id/refund", adminHandler.AdminRefund)

				// 套餐管理
				authorized.GET("/bundles", adminHandler.AdminListBundles)
				authorized.GET("/bundles/:id", adminHandler.AdminGetBundle)
				authorized.POST("/bundles", adminHandler.AdminCreateBundle)
				authorized.PUT("/bundles/:id", adminHandler.AdminUpdateBundle)

				// 顾客管理
				authorized.GET("/users", adminHandler.AdminListUsers)
				authorized.PUT("/users/:id/status", adminHandler.AdminUpdateUserStatus)

				// 权限管理
				authorized.GET("/authz/me", adminHandler.GetAuthzMe)
				authorized.GET("/authz/roles", adminHandler.ListAuthzRoles)
				authorized.GET("/authz/admins", adminHandler.ListAuthzAdmins)
				authorized.GET("/authz/audit-logs", adminHandler.ListAuthzAuditLogs)
				authorized.POST("/authz/admins", adminHandler.CreateAuthzAdmin)
				authorized.PUT("/authz/admins/:id", adminHandler.UpdateAuthzAdmin)
				authorized.DELETE("/authz/admins/:id", adminHandler.DeleteAuthzAdmin)
				authorized.GET("/authz/permissions/catalog", func(ctx *gin.Context) {
					response.Success(ctx, buildAdminPermissionCatalog(r))
				})
				authorized.POST("/authz/roles", adminHandler.CreateAuthzRole)
				authorized.DELETE("/authz/roles/:role", adminHandler.DeleteAuthzRole)
				authorized.GET("/authz/roles/:role/policies", adminHandler.GetAuthzRolePolicies)
				authorized.POST("/authz/policies", adminHandler.GrantAuthzPolicy)
				authorized.DELETE("/authz/policies", adminHandler.RevokeAuthzPolicy)
				authorized.GET("/authz/admins/:id/roles", adminHandler.GetAuthzAdminRoles)
				authorized.PUT("/authz/admins/:id/roles", adminHandler.SetAuthzAdminRoles)
			}
		}
	}

	// 健康检查
	r.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "ok"})
	})

	return r
}

type adminPermissionCatalogItem struct {
	Module     string `json:"module"`
	Method     string `json:"method"`
	Object     string `json:"object"`
	Permission string `json:"permission"`
}

func buildAdminPermissionCatalog(engine *gin.Engine) []adminPermissionCatalogItem {
	if engine == nil {
		return []adminPermissionCatalogItem{}
	}

	routes := engine.Routes()
	seen := make(map[string]struct{}, len(routes))
	items := make([]adminPermissionCatalogItem, 0, len(routes))

	for _, item := range routes {
		method := strings.ToUpper(strings.TrimSpace(item.Method))
		if method == "" || method == "OPTIONS" || method == "HEAD" {
			continue
		}
		if !strings.HasPrefix(item.Path, "/api/v1/admin/") {
			continue
		}
		if item.Path == "/api/v1/admin/login" {
			continue
		}
		object := authz.NormalizeObject(item.Path)
		permission := method + ":" + object
		if _, exists := seen[permission]; exists {
			continue
		}
		seen[permission] = struct{}{}
		items = append(items, adminPermissionCatalogItem{
			Module:     deriveAdminPermissionModule(object),
			Method:     method,
			Object:     object,
			Permission: permission,
		})
	}

	sort.Slice(items, func(i, j int) bool {
		if items[i].Module == items[j].Module {
			if items[i].Object == items[j].Object {
				return items[i].Method < items[j].Method
			}
			return items[i].Object < items[j].Object
		}
		return items[i].Module < items[j].Module
	})

	return items
}

func deriveAdminPermissionModule(object string) string {
	normalized := strings.TrimPrefix(strings.TrimSpace(object), "/")
	if normalized == "" {
		return "system"
	}
	segments := strings.Split(normalized, "/")
	if len(segments) <= 1 {
		return segments[0]
	}
	if segments[0] != "admin" {
		return segments[0]
	}
	if segments[1] == "authz" {
		return "authz"
	}
	return segments[1]
}
