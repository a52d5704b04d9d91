package provider

import (
	"time"

	"github.com/festipick/festipick/internal/authz"
	"github.com/festipick/festipick/internal/cache"
	"github.com/festipick/festipick/internal/config"
	"github.com/festipick/festipick/internal/logger"
	"github.com/festipick/festipick/internal/models"
	"github.com/festipick/festipick/internal/queue"
	"github.com/festipick/festipick/internal/repository"
	"github.com/festipick/festipick/internal/service"
)

// Container 依赖注入容器
type Container struct {
	Config        *config.Config
	QueueClient   *queue.Client
	VenueLocation *time.Location

	// Repositories
	AdminRepo           repository.AdminRepository
	UserRepo            repository.UserRepository
	BundleRepo          repository.BundleRepository
	OrderRepo           repository.OrderRepository
	PaymentRepo         repository.PaymentRepository
	OrderEventRepo      repository.OrderEventRepository
	NotificationLogRepo repository.NotificationLogRepository
	AuthzAuditLogRepo   repository.AuthzAuditLogRepository

	// Services
	AuthzService        *authz.Service
	AuthService         *service.AuthService
	EmailService        *service.EmailService
	NotificationService *service.NotificationService
	BundleService       *service.BundleService
	OrderService        *service.OrderService
	PaymentService      *service.PaymentService
	PickupTokenService  *service.PickupTokenService
	MaintenanceService  *service.MaintenanceService
	AuthzAuditService   *service.AuthzAuditService
}

// NewContainer 初始化容器
func NewContainer(cfg *config.Config) *Container {
	// 初始化缓存
	if err := cache.InitRedis(&cfg.Redis); err != nil {
		logger.Warnw("provider_init_redis_failed", "error", err)
	}

	// 初始化队列客户端
	var queueClient *queue.Client
	if cfg.Queue.Enabled {
		qc, err := queue.NewClient(&cfg.Queue)
		if err != nil {
			logger.Errorw("provider_init_queue_client_failed", "error", err)
		} else {
			queueClient = qc
		}
	}

	// 场馆时区是场次计算的唯一时间基准
	loc, err := time.LoadLocation(cfg.Batch.Timezone)
	if err != nil {
		logger.Warnw("provider_load_timezone_failed", "timezone", cfg.Batch.Timezone, "error", err)
		loc = time.UTC
	}

	c := &Container{
		Config:        cfg,
		QueueClient:   queueClient,
		VenueLocation: loc,
	}

	c.initRepositories()
	c.initServices()

	return c
}

func (c *Container) initRepositories() {
	db := models.DB
	c.AdminRepo = repository.NewAdminRepository(db)
	c.UserRepo = repository.NewUserRepository(db)
	c.BundleRepo = repository.NewBundleRepository(db)
	c.OrderRepo = repository.NewOrderRepository(db)
	c.PaymentRepo = repository.NewPaymentRepository(db)
	c.OrderEventRepo = repository.NewOrderEventRepository(db)
	c.NotificationLogRepo = repository.NewNotificationLogRepository(db)
	c.AuthzAuditLogRepo = repository.NewAuthzAuditLogRepository(db)
}

func (c *Container) initServices() {
	authzService, err := authz.NewService(models.DB)
	if err != nil {
		logger.Errorw("provider_init_authz_failed", "error", err)
		panic(err)
	}
	c.AuthzService = authzService
	if err := c.AuthzService.BootstrapBuiltinRoles(); err != nil {
		logger.Errorw("provider_bootstrap_builtin_roles_failed", "error", err)
		panic(err)
	}

	c.AuthService = service.NewAuthService(c.Config, c.AdminRepo)
	c.EmailService = service.NewEmailService(&c.Config.Email)
	c.NotificationService = service.NewNotificationService(c.OrderRepo, c.NotificationLogRepo, c.EmailService, c.QueueClient)
	c.BundleService = service.NewBundleService(c.BundleRepo)
	c.OrderService = service.NewOrderService(
		c.OrderRepo,
		c.PaymentRepo,
		c.BundleRepo,
		c.UserRepo,
		c.OrderEventRepo,
		c.NotificationLogRepo,
		c.NotificationService,
		c.VenueLocation,
		c.Config.Order.PaymentExpireHours,
	)
	c.PaymentService = service.NewPaymentService(
		c.OrderRepo,
		c.PaymentRepo,
		c.OrderEventRepo,
		c.NotificationLogRepo,
		c.NotificationService,
		c.OrderService,
	)
	c.PickupTokenService = service.NewPickupTokenService(
		c.OrderRepo,
		c.OrderEventRepo,
		c.NotificationLogRepo,
		c.NotificationService,
		c.Config.Pickup.VerifyBaseURL,
	)
	c.MaintenanceService = service.NewMaintenanceService(
		c.OrderRepo,
		c.NotificationLogRepo,
		c.NotificationService,
		c.OrderService,
		c.VenueLocation,
		c.Config.Order.ReminderAfterMinutes,
		c.Config.Order.DeadlineWarningHours,
	)
	c.AuthzAuditService = service.NewAuthzAuditService(c.AuthzAuditLogRepo)
}
