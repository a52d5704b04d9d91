package service

import (
	"crypto/rand"
	"encoding/base64"
	"strings"
	"time"

	"github.com/festipick/festipick/internal/constants"
	"github.com/festipick/festipick/internal/logger"
	"github.com/festipick/festipick/internal/models"
	"github.com/festipick/festipick/internal/repository"

	"gorm.io/gorm"
)

const pickupTokenBytes = 24

// PickupTokenService 取货码核销服务
type PickupTokenService struct {
	orderRepo        repository.OrderRepository
	eventRepo        repository.OrderEventRepository
	notificationRepo repository.NotificationLogRepository
	notificationSvc  *NotificationService
	verifyBaseURL    string
}

// NewPickupTokenService 创建取货码服务
func NewPickupTokenService(
	orderRepo repository.OrderRepository,
	eventRepo repository.OrderEventRepository,
	notificationRepo repository.NotificationLogRepository,
	notificationSvc *NotificationService,
	verifyBaseURL string,
) *PickupTokenService {
	return &PickupTokenService{
		orderRepo:        orderRepo,
		eventRepo:        eventRepo,
		notificationRepo: notificationRepo,
		notificationSvc:  notificationSvc,
		verifyBaseURL:    strings.TrimRight(strings.TrimSpace(verifyBaseURL), "/"),
	}
}

// RedemptionURL 生成取货码核销链接，未配置基础地址时返回空串
func (s *PickupTokenService) RedemptionURL(token string) string {
	if s.verifyBaseURL == "" || strings.TrimSpace(token) == "" {
		return ""
	}
	return s.verifyBaseURL + "/" + token
}

// Verify 核销取货码并完成订单
//
// 核销通过单条条件更新完成，两个并发请求最多只有一个成功。
func (s *PickupTokenService) Verify(token string) (*models.Order, error) {
	token = strings.TrimSpace(token)
	if !isPickupTokenWellFormed(token) {
		return nil, ErrTokenInvalid
	}

	now := time.Now()
	var order *models.Order
	var log *models.NotificationLog
	err := models.DB.Transaction(func(tx *gorm.DB) error {
		orderRepo := s.orderRepo.WithTx(tx)
		affected, err := orderRepo.RedeemPickupToken(token, now)
		if err != nil {
			return err
		}
		if affected == 0 {
			return s.classifyRedeemFailure(tx, token)
		}

		order, err = orderRepo.GetByPickupToken(token)
		if err != nil {
			return err
		}
		if order == nil {
			return ErrTokenNotFound
		}

		event := &models.OrderEvent{
			OrderID:    order.ID,
			Actor:      constants.ActorPickupDesk,
			Action:     constants.OrderEventCompleted,
			FromStatus: constants.OrderStatusReady,
			ToStatus:   constants.OrderStatusCompleted,
		}
		if err := s.eventRepo.WithTx(tx).Create(event); err != nil {
			return err
		}

		log = &models.NotificationLog{
			OrderID:  order.ID,
			UserID:   order.UserID,
			Category: constants.NotificationOrderCompleted,
			Channel:  "email",
		}
		return s.notificationRepo.WithTx(tx).Create(log)
	})
	if err != nil {
		switch err {
		case ErrTokenNotFound, ErrOrderNotReady, ErrAlreadyRedeemed:
			return nil, err
		}
		logger.Errorw("pickup_token_verify_failed", "error", err)
		return nil, ErrOrderUpdateFailed
	}

	s.notificationSvc.Enqueue(log)
	return order, nil
}

// classifyRedeemFailure 核销失败时重读订单以区分失败原因
func (s *PickupTokenService) classifyRedeemFailure(tx *gorm.DB, token string) error {
	order, err := s.orderRepo.WithTx(tx).GetByPickupToken(token)
	if err != nil {
		return err
	}
	if order == nil {
		return ErrTokenNotFound
	}
	if order.PickupStatus == constants.PickupStatusPickedUp {
		return ErrAlreadyRedeemed
	}
	return ErrOrderNotReady
}

// generatePickupToken 生成 URL 安全的随机取货码
func generatePickupToken() (string, error) {
	buf := make([]byte, pickupTokenBytes)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(buf), nil
}

func isPickupTokenWellFormed(token string) bool {
	if token == "" || len(token) > 128 {
		return false
	}
	for _, r := range token {
		switch {
		case r >= 'a' && r <= 'z':
		case r >= 'A' && r <= 'Z':
		case r >= '0' && r <= '9':
		case r == '-' || r == '_':
		default:
			return false
		}
	}
	return true
}
