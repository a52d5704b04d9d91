package public

import (
	"errors"
	"strings"

	"github.com/festipick/festipick/internal/http/response"
	"github.com/festipick/festipick/internal/models"
	"github.com/festipick/festipick/internal/service"

	"github.com/gin-gonic/gin"
)

// CreateOrderRequest 下单请求
type CreateOrderRequest struct {
	Email       string                    `json:"email" binding:"required"`
	DisplayName string                    `json:"display_name"`
	Phone       string                    `json:"phone"`
	Note        string                    `json:"note"`
	Items       []service.CreateOrderItem `json:"items" binding:"required"`
}

// CreateOrder 顾客下单
func (h *Handler) CreateOrder(c *gin.Context) {
	var req CreateOrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, response.CodeBadRequest, "请求参数不合法", err)
		return
	}

	order, err := h.OrderService.CreateOrder(service.CreateOrderInput{
		Email:       req.Email,
		DisplayName: req.DisplayName,
		Phone:       req.Phone,
		Note:        req.Note,
		Items:       req.Items,
	})
	if err != nil {
		switch {
		case errors.Is(err, service.ErrInvalidOrderItem),
			errors.Is(err, service.ErrInvalidEmail),
			errors.Is(err, service.ErrBundleNotAvailable):
			respondError(c, response.CodeBadRequest, err.Error(), nil)
		case errors.Is(err, service.ErrUserDisabled):
			respondError(c, response.CodeForbidden, err.Error(), nil)
		default:
			respondError(c, response.CodeInternal, "订单创建失败", err)
		}
		return
	}

	requestLog(c).Infow("order_created",
		"order_id", order.ID,
		"order_no", order.OrderNo,
		"batch_id", order.BatchID,
	)
	response.Success(c, order)
}

// GetOrder 按单号查询订单，需携带下单邮箱验证归属
func (h *Handler) GetOrder(c *gin.Context) {
	orderNo := strings.TrimSpace(c.Param("order_no"))
	email := strings.ToLower(strings.TrimSpace(c.Query("email")))
	if orderNo == "" || email == "" {
		respondError(c, response.CodeBadRequest, "请求参数不合法", nil)
		return
	}

	order, err := h.lookupOrder(orderNo, email)
	if err != nil {
		respondOrderLookupError(c, err)
		return
	}

	response.Success(c, order)
}

// SubmitPaymentProofRequest 支付凭证提交请求
type SubmitPaymentProofRequest struct {
	Email    string `json:"email" binding:"required"`
	ProofURL string `json:"proof_url" binding:"required"`
}

// SubmitPaymentProof 顾客提交转账凭证
func (h *Handler) SubmitPaymentProof(c *gin.Context) {
	orderNo := strings.TrimSpace(c.Param("order_no"))
	if orderNo == "" {
		respondError(c, response.CodeBadRequest, "请求参数不合法", nil)
		return
	}

	var req SubmitPaymentProofRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, response.CodeBadRequest, "请求参数不合法", err)
		return
	}

	if _, err := h.lookupOrder(orderNo, strings.ToLower(strings.TrimSpace(req.Email))); err != nil {
		respondOrderLookupError(c, err)
		return
	}

	payment, err := h.PaymentService.SubmitProof(orderNo, req.ProofURL)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrPaymentNotFound):
			respondError(c, response.CodeNotFound, err.Error(), nil)
		case errors.Is(err, service.ErrPaymentStatusInvalid),
			errors.Is(err, service.ErrPaymentProofRequired):
			respondError(c, response.CodeBadRequest, err.Error(), nil)
		default:
			respondError(c, response.CodeInternal, "凭证提交失败", err)
		}
		return
	}

	requestLog(c).Infow("payment_proof_submitted",
		"order_no", orderNo,
		"payment_id", payment.ID,
	)
	response.Success(c, payment)
}

// lookupOrder 校验单号与邮箱归属，归属不符时按不存在处理
func (h *Handler) lookupOrder(orderNo, email string) (*models.Order, error) {
	order, err := h.OrderService.GetOrderByNo(orderNo)
	if err != nil {
		return nil, err
	}
	if order.User == nil || !strings.EqualFold(order.User.Email, email) {
		return nil, service.ErrOrderNotFound
	}
	return order, nil
}

func respondOrderLookupError(c *gin.Context, err error) {
	if errors.Is(err, service.ErrOrderNotFound) {
		respondError(c, response.CodeNotFound, err.Error(), nil)
		return
	}
	respondError(c, response.CodeInternal, "订单查询失败", err)
}
