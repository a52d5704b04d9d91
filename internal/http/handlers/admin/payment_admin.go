package admin

import (
	"errors"
	"io"
	"strconv"
	"strings"

	"github.com/festipick/festipick/internal/http/response"
	"github.com/festipick/festipick/internal/repository"
	"github.com/festipick/festipick/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
)

// AdminListPayments 管理端支付记录列表
func (h *Handler) AdminListPayments(c *gin.Context) {
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	pageSize, _ := strconv.Atoi(c.DefaultQuery("page_size", "20"))
	page, pageSize = normalizePagination(page, pageSize)

	status := strings.TrimSpace(c.Query("status"))
	orderIDRaw := strings.TrimSpace(c.Query("order_id"))

	createdFrom, err := parseTimeNullable(strings.TrimSpace(c.Query("created_from")))
	if err != nil {
		respondError(c, response.CodeBadRequest, "时间参数不合法", err)
		return
	}
	createdTo, err := parseTimeNullable(strings.TrimSpace(c.Query("created_to")))
	if err != nil {
		respondError(c, response.CodeBadRequest, "时间参数不合法", err)
		return
	}

	var orderID uint
	if orderIDRaw != "" {
		if parsed, parseErr := strconv.ParseUint(orderIDRaw, 10, 64); parseErr == nil {
			orderID = uint(parsed)
		}
	}

	payments, total, err := h.PaymentService.ListPayments(repository.PaymentListFilter{
		Page:        page,
		PageSize:    pageSize,
		OrderID:     orderID,
		Status:      status,
		CreatedFrom: createdFrom,
		CreatedTo:   createdTo,
	})
	if err != nil {
		respondError(c, response.CodeInternal, "支付记录查询失败", err)
		return
	}

	response.SuccessWithPage(c, payments, response.Pagination{
		Page:      page,
		PageSize:  pageSize,
		Total:     total,
		TotalPage: (total + int64(pageSize) - 1) / int64(pageSize),
	})
}

// AdminGetPayment 管理端支付记录详情
func (h *Handler) AdminGetPayment(c *gin.Context) {
	paymentID, ok := parsePaymentIDParam(c)
	if !ok {
		return
	}

	payment, err := h.PaymentService.GetPayment(paymentID)
	if err != nil {
		respondPaymentError(c, err)
		return
	}

	response.Success(c, payment)
}

// AdminMarkPaidRequest 确认到账请求
type AdminMarkPaidRequest struct {
	Method string `json:"method"`
}

// AdminMarkPaid 人工确认支付到账
func (h *Handler) AdminMarkPaid(c *gin.Context) {
	paymentID, ok := parsePaymentIDParam(c)
	if !ok {
		return
	}
	adminID, ok := getAdminID(c)
	if !ok {
		return
	}

	var req AdminMarkPaidRequest
	if err := c.ShouldBindJSON(&req); err != nil && !errors.Is(err, io.EOF) {
		respondError(c, response.CodeBadRequest, "请求参数不合法", err)
		return
	}

	payment, err := h.PaymentService.MarkPaid(paymentID, adminID, strings.TrimSpace(req.Method))
	if err != nil {
		respondPaymentError(c, err)
		return
	}

	requestLog(c).Infow("admin_payment_marked_paid",
		"admin_id", adminID,
		"payment_id", payment.ID,
		"order_id", payment.OrderID,
	)
	response.Success(c, payment)
}

// AdminMarkFailedRequest 标记支付失败请求
type AdminMarkFailedRequest struct {
	Reason string `json:"reason" binding:"required"`
}

// AdminMarkFailed 标记支付失败，未支付订单随之取消
func (h *Handler) AdminMarkFailed(c *gin.Context) {
	paymentID, ok := parsePaymentIDParam(c)
	if !ok {
		return
	}
	adminID, ok := getAdminID(c)
	if !ok {
		return
	}

	var req AdminMarkFailedRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, response.CodeBadRequest, "必须填写失败原因", err)
		return
	}

	payment, err := h.PaymentService.MarkFailed(paymentID, adminID, req.Reason)
	if err != nil {
		respondPaymentError(c, err)
		return
	}

	requestLog(c).Infow("admin_payment_marked_failed",
		"admin_id", adminID,
		"payment_id", payment.ID,
		"order_id", payment.OrderID,
		"reason", req.Reason,
	)
	response.Success(c, payment)
}

// AdminRefundRequest 退款请求
type AdminRefundRequest struct {
	Amount    decimal.Decimal `json:"amount" binding:"required"`
	Reason    string          `json:"reason" binding:"required"`
	Reference string          `json:"reference"`
}

// AdminRefund 记录退款
func (h *Handler) AdminRefund(c *gin.Context) {
	paymentID, ok := parsePaymentIDParam(c)
	if !ok {
		return
	}
	adminID, ok := getAdminID(c)
	if !ok {
		return
	}

	var req AdminRefundRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, response.CodeBadRequest, "请求参数不合法", err)
		return
	}

	payment, err := h.PaymentService.Refund(paymentID, adminID, req.Amount, req.Reason, strings.TrimSpace(req.Reference))
	if err != nil {
		respondPaymentError(c, err)
		return
	}

	requestLog(c).Infow("admin_payment_refunded",
		"admin_id", adminID,
		"payment_id", payment.ID,
		"order_id", payment.OrderID,
		"amount", req.Amount.String(),
	)
	response.Success(c, payment)
}

func parsePaymentIDParam(c *gin.Context) (uint, bool) {
	paymentID, err := strconv.ParseUint(strings.TrimSpace(c.Param("id")), 10, 64)
	if err != nil || paymentID == 0 {
		respondError(c, response.CodeBadRequest, "支付记录 ID 不合法", nil)
		return 0, false
	}
	return uint(paymentID), true
}

func respondPaymentError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrPaymentNotFound):
		respondError(c, response.CodeNotFound, err.Error(), nil)
	case errors.Is(err, service.ErrPaymentStatusInvalid),
		errors.Is(err, service.ErrPaymentProofRequired),
		errors.Is(err, service.ErrRefundNotAllowed),
		errors.Is(err, service.ErrRefundAmountInvalid),
		errors.Is(err, service.ErrReasonRequired),
		errors.Is(err, service.ErrOrderStatusStale):
		respondError(c, response.CodeBadRequest, err.Error(), nil)
	default:
		respondError(c, response.CodeInternal, "支付操作失败", err)
	}
}
