package admin

import (
	"errors"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/festipick/festipick/internal/http/response"
	"github.com/festipick/festipick/internal/repository"
	"github.com/festipick/festipick/internal/service"

	"github.com/gin-gonic/gin"
)

// AdminListOrders 管理端订单列表
func (h *Handler) AdminListOrders(c *gin.Context) {
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	pageSize, _ := strconv.Atoi(c.DefaultQuery("page_size", "20"))
	page, pageSize = normalizePagination(page, pageSize)

	status := strings.TrimSpace(c.Query("status"))
	pickupStatus := strings.TrimSpace(c.Query("pickup_status"))
	orderNo := strings.TrimSpace(c.Query("order_no"))
	userIDRaw := strings.TrimSpace(c.Query("user_id"))
	batchIDRaw := strings.TrimSpace(c.Query("batch_id"))

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

	var userID uint
	if userIDRaw != "" {
		if parsed, parseErr := strconv.ParseUint(userIDRaw, 10, 64); parseErr == nil {
			userID = uint(parsed)
		}
	}
	var batchID int
	if batchIDRaw != "" {
		if parsed, parseErr := strconv.Atoi(batchIDRaw); parseErr == nil {
			batchID = parsed
		}
	}

	orders, total, err := h.OrderService.ListOrders(repository.OrderListFilter{
		Page:         page,
		PageSize:     pageSize,
		UserID:       userID,
		Status:       status,
		PickupStatus: pickupStatus,
		OrderNo:      orderNo,
		BatchID:      batchID,
		CreatedFrom:  createdFrom,
		CreatedTo:    createdTo,
	})
	if err != nil {
		respondError(c, response.CodeInternal, "订单查询失败", err)
		return
	}

	response.SuccessWithPage(c, orders, response.Pagination{
		Page:      page,
		PageSize:  pageSize,
		Total:     total,
		TotalPage: (total + int64(pageSize) - 1) / int64(pageSize),
	})
}

// AdminGetOrder 管理端订单详情，含状态事件与通知流水
func (h *Handler) AdminGetOrder(c *gin.Context) {
	orderID, ok := parseOrderIDParam(c)
	if !ok {
		return
	}

	detail, err := h.OrderService.GetOrderDetail(orderID)
	if err != nil {
		respondOrderError(c, err)
		return
	}

	response.Success(c, detail)
}

// AdminConfirmOrder 确认订单，进入待履约
func (h *Handler) AdminConfirmOrder(c *gin.Context) {
	orderID, ok := parseOrderIDParam(c)
	if !ok {
		return
	}
	adminID, ok := getAdminID(c)
	if !ok {
		return
	}

	order, err := h.OrderService.ConfirmOrder(orderID, adminID)
	if err != nil {
		respondOrderError(c, err)
		return
	}

	requestLog(c).Infow("admin_order_confirmed",
		"admin_id", adminID,
		"order_id", order.ID,
		"order_no", order.OrderNo,
	)
	response.Success(c, order)
}

// AdminStartPreparationRequest 开始备货请求
type AdminStartPreparationRequest struct {
	EstimatedReadyAt string `json:"estimated_ready_at"`
}

// AdminStartPreparation 开始备货，可附带预计完成时间
func (h *Handler) AdminStartPreparation(c *gin.Context) {
	orderID, ok := parseOrderIDParam(c)
	if !ok {
		return
	}
	adminID, ok := getAdminID(c)
	if !ok {
		return
	}

	var req AdminStartPreparationRequest
	if err := c.ShouldBindJSON(&req); err != nil && !errors.Is(err, io.EOF) {
		respondError(c, response.CodeBadRequest, "请求参数不合法", err)
		return
	}

	estimatedReadyAt, err := parseTimeNullable(strings.TrimSpace(req.EstimatedReadyAt))
	if err != nil {
		respondError(c, response.CodeBadRequest, "预计完成时间格式不合法", err)
		return
	}

	order, err := h.OrderService.StartPreparation(orderID, adminID, estimatedReadyAt)
	if err != nil {
		respondOrderError(c, err)
		return
	}

	requestLog(c).Infow("admin_order_preparation_started",
		"admin_id", adminID,
		"order_id", order.ID,
		"order_no", order.OrderNo,
	)
	response.Success(c, order)
}

// AdminMarkDelayedRequest 标记延迟请求
type AdminMarkDelayedRequest struct {
	Reason string `json:"reason" binding:"required"`
}

// AdminMarkDelayed 标记订单备货延迟并通知顾客
func (h *Handler) AdminMarkDelayed(c *gin.Context) {
	orderID, ok := parseOrderIDParam(c)
	if !ok {
		return
	}
	adminID, ok := getAdminID(c)
	if !ok {
		return
	}

	var req AdminMarkDelayedRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, response.CodeBadRequest, "必须填写延迟原因", err)
		return
	}

	order, err := h.OrderService.MarkDelayed(orderID, adminID, req.Reason)
	if err != nil {
		respondOrderError(c, err)
		return
	}

	requestLog(c).Infow("admin_order_marked_delayed",
		"admin_id", adminID,
		"order_id", order.ID,
		"order_no", order.OrderNo,
	)
	response.Success(c, order)
}

// AdminMarkReadyRequest 备货完成请求
type AdminMarkReadyRequest struct {
	PickupLocation string `json:"pickup_location"`
	PickupHours    string `json:"pickup_hours"`
}

// AdminMarkReady 备货完成，签发取货码并通知顾客
func (h *Handler) AdminMarkReady(c *gin.Context) {
	orderID, ok := parseOrderIDParam(c)
	if !ok {
		return
	}
	adminID, ok := getAdminID(c)
	if !ok {
		return
	}

	var req AdminMarkReadyRequest
	if err := c.ShouldBindJSON(&req); err != nil && !errors.Is(err, io.EOF) {
		respondError(c, response.CodeBadRequest, "请求参数不合法", err)
		return
	}

	location := strings.TrimSpace(req.PickupLocation)
	if location == "" {
		location = h.Config.Pickup.Location
	}
	hours := strings.TrimSpace(req.PickupHours)
	if hours == "" {
		hours = h.Config.Pickup.Hours
	}

	order, err := h.OrderService.MarkReady(orderID, adminID, location, hours)
	if err != nil {
		respondOrderError(c, err)
		return
	}

	requestLog(c).Infow("admin_order_marked_ready",
		"admin_id", adminID,
		"order_id", order.ID,
		"order_no", order.OrderNo,
	)
	response.Success(c, order)
}

// AdminCancelOrderRequest 取消订单请求
type AdminCancelOrderRequest struct {
	Reason string `json:"reason"`
}

// AdminCancelOrder 管理端取消订单
func (h *Handler) AdminCancelOrder(c *gin.Context) {
	orderID, ok := parseOrderIDParam(c)
	if !ok {
		return
	}
	adminID, ok := getAdminID(c)
	if !ok {
		return
	}

	var req AdminCancelOrderRequest
	if err := c.ShouldBindJSON(&req); err != nil && !errors.Is(err, io.EOF) {
		respondError(c, response.CodeBadRequest, "请求参数不合法", err)
		return
	}

	order, err := h.OrderService.CancelOrder(orderID, "admin", adminID, req.Reason)
	if err != nil {
		respondOrderError(c, err)
		return
	}

	requestLog(c).Infow("admin_order_canceled",
		"admin_id", adminID,
		"order_id", order.ID,
		"order_no", order.OrderNo,
		"reason", req.Reason,
	)
	response.Success(c, order)
}

func parseOrderIDParam(c *gin.Context) (uint, bool) {
	orderID, err := strconv.ParseUint(strings.TrimSpace(c.Param("id")), 10, 64)
	if err != nil || orderID == 0 {
		respondError(c, response.CodeBadRequest, "订单 ID 不合法", nil)
		return 0, false
	}
	return uint(orderID), true
}

func respondOrderError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrOrderNotFound):
		respondError(c, response.CodeNotFound, err.Error(), nil)
	case errors.Is(err, service.ErrOrderStatusInvalid),
		errors.Is(err, service.ErrOrderStatusStale),
		errors.Is(err, service.ErrOrderNotPayable),
		errors.Is(err, service.ErrOrderNotCancelable),
		errors.Is(err, service.ErrReasonRequired):
		respondError(c, response.CodeBadRequest, err.Error(), nil)
	default:
		respondError(c, response.CodeInternal, "订单操作失败", err)
	}
}

func parseTimeNullable(raw string) (*time.Time, error) {
	if raw == "" {
		return nil, nil
	}
	parsed, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		return nil, err
	}
	return &parsed, nil
}
