package public

import (
	"errors"
	"strings"

	"github.com/festipick/festipick/internal/http/response"
	"github.com/festipick/festipick/internal/service"

	"github.com/gin-gonic/gin"
)

// VerifyPickupToken 核销取货码
//
// 成功时订单进入已完成并标记已取货，重复提交返回已使用错误。
func (h *Handler) VerifyPickupToken(c *gin.Context) {
	token := strings.TrimSpace(c.Param("token"))

	order, err := h.PickupTokenService.Verify(token)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrTokenInvalid):
			respondError(c, response.CodeBadRequest, err.Error(), nil)
		case errors.Is(err, service.ErrTokenNotFound):
			respondError(c, response.CodeNotFound, err.Error(), nil)
		case errors.Is(err, service.ErrOrderNotReady),
			errors.Is(err, service.ErrAlreadyRedeemed):
			respondError(c, response.CodeBadRequest, err.Error(), nil)
		default:
			respondError(c, response.CodeInternal, "取货码核销失败", err)
		}
		return
	}

	requestLog(c).Infow("pickup_token_redeemed",
		"order_id", order.ID,
		"order_no", order.OrderNo,
	)
	response.Success(c, gin.H{
		"order_no":      order.OrderNo,
		"status":        order.Status,
		"pickup_status": order.PickupStatus,
		"completed_at":  order.CompletedAt,
	})
}
