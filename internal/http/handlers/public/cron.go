package public

import (
	"time"

	"github.com/festipick/festipick/internal/http/response"

	"github.com/gin-gonic/gin"
)

// RunMaintenance 触发一次生命周期维护扫描
//
// 由外部定时器调用，鉴权在路由层的 cron 中间件完成。
func (h *Handler) RunMaintenance(c *gin.Context) {
	summary := h.MaintenanceService.RunMaintenancePass(c.Request.Context(), time.Now())

	requestLog(c).Infow("maintenance_triggered",
		"processed", summary.Processed,
		"reminders_sent", summary.RemindersSent,
		"expired", summary.Expired,
		"error_count", len(summary.Errors),
	)
	response.Success(c, summary)
}
