package public

import (
	"time"

	"github.com/festipick/festipick/internal/batch"
	"github.com/festipick/festipick/internal/http/response"

	"github.com/gin-gonic/gin"
)

// GetCurrentBatch 获取当前场次与下一取货窗口
func (h *Handler) GetCurrentBatch(c *gin.Context) {
	now := time.Now().In(h.VenueLocation)

	current := batch.Resolve(now, h.VenueLocation)
	pickup := batch.NextPickupWindow(now, h.VenueLocation)

	response.Success(c, gin.H{
		"now":           now,
		"current":       current,
		"phase":         batch.ComputeStatus(current, now),
		"orderable":     batch.IsOrderable(current, now),
		"pickup_window": pickup,
	})
}
