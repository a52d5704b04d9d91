package public

import (
	"github.com/festipick/festipick/internal/http/response"

	"github.com/gin-gonic/gin"
)

// ListBundles 获取上架套餐列表
func (h *Handler) ListBundles(c *gin.Context) {
	bundles, err := h.BundleService.ListActiveBundles()
	if err != nil {
		respondError(c, response.CodeInternal, "套餐查询失败", err)
		return
	}
	response.Success(c, bundles)
}
