package admin

import (
	handlershared "github.com/festipick/festipick/internal/http/handlers/shared"

	"github.com/gin-gonic/gin"
)

// getAdminID 从上下文中读取当前管理员 ID，失败时已写入错误响应。
func getAdminID(c *gin.Context) (uint, bool) {
	return handlershared.GetContextUint(c, "admin_id")
}
