package admin

import (
	"strconv"
	"strings"

	"github.com/festipick/festipick/internal/constants"
	"github.com/festipick/festipick/internal/http/response"
	"github.com/festipick/festipick/internal/repository"

	"github.com/gin-gonic/gin"
)

// AdminListUsers 管理端顾客列表
func (h *Handler) AdminListUsers(c *gin.Context) {
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	pageSize, _ := strconv.Atoi(c.DefaultQuery("page_size", "20"))
	page, pageSize = normalizePagination(page, pageSize)

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

	users, total, err := h.UserRepo.List(repository.UserListFilter{
		Page:        page,
		PageSize:    pageSize,
		Keyword:     strings.TrimSpace(c.Query("keyword")),
		Status:      strings.TrimSpace(c.Query("status")),
		CreatedFrom: createdFrom,
		CreatedTo:   createdTo,
	})
	if err != nil {
		respondError(c, response.CodeInternal, "顾客查询失败", err)
		return
	}

	response.SuccessWithPage(c, users, response.Pagination{
		Page:      page,
		PageSize:  pageSize,
		Total:     total,
		TotalPage: (total + int64(pageSize) - 1) / int64(pageSize),
	})
}

// AdminUpdateUserStatusRequest 顾客状态更新请求
type AdminUpdateUserStatusRequest struct {
	Status string `json:"status" binding:"required"`
}

// AdminUpdateUserStatus 启用或禁用顾客账号
func (h *Handler) AdminUpdateUserStatus(c *gin.Context) {
	userID, err := strconv.ParseUint(strings.TrimSpace(c.Param("id")), 10, 64)
	if err != nil || userID == 0 {
		respondError(c, response.CodeBadRequest, "顾客 ID 不合法", nil)
		return
	}

	var req AdminUpdateUserStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, response.CodeBadRequest, "请求参数不合法", err)
		return
	}
	status := strings.TrimSpace(req.Status)
	if status != constants.UserStatusActive && status != constants.UserStatusDisabled {
		respondError(c, response.CodeBadRequest, "顾客状态不合法", nil)
		return
	}

	user, err := h.UserRepo.GetByID(uint(userID))
	if err != nil {
		respondError(c, response.CodeInternal, "顾客查询失败", err)
		return
	}
	if user == nil {
		respondError(c, response.CodeNotFound, "顾客不存在", nil)
		return
	}

	user.Status = status
	if err := h.UserRepo.Update(user); err != nil {
		respondError(c, response.CodeInternal, "顾客更新失败", err)
		return
	}

	requestLog(c).Infow("admin_user_status_updated",
		"user_id", user.ID,
		"status", status,
	)
	response.Success(c, user)
}
