package admin

import (
	"errors"
	"strconv"
	"strings"

	"github.com/festipick/festipick/internal/http/response"
	"github.com/festipick/festipick/internal/repository"
	"github.com/festipick/festipick/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
)

// AdminBundleRequest 套餐创建与更新请求
type AdminBundleRequest struct {
	Slug        string          `json:"slug" binding:"required"`
	Name        string          `json:"name" binding:"required"`
	Description string          `json:"description"`
	Price       decimal.Decimal `json:"price" binding:"required"`
	Currency    string          `json:"currency"`
	IsActive    *bool           `json:"is_active"`
	SortOrder   int             `json:"sort_order"`
}

func (r AdminBundleRequest) toInput() service.BundleInput {
	return service.BundleInput{
		Slug:        strings.TrimSpace(r.Slug),
		Name:        strings.TrimSpace(r.Name),
		Description: r.Description,
		Price:       r.Price,
		Currency:    strings.ToUpper(strings.TrimSpace(r.Currency)),
		IsActive:    r.IsActive,
		SortOrder:   r.SortOrder,
	}
}

// AdminListBundles 管理端套餐列表
func (h *Handler) AdminListBundles(c *gin.Context) {
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	pageSize, _ := strconv.Atoi(c.DefaultQuery("page_size", "20"))
	page, pageSize = normalizePagination(page, pageSize)

	bundles, total, err := h.BundleService.ListBundles(repository.BundleListFilter{
		Page:       page,
		PageSize:   pageSize,
		Search:     strings.TrimSpace(c.Query("search")),
		OnlyActive: c.Query("only_active") == "true",
	})
	if err != nil {
		respondError(c, response.CodeInternal, "套餐查询失败", err)
		return
	}

	response.SuccessWithPage(c, bundles, response.Pagination{
		Page:      page,
		PageSize:  pageSize,
		Total:     total,
		TotalPage: (total + int64(pageSize) - 1) / int64(pageSize),
	})
}

// AdminGetBundle 管理端套餐详情
func (h *Handler) AdminGetBundle(c *gin.Context) {
	bundleID, ok := parseBundleIDParam(c)
	if !ok {
		return
	}

	bundle, err := h.BundleService.GetBundle(bundleID)
	if err != nil {
		respondBundleError(c, err)
		return
	}

	response.Success(c, bundle)
}

// AdminCreateBundle 创建套餐
func (h *Handler) AdminCreateBundle(c *gin.Context) {
	var req AdminBundleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, response.CodeBadRequest, "请求参数不合法", err)
		return
	}

	bundle, err := h.BundleService.CreateBundle(req.toInput())
	if err != nil {
		respondBundleError(c, err)
		return
	}

	requestLog(c).Infow("admin_bundle_created",
		"bundle_id", bundle.ID,
		"slug", bundle.Slug,
	)
	response.Success(c, bundle)
}

// AdminUpdateBundle 更新套餐
func (h *Handler) AdminUpdateBundle(c *gin.Context) {
	bundleID, ok := parseBundleIDParam(c)
	if !ok {
		return
	}

	var req AdminBundleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, response.CodeBadRequest, "请求参数不合法", err)
		return
	}

	bundle, err := h.BundleService.UpdateBundle(bundleID, req.toInput())
	if err != nil {
		respondBundleError(c, err)
		return
	}

	requestLog(c).Infow("admin_bundle_updated",
		"bundle_id", bundle.ID,
		"slug", bundle.Slug,
	)
	response.Success(c, bundle)
}

func parseBundleIDParam(c *gin.Context) (uint, bool) {
	bundleID, err := strconv.ParseUint(strings.TrimSpace(c.Param("id")), 10, 64)
	if err != nil || bundleID == 0 {
		respondError(c, response.CodeBadRequest, "套餐 ID 不合法", nil)
		return 0, false
	}
	return uint(bundleID), true
}

func respondBundleError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrBundleNotAvailable):
		respondError(c, response.CodeNotFound, err.Error(), nil)
	case errors.Is(err, service.ErrBundleInvalid),
		errors.Is(err, service.ErrBundleSlugTaken):
		respondError(c, response.CodeBadRequest, err.Error(), nil)
	default:
		respondError(c, response.CodeInternal, "套餐操作失败", err)
	}
}
