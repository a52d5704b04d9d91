package service

import (
	"strings"

	"github.com/festipick/festipick/internal/constants"
	"github.com/festipick/festipick/internal/logger"
	"github.com/festipick/festipick/internal/models"
	"github.com/festipick/festipick/internal/repository"

	"github.com/shopspring/decimal"
)

// BundleService 套餐服务
type BundleService struct {
	bundleRepo repository.BundleRepository
}

// NewBundleService 创建套餐服务
func NewBundleService(bundleRepo repository.BundleRepository) *BundleService {
	return &BundleService{bundleRepo: bundleRepo}
}

// BundleInput 套餐创建与更新参数
type BundleInput struct {
	Slug        string          `json:"slug"`
	Name        string          `json:"name"`
	Description string          `json:"description"`
	Price       decimal.Decimal `json:"price"`
	Currency    string          `json:"currency"`
	IsActive    *bool           `json:"is_active"`
	SortOrder   int             `json:"sort_order"`
}

// ListBundles 套餐列表
func (s *BundleService) ListBundles(filter repository.BundleListFilter) ([]models.Bundle, int64, error) {
	return s.bundleRepo.List(filter)
}

// ListActiveBundles 在售套餐列表
func (s *BundleService) ListActiveBundles() ([]models.Bundle, error) {
	bundles, _, err := s.bundleRepo.List(repository.BundleListFilter{OnlyActive: true, PageSize: -1})
	return bundles, err
}

// GetBundle 获取套餐
func (s *BundleService) GetBundle(id uint) (*models.Bundle, error) {
	bundle, err := s.bundleRepo.GetByID(id)
	if err != nil {
		return nil, err
	}
	if bundle == nil {
		return nil, ErrBundleNotAvailable
	}
	return bundle, nil
}

// CreateBundle 创建套餐
func (s *BundleService) CreateBundle(input BundleInput) (*models.Bundle, error) {
	slug := strings.TrimSpace(input.Slug)
	name := strings.TrimSpace(input.Name)
	if slug == "" || name == "" || input.Price.LessThanOrEqual(decimal.Zero) {
		return nil, ErrBundleInvalid
	}
	existing, err := s.bundleRepo.GetBySlug(slug)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, ErrBundleSlugTaken
	}

	currency := strings.ToUpper(strings.TrimSpace(input.Currency))
	if currency == "" {
		currency = constants.SiteCurrencyDefault
	}
	isActive := true
	if input.IsActive != nil {
		isActive = *input.IsActive
	}
	bundle := &models.Bundle{
		Slug:        slug,
		Name:        name,
		Description: strings.TrimSpace(input.Description),
		Price:       models.NewMoneyFromDecimal(input.Price),
		Currency:    currency,
		IsActive:    isActive,
		SortOrder:   input.SortOrder,
	}
	if err := s.bundleRepo.Create(bundle); err != nil {
		logger.Errorw("bundle_create_failed", "slug", slug, "error", err)
		return nil, err
	}
	return bundle, nil
}

// UpdateBundle 更新套餐
func (s *BundleService) UpdateBundle(id uint, input BundleInput) (*models.Bundle, error) {
	bundle, err := s.GetBundle(id)
	if err != nil {
		return nil, err
	}

	if name := strings.TrimSpace(input.Name); name != "" {
		bundle.Name = name
	}
	if slug := strings.TrimSpace(input.Slug); slug != "" && slug != bundle.Slug {
		existing, err := s.bundleRepo.GetBySlug(slug)
		if err != nil {
			return nil, err
		}
		if existing != nil && existing.ID != bundle.ID {
			return nil, ErrBundleSlugTaken
		}
		bundle.Slug = slug
	}
	bundle.Description = strings.TrimSpace(input.Description)
	if input.Price.GreaterThan(decimal.Zero) {
		bundle.Price = models.NewMoneyFromDecimal(input.Price)
	}
	if currency := strings.ToUpper(strings.TrimSpace(input.Currency)); currency != "" {
		bundle.Currency = currency
	}
	if input.IsActive != nil {
		bundle.IsActive = *input.IsActive
	}
	bundle.SortOrder = input.SortOrder

	if err := s.bundleRepo.Update(bundle); err != nil {
		logger.Errorw("bundle_update_failed", "bundle_id", id, "error", err)
		return nil, err
	}
	return bundle, nil
}
