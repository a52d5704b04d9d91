package repository

import (
	"errors"

	"github.com/festipick/festipick/internal/models"

	"gorm.io/gorm"
)

// BundleRepository 套餐数据访问接口
type BundleRepository interface {
	Create(bundle *models.Bundle) error
	Update(bundle *models.Bundle) error
	GetByID(id uint) (*models.Bundle, error)
	GetBySlug(slug string) (*models.Bundle, error)
	List(filter BundleListFilter) ([]models.Bundle, int64, error)
	WithTx(tx *gorm.DB) *GormBundleRepository
}

// GormBundleRepository GORM 实现
type GormBundleRepository struct {
	db *gorm.DB
}

// NewBundleRepository 创建套餐仓库
func NewBundleRepository(db *gorm.DB) *GormBundleRepository {
	return &GormBundleRepository{db: db}
}

// WithTx 绑定事务
func (r *GormBundleRepository) WithTx(tx *gorm.DB) *GormBundleRepository {
	if tx == nil {
		return r
	}
	return &GormBundleRepository{db: tx}
}

// Create 创建套餐
func (r *GormBundleRepository) Create(bundle *models.Bundle) error {
	return r.db.Create(bundle).Error
}

// Update 更新套餐
func (r *GormBundleRepository) Update(bundle *models.Bundle) error {
	return r.db.Save(bundle).Error
}

// GetByID 根据 ID 获取套餐
func (r *GormBundleRepository) GetByID(id uint) (*models.Bundle, error) {
	var bundle models.Bundle
	if err := r.db.First(&bundle, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &bundle, nil
}

// GetBySlug 根据标识获取套餐
func (r *GormBundleRepository) GetBySlug(slug string) (*models.Bundle, error) {
	var bundle models.Bundle
	if err := r.db.Where("slug = ?", slug).First(&bundle).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &bundle, nil
}

// List 获取套餐列表
func (r *GormBundleRepository) List(filter BundleListFilter) ([]models.Bundle, int64, error) {
	query := r.db.Model(&models.Bundle{})

	if filter.OnlyActive {
		query = query.Where("is_active = ?", true)
	}
	if filter.Search != "" {
		condition, args := buildKeywordLikeCondition(r.db, filter.Search, "name", "slug")
		query = query.Where(condition, args...)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	query = applyPagination(query, filter.Page, filter.PageSize)

	var bundles []models.Bundle
	if err := query.Order("sort_order asc, id asc").Find(&bundles).Error; err != nil {
		return nil, 0, err
	}
	return bundles, total, nil
}
