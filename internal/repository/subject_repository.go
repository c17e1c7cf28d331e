package repository

import (
	"errors"

	"github.com/stockyourlot/internal/constants"
	"github.com/stockyourlot/internal/models"

	"gorm.io/gorm"
)

// SubjectRepository 激励对象（经纪人/车行）数据访问接口
type SubjectRepository interface {
	WithTx(tx *gorm.DB) SubjectRepository

	Exists(subjectType string, id uint) (bool, error)
	GetUserByID(id uint) (*models.User, error)
	GetDealershipByID(id uint) (*models.Dealership, error)
	CreateUser(user *models.User) error
	CreateDealership(dealership *models.Dealership) error
	ListUsers(filter SubjectListFilter) ([]models.User, int64, error)
	ListDealerships(filter SubjectListFilter) ([]models.Dealership, int64, error)
}

// GormSubjectRepository GORM 激励对象仓储
type GormSubjectRepository struct {
	db *gorm.DB
}

// NewSubjectRepository 创建激励对象仓储
func NewSubjectRepository(db *gorm.DB) *GormSubjectRepository {
	return &GormSubjectRepository{db: db}
}

// WithTx 绑定事务
func (r *GormSubjectRepository) WithTx(tx *gorm.DB) SubjectRepository {
	if tx == nil {
		return r
	}
	return &GormSubjectRepository{db: tx}
}

// Exists 对象是否存在（未知类型视为不存在）
func (r *GormSubjectRepository) Exists(subjectType string, id uint) (bool, error) {
	if id == 0 {
		return false, nil
	}
	var model interface{}
	switch subjectType {
	case constants.SubjectTypeAgent:
		model = &models.User{}
	case constants.SubjectTypeDealership:
		model = &models.Dealership{}
	default:
		return false, nil
	}
	var count int64
	if err := r.db.Model(model).Where("id = ?", id).Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}

// GetUserByID 获取经纪人
func (r *GormSubjectRepository) GetUserByID(id uint) (*models.User, error) {
	if id == 0 {
		return nil, nil
	}
	var user models.User
	if err := r.db.First(&user, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &user, nil
}

// GetDealershipByID 获取车行
func (r *GormSubjectRepository) GetDealershipByID(id uint) (*models.Dealership, error) {
	if id == 0 {
		return nil, nil
	}
	var dealership models.Dealership
	if err := r.db.First(&dealership, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &dealership, nil
}

// CreateUser 创建经纪人
func (r *GormSubjectRepository) CreateUser(user *models.User) error {
	return r.db.Create(user).Error
}

// CreateDealership 创建车行
func (r *GormSubjectRepository) CreateDealership(dealership *models.Dealership) error {
	return r.db.Create(dealership).Error
}

// ListUsers 经纪人列表
func (r *GormSubjectRepository) ListUsers(filter SubjectListFilter) ([]models.User, int64, error) {
	query := r.db.Model(&models.User{})
	if filter.Search != "" {
		condition, args := buildLikeCondition(r.db, filter.Search, "username", "email", "display_name")
		query = query.Where(condition, args...)
	}
	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	var rows []models.User
	if err := query.Scopes(paginate(filter.Page, filter.PageSize)).Order("id desc").Find(&rows).Error; err != nil {
		return nil, 0, err
	}
	return rows, total, nil
}

// ListDealerships 车行列表
func (r *GormSubjectRepository) ListDealerships(filter SubjectListFilter) ([]models.Dealership, int64, error) {
	query := r.db.Model(&models.Dealership{})
	if filter.Search != "" {
		condition, args := buildLikeCondition(r.db, filter.Search, "name", "city", "state")
		query = query.Where(condition, args...)
	}
	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	var rows []models.Dealership
	if err := query.Scopes(paginate(filter.Page, filter.PageSize)).Order("name asc, id asc").Find(&rows).Error; err != nil {
		return nil, 0, err
	}
	return rows, total, nil
}
