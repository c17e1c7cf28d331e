package service

import (
	"fmt"
	"strings"

	"github.com/stockyourlot/internal/constants"
	"github.com/stockyourlot/internal/models"
	"github.com/stockyourlot/internal/repository"
)

// SubjectService 经纪人与车行的最小维护服务
type SubjectService struct {
	repo repository.SubjectRepository
}

// NewSubjectService 创建对象服务
func NewSubjectService(repo repository.SubjectRepository) *SubjectService {
	return &SubjectService{repo: repo}
}

// CreateAgentInput 创建经纪人输入
type CreateAgentInput struct {
	Username    string
	Email       string
	DisplayName string
}

// CreateDealershipInput 创建车行输入
type CreateDealershipInput struct {
	Name    string
	Address string
	City    string
	State   string
	Zip     string
	Phone   string
}

// CreateAgent 创建经纪人
func (s *SubjectService) CreateAgent(input CreateAgentInput) (*models.User, error) {
	username := strings.TrimSpace(input.Username)
	if username == "" {
		return nil, fmt.Errorf("%w: username is required", ErrSubjectInvalid)
	}
	user := &models.User{
		Username:    username,
		Email:       strings.ToLower(strings.TrimSpace(input.Email)),
		DisplayName: strings.TrimSpace(input.DisplayName),
		Status:      constants.UserStatusActive,
	}
	if err := s.repo.CreateUser(user); err != nil {
		return nil, err
	}
	return user, nil
}

// CreateDealership 创建车行
func (s *SubjectService) CreateDealership(input CreateDealershipInput) (*models.Dealership, error) {
	name := strings.TrimSpace(input.Name)
	if name == "" {
		return nil, fmt.Errorf("%w: name is required", ErrSubjectInvalid)
	}
	dealership := &models.Dealership{
		Name:    name,
		Address: strings.TrimSpace(input.Address),
		City:    strings.TrimSpace(input.City),
		State:   strings.TrimSpace(input.State),
		Zip:     strings.TrimSpace(input.Zip),
		Phone:   strings.TrimSpace(input.Phone),
	}
	if err := s.repo.CreateDealership(dealership); err != nil {
		return nil, err
	}
	return dealership, nil
}

// GetAgent 获取经纪人
func (s *SubjectService) GetAgent(id uint) (*models.User, error) {
	user, err := s.repo.GetUserByID(id)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, ErrSubjectNotFound
	}
	return user, nil
}

// GetDealership 获取车行
func (s *SubjectService) GetDealership(id uint) (*models.Dealership, error) {
	dealership, err := s.repo.GetDealershipByID(id)
	if err != nil {
		return nil, err
	}
	if dealership == nil {
		return nil, ErrDealershipNotFound
	}
	return dealership, nil
}

// ListAgents 经纪人列表
func (s *SubjectService) ListAgents(filter repository.SubjectListFilter) ([]models.User, int64, error) {
	return s.repo.ListUsers(filter)
}

// ListDealerships 车行列表
func (s *SubjectService) ListDealerships(filter repository.SubjectListFilter) ([]models.Dealership, int64, error) {
	return s.repo.ListDealerships(filter)
}
