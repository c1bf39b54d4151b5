package application

import (
	"context"
	"errors"

	"github.com/wyfcoding/investplan/internal/user/domain"
)

// PayoutSettingsDTO 提现收款设置视图
type PayoutSettingsDTO struct {
	Method string `json:"method"`
	UpiID  string `json:"upi_id"`
	Name   string `json:"name"`
}

// ProfileDTO 用户档案视图
type ProfileDTO struct {
	UserID   string            `json:"user_id"`
	Phone    string            `json:"phone"`
	Nickname string            `json:"nickname"`
	VipLevel int               `json:"vip_level"`
	Payout   PayoutSettingsDTO `json:"payout"`
}

func toProfileDTO(u *domain.User) ProfileDTO {
	return ProfileDTO{
		UserID:   u.UserID,
		Phone:    u.Phone,
		Nickname: u.Nickname,
		VipLevel: u.VipLevel,
		Payout: PayoutSettingsDTO{
			Method: u.WithdrawMethod,
			UpiID:  u.WithdrawUpiID,
			Name:   u.WithdrawName,
		},
	}
}

// RegisterCommand 开户命令（网关注册回调 / 管理端补录）
type RegisterCommand struct {
	UserID   string
	Phone    string
	Nickname string
}

// WalletProvisioner 开户时同步建立零余额钱包（钱包上下文实现）
type WalletProvisioner interface {
	CreateWallet(ctx context.Context, userID string) error
}

// Service 用户档案应用服务
type Service struct {
	users   domain.UserRepository
	wallets WalletProvisioner
}

// NewService 创建用户档案服务
func NewService(users domain.UserRepository, wallets WalletProvisioner) *Service {
	return &Service{users: users, wallets: wallets}
}

// SetWalletProvisioner 回填开户建钱包依赖，装配时打断双向依赖
func (s *Service) SetWalletProvisioner(wallets WalletProvisioner) {
	s.wallets = wallets
}

// Register 开户：建档并同步创建钱包，重复开户幂等返回
func (s *Service) Register(ctx context.Context, cmd RegisterCommand) (*ProfileDTO, error) {
	existing, err := s.users.GetByID(ctx, cmd.UserID)
	if err == nil {
		dto := toProfileDTO(existing)
		return &dto, nil
	}
	if !errors.Is(err, domain.ErrUserNotFound) {
		return nil, err
	}

	user := &domain.User{
		UserID:   cmd.UserID,
		Phone:    cmd.Phone,
		Nickname: cmd.Nickname,
	}
	if err := s.users.Create(ctx, user); err != nil {
		return nil, err
	}
	if s.wallets != nil {
		if err := s.wallets.CreateWallet(ctx, cmd.UserID); err != nil {
			return nil, err
		}
	}

	dto := toProfileDTO(user)
	return &dto, nil
}

// Profile 用户档案
func (s *Service) Profile(ctx context.Context, userID string) (*ProfileDTO, error) {
	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	dto := toProfileDTO(user)
	return &dto, nil
}

// VipLevel 购买门槛校验用的等级查询
func (s *Service) VipLevel(ctx context.Context, userID string) (int, error) {
	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return 0, err
	}
	return user.VipLevel, nil
}

// PayoutSettings 提现收款设置
func (s *Service) PayoutSettings(ctx context.Context, userID string) (*PayoutSettingsDTO, error) {
	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	return &PayoutSettingsDTO{
		Method: user.WithdrawMethod,
		UpiID:  user.WithdrawUpiID,
		Name:   user.WithdrawName,
	}, nil
}

// UpdatePayoutSettings 更新提现收款设置
func (s *Service) UpdatePayoutSettings(ctx context.Context, userID string, settings PayoutSettingsDTO) (*PayoutSettingsDTO, error) {
	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	if err := user.UpdatePayoutSettings(settings.Method, settings.UpiID, settings.Name); err != nil {
		return nil, err
	}
	if err := s.users.Save(ctx, user); err != nil {
		return nil, err
	}
	return &PayoutSettingsDTO{
		Method: user.WithdrawMethod,
		UpiID:  user.WithdrawUpiID,
		Name:   user.WithdrawName,
	}, nil
}

// PayoutAccount 提现时读取留存的收款账户
func (s *Service) PayoutAccount(ctx context.Context, userID string) (string, string, error) {
	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return "", "", err
	}
	return user.WithdrawMethod, user.WithdrawUpiID, nil
}

// SetVipLevel 管理端调整用户等级
func (s *Service) SetVipLevel(ctx context.Context, userID string, level int) (*ProfileDTO, error) {
	if level < 0 {
		return nil, domain.ErrInvalidVipLevel
	}
	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	user.VipLevel = level
	if err := s.users.Save(ctx, user); err != nil {
		return nil, err
	}
	dto := toProfileDTO(user)
	return &dto, nil
}
