// 包 domain 用户档案切片：VIP 等级与提现收款设置
package domain

import (
	"context"
	"errors"

	"gorm.io/gorm"
)

var (
	ErrUserNotFound      = errors.New("user not found")
	ErrPayoutUpiRequired = errors.New("withdraw upi id is required")
	ErrInvalidVipLevel   = errors.New("invalid vip level")
)

// User 用户档案
// 认证在网关完成，这里只保存业务侧需要的档案字段
type User struct {
	gorm.Model
	UserID         string `gorm:"column:user_id;type:varchar(64);uniqueIndex;not null" json:"user_id"`
	Phone          string `gorm:"column:phone;type:varchar(32);index" json:"phone"`
	Nickname       string `gorm:"column:nickname;type:varchar(64)" json:"nickname"`
	VipLevel       int    `gorm:"column:vip_level;not null;default:0" json:"vip_level"`
	WithdrawMethod string `gorm:"column:withdraw_method;type:varchar(20)" json:"withdraw_method"`
	WithdrawUpiID  string `gorm:"column:withdraw_upi_id;type:varchar(128)" json:"withdraw_upi_id"`
	WithdrawName   string `gorm:"column:withdraw_name;type:varchar(64)" json:"withdraw_name"`
}

func (User) TableName() string {
	return "users"
}

// UpdatePayoutSettings 更新提现收款设置，UPI 账号必填
func (u *User) UpdatePayoutSettings(method, upiID, name string) error {
	if upiID == "" {
		return ErrPayoutUpiRequired
	}
	if method == "" {
		method = "UPI"
	}
	u.WithdrawMethod = method
	u.WithdrawUpiID = upiID
	u.WithdrawName = name
	return nil
}

// UserRepository 用户档案仓储接口
type UserRepository interface {
	Create(ctx context.Context, user *User) error
	GetByID(ctx context.Context, userID string) (*User, error)
	Save(ctx context.Context, user *User) error
}
