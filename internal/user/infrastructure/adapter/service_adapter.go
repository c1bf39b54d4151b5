// 包 adapter 把钱包上下文的开户能力适配成用户上下文的 WalletProvisioner 接口
package adapter

import (
	"context"

	walletapp "github.com/wyfcoding/investplan/internal/wallet/application"
)

// WalletProvisionAdapter 开户建钱包适配器
type WalletProvisionAdapter struct {
	wallet *walletapp.Service
}

// NewWalletProvisionAdapter 创建适配器
func NewWalletProvisionAdapter(wallet *walletapp.Service) *WalletProvisionAdapter {
	return &WalletProvisionAdapter{wallet: wallet}
}

func (a *WalletProvisionAdapter) CreateWallet(ctx context.Context, userID string) error {
	_, err := a.wallet.CreateWallet(ctx, userID)
	return err
}
