// 包 adapter 把钱包上下文的入账能力适配成充值上下文的 Ledger 接口
package adapter

import (
	"context"

	depositapp "github.com/wyfcoding/investplan/internal/deposit/application"
	walletapp "github.com/wyfcoding/investplan/internal/wallet/application"
)

// LedgerAdapter 钱包入账适配器
type LedgerAdapter struct {
	wallet *walletapp.Service
}

// NewLedgerAdapter 创建入账适配器
func NewLedgerAdapter(wallet *walletapp.Service) *LedgerAdapter {
	return &LedgerAdapter{wallet: wallet}
}

func (a *LedgerAdapter) CreditDeposit(ctx context.Context, cmd depositapp.CreditDepositCommand) error {
	return a.wallet.CreditDeposit(ctx, walletapp.CreditDepositCommand{
		UserID:    cmd.UserID,
		Amount:    cmd.Amount,
		Currency:  cmd.Currency,
		DepositID: cmd.DepositID,
		UpiID:     cmd.UpiID,
		TxnRef:    cmd.TxnRef,
		AdminID:   cmd.AdminID,
		Note:      cmd.Note,
	})
}
