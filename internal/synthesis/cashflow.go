package synthesis

import (
	"github.com/shopspring/decimal"

	"ledgermerge/internal/date"
	"ledgermerge/internal/ledger"
	"ledgermerge/internal/series"
)

// CashFlow holds the balance and profit and loss curves over an axis
type CashFlow struct {
	Balance         []decimal.Decimal `json:"balance"`
	BalanceTrend    []decimal.Decimal `json:"balance_trend"`
	SmoothedBalance []decimal.Decimal `json:"smoothed_balance,omitempty"`
	Gain            []decimal.Decimal `json:"gain"`
	Loss            []decimal.Decimal `json:"loss"`
	CumulatedGain   []decimal.Decimal `json:"cumulated_gain"`
	CumulatedLoss   []decimal.Decimal `json:"cumulated_loss"`
	CumulatedPnL    []decimal.Decimal `json:"cumulated_pnl"`
}

// NewCashFlow samples the balance of l and aggregates its gains and losses
// on axis. The balance is smoothed when smoothing is greater than 1.
func NewCashFlow(l *ledger.Ledger, axis []date.Date, smoothing int) (*CashFlow, error) {
	balance, err := series.Sample(axis, l.Balance())
	if err != nil {
		return nil, err
	}
	// points before the first transaction hold the opening balance
	for i, d := range axis {
		if l.Len() > 0 && !d.Before(l.StartedAt()) {
			break
		}
		balance[i] = l.InitialBalance()
	}

	gain, err := series.Aggregate(axis, l.Gain())
	if err != nil {
		return nil, err
	}
	loss, err := series.Aggregate(axis, l.Loss())
	if err != nil {
		return nil, err
	}

	cumulatedGain, err := series.Cumulate(gain)
	if err != nil {
		return nil, err
	}
	cumulatedLoss, err := series.Cumulate(loss)
	if err != nil {
		return nil, err
	}
	pnl, err := series.Sub(cumulatedGain, cumulatedLoss)
	if err != nil {
		return nil, err
	}

	cf := &CashFlow{
		Balance:       balance,
		BalanceTrend:  series.Trend(balance),
		Gain:          gain,
		Loss:          loss,
		CumulatedGain: cumulatedGain,
		CumulatedLoss: cumulatedLoss,
		CumulatedPnL:  pnl,
	}
	if smoothing > 1 {
		cf.SmoothedBalance = series.Smooth(smoothing, balance)
	}
	return cf, nil
}
