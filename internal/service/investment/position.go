package investment

import (
	"fmt"

	"github.com/tinoosan/homeledger/internal/errs"
	"github.com/tinoosan/homeledger/internal/ledger"
)

// closedBelow is the quantity under which a position counts as fully sold.
const closedBelow = 1e-9

// ErrInsufficientQuantity is returned when a sale exceeds the held quantity.
var ErrInsufficientQuantity = fmt.Errorf("not enough quantity held: %w", errs.ErrUnprocessable)

// ErrHistoryConflict is returned when removing a record would leave a later
// sale without enough quantity behind it.
var ErrHistoryConflict = fmt.Errorf("a later sale depends on this record: %w", errs.ErrConflict)

// addLot re-weights the average buy price with q units bought at price.
// Callers guarantee q > 0, so the new quantity is never zero.
func addLot(p *ledger.Investment, q, price float64) {
	basis := p.Invested() + q*price
	p.Quantity += q
	p.AvgBuyPrice = basis / p.Quantity
}

// removeLot takes q units out of p at price and returns the realised profit
// against the average buy price, net of commission.
func removeLot(p *ledger.Investment, q, price, commission float64) (float64, error) {
	if q > p.Quantity+closedBelow {
		return 0, fmt.Errorf("sell %g of %g %s: %w", q, p.Quantity, p.Ticker, ErrInsufficientQuantity)
	}
	profit := (price-p.AvgBuyPrice)*q - commission
	p.Quantity -= q
	if p.Quantity < closedBelow {
		p.Quantity = 0
	}
	return profit, nil
}

// ProfitPercent is profit relative to basis; 0 when there is no basis.
func ProfitPercent(profit, basis float64) float64 {
	if basis <= 0 {
		return 0
	}
	return profit / basis * 100
}

// replay rebuilds quantity, average price and dividends of p from its
// history in order. CurrentPrice is left as it is.
func replay(p ledger.Investment, history []ledger.InvestmentTransaction) (ledger.Investment, error) {
	p.Quantity, p.AvgBuyPrice, p.DividendsReceived = 0, 0, 0
	for _, t := range history {
		switch t.Type {
		case ledger.InvestmentBuy:
			addLot(&p, t.Quantity, t.Price)
		case ledger.InvestmentSell:
			if _, err := removeLot(&p, t.Quantity, t.Price, t.Commission); err != nil {
				return ledger.Investment{}, fmt.Errorf("sale of %s on %s: %w", p.Ticker, t.Date.Format("2006-01-02"), ErrHistoryConflict)
			}
		case ledger.InvestmentDividend:
			p.DividendsReceived += t.TotalAmount
		}
	}
	return p, nil
}
