package ledger

import (
	"time"

	"github.com/shopspring/decimal"

	"tradeledger/types"
)

// applyFill applies one executed trade to a position in place and returns the
// profit or loss realized by this fill.
//
// Cost basis follows the average-cost method: adds in the direction of the
// position blend into the weighted average, reductions realize P&L against
// the held average and leave it untouched for the remaining quantity. A fill
// that crosses through zero realizes the whole old position and re-bases the
// remainder at the fill price. A full close resets the average cost to zero;
// the position itself stays on record and may reopen later.
//
// The position is marked at markPrice after every fill, so market value and
// unrealized P&L are never stale.
func applyFill(pos *types.Position, side types.Side, quantity, execPrice, markPrice decimal.Decimal, now time.Time) (decimal.Decimal, error) {
	delta := quantity
	switch side {
	case types.SideBuy:
	case types.SideSell:
		delta = delta.Neg()
	default:
		return decimal.Zero, ErrUnknownSide
	}

	oldQty := pos.Quantity
	newQty := oldQty.Add(delta)
	realized := decimal.Zero

	switch {
	case sameSide(oldQty, newQty):
		absOld := oldQty.Abs()
		absNew := newQty.Abs()
		if absNew.GreaterThan(absOld) {
			pos.AvgCost = weightedAvg(pos.AvgCost, absOld, execPrice, delta.Abs())
		} else {
			// Reduction: realize against the held basis, keep it for the rest.
			realized = execPrice.Sub(pos.AvgCost).Mul(delta.Neg())
		}
		pos.Quantity = newQty

	case oldQty.IsZero():
		// Opening or reopening starts a fresh basis at the fill price.
		pos.Quantity = newQty
		pos.AvgCost = execPrice

	case newQty.IsZero():
		realized = execPrice.Sub(pos.AvgCost).Mul(oldQty)
		pos.Quantity = decimal.Zero
		pos.AvgCost = decimal.Zero

	default:
		// Crossed through zero: the old position is fully realized and the
		// overshoot opens the other way at the fill price.
		realized = execPrice.Sub(pos.AvgCost).Mul(oldQty)
		pos.Quantity = newQty
		pos.AvgCost = execPrice
	}

	pos.RealizedPnL = pos.RealizedPnL.Add(realized)
	pos.Mark(markPrice)
	pos.UpdatedAt = now
	return realized, nil
}

func sameSide(a, b decimal.Decimal) bool {
	return (a.GreaterThan(decimal.Zero) && b.GreaterThan(decimal.Zero)) ||
		(a.LessThan(decimal.Zero) && b.LessThan(decimal.Zero))
}

func weightedAvg(existingAvgPrice, existingQty, newPrice, newQty decimal.Decimal) decimal.Decimal {
	if existingQty.IsZero() {
		return newPrice
	}
	return existingAvgPrice.Mul(existingQty).
		Add(newPrice.Mul(newQty)).
		Div(existingQty.Add(newQty))
}
