package domain

// Discount proration over inventory units.
//
// Line-level adjustments spread evenly across that line item's units;
// order-level adjustments spread across every unit of the order in
// proportion to the unit's pre-discount line price, so a $30 unit absorbs
// three times the share of a $10 unit. Either way the shares must sum
// exactly to the adjustment total: intermediate shares round half up and
// the last unit in stable order absorbs the leftover cents.

// UnitAmounts computes the discount-adjusted price of every inventory unit
// of the order, keyed by unit ID. Pure and deterministic for a given order
// state.
func UnitAmounts(o *Order) map[string]int64 {
	units := o.Units()
	amounts := make(map[string]int64, len(units))

	// Start from the unit's line price, minus its even share of any
	// line-level discounts.
	for _, li := range o.LineItems {
		lineDiscount := adjustmentTotal(li.Adjustments)
		shares := spreadEvenly(lineDiscount, len(li.Units))
		for i, u := range li.Units {
			amounts[u.ID] = li.Price - shares[i]
		}
	}

	// Order-level discounts spread proportionally to unit price.
	orderDiscount := adjustmentTotal(o.Adjustments)
	if orderDiscount > 0 && len(units) > 0 {
		var total int64
		weights := make([]int64, len(units))
		for i, u := range units {
			weights[i] = o.LineItemByID(u.LineItemID).Price
			total += weights[i]
		}
		for i, share := range spreadByWeight(orderDiscount, weights, total) {
			amounts[units[i].ID] -= share
		}
	}

	return amounts
}

// PriceAfterDiscounts returns the discount-adjusted price of a single
// inventory unit of the order.
func PriceAfterDiscounts(o *Order, unitID string) int64 {
	return UnitAmounts(o)[unitID]
}

// ComputeReturnedAmount sums the discount-adjusted prices of the given
// inventory units.
func ComputeReturnedAmount(o *Order, unitIDs []string) int64 {
	amounts := UnitAmounts(o)
	var sum int64
	for _, id := range unitIDs {
		sum += amounts[id]
	}
	return sum
}

// adjustmentTotal returns the absolute value of the summed (negative)
// adjustment amounts.
func adjustmentTotal(adjs []Adjustment) int64 {
	var sum int64
	for _, a := range adjs {
		sum += a.Amount
	}
	if sum < 0 {
		sum = -sum
	}
	return sum
}

// spreadEvenly splits total into n equal shares; the last share absorbs
// the rounding remainder so the shares sum exactly to total.
func spreadEvenly(total int64, n int) []int64 {
	shares := make([]int64, n)
	if n == 0 || total == 0 {
		return shares
	}
	per := total / int64(n)
	var assigned int64
	for i := 0; i < n-1; i++ {
		shares[i] = per
		assigned += per
	}
	shares[n-1] = total - assigned
	return shares
}

// spreadByWeight splits total proportionally to the given weights, rounding
// each share half up; the last share absorbs the remainder so the shares
// sum exactly to total. Intermediate shares are capped at whatever of the
// total is still unassigned, so the remainder can never go negative: no
// unit is ever discounted by more than its share of the total.
func spreadByWeight(total int64, weights []int64, weightSum int64) []int64 {
	shares := make([]int64, len(weights))
	if len(weights) == 0 || total == 0 || weightSum == 0 {
		return shares
	}
	var assigned int64
	for i, w := range weights {
		if i == len(weights)-1 {
			shares[i] = total - assigned
			break
		}
		share := (total*w + weightSum/2) / weightSum
		if remaining := total - assigned; share > remaining {
			share = remaining
		}
		shares[i] = share
		assigned += share
	}
	return shares
}
