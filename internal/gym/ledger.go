package gym

import (
	"github.com/shopspring/decimal"
)

const (
	CategoryStimulant   = "stimulant"
	CategoryRefill      = "refill"
	CategoryDiabetesDay = "diabetes_day"

	ItemStimulant    = "xanax"
	ItemRefill       = "points_refill"
	ItemRefillCoupon = "refill_coupon"
	ItemEgg          = "lucky_egg"
)

type PriceTable interface {
	Price(itemID string) (decimal.Decimal, bool)
}

type StaticPrices map[string]decimal.Decimal

func (p StaticPrices) Price(itemID string) (decimal.Decimal, bool) {
	v, ok := p[itemID]
	return v, ok
}

func PricesFromFloats(in map[string]float64) StaticPrices {
	out := make(StaticPrices, len(in))
	for k, v := range in {
		if !finite(v) {
			continue
		}
		out[k] = decimal.NewFromFloat(v)
	}
	return out
}

// CostLine is the running total for one category/item pair. Priced is false when
// the price table had no entry for the item; Cost is then zero and meaningless.
type CostLine struct {
	Category string          `json:"category"`
	ItemID   string          `json:"item_id"`
	Units    int64           `json:"units"`
	Cost     decimal.Decimal `json:"cost"`
	Priced   bool            `json:"priced"`
}

type CostLedger struct {
	Lines            []CostLine      `json:"lines"`
	LossReviveUnits  int64           `json:"loss_revive_units"`
	LossReviveIncome decimal.Decimal `json:"loss_revive_income"`
	TotalCost        decimal.Decimal `json:"total_cost"`
	Net              decimal.Decimal `json:"net"`
}

type DayCosts struct {
	Spent  decimal.Decimal `json:"spent"`
	Earned decimal.Decimal `json:"earned"`
}

type charge struct {
	category string
	itemID   string
	units    int64
}

type ledger struct {
	prices PriceTable
	lines  []CostLine
	index  map[string]int
	units  int64
	income decimal.Decimal
	spent  decimal.Decimal
}

func newLedger(prices PriceTable) *ledger {
	return &ledger{
		prices: prices,
		index:  make(map[string]int),
		income: decimal.Zero,
		spent:  decimal.Zero,
	}
}

func (l *ledger) charge(c charge) decimal.Decimal {
	if c.units <= 0 {
		return decimal.Zero
	}
	key := c.category + "\x00" + c.itemID
	i, ok := l.index[key]
	if !ok {
		_, priced := l.prices.Price(c.itemID)
		l.lines = append(l.lines, CostLine{Category: c.category, ItemID: c.itemID, Cost: decimal.Zero, Priced: priced})
		i = len(l.lines) - 1
		l.index[key] = i
	}
	line := &l.lines[i]
	line.Units += c.units
	price, priced := l.prices.Price(c.itemID)
	if !priced {
		return decimal.Zero
	}
	cost := price.Mul(decimal.NewFromInt(c.units))
	line.Cost = line.Cost.Add(cost)
	l.spent = l.spent.Add(cost)
	return cost
}

func (l *ledger) earn(units int64, price decimal.Decimal) decimal.Decimal {
	if units <= 0 {
		return decimal.Zero
	}
	amount := price.Mul(decimal.NewFromInt(units))
	l.units += units
	l.income = l.income.Add(amount)
	return amount
}

func (l *ledger) result() *CostLedger {
	lines := make([]CostLine, len(l.lines))
	copy(lines, l.lines)
	return &CostLedger{
		Lines:            lines,
		LossReviveUnits:  l.units,
		LossReviveIncome: l.income,
		TotalCost:        l.spent,
		Net:              l.income.Sub(l.spent),
	}
}
