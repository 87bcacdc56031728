package domain

import (
	"fmt"
	"sort"
	"time"

	"github.com/shopspring/decimal"
)

// CalculationInput holds everything the calculator needs. It is assembled by
// the caller; Calculate never reads storage.
type CalculationInput struct {
	Property       *Property
	Start          time.Time
	End            time.Time
	Approach       Approach
	MeterChains    []MeterChain
	FixedUtilities []*FixedUtility
	Occupancy      []OccupancyInterval
}

// Calculation is the itemized result of a settlement calculation.
type Calculation struct {
	PropertyID  string
	Period      Period
	Approach    Approach
	Occupancy   Occupancy
	Items       []SettlementItem
	Shares      []SettlementShare
	ItemsTotal  decimal.Decimal
	TotalAmount decimal.Decimal
	Warnings    []Warning
}

// allocation is an item's unrounded contribution to one tenant.
type allocation map[string]decimal.Decimal

// Calculate apportions the property's metered and fixed costs for a period
// among its tenants. Item amounts are rounded to cents first; per-tenant
// totals are then rounded half-up and the leftover cents are handed out by
// largest remainder so the shares add up to the item total exactly.
func Calculate(in CalculationInput) (*Calculation, error) {
	period, err := NewPeriod(in.Start, in.End)
	if err != nil {
		return nil, err
	}

	approach := in.Approach
	if approach == "" {
		approach = ApproachMonthly
	}
	if !approach.IsValid() {
		return nil, Validation(EntitySettlement, fmt.Sprintf("unknown approach %q", in.Approach))
	}

	calc := &Calculation{
		Period:     period,
		Approach:   approach,
		ItemsTotal: decimal.Zero,
	}

	if in.Property != nil {
		calc.PropertyID = in.Property.ID
		if !in.Property.IsActive {
			calc.warn(WarningInactiveProperty, EntityProperty, in.Property.ID, "property is inactive")
		}
	}

	occ := ResolveOccupancy(period, in.Occupancy)
	calc.Occupancy = occ
	if occ.Headcount() == 0 {
		calc.warn(WarningNoOccupancy, EntityProperty, calc.PropertyID,
			fmt.Sprintf("no tenant occupied the property during %s", period))
	}

	raw := make(allocation)

	for _, chain := range in.MeterChains {
		item, ok := calc.meterItem(chain, period)
		if !ok {
			continue
		}
		calc.addItem(item, period, raw)
	}

	utilities := append([]*FixedUtility(nil), in.FixedUtilities...)
	sort.SliceStable(utilities, func(i, j int) bool { return utilities[i].ID < utilities[j].ID })

	for _, u := range utilities {
		active, ok := u.ActiveWithin(period)
		if !ok {
			continue
		}
		calc.addItem(fixedItem(u, period, active, occ.Headcount()), active, raw)
	}

	calc.Shares = allocateShares(occ, raw, calc.ItemsTotal)
	calc.TotalAmount = decimal.Zero
	for _, sh := range calc.Shares {
		calc.TotalAmount = calc.TotalAmount.Add(sh.CalculatedAmount)
	}

	return calc, nil
}

func (c *Calculation) warn(code WarningCode, entity, id, msg string) {
	c.Warnings = append(c.Warnings, Warning{Code: code, Message: msg, Entity: entity, EntityID: id})
}

// meterItem prices the chain's usage segment by segment, since a meter
// exchange may change the unit price.
func (c *Calculation) meterItem(chain MeterChain, period Period) (SettlementItem, bool) {
	head := chain.Head()
	if head == nil {
		return SettlementItem{}, false
	}

	usage := UsageBetween(chain, period)
	c.Warnings = append(c.Warnings, usage.Warnings...)

	amount := decimal.Zero
	priced := 0
	for _, seg := range usage.Segments {
		if seg.PricePerUnit == nil {
			c.warn(WarningMissingPrice, EntityMeter, seg.MeterID,
				fmt.Sprintf("meter %s has no price per unit; %s %s not billed", seg.MeterID, seg.Usage, head.Unit))
			continue
		}
		amount = amount.Add(seg.Usage.Mul(*seg.PricePerUnit))
		priced++
	}

	if len(usage.Segments) == 0 && head.PricePerUnit == nil {
		c.warn(WarningMissingPrice, EntityMeter, head.ID, fmt.Sprintf("meter %s has no price per unit", head.Number))
	}

	if len(usage.Segments) > 0 && priced == 0 {
		return SettlementItem{}, false
	}

	return SettlementItem{
		SourceType:  ItemSourceMeter,
		SourceID:    head.ID,
		Description: fmt.Sprintf("%s meter %s", head.UtilityType, head.Number),
		UtilityType: head.UtilityType,
		SplitMethod: SplitByDays,
		Quantity:    usage.Total,
		Unit:        head.Unit,
		UnitPrice:   head.PricePerUnit,
		Amount:      amount.Round(MoneyScale),
	}, true
}

func fixedItem(u *FixedUtility, period, active Period, headcount int) SettlementItem {
	cost := u.PeriodCost
	quantity := decimal.NewFromInt(1)
	unit := "period"

	if u.IsPerPerson {
		quantity = decimal.NewFromInt(int64(headcount))
		unit = "person"
		cost = cost.Mul(quantity)
	}

	if u.SplitMethod == SplitByDays && active.Days() < period.Days() {
		cost = cost.Mul(decimal.NewFromInt(int64(active.Days()))).
			Div(decimal.NewFromInt(int64(period.Days())))
	}

	price := u.PeriodCost

	return SettlementItem{
		SourceType:  ItemSourceFixedUtility,
		SourceID:    u.ID,
		Description: u.Name,
		UtilityType: u.Type,
		SplitMethod: u.SplitMethod,
		Quantity:    quantity,
		Unit:        unit,
		UnitPrice:   &price,
		Amount:      cost.Round(MoneyScale),
	}
}

// addItem records the item and spreads its rounded amount over the tenants
// present during window.
func (c *Calculation) addItem(item SettlementItem, window Period, raw allocation) {
	c.Items = append(c.Items, item)
	c.ItemsTotal = c.ItemsTotal.Add(item.Amount)

	if c.Occupancy.Headcount() == 0 || item.Amount.IsZero() {
		return
	}

	switch item.SplitMethod {
	case SplitEqual, SplitByPerson:
		n := decimal.NewFromInt(int64(c.Occupancy.Headcount()))
		for _, span := range c.Occupancy.Spans {
			raw[span.TenantID] = raw[span.TenantID].Add(item.Amount.DivRound(n, WeightPrecision))
		}
	default:
		weights, total := dayWeights(c.Occupancy, window)
		if total.IsZero() {
			weights, total = dayWeights(c.Occupancy, c.Occupancy.Period)
		}
		for id, w := range weights {
			raw[id] = raw[id].Add(item.Amount.Mul(w).DivRound(total, WeightPrecision))
		}
	}
}

// dayWeights sums each tenant's day weights inside window.
func dayWeights(occ Occupancy, window Period) (map[string]decimal.Decimal, decimal.Decimal) {
	weights := make(map[string]decimal.Decimal)
	total := decimal.Zero
	for _, day := range occ.Days {
		if !window.Contains(day.Day) {
			continue
		}
		for _, s := range day.Shares {
			weights[s.TenantID] = weights[s.TenantID].Add(s.Weight)
			total = total.Add(s.Weight)
		}
	}
	return weights, total
}

// allocateShares rounds per-tenant totals half-up and distributes the
// difference to target one cent at a time, largest remainder first. Ties go
// to the lower tenant ID.
func allocateShares(occ Occupancy, raw allocation, target decimal.Decimal) []SettlementShare {
	if len(occ.Spans) == 0 {
		return nil
	}

	type entry struct {
		share     SettlementShare
		remainder decimal.Decimal
	}

	entries := make([]*entry, 0, len(occ.Spans))
	sum := decimal.Zero
	for _, span := range occ.Spans {
		amount := raw[span.TenantID]
		rounded := amount.Round(MoneyScale)
		sum = sum.Add(rounded)
		entries = append(entries, &entry{
			share: SettlementShare{
				TenantID:         span.TenantID,
				OccupiedDays:     span.OccupiedDays,
				Fraction:         span.Fraction,
				CalculatedAmount: rounded,
			},
			remainder: amount.Sub(rounded),
		})
	}

	cent := decimal.New(1, -MoneyScale)
	cents := target.Sub(sum).Div(cent).IntPart()

	if cents != 0 {
		order := append([]*entry(nil), entries...)
		sort.SliceStable(order, func(i, j int) bool {
			a, b := order[i], order[j]
			if !a.remainder.Equal(b.remainder) {
				if cents > 0 {
					return a.remainder.GreaterThan(b.remainder)
				}
				return a.remainder.LessThan(b.remainder)
			}
			return a.share.TenantID < b.share.TenantID
		})

		step := cent
		if cents < 0 {
			step = cent.Neg()
			cents = -cents
		}
		for i := int64(0); i < cents; i++ {
			e := order[int(i)%len(order)]
			e.share.CalculatedAmount = e.share.CalculatedAmount.Add(step)
		}
	}

	shares := make([]SettlementShare, 0, len(entries))
	for _, e := range entries {
		e.share.FinalAmount = e.share.CalculatedAmount
		shares = append(shares, e.share)
	}
	return shares
}
