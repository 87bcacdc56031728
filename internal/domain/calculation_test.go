package domain

import (
	"errors"
	"fmt"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func activeProperty() *Property {
	return &Property{ID: "p-1", OwnerID: "owner-1", Name: "Flat 4", IsActive: true}
}

func shareOf(t *testing.T, calc *Calculation, tenantID string) SettlementShare {
	t.Helper()
	for _, s := range calc.Shares {
		if s.TenantID == tenantID {
			return s
		}
	}
	t.Fatalf("no share for tenant %s", tenantID)
	return SettlementShare{}
}

func assertBalanced(t *testing.T, calc *Calculation) {
	t.Helper()
	sum := decimal.Zero
	for _, s := range calc.Shares {
		sum = sum.Add(s.CalculatedAmount)
		require.Truef(t, s.CalculatedAmount.Equal(s.CalculatedAmount.Round(MoneyScale)), "share %s has sub-cent amount %s", s.TenantID, s.CalculatedAmount)
	}
	require.Truef(t, sum.Equal(calc.TotalAmount), "shares %s != total %s", sum, calc.TotalAmount)
	if len(calc.Shares) > 0 {
		require.Truef(t, calc.TotalAmount.Equal(calc.ItemsTotal), "total %s != items %s", calc.TotalAmount, calc.ItemsTotal)
	}
}

func TestCalculate_SingleTenantMeteredElectricity(t *testing.T) {
	t.Parallel()

	meter := &Meter{ID: "m-1", UtilityType: UtilityElectricity, Number: "E-1", Unit: "kWh", PricePerUnit: ptr(dec("0.80"))}
	calc, err := Calculate(CalculationInput{
		Property: activeProperty(),
		Start:    Date(2024, 1, 1),
		End:      Date(2024, 2, 1),
		Approach: ApproachMonthly,
		MeterChains: []MeterChain{{{Meter: meter, Readings: []*MeterReading{
			reading("m-1", "100", Date(2024, 1, 1), ReadingRegular),
			reading("m-1", "180", Date(2024, 2, 1), ReadingRegular),
		}}}},
		Occupancy: []OccupancyInterval{{TenantID: "t-1", Start: Date(2023, 6, 1)}},
	})
	require.NoError(t, err)

	require.Len(t, calc.Items, 1)
	assert.True(t, calc.Items[0].Amount.Equal(dec("64.00")), "item %s", calc.Items[0].Amount)
	assert.True(t, calc.Items[0].Quantity.Equal(dec("80")))
	assert.Equal(t, ItemSourceMeter, calc.Items[0].SourceType)
	assert.True(t, shareOf(t, calc, "t-1").CalculatedAmount.Equal(dec("64.00")))
	assert.True(t, calc.TotalAmount.Equal(dec("64.00")))
	assert.Empty(t, calc.Warnings)
	assertBalanced(t, calc)
}

func TestCalculate_TurnoverByDays(t *testing.T) {
	t.Parallel()

	calc, err := Calculate(CalculationInput{
		Property: activeProperty(),
		Start:    Date(2024, 4, 1),
		End:      Date(2024, 5, 1),
		FixedUtilities: []*FixedUtility{{
			ID: "fu-1", Type: UtilityInternet, Name: "Fiber", PeriodCost: dec("60.00"),
			SplitMethod: SplitByDays, IsActive: true, ActiveFrom: Date(2023, 1, 1),
		}},
		Occupancy: []OccupancyInterval{
			{TenantID: "x", Start: Date(2024, 1, 1), End: ptr(Date(2024, 4, 16))},
			{TenantID: "y", Start: Date(2024, 4, 16)},
		},
	})
	require.NoError(t, err)

	assert.True(t, shareOf(t, calc, "x").CalculatedAmount.Equal(dec("30.00")))
	assert.True(t, shareOf(t, calc, "y").CalculatedAmount.Equal(dec("30.00")))
	assert.Equal(t, ApproachMonthly, calc.Approach)
	assertBalanced(t, calc)
}

func TestCalculate_ExchangedMeter(t *testing.T) {
	t.Parallel()

	exchange := Date(2024, 1, 15)
	price := ptr(dec("2"))
	oldMeter := &Meter{ID: "m-old", UtilityType: UtilityWater, Number: "W-1", Unit: "m3", PricePerUnit: price, RetiredAt: &exchange}
	newMeter := &Meter{ID: "m-new", UtilityType: UtilityWater, Number: "W-2", Unit: "m3", PricePerUnit: price, ReplacesID: ptr("m-old")}

	calc, err := Calculate(CalculationInput{
		Property: activeProperty(),
		Start:    Date(2024, 1, 1),
		End:      Date(2024, 2, 1),
		MeterChains: []MeterChain{{
			{Meter: oldMeter, Readings: []*MeterReading{
				reading("m-old", "450", Date(2024, 1, 1), ReadingRegular),
				reading("m-old", "500", exchange, ReadingFinal),
			}},
			{Meter: newMeter, Readings: []*MeterReading{
				reading("m-new", "0", exchange, ReadingInitial),
				reading("m-new", "40", Date(2024, 2, 1), ReadingRegular),
			}},
		}},
		Occupancy: []OccupancyInterval{{TenantID: "t-1", Start: Date(2023, 1, 1)}},
	})
	require.NoError(t, err)

	require.Len(t, calc.Items, 1)
	assert.True(t, calc.Items[0].Quantity.Equal(dec("90")))
	assert.True(t, calc.Items[0].Amount.Equal(dec("180")))
	assert.Equal(t, "m-new", calc.Items[0].SourceID)
	assertBalanced(t, calc)
}

func TestCalculate_EqualSplitReconcilesCents(t *testing.T) {
	t.Parallel()

	calc, err := Calculate(CalculationInput{
		Property: activeProperty(),
		Start:    Date(2024, 4, 1),
		End:      Date(2024, 5, 1),
		FixedUtilities: []*FixedUtility{{
			ID: "fu-1", Type: UtilityGarbage, Name: "Waste", PeriodCost: dec("100.00"),
			SplitMethod: SplitEqual, IsActive: true, ActiveFrom: Date(2023, 1, 1),
		}},
		Occupancy: []OccupancyInterval{
			{TenantID: "a", Start: Date(2024, 1, 1)},
			{TenantID: "b", Start: Date(2024, 1, 1)},
			{TenantID: "c", Start: Date(2024, 4, 29)},
		},
	})
	require.NoError(t, err)

	assert.True(t, shareOf(t, calc, "a").CalculatedAmount.Equal(dec("33.34")))
	assert.True(t, shareOf(t, calc, "b").CalculatedAmount.Equal(dec("33.33")))
	assert.True(t, shareOf(t, calc, "c").CalculatedAmount.Equal(dec("33.33")))
	assertBalanced(t, calc)
}

func TestCalculate_PerPersonUtility(t *testing.T) {
	t.Parallel()

	calc, err := Calculate(CalculationInput{
		Property: activeProperty(),
		Start:    Date(2024, 4, 1),
		End:      Date(2024, 5, 1),
		FixedUtilities: []*FixedUtility{{
			ID: "fu-1", Type: UtilityOther, Name: "Cleaning", PeriodCost: dec("12.50"),
			SplitMethod: SplitByPerson, IsPerPerson: true, IsActive: true, ActiveFrom: Date(2023, 1, 1),
		}},
		Occupancy: []OccupancyInterval{
			{TenantID: "a", Start: Date(2024, 1, 1)},
			{TenantID: "b", Start: Date(2024, 4, 20)},
		},
	})
	require.NoError(t, err)

	require.Len(t, calc.Items, 1)
	assert.True(t, calc.Items[0].Amount.Equal(dec("25.00")))
	assert.True(t, calc.Items[0].Quantity.Equal(dec("2")))
	assert.True(t, shareOf(t, calc, "a").CalculatedAmount.Equal(dec("12.50")))
	assert.True(t, shareOf(t, calc, "b").CalculatedAmount.Equal(dec("12.50")))
}

func TestCalculate_UtilityDeactivatedMidPeriod(t *testing.T) {
	t.Parallel()

	deactivated := Date(2024, 4, 16)
	calc, err := Calculate(CalculationInput{
		Property: activeProperty(),
		Start:    Date(2024, 4, 1),
		End:      Date(2024, 5, 1),
		FixedUtilities: []*FixedUtility{
			{ID: "fu-1", Type: UtilityInternet, Name: "Old ISP", PeriodCost: dec("60"), SplitMethod: SplitByDays, ActiveFrom: Date(2023, 1, 1), DeactivatedAt: &deactivated},
			{ID: "fu-2", Type: UtilityGarbage, Name: "Old bins", PeriodCost: dec("20"), SplitMethod: SplitEqual, ActiveFrom: Date(2023, 1, 1), DeactivatedAt: ptr(Date(2024, 3, 1))},
		},
		Occupancy: []OccupancyInterval{{TenantID: "t-1", Start: Date(2023, 1, 1)}},
	})
	require.NoError(t, err)

	require.Len(t, calc.Items, 1, "utility deactivated before the period is excluded")
	assert.True(t, calc.Items[0].Amount.Equal(dec("30.00")))
	assertBalanced(t, calc)
}

func TestCalculate_ByDaysWithinActiveWindow(t *testing.T) {
	t.Parallel()

	// Utility starts on the 16th, when only y lives there.
	calc, err := Calculate(CalculationInput{
		Property: activeProperty(),
		Start:    Date(2024, 4, 1),
		End:      Date(2024, 5, 1),
		FixedUtilities: []*FixedUtility{{
			ID: "fu-1", Type: UtilityHeat, Name: "Heating", PeriodCost: dec("90"),
			SplitMethod: SplitByDays, IsActive: true, ActiveFrom: Date(2024, 4, 16),
		}},
		Occupancy: []OccupancyInterval{
			{TenantID: "x", Start: Date(2024, 1, 1), End: ptr(Date(2024, 4, 16))},
			{TenantID: "y", Start: Date(2024, 4, 16)},
		},
	})
	require.NoError(t, err)

	assert.True(t, calc.Items[0].Amount.Equal(dec("45.00")))
	assert.True(t, shareOf(t, calc, "x").CalculatedAmount.IsZero())
	assert.True(t, shareOf(t, calc, "y").CalculatedAmount.Equal(dec("45.00")))
	assertBalanced(t, calc)
}

func TestCalculate_Warnings(t *testing.T) {
	t.Parallel()

	unpriced := &Meter{ID: "m-1", UtilityType: UtilityGas, Number: "G-1", Unit: "m3"}
	property := activeProperty()
	property.IsActive = false

	calc, err := Calculate(CalculationInput{
		Property: property,
		Start:    Date(2024, 1, 1),
		End:      Date(2024, 2, 1),
		MeterChains: []MeterChain{{{Meter: unpriced, Readings: []*MeterReading{
			reading("m-1", "10", Date(2024, 1, 1), ReadingRegular),
			reading("m-1", "30", Date(2024, 2, 1), ReadingRegular),
		}}}},
		FixedUtilities: []*FixedUtility{{
			ID: "fu-1", Type: UtilityInternet, Name: "Fiber", PeriodCost: dec("40"),
			SplitMethod: SplitEqual, IsActive: true, ActiveFrom: Date(2023, 1, 1),
		}},
	})
	require.NoError(t, err)

	codes := make(map[WarningCode]bool)
	for _, w := range calc.Warnings {
		codes[w.Code] = true
	}
	assert.True(t, codes[WarningInactiveProperty])
	assert.True(t, codes[WarningNoOccupancy])
	assert.True(t, codes[WarningMissingPrice])

	require.Len(t, calc.Items, 1, "unpriced meter produces no item")
	assert.Empty(t, calc.Shares)
	assert.True(t, calc.ItemsTotal.Equal(dec("40")))
	assert.True(t, calc.TotalAmount.IsZero())
}

func TestCalculate_InvalidInput(t *testing.T) {
	t.Parallel()

	_, err := Calculate(CalculationInput{Property: activeProperty(), Start: Date(2024, 2, 1), End: Date(2024, 1, 1)})
	assert.True(t, errors.Is(err, ErrInvalidRange), "got %v", err)

	_, err = Calculate(CalculationInput{Property: activeProperty(), Start: Date(2024, 1, 1), End: Date(2024, 2, 1), Approach: "WEEKLY"})
	assert.True(t, errors.Is(err, ErrValidation), "got %v", err)
}

func TestCalculate_IsDeterministic(t *testing.T) {
	t.Parallel()

	in := CalculationInput{
		Property: activeProperty(),
		Start:    Date(2024, 4, 1),
		End:      Date(2024, 5, 1),
		FixedUtilities: []*FixedUtility{
			{ID: "fu-2", Type: UtilityGarbage, Name: "Waste", PeriodCost: dec("17.03"), SplitMethod: SplitEqual, IsActive: true, ActiveFrom: Date(2023, 1, 1)},
			{ID: "fu-1", Type: UtilityInternet, Name: "Fiber", PeriodCost: dec("49.99"), SplitMethod: SplitByDays, IsActive: true, ActiveFrom: Date(2023, 1, 1)},
		},
		Occupancy: []OccupancyInterval{
			{TenantID: "a", Start: Date(2024, 1, 1)},
			{TenantID: "b", Start: Date(2024, 4, 7), End: ptr(Date(2024, 4, 23))},
			{TenantID: "c", Start: Date(2024, 4, 20)},
		},
	}

	first, err := Calculate(in)
	require.NoError(t, err)
	second, err := Calculate(in)
	require.NoError(t, err)

	assert.Equal(t, first.Items, second.Items)
	assert.Equal(t, first.Shares, second.Shares)
	assertBalanced(t, first)
}

func TestCalculate_SharesAlwaysBalance(t *testing.T) {
	t.Parallel()

	costs := []string{"0.01", "0.05", "10.00", "99.99", "123.45", "1000.01"}
	for i, cost := range costs {
		for tenants := 1; tenants <= 4; tenants++ {
			t.Run(fmt.Sprintf("%s/%d", cost, tenants), func(t *testing.T) {
				var occupancy []OccupancyInterval
				for n := 0; n < tenants; n++ {
					occupancy = append(occupancy, OccupancyInterval{
						TenantID: fmt.Sprintf("t-%d", n),
						Start:    Date(2024, 4, 1+n*3+i),
					})
				}

				calc, err := Calculate(CalculationInput{
					Property: activeProperty(),
					Start:    Date(2024, 4, 1),
					End:      Date(2024, 5, 1),
					FixedUtilities: []*FixedUtility{
						{ID: "fu-days", Type: UtilityHeat, Name: "Heat", PeriodCost: dec(cost), SplitMethod: SplitByDays, IsActive: true, ActiveFrom: Date(2023, 1, 1)},
						{ID: "fu-eq", Type: UtilityGarbage, Name: "Waste", PeriodCost: dec(cost), SplitMethod: SplitEqual, IsActive: true, ActiveFrom: Date(2023, 1, 1)},
					},
					Occupancy: occupancy,
				})
				require.NoError(t, err)
				assertBalanced(t, calc)
			})
		}
	}
}
