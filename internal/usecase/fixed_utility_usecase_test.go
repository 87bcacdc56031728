package usecase_test

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iho/rentledger/internal/domain"
	"github.com/iho/rentledger/internal/usecase"
)

func TestFixedUtilityUseCase_Create(t *testing.T) {
	tests := []struct {
		name      string
		input     usecase.CreateFixedUtilityInput
		errorType error
	}{
		{
			name:  "per person cleaning",
			input: usecase.CreateFixedUtilityInput{PropertyID: propertyID, Type: domain.UtilityOther, Name: "Cleaning", PeriodCost: dec("12.50"), SplitMethod: domain.SplitByPerson, IsPerPerson: true},
		},
		{
			name:      "unknown split method",
			input:     usecase.CreateFixedUtilityInput{PropertyID: propertyID, Type: domain.UtilityInternet, Name: "Fiber", PeriodCost: dec("40"), SplitMethod: "BY_AREA"},
			errorType: domain.ErrValidation,
		},
		{
			name:      "negative cost",
			input:     usecase.CreateFixedUtilityInput{PropertyID: propertyID, Type: domain.UtilityInternet, Name: "Fiber", PeriodCost: dec("-1"), SplitMethod: domain.SplitEqual},
			errorType: domain.ErrValidation,
		},
		{
			name:      "blank name",
			input:     usecase.CreateFixedUtilityInput{PropertyID: propertyID, Type: domain.UtilityGarbage, Name: "  ", PeriodCost: dec("10"), SplitMethod: domain.SplitEqual},
			errorType: domain.ErrValidation,
		},
		{
			name:      "foreign property",
			input:     usecase.CreateFixedUtilityInput{PropertyID: "prop-2", Type: domain.UtilityGarbage, Name: "Bins", PeriodCost: dec("10"), SplitMethod: domain.SplitEqual},
			errorType: domain.ErrPropertyNotFound,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)

			utility, err := f.utilityUC.CreateFixedUtility(ownerCtx(), tt.input)
			if tt.errorType != nil {
				assert.True(t, errors.Is(err, tt.errorType), "expected %v, got %v", tt.errorType, err)
				return
			}

			require.NoError(t, err)
			assert.True(t, utility.IsActive)
			assert.False(t, utility.ActiveFrom.IsZero(), "active from defaults to today")
			assert.Equal(t, domain.TruncateDay(utility.ActiveFrom), utility.ActiveFrom)
		})
	}
}

func TestFixedUtilityUseCase_Deactivate(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	f.turnover(t)

	utilities, err := f.utilityUC.ListFixedUtilities(ownerCtx(), propertyID, false)
	require.NoError(t, err)
	require.Len(t, utilities, 1)
	id := utilities[0].ID

	_, err = f.utilityUC.DeactivateFixedUtility(strangerCtx(), id, day(2024, 4, 16))
	assert.True(t, errors.Is(err, domain.ErrFixedUtilityNotFound), "got %v", err)

	utility, err := f.utilityUC.DeactivateFixedUtility(ownerCtx(), id, day(2024, 4, 16))
	require.NoError(t, err)
	assert.False(t, utility.IsActive)
	require.NotNil(t, utility.DeactivatedAt)
	assert.Equal(t, day(2024, 4, 16), *utility.DeactivatedAt)

	_, err = f.utilityUC.DeactivateFixedUtility(ownerCtx(), id, day(2024, 5, 1))
	assert.True(t, errors.Is(err, domain.ErrUtilityInactive), "got %v", err)

	active, err := f.utilityUC.ListFixedUtilities(ownerCtx(), propertyID, false)
	require.NoError(t, err)
	assert.Empty(t, active)

	all, err := f.utilityUC.ListFixedUtilities(ownerCtx(), propertyID, true)
	require.NoError(t, err)
	assert.Len(t, all, 1)

	// April still bills the first half of the month.
	calc, err := f.calculationUC.Preview(ownerCtx(), april())
	require.NoError(t, err)
	require.Len(t, calc.Items, 1)
	assert.True(t, calc.Items[0].Amount.Equal(dec("30.00")), "got %s", calc.Items[0].Amount)
	assert.True(t, calc.TotalAmount.Equal(dec("30.00")))

	// May does not.
	calc, err = f.calculationUC.Preview(ownerCtx(), usecase.CalculationRequest{PropertyID: propertyID, Start: day(2024, 5, 1), End: day(2024, 6, 1)})
	require.NoError(t, err)
	assert.Empty(t, calc.Items)
}
