package journals

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

func validInput() PostingInput {
	return PostingInput{
		Date:         time.Date(2026, 3, 15, 0, 0, 0, 0, time.UTC),
		Reference:    "INV-9001",
		SourceModule: "documents",
		SourceID:     uuid.New(),
		PostedBy:     7,
		Lines: []PostingLineInput{
			{Account: "1400", Debit: 1000},
			{Account: "6000", Debit: 250},
			{Account: "2100", Credit: 1250},
		},
	}
}

func TestPostingInputValidate(t *testing.T) {
	require.NoError(t, validInput().Validate())

	in := validInput()
	in.Date = time.Time{}
	require.Error(t, in.Validate())

	in = validInput()
	in.Lines = in.Lines[:1]
	require.ErrorIs(t, in.Validate(), ErrTooFewLines)

	in = validInput()
	in.Lines[0].Account = ""
	require.Error(t, in.Validate())

	in = validInput()
	in.Lines[0].Debit = -5
	require.Error(t, in.Validate())

	in = validInput()
	in.Lines[0].Credit = 10
	require.Error(t, in.Validate())

	in = validInput()
	in.Lines[2].Credit = 1200
	require.ErrorIs(t, in.Validate(), ErrUnbalanced)

	in = validInput()
	in.SourceModule = ""
	require.Error(t, in.Validate())

	in = validInput()
	in.SourceID = uuid.Nil
	require.Error(t, in.Validate())
}

func TestBalancedComparesCents(t *testing.T) {
	require.True(t, Balanced([]PostingLineInput{
		{Account: "1400", Debit: 0.1},
		{Account: "1400", Debit: 0.2},
		{Account: "2100", Credit: 0.3},
	}))
	require.False(t, Balanced([]PostingLineInput{
		{Account: "1400", Debit: 100},
		{Account: "2100", Credit: 100.01},
	}))
}

func TestCents(t *testing.T) {
	require.Equal(t, int64(125000), Cents(1250.0))
	require.Equal(t, int64(30), Cents(0.1+0.2))
	require.Equal(t, int64(-1), Cents(-0.005))
}

func TestFormatAmount(t *testing.T) {
	require.Equal(t, "1,250.00", FormatAmount(1250))
	require.Equal(t, "0.50", FormatAmount(0.5))
}
