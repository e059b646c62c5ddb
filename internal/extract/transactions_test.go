package extract

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseBasicTransactionLine(t *testing.T) {
	txs := NewTransactionParser().Parse("03/01/23 COFFEE SHOP PURCHASE -4.50")

	require.Len(t, txs, 1)
	tx := txs[0]
	assert.Equal(t, "2023-03-01", tx.Date)
	assert.Equal(t, "COFFEE SHOP PURCHASE", tx.Description)
	assert.InDelta(t, -4.50, tx.Amount, 1e-9)
	assert.Greater(t, tx.Confidence, 0.8)
}

func TestParseDateFormats(t *testing.T) {
	cases := []struct {
		line string
		date string
	}{
		{"03/01/23 COFFEE -4.50", "2023-03-01"},
		{"03/01/2023 COFFEE -4.50", "2023-03-01"},
		{"12-31-22 YEAR END FEE -10.00", "2022-12-31"},
		{"2023-03-05 PAYROLL DEPOSIT 1500.00", "2023-03-05"},
	}
	p := NewTransactionParser()
	for _, tc := range cases {
		txs := p.Parse(tc.line)
		require.Len(t, txs, 1, "line %q", tc.line)
		assert.Equal(t, tc.date, txs[0].Date, "line %q", tc.line)
	}
}

func TestParseTransactionID(t *testing.T) {
	line := "12/12/22 EZPASS DES:EZPASS REBILL ID:5229569 INDN:JOHN SMITH -240.00"
	txs := NewTransactionParser().Parse(line)

	require.Len(t, txs, 1)
	tx := txs[0]
	assert.Equal(t, "5229569", tx.TransactionID)
	assert.Equal(t, "2022-12-12", tx.Date)
	assert.InDelta(t, -240.00, tx.Amount, 1e-9)
	assert.Equal(t, 1.0, tx.Confidence)
}

func TestParseAmountWithSeparators(t *testing.T) {
	txs := NewTransactionParser().Parse("01/15/23 WIRE TRANSFER $1,234.56")

	require.Len(t, txs, 1)
	assert.InDelta(t, 1234.56, txs[0].Amount, 1e-9)
}

func TestParseSkipsNonTransactionLines(t *testing.T) {
	text := `ACME BANK STATEMENT
Date Description Amount
Account ending in 4321

03/01/23 COFFEE SHOP PURCHASE -4.50
This line is ordinary prose with no numbers of interest.
TOTAL 123.45
`
	txs := NewTransactionParser().Parse(text)

	require.Len(t, txs, 1)
	assert.Equal(t, "COFFEE SHOP PURCHASE", txs[0].Description)
}

func TestParseRejectsImplausibleAmount(t *testing.T) {
	txs := NewTransactionParser().Parse("03/01/23 BOGUS ROW 99999999.00")
	assert.Empty(t, txs)
}

func TestParseNeverAborts(t *testing.T) {
	text := "garbage\n\n03/01/23 LUNCH -12.00\nmore garbage 1/2/3\n04/01/23 DINNER -30.00"
	txs := NewTransactionParser().Parse(text)

	require.Len(t, txs, 2)
	assert.Equal(t, "LUNCH", txs[0].Description)
	assert.Equal(t, "DINNER", txs[1].Description)
	assert.Equal(t, 2, txs[0].LineNumber)
	assert.Equal(t, 4, txs[1].LineNumber)
}

func TestStructuredText(t *testing.T) {
	txs := NewTransactionParser().Parse("03/01/23 COFFEE SHOP PURCHASE -4.50")
	require.Len(t, txs, 1)

	got := txs[0].StructuredText()
	assert.Equal(t,
		"Date: 2023-03-01 | Description: COFFEE SHOP PURCHASE | Amount: -4.5 | Raw: 03/01/23 COFFEE SHOP PURCHASE -4.50",
		got)
}
