package statement_test

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tmiguel/saldo/internal/importer/statement"
)

func TestParse_SemicolonSingleAmount(t *testing.T) {
	// Preamble rows above the header and a running-total footer below the
	// data, as real exports have.
	input := strings.Join([]string{
		"Conta: PT50 0000 0000 0000 0000 0000 0",
		"Data mov.;Descrição;Montante",
		"02-01-2024;Café;-12,50",
		"03-01-2024;Ordenado;1.500,00",
		";Saldo final;1.487,50",
	}, "\n")

	candidates, err := statement.NewParser().Parse(strings.NewReader(input))
	require.NoError(t, err)
	require.Len(t, candidates, 2)

	assert.Equal(t, time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC), candidates[0].Date)
	assert.Equal(t, int64(-1250), candidates[0].Amount)
	assert.Equal(t, "Café", candidates[0].Description)
	assert.Empty(t, candidates[0].ExternalID)

	assert.Equal(t, int64(150000), candidates[1].Amount)
	assert.Equal(t, "Ordenado", candidates[1].Description)
}

func TestParse_CommaSplitDebitCredit(t *testing.T) {
	input := strings.Join([]string{
		"Date,Description,Debit,Credit,Reference",
		"2024-01-02,Coffee,12.50,,tx-001",
		"2024-01-03,Salary,,1500.00,tx-002",
		"2024-01-04,Fee waiver,,,tx-003",
	}, "\n")

	candidates, err := statement.NewParser().Parse(strings.NewReader(input))
	require.NoError(t, err)
	require.Len(t, candidates, 2, "a row with neither debit nor credit is skipped")

	assert.Equal(t, int64(-1250), candidates[0].Amount, "debit columns are unsigned; the sign comes from the column")
	assert.Equal(t, "tx-001", candidates[0].ExternalID)

	assert.Equal(t, int64(150000), candidates[1].Amount)
	assert.Equal(t, "tx-002", candidates[1].ExternalID)
}

func TestParse_NoHeader(t *testing.T) {
	input := "foo;bar\n1;2\n"

	_, err := statement.NewParser().Parse(strings.NewReader(input))
	assert.Error(t, err)
}

func TestParse_BadAmountFails(t *testing.T) {
	input := "Date;Description;Amount\n2024-01-02;Coffee;twelve\n"

	_, err := statement.NewParser().Parse(strings.NewReader(input))
	assert.Error(t, err)
}

func TestParse_Windows1252Input(t *testing.T) {
	// "Descrição" with ç=0xE7 ã=0xE3, invalid as UTF-8, must still match
	// the description column synonym.
	header := []byte("Data mov.;Descri\xe7\xe3o;Montante\n")
	row := []byte("02-01-2024;Caf\xe9;-5,00\n")

	candidates, err := statement.NewParser().Parse(strings.NewReader(string(header) + string(row)))
	require.NoError(t, err)
	require.Len(t, candidates, 1)
	assert.Equal(t, "Café", candidates[0].Description)
	assert.Equal(t, int64(-500), candidates[0].Amount)
}
