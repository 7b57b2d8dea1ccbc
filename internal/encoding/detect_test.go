package encoding_test

import (
	"bytes"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tmiguel/saldo/internal/encoding"
)

func decode(t *testing.T, input []byte) string {
	t.Helper()

	r, err := encoding.NewUTF8Reader(bytes.NewReader(input))
	require.NoError(t, err)

	got, err := io.ReadAll(r)
	require.NoError(t, err)

	return string(got)
}

func TestNewUTF8Reader_UTF8Passthrough(t *testing.T) {
	input := "Date;Amount;Description\n2024-01-02;-12,50;Café\n"
	assert.Equal(t, input, decode(t, []byte(input)))
}

func TestNewUTF8Reader_StripsUTF8BOM(t *testing.T) {
	input := append([]byte{0xEF, 0xBB, 0xBF}, []byte("Date;Amount\n")...)
	assert.Equal(t, "Date;Amount\n", decode(t, input))
}

func TestNewUTF8Reader_UTF16LE(t *testing.T) {
	// "Date\n" as UTF-16 LE with BOM.
	input := []byte{0xFF, 0xFE, 'D', 0, 'a', 0, 't', 0, 'e', 0, '\n', 0}
	assert.Equal(t, "Date\n", decode(t, input))
}

func TestNewUTF8Reader_Windows1252(t *testing.T) {
	// "Café" with é as 0xE9, invalid as UTF-8.
	input := []byte{'C', 'a', 'f', 0xE9, ';', '1', '2', '\n'}
	assert.Equal(t, "Café;12\n", decode(t, input))
}

func TestNewUTF8Reader_Empty(t *testing.T) {
	assert.Equal(t, "", decode(t, nil))
}
