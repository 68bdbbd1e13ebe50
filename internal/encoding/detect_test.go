package encoding_test

import (
	"bytes"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MrJamesThe3rd/gridport/internal/encoding"
)

func TestNewUTF8Reader_UTF8Passthrough(t *testing.T) {
	// Valid UTF-8 should pass through unchanged.
	input := "date;category;value\n2024-01-01;Café;12.50\n"
	r, err := encoding.NewUTF8Reader(bytes.NewReader([]byte(input)))
	require.NoError(t, err)

	got, err := io.ReadAll(r)
	require.NoError(t, err)
	assert.Equal(t, input, string(got))
}

func TestNewUTF8Reader_Latin1(t *testing.T) {
	// Windows-1252 encoded "Descrição\n".
	// In Windows-1252: ç = 0xE7, ã = 0xE3
	latin1Bytes := []byte{
		'D', 'e', 's', 'c', 'r', 'i', 0xE7, 0xE3, 'o', '\n',
	}

	r, err := encoding.NewUTF8Reader(bytes.NewReader(latin1Bytes))
	require.NoError(t, err)

	got, err := io.ReadAll(r)
	require.NoError(t, err)
	assert.Equal(t, "Descrição\n", string(got))
}

func TestNewUTF8Reader_UTF16LE(t *testing.T) {
	// UTF-16 LE with BOM, the default of several spreadsheet "save as CSV"
	// paths on Windows.
	input := "תאריך;ערך\n"
	raw := []byte{0xFF, 0xFE}

	for _, r := range input {
		if r < 0x10000 {
			raw = append(raw, byte(r), byte(r>>8))
		}
	}

	r, err := encoding.NewUTF8Reader(bytes.NewReader(raw))
	require.NoError(t, err)

	got, err := io.ReadAll(r)
	require.NoError(t, err)
	assert.Equal(t, input, string(got))
}

func TestNewUTF8Reader_UTF8BOM(t *testing.T) {
	// UTF-8 BOM (0xEF 0xBB 0xBF) should be stripped.
	bom := []byte{0xEF, 0xBB, 0xBF}
	content := []byte("date,value\n")
	input := append(bom, content...)

	r, err := encoding.NewUTF8Reader(bytes.NewReader(input))
	require.NoError(t, err)

	got, err := io.ReadAll(r)
	require.NoError(t, err)
	assert.Equal(t, "date,value\n", string(got))
}

func TestNewBOMWriter(t *testing.T) {
	var buf bytes.Buffer

	w := encoding.NewBOMWriter(&buf)

	_, err := w.Write([]byte("a,b\n"))
	require.NoError(t, err)
	_, err = w.Write([]byte("1,2\n"))
	require.NoError(t, err)

	want := append([]byte{0xEF, 0xBB, 0xBF}, []byte("a,b\n1,2\n")...)
	assert.Equal(t, want, buf.Bytes())
}
