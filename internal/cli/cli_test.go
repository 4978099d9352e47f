package cli

import (
	"bytes"
	"strings"
	"testing"

	"github.com/gpacalc/gpacalc/internal/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseID(t *testing.T) {
	t.Parallel()

	id, err := ParseID("subject", "7")
	require.NoError(t, err)
	assert.Equal(t, 7, id)

	for _, arg := range []string{"0", "-2", "abc", ""} {
		_, err := ParseID("subject", arg)
		require.Error(t, err, arg)
		assert.True(t, errors.IsValidation(err), arg)
	}
}

func TestNotFound(t *testing.T) {
	t.Parallel()

	err := NotFound("semester", 4)
	assert.EqualError(t, err, "semester 4 not found")
	assert.True(t, errors.IsNotFound(err))
}

func TestPrinterLocaleNumbers(t *testing.T) {
	t.Parallel()

	var en, nl, bad bytes.Buffer
	NewPrinter(&en, "en").Printf("%v", 1500)
	NewPrinter(&nl, "nl").Printf("%v", 1500)
	NewPrinter(&bad, "not a locale!").Printf("%v", 1500)

	assert.Equal(t, "1,500", en.String())
	assert.Equal(t, "1.500", nl.String())
	assert.Equal(t, "1,500", bad.String())
}

func TestPrinterTable(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	NewPrinter(&buf, "en").Table(
		[]string{"ID", "NAME"},
		[][]string{{"1", "Calculus"}, {"12", "Art"}},
	)

	lines := strings.Split(strings.TrimRight(buf.String(), "\n"), "\n")
	require.Len(t, lines, 3)
	assert.Equal(t, "ID  NAME", lines[0])
	assert.Equal(t, "1   Calculus", lines[1])
	assert.Equal(t, "12  Art", lines[2])
}
