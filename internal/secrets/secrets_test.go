package secrets

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExpandString(t *testing.T) {
	t.Setenv("GPACALC_TEST_USER", "gpa")
	t.Setenv("GPACALC_TEST_PASS", "s3cret")

	tests := []struct {
		name    string
		input   string
		want    string
		wantErr bool
	}{
		{name: "empty string", input: "", want: ""},
		{name: "literal", input: "gpa:pw@tcp(db:3306)/gpacalc", want: "gpa:pw@tcp(db:3306)/gpacalc"},
		{
			name:  "dsn with references",
			input: "${GPACALC_TEST_USER}:${GPACALC_TEST_PASS}@tcp(db:3306)/gpacalc",
			want:  "gpa:s3cret@tcp(db:3306)/gpacalc",
		},
		{name: "default used", input: "${GPACALC_TEST_UNSET:-fallback}", want: "fallback"},
		{name: "empty default", input: "x${GPACALC_TEST_UNSET:-}y", want: "xy"},
		{name: "default ignored when set", input: "${GPACALC_TEST_USER:-other}", want: "gpa"},
		{name: "missing variable", input: "${GPACALC_TEST_UNSET}", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ExpandString(tt.input)
			if tt.wantErr {
				require.Error(t, err)
				assert.Contains(t, err.Error(), "GPACALC_TEST_UNSET")
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestReadFile(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()

	path := filepath.Join(dir, "dsn")
	require.NoError(t, os.WriteFile(path, []byte("gpa:pw@tcp(db)/gpacalc\n"), 0o600))
	got, err := ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "gpa:pw@tcp(db)/gpacalc", got)

	empty := filepath.Join(dir, "empty")
	require.NoError(t, os.WriteFile(empty, []byte("\n"), 0o600))
	_, err = ReadFile(empty)
	require.Error(t, err)

	_, err = ReadFile(filepath.Join(dir, "missing"))
	require.Error(t, err)

	_, err = ReadFile(dir)
	require.Error(t, err, "directories are rejected")

	_, err = ReadFile("")
	require.Error(t, err)
}

func TestResolvePrefersFile(t *testing.T) {
	t.Setenv("GPACALC_TEST_DSN", "from-env")
	path := filepath.Join(t.TempDir(), "dsn")
	require.NoError(t, os.WriteFile(path, []byte("from-file"), 0o400))

	got, err := Resolve(path, "${GPACALC_TEST_DSN}")
	require.NoError(t, err)
	assert.Equal(t, "from-file", got)

	got, err = Resolve("", "${GPACALC_TEST_DSN}")
	require.NoError(t, err)
	assert.Equal(t, "from-env", got)
}
