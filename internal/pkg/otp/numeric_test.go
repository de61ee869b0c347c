package otp

import (
	"errors"
	"regexp"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewNumeric(t *testing.T) {
	tests := []struct {
		name    string
		length  int
		prefix  string
		wantErr error
	}{
		{name: "no prefix", length: 6},
		{name: "short prefix", length: 6, prefix: "AB"},
		{name: "prefix leaves one digit", length: 3, prefix: "XY"},
		{name: "zero length", length: 0, wantErr: ErrInvalidLength},
		{name: "negative length", length: -1, wantErr: ErrInvalidLength},
		{name: "prefix equals length", length: 2, prefix: "AB", wantErr: ErrPrefixTooLong},
		{name: "prefix longer than length", length: 2, prefix: "ABC", wantErr: ErrPrefixTooLong},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			g, err := NewNumeric(tt.length, tt.prefix)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				assert.Nil(t, g)
				return
			}

			require.NoError(t, err)
			assert.Equal(t, tt.length, g.Length())
		})
	}
}

func TestNumeric_Generate(t *testing.T) {
	g, err := NewNumeric(6, "")
	require.NoError(t, err)

	re := regexp.MustCompile(`^[0-9]{6}$`)
	seen := map[string]struct{}{}
	for range 200 {
		code, err := g.Generate()
		require.NoError(t, err)
		assert.Regexp(t, re, code)
		seen[code] = struct{}{}
	}
	assert.Greater(t, len(seen), 150)
}

func TestNumeric_Generate_Prefix(t *testing.T) {
	g, err := NewNumeric(8, "OT")
	require.NoError(t, err)

	code, err := g.Generate()
	require.NoError(t, err)
	assert.Regexp(t, `^OT[0-9]{6}$`, code)
}

type failingReader struct{}

func (failingReader) Read([]byte) (int, error) { return 0, errors.New("entropy exhausted") }

func TestNumeric_Generate_RandError(t *testing.T) {
	g, err := NewNumeric(6, "")
	require.NoError(t, err)
	g.rand = failingReader{}

	code, err := g.Generate()
	assert.Error(t, err)
	assert.Empty(t, code)
}
