package generator

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerateCode(t *testing.T) {
	tests := []struct {
		name    string
		length  int
		wantErr bool
	}{
		{name: "Generate code with length 8", length: 8},
		{name: "Generate code with length 16", length: 16},
		{name: "Generate code longer than one shortuuid", length: 40},
		{name: "Generate code with length 0", length: 0},
		{name: "Negative length", length: -1, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := GenerateCode(tt.length)
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrInvalidLength)
				return
			}
			require.NoError(t, err)
			assert.Len(t, got, tt.length)

			if tt.length > 0 {
				got2, _ := GenerateCode(tt.length)
				assert.NotEqual(t, got, got2, "GenerateCode() generated the same code twice")
			}
		})
	}
}

func TestGenerateCodeAlphabet(t *testing.T) {
	code, err := GenerateCode(64)
	require.NoError(t, err)

	for _, r := range code {
		ok := (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9')
		assert.True(t, ok, "unexpected rune %q in %s", r, code)
	}
}

func TestGenerateID(t *testing.T) {
	id := GenerateID()
	_, err := uuid.Parse(id)
	require.NoError(t, err)
	assert.NotEqual(t, id, GenerateID())
}
