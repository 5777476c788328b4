package storage

import (
	"path"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNamespaceFor(t *testing.T) {
	tests := []struct {
		email string
		want  string
	}{
		{"user@example.com", "user_example.com"},
		{"first.last@sub.domain.org", "first.last_sub.domain.org"},
		{"with+plus@example.com", "with_plus_example.com"},
		{"UPPER_case-09@x", "UPPER_case-09_x"},
		{"spaces and/slashes", "spaces_and_slashes"},
	}

	for _, tt := range tests {
		t.Run(tt.email, func(t *testing.T) {
			assert.Equal(t, tt.want, NamespaceFor(tt.email))
		})
	}
}

func TestNewStoredName(t *testing.T) {
	name, err := newStoredName("notes.txt")
	require.NoError(t, err)
	assert.Equal(t, ".txt", path.Ext(name))
	assert.Greater(t, len(name), len(".txt"))

	bare, err := newStoredName("README")
	require.NoError(t, err)
	assert.Empty(t, path.Ext(bare))

	other, err := newStoredName("notes.txt")
	require.NoError(t, err)
	assert.NotEqual(t, name, other, "two uploads of the same file must get distinct names")
}
