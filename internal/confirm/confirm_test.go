// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package confirm

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pdiddy/rag-filesearch/pkg/types"
)

func interactive(input string) (*Prompter, *bytes.Buffer) {
	var out bytes.Buffer
	p := New(strings.NewReader(input), &out)
	p.Interactive = true
	return p, &out
}

func TestNewIsNotInteractiveForPipes(t *testing.T) {
	p := New(strings.NewReader("yes\n"), &bytes.Buffer{})
	assert.False(t, p.Interactive)
}

func TestConfirm(t *testing.T) {
	tests := []struct {
		input string
		want  bool
	}{
		{"yes\n", true},
		{"Y\n", true},
		{"  YES  \n", true},
		{"no\n", false},
		{"\n", false},
		{"yes", true},
		{"", false},
	}
	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			p, out := interactive(tt.input)
			got, err := p.Confirm("Delete?")
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
			assert.Equal(t, "Delete? (yes/no): ", out.String())
		})
	}
}

func TestConfirmTypedIsExact(t *testing.T) {
	p, _ := interactive("delete\nDELETE\n")
	ok, err := p.ConfirmTyped("Last chance.", "DELETE")
	require.NoError(t, err)
	assert.False(t, ok)

	ok, err = p.ConfirmTyped("Last chance.", "DELETE")
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestRequireDestructive(t *testing.T) {
	steps := []Step{YesNo("Delete store?"), Typed("Really?", "DELETE")}

	t.Run("yes bypasses", func(t *testing.T) {
		p := New(strings.NewReader(""), &bytes.Buffer{})
		assert.NoError(t, p.RequireDestructive(true, steps...))
	})

	t.Run("non-interactive requires flag", func(t *testing.T) {
		p := New(strings.NewReader("yes\nDELETE\n"), &bytes.Buffer{})
		err := p.RequireDestructive(false, steps...)
		assert.ErrorIs(t, err, types.ErrConfirmationRequired)
	})

	t.Run("both steps pass", func(t *testing.T) {
		p, out := interactive("yes\nDELETE\n")
		require.NoError(t, p.RequireDestructive(false, steps...))
		assert.Contains(t, out.String(), "Type DELETE to confirm")
	})

	t.Run("second step declined", func(t *testing.T) {
		p, _ := interactive("yes\nnope\n")
		assert.ErrorIs(t, p.RequireDestructive(false, steps...), ErrAborted)
	})

	t.Run("first step declined skips second", func(t *testing.T) {
		p, out := interactive("no\nDELETE\n")
		assert.ErrorIs(t, p.RequireDestructive(false, steps...), ErrAborted)
		assert.NotContains(t, out.String(), "Type DELETE")
	})
}

func TestChoose(t *testing.T) {
	p, out := interactive("2\n")
	idx, err := p.Choose("Store", []string{"a", "b", "c"})
	require.NoError(t, err)
	assert.Equal(t, 1, idx)
	assert.Contains(t, out.String(), "  3. c\n")

	p, _ = interactive("\n")
	idx, err = p.Choose("Store", []string{"a"})
	require.NoError(t, err)
	assert.Equal(t, -1, idx)

	p, _ = interactive("9\n")
	_, err = p.Choose("Store", []string{"a"})
	assert.ErrorContains(t, err, "invalid selection")
}
