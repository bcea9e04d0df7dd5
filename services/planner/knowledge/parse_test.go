// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package knowledge

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseFact(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  Fact
	}{
		{"positive", "on s3 s5", Literal("on", "s3", "s5")},
		{"negative", "not on s3 s5", Negation("on", "s3", "s5")},
		{"nullary", "handempty", Literal("handempty")},
		{"extra whitespace", "  not   clear   X ", Negation("clear", "X")},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseFact(tt.input)
			require.NoError(t, err)
			assert.True(t, tt.want.Equal(got), got.String())
		})
	}

	t.Run("errors", func(t *testing.T) {
		for _, input := range []string{"", "   ", "not", "on a: b"} {
			_, err := ParseFact(input)
			require.Error(t, err, input)
			assert.True(t, errors.Is(err, ErrMalformedFact), input)

			var parseErr *ParseError
			require.True(t, errors.As(err, &parseErr))
			assert.Equal(t, input, parseErr.Input)
		}
	})
}

func TestParseAction(t *testing.T) {
	t.Run("round trip", func(t *testing.T) {
		inputs := []string{
			"pickup X: clear X, handempty, ontable X -> holding X, not clear X, not handempty, not ontable X",
			"stack X Y: clear Y, holding X -> clear X, handempty, not clear Y, not holding X, on X Y",
			"reset: -> handempty",
			"noop X: ontable X ->",
		}
		for _, input := range inputs {
			a, err := ParseAction(input)
			require.NoError(t, err, input)
			assert.Equal(t, input, a.String())

			again, err := ParseAction(a.String())
			require.NoError(t, err)
			assert.True(t, a.Equal(again))
		}
	})

	t.Run("normalizes fact order", func(t *testing.T) {
		a, err := ParseAction("putdown X: holding X -> ontable X, handempty, clear X, not holding X")
		require.NoError(t, err)
		assert.Equal(t, "putdown X: holding X -> clear X, handempty, not holding X, ontable X", a.String())
	})

	t.Run("errors", func(t *testing.T) {
		tests := []struct {
			input    string
			sentinel error
		}{
			{"pickup X holding X", ErrMalformedAction},
			{"pickup X: holding X", ErrMalformedAction},
			{": a -> b", ErrMalformedAction},
			{"a: b -> c -> d", ErrMalformedAction},
			{"a: not -> b", ErrMalformedFact},
		}
		for _, tt := range tests {
			_, err := ParseAction(tt.input)
			require.Error(t, err, tt.input)
			assert.True(t, errors.Is(err, tt.sentinel), "%s: %v", tt.input, err)
		}
	})
}

func TestParseConstraint(t *testing.T) {
	c, err := ParseConstraint("on X Y -> not on Z Y")
	require.NoError(t, err)
	assert.Equal(t, "on X Y", c.Antecedent.String())
	assert.Equal(t, "on X Y -> not on Z Y", c.String())

	for _, input := range []string{"on X Y", "not on X Y -> on Y X", "-> a", "a ->"} {
		_, err := ParseConstraint(input)
		assert.True(t, errors.Is(err, ErrMalformedConstraint), input)
	}
}

func TestParseTypeDeclaration(t *testing.T) {
	d, err := ParseTypeDeclaration("X, Y: s5, s3, s5")
	require.NoError(t, err)
	assert.Equal(t, []string{"X", "Y"}, d.Variables)
	assert.Equal(t, []string{"s3", "s5"}, d.Constants)
	assert.Equal(t, "X, Y: s3, s5", d.String())

	for _, input := range []string{"X, Y", ": a", "X:", "x: a"} {
		_, err := ParseTypeDeclaration(input)
		assert.True(t, errors.Is(err, ErrMalformedTypeDeclaration), input)
	}
}

func TestParseFacts(t *testing.T) {
	facts, err := ParseFacts("clear s3, , handempty,")
	require.NoError(t, err)
	assert.Len(t, facts, 2)

	facts, err = ParseFacts("")
	require.NoError(t, err)
	assert.Empty(t, facts)
}
