package params

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vvka-141/csvetl/pkg/csvetl"
)

func TestParseKeyValuePairs(t *testing.T) {
	tests := []struct {
		name    string
		input   []string
		want    map[string]string
		wantErr string
	}{
		{name: "single pair", input: []string{"application_name=etl"}, want: map[string]string{"application_name": "etl"}},
		{name: "nil input", input: nil, want: map[string]string{}},
		{name: "empty value", input: []string{"key="}, want: map[string]string{"key": ""}},
		{name: "value with equals", input: []string{"options=-c search_path=etl"}, want: map[string]string{"options": "-c search_path=etl"}},
		{name: "missing equals", input: []string{"noequalssign"}, wantErr: "not in key=value format"},
		{name: "empty key", input: []string{"=value"}, wantErr: "empty key"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseKeyValuePairs(tt.input)
			if tt.wantErr != "" {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.wantErr)
				assert.ErrorIs(t, err, csvetl.ErrInvalidConfig)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestParseTransforms(t *testing.T) {
	spec, err := ParseTransforms([]string{
		"amount=numeric",
		"sold_at=datetime:%Y-%m-%d %H:%M:%S",
		" qty = integer",
		"region=categorical",
	})
	require.NoError(t, err)

	assert.Equal(t, csvetl.ColumnTransformSpec{
		"amount":  {Kind: csvetl.TransformNumeric},
		"sold_at": {Kind: csvetl.TransformDatetime, Format: "%Y-%m-%d %H:%M:%S"},
		"qty":     {Kind: csvetl.TransformInteger},
		"region":  {Kind: csvetl.TransformCategorical},
	}, spec)
}

func TestParseTransforms_Errors(t *testing.T) {
	tests := map[string][]string{
		"no equals":    {"amount"},
		"empty column": {"=numeric"},
		"unknown kind": {"amount=money"},
		"duplicate":    {"a=numeric", "a=integer"},
	}
	for name, input := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := ParseTransforms(input)
			assert.ErrorIs(t, err, csvetl.ErrInvalidConfig)
		})
	}
}

func TestFormatTransforms(t *testing.T) {
	got := FormatTransforms(csvetl.ColumnTransformSpec{
		"b": {Kind: csvetl.TransformNumeric},
		"a": {Kind: csvetl.TransformDatetime, Format: "%d/%m/%Y"},
	})
	assert.Equal(t, []string{"a=datetime:%d/%m/%Y", "b=numeric"}, got)
}

func TestParseDelimiter(t *testing.T) {
	tests := map[string]rune{
		"":     ',',
		";":    ';',
		"tab":  '\t',
		`\t`:   '\t',
		"PIPE": '|',
		"§":    '§',
	}
	for in, want := range tests {
		got, err := ParseDelimiter(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got, in)
	}

	_, err := ParseDelimiter(";;")
	assert.ErrorIs(t, err, csvetl.ErrInvalidConfig)
}
