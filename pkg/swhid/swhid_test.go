package swhid

import (
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var fortyF = strings.Repeat("f", 40)

func TestParse_Directory(t *testing.T) {
	id, err := Parse("swh:1:dir:" + fortyF)
	require.NoError(t, err)

	assert.Equal(t, 1, id.Version)
	assert.Equal(t, Directory, id.Type)
	assert.Equal(t, "directory", id.Type.String())
	assert.Equal(t, fortyF, id.Hash)
	assert.Empty(t, id.Qualifiers)
}

func TestParse_AllTypes(t *testing.T) {
	for _, typ := range Types() {
		t.Run(typ.String(), func(t *testing.T) {
			id, err := Parse("swh:1:" + string(typ) + ":" + fortyF)
			require.NoError(t, err)
			assert.Equal(t, typ, id.Type)
		})
	}
}

func TestParse_NormalizesHash(t *testing.T) {
	id, err := Parse("swh:1:cnt:94A9ED024D3859793618152EA559A168BBCBB5E2")
	require.NoError(t, err)
	assert.Equal(t, "94a9ed024d3859793618152ea559a168bbcbb5e2", id.Hash)
}

func TestParse_Qualifiers(t *testing.T) {
	raw := "swh:1:cnt:4d99d2d18326621ccdd70f5ea66c2e2ac236ad8b" +
		";origin:https://gitorious.org/ocamlp3l/ocamlp3l_cvs.git" +
		";visit:swh:1:snp:d7f1b9eb7ccb596c2622c4780febaa02549830f9" +
		";lines:1-18"
	id, err := Parse(raw)
	require.NoError(t, err)

	require.Len(t, id.Qualifiers, 3)
	assert.Equal(t, Qualifier{Key: "origin", Value: "https://gitorious.org/ocamlp3l/ocamlp3l_cvs.git"}, id.Qualifiers[0])
	assert.Equal(t, Qualifier{Key: "visit", Value: "swh:1:snp:d7f1b9eb7ccb596c2622c4780febaa02549830f9"}, id.Qualifiers[1])
	assert.Equal(t, Qualifier{Key: "lines", Value: "1-18"}, id.Qualifiers[2])

	v, ok := id.Qualifier("lines")
	assert.True(t, ok)
	assert.Equal(t, "1-18", v)
	_, ok = id.Qualifier("path")
	assert.False(t, ok)

	assert.Equal(t, raw, id.String())
	assert.Equal(t, "swh:1:cnt:4d99d2d18326621ccdd70f5ea66c2e2ac236ad8b", id.Core())
}

func TestParse_QualifiersKeepDuplicates(t *testing.T) {
	id, err := Parse("swh:1:dir:" + fortyF + ";path:/a;path:/b")
	require.NoError(t, err)
	require.Len(t, id.Qualifiers, 2)
	assert.Equal(t, "/a", id.Qualifiers[0].Value)
	assert.Equal(t, "/b", id.Qualifiers[1].Value)
}

func TestParse_Errors(t *testing.T) {
	tests := []struct {
		name  string
		raw   string
		field string
	}{
		{"empty", "", "format"},
		{"too few fields", "swh:1:dir", "format"},
		{"too many fields", "swh:1:dir:" + fortyF + ":x", "format"},
		{"heading", "swx:1:dir:" + fortyF, "heading"},
		{"unsupported version", "swh:2:dir:" + fortyF, "version"},
		{"non numeric version", "swh:one:dir:" + fortyF, "version"},
		{"unknown type", "swh:1:xyz:" + fortyF, "type"},
		{"short hash", "swh:1:dir:" + fortyF[:39], "hash"},
		{"non hex hash", "swh:1:dir:" + strings.Repeat("g", 40), "hash"},
		{"qualifier without colon", "swh:1:dir:" + fortyF + ";lines", "qualifier"},
		{"qualifier without key", "swh:1:dir:" + fortyF + ";:x", "qualifier"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse(tt.raw)
			require.Error(t, err)
			assert.True(t, errors.Is(err, ErrInvalid))

			var pe *ParseError
			require.ErrorAs(t, err, &pe)
			assert.Equal(t, tt.field, pe.Field)
			assert.Equal(t, tt.raw, pe.Input)
		})
	}
}

func TestParse_Idempotent(t *testing.T) {
	raw := "swh:1:rev:309cf2674ee7a0749978cf8265ab91a60aea0f7d;origin:https://github.com/x/y"
	a, err := Parse(raw)
	require.NoError(t, err)
	b, err := Parse(raw)
	require.NoError(t, err)
	assert.Equal(t, a, b)
}

func TestMustParse_Panics(t *testing.T) {
	assert.Panics(t, func() { MustParse("swh:1:xyz:" + fortyF) })
	assert.NotPanics(t, func() { MustParse("swh:1:snp:" + fortyF) })
}

func TestIsHash(t *testing.T) {
	assert.True(t, IsHash(fortyF))
	assert.True(t, IsHash(strings.ToUpper(fortyF)))
	assert.False(t, IsHash(fortyF+"/license"))
	assert.False(t, IsHash("https://example.org"))
}
