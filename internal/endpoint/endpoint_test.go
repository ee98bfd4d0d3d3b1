package endpoint

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"strings"
	"testing"

	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"swh-client/internal/shared"
	"swh-client/pkg/swhid"
)

var hash = strings.Repeat("a", 40)

func TestLookup(t *testing.T) {
	d, err := Lookup("origin")
	require.NoError(t, err)
	assert.Equal(t, KindURL, d.Kind)
	assert.Equal(t, "/api/1/origin/{}/get/", d.Route)
	assert.Equal(t, 1, d.Placeholders())

	_, err = Lookup("nope")
	require.Error(t, err)
	assert.True(t, shared.IsCaller(err))
}

func TestNames_SortedAndComplete(t *testing.T) {
	names := Names()
	assert.Len(t, names, 14)
	assert.IsIncreasing(t, names)
	for _, n := range names {
		d, err := Lookup(n)
		require.NoError(t, err)
		assert.True(t, strings.HasPrefix(d.Route, APIPrefix), n)
	}
}

func TestKindString(t *testing.T) {
	assert.Equal(t, "URL", KindURL.String())
	assert.Equal(t, "HASH40", KindHash40.String())
	assert.Equal(t, "IDENTIFIER", KindIdentifier.String())
	assert.Equal(t, "INTEGER", KindInteger.String())
	assert.Equal(t, "UNKNOWN", Kind(0).String())
}

func TestBuild_Routes(t *testing.T) {
	b := NewBuilder(nil)
	ctx := context.Background()

	tests := []struct {
		name     string
		endpoint string
		params   []any
		path     string
	}{
		{"origin", "origin", []any{"https://github.com/hylang/hy"}, "/api/1/origin/https://github.com/hylang/hy/get/"},
		{"origin trailing slash", "origin", []any{"https://github.com/hylang/hy/"}, "/api/1/origin/https://github.com/hylang/hy/get/"},
		{"visit", "visit", []any{"https://github.com/hylang/hy", 3}, "/api/1/origin/https://github.com/hylang/hy/visit/3"},
		{"visits", "visits", []any{"https://github.com/hylang/hy", "?per_page=10"}, "/api/1/origin/https://github.com/hylang/hy/visits/?per_page=10"},
		{"save reversed", "save", []any{"https://github.com/hylang/hy/", "git"}, "/api/1/origin/save/git/url/https://github.com/hylang/hy/"},
		{"save with id", "saveWithID", []any{42}, "/api/1/origin/save/42/"},
		{"resolve", "resolve", []any{"swh:1:dir:" + hash + ";origin:https://x.org"}, "/api/1/resolve/swh:1:dir:" + hash + ";origin:https://x.org/"},
		{"snapshot", "snapshot", []any{hash}, "/api/1/snapshot/" + hash + "/"},
		{"revision log", "revisionLog", []any{hash, "?limit=5"}, "/api/1/revision/" + hash + "/log/?limit=5"},
		{"directory path", "directoryPath", []any{hash, "src/main.go"}, "/api/1/directory/" + hash + "/src/main.go/"},
		{"content", "content", []any{hash}, "/api/1/content/sha1_git:" + hash + "/"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req, err := b.Build(ctx, "get", tt.endpoint, tt.params...)
			require.NoError(t, err)
			assert.Equal(t, "GET", req.Method)
			assert.Equal(t, tt.endpoint, req.Endpoint)
			assert.Equal(t, tt.path, req.Path)
			assert.Empty(t, req.URL)
		})
	}
}

func TestBuild_DoesNotMutateParams(t *testing.T) {
	params := []any{"https://github.com/hylang/hy/", "git"}
	_, err := NewBuilder(nil).Build(context.Background(), "POST", "save", params...)
	require.NoError(t, err)
	assert.Equal(t, []any{"https://github.com/hylang/hy/", "git"}, params)
}

func TestBuild_PassThrough(t *testing.T) {
	b := NewBuilder(nil)
	target := "https://archive.softwareheritage.org/api/1/stat/counters/"

	req, err := b.Build(context.Background(), "HEAD", target)
	require.NoError(t, err)
	assert.Equal(t, PassThrough, req.Endpoint)
	assert.Equal(t, target, req.URL)
	assert.Empty(t, req.Path)

	_, err = b.Build(context.Background(), "GET", target, "x")
	require.Error(t, err)
	assert.True(t, shared.IsCaller(err))
}

func TestBuild_CallerErrors(t *testing.T) {
	b := NewBuilder(nil)
	ctx := context.Background()
	tests := []struct {
		name     string
		method   string
		endpoint string
		params   []any
	}{
		{"bad method", "PUT", "snapshot", []any{hash}},
		{"unknown endpoint", "GET", "nope", nil},
		{"too few params", "GET", "visit", []any{"https://x.org"}},
		{"too many params", "GET", "snapshot", []any{hash, "x"}},
		{"float param", "GET", "visit", []any{"https://x.org", 1.5}},
		{"integer kind given string", "GET", "saveWithID", []any{"42"}},
		{"integer for url", "GET", "origin", []any{42}},
		{"integer for hash", "GET", "release", []any{7}},
		{"integer for identifier", "GET", "resolve", []any{int64(1)}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := b.Build(ctx, tt.method, tt.endpoint, tt.params...)
			require.Error(t, err)
			assert.Equal(t, shared.KindCaller, shared.KindOf(err))
		})
	}
}

func TestBuild_ValidationErrors(t *testing.T) {
	b := NewBuilder(NewValidator(WithMaxURLLength(40)))
	ctx := context.Background()
	tests := []struct {
		name     string
		endpoint string
		param    any
		rule     string
	}{
		{"hash for url", "origin", hash, "kind"},
		{"identifier for url", "origin", "swh:1:dir:" + hash, "kind"},
		{"relative url", "origin", "github.com/x/y", "url"},
		{"empty url", "origin", "", "required"},
		{"long url", "origin", "https://example.org/" + strings.Repeat("x", 40), "max"},
		{"url for hash", "snapshot", "https://github.com/x/y", "kind"},
		{"short hash", "snapshot", hash[:39], "sha1_git"},
		{"non hex hash", "revision", strings.Repeat("z", 40), "sha1_git"},
		{"bad identifier", "resolve", "swh:1:xyz:" + hash, "swhid"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := b.Build(ctx, "GET", tt.endpoint, tt.param)
			require.Error(t, err)
			assert.True(t, shared.IsValidation(err))

			var ve *ValidationError
			require.ErrorAs(t, err, &ve)
			assert.Equal(t, tt.rule, ve.Rule)
			assert.Equal(t, tt.endpoint, ve.Endpoint)
		})
	}
}

func TestValidate_IdentifierCarriesFormat(t *testing.T) {
	_, err := NewBuilder(nil).Build(context.Background(), "GET", "resolve", "swh:2:dir:"+hash)
	require.Error(t, err)
	assert.Contains(t, err.Error(), swhid.Format)
	assert.True(t, errors.Is(err, swhid.ErrInvalid))
}

func TestValidate_HashWithPathSuffix(t *testing.T) {
	d, err := Lookup("directory")
	require.NoError(t, err)
	assert.NoError(t, NewValidator().Validate(context.Background(), d, []any{hash + "/?foo=bar"}))
}

func TestValidate_AdvisoryLog(t *testing.T) {
	var buf bytes.Buffer
	log := slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))
	val := NewValidator(WithValidatorLogger(log))

	d, err := Lookup("snapshot")
	require.NoError(t, err)
	err = val.Validate(context.Background(), d, []any{"swh:1:snp:" + hash})
	require.Error(t, err)
	assert.Contains(t, buf.String(), "parameter matches another kind")
	assert.Contains(t, buf.String(), "IDENTIFIER")

	buf.Reset()
	_ = val.Validate(context.Background(), d, []any{"nothing-plausible"})
	assert.Empty(t, buf.String())
}

func TestIsAbsoluteURL(t *testing.T) {
	assert.True(t, IsAbsoluteURL("https://archive.softwareheritage.org/api/1/"))
	assert.False(t, IsAbsoluteURL("origin"))
	assert.False(t, IsAbsoluteURL("/api/1/origin/"))
	assert.False(t, IsAbsoluteURL("swh:1:dir:"+hash))
}

func TestMustRegister(t *testing.T) {
	ok := func(validator.FieldLevel) bool { return true }

	v := validator.New()
	assert.NotPanics(t, func() { mustRegister(v, "always", ok) })
	assert.NoError(t, v.Var("x", "always"))

	assert.Panics(t, func() { mustRegister(v, "", ok) })
}
