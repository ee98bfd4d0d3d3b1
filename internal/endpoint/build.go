package endpoint

import (
	"context"
	"net/url"
	"strings"

	"swh-client/internal/platform/httpclient"
	"swh-client/internal/shared"
)

// PassThrough is the endpoint name recorded for absolute URL requests.
const PassThrough = "url"

var allowedMethods = map[string]struct{}{
	"GET":  {},
	"POST": {},
	"HEAD": {},
}

// Builder turns an endpoint name or absolute URL plus parameters into a request.
type Builder struct {
	val *Validator
}

// NewBuilder creates a Builder. A nil validator uses defaults.
func NewBuilder(v *Validator) *Builder {
	if v == nil {
		v = NewValidator()
	}
	return &Builder{val: v}
}

// Build validates the call and returns the request to execute.
func (b *Builder) Build(ctx context.Context, method, target string, params ...any) (httpclient.Request, error) {
	m := strings.ToUpper(strings.TrimSpace(method))
	if _, ok := allowedMethods[m]; !ok {
		return httpclient.Request{}, shared.Errorf(shared.KindCaller, "unsupported method %q", method)
	}

	if IsAbsoluteURL(target) {
		if len(params) > 0 {
			return httpclient.Request{}, shared.Errorf(shared.KindCaller, "absolute URL %q takes no parameters, got %d", target, len(params))
		}
		return httpclient.Request{Method: m, Endpoint: PassThrough, URL: target}, nil
	}

	d, err := Lookup(target)
	if err != nil {
		return httpclient.Request{}, err
	}

	ps := append([]any(nil), params...)
	if d.Kind == KindURL && len(ps) > 0 {
		if s, ok := ps[0].(string); ok {
			ps[0] = strings.TrimSuffix(s, "/")
		}
	}
	if err := b.val.Validate(ctx, d, ps); err != nil {
		return httpclient.Request{}, err
	}
	if d.ReverseParams {
		for i, j := 0, len(ps)-1; i < j; i, j = i+1, j-1 {
			ps[i], ps[j] = ps[j], ps[i]
		}
	}

	path, err := substitute(d.Route, ps)
	if err != nil {
		return httpclient.Request{}, err
	}
	return httpclient.Request{Method: m, Endpoint: d.Name, Path: path}, nil
}

// IsAbsoluteURL reports whether target carries a host and bypasses the registry.
func IsAbsoluteURL(target string) bool {
	u, err := url.Parse(target)
	return err == nil && u.Scheme != "" && u.Host != ""
}

func substitute(route string, params []any) (string, error) {
	parts := strings.Split(route, placeholder)
	if len(parts)-1 != len(params) {
		return "", shared.Errorf(shared.KindCaller, "route %q takes %d parameter(s), got %d", route, len(parts)-1, len(params))
	}
	var sb strings.Builder
	sb.WriteString(parts[0])
	for i, p := range params {
		s, _ := Render(p)
		sb.WriteString(s)
		sb.WriteString(parts[i+1])
	}
	return sb.String(), nil
}
