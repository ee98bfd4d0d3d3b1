// Package endpoint maps logical archive operations onto validated API routes.
package endpoint

import (
	"sort"
	"strings"

	"swh-client/internal/shared"
)

// APIPrefix is prepended to every route.
const APIPrefix = "/api/1/"

// placeholder marks a positional parameter in a route.
const placeholder = "{}"

// Kind is the expected shape of an endpoint's leading parameter.
type Kind int

const (
	KindURL Kind = iota + 1
	KindHash40
	KindIdentifier
	KindInteger
)

func (k Kind) String() string {
	switch k {
	case KindURL:
		return "URL"
	case KindHash40:
		return "HASH40"
	case KindIdentifier:
		return "IDENTIFIER"
	case KindInteger:
		return "INTEGER"
	default:
		return "UNKNOWN"
	}
}

// Descriptor describes one archive endpoint.
type Descriptor struct {
	Name  string
	Kind  Kind
	Route string
	// ReverseParams swaps the positional parameters before substitution.
	ReverseParams bool
}

// Placeholders returns the number of positional parameters the route takes.
func (d Descriptor) Placeholders() int {
	return strings.Count(d.Route, placeholder)
}

var registry = map[string]Descriptor{}

func register(d Descriptor) {
	d.Route = APIPrefix + d.Route
	registry[d.Name] = d
}

func init() {
	register(Descriptor{Name: "origin", Kind: KindURL, Route: "origin/{}/get/"})
	register(Descriptor{Name: "visit", Kind: KindURL, Route: "origin/{}/visit/{}"})
	register(Descriptor{Name: "visits", Kind: KindURL, Route: "origin/{}/visits/{}"})
	register(Descriptor{Name: "save", Kind: KindURL, Route: "origin/save/{}/url/{}/", ReverseParams: true})
	register(Descriptor{Name: "saveWithID", Kind: KindInteger, Route: "origin/save/{}/"})
	register(Descriptor{Name: "resolve", Kind: KindIdentifier, Route: "resolve/{}/"})
	register(Descriptor{Name: "snapshot", Kind: KindHash40, Route: "snapshot/{}/"})
	register(Descriptor{Name: "release", Kind: KindHash40, Route: "release/{}/"})
	register(Descriptor{Name: "revision", Kind: KindHash40, Route: "revision/{}/"})
	register(Descriptor{Name: "revisionLog", Kind: KindHash40, Route: "revision/{}/log/{}"})
	register(Descriptor{Name: "revisionPath", Kind: KindHash40, Route: "revision/{}/directory/{}/"})
	register(Descriptor{Name: "directory", Kind: KindHash40, Route: "directory/{}/"})
	register(Descriptor{Name: "directoryPath", Kind: KindHash40, Route: "directory/{}/{}/"})
	// TODO: sha256 and blake2s256 content checksums once a HASH64 kind exists.
	register(Descriptor{Name: "content", Kind: KindHash40, Route: "content/sha1_git:{}/"})
}

// Lookup returns the descriptor registered under name.
func Lookup(name string) (Descriptor, error) {
	d, ok := registry[name]
	if !ok {
		return Descriptor{}, shared.Errorf(shared.KindCaller, "unknown endpoint %q", name)
	}
	return d, nil
}

// Names lists registered endpoint names in sorted order.
func Names() []string {
	names := make([]string, 0, len(registry))
	for n := range registry {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}
