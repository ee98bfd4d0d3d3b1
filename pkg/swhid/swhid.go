package swhid

import (
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

const (
	// Scheme is the fixed leading tag of every identifier.
	Scheme = "swh"
	// Version is the only supported identifier version.
	Version = 1
	// Format describes the accepted core identifier shape.
	Format = "swh:1:<ori|snp|rev|rel|dir|cnt>:<40 hex digits>"
)

// ErrInvalid is matched by every *ParseError.
var ErrInvalid = errors.New("swhid: invalid identifier")

var hashRe = regexp.MustCompile(`^[a-fA-F0-9]{40}$`)

// ObjectType is the archive object an identifier points to.
type ObjectType string

const (
	Origin    ObjectType = "ori"
	Snapshot  ObjectType = "snp"
	Revision  ObjectType = "rev"
	Release   ObjectType = "rel"
	Directory ObjectType = "dir"
	Content   ObjectType = "cnt"
)

var objectNames = map[ObjectType]string{
	Origin:    "origin",
	Snapshot:  "snapshot",
	Revision:  "revision",
	Release:   "release",
	Directory: "directory",
	Content:   "content",
}

// Types returns the supported object types in canonical order.
func Types() []ObjectType {
	return []ObjectType{Origin, Snapshot, Revision, Release, Directory, Content}
}

// Valid reports whether t is one of the supported codes.
func (t ObjectType) Valid() bool {
	_, ok := objectNames[t]
	return ok
}

// String returns the long name, e.g. "directory".
func (t ObjectType) String() string {
	if n, ok := objectNames[t]; ok {
		return n
	}
	return string(t)
}

// Qualifier is one key=value pair of the qualifier tail.
type Qualifier struct {
	Key   string
	Value string
}

// ID is a parsed persistent identifier.
type ID struct {
	Version    int
	Type       ObjectType
	Hash       string
	Qualifiers []Qualifier
}

// Core renders the identifier without qualifiers.
func (id ID) Core() string {
	return fmt.Sprintf("%s:%d:%s:%s", Scheme, id.Version, id.Type, id.Hash)
}

// String renders the identifier with its qualifiers in source order.
func (id ID) String() string {
	var b strings.Builder
	b.WriteString(id.Core())
	for _, q := range id.Qualifiers {
		b.WriteByte(';')
		b.WriteString(q.Key)
		b.WriteByte(':')
		b.WriteString(q.Value)
	}
	return b.String()
}

// Qualifier returns the first value stored under key.
func (id ID) Qualifier(key string) (string, bool) {
	for _, q := range id.Qualifiers {
		if q.Key == key {
			return q.Value, true
		}
	}
	return "", false
}

// ParseError reports which field of an identifier is malformed.
type ParseError struct {
	Input  string
	Field  string
	Value  string
	Reason string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("swhid: invalid %s %q in %q: %s", e.Field, e.Value, e.Input, e.Reason)
}

func (e *ParseError) Unwrap() error { return ErrInvalid }

// Parse parses raw into an ID.
//
// The core is heading:version:type:hash; anything after the first ';'
// is a qualifier list of key:value pairs separated by ';'.
func Parse(raw string) (ID, error) {
	core, tail, hasTail := strings.Cut(raw, ";")

	parts := strings.Split(core, ":")
	if len(parts) != 4 {
		return ID{}, &ParseError{Input: raw, Field: "format", Value: core,
			Reason: fmt.Sprintf("want 4 ':'-separated fields, got %d", len(parts))}
	}
	heading, version, typ, hash := parts[0], parts[1], parts[2], parts[3]

	if heading != Scheme {
		return ID{}, &ParseError{Input: raw, Field: "heading", Value: heading, Reason: "want " + Scheme}
	}
	if v, err := strconv.Atoi(version); err != nil || v != Version {
		return ID{}, &ParseError{Input: raw, Field: "version", Value: version,
			Reason: fmt.Sprintf("unsupported version, want %d", Version)}
	}
	ot := ObjectType(typ)
	if !ot.Valid() {
		return ID{}, &ParseError{Input: raw, Field: "type", Value: typ, Reason: "unknown object type"}
	}
	if !hashRe.MatchString(hash) {
		return ID{}, &ParseError{Input: raw, Field: "hash", Value: hash, Reason: "want 40 hex digits"}
	}

	id := ID{Version: Version, Type: ot, Hash: strings.ToLower(hash)}
	if !hasTail {
		return id, nil
	}
	for _, pair := range strings.Split(tail, ";") {
		k, v, ok := strings.Cut(pair, ":")
		if !ok || k == "" {
			return ID{}, &ParseError{Input: raw, Field: "qualifier", Value: pair, Reason: "want key:value"}
		}
		id.Qualifiers = append(id.Qualifiers, Qualifier{Key: k, Value: v})
	}
	return id, nil
}

// MustParse is like Parse but panics on error. Intended for constants in tests.
func MustParse(raw string) ID {
	id, err := Parse(raw)
	if err != nil {
		panic(err)
	}
	return id
}

// IsHash reports whether s is a bare 40-digit hex hash.
func IsHash(s string) bool {
	return hashRe.MatchString(s)
}
