// Package router implements the registration-order route matcher described
// in spec.md §4.D, grounded on the original C++ RoutePattern
// (_examples/original_source/aether/src/Http/RoutePattern.cpp).
package router

import (
	"fmt"
	"regexp"
	"strings"
)

type segmentKind int

const (
	segLiteral segmentKind = iota
	segParam
	segWildcard
)

type segment struct {
	kind    segmentKind
	value   string         // literal text, or the captured parameter/wildcard name
	pattern *regexp.Regexp // non-nil only for a constrained Param segment
}

// Pattern is a compiled route template: an ordered sequence of segments.
// Once built it is never mutated, so concurrent reads never observe a
// partially built Pattern (spec.md §3 invariant).
type Pattern struct {
	raw      string
	segments []segment
	names    map[string]struct{}
}

// Compile parses a route pattern string into a Pattern. A Wildcard segment
// is only legal as the last segment; any other placement is a
// registration-time error, matching spec.md §4.D.
func Compile(pattern string) (*Pattern, error) {
	parts := strings.Split(pattern, "/")
	p := &Pattern{raw: pattern, names: make(map[string]struct{})}

	for i, part := range parts {
		if part == "" {
			continue
		}

		seg, err := compileSegment(part)
		if err != nil {
			return nil, err
		}
		if seg.kind == segWildcard && i != len(parts)-1 {
			return nil, fmt.Errorf("router: wildcard segment %q must be last in pattern %q", part, pattern)
		}
		if seg.kind != segLiteral {
			if _, dup := p.names[seg.value]; dup {
				return nil, fmt.Errorf("router: duplicate parameter name %q in pattern %q", seg.value, pattern)
			}
			p.names[seg.value] = struct{}{}
		}
		p.segments = append(p.segments, seg)
	}

	return p, nil
}

func compileSegment(part string) (segment, error) {
	switch {
	case strings.HasPrefix(part, ":"):
		name := part[1:]
		if open := strings.IndexByte(name, '('); open >= 0 {
			if !strings.HasSuffix(name, ")") {
				return segment{}, fmt.Errorf("router: unterminated regex constraint in segment %q", part)
			}
			paramName := name[:open]
			regexSrc := name[open+1 : len(name)-1]
			if paramName == "" {
				return segment{}, fmt.Errorf("router: parameter segment %q has no name", part)
			}
			re, err := regexp.Compile("^(?:" + regexSrc + ")$")
			if err != nil {
				return segment{}, fmt.Errorf("router: invalid regex constraint in segment %q: %w", part, err)
			}
			return segment{kind: segParam, value: paramName, pattern: re}, nil
		}
		if name == "" {
			return segment{}, fmt.Errorf("router: parameter segment %q has no name", part)
		}
		return segment{kind: segParam, value: name}, nil

	case part == "*":
		return segment{kind: segWildcard, value: "*"}, nil

	case strings.HasPrefix(part, "*"):
		return segment{kind: segWildcard, value: part[1:]}, nil

	default:
		return segment{kind: segLiteral, value: part}, nil
	}
}

// Names returns the parameter/wildcard names declared by the pattern.
func (p *Pattern) Names() map[string]struct{} {
	return p.names
}

// Match attempts to match path against the pattern, walking segments and
// path components in lockstep (spec.md §4.D). On success it writes
// captures into params and returns true. On failure params may still hold
// captures from segments matched before the mismatch; Router.Find clears
// params before every attempt.
func (p *Pattern) Match(path string, params map[string]string) bool {
	pathSegs := splitNonEmpty(path)

	pi := 0
	for _, seg := range p.segments {
		if seg.kind == segWildcard {
			value := strings.Join(pathSegs[pi:], "/")
			params[seg.value] = value
			return true
		}

		if pi >= len(pathSegs) {
			return false
		}

		switch seg.kind {
		case segLiteral:
			if pathSegs[pi] != seg.value {
				return false
			}
		case segParam:
			if seg.pattern != nil && !seg.pattern.MatchString(pathSegs[pi]) {
				return false
			}
			if pathSegs[pi] == "" {
				return false
			}
			params[seg.value] = pathSegs[pi]
		}

		pi++
	}

	return pi == len(pathSegs)
}

func splitNonEmpty(path string) []string {
	raw := strings.Split(path, "/")
	segs := make([]string, 0, len(raw))
	for _, s := range raw {
		if s != "" {
			segs = append(segs, s)
		}
	}
	return segs
}
