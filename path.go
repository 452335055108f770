package store

import (
	"strconv"
	"strings"

	"golang.org/x/xerrors"
)

// DefaultSeparator is the path segment separator used by ParseDefault and
// every Storage method that does not take an explicit separator.
const DefaultSeparator = '.'

// Segment is one parsed path component: a field name, optionally followed
// by one or more bracketed array indices (a[0], a[0][1], ...).
type Segment struct {
	Name    string
	Indices []int
}

// ParseDefault parses s using DefaultSeparator.
func ParseDefault(s string) ([]Segment, error) {
	return ParsePath(s, DefaultSeparator)
}

// ParsePath splits s on sep into segments of the form
// identifier([index])*, per the grammar segment(sep segment)*.
func ParsePath(s string, sep rune) ([]Segment, error) {
	if s == "" {
		return nil, xerrors.Errorf("path: empty path: %w", ErrArgumentError)
	}
	parts := strings.Split(s, string(sep))
	segs := make([]Segment, 0, len(parts))
	for _, part := range parts {
		seg, err := parseSegment(part)
		if err != nil {
			return nil, err
		}
		segs = append(segs, seg)
	}
	return segs, nil
}

func parseSegment(s string) (Segment, error) {
	i := strings.IndexByte(s, '[')
	if i == -1 {
		if s == "" {
			return Segment{}, xerrors.Errorf("path: empty segment: %w", ErrArgumentError)
		}
		return Segment{Name: s}, nil
	}
	name := s[:i]
	if name == "" {
		return Segment{}, xerrors.Errorf("path: segment %q has no field name: %w", s, ErrArgumentError)
	}
	rest := s[i:]
	var idxs []int
	for len(rest) > 0 {
		if rest[0] != '[' {
			return Segment{}, xerrors.Errorf("path: malformed segment %q: %w", s, ErrArgumentError)
		}
		end := strings.IndexByte(rest, ']')
		if end == -1 {
			return Segment{}, xerrors.Errorf("path: unterminated index in %q: %w", s, ErrArgumentError)
		}
		n, err := strconv.Atoi(rest[1:end])
		if err != nil || n < 0 {
			return Segment{}, xerrors.Errorf("path: bad index in %q: %w", s, ErrArgumentError)
		}
		idxs = append(idxs, n)
		rest = rest[end+1:]
	}
	return Segment{Name: name, Indices: idxs}, nil
}

// String reconstructs the canonical a[0][1] text for one segment.
func (s Segment) String() string {
	var sb strings.Builder
	sb.WriteString(s.Name)
	for _, idx := range s.Indices {
		sb.WriteByte('[')
		sb.WriteString(strconv.Itoa(idx))
		sb.WriteByte(']')
	}
	return sb.String()
}
