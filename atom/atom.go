// Package atom parses Gentoo package-atom syntax:
//
//	[operator]category/package_name[-version][:slot][::repository]
//
// Parsing is pure, no I/O. Wildcard atoms and blockers are rejected.
package atom

import (
	"regexp"
	"strings"
)

// Operators, as in ebuild(5). The glob operator is written as a '='
// prefix with a '*' version suffix.
const (
	OpNone         = ""
	OpAnyRevision  = "~"
	OpEquals       = "="
	OpGreater      = ">"
	OpLess         = "<"
	OpGreaterEqual = ">="
	OpLessEqual    = "<="
	OpGlob         = "=*"
)

var (
	categoryRe = regexp.MustCompile(`^(\w+-\w+|virtual)$`)
	pkgNameRe  = regexp.MustCompile(`^[A-Za-z0-9+_][A-Za-z0-9+_-]*$`)
	slotRe     = regexp.MustCompile(`^[A-Za-z0-9_][A-Za-z0-9+_.-]*(/[A-Za-z0-9_][A-Za-z0-9+_.-]*)?$`)
	repoRe     = regexp.MustCompile(`^[A-Za-z0-9_][A-Za-z0-9_-]*$`)

	// Gentoo version grammar, including the optional revision suffix.
	versionRe = regexp.MustCompile(`-(\d+(\.\d+)*[a-zA-Z]?(_(alpha|beta|pre|rc|p)\d*)*(-r\d+)?)$`)
)

// ParseError reports a syntactically invalid atom.
type ParseError struct {
	Atom string
}

func (e *ParseError) Error() string {
	return "invalid atom: '" + e.Atom + "'"
}

// Parsed is the structured form of one atom.
type Parsed struct {
	Operator   string
	Category   string
	Package    string
	Version    string
	Slot       string
	Repository string
}

// CP returns the "category/package_name" string.
func (p *Parsed) CP() string {
	return p.Category + "/" + p.Package
}

// String reconstructs the canonical atom string from the parsed fields.
func (p *Parsed) String() string {
	var b strings.Builder
	op := p.Operator
	glob := op == OpGlob
	if glob {
		op = OpEquals
	}
	b.WriteString(op)
	b.WriteString(p.CP())
	if p.Version != "" {
		b.WriteString("-")
		b.WriteString(p.Version)
	}
	if glob {
		b.WriteString("*")
	}
	if p.Slot != "" {
		b.WriteString(":")
		b.WriteString(p.Slot)
	}
	if p.Repository != "" {
		b.WriteString("::")
		b.WriteString(p.Repository)
	}
	return b.String()
}

// Parse parses a set-entry atom: operator optional, version mandatory
// exactly when an operator is present.
func Parse(raw string) (*Parsed, error) {
	s := raw
	if s == "" || strings.HasPrefix(s, "!") {
		// blockers are not handled
		return nil, &ParseError{Atom: raw}
	}

	p := &Parsed{}

	switch {
	case strings.HasPrefix(s, OpGreaterEqual):
		p.Operator = OpGreaterEqual
		s = s[2:]
	case strings.HasPrefix(s, OpLessEqual):
		p.Operator = OpLessEqual
		s = s[2:]
	case strings.HasPrefix(s, OpGreater):
		p.Operator = OpGreater
		s = s[1:]
	case strings.HasPrefix(s, OpLess):
		p.Operator = OpLess
		s = s[1:]
	case strings.HasPrefix(s, OpEquals):
		p.Operator = OpEquals
		s = s[1:]
	case strings.HasPrefix(s, OpAnyRevision):
		p.Operator = OpAnyRevision
		s = s[1:]
	}

	// ::repository qualifier
	if i := strings.Index(s, "::"); i >= 0 {
		p.Repository = s[i+2:]
		s = s[:i]
		if !repoRe.MatchString(p.Repository) {
			return nil, &ParseError{Atom: raw}
		}
	}

	// :slot qualifier
	if i := strings.Index(s, ":"); i >= 0 {
		p.Slot = s[i+1:]
		s = s[:i]
		if !slotRe.MatchString(p.Slot) {
			return nil, &ParseError{Atom: raw}
		}
	}

	// The glob form "=cat/pkg-1.0*" upgrades '=' to '=*'. A '*' in any
	// other position is a wildcard atom, which is disallowed.
	if strings.HasSuffix(s, "*") {
		if p.Operator != OpEquals {
			return nil, &ParseError{Atom: raw}
		}
		p.Operator = OpGlob
		s = strings.TrimSuffix(s, "*")
	}
	if strings.Contains(s, "*") {
		return nil, &ParseError{Atom: raw}
	}

	slash := strings.Index(s, "/")
	if slash < 0 {
		return nil, &ParseError{Atom: raw}
	}
	p.Category = s[:slash]
	rest := s[slash+1:]
	if !categoryRe.MatchString(p.Category) || strings.Contains(rest, "/") {
		return nil, &ParseError{Atom: raw}
	}

	if m := versionRe.FindStringIndex(rest); m != nil {
		p.Package = rest[:m[0]]
		p.Version = rest[m[0]+1:]
	}

	if p.Operator == OpNone {
		// an unversioned atom must really be unversioned
		if p.Version != "" {
			return nil, &ParseError{Atom: raw}
		}
		p.Package = rest
	} else if p.Version == "" {
		// every operator requires a version
		return nil, &ParseError{Atom: raw}
	}

	if !pkgNameRe.MatchString(p.Package) {
		return nil, &ParseError{Atom: raw}
	}

	return p, nil
}

// ParseInstalled parses a PACKAGES map key. An installed package always
// names one exact version, so the atom is reconstructed with a forced
// '=' operator; anything that does not come out as a plain exact-equals
// versioned atom is malformed client data.
func ParseInstalled(cpv string) (*Parsed, error) {
	p, err := Parse("=" + cpv)
	if err != nil {
		return nil, &ParseError{Atom: cpv}
	}
	if p.Operator != OpEquals || p.Version == "" {
		return nil, &ParseError{Atom: cpv}
	}
	return p, nil
}
