package apt

import (
	"regexp"
	"strings"

	"github.com/debstrap/debstrap/internal/bserror"
	debversion "github.com/knqyf263/go-deb-version"
)

var (
	regexpParseVersion = regexp.MustCompile(`\((?P<constraint>\W{1,2})?\s*(?P<version>[^)]*)\)`)
	regexpName         = regexp.MustCompile(`^[^([]+`)
)

// VersionConstraint is a single alternative from a relational field
// expression such as "libc6 (>= 2.34) | libc6-compat".
type VersionConstraint struct {
	Names      []string
	Version    string
	Constraint string
}

// ParseRelation parses one Debian relational-field expression (as found
// in Depends/Pre-Depends/etc.), as used by the bootstrap-subset closure
// and the solver driver's seed-name check.
func ParseRelation(s string) (*VersionConstraint, error) {
	matches := regexpName.FindStringSubmatch(s)
	if len(matches) == 0 {
		return nil, bserror.Wrapf(bserror.MalformedIndex, s, "unable to extract package name from relation")
	}
	names := strings.Split(matches[0], "|")
	for i := range names {
		names[i] = strings.TrimSpace(names[i])
	}

	rest := strings.TrimPrefix(s, matches[0])
	m := regexpParseVersion.FindStringSubmatch(rest)
	var version, constraint string
	if len(m) > 0 {
		version = strings.TrimSpace(m[regexpParseVersion.SubexpIndex("version")])
		constraint = strings.TrimSpace(m[regexpParseVersion.SubexpIndex("constraint")])
	}
	return &VersionConstraint{Names: names, Version: version, Constraint: constraint}, nil
}

// Matches reports whether candidate version s1 satisfies the
// constraint. An empty version on either side matches anything.
func (v *VersionConstraint) Matches(s1 string) bool {
	if s1 == "" || v.Version == "" {
		return true
	}
	cand, err := debversion.NewVersion(s1)
	if err != nil {
		return false
	}
	want, err := debversion.NewVersion(v.Version)
	if err != nil {
		return false
	}
	switch v.Constraint {
	case ">>":
		return cand.GreaterThan(want)
	case "<<":
		return cand.LessThan(want)
	case "=":
		return cand.Equal(want)
	case ">=":
		return cand.GreaterThan(want) || cand.Equal(want)
	case "<=":
		return cand.LessThan(want) || cand.Equal(want)
	default:
		return true
	}
}

// CompareVersions compares a and b per Debian version ordering,
// returning 1 if a is greater than b, -1 if a is less than b, and 0 if
// they are equal.
func CompareVersions(a, b string) (int, error) {
	va, err := debversion.NewVersion(a)
	if err != nil {
		return 0, err
	}
	vb, err := debversion.NewVersion(b)
	if err != nil {
		return 0, err
	}
	switch {
	case va.GreaterThan(vb):
		return 1, nil
	case va.LessThan(vb):
		return -1, nil
	default:
		return 0, nil
	}
}
