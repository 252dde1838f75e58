// Package apt implements the repository metadata fetcher/verifier and
// the Debian control-stanza index parser: everything upstream of the
// dependency solver.
package apt

// Repository is a mirror URL plus the branch, components, and
// architectures to fetch from it. Components default to {"main"};
// architectures typically include the target architecture plus "all".
type Repository struct {
	Mirror        string
	Branch        string
	Components    []string
	Architectures []string
}

// ReleaseEntry is one digest-pinned file reference from a ReleaseFile.
type ReleaseEntry struct {
	Path   string
	Size   int64
	SHA256 string
}

// ReleaseFile is the parsed top-level index: a mapping of relative file
// paths to (size, sha256). Every Packages* file consumed by FetchIndex
// must appear here with a matching digest.
type ReleaseFile struct {
	Entries map[string]ReleaseEntry
	Origin  string // the InRelease/Release URL it was fetched from
}

// Lookup returns the entry for a relative path, or false if absent.
func (r *ReleaseFile) Lookup(path string) (ReleaseEntry, bool) {
	e, ok := r.Entries[path]
	return e, ok
}

// PackageRecord is one Debian control stanza from a Packages index. The
// well-known fields the solver needs are promoted to struct fields;
// every other field (including ones this package doesn't know about) is
// preserved verbatim in Extra, with first-seen order in FieldOrder, because the solver
// needs relational fields such as Provides/Replaces untouched.
type PackageRecord struct {
	Package      string
	Version      string
	Architecture string
	Filename     string
	Size         int64
	SHA256       string
	SHA512       string
	MD5sum       string

	Depends    []string
	PreDepends []string
	Recommends []string
	Conflicts  []string
	Breaks     []string
	Provides   []string
	Replaces   []string

	// Extra preserves every field (including the ones above, and any
	// field this package doesn't model) exactly as it appeared in the
	// stanza, for round-tripping and for forwarding to the solver.
	Extra      map[string]string
	FieldOrder []string
}

// Digest returns the strongest available digest field name and value,
// preferring SHA256 over SHA512 over MD5sum, matching the spec's
// "one of SHA256/SHA512/MD5sum" requirement.
func (p *PackageRecord) Digest() (kind, value string) {
	switch {
	case p.SHA256 != "":
		return "SHA256", p.SHA256
	case p.SHA512 != "":
		return "SHA512", p.SHA512
	default:
		return "MD5sum", p.MD5sum
	}
}

// String renders the record as "<name><version>", matching the
// teacher's Package.String convention used for dependency-closure
// deduplication keys.
func (p *PackageRecord) String() string {
	return p.Package + p.Version
}

// PackagesIndex is an ordered list of PackageRecord values parsed from
// one component/architecture's Packages file, plus the repository
// mirror it came from (so PlanEntry can build a remote URL).
type PackagesIndex struct {
	Records []PackageRecord
	Source  string // mirror base URL this index was fetched from
}

// PlanEntry is one step of the solver's InstallPlan: a package to fetch
// and unpack, in solver-assigned order.
type PlanEntry struct {
	Name           string
	Version        string
	Architecture   string
	URL            string
	ExpectedSize   int64
	ExpectedDigest string // always sha256, see pkg/solver
}
