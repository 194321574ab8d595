// Package snapshot implements the Snapshot Identifier (SID): the canonical
// timestamp-plus-tag string that names one snapshot, the two sentinel
// variants (Root, New) used when walking the live filesystem or the
// in-progress working directory, and the ordering rules that let a caller
// sort a mix of real and sentinel identifiers.
//
// Grounded on kopia's snapshot.SourceInfo/Manifest identity conventions
// (github.com/kopia/kopia/snapshot) and on the exact construction/ordering
// behavior exercised by the original tool's TestSID suite
// (_examples/original_source/common/test/test_snapshots.py).
package snapshot

import (
	"fmt"
	"regexp"
	"time"

	"github.com/pkg/errors"
)

// ErrInvalidFormat is returned by Parse when the input does not match the
// canonical SID grammar.
var ErrInvalidFormat = errors.New("invalid snapshot id format")

var sidRegexp = regexp.MustCompile(`^(\d{4})(\d{2})(\d{2})-(\d{2})(\d{2})(\d{2})(-(\d{3}))?$`)

// NewDirName is the reserved, non-SID directory name for the in-progress
// working directory. It never matches sidRegexp and is never returned by
// enumeration as a real SID.
const NewDirName = "new_snapshot"

type kind int8

const (
	kindReal kind = iota
	kindRoot
	kindNew
)

// Repo resolves a SID's canonical string to filesystem locations. It is a
// non-owning handle: SIDs do not keep a repository alive, they only borrow
// its root path for the lifetime of a path computation.
type Repo interface {
	// Root returns the repository's root directory, e.g. "/mnt/backups".
	Root() string
}

// ID is a Snapshot Identifier. The zero value is not valid; construct with
// Parse, FromTime, RootOf, or NewOf.
type ID struct {
	kind kind
	raw  string // canonical form; only meaningful when kind == kindReal
	repo Repo
}

// Parse validates s against the canonical SID grammar and binds it to repo.
// It accepts both the tagless form (length 15, "YYYYMMDD-HHMMSS") and the
// tagged form (length 19, "YYYYMMDD-HHMMSS-NNN").
func Parse(repo Repo, s string) (ID, error) {
	if !sidRegexp.MatchString(s) {
		return ID{}, errors.Wrapf(ErrInvalidFormat, "%q", s)
	}

	return ID{kind: kindReal, raw: s, repo: repo}, nil
}

// FromTime formats t (truncated to second resolution, UTC-naive — callers
// pass local or UTC time consistently) as a tagged SID using tag, which
// must be in [0, 999].
func FromTime(repo Repo, t time.Time, tag int) ID {
	if tag < 0 {
		tag = 0
	}

	if tag > 999 {
		tag %= 1000
	}

	raw := fmt.Sprintf("%04d%02d%02d-%02d%02d%02d-%03d",
		t.Year(), t.Month(), t.Day(), t.Hour(), t.Minute(), t.Second(), tag)

	return ID{kind: kindReal, raw: raw, repo: repo}
}

// RootOf returns the Root sentinel bound to repo: the live filesystem, now.
func RootOf(repo Repo) ID { return ID{kind: kindRoot, repo: repo} }

// NewOf returns the New sentinel bound to repo: the in-progress working
// directory.
func NewOf(repo Repo) ID { return ID{kind: kindNew, repo: repo} }

// IsReal reports whether id names an actual sealed (or sealable) snapshot,
// as opposed to a Root or New sentinel.
func (id ID) IsReal() bool { return id.kind == kindReal }

// IsRoot reports whether id is the Root sentinel.
func (id ID) IsRoot() bool { return id.kind == kindRoot }

// IsNew reports whether id is the New sentinel.
func (id ID) IsNew() bool { return id.kind == kindNew }

// String returns the canonical form for a real SID. Sentinels return a
// bracketed label; it is never written to disk and never parses back with
// Parse.
func (id ID) String() string {
	switch id.kind {
	case kindReal:
		return id.raw
	case kindRoot:
		return "<root>"
	case kindNew:
		return "<new>"
	default:
		return "<invalid>"
	}
}

// Key returns a value suitable as a map key that is consistent with Equal,
// ignoring the bound repo (two IDs for the same canonical string but
// different repos are still Equal/same-Key, matching spec.md's "equality
// is string equality on the canonical form").
func (id ID) Key() string {
	switch id.kind {
	case kindReal:
		return "r:" + id.raw
	case kindRoot:
		return "root"
	case kindNew:
		return "new"
	default:
		return "invalid"
	}
}

// Equal reports whether id and other name the same snapshot identity.
func (id ID) Equal(other ID) bool {
	return id.Key() == other.Key()
}

// Compare orders id relative to other: real SIDs compare lexicographically
// on their canonical string (which, being zero-padded, is also chronological
// order); Root sorts strictly above every real SID; New sorts strictly
// above Root.
func (id ID) Compare(other ID) int {
	ra, rb := rank(id), rank(other)
	if ra != rb {
		if ra < rb {
			return -1
		}

		return 1
	}

	if ra != 0 {
		return 0 // both sentinels of the same kind
	}

	switch {
	case id.raw < other.raw:
		return -1
	case id.raw > other.raw:
		return 1
	default:
		return 0
	}
}

func rank(id ID) int {
	switch id.kind {
	case kindReal:
		return 0
	case kindRoot:
		return 1
	case kindNew:
		return 2
	default:
		return -1
	}
}

// Less reports whether id sorts before other; convenient for sort.Slice.
func (id ID) Less(other ID) bool { return id.Compare(other) < 0 }

// Tag returns the three-digit profile tag of a real SID, if present.
func (id ID) Tag() (tag int, ok bool) {
	m := sidRegexp.FindStringSubmatch(id.raw)
	if m == nil || m[8] == "" {
		return 0, false
	}

	fmt.Sscanf(m[8], "%d", &tag)

	return tag, true
}

// WithoutTag returns a copy of id with any trailing "-NNN" tag stripped.
func (id ID) WithoutTag() ID {
	if id.kind != kindReal {
		return id
	}

	if len(id.raw) == 19 {
		return ID{kind: kindReal, raw: id.raw[:15], repo: id.repo}
	}

	return id
}

// Split returns the six integer date/time components of a real SID.
func (id ID) Split() (year, month, day, hour, minute, second int, err error) {
	m := sidRegexp.FindStringSubmatch(id.raw)
	if m == nil {
		return 0, 0, 0, 0, 0, 0, errors.Wrapf(ErrInvalidFormat, "%q", id.raw)
	}

	fmt.Sscanf(m[1], "%d", &year)
	fmt.Sscanf(m[2], "%d", &month)
	fmt.Sscanf(m[3], "%d", &day)
	fmt.Sscanf(m[4], "%d", &hour)
	fmt.Sscanf(m[5], "%d", &minute)
	fmt.Sscanf(m[6], "%d", &second)

	return year, month, day, hour, minute, second, nil
}

// Time returns id's timestamp as a time.Time in loc (typically time.Local
// or time.UTC, whichever the caller used to produce it via FromTime).
func (id ID) Time(loc *time.Location) (time.Time, error) {
	y, mo, d, h, mi, s, err := id.Split()
	if err != nil {
		return time.Time{}, err
	}

	return time.Date(y, time.Month(mo), d, h, mi, s, 0, loc), nil
}

// DisplayID formats a real SID's timestamp as "YYYY-MM-DD HH:MM:SS".
func (id ID) DisplayID() string {
	y, mo, d, h, mi, s, err := id.Split()
	if err != nil {
		return id.String()
	}

	return fmt.Sprintf("%04d-%02d-%02d %02d:%02d:%02d", y, mo, d, h, mi, s)
}
