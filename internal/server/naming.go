package server

import (
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
)

// TimestampLayout formats upload stems: UTC, second precision, 14 digits.
const TimestampLayout = "20060102150405"

const (
	RawSuffix       = ".yaml"
	ConvertedSuffix = ".xrpals.yaml"
)

// Naming selects how upload file stems are derived.
type Naming string

const (
	// NamingTimestamp uses the bare timestamp. Uploads within the same
	// second share a name and the last write wins.
	NamingTimestamp Naming = "timestamp"
	// NamingUnique appends a random suffix to the timestamp.
	NamingUnique Naming = "unique"
)

// ParseNaming validates a naming mode. The empty string selects
// NamingTimestamp.
func ParseNaming(s string) (Naming, error) {
	switch n := Naming(strings.ToLower(strings.TrimSpace(s))); n {
	case "":
		return NamingTimestamp, nil
	case NamingTimestamp, NamingUnique:
		return n, nil
	default:
		return "", fmt.Errorf("unknown naming mode %q", s)
	}
}

// Stem returns the file stem for an upload received at t.
func (n Naming) Stem(t time.Time) string {
	ts := t.UTC().Format(TimestampLayout)
	if n == NamingUnique {
		return ts + "-" + uuid.NewString()
	}
	return ts
}

// uploadPaths returns the raw and converted paths for stem inside dir.
func uploadPaths(dir, stem string) (raw, converted string) {
	return filepath.Join(dir, stem+RawSuffix), filepath.Join(dir, stem+ConvertedSuffix)
}

// stemTime recovers the upload time from a file name produced by Stem.
func stemTime(name string) (time.Time, bool) {
	if len(name) <= len(TimestampLayout) {
		return time.Time{}, false
	}
	switch name[len(TimestampLayout)] {
	case '.', '-':
	default:
		return time.Time{}, false
	}
	if !strings.HasSuffix(name, RawSuffix) {
		return time.Time{}, false
	}
	t, err := time.ParseInLocation(TimestampLayout, name[:len(TimestampLayout)], time.UTC)
	if err != nil {
		return time.Time{}, false
	}
	return t, true
}
