package backup

import (
	"fmt"
	"strings"
	"time"
)

// timestampLayout is the compact ISO 8601 form used in backup filenames.
// The extended form contains colons, which are not filename-safe.
const timestampLayout = "20060102T150405Z"

// incrementalBase is the reserved base name for incremental backups. The
// filename is the identity of a backup, so the kind must be recoverable from
// it alone.
const incrementalBase = "incremental"

// Kind distinguishes full snapshots from incremental deltas.
type Kind string

const (
	KindFull        Kind = "full"
	KindIncremental Kind = "incremental"
)

// Name is the decomposed form of a backup filename:
//
//	<base>-<timestamp>.json[.gz][.enc]
//
// Compression adds .gz, encryption adds .enc after it. Incremental backups
// use the reserved base "incremental" and are always plain .json.
type Name struct {
	Base       string
	Timestamp  time.Time
	Compressed bool
	Encrypted  bool
}

// Kind derives the backup kind from the base name.
func (n *Name) Kind() Kind {
	if n.Base == incrementalBase {
		return KindIncremental
	}
	return KindFull
}

// String composes the filename. The suffix order is fixed: encryption is
// applied over the possibly-compressed bytes, so .enc always comes last.
func (n *Name) String() string {
	var b strings.Builder
	b.WriteString(n.Base)
	b.WriteByte('-')
	b.WriteString(n.Timestamp.UTC().Format(timestampLayout))
	b.WriteString(".json")
	if n.Compressed {
		b.WriteString(".gz")
	}
	if n.Encrypted {
		b.WriteString(".enc")
	}
	return b.String()
}

// ParseName decomposes a backup filename. Files that do not follow the
// naming scheme (temp files, sidecars, foreign files) return an error and
// are skipped by directory scans.
func ParseName(filename string) (*Name, error) {
	n := &Name{}
	rest := filename

	if strings.HasSuffix(rest, ".enc") {
		n.Encrypted = true
		rest = strings.TrimSuffix(rest, ".enc")
	}
	if strings.HasSuffix(rest, ".gz") {
		n.Compressed = true
		rest = strings.TrimSuffix(rest, ".gz")
	}
	if !strings.HasSuffix(rest, ".json") {
		return nil, fmt.Errorf("not a backup filename: %s", filename)
	}
	rest = strings.TrimSuffix(rest, ".json")

	sep := strings.LastIndexByte(rest, '-')
	if sep <= 0 || sep == len(rest)-1 {
		return nil, fmt.Errorf("no timestamp in filename: %s", filename)
	}

	ts, err := time.Parse(timestampLayout, rest[sep+1:])
	if err != nil {
		return nil, fmt.Errorf("parsing timestamp in %s: %w", filename, err)
	}

	n.Base = rest[:sep]
	n.Timestamp = ts

	if n.Base == incrementalBase && (n.Compressed || n.Encrypted) {
		return nil, fmt.Errorf("incremental backups are always plain json: %s", filename)
	}
	return n, nil
}

// validateBaseName rejects base names that would break the filename contract.
func validateBaseName(base string) error {
	if base == "" {
		return fmt.Errorf("backup name is empty")
	}
	if base == incrementalBase {
		return fmt.Errorf("backup name %q is reserved", incrementalBase)
	}
	if strings.ContainsAny(base, "/\\") {
		return fmt.Errorf("backup name must not contain path separators: %s", base)
	}
	return nil
}
