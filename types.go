package buildcache

// PathSpec is an ordered, de-duplicated list of path patterns.
//
// Order only matters for the derived archive name.
type PathSpec []string

// RestoreRecord carries the values recorded by the restore phase of the same
// run. The zero value means no restore happened.
type RestoreRecord struct {
	// Path is the path spec the restore phase resolved.
	Path PathSpec

	// Key is the cache key the restore phase was asked for.
	Key string

	// MatchedKey is the key that actually matched during restore, if any.
	MatchedKey string
}

// Request describes one save invocation.
type Request struct {
	// Record is the prior-phase state. Its values take precedence over the
	// user inputs below.
	Record RestoreRecord

	// PathInput is the raw "path" input: patterns separated by newlines or commas.
	PathInput string

	// KeyInput is the raw "key" input.
	KeyInput string
}

// SkipReason explains why a save was skipped.
type SkipReason uint8

const (
	// SkipNone means the save proceeded.
	SkipNone SkipReason = iota

	// SkipRestored means the exact key was restored earlier in this run.
	SkipRestored

	// SkipExists means the object store already holds the entry.
	SkipExists
)

// String returns a short name for the reason.
func (r SkipReason) String() string {
	switch r {
	case SkipNone:
		return "none"
	case SkipRestored:
		return "restored"
	case SkipExists:
		return "exists"
	default:
		return "unknown"
	}
}

// Result reports the outcome of [Saver.Save].
type Result struct {
	// Skipped is true when no archive was created.
	Skipped bool

	// Reason is set when Skipped is true.
	Reason SkipReason

	// Key is the resolved cache key.
	Key string

	// Name is the archive name derived from the path spec.
	Name string

	// Size is the uploaded archive size in bytes. Zero when skipped.
	Size int64
}
