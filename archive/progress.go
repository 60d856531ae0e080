package archive

// ProgressEvent is a progress update during archive creation.
type ProgressEvent struct {
	// Stage identifies the current phase.
	Stage ProgressStage

	// Path is the entry currently being written, if any.
	Path string

	// Entries is the number of tar entries written so far.
	Entries int

	// BytesIn is the number of uncompressed file bytes read so far.
	BytesIn uint64
}

// ProgressStage identifies the current phase of archive creation.
type ProgressStage uint8

const (
	// StageExpanding indicates path patterns are being expanded.
	StageExpanding ProgressStage = iota

	// StageArchiving indicates entries are being written.
	StageArchiving

	// StageDone indicates the archive was closed successfully.
	StageDone
)

// String returns the stage name.
func (s ProgressStage) String() string {
	switch s {
	case StageExpanding:
		return "expanding"
	case StageArchiving:
		return "archiving"
	case StageDone:
		return "done"
	default:
		return "unknown"
	}
}

// ProgressFunc receives progress updates. It is called synchronously from
// the goroutine running Build.
type ProgressFunc func(ProgressEvent)
