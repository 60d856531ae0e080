package buildcache

// Decide reports why a save for targetKey is unnecessary, or SkipNone when
// it must proceed. Keys are compared byte for byte.
//
// A key restored earlier in the same run wins over the remote check, since
// entries are immutable once written.
func Decide(restoredKey, targetKey string, remoteExists bool) SkipReason {
	switch {
	case restoredKey != "" && restoredKey == targetKey:
		return SkipRestored
	case remoteExists:
		return SkipExists
	default:
		return SkipNone
	}
}

// ShouldSkip reports whether the save for targetKey can be skipped.
func ShouldSkip(restoredKey, targetKey string, remoteExists bool) bool {
	return Decide(restoredKey, targetKey, remoteExists) != SkipNone
}
