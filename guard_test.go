package buildcache

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDecide(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name         string
		restoredKey  string
		targetKey    string
		remoteExists bool
		want         SkipReason
	}{
		{name: "restored exact key", restoredKey: "abc", targetKey: "abc", want: SkipRestored},
		{name: "restored wins over remote", restoredKey: "abc", targetKey: "abc", remoteExists: true, want: SkipRestored},
		{name: "remote exists with different restored key", restoredKey: "xyz", targetKey: "abc", remoteExists: true, want: SkipExists},
		{name: "remote exists without restore", targetKey: "abc", remoteExists: true, want: SkipExists},
		{name: "nothing cached", targetKey: "abc", want: SkipNone},
		{name: "different restored key", restoredKey: "abc-old", targetKey: "abc", want: SkipNone},
		{name: "case sensitive", restoredKey: "ABC", targetKey: "abc", want: SkipNone},
		{name: "no trimming", restoredKey: "abc ", targetKey: "abc", want: SkipNone},
		{name: "empty restored never matches", restoredKey: "", targetKey: "", want: SkipNone},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got := Decide(tt.restoredKey, tt.targetKey, tt.remoteExists)
			assert.Equal(t, tt.want, got)
			assert.Equal(t, tt.want != SkipNone, ShouldSkip(tt.restoredKey, tt.targetKey, tt.remoteExists))
		})
	}
}

func TestSkipReason_String(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "none", SkipNone.String())
	assert.Equal(t, "restored", SkipRestored.String())
	assert.Equal(t, "exists", SkipExists.String())
	assert.Equal(t, "unknown", SkipReason(99).String())
}
