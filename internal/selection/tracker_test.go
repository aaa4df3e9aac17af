package selection_test

import (
	"testing"

	"github.com/m-mizutani/gt"

	"github.com/raoulx24/dropzip/internal/apperr"
	"github.com/raoulx24/dropzip/internal/selection"
)

func TestTracker_AddIsIdempotent(t *testing.T) {
	tr := selection.NewTracker()

	gt.True(t, tr.Add("/data/a.txt"))
	gt.False(t, tr.Add("/data/a.txt"))

	gt.Equal(t, tr.Len(), 1)
	gt.Equal(t, tr.Items(), []selection.Item{{Path: "/data/a.txt", Included: true}})
}

func TestTracker_IncludedPathsKeepsOrder(t *testing.T) {
	tr := selection.NewTracker()
	tr.Add("/c")
	tr.Add("/a")
	tr.Add("/b")

	gt.NoError(t, tr.Toggle("/a", false))
	gt.Equal(t, tr.IncludedPaths(), []string{"/c", "/b"})

	gt.NoError(t, tr.Toggle("/a", true))
	gt.Equal(t, tr.IncludedPaths(), []string{"/c", "/a", "/b"})
}

func TestTracker_ToggleUnknown(t *testing.T) {
	tr := selection.NewTracker()
	err := tr.Toggle("/missing", true)
	gt.Error(t, err)
	gt.True(t, apperr.IsNotFound(err))
}

func TestTracker_Remove(t *testing.T) {
	tr := selection.NewTracker()
	tr.Add("/a")
	tr.Add("/b")
	tr.Add("/c")

	gt.True(t, tr.Remove("/b"))
	gt.False(t, tr.Remove("/b"))
	gt.False(t, tr.Remove("/never"))

	gt.Equal(t, tr.IncludedPaths(), []string{"/a", "/c"})

	// index stays consistent after removal
	gt.NoError(t, tr.Toggle("/c", false))
	gt.Equal(t, tr.IncludedPaths(), []string{"/a"})

	// re-adding a removed path appends it
	gt.True(t, tr.Add("/b"))
	gt.Equal(t, tr.IncludedPaths(), []string{"/a", "/b"})
}

func TestTracker_EmptyIncludedPaths(t *testing.T) {
	gt.Equal(t, len(selection.NewTracker().IncludedPaths()), 0)
}
