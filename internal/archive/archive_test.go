package archive_test

import (
	"archive/zip"
	"context"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/m-mizutani/gt"

	"github.com/raoulx24/dropzip/internal/apperr"
	"github.com/raoulx24/dropzip/internal/archive"
)

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	gt.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	gt.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

// readZip returns entry names in archive order and their contents.
func readZip(t *testing.T, path string) ([]string, map[string]string) {
	t.Helper()
	zr, err := zip.OpenReader(path)
	gt.NoError(t, err)
	defer zr.Close()

	var names []string
	contents := map[string]string{}
	for _, f := range zr.File {
		rc, err := f.Open()
		gt.NoError(t, err)
		data, err := io.ReadAll(rc)
		gt.NoError(t, err)
		gt.NoError(t, rc.Close())

		names = append(names, f.Name)
		contents[f.Name] = string(data)
	}
	return names, contents
}

func TestBuild_RegularFilesUseBaseName(t *testing.T) {
	src := t.TempDir()
	a := filepath.Join(src, "one", "a.txt")
	b := filepath.Join(src, "two", "b.bin")
	writeFile(t, a, "alpha")
	writeFile(t, b, "\x00\x01\x02beta")

	out := filepath.Join(t.TempDir(), "files.zip")
	res, err := archive.New().Build(context.Background(), out, []string{a, b})
	gt.NoError(t, err)
	gt.Equal(t, len(res.Entries), 2)
	gt.Equal(t, res.Bytes, int64(len("alpha")+len("\x00\x01\x02beta")))

	names, contents := readZip(t, out)
	gt.Equal(t, names, []string{"a.txt", "b.bin"})
	gt.Equal(t, contents["a.txt"], "alpha")
	gt.Equal(t, contents["b.bin"], "\x00\x01\x02beta")
}

func TestBuild_DirectoryKeepsRelativeStructure(t *testing.T) {
	src := t.TempDir()
	d := filepath.Join(src, "D")
	writeFile(t, filepath.Join(d, "a.txt"), "a")
	writeFile(t, filepath.Join(d, "z.txt"), "z")
	writeFile(t, filepath.Join(d, "sub", "b.txt"), "b")
	writeFile(t, filepath.Join(d, "sub", "deeper", "c.txt"), "c")

	out := filepath.Join(t.TempDir(), "tree.zip")
	_, err := archive.New().Build(context.Background(), out, []string{d})
	gt.NoError(t, err)

	names, contents := readZip(t, out)
	gt.Equal(t, names, []string{"D/a.txt", "D/z.txt", "D/sub/b.txt", "D/sub/deeper/c.txt"})
	gt.Equal(t, contents["D/sub/b.txt"], "b")

	for _, n := range names {
		gt.False(t, strings.Contains(n, `\`))
	}
}

func TestBuild_OverwritesInsteadOfMerging(t *testing.T) {
	src := t.TempDir()
	first := filepath.Join(src, "first.txt")
	second := filepath.Join(src, "second.txt")
	writeFile(t, first, "1")
	writeFile(t, second, "2")

	out := filepath.Join(t.TempDir(), "same.zip")
	b := archive.New()

	_, err := b.Build(context.Background(), out, []string{first})
	gt.NoError(t, err)
	_, err = b.Build(context.Background(), out, []string{second})
	gt.NoError(t, err)

	names, _ := readZip(t, out)
	gt.Equal(t, names, []string{"second.txt"})
}

func TestBuild_SkipsMissingInputs(t *testing.T) {
	src := t.TempDir()
	ok := filepath.Join(src, "ok.txt")
	writeFile(t, ok, "ok")
	missing := filepath.Join(src, "missing.txt")

	out := filepath.Join(t.TempDir(), "partial.zip")
	res, err := archive.New().Build(context.Background(), out, []string{missing, ok})
	gt.NoError(t, err)

	gt.Equal(t, len(res.Skipped), 1)
	gt.Equal(t, res.Skipped[0], archive.Skip{Path: missing, Reason: archive.ReasonMissing})

	names, _ := readZip(t, out)
	gt.Equal(t, names, []string{"ok.txt"})
}

func TestBuild_OnlyMissingInputsYieldsEmptyArchive(t *testing.T) {
	out := filepath.Join(t.TempDir(), "empty.zip")
	res, err := archive.New().Build(context.Background(), out, []string{filepath.Join(t.TempDir(), "nope")})
	gt.NoError(t, err)
	gt.Equal(t, len(res.Entries), 0)

	names, _ := readZip(t, out)
	gt.Equal(t, len(names), 0)
}

func TestBuild_DuplicateBaseNamesFirstWins(t *testing.T) {
	src := t.TempDir()
	a := filepath.Join(src, "a", "same.txt")
	b := filepath.Join(src, "b", "same.txt")
	writeFile(t, a, "from a")
	writeFile(t, b, "from b")

	out := filepath.Join(t.TempDir(), "dup.zip")
	res, err := archive.New().Build(context.Background(), out, []string{a, b})
	gt.NoError(t, err)
	gt.Equal(t, res.Skipped, []archive.Skip{{Path: b, Reason: archive.ReasonDuplicate}})

	_, contents := readZip(t, out)
	gt.Equal(t, contents["same.txt"], "from a")
}

func TestBuild_EmptyInputs(t *testing.T) {
	_, err := archive.New().Build(context.Background(), filepath.Join(t.TempDir(), "x.zip"), nil)
	gt.Error(t, err)
	gt.True(t, apperr.IsValidation(err))
}

func TestBuild_RejectsNonZipPath(t *testing.T) {
	src := filepath.Join(t.TempDir(), "a.txt")
	writeFile(t, src, "a")

	_, err := archive.New().Build(context.Background(), filepath.Join(t.TempDir(), "x.tar"), []string{src})
	gt.Error(t, err)
	gt.True(t, apperr.IsValidation(err))
}

func TestBuild_CreatesParentDirectory(t *testing.T) {
	src := filepath.Join(t.TempDir(), "a.txt")
	writeFile(t, src, "a")

	out := filepath.Join(t.TempDir(), "Output", "nested", "x.zip")
	_, err := archive.New().Build(context.Background(), out, []string{src})
	gt.NoError(t, err)

	_, err = os.Stat(out)
	gt.NoError(t, err)
}

func TestBuild_NoTempFilesLeftBehind(t *testing.T) {
	src := filepath.Join(t.TempDir(), "a.txt")
	writeFile(t, src, "a")

	outDir := t.TempDir()
	_, err := archive.New().Build(context.Background(), filepath.Join(outDir, "x.zip"), []string{src})
	gt.NoError(t, err)

	entries, err := os.ReadDir(outDir)
	gt.NoError(t, err)
	gt.Equal(t, len(entries), 1)
	gt.Equal(t, entries[0].Name(), "x.zip")
}

func TestBuild_OutputInsideInputIsSkipped(t *testing.T) {
	d := filepath.Join(t.TempDir(), "D")
	writeFile(t, filepath.Join(d, "a.txt"), "a")
	out := filepath.Join(d, "self.zip")

	b := archive.New()
	_, err := b.Build(context.Background(), out, []string{d})
	gt.NoError(t, err)

	// the previous archive now sits inside D and must not be archived again
	res, err := b.Build(context.Background(), out, []string{d})
	gt.NoError(t, err)
	gt.Equal(t, res.Skipped, []archive.Skip{{Path: out, Reason: archive.ReasonOutput}})

	names, _ := readZip(t, out)
	gt.Equal(t, names, []string{"D/a.txt"})
}

func TestBuild_SymlinkCycleIsSkipped(t *testing.T) {
	d := filepath.Join(t.TempDir(), "D")
	writeFile(t, filepath.Join(d, "a.txt"), "a")
	if err := os.Symlink(d, filepath.Join(d, "loop")); err != nil {
		t.Skipf("symlinks unsupported: %v", err)
	}

	out := filepath.Join(t.TempDir(), "cycle.zip")
	res, err := archive.New().Build(context.Background(), out, []string{d})
	gt.NoError(t, err)
	gt.Equal(t, res.Skipped, []archive.Skip{{Path: filepath.Join(d, "loop"), Reason: archive.ReasonCycle}})

	names, _ := readZip(t, out)
	gt.Equal(t, names, []string{"D/a.txt"})
}

func TestBuild_SymlinkPolicy(t *testing.T) {
	src := t.TempDir()
	d := filepath.Join(src, "D")
	target := filepath.Join(src, "target.txt")
	writeFile(t, target, "linked")
	writeFile(t, filepath.Join(d, "a.txt"), "a")
	if err := os.Symlink(target, filepath.Join(d, "link.txt")); err != nil {
		t.Skipf("symlinks unsupported: %v", err)
	}

	t.Run("follow archives link targets", func(t *testing.T) {
		out := filepath.Join(t.TempDir(), "follow.zip")
		_, err := archive.New().Build(context.Background(), out, []string{d})
		gt.NoError(t, err)

		names, contents := readZip(t, out)
		gt.Equal(t, names, []string{"D/a.txt", "D/link.txt"})
		gt.Equal(t, contents["D/link.txt"], "linked")
	})

	t.Run("skip ignores links", func(t *testing.T) {
		out := filepath.Join(t.TempDir(), "skip.zip")
		res, err := archive.New(archive.WithSymlinkPolicy(archive.SkipSymlinks)).Build(context.Background(), out, []string{d})
		gt.NoError(t, err)
		gt.Equal(t, res.Skipped, []archive.Skip{{Path: filepath.Join(d, "link.txt"), Reason: archive.ReasonSymlink}})

		names, _ := readZip(t, out)
		gt.Equal(t, names, []string{"D/a.txt"})
	})
}

func TestBuild_BrokenSymlinkIsSkipped(t *testing.T) {
	d := filepath.Join(t.TempDir(), "D")
	writeFile(t, filepath.Join(d, "a.txt"), "a")
	broken := filepath.Join(d, "broken")
	if err := os.Symlink(filepath.Join(d, "gone"), broken); err != nil {
		t.Skipf("symlinks unsupported: %v", err)
	}

	out := filepath.Join(t.TempDir(), "broken.zip")
	res, err := archive.New().Build(context.Background(), out, []string{d})
	gt.NoError(t, err)
	gt.Equal(t, res.Skipped, []archive.Skip{{Path: broken, Reason: archive.ReasonMissing}})
}

func TestBuild_RoundTrip(t *testing.T) {
	src := t.TempDir()
	d := filepath.Join(src, "project")
	files := map[string]string{
		"README.md":          "# project\n",
		"cmd/main.go":        "package main\n",
		"internal/x/x.go":    "package x\n",
		"internal/x/data.db": string([]byte{0, 1, 2, 3, 255}),
	}
	for rel, content := range files {
		writeFile(t, filepath.Join(d, filepath.FromSlash(rel)), content)
	}

	out := filepath.Join(t.TempDir(), "project.zip")
	_, err := archive.New(archive.WithLevel(9)).Build(context.Background(), out, []string{d})
	gt.NoError(t, err)

	dest := t.TempDir()
	zr, err := zip.OpenReader(out)
	gt.NoError(t, err)
	defer zr.Close()
	for _, f := range zr.File {
		target := filepath.Join(dest, filepath.FromSlash(f.Name))
		rc, err := f.Open()
		gt.NoError(t, err)
		data, err := io.ReadAll(rc)
		gt.NoError(t, err)
		gt.NoError(t, rc.Close())
		writeFile(t, target, string(data))
	}

	for rel, content := range files {
		got, err := os.ReadFile(filepath.Join(dest, "project", filepath.FromSlash(rel)))
		gt.NoError(t, err)
		gt.Equal(t, string(got), content)
	}
}

func TestPlan_DoesNotWrite(t *testing.T) {
	src := filepath.Join(t.TempDir(), "a.txt")
	writeFile(t, src, "12345")
	out := filepath.Join(t.TempDir(), "never.zip")

	plan, err := archive.New().Plan(context.Background(), out, []string{src})
	gt.NoError(t, err)
	gt.Equal(t, plan.Bytes, int64(5))
	gt.Equal(t, plan.Entries[0].Name, "a.txt")

	_, err = os.Stat(out)
	gt.True(t, os.IsNotExist(err))
}

func TestPlan_RelativeParentInputUsesRealName(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "a", "f.txt"), "f")
	gt.NoError(t, os.MkdirAll(filepath.Join(root, "a", "b"), 0o755))
	t.Chdir(filepath.Join(root, "a", "b"))

	for _, in := range []string{"..", "../b/..", "."} {
		plan, err := archive.New().Plan(context.Background(), "", []string{in})
		gt.NoError(t, err)
		for _, e := range plan.Entries {
			gt.False(t, strings.HasPrefix(e.Name, ".."))
			gt.False(t, strings.Contains(e.Name, "/../"))
		}
		if in != "." {
			gt.Equal(t, len(plan.Entries), 1)
			gt.Equal(t, plan.Entries[0].Name, "a/f.txt")
		}
	}
}
