package cli

import (
	"archive/zip"
	"bytes"
	"io"
	"os"
	"path/filepath"
	"sort"
	"testing"

	"github.com/m-mizutani/gt"

	"github.com/raoulx24/dropzip/internal/archive"
	"github.com/raoulx24/dropzip/internal/config"
	"github.com/raoulx24/dropzip/internal/logging"
	"github.com/raoulx24/dropzip/internal/worker"
)

type fixture struct {
	dir     string
	config  string
	outDir  string
	state   string
	history string
}

func newFixture(t *testing.T) fixture {
	t.Helper()
	dir := t.TempDir()
	f := fixture{
		dir:     dir,
		config:  filepath.Join(dir, "config.yaml"),
		outDir:  filepath.Join(dir, "out", "Output"),
		state:   filepath.Join(dir, "state", "selection.yaml"),
		history: filepath.Join(dir, "state", "history.db"),
	}

	cfg := "output:\n" +
		"  root: " + filepath.Join(dir, "out") + "\n" +
		"selection:\n" +
		"  stateFile: " + f.state + "\n" +
		"history:\n" +
		"  path: " + f.history + "\n" +
		"logging:\n" +
		"  level: error\n"
	gt.NoError(t, os.WriteFile(f.config, []byte(cfg), 0o644))
	return f
}

func (f fixture) write(t *testing.T, rel, content string) string {
	t.Helper()
	p := filepath.Join(f.dir, "in", rel)
	gt.NoError(t, os.MkdirAll(filepath.Dir(p), 0o755))
	gt.NoError(t, os.WriteFile(p, []byte(content), 0o644))
	return p
}

func (f fixture) run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	a := newApp(&out, io.Discard)
	err := a.Run(t.Context(), append([]string{"dropzip", "--config", f.config}, args...))
	return out.String(), err
}

func zipNames(t *testing.T, path string) []string {
	t.Helper()
	r, err := zip.OpenReader(path)
	gt.NoError(t, err)
	defer r.Close()

	var names []string
	for _, zf := range r.File {
		names = append(names, zf.Name)
	}
	sort.Strings(names)
	return names
}

func TestSelectionCommands(t *testing.T) {
	f := newFixture(t)
	a := f.write(t, "a.txt", "a")
	b := f.write(t, "b.txt", "b")

	out, err := f.run(t, "add", a, b, a)
	gt.NoError(t, err)
	gt.String(t, out).Contains("added 2 path(s)")

	_, err = f.run(t, "toggle", b, "off")
	gt.NoError(t, err)

	out, err = f.run(t, "list")
	gt.NoError(t, err)
	gt.String(t, out).Contains("[x] " + a)
	gt.String(t, out).Contains("[ ] " + b)

	_, err = f.run(t, "remove", a)
	gt.NoError(t, err)

	out, err = f.run(t, "list")
	gt.NoError(t, err)
	gt.String(t, out).NotContains(a)
}

func TestToggleUnknownPath(t *testing.T) {
	f := newFixture(t)

	_, err := f.run(t, "toggle", filepath.Join(f.dir, "nope"), "on")
	gt.Error(t, err)
}

func TestToggleBadFlag(t *testing.T) {
	f := newFixture(t)
	a := f.write(t, "a.txt", "a")

	_, err := f.run(t, "add", a)
	gt.NoError(t, err)

	out, err := f.run(t, "toggle", a, "maybe")
	gt.Error(t, err)
	gt.String(t, out).Contains("invalid input")
}

func TestBuildFromSelection(t *testing.T) {
	f := newFixture(t)
	a := f.write(t, "a.txt", "a")
	f.write(t, "D/x.txt", "x")
	f.write(t, "D/sub/y.txt", "y")
	d := filepath.Join(f.dir, "in", "D")
	skipped := f.write(t, "skip.txt", "s")

	_, err := f.run(t, "add", a, d, skipped)
	gt.NoError(t, err)
	_, err = f.run(t, "toggle", skipped, "off")
	gt.NoError(t, err)

	out, err := f.run(t, "build", "--name", "bundle")
	gt.NoError(t, err)
	gt.String(t, out).Contains("ZIP file 'bundle.zip' was created in " + f.outDir)

	names := zipNames(t, filepath.Join(f.outDir, "bundle.zip"))
	gt.Equal(t, names, []string{"D/sub/y.txt", "D/x.txt", "a.txt"})

	// included paths leave the selection, excluded ones stay
	out, err = f.run(t, "list")
	gt.NoError(t, err)
	gt.String(t, out).Contains("[ ] " + skipped)
	gt.String(t, out).NotContains(a)

	out, err = f.run(t, "history")
	gt.NoError(t, err)
	gt.String(t, out).Contains("succeeded")
	gt.String(t, out).Contains("bundle.zip")
}

func TestBuildWithArguments(t *testing.T) {
	f := newFixture(t)
	a := f.write(t, "a.txt", "a")
	missing := filepath.Join(f.dir, "in", "missing.txt")

	out, err := f.run(t, "build", "-n", "args", a, missing)
	gt.NoError(t, err)
	gt.String(t, out).Contains("skipped " + missing)

	names := zipNames(t, filepath.Join(f.outDir, "args.zip"))
	gt.Equal(t, names, []string{"a.txt"})
}

func TestBuildRejectsBadName(t *testing.T) {
	f := newFixture(t)
	a := f.write(t, "a.txt", "a")

	out, err := f.run(t, "build", "--name", "bad/name", a)
	gt.Error(t, err)
	gt.String(t, out).Contains("invalid input")

	_, statErr := os.Stat(f.outDir)
	gt.True(t, os.IsNotExist(statErr))
}

func TestBuildEmptySelection(t *testing.T) {
	f := newFixture(t)

	_, err := f.run(t, "build", "--name", "empty")
	gt.Error(t, err)
}

func TestInvalidConfig(t *testing.T) {
	f := newFixture(t)
	gt.NoError(t, os.WriteFile(f.config, []byte("archive:\n  symlinks: sometimes\n"), 0o644))

	_, err := f.run(t, "list")
	gt.Error(t, err)
}

func TestWatchHelpNamesRestartOnlySettings(t *testing.T) {
	f := newFixture(t)

	out, err := f.run(t, "watch", "--help")
	gt.NoError(t, err)
	gt.String(t, out).Contains("take effect after a restart")
	gt.String(t, out).Contains("schedule.*")
}

type fakeRetention struct {
	got config.RetentionConfig
}

func (f *fakeRetention) UpdateConfig(cfg config.RetentionConfig) { f.got = cfg }

func TestReloadAppliesRetentionAndOutput(t *testing.T) {
	f := newFixture(t)
	cfg, err := config.Load(f.config)
	gt.NoError(t, err)

	e := &env{cfg: cfg, configPath: f.config, logger: logging.Discard(), out: io.Discard}
	w := worker.New(cfg.Output, e.logger, archive.New())
	ret := &fakeRetention{}

	data, err := os.ReadFile(f.config)
	gt.NoError(t, err)
	data = append(data, []byte("retention:\n  lastCount: 3\n")...)
	gt.NoError(t, os.WriteFile(f.config, data, 0o644))

	reload(e, w, nil, ret)
	gt.Equal(t, ret.got.LastCount, 3)
	gt.Equal(t, e.cfg.Retention.LastCount, 3)
}
