// Package naming validates archive base names and resolves where archives are written.
package naming

import (
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/adrg/xdg"
	"github.com/m-mizutani/goerr/v2"

	"github.com/raoulx24/dropzip/internal/apperr"
)

// Extension is the only archive extension dropzip writes.
const Extension = ".zip"

// invalidChars is the union of characters rejected in file names by the
// supported hosts, so a name valid here is valid everywhere.
const invalidChars = `<>:"/\|?*`

// ValidateBaseName trims name and rejects empty names and names with characters
// a host filesystem disallows. It returns the trimmed name.
func ValidateBaseName(name string) (string, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return "", goerr.New("archive name must not be empty", goerr.T(apperr.TagValidation))
	}
	if name == "." || name == ".." {
		return "", goerr.New("archive name is reserved",
			goerr.V("name", name),
			goerr.T(apperr.TagValidation))
	}

	for _, r := range name {
		if r < 0x20 || r == 0x7f || strings.ContainsRune(invalidChars, r) {
			return "", goerr.New("archive name contains an invalid character",
				goerr.V("name", name),
				goerr.V("char", string(r)),
				goerr.T(apperr.TagValidation))
		}
	}

	return name, nil
}

// FromPattern renders a time layout into a base name, e.g. "drop-2006-01-02T15-04-05".
func FromPattern(pattern string, now time.Time) string {
	return now.Format(pattern)
}

// DesktopDir returns the user's desktop directory.
func DesktopDir() string {
	return xdg.UserDirs.Desktop
}

// OutputDir resolves <root>/<folder>, defaulting root to the desktop, and
// creates it if it does not exist.
func OutputDir(root, folder string) (string, error) {
	if root == "" {
		root = DesktopDir()
	}
	dir := filepath.Join(root, folder)

	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", goerr.Wrap(err, "failed to create output folder",
			goerr.V("dir", dir),
			goerr.T(apperr.TagDirectoryCreation))
	}
	return dir, nil
}

// ArchivePath joins the output directory and a validated base name.
func ArchivePath(dir, base string) string {
	return filepath.Join(dir, base+Extension)
}
