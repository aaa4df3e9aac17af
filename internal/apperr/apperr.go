// Package apperr defines the kinds of failures a build can surface to the user.
// Kinds are goerr tags so callers can wrap freely and still classify the error.
package apperr

import "github.com/m-mizutani/goerr/v2"

var (
	// TagValidation marks bad user input detected before any filesystem work.
	TagValidation = goerr.NewTag("validation")
	// TagDirectoryCreation marks a failure to create the output folder.
	TagDirectoryCreation = goerr.NewTag("directory_creation")
	// TagIO marks any failure while removing, creating, reading or writing the archive.
	TagIO = goerr.NewTag("io")
	// TagNotFound marks a lookup of an unknown selection path.
	TagNotFound = goerr.NewTag("not_found")
	// TagBusy marks a build request rejected because another one is in flight.
	TagBusy = goerr.NewTag("busy")
	// TagConfig marks an invalid configuration file.
	TagConfig = goerr.NewTag("config")
)

func IsValidation(err error) bool        { return goerr.HasTag(err, TagValidation) }
func IsDirectoryCreation(err error) bool { return goerr.HasTag(err, TagDirectoryCreation) }
func IsIO(err error) bool                { return goerr.HasTag(err, TagIO) }
func IsNotFound(err error) bool          { return goerr.HasTag(err, TagNotFound) }
func IsBusy(err error) bool              { return goerr.HasTag(err, TagBusy) }
func IsConfig(err error) bool            { return goerr.HasTag(err, TagConfig) }

// Kind returns a short name for the error's kind, or "error" when untagged.
func Kind(err error) string {
	switch {
	case err == nil:
		return ""
	case IsValidation(err):
		return "validation"
	case IsDirectoryCreation(err):
		return "directory_creation"
	case IsIO(err):
		return "io"
	case IsNotFound(err):
		return "not_found"
	case IsBusy(err):
		return "busy"
	case IsConfig(err):
		return "config"
	default:
		return "error"
	}
}
