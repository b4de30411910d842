package catalog

import (
	"errors"
	"fmt"
)

// ErrConfig marks errors caused by bad configuration or invocation: an
// unknown option, a malformed mapping file, an overlapping rule. The CLI
// reports them before doing any work.
var ErrConfig = errors.New("configuration error")

// ErrStorage marks failures of the sidecar store or manifest. They abort
// an index run after retries are exhausted.
var ErrStorage = errors.New("storage error")

// Configf returns an error wrapping ErrConfig.
func Configf(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrConfig, fmt.Sprintf(format, args...))
}

// Processing stages reported in a FileError.
const (
	StageWalk    = "walk"
	StageStat    = "stat"
	StageHash    = "hash"
	StageExtract = "extract"
)

// FileError describes a failure confined to one file. It is recorded and
// logged; the run continues.
type FileError struct {
	Path  string
	Stage string
	Err   error
}

func (e *FileError) Error() string {
	return fmt.Sprintf("%s %s: %v", e.Stage, e.Path, e.Err)
}

func (e *FileError) Unwrap() error { return e.Err }
