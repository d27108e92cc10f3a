// Package convert turns an uploaded points file into its inline form.
package convert

import (
	"fmt"

	"xrpals-lps/internal/fsutil"
	"xrpals-lps/internal/points"
)

// Stage names the step of a conversion that failed.
type Stage string

const (
	StageRead  Stage = "read"
	StageParse Stage = "parse"
	StageWrite Stage = "write"
)

// Error reports a failed conversion. Err keeps the underlying cause for
// logging; callers that only care about success can treat every *Error
// the same way.
type Error struct {
	Stage Stage
	Path  string
	Err   error
}

func (e *Error) Error() string {
	return fmt.Sprintf("convert: %s %s: %v", e.Stage, e.Path, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// Result describes a successful conversion.
type Result struct {
	Points int
	Bytes  int
}

// Converter reads and writes through a FileSystem.
type Converter struct {
	fs fsutil.FileSystem
}

// New returns a Converter backed by fsys. A nil fsys uses the OS.
func New(fsys fsutil.FileSystem) *Converter {
	if fsys == nil {
		fsys = fsutil.OSFileSystem{}
	}
	return &Converter{fs: fsys}
}

// Convert reads inputPath, parses it as a points mapping and writes the
// inline form to outputPath. Nothing is written unless parsing succeeds.
func (c *Converter) Convert(inputPath, outputPath string) (Result, error) {
	data, err := c.fs.ReadFile(inputPath)
	if err != nil {
		return Result{}, &Error{Stage: StageRead, Path: inputPath, Err: err}
	}

	m, err := points.Parse(data)
	if err != nil {
		return Result{}, &Error{Stage: StageParse, Path: inputPath, Err: err}
	}

	out := points.MarshalInline(m)
	if err := c.fs.WriteFile(outputPath, out, 0o644); err != nil {
		return Result{}, &Error{Stage: StageWrite, Path: outputPath, Err: err}
	}

	return Result{Points: len(m), Bytes: len(out)}, nil
}
