//go:build !whisper_cpp

package whisper

import "fmt"

// NewCPPEngine is unavailable without cgo; build with -tags whisper_cpp.
func NewCPPEngine(modelsDir string, threads int) (Engine, error) {
	return nil, fmt.Errorf("%w: whispercpp backend requires the whisper_cpp build tag", ErrModelLoad)
}
