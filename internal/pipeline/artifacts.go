package pipeline

import (
	"errors"
	"fmt"
	"os"
)

// Artifacts tracks files a run created and must remove before it exits.
// Release is safe to call more than once.
type Artifacts struct {
	paths []string
}

func (a *Artifacts) Track(path string) {
	a.paths = append(a.paths, path)
}

func (a *Artifacts) Release() error {
	var errs []error
	for _, p := range a.paths {
		if err := os.Remove(p); err != nil && !os.IsNotExist(err) {
			errs = append(errs, fmt.Errorf("remove %s: %w", p, err))
		}
	}
	a.paths = nil
	return errors.Join(errs...)
}
