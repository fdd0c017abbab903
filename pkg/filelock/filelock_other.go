//go:build !unix && !windows

package filelock

import (
	"fmt"
	"os"
	"runtime"
)

func tryLockFile(f *os.File) error {
	return fmt.Errorf("lock %s on %s: %w", f.Name(), runtime.GOOS, ErrUnsupported)
}

func unlockFile(*os.File) error {
	return nil
}
