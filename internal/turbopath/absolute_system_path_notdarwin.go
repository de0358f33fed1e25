//go:build !darwin
// +build !darwin

package turbopath

import (
	"os"
)

// Lchmod is a no-op outside darwin: it returns nil and changes no mode.
func (p AbsoluteSystemPath) Lchmod(mode os.FileMode) error {
	return nil
}
