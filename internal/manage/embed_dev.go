//go:build dev

package manage

import (
	"io/fs"
	"os"
)

// Templates are read from disk in dev builds. Run from the repository root.
var templateFS fs.FS = os.DirFS("internal/manage")
