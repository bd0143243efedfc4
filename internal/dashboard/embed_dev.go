//go:build dev

package dashboard

import (
	"io/fs"
	"os"
)

// templateFS reads templates from the source tree in dev mode so edits show
// up without a rebuild. Run from the repository root.
var templateFS fs.FS = os.DirFS("internal/dashboard")
