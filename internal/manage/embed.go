//go:build !dev

package manage

import (
	"embed"
	"io/fs"
)

//go:embed templates/*.html
var embeddedFS embed.FS

var templateFS fs.FS = embeddedFS
