//go:build !dev

package dashboard

import (
	"embed"
	"io/fs"
)

//go:embed templates/*.html
var embeddedFS embed.FS

// templateFS holds the page templates. Embedded in production builds.
var templateFS fs.FS = embeddedFS
