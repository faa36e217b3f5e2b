// Package staticfiles bundles the stylesheet and scripts served under /static/.
package staticfiles

import (
	"embed"
	"io/fs"
)

//go:embed css/*.css js/*.js
var embedded embed.FS

func FS() fs.FS {
	return embedded
}
