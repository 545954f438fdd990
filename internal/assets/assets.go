// Package assets carries the files scaffolded into a new board directory by
// the init command.
package assets

import "embed"

//go:embed templates
var Templates embed.FS
