package ansi

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/sphildreth/blackboard/internal/app"
)

// LoadArt reads an art file from the configured art path, strips its SAUCE
// record, and runs template interpolation. The returned string still
// carries raw CP437 bytes and ANSI escapes; Adapt handles the terminal.
func LoadArt(name string) (string, error) {
	path := filepath.Join(app.Config.Paths.Art, name+".ans")

	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("failed to read art %q: %w", name, err)
	}

	rendered, err := RenderTemplate(StripSauce(data), nil)
	if err != nil {
		return "", fmt.Errorf("failed to render art %q: %w", name, err)
	}

	return string(rendered), nil
}

// RenderArt writes an art file to w adapted to the given profile, with line
// endings normalized and a trailing attribute reset.
func RenderArt(w io.Writer, name string, p Profile) error {
	content, err := LoadArt(name)
	if err != nil {
		return err
	}

	out := NormalizeLineEndings(Adapt(content, p))
	if p.ANSI {
		out += ResetSeq
	}

	_, err = io.WriteString(w, out)
	return err
}
