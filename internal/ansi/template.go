package ansi

import (
	"bytes"
	"text/template"

	"github.com/Masterminds/sprig/v3"

	"github.com/sphildreth/blackboard/internal/app"
)

// TemplateData is what art templates can interpolate: board identity from
// the config plus any per-render extras.
type TemplateData struct {
	BoardName       string
	PrettyBoardName string
	Description     string
	Hostname        string
	Website         string
	Version         string
	Custom          map[string]interface{}
}

func NewTemplateData() *TemplateData {
	return &TemplateData{
		BoardName:       app.Config.General.BoardName,
		PrettyBoardName: app.Config.General.PrettyBoardName,
		Description:     app.Config.General.Description,
		Hostname:        app.Config.General.Hostname,
		Website:         app.Config.General.Website,
		Version:         app.Version,
		Custom:          make(map[string]interface{}),
	}
}

// RenderTemplate executes data as a Go template with the Sprig function set
// and the board's global template data. Art files with no template actions
// pass through unchanged.
func RenderTemplate(data []byte, extra map[string]interface{}) ([]byte, error) {
	tmplData := NewTemplateData()
	for k, v := range extra {
		tmplData.Custom[k] = v
	}

	tmpl, err := template.New("ansi").Funcs(sprig.FuncMap()).Parse(string(data))
	if err != nil {
		return nil, err
	}

	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, tmplData); err != nil {
		return nil, err
	}

	return buf.Bytes(), nil
}
