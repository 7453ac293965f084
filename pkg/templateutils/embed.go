package templateutils

import (
	"io/fs"
	"text/template"

	sprig "github.com/Masterminds/sprig/v3"
)

// MustTemplate parses the template `name` from `fsys` with Funcs and the hermetic sprig functions.
// It panics if the template cannot be read or parsed, so it is meant for embedded templates.
func MustTemplate(fsys fs.FS, name string) *template.Template {
	content, err := fs.ReadFile(fsys, name)
	if err != nil {
		panic(err)
	}
	t, err := template.New(name).
		Funcs(Funcs).
		Funcs(sprig.HermeticTxtFuncMap()).
		Parse(string(content))
	if err != nil {
		panic(err)
	}
	return t
}
