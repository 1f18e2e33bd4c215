package docs

import (
	"embed"
)

//go:embed templates/*.md
var templateFS embed.FS

// Template returns the embedded seed content for a core document, or ""
// for documents without a template.
func Template(name string) string {
	data, err := templateFS.ReadFile("templates/" + name)
	if err != nil {
		return ""
	}
	return string(data)
}
