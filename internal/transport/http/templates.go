package http

import (
	"embed"
	"html/template"
)

//go:embed templates/*.html
var templatesFS embed.FS

// pageTemplates holds every page, keyed by file name.
var pageTemplates = template.Must(template.ParseFS(templatesFS, "templates/*.html"))
