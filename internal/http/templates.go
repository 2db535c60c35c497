package httpapp

import (
	"embed"
	"html/template"
	"time"
)

//go:embed templates/*.html
var templateFS embed.FS

type Templates struct {
	Blog    *template.Template
	Profile *template.Template
}

func loadTemplates() (*Templates, error) {
	funcs := template.FuncMap{
		"formatDate": func(t time.Time) string { return t.Format("2006-01-02") },
	}

	blog, err := template.New("blog.html").Funcs(funcs).ParseFS(templateFS, "templates/blog.html")
	if err != nil {
		return nil, err
	}
	profile, err := template.New("profile.html").Funcs(funcs).ParseFS(templateFS, "templates/profile.html")
	if err != nil {
		return nil, err
	}
	return &Templates{Blog: blog, Profile: profile}, nil
}
