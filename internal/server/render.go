package server

import (
	"fmt"
	"html/template"
	"io/fs"
	"net/http"
	"time"

	"github.com/jameshendricken/iot-dashboard/web"
)

// renderer holds pre-compiled page templates. Each page template is the
// layout combined with that page's specific template, so "title" and
// "content" blocks are resolved per-page without collision.
type renderer struct {
	pages map[string]*template.Template
}

// newRenderer parses the layout template once, then clones it for each page
// template, producing a separate compiled template per page.
func newRenderer() (*renderer, error) {
	funcMap := template.FuncMap{
		"fixed0": func(f float64) string { return fmt.Sprintf("%.0f", f) },
		"fixed2": func(f float64) string { return fmt.Sprintf("%.2f", f) },
		"volumeBarWidth": func(v, max float64) int {
			// percentage width for the histogram bars; min 2 so tiny days stay visible
			if max <= 0 {
				return 0
			}
			w := int(v / max * 100)
			if w < 2 {
				w = 2
			}
			return w
		},
		"timeAgo": func(t time.Time) string { return timeAgoString(t) },
		"deref": func(p *int64) int64 {
			if p == nil {
				return 0
			}
			return *p
		},
		"derefStr": func(p *string) string {
			if p == nil {
				return ""
			}
			return *p
		},
		"fmtDay": func(t time.Time) string {
			if t.IsZero() {
				return ""
			}
			return t.Format("2006-01-02")
		},
		"fmtStamp": func(t time.Time) string {
			return t.UTC().Format("2006-01-02 15:04:05")
		},
	}

	layout, err := template.New("layout.html").Funcs(funcMap).ParseFS(web.TemplateFS, "templates/layout.html")
	if err != nil {
		return nil, fmt.Errorf("parse layout: %w", err)
	}

	entries, err := fs.ReadDir(web.TemplateFS, "templates")
	if err != nil {
		return nil, fmt.Errorf("read template dir: %w", err)
	}

	pages := make(map[string]*template.Template)
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || name == "layout.html" {
			continue
		}

		clone, err := layout.Clone()
		if err != nil {
			return nil, fmt.Errorf("clone layout for %s: %w", name, err)
		}
		if _, err := clone.ParseFS(web.TemplateFS, "templates/"+name); err != nil {
			return nil, fmt.Errorf("parse page %s: %w", name, err)
		}
		pages[name] = clone
	}

	return &renderer{pages: pages}, nil
}

// render executes the named page template with the given data.
func (rn *renderer) render(w http.ResponseWriter, page string, data any) {
	tmpl, ok := rn.pages[page]
	if !ok {
		http.Error(w, "template not found: "+page, http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := tmpl.ExecuteTemplate(w, "base", data); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}

// timeAgoString formats a time.Time as a human-readable "X ago" string.
func timeAgoString(t time.Time) string {
	if t.IsZero() {
		return "never"
	}
	d := time.Since(t)
	switch {
	case d < time.Minute:
		return "just now"
	case d < time.Hour:
		m := int(d.Minutes())
		if m == 1 {
			return "1 min ago"
		}
		return fmt.Sprintf("%d mins ago", m)
	case d < 24*time.Hour:
		h := int(d.Hours())
		if h == 1 {
			return "1 hour ago"
		}
		return fmt.Sprintf("%d hours ago", h)
	default:
		days := int(d.Hours() / 24)
		if days == 1 {
			return "1 day ago"
		}
		return fmt.Sprintf("%d days ago", days)
	}
}
