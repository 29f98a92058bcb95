package ops

import (
	"bytes"
	"html/template"
	"io"
	"time"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/renderer/html"

	"github.com/hpungsan/jot/internal/errors"
	"github.com/hpungsan/jot/internal/jot"
)

// markdown renders jot messages. Raw HTML in messages is dropped.
var markdown = goldmark.New(
	goldmark.WithExtensions(extension.GFM),
	goldmark.WithRendererOptions(html.WithHardWraps()),
)

var exportTemplate = template.Must(template.New("export").Funcs(template.FuncMap{
	"date": func(t time.Time) string { return t.UTC().Format("2006-01-02 15:04 UTC") },
}).Parse(`<!DOCTYPE html>
<html lang="en">
<head>
<meta charset="utf-8">
<title>Jot export</title>
<style>
body { font-family: sans-serif; max-width: 48rem; margin: 2rem auto; color: #222; }
article { border-top: 1px solid #ddd; padding: 0.75rem 0; }
.meta { color: #666; font-size: 0.85rem; }
.tag { background: #eef; border-radius: 3px; padding: 0 0.3rem; margin-right: 0.25rem; }
</style>
</head>
<body>
<h1>Jot export</h1>
<p class="meta">{{.Count}} jots, exported {{date .ExportedAt}}</p>
{{range .Groups}}
<section>
<h2>{{.Name}}</h2>
{{range .Jots}}
<article id="jot-{{.ID}}">
<div class="meta">#{{.ID}} &middot; {{date .CreatedAt}}{{if .ExpiresAt}} &middot; expires {{date .ExpiresAt}}{{end}}</div>
{{.Body}}
{{if .Tags}}<div>{{range .Tags}}<span class="tag">{{.}}</span>{{end}}</div>{{end}}
{{if .Metadata}}<dl class="meta">{{range $k, $v := .Metadata}}<dt>{{$k}}</dt><dd>{{$v}}</dd>{{end}}</dl>{{end}}
</article>
{{end}}
</section>
{{end}}
</body>
</html>
`))

type htmlJot struct {
	ID        int64
	CreatedAt time.Time
	ExpiresAt *time.Time
	Body      template.HTML
	Tags      []string
	Metadata  map[string]string
}

type htmlGroup struct {
	Name string
	Jots []htmlJot
}

// writeHTML renders jots grouped by context, in first-appearance order.
func writeHTML(w io.Writer, jots []*jot.Jot, now time.Time) error {
	var groups []*htmlGroup
	byContext := make(map[int64]*htmlGroup)
	for _, j := range jots {
		g, ok := byContext[j.ContextID]
		if !ok {
			g = &htmlGroup{Name: j.ContextName}
			byContext[j.ContextID] = g
			groups = append(groups, g)
		}
		g.Jots = append(g.Jots, htmlJot{
			ID:        j.ID,
			CreatedAt: j.CreatedAt,
			ExpiresAt: j.ExpiresAt,
			Body:      renderMarkdown(j.Message),
			Tags:      j.Tags,
			Metadata:  j.Metadata,
		})
	}

	data := struct {
		Count      int
		ExportedAt time.Time
		Groups     []*htmlGroup
	}{len(jots), now, groups}

	if err := exportTemplate.Execute(w, data); err != nil {
		return errors.NewInternal(err)
	}
	return nil
}

// renderMarkdown converts markdown text to HTML, falling back to escaped text.
func renderMarkdown(md string) template.HTML {
	var buf bytes.Buffer
	if err := markdown.Convert([]byte(md), &buf); err != nil {
		return template.HTML(template.HTMLEscapeString(md))
	}
	return template.HTML(buf.String())
}
