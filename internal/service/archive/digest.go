package archive

import (
	"bytes"
	"fmt"
	"html/template"
	"sort"
	"strings"

	"github.com/annko/keiba-bot-go/internal/service/notify"
)

var digestTemplate = template.Must(template.New("digest").Parse(`<!DOCTYPE html>
<html>
<head><meta charset="UTF-8" /><title>{{.Title}}</title></head>
<body style="font-family: sans-serif; color: #111827;">
  <h2>{{.Title}}</h2>
  <p>対象 {{.Total}} レース / 保存 {{len .Archived}} / 既存 {{len .Skipped}} / 失敗 {{len .Failures}}</p>
  {{if .Failures}}
  <h3>失敗</h3>
  <ul>
    {{range .Failures}}<li><code>{{.ID}}</code> {{.Error}}</li>{{end}}
  </ul>
  {{end}}
</body>
</html>`))

type failure struct {
	ID    string
	Error string
}

func sortedFailures(s *Summary) []failure {
	out := make([]failure, 0, len(s.Failures))
	for id, msg := range s.Failures {
		out = append(out, failure{ID: id, Error: msg})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// RenderDigest turns a run summary into a mail with a plain text part.
func RenderDigest(s *Summary) (*notify.Message, error) {
	title := fmt.Sprintf("レースアーカイブ %s", s.Date.Format("2006-01-02"))
	failures := sortedFailures(s)

	var html bytes.Buffer
	err := digestTemplate.Execute(&html, map[string]any{
		"Title":    title,
		"Total":    s.Total,
		"Archived": s.Archived,
		"Skipped":  s.Skipped,
		"Failures": failures,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to render digest: %w", err)
	}

	var text strings.Builder
	fmt.Fprintf(&text, "%s\n", title)
	fmt.Fprintf(&text, "対象: %d 保存: %d 既存: %d 失敗: %d\n",
		s.Total, len(s.Archived), len(s.Skipped), len(s.Failures))
	for _, f := range failures {
		fmt.Fprintf(&text, "  %s: %s\n", f.ID, f.Error)
	}

	return &notify.Message{Subject: title, Text: text.String(), HTML: html.String()}, nil
}
