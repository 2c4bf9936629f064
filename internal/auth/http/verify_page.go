package http

import (
	"html/template"
	"net/http"

	"github.com/aussiebroadwan/techauth/pkg/httpx"
)

type verifyPage struct {
	Title   string
	Message string
	Success bool
}

var verifyPageTemplate = template.Must(template.New("verify").Parse(`<!DOCTYPE html>
<html>
<head><meta charset="utf-8"><title>{{.Title}}</title></head>
<body style="font-family: Arial, sans-serif; text-align: center; padding: 50px;">
{{if .Success}}<h1 style="color: #10B981;">{{.Title}}</h1>{{else}}<h1 style="color: #EF4444;">{{.Title}}</h1>{{end}}
<p>{{.Message}}</p>
</body>
</html>
`))

func renderVerifyPage(w http.ResponseWriter, status int, page verifyPage) {
	httpx.NoCache(w)
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	_ = verifyPageTemplate.Execute(w, page)
}
