package httpapi

import (
	"bytes"
	_ "embed"
	"html/template"
	"net/http"
)

//go:embed static/index.html
var indexHTML string

var pageTmpl = template.Must(template.New("index").Parse(indexHTML))

type pageData struct {
	Title string
}

func servePage(w http.ResponseWriter, r *http.Request) {
	var buf bytes.Buffer
	if err := pageTmpl.Execute(&buf, pageData{Title: pageTitle}); err != nil {
		zlog.Error().Err(err).Msg("render page")
		writeJSONError(w, http.StatusInternalServerError, "failed to render page")
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_, _ = w.Write(buf.Bytes())
}
