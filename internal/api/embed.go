package api

import (
	"embed"
	"io/fs"
	"net/http"
)

//go:embed ui/*
var uiFiles embed.FS

// GetUIFileServer serves the embedded dashboard from the site root
func GetUIFileServer() http.Handler {
	sub, err := fs.Sub(uiFiles, "ui")
	if err != nil {
		// ui/ is embedded at build time, so this only fails on a broken build
		panic(err)
	}
	return http.FileServer(http.FS(sub))
}
