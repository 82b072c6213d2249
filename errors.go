/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

package main

import (
	"fmt"
	"html"
	"log"
	"strings"
	"time"

	"github.com/fatih/color"
)

var errorLabel = color.New(color.FgRed, color.Bold).SprintFunc()

func logf(cfg *Config, format string, args ...any) {
	if !cfg.verbose {
		return
	}

	log.Printf("%s | "+format, append([]any{time.Now().Format(logDate)}, args...)...)
}

// errorf is printed whether or not --verbose is set.
func errorf(format string, args ...any) {
	log.Printf("%s | %s "+format, append([]any{time.Now().Format(logDate), errorLabel("ERROR:")}, args...)...)
}

func newPage(title, body string) string {
	var htmlBody strings.Builder

	htmlBody.WriteString(`<!DOCTYPE html><html lang="en"><head>`)
	htmlBody.WriteString(getFavicon())
	htmlBody.WriteString(`<link rel="stylesheet" href="/assets/frames/app.css">`)
	htmlBody.WriteString(fmt.Sprintf("<title>%s</title></head>", html.EscapeString(title)))
	htmlBody.WriteString(fmt.Sprintf(`<body class="bare"><a href="/">%s</a></body></html>`, html.EscapeString(body)))

	return htmlBody.String()
}
