// Package web serves the dashboard GUI from embedded static assets.
package web

import "embed"

// StaticFS holds the embedded static assets (index page, JS, CSS).
//
//go:embed static/*
var StaticFS embed.FS
