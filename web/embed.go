// Package web bundles the browser client served at the site root.
package web

import "embed"

//go:embed static
var StaticFiles embed.FS
