// Package webui provides the embedded single-page prompt console.
package webui

import (
	_ "embed"
)

//go:embed static/index.html
var indexHTML string

// IndexHTML returns the console page. It talks to the /v1 prompt API.
func IndexHTML() string {
	return indexHTML
}
