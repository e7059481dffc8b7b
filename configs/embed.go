// Package configs provides the embedded configuration template.
//
// The template is embedded at build time with //go:embed so it is
// available in every distribution. `docfuse init` writes it as the
// starting docfuse.yaml.
package configs

import _ "embed"

// ExampleConfig is the annotated configuration template.
//
//go:embed docfuse.example.yaml
var ExampleConfig string
