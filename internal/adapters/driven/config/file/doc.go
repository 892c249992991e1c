// Package file keeps settings and prompt templates on disk.
//
// ConfigStore reads and writes one TOML or YAML file; the extension picks the
// format. PromptStore loads the answer prompt templates from a directory that
// users may edit.
package file
