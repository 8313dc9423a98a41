// Package file provides file-based implementations of driven port interfaces.
//
// Adapters:
//   - ConfigStore: TOML settings with a YAML fallback
//   - PromptStore: user-editable summariser prompt templates
package file
