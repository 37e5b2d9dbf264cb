// Package file provides file-based implementations of driven port interfaces.
// These adapters persist data to the local filesystem.
//
// Adapters:
//   - ConfigStore: TOML-based configuration storage
//   - PromptStore: user-editable report prompts with embedded defaults
//   - CategoryCatalog: YAML signal-category extensions
package file
