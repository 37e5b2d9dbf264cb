// Package html provides a Normaliser implementation for HTML payloads.
// It extracts readable text from company web pages, dropping scripts,
// styles and page chrome such as navigation, headers and footers.
package html
