// Package pdf provides a Normaliser implementation for PDF payloads such as
// annual reports and investor presentations. Every non-empty page becomes
// its own record whose source URL carries a #page=N fragment, so page
// provenance survives chunking.
package pdf
