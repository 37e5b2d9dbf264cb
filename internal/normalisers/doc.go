// Package normalisers provides implementations of the Normaliser interface
// for the payload variants scrapers produce. Each normaliser knows how to
// extract text from one payload kind.
//
// Normalisers are registered with the Registry at startup.
package normalisers
