// Package search implements the upstream Brave web-search client.
//
// A Searcher turns a query into a formatted text block: one
// Title/Description/URL block per result, blocks separated by a blank line,
// or the NoResults sentinel when the provider returned nothing. Every
// failure is reported as an errors.UpstreamError.
package search
