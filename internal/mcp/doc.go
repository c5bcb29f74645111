// Package mcp holds the tool registry behind listTools and callTool.
//
// Tools are described with Model Context Protocol descriptors and
// JSON Schema input schemas. Arguments are validated against the schema
// before a handler runs, and handler results are converted to the
// wire-level {content, isError} shape.
package mcp
