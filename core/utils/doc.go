// Package utils provides common helpers shared by the core packages.
// It includes value-to-string conversion for logging untyped query results and
// small string predicates that don't fit into a domain-specific package.
package utils
