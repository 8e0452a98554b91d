// Package rows defines the row source contract and validates query results into member ids.
//
// A segment's membership is defined by a query against the system of record. The query runs
// through a Source, which yields untyped rows lazily so arbitrarily large result sets never
// need to fit in memory. Validate turns that stream into a stream of normalized member ids.
//
// # Validation
//
// A row is valid when its first column is a positive integer or a string of digits
// (surrounding whitespace is trimmed). Invalid rows are soft errors: they are logged with the
// offending value and the query text and skipped. A failing source is a hard error that ends
// the stream.
//
// # Usage
//
//	for id, err := range rows.Validate(ctx, src, definition, logger) {
//	    if err != nil {
//	        return err
//	    }
//	    stage(id)
//	}
package rows
