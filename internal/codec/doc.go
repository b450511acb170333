// Package codec reads and writes relation files.
//
// # File Format
//
// A relation file is UTF-8 CSV with RFC 4180 quoting. Line 1 is the header and
// names the columns; the first column is always "#" and holds the 1-based
// positional identifier of each row. Every following line is one row.
//
//	#,name,age
//	1,Joe,30
//	2,Ann,25
//
// Rows shorter than the header are padded with empty values. Rows longer than
// the header are rejected, or skipped with a warning when decoding leniently.
// A leading UTF-8 byte order mark is ignored.
//
// # Persistence
//
// [WriteFile] replaces the whole file, by default through a temporary file
// renamed over the target so readers never observe a partial rewrite.
// [AppendRow] is the only operation that writes without a full rewrite.
package codec
