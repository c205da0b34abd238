// Package persist maps the typed task and category collections onto the
// key-value substrate. It owns the persisted layout, id generation, the
// import/export file format, and write scheduling. Read and write failures
// are recovered here and only reach the log; import failures are returned.
package persist
