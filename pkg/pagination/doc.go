// Package pagination assembles complete result sets from ISS endpoints that
// return bounded pages. The fetcher advances a monotonic row offset, never
// re-requests a consumed offset, and terminates via a pluggable predicate:
// by default a short page signals end-of-data (the ISS convention), with an
// empty-page terminator available for servers that always fill pages.
//
// Page-level retries are the request executor's job; a page failure here
// propagates the executor's terminal error and discards the partial
// aggregate. A configurable row guard stops runaway pagination against a
// misbehaving server.
package pagination
