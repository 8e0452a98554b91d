// Package server holds the HTTP server configuration.
//
// The start command owns the Fiber application; this package only describes how it
// listens (port), who may call it (API key) and how long shutdown may take.
package server
