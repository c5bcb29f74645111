// Package client implements an in-process caller of the search server.
//
// The client shares one worker between any number of goroutines. It builds
// protocol requests, sends them through a protocol.Controller that matches
// responses to requests by id, and turns error responses back into Go
// errors carrying the wire code.
package client
