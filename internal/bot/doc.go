// Package bot turns chat messages into command invocations.
//
// A Router matches the configured prefix and command name and parses
// arguments; a Dispatcher runs routed commands one at a time, in arrival
// order, on a single worker goroutine; a Responder turns command errors into
// the replies users see.
package bot
