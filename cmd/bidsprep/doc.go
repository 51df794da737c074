// Command bidsprep prepares KIT MEG acquisition folders for BIDS conversion.
//
// Every invocation opens a session on the configured state directory, loads
// the folders it needs, applies one operator action and persists the result.
// Marker associations, task and run labels, ignored recordings and subject
// metadata therefore accumulate across invocations until a folder is Ready
// and can be assembled.
package main
