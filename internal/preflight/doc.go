// Package preflight checks the filesystem paths bidsprep depends on.
//
// The CLI runs RunAll before a scan and prints the results with status. A
// failed check stops the scan before any folder is loaded.
package preflight
