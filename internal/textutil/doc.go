// Package textutil sanitizes operator-entered text for use in BIDS entity
// labels and output file names.
package textutil
