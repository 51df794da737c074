package main

import (
	"fmt"
	"io"

	"bidsprep/internal/filekind"
)

// cliPrompter reports association guidance on stderr. A single invocation
// cannot wait for a second pick, so refused picks are always cancelled.
type cliPrompter struct {
	out  io.Writer
	show bool
}

func newCLIPrompter(out io.Writer, show bool) *cliPrompter {
	return &cliPrompter{out: out, show: show}
}

func (p *cliPrompter) Instruct(want filekind.Kind) {
	if !p.show {
		return
	}
	fmt.Fprintf(p.out, "Select the %s file(s) to associate.\n", want)
}

func (p *cliPrompter) RetryOrCancel(err error) bool {
	fmt.Fprintf(p.out, "Association refused: %v\n", err)
	return false
}
