package taker

import "github.com/davecgh/go-spew/spew"

// logClosure defers an expensive log argument's evaluation until the
// active log level actually needs it, the same trick peer.go's
// newLogClosure wraps spew.Sdump dumps of wire messages in.
type logClosure func() string

func (c logClosure) String() string {
	return c()
}

func newLogClosure(c func() string) logClosure {
	return c
}

func stateDumpClosure(s *State) logClosure {
	return newLogClosure(func() string {
		return spew.Sdump(s)
	})
}
