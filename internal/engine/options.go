package engine

import (
	"log"
	"os"
)

// Options are the per-task initialization parameters shared by the engines.
type Options struct {
	// Robust is read once from configuration at task start.
	Robust bool
	Logger *log.Logger
	Stats  *Stats
}

func (o Options) withDefaults(name string) Options {
	if o.Logger == nil {
		o.Logger = log.New(os.Stderr, "["+name+"] ", log.LstdFlags|log.Lshortfile)
	}
	if o.Stats == nil {
		o.Stats = NewStats(name)
	}
	return o
}
