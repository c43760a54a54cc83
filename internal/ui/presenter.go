package ui

import (
	"io"

	"github.com/voglhofer/icebox/internal/stats"
)

// Presenter consumes engine events and displays the run.
type Presenter interface {
	// Run consumes events until the channel closes. Blocks until done.
	Run(events <-chan Event) error
	// Summary returns the final summary line.
	Summary() string
}

// Config configures a Presenter.
type Config struct {
	Writer    io.Writer
	ErrWriter io.Writer
	Stats     *stats.Collector
	Root      string
	IsTTY     bool
	Quiet     bool
	Verbose   bool
	Plain     bool
}

// NewPresenter creates the appropriate presenter based on configuration.
//
//nolint:ireturn // presenter factory
func NewPresenter(cfg Config) Presenter {
	if cfg.Quiet {
		return &quietPresenter{}
	}
	if !cfg.IsTTY || cfg.Plain {
		return &plainPresenter{
			w:       cfg.Writer,
			errW:    cfg.ErrWriter,
			stats:   cfg.Stats,
			verbose: cfg.Verbose,
		}
	}
	return &feedPresenter{
		w:       cfg.Writer,
		errW:    cfg.ErrWriter,
		stats:   cfg.Stats,
		root:    cfg.Root,
		verbose: cfg.Verbose,
	}
}
