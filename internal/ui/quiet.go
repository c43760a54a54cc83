package ui

// quietPresenter consumes events but produces no output.
type quietPresenter struct{}

func (p *quietPresenter) Run(events <-chan Event) error {
	for range events {
		// Counters live on the collector and are written by the engine;
		// presenters only read them, so there is nothing to do here.
	}
	return nil
}

func (p *quietPresenter) Summary() string {
	return ""
}
