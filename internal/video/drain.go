package video

import "github.com/rs/zerolog"

// DrainSink consumes and discards frames, keeping capture flowing when no
// display window has bound its own sink yet (headless runs, startup).
type DrainSink struct {
	log zerolog.Logger
}

func NewDrainSink(log zerolog.Logger) *DrainSink {
	return &DrainSink{log: log}
}

func (d *DrainSink) SetSource(frames <-chan Frame) {
	go func() {
		for range frames {
		}
	}()
}

func (d *DrainSink) SetAspect(ratio float64) {
	d.log.Debug().Float64("aspect", ratio).Msg("Aspect hint updated")
}

func (d *DrainSink) ShowPlaceholder() {
	d.log.Debug().Msg("Showing no-signal placeholder")
}
