package machine

// Config controls how a Machine is constructed and run.
type Config struct {
	Trace         bool // log PC, SP, A and cycles after each instruction via the standard logger
	StrictOpcodes bool // lock the CPU on an illegal opcode instead of running it as a silent NOP; no error is returned
	SampleRate    int  // host audio sample rate the APU downsamples to
	UseFetcherBG  bool // stored only; the background is always rendered via the FIFO fetcher path
}

// Defaults fills unset fields with reasonable values.
func (c *Config) Defaults() {
	if c.SampleRate <= 0 {
		c.SampleRate = 48000
	}
}
