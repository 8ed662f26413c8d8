package relaylog

import "time"

// Option configures a Config before it is passed to Pipeline.Init,
// mirroring the functional-options idiom (mutate-a-pointer closures)
// for callers who prefer building configuration incrementally over a
// single struct literal.
type Option func(*Config)

// WithProgname sets the process name used in diagnostics.
func WithProgname(name string) Option {
	return func(c *Config) { c.Progname = name }
}

// WithTSDLogBufSize sets the per-endpoint pre-allocated format buffer
// size.
func WithTSDLogBufSize(n int) Option {
	return func(c *Config) { c.TSDLogBufSize = n }
}

// WithRetries sets the producer's non-blocking send retry budget and
// the delay between attempts before it degrades to a blocking send.
func WithRetries(max int, delay time.Duration) Option {
	return func(c *Config) {
		c.RetriesMax = max
		c.RetryDelay = delay
	}
}

// WithControlTimeout sets how long the coordinator waits on any single
// handler's control-plane reply.
func WithControlTimeout(d time.Duration) Option {
	return func(c *Config) { c.ControlTimeout = d }
}

// WithHandlers appends handlers to the configuration's handler list.
func WithHandlers(handlers ...HandlerConfig) Option {
	return func(c *Config) { c.Handlers = append(c.Handlers, handlers...) }
}

// NewConfig builds a Config by applying opts in order over a zero
// value, equivalent to but more incremental than a Config{...} literal.
func NewConfig(opts ...Option) Config {
	var c Config
	for _, opt := range opts {
		opt(&c)
	}
	return c
}

// HandlerOption configures a HandlerConfig.
type HandlerOption func(*HandlerConfig)

// WithFilters sets the handler's filter set. Nil defaults to
// AllOutput() at Init time.
func WithFilters(fs *FilterSet) HandlerOption {
	return func(hc *HandlerConfig) { hc.Filters = fs }
}

// WithDataHWM sets the handler's data-channel high-water mark.
func WithDataHWM(n int) HandlerOption {
	return func(hc *HandlerConfig) { hc.DataHWM = n }
}

// WithCtrlHWM sets the handler's control-channel high-water mark.
func WithCtrlHWM(n int) HandlerOption {
	return func(hc *HandlerConfig) { hc.CtrlHWM = n }
}

// WithIerrMax sets how many internal errors the handler tolerates
// before it exits via HandlerExit.
func WithIerrMax(n int) HandlerOption {
	return func(hc *HandlerConfig) { hc.IerrMax = n }
}

// WithFlushPeriod sets the handler's implicit-flush poll period.
func WithFlushPeriod(d time.Duration) HandlerOption {
	return func(hc *HandlerConfig) { hc.FlushPeriod = d }
}

// NewHandlerConfig builds a HandlerConfig for name/h by applying opts
// in order.
func NewHandlerConfig(name string, h Handler, opts ...HandlerOption) HandlerConfig {
	hc := HandlerConfig{Name: name, Handler: h}
	for _, opt := range opts {
		opt(&hc)
	}
	return hc
}
