// Package relaylog is a high-throughput, multi-threaded, in-process
// logging pipeline. Business-code goroutines produce structured log
// records at named loggers; one or more independent handler
// goroutines consume those records and emit them to sinks (files, a
// NATS-backed network bridge, or a null sink for tests).
//
// The producer path is kept branch-light and allocation-light: a
// disabled logger's Logf call costs one atomic load before returning.
// All formatting, I/O, and error accounting happen asynchronously on
// each handler's own goroutine.
//
//	p := relaylog.NewPipeline()
//	err := p.Init(relaylog.Config{
//		Handlers: []relaylog.HandlerConfig{
//			{
//				Name:    "file",
//				Handler: relaylog.NewFileHandler(relaylog.FileConfig{Path: "app.log"}, nil),
//				Filters: relaylog.NewFilterSet(relaylog.Filter{Prefix: "", Level: relaylog.INFO}),
//			},
//		},
//	})
//	if err.IsKO() {
//		panic(err)
//	}
//	defer p.Finalize()
//
//	logger := p.GetLogger("app.db")
//	logger.Info("connected to %s", dsn)
package relaylog
