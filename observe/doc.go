// Package observe provides the logging, tracing and metrics primitives used
// across contentcore.
//
// It is a pure instrumentation library. Consumers receive a Logger, a Tracer
// and metric recorders by injection; nothing here performs domain work. The
// cache reports through CacheMetrics, and the mutation coordinator runs every
// write through a Middleware.
package observe
