// Package metrics provides the build observability hooks for sitegen.
//
// Components receive a Recorder through dependency injection and default to
// NoopRecorder, so metrics can be switched on without nil checks at call
// sites:
//
//	gen := build.NewGenerator(cfg, opts)          // NoopRecorder
//	gen.SetRecorder(metrics.NewPrometheusRecorder(reg))
//
// The Prometheus implementation is activated by `sitegen serve --metrics`,
// which also mounts HTTPHandler on /metrics.
package metrics
