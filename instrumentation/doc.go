// Package instrumentation provides hooks that observe simulated links and
// report what they do to logs, metrics and data recorders.
package instrumentation
