// Package alert formats traffic alerts and delivers them to a message bus.
//
// # Overview
//
// A Formatter renders the configured message template, which carries three
// integer slots filled with the observed delta, the minimum and the maximum
// of the active limits:
//
//	f, err := alert.NewFormatter("Traffic %d bytes is outside [%d, %d]", alert.EncodingText)
//	a := f.New("eth0", 100, 2048, 4096, time.Now())
//
// Sinks deliver alerts:
//
//   - KafkaSink: asynchronous producer to a Kafka topic
//   - RedisSink: PUBLISH on a Redis channel
//   - LogSink: structured log line only
//
// Delivery is best-effort. Publish errors are reported to the caller, which
// logs them; no acknowledgement is waited for beyond the transport's own
// write.
package alert
