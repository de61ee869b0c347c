// Package messaging publishes and consumes queue messages without tying
// callers to a broker.
//
// Drivers: NATS, NSQ, Kafka, Google Pub/Sub and an in-process memory queue.
// Headers travel natively on NATS and Kafka, as attributes on Pub/Sub, and
// are dropped on NSQ.
package messaging
