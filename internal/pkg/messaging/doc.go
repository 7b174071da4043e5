// Package messaging publishes and consumes broker messages behind one API so
// modules do not care whether NATS, Kafka or NSQ carries them.
//
// Delivery is at least once: a handler error asks the broker to redeliver,
// so handlers must be idempotent.
package messaging
