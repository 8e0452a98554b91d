// Package broker connects to the NATS server that receives membership change announcements.
//
// Connect returns a Conn (satisfied by *nats.Conn) so the change relay can be tested with
// an in-memory publisher. An empty URL disables the broker; Connect then returns ErrDisabled.
package broker
