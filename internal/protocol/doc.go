// Package protocol correlates requests with the messages that answer them.
//
// The Correlator assigns request ids, writes framed requests through a Link,
// and routes every inbound message to the waiter registered under its id.
// A single routing table holds two kinds of waiter:
//   - batch waiters (Send) collect messages until a terminal one arrives and
//     are bounded by a per-request timeout
//   - stream waiters (Stream) queue messages for an iterator and have no
//     timeout
//
// When the connection ends, Reset fails every waiter exactly once.
//
// Example usage:
//
//	corr := protocol.NewCorrelator(log, mgr, 30*time.Second)
//	mgr.Connect(ctx, address, 5*time.Second, corr)
//
//	msgs, err := corr.Send(ctx, message.NewRequest(corr.GenerateID(), "ping"), 0)
//
//	for msg, err := range corr.Stream(ctx, message.NewRequest(corr.GenerateID(), "list", "/")) {
//	    if err != nil {
//	        return err
//	    }
//	    // process msg...
//	}
package protocol
