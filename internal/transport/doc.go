// Package transport manages the single byte-stream connection to the remote
// service.
//
// A Manager owns the connection state machine (disconnected, connecting,
// connected), dials with a timeout, runs one reader goroutine per connection
// that splits the stream into newline-delimited frames, and hands each parsed
// message to a Handler. When the connection ends, for any reason, the Handler
// is reset exactly once so that outstanding work is failed.
//
// Example usage:
//
//	mgr := transport.NewManager(log, &transport.NetDialer{})
//	if err := mgr.Connect(ctx, "/tmp/linemux.sock", 5*time.Second, handler); err != nil {
//	    return err
//	}
//	defer mgr.Close()
//
//	err := mgr.SendFrame(ctx, []byte(`{"id":"1","call":"ping","args":[]}`+"\n"))
package transport
