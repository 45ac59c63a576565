// Package client ties the connection manager and the correlator together.
//
// A Client owns one transport.Manager and one protocol.Correlator for its
// whole life. The correlator is installed as the manager's handler on every
// Connect, so request ids keep increasing across reconnects and every
// teardown fails the requests that were pending on that connection.
package client
