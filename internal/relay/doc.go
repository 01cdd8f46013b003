// Package relay owns the broadcast relay server.
//
// Ownership boundary:
// - accept loop and peer registry
//
// - per-connection frame readers
//
// - router queue and fan-out
//
// Concurrency model:
// - one reader goroutine per peer; readers only publish to the Router.
//
// - one coordinator goroutine (Server.Serve) owns the Registry and performs
// every outbound write. The Registry is never locked.
//
// - a failed write drops the peer from the Registry and closes its connection.
//
// Delivery is best-effort and at-most-once. The sender receives its own
// message unless Config.EchoSender is false.
package relay
