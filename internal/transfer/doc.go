// Package transfer answers whether a directory is still owned by a running
// BitTorrent transfer.
//
// Client lists torrents through transmissionrpc, which handles the session-id
// handshake. Oracle wraps it with a short-lived LRU cache and a
// fail-open policy: when the service is disabled or unreachable every
// directory is reported inactive so archive handling is never blocked by a
// monitoring outage.
package transfer
