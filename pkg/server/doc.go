// Package server exposes a keywatch session over HTTP: a small REST API
// for the typed store and a WebSocket feed of change notifications.
//
// # REST API
//
// Keys are listed and manipulated under /api/keys. Values travel as the
// canonical entry encoding, {"type":"bool","value":true}. Writes and
// deletes go through the session, so every change publishes on the bus
// and reaches watch clients and in-process subscribers alike.
//
//	GET    /api/keys          ["ui.dark","ui.lang"]
//	GET    /api/keys/ui.dark  {"type":"bool","value":true}
//	PUT    /api/keys/ui.dark  (entry body) 204
//	DELETE /api/keys/ui.dark  204
//	DELETE /api/keys          204
//
// # Watch Feed
//
// GET /api/watch upgrades to a WebSocket that streams one JSON frame per
// change, {"key":"ui.dark"}. Repeatable ?key= parameters narrow the feed
// to chosen keys. The feed is intentionally thin: frames carry the key
// only, and clients re-read values through the API, mirroring how
// in-process subscribers re-read through their session values.
//
// Slow clients are dropped rather than back-pressured; the change bus
// must never block on a consumer. When the session closes, the feed ends
// with a normal closure.
//
// # Running
//
//	sess := keywatch.NewSession(st)
//	srv := server.New(sess, server.DefaultConfig().WithAddr(":9090"))
//	if err := srv.ListenAndServe(ctx); err != nil {
//	    log.Fatal(err)
//	}
//
// The handler can also be mounted in an existing router via Handler().
// Metrics registration is the application's choice; see the middleware
// package for store instrumentation and session collectors.
package server
