// Package bridge connects a chat widget to the ingestion engine.
//
// The widget calls a Handler once per user turn with its visible history
// (Body) and a response callback (Signals). A Session owns the thread for
// one widget session: it merges the widget's new user messages into the
// authoritative transcript, sends the run through a Runner (usually a
// *client.Client) and guarantees the widget hears back exactly once.
//
//	c, _ := client.New(client.Config{URL: "http://localhost:9000/"})
//	session := bridge.NewSession(c, bridge.WithLogger(slog.Default()))
//	http.Handle("/chat", bridge.NewHTTPHandler(session))
//
// Turns on one Session are serialized.
package bridge
