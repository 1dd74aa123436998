// Package client is the transport side of a chat turn: it POSTs an AG-UI
// RunAgentInput to the backend and hands the raw response to the engine.
//
// The Client provides:
//
//   - JSON POST with the headers AG-UI backends expect
//   - Automatic retries: exponential backoff for connection failures only
//   - Event emission: observable request lifecycle via channel
//
// # Basic Usage
//
//	c, err := client.New(client.Config{URL: "http://localhost:9000/"})
//	if err != nil {
//	    return err
//	}
//
//	input := agui.NewRunAgentInput(threadID, time.Now(), messages, nil)
//	c.Run(ctx, dispatcher, input, sink)
//
// Run always produces exactly one sink call. Send is available for callers
// that want the raw *http.Response instead.
//
// # Retries
//
// A request is retried only when no response arrived at all (refused,
// reset, timed out). An HTTP status, including 5xx, is the backend's answer
// and becomes the turn's result.
//
//	c, _ := client.New(client.Config{
//	    URL:   backendURL,
//	    Retry: &retry.Config{MaxAttempts: 5, InitialDelay: time.Second, MaxDelay: 10 * time.Second, Multiplier: 2},
//	})
//
// # Events
//
//	events := make(chan client.Event, 100)
//	c, _ := client.New(client.Config{URL: backendURL, Events: events})
//	go func() {
//	    for e := range events {
//	        log.Printf("%s run=%s status=%d", e.Type, e.RunID, e.StatusCode)
//	    }
//	}()
package client
