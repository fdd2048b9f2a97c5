// Package gateway is the HTTP client for an OpenClaw conversational gateway.
//
// # Overview
//
// The package has three layers:
//
//   - BuildRequest assembles authenticated requests against a base URL.
//   - The decoders turn response bodies into typed values, tolerating the
//     field-naming drift seen across gateway versions.
//   - Client composes both into the four gateway operations.
//
// # Operations
//
//	GET  /health                 Health
//	GET  /status                 FetchStatus
//	GET  /v1/sessions?limit=N    FetchSessions
//	POST /v1/responses           StreamResponse
//
// # Errors
//
// Every failure returned by the client is a *Error carrying one of four kinds:
//
//   - KindInvalidBaseURL: the configured URL is empty or not absolute
//   - KindInvalidResponse: the body could not be read
//   - KindServer: the gateway answered with a non-2xx status
//   - KindTransport: the connection failed
//
// Callers switch on the kind:
//
//	var gwErr *gateway.Error
//	if errors.As(err, &gwErr) && gwErr.Kind == gateway.KindServer {
//	    log.Printf("gateway said %d: %s", gwErr.StatusCode, gwErr.Body)
//	}
//
// # Streaming
//
// StreamResponse returns a single-pass iterator of text deltas:
//
//	for delta, err := range client.StreamResponse(ctx, req) {
//	    if err != nil {
//	        return err
//	    }
//	    fmt.Print(delta)
//	}
//
// Breaking out of the loop cancels the request and closes the body.
package gateway
