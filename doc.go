// Package saaros provides a web search tool server speaking a small
// JSON-RPC 2.0 dialect.
//
// The server exposes one tool, brave_web_search, through two methods:
// listTools and callTool. Requests are processed one at a time by a
// single worker goroutine that owns an inbound and an outbound queue.
//
// # Serving over stdio
//
// The usual deployment reads one JSON request per line and writes one
// JSON response per line:
//
//	cfg, err := saaros.LoadConfig("")
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	srv, err := saaros.New(cfg, saaros.WithLogger(slog.Default()))
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer srv.Stop()
//
//	if err := srv.ServeStdio(ctx, os.Stdin, os.Stdout); err != nil {
//	    log.Fatal(err)
//	}
//
// # In-process use
//
// Go callers can share one server between goroutines through a Client,
// which matches responses to requests by id:
//
//	err := saaros.WithClient(ctx, cfg, func(c saaros.Client) error {
//	    text, err := c.Search(ctx, "golang generics", 5)
//	    if err != nil {
//	        return err
//	    }
//	    for _, r := range saaros.ParseResults(text) {
//	        fmt.Println(r.Title, r.URL)
//	    }
//	    return nil
//	})
//
// # Errors
//
// Every failure reaches the caller as an error response with a stable
// code. Client methods return them as *ResponseError; use CodeOf to read
// the code:
//
//	switch saaros.CodeOf(err) {
//	case saaros.CodeInvalidParams:
//	    // bad arguments
//	case saaros.CodeUpstreamError:
//	    // provider failure, timeout or rate limit
//	}
package saaros
