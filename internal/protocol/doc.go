// Package protocol implements the JSON-RPC 2.0 wire types of the search server
// and a Controller that correlates responses with requests by id.
//
// The wire subset handled here:
//   - Request: {"jsonrpc":"2.0","id":<any|null>,"method":"listTools"|"callTool","params"?:{...}}
//   - Success: {"jsonrpc":"2.0","id":<echoed>,"result":{...}}
//   - Failure: {"jsonrpc":"2.0","id":<echoed|null>,"error":{"code":int,"message":string}}
//
// Decode turns a wire line into a Request, reporting malformed input as a
// typed ParseError. NewResult and NewError build responses that always echo
// the request id and carry exactly one of result or error.
//
// Example usage:
//
//	controller := protocol.NewController(log, w)
//	controller.Start(ctx)
//	defer controller.Stop()
//
//	resp, err := controller.Call(ctx, protocol.MethodListTools, nil)
package protocol
