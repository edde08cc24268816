// Package client talks to the blobvault gRPC API.
//
// GRPCClient mirrors the server operations (List, Delete, Upload, Download)
// and returns the server envelope as a common.Result. Transport failures are
// returned as errors instead: ErrUnauthorized, ErrForbidden, ErrUnavailable,
// or a wrapped status error. Downloads are staged in a spool file on local
// disk; the returned content removes the file when closed.
package client
