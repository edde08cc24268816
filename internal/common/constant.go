// Package common contains shared constants, sentinel errors and the result
// envelope used across blobvault components.
package common

// AccessTokenHeaderName is the gRPC metadata key used to carry the
// access token on outbound requests.
const AccessTokenHeaderName = "access_token"

// RequestIDHeaderName is the metadata key echoed back to clients so a
// request can be correlated with server logs.
const RequestIDHeaderName = "x-request-id"

// DefaultBufferSizeKiB is the stream copy chunk size used when the
// configuration does not provide one (4 MiB).
const DefaultBufferSizeKiB = 4096
