package http

import (
	"encoding/hex"
	"errors"
	"fmt"

	"github.com/frankli0324/go-httpcore/internal/header"
)

var (
	// ErrInvalidURL is returned when a request URL has no host part.
	ErrInvalidURL = errors.New("httpcore: URL is missing host")

	// ErrInvalidMethod is returned when the method contains non-token
	// characters.
	ErrInvalidMethod = errors.New("httpcore: method contains non-token characters")

	// ErrConfigConflict wraps every mutually-exclusive request
	// configuration: compress vs Content-Encoding, chunked vs
	// Content-Length, chunked flag vs Transfer-Encoding header.
	ErrConfigConflict = errors.New("httpcore: conflicting request configuration")

	// ErrFingerprintLength is returned for digests that map to no
	// known hash algorithm.
	ErrFingerprintLength = errors.New("httpcore: fingerprint has invalid length")

	// ErrInsecureFingerprint is returned for md5 and sha1 sized
	// digests, which are structurally valid but refused.
	ErrInsecureFingerprint = errors.New("httpcore: md5 and sha1 fingerprints are insecure, use sha256")

	// ErrConnectionClosed is returned on reads from a released
	// response and on content streams failed by release.
	ErrConnectionClosed = errors.New("httpcore: connection closed")

	// ErrEncodingUndetermined is returned by GetEncoding when called
	// before the body was read and no charset is derivable from the
	// headers.
	ErrEncodingUndetermined = errors.New("httpcore: cannot determine encoding before body is read")
)

// FingerprintMismatchError reports a pinned-certificate check failure
// after the TLS handshake.
type FingerprintMismatchError struct {
	Expected, Got []byte
	Host          string
	Port          int
}

func (e *FingerprintMismatchError) Error() string {
	return fmt.Sprintf("httpcore: fingerprint mismatch for %s:%d, expected %s, got %s",
		e.Host, e.Port, hex.EncodeToString(e.Expected), hex.EncodeToString(e.Got))
}

// ConnectionWriteError wraps an OS-level failure while streaming the
// request body.
type ConnectionWriteError struct {
	URL string
	Err error
}

func (e *ConnectionWriteError) Error() string {
	return fmt.Sprintf("httpcore: can not write request body for %s: %v", e.URL, e.Err)
}

func (e *ConnectionWriteError) Unwrap() error { return e.Err }

// ResponseError carries the request snapshot and redirect history of a
// response that could not be processed, plus whatever head fields were
// parsed before the failure.
type ResponseError struct {
	RequestInfo *RequestInfo
	History     []*Response
	Status      int
	Message     string
	Headers     header.Header
	Err         error
}

func (e *ResponseError) Error() string {
	if e.Status != 0 {
		return fmt.Sprintf("httpcore: %d %s (%s)", e.Status, e.Message, e.RequestInfo.URL)
	}
	return fmt.Sprintf("httpcore: %s (%s)", e.Message, e.RequestInfo.URL)
}

func (e *ResponseError) Unwrap() error { return e.Err }

// ContentTypeError reports a JSON decode attempted against an
// unexpected media type.
type ContentTypeError struct {
	RequestInfo *RequestInfo
	Status      int
	ContentType string
}

func (e *ContentTypeError) Error() string {
	return fmt.Sprintf("httpcore: attempt to decode JSON with unexpected mimetype %q (%s)",
		e.ContentType, e.RequestInfo.URL)
}
