package http

import (
	"github.com/frankli0324/go-httpcore/internal"
	"github.com/frankli0324/go-httpcore/internal/header"
	"github.com/frankli0324/go-httpcore/internal/http"
)

type Client = internal.Client
type Header = header.Header
type Field = header.Field
type Request = http.Request
type PreparedRequest = http.PreparedRequest
type Response = http.Response
type RequestInfo = http.RequestInfo

type Middleware = internal.Middleware
type Handler = internal.Handler

type Version = http.Version

var (
	Version10 = http.Version10
	Version11 = http.Version11
)

type BasicAuth = http.BasicAuth
type ConnectionKey = http.ConnectionKey
type Fingerprint = http.Fingerprint
type ClientTrace = http.ClientTrace
type Payload = http.Payload

// NewFingerprint validates and wraps a sha256 certificate digest.
var NewFingerprint = http.NewFingerprint

// NewHeader builds an ordered header from name/value pairs.
var NewHeader = header.New

var (
	ErrInvalidURL           = http.ErrInvalidURL
	ErrInvalidMethod        = http.ErrInvalidMethod
	ErrConfigConflict       = http.ErrConfigConflict
	ErrFingerprintLength    = http.ErrFingerprintLength
	ErrInsecureFingerprint  = http.ErrInsecureFingerprint
	ErrConnectionClosed     = http.ErrConnectionClosed
	ErrEncodingUndetermined = http.ErrEncodingUndetermined
)

type (
	FingerprintMismatchError = http.FingerprintMismatchError
	ConnectionWriteError     = http.ConnectionWriteError
	ResponseError            = http.ResponseError
	ContentTypeError         = http.ContentTypeError
)
