package http

import (
	"crypto/sha256"
	"crypto/tls"
	"crypto/x509"
	"net"
	"strconv"
)

// Fingerprint pins a peer certificate to a known sha256 digest. Digest
// lengths of md5 (16) and sha1 (20) are recognized and refused;
// anything else that isn't 32 bytes maps to no known algorithm.
type Fingerprint struct {
	digest [sha256.Size]byte
}

func NewFingerprint(digest []byte) (*Fingerprint, error) {
	switch len(digest) {
	case 16, 20:
		return nil, ErrInsecureFingerprint
	case sha256.Size:
		f := &Fingerprint{}
		copy(f.digest[:], digest)
		return f, nil
	default:
		return nil, ErrFingerprintLength
	}
}

func (f *Fingerprint) Digest() []byte {
	d := f.digest
	return d[:]
}

type tlsConn interface {
	ConnectionState() tls.ConnectionState
}

// Check verifies the peer leaf certificate against the pinned digest.
// It is a no-op over plaintext transports; connections that carry no
// TLS state have nothing to pin.
func (f *Fingerprint) Check(conn net.Conn) error {
	tc, ok := conn.(tlsConn)
	if !ok {
		return nil
	}
	state := tc.ConnectionState()
	if len(state.PeerCertificates) == 0 {
		return nil
	}
	return f.checkCert(state.PeerCertificates[0], conn.RemoteAddr())
}

func (f *Fingerprint) checkCert(cert *x509.Certificate, peer net.Addr) error {
	got := sha256.Sum256(cert.Raw)
	if got == f.digest {
		return nil
	}
	mismatch := &FingerprintMismatchError{Expected: f.Digest(), Got: got[:]}
	if peer != nil {
		if host, port, err := net.SplitHostPort(peer.String()); err == nil {
			mismatch.Host = host
			mismatch.Port, _ = strconv.Atoi(port)
		} else {
			mismatch.Host = peer.String()
		}
	}
	return mismatch
}
