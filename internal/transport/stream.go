package transport

import (
	"io"
	"sync"
)

// BodyStream is the payload stream handed out with a response head.
// A deferred failure set via SetException wins over buffered data:
// every read after that point reports the failure. EOF callbacks fire
// exactly once, when the payload has been fully consumed.
type BodyStream struct {
	mu    sync.Mutex
	src   io.Reader
	err   error
	eof   bool
	onEOF []func()
}

func NewBodyStream(src io.Reader) *BodyStream {
	if src == nil {
		src = eofReader{}
	}
	return &BodyStream{src: src}
}

type eofReader struct{}

func (eofReader) Read([]byte) (int, error) { return 0, io.EOF }

func (s *BodyStream) Read(p []byte) (int, error) {
	s.mu.Lock()
	if s.err != nil {
		err := s.err
		s.mu.Unlock()
		return 0, err
	}
	if s.eof {
		s.mu.Unlock()
		return 0, io.EOF
	}
	src := s.src
	s.mu.Unlock()

	n, err := src.Read(p)
	if err == io.EOF {
		s.feedEOF()
	} else if err != nil {
		s.mu.Lock()
		if s.err == nil {
			s.err = err
		}
		s.mu.Unlock()
	}
	return n, err
}

// ReadAll consumes the stream to EOF.
func (s *BodyStream) ReadAll() ([]byte, error) {
	return io.ReadAll(s)
}

// OnEOF registers a callback invoked when the payload completes
// naturally. If the stream is already at EOF the callback runs
// immediately.
func (s *BodyStream) OnEOF(fn func()) {
	s.mu.Lock()
	if s.eof {
		s.mu.Unlock()
		fn()
		return
	}
	s.onEOF = append(s.onEOF, fn)
	s.mu.Unlock()
}

// AtEOF reports whether the payload was fully consumed.
func (s *BodyStream) AtEOF() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.eof
}

// SetException marks the stream failed. It does not override an
// earlier failure and is a no-op after natural EOF only in the sense
// that reads keep failing predictably while cached data stays with
// whoever read it.
func (s *BodyStream) SetException(err error) {
	s.mu.Lock()
	if s.err == nil {
		s.err = err
	}
	s.mu.Unlock()
}

func (s *BodyStream) Exception() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.err
}

func (s *BodyStream) feedEOF() {
	s.mu.Lock()
	if s.eof {
		s.mu.Unlock()
		return
	}
	s.eof = true
	cbs := s.onEOF
	s.onEOF = nil
	s.mu.Unlock()
	for _, fn := range cbs {
		fn()
	}
}
