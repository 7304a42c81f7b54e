// package header implements the request/response header multimap.
// unlike net/http.Header it preserves both the order and the casing
// of fields as the caller wrote them, and allows repeated keys, since
// all of these are visible on the wire.
package header

import (
	"io"
	"strings"
)

type Field struct {
	Name  string
	Value string
}

// Header is an ordered, case-insensitive multimap. The zero value is
// ready to use. Lookups compare names with [strings.EqualFold], writes
// keep the name exactly as given.
type Header struct {
	fields []Field
}

func New(pairs ...string) Header {
	if len(pairs)%2 != 0 {
		panic("header.New: odd number of arguments")
	}
	h := Header{fields: make([]Field, 0, len(pairs)/2)}
	for i := 0; i < len(pairs); i += 2 {
		h.fields = append(h.fields, Field{pairs[i], pairs[i+1]})
	}
	return h
}

func (h Header) Len() int { return len(h.fields) }

// Fields returns the underlying field slice in write order. The slice
// must not be mutated by the caller.
func (h Header) Fields() []Field { return h.fields }

// Get returns the first value for name, or "".
func (h Header) Get(name string) string {
	for _, f := range h.fields {
		if strings.EqualFold(f.Name, name) {
			return f.Value
		}
	}
	return ""
}

func (h Header) Has(name string) bool {
	for _, f := range h.fields {
		if strings.EqualFold(f.Name, name) {
			return true
		}
	}
	return false
}

// Values returns all values for name in write order.
func (h Header) Values(name string) []string {
	var vv []string
	for _, f := range h.fields {
		if strings.EqualFold(f.Name, name) {
			vv = append(vv, f.Value)
		}
	}
	return vv
}

// Add appends a field, keeping any existing fields with the same name.
func (h *Header) Add(name, value string) {
	h.fields = append(h.fields, Field{name, value})
}

// Set replaces every field matching name with a single field. The
// position of the first match is kept so that callers controlling
// header order don't see fields jump around.
func (h *Header) Set(name, value string) {
	for i, f := range h.fields {
		if strings.EqualFold(f.Name, name) {
			h.fields[i] = Field{name, value}
			h.del(i+1, name)
			return
		}
	}
	h.Add(name, value)
}

func (h *Header) Del(name string) { h.del(0, name) }

func (h *Header) del(from int, name string) {
	kept := h.fields[:from]
	for _, f := range h.fields[from:] {
		if !strings.EqualFold(f.Name, name) {
			kept = append(kept, f)
		}
	}
	h.fields = kept
}

func (h Header) Clone() Header {
	return Header{fields: append([]Field(nil), h.fields...)}
}

// WriteTo serializes the fields as wire-format header lines, without
// the terminating blank line.
func (h Header) WriteTo(w io.Writer) (int64, error) {
	var total int64
	for _, f := range h.fields {
		n, err := io.WriteString(w, f.Name+": "+f.Value+"\r\n")
		total += int64(n)
		if err != nil {
			return total, err
		}
	}
	return total, nil
}
