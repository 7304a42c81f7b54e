package http

import (
	"mime"
	"net/url"
	"strings"
)

// ContentDisposition is the parsed Content-Disposition header.
type ContentDisposition struct {
	Type       string
	Parameters map[string]string
	Filename   string
}

// ContentDisposition parses the header once and caches the result.
func (r *Response) ContentDisposition() *ContentDisposition {
	r.cdOnce.Do(func() {
		raw := r.headers.Get("Content-Disposition")
		if raw == "" {
			return
		}
		dtype, params, err := mime.ParseMediaType(raw)
		if err != nil {
			return
		}
		r.contentDisposition = &ContentDisposition{
			Type:       dtype,
			Parameters: params,
			Filename:   params["filename"],
		}
	})
	return r.contentDisposition
}

// Link is one entry of an RFC 8288 Link header, its target resolved
// against the response URL.
type Link struct {
	URL    *url.URL
	Rel    string
	Params map[string]string
}

// Links parses every Link header of the response.
func (r *Response) Links() []Link {
	joined := strings.Join(r.headers.Values("Link"), ", ")
	if joined == "" {
		return nil
	}

	var links []Link
	for _, val := range splitLinks(joined) {
		val = strings.TrimSpace(val)
		if !strings.HasPrefix(val, "<") {
			continue
		}
		end := strings.Index(val, ">")
		if end < 0 {
			continue
		}
		target, rest := val[1:end], val[end+1:]
		link := Link{Params: map[string]string{}}
		for _, param := range strings.Split(rest, ";") {
			name, value, ok := strings.Cut(param, "=")
			if !ok {
				continue
			}
			name = strings.TrimSpace(name)
			value = strings.Trim(strings.TrimSpace(value), `"'`)
			if name == "" {
				continue
			}
			link.Params[name] = value
		}
		link.Rel = link.Params["rel"]
		if u, err := url.Parse(target); err == nil {
			link.URL = r.url.ResolveReference(u)
		}
		links = append(links, link)
	}
	return links
}

// splitLinks splits a combined Link header on commas that are
// followed by the next "<target>", leaving quoted params intact.
func splitLinks(s string) []string {
	var out []string
	start := 0
	for i := 0; i < len(s); i++ {
		if s[i] != ',' {
			continue
		}
		j := i + 1
		for j < len(s) && (s[j] == ' ' || s[j] == '\t') {
			j++
		}
		if j < len(s) && s[j] == '<' {
			out = append(out, s[start:i])
			start = j
			i = j
		}
	}
	return append(out, s[start:])
}
