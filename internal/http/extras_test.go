package http

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func TestContentDisposition(t *testing.T) {
	resp, _ := sendOn(t, &Request{Method: "GET", URL: "http://example.com/"},
		"HTTP/1.1 200 OK\r\n"+
			"Content-Disposition: attachment; filename=\"report.pdf\"\r\n"+
			"Content-Length: 0\r\n\r\n")
	cd := resp.ContentDisposition()
	if cd == nil || cd.Type != "attachment" || cd.Filename != "report.pdf" {
		t.Errorf("ContentDisposition = %+v", cd)
	}
	if resp.ContentDisposition() != cd {
		t.Error("second call re-parsed the header")
	}

	none, _ := sendOn(t, &Request{Method: "GET", URL: "http://example.com/"},
		"HTTP/1.1 200 OK\r\nContent-Length: 0\r\n\r\n")
	if none.ContentDisposition() != nil {
		t.Error("absent header produced a value")
	}
}

func TestLinks(t *testing.T) {
	resp, _ := sendOn(t, &Request{Method: "GET", URL: "http://example.com/items"},
		"HTTP/1.1 200 OK\r\n"+
			"Link: </items?page=2>; rel=\"next\", <https://other.example/doc>; rel=\"about\"; title=\"docs, etc\"\r\n"+
			"Link: </items?page=9>; rel=\"last\"\r\n"+
			"Content-Length: 0\r\n\r\n")
	links := resp.Links()
	if len(links) != 3 {
		t.Fatalf("got %d links: %+v", len(links), links)
	}
	if links[0].Rel != "next" || links[0].URL.String() != "http://example.com/items?page=2" {
		t.Errorf("first = %+v", links[0])
	}
	if links[1].URL.Host != "other.example" || links[1].Params["title"] != "docs, etc" {
		t.Errorf("second = %+v", links[1])
	}
	if links[2].Rel != "last" {
		t.Errorf("third = %+v", links[2])
	}
}

func TestGetEncoding(t *testing.T) {
	t.Run("CharsetParam", func(t *testing.T) {
		resp, _ := sendOn(t, &Request{Method: "GET", URL: "http://example.com/"},
			"HTTP/1.1 200 OK\r\nContent-Type: text/html; charset=ISO-8859-1\r\nContent-Length: 0\r\n\r\n")
		if enc, err := resp.GetEncoding(); err != nil || enc != "windows-1252" {
			t.Errorf("encoding = %q, %v", enc, err)
		}
	})
	t.Run("JSONDefaultsUTF8", func(t *testing.T) {
		resp, _ := sendOn(t, &Request{Method: "GET", URL: "http://example.com/"},
			"HTTP/1.1 200 OK\r\nContent-Type: application/rdap+json\r\nContent-Length: 0\r\n\r\n")
		if enc, err := resp.GetEncoding(); err != nil || enc != "utf-8" {
			t.Errorf("encoding = %q, %v", enc, err)
		}
	})
	t.Run("UndeterminedBeforeRead", func(t *testing.T) {
		resp, _ := sendOn(t, &Request{Method: "GET", URL: "http://example.com/"},
			"HTTP/1.1 200 OK\r\nContent-Type: text/plain\r\nContent-Length: 2\r\n\r\nok")
		if _, err := resp.GetEncoding(); !errors.Is(err, ErrEncodingUndetermined) {
			t.Errorf("err = %v", err)
		}
	})
	t.Run("SniffAfterRead", func(t *testing.T) {
		resp, _ := sendOn(t, &Request{Method: "GET", URL: "http://example.com/"},
			"HTTP/1.1 200 OK\r\nContent-Type: text/plain\r\nContent-Length: 5\r\n\r\nhello")
		if _, err := resp.ReadBody(context.Background()); err != nil {
			t.Fatal(err)
		}
		if enc, err := resp.GetEncoding(); err != nil || enc == "" {
			t.Errorf("encoding = %q, %v", enc, err)
		}
	})
	t.Run("ResolverFallback", func(t *testing.T) {
		resp, _ := sendOn(t, &Request{Method: "GET", URL: "http://example.com/"},
			"HTTP/1.1 200 OK\r\nContent-Type: text/plain\r\nContent-Length: 5\r\n\r\nhello")
		resp.SetCharsetResolver(func(*Response, []byte) string { return "koi8-r" })
		if _, err := resp.ReadBody(context.Background()); err != nil {
			t.Fatal(err)
		}
		if enc, _ := resp.GetEncoding(); enc != "koi8-r" {
			t.Errorf("encoding = %q", enc)
		}
	})
}

func TestTextDecodes(t *testing.T) {
	// "héllo" in latin-1
	resp, _ := sendOn(t, &Request{Method: "GET", URL: "http://example.com/"},
		"HTTP/1.1 200 OK\r\nContent-Type: text/plain; charset=ISO-8859-1\r\nContent-Length: 5\r\n\r\nh\xe9llo")
	text, err := resp.Text(context.Background())
	if err != nil || text != "héllo" {
		t.Errorf("text = %q, %v", text, err)
	}
}

func TestJSON(t *testing.T) {
	type payload struct {
		Name string `json:"name"`
	}
	t.Run("Decodes", func(t *testing.T) {
		resp, _ := sendOn(t, &Request{Method: "GET", URL: "http://example.com/"},
			"HTTP/1.1 200 OK\r\nContent-Type: application/json\r\nContent-Length: 15\r\n\r\n{\"name\":\"resp\"}")
		var v payload
		if err := resp.JSON(context.Background(), &v); err != nil || v.Name != "resp" {
			t.Errorf("v = %+v, %v", v, err)
		}
	})
	t.Run("RejectsWrongContentType", func(t *testing.T) {
		resp, _ := sendOn(t, &Request{Method: "GET", URL: "http://example.com/"},
			"HTTP/1.1 200 OK\r\nContent-Type: text/html\r\nContent-Length: 2\r\n\r\n{}")
		var v payload
		var ctErr *ContentTypeError
		if err := resp.JSON(context.Background(), &v); !errors.As(err, &ctErr) {
			t.Errorf("err = %v, want ContentTypeError", err)
		}
	})
	t.Run("OverrideDisablesCheck", func(t *testing.T) {
		resp, _ := sendOn(t, &Request{Method: "GET", URL: "http://example.com/"},
			"HTTP/1.1 200 OK\r\nContent-Type: text/html\r\nContent-Length: 2\r\n\r\n{}")
		var v payload
		if err := resp.JSON(context.Background(), &v, ""); err != nil {
			t.Errorf("err = %v", err)
		}
	})
}

func TestNetrcAuth(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "netrc")
	content := "machine example.com login alice password s3cret\n" +
		"default login bob password fallback\n"
	if err := os.WriteFile(path, []byte(content), 0600); err != nil {
		t.Fatal(err)
	}
	t.Setenv("NETRC", path)

	a, ok := netrcAuth("example.com")
	if !ok || a.Username != "alice" || a.Password != "s3cret" {
		t.Errorf("entry = %+v, %v", a, ok)
	}
	a, ok = netrcAuth("other.example")
	if !ok || a.Username != "bob" {
		t.Errorf("default = %+v, %v", a, ok)
	}

	t.Setenv("NETRC", filepath.Join(dir, "missing"))
	if _, ok := netrcAuth("example.com"); ok {
		t.Error("missing file produced credentials")
	}
}
