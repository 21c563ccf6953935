package server

import (
	"bytes"
	"net/http"
	"strings"
)

const (
	scriptTag         = `<script src="/livereload.js"></script>`
	maxInjectBodySize = 2 << 20
)

// injectLiveReload buffers HTML responses and inserts the livereload script
// before </body>. Other content types and bodies over maxInjectBodySize pass
// through unchanged.
func injectLiveReload(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		inj := &injector{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(inj, r)
		inj.finalize()
	})
}

type injector struct {
	http.ResponseWriter
	status      int
	buf         []byte
	buffering   bool
	passthrough bool
	wroteHeader bool
}

func (i *injector) WriteHeader(code int) {
	i.status = code
	if i.passthrough {
		i.writeHeader()
	}
}

func (i *injector) writeHeader() {
	if i.wroteHeader {
		return
	}
	i.wroteHeader = true
	i.ResponseWriter.WriteHeader(i.status)
}

func (i *injector) Write(data []byte) (int, error) {
	if !i.buffering && !i.passthrough {
		ct := i.Header().Get("Content-Type")
		if ct != "" && !strings.Contains(ct, "text/html") {
			i.passthrough = true
		} else {
			i.buffering = true
		}
	}
	if i.passthrough {
		i.writeHeader()
		return i.ResponseWriter.Write(data)
	}
	if len(i.buf)+len(data) > maxInjectBodySize {
		i.passthrough = true
		i.writeHeader()
		if len(i.buf) > 0 {
			if _, err := i.ResponseWriter.Write(i.buf); err != nil {
				return 0, err
			}
			i.buf = nil
		}
		return i.ResponseWriter.Write(data)
	}
	i.buf = append(i.buf, data...)
	return len(data), nil
}

func (i *injector) finalize() {
	if i.passthrough || len(i.buf) == 0 {
		i.writeHeader()
		return
	}
	body := i.buf
	if idx := bytes.LastIndex(bytes.ToLower(body), []byte("</body>")); idx >= 0 {
		out := make([]byte, 0, len(body)+len(scriptTag))
		out = append(out, body[:idx]...)
		out = append(out, scriptTag...)
		body = append(out, body[idx:]...)
	}
	i.Header().Del("Content-Length")
	i.writeHeader()
	_, _ = i.ResponseWriter.Write(body)
}
