package nodel

import (
	"fmt"
	"html"
	"net/http"
	"time"

	"github.com/google/pprof/profile"
)

// NewHandler returns an http.Handler that, on each request, starts an
// opcode profile, waits for either the requested duration or the
// request's context to end, then serves the resulting profile in the
// standard pprof wire format — the same request/response shape
// go tool pprof expects from net/http/pprof's own /debug/pprof/profile
// endpoint.
func (p *OpcodeProfiler) NewHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		duration := 10 * time.Second
		if seconds := r.FormValue("seconds"); seconds != "" {
			if d, err := time.ParseDuration(seconds + "s"); err == nil && d > 0 {
				duration = d
			}
		}

		if !p.StartProfile() {
			serveError(w, http.StatusInternalServerError, "opcode profiling already in progress")
			return
		}

		timer := time.NewTimer(duration)
		select {
		case <-timer.C:
		case <-r.Context().Done():
		}
		timer.Stop()

		serveProfile(w, p.StopProfile())
	})
}

// Copyright (c) 2009 The Go Authors. All rights reserved.
//
// Redistribution and use in source and binary forms, with or without
// modification, are permitted provided that the following conditions are
// met:
//
//    * Redistributions of source code must retain the above copyright
// notice, this list of conditions and the following disclaimer.
//    * Redistributions in binary form must reproduce the above
// copyright notice, this list of conditions and the following disclaimer
// in the documentation and/or other materials provided with the
// distribution.
//    * Neither the name of Google Inc. nor the names of its
// contributors may be used to endorse or promote products derived from
// this software without specific prior written permission.
//
// THIS SOFTWARE IS PROVIDED BY THE COPYRIGHT HOLDERS AND CONTRIBUTORS
// "AS IS" AND ANY EXPRESS OR IMPLIED WARRANTIES, INCLUDING, BUT NOT
// LIMITED TO, THE IMPLIED WARRANTIES OF MERCHANTABILITY AND FITNESS FOR
// A PARTICULAR PURPOSE ARE DISCLAIMED. IN NO EVENT SHALL THE COPYRIGHT
// OWNER OR CONTRIBUTORS BE LIABLE FOR ANY DIRECT, INDIRECT, INCIDENTAL,
// SPECIAL, EXEMPLARY, OR CONSEQUENTIAL DAMAGES (INCLUDING, BUT NOT
// LIMITED TO, PROCUREMENT OF SUBSTITUTE GOODS OR SERVICES; LOSS OF USE,
// DATA, OR PROFITS; OR BUSINESS INTERRUPTION) HOWEVER CAUSED AND ON ANY
// THEORY OF LIABILITY, WHETHER IN CONTRACT, STRICT LIABILITY, OR TORT
// (INCLUDING NEGLIGENCE OR OTHERWISE) ARISING IN ANY WAY OUT OF THE USE
// OF THIS SOFTWARE, EVEN IF ADVISED OF THE POSSIBILITY OF SUCH DAMAGE.
func serveProfile(w http.ResponseWriter, prof *profile.Profile) {
	h := w.Header()
	h.Set("X-Content-Type-Options", "nosniff")
	h.Set("Content-Type", "application/octet-stream")
	h.Set("Content-Disposition", `attachment; filename="profile"`)
	if err := prof.Write(w); err != nil {
		serveError(w, http.StatusInternalServerError, err.Error())
	}
}

func serveError(w http.ResponseWriter, status int, txt string) {
	h := w.Header()
	h.Set("X-Content-Type-Options", "nosniff")
	h.Set("X-Go-Pprof", "1")
	h.Set("Content-Type", "text/plain; charset=utf-8")
	h.Del("Content-Disposition")
	w.WriteHeader(status)
	fmt.Fprintln(w, txt)
}

// DebugIndexHandler serves a minimal HTML index describing the single
// opcode-tick profile this runtime exposes, and the profile itself at
// /debug/nodel/ticks — deliberately small next to net/http/pprof's
// index, since a nodel program only ever has the one profile kind.
func DebugIndexHandler(p *OpcodeProfiler) http.Handler {
	mux := http.NewServeMux()
	mux.Handle("/debug/nodel/ticks", p.NewHandler())
	mux.HandleFunc("/debug/nodel/", func(w http.ResponseWriter, r *http.Request) {
		h := w.Header()
		h.Set("Content-Type", "text/html; charset=utf-8")
		fmt.Fprintf(w, "<html><body><p>%s</p><ul><li><a href='/debug/nodel/ticks'>ticks</a>: opcode tick counts, in pprof format</li></ul></body></html>",
			html.EscapeString("nodel runtime profiles"))
	})
	return mux
}
