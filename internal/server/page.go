package server

//go:generate templ generate

import (
	"net/http"

	"github.com/a-h/templ"

	"github.com/daviddao/antmatch_viewer/internal/replay"
)

func render(w http.ResponseWriter, r *http.Request, component templ.Component) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := component.Render(r.Context(), w); err != nil {
		http.Error(w, "failed to render", http.StatusInternalServerError)
	}
}

// matchRow is one line of the landing page.
type matchRow struct {
	Match   replay.Match
	Address string
}

func (s *Server) handleHome(w http.ResponseWriter, r *http.Request) {
	ms, err := s.store.Matches(r.Context())
	if err != nil {
		httpError(w, r, err)
		return
	}
	base := "http://" + r.Host
	if r.TLS != nil {
		base = "https://" + r.Host
	}
	rows := make([]matchRow, 0, len(ms))
	for _, m := range ms {
		rows = append(rows, matchRow{Match: m, Address: m.Address(base)})
	}
	render(w, r, homePage(s.version, rows))
}
