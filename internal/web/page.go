package web

import (
	"context"
	"fmt"
	"io"
	"net/http"

	"github.com/a-h/templ"
)

const pageLimit = 25

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	rows, err := s.recentRows(r.Context(), pageLimit)
	if err != nil {
		respondError(w, r, err, http.StatusInternalServerError)
		return
	}
	templ.Handler(statusPage(rows, s.opts.Limiter.Status().Active)).ServeHTTP(w, r)
}

// statusPage renders the recent runs table.
func statusPage(rows []runRow, active []string) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		p := &printer{w: w}
		p.raw(`<!DOCTYPE html><html lang="en"><head><meta charset="utf-8">`)
		p.raw(`<title>Ingestion runs</title>`)
		p.raw(`<style>body{font-family:sans-serif;margin:2rem}table{border-collapse:collapse}` +
			`td,th{border:1px solid #ccc;padding:.3rem .6rem;text-align:left}` +
			`.failed{color:#b00}.num{text-align:right}</style></head><body>`)
		p.raw(`<h1>Ingestion runs</h1>`)

		if len(active) > 0 {
			p.raw(`<p>In progress: `)
			for i, d := range active {
				if i > 0 {
					p.raw(", ")
				}
				p.text(d)
			}
			p.raw(`</p>`)
		}

		if len(rows) == 0 {
			p.raw(`<p>No runs recorded yet.</p></body></html>`)
			return p.err
		}

		p.raw(`<table><thead><tr><th>Run date</th><th>Entity</th><th>Status</th>` +
			`<th>Total</th><th>Valid</th><th>Invalid</th><th>Validated</th><th>Quarantine</th></tr></thead><tbody>`)
		for _, row := range rows {
			if row.Status == "failed" {
				p.raw(`<tr class="failed">`)
			} else {
				p.raw(`<tr>`)
			}
			p.cell(row.RunDate)
			p.cell(row.Entity)
			if row.Error != "" {
				p.raw(`<td title="`)
				p.text(row.Error)
				p.raw(`">`)
				p.text(row.Status)
				p.raw(`</td>`)
			} else {
				p.cell(row.Status)
			}
			p.num(row.Total)
			p.num(row.Valid)
			p.num(row.Invalid)
			p.cell(row.ValidatedLocator)
			p.cell(row.QuarantineLocator)
			p.raw(`</tr>`)
		}
		p.raw(`</tbody></table></body></html>`)
		return p.err
	})
}

// printer writes HTML fragments and keeps the first write error.
type printer struct {
	w   io.Writer
	err error
}

func (p *printer) raw(s string) {
	if p.err == nil {
		_, p.err = io.WriteString(p.w, s)
	}
}

func (p *printer) text(s string) {
	p.raw(templ.EscapeString(s))
}

func (p *printer) cell(s string) {
	p.raw(`<td>`)
	p.text(s)
	p.raw(`</td>`)
}

func (p *printer) num(n int) {
	p.raw(fmt.Sprintf(`<td class="num">%d</td>`, n))
}
