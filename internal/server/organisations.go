package server

import (
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/jameshendricken/iot-dashboard/internal/api"
	"github.com/jameshendricken/iot-dashboard/internal/session"
)

type adminOrgsData struct {
	Nav       string
	User      *session.Session
	Query     string
	Rows      []api.Organisation
	Total     int
	Selected  *api.Organisation
	EditMode  bool
	Error     string
	Flash     string
	FlashType string
}

// handleAdminOrgs renders the organisation management screen. The selected
// organisation's detail is re-fetched individually so notes reflect the
// backend's current state rather than the list payload.
func (s *Server) handleAdminOrgs(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	data := adminOrgsData{
		Nav:       "admin-organisations",
		User:      sessionFromContext(r.Context()),
		Query:     q.Get("q"),
		EditMode:  q.Get("edit") == "1",
		Flash:     q.Get("flash"),
		FlashType: q.Get("flash_type"),
	}

	orgs, err := s.backend.Organisations(r.Context())
	if err != nil {
		data.Error = "Failed to load organisations."
		s.activity.Logf("admin", "error", "Organisation list load failed: %s", err)
		s.render.render(w, "admin_organisations.html", data)
		return
	}

	needle := strings.ToLower(strings.TrimSpace(data.Query))
	for _, o := range orgs {
		if needle != "" {
			notes := ""
			if o.Notes != nil {
				notes = *o.Notes
			}
			if !matchesAny(needle, o.Name, notes, strconv.FormatInt(o.ID, 10)) {
				continue
			}
		}
		data.Rows = append(data.Rows, o)
	}
	data.Total = len(data.Rows)

	if sel := q.Get("sel"); sel != "" {
		if id, err := strconv.ParseInt(sel, 10, 64); err == nil {
			detail, err := s.backend.Organisation(r.Context(), id)
			if err != nil {
				data.Error = "Failed to load organisation details."
				s.activity.Logf("admin", "error", "Organisation %d detail load failed: %s", id, err)
			} else {
				data.Selected = detail
			}
		}
	}
	if data.Selected == nil {
		data.EditMode = false
	}

	s.render.render(w, "admin_organisations.html", data)
}

// handleAdminOrgCreate adds a new organisation. Name is required; notes
// are optional and sent as null when blank.
func (s *Server) handleAdminOrgCreate(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	name := strings.TrimSpace(r.FormValue("name"))
	if name == "" {
		s.redirectAdminOrgs(w, r, 0, false, "Organisation name is required.", "error")
		return
	}

	created, err := s.backend.CreateOrganisation(r.Context(), name, orgNotes(r.FormValue("notes")))
	if err != nil {
		s.activity.Logf("admin", "error", "Organisation create failed: %s", err)
		s.redirectAdminOrgs(w, r, 0, false, "Failed to create organisation.", "error")
		return
	}

	s.activity.Logf("admin", "success", "Organisation %q created", created.Name)
	s.redirectAdminOrgs(w, r, created.ID, false, "Organisation created", "success")
}

// handleAdminOrgUpdate saves an edited organisation.
func (s *Server) handleAdminOrgUpdate(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil {
		http.Error(w, "Invalid organisation id", http.StatusBadRequest)
		return
	}
	if err := r.ParseForm(); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	name := strings.TrimSpace(r.FormValue("name"))
	if name == "" {
		s.redirectAdminOrgs(w, r, id, true, "Organisation name is required.", "error")
		return
	}

	updated, err := s.backend.UpdateOrganisation(r.Context(), id, name, orgNotes(r.FormValue("notes")))
	if err != nil {
		s.activity.Logf("admin", "error", "Organisation %d update failed: %s", id, err)
		s.redirectAdminOrgs(w, r, id, true, "Failed to save organisation.", "error")
		return
	}

	s.activity.Logf("admin", "success", "Organisation %q updated", updated.Name)
	s.redirectAdminOrgs(w, r, id, false, "Organisation updated", "success")
}

func (s *Server) redirectAdminOrgs(w http.ResponseWriter, r *http.Request, sel int64, edit bool, flash, flashType string) {
	v := url.Values{}
	if sel > 0 {
		v.Set("sel", strconv.FormatInt(sel, 10))
	}
	if edit {
		v.Set("edit", "1")
	}
	v.Set("flash", flash)
	v.Set("flash_type", flashType)
	http.Redirect(w, r, "/admin/organisations?"+v.Encode(), http.StatusSeeOther)
}

func orgNotes(raw string) *string {
	notes := strings.TrimSpace(raw)
	if notes == "" {
		return nil
	}
	return &notes
}
