package server

import (
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/jameshendricken/iot-dashboard/internal/api"
	"github.com/jameshendricken/iot-dashboard/internal/session"
)

type adminUserRow struct {
	api.User
	OrgName  string
	RoleName string
}

type adminUsersData struct {
	Nav           string
	User          *session.Session
	Query         string
	Rows          []adminUserRow
	Total         int
	Selected      *adminUserRow
	EditMode      bool
	Organisations []api.Organisation
	Roles         []api.Role
	Error         string
	Flash         string
	FlashType     string
}

// handleAdminUsers renders the user management screen. Users, organisations
// and roles load concurrently; organisation and role names are joined in
// for display and search.
func (s *Server) handleAdminUsers(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	data := adminUsersData{
		Nav:       "admin-users",
		User:      sessionFromContext(r.Context()),
		Query:     q.Get("q"),
		EditMode:  q.Get("edit") == "1",
		Flash:     q.Get("flash"),
		FlashType: q.Get("flash_type"),
	}

	var users []api.User
	g, gctx := errgroup.WithContext(r.Context())
	g.Go(func() error {
		var err error
		users, err = s.backend.Users(gctx)
		return err
	})
	g.Go(func() error {
		var err error
		data.Organisations, err = s.backend.Organisations(gctx)
		return err
	})
	g.Go(func() error {
		var err error
		data.Roles, err = s.backend.Roles(gctx)
		return err
	})
	if err := g.Wait(); err != nil {
		data.Error = "Failed to load users."
		s.activity.Logf("admin", "error", "User list load failed: %s", err)
		s.render.render(w, "admin_users.html", data)
		return
	}

	orgNames := make(map[int64]string, len(data.Organisations))
	for _, o := range data.Organisations {
		orgNames[o.ID] = o.Name
	}
	roleNames := make(map[int64]string, len(data.Roles))
	for _, role := range data.Roles {
		roleNames[role.ID] = role.Name
	}

	needle := strings.ToLower(strings.TrimSpace(data.Query))
	for _, u := range users {
		row := adminUserRow{User: u, OrgName: "Not assigned", RoleName: "Not assigned"}
		if u.OrganisationID != nil {
			if name, ok := orgNames[*u.OrganisationID]; ok {
				row.OrgName = name
			}
		}
		if u.RolesID != nil {
			if name, ok := roleNames[*u.RolesID]; ok {
				row.RoleName = name
			}
		}
		if needle != "" && !matchesAny(needle, u.Name, u.Email, row.OrgName, row.RoleName) {
			continue
		}
		data.Rows = append(data.Rows, row)
	}
	data.Total = len(data.Rows)

	if sel := q.Get("sel"); sel != "" {
		if id, err := strconv.ParseInt(sel, 10, 64); err == nil {
			for i := range data.Rows {
				if data.Rows[i].ID == id {
					data.Selected = &data.Rows[i]
					break
				}
			}
		}
	}
	if data.Selected == nil {
		data.EditMode = false
	}

	s.render.render(w, "admin_users.html", data)
}

// handleAdminUserUpdate saves an edited user. Name and email are required;
// organisation and role are optional and null when cleared.
func (s *Server) handleAdminUserUpdate(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil {
		http.Error(w, "Invalid user id", http.StatusBadRequest)
		return
	}
	if err := r.ParseForm(); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	u := api.User{
		ID:    id,
		Name:  strings.TrimSpace(r.FormValue("name")),
		Email: strings.TrimSpace(r.FormValue("email")),
	}
	if u.Email == "" {
		s.redirectAdminUsers(w, r, id, true, "Email is required.", "error")
		return
	}
	if u.Name == "" {
		s.redirectAdminUsers(w, r, id, true, "Name is required.", "error")
		return
	}
	if v := strings.TrimSpace(r.FormValue("organisation_id")); v != "" {
		if orgID, err := strconv.ParseInt(v, 10, 64); err == nil {
			u.OrganisationID = &orgID
		}
	}
	if v := strings.TrimSpace(r.FormValue("roles_id")); v != "" {
		if roleID, err := strconv.ParseInt(v, 10, 64); err == nil {
			u.RolesID = &roleID
		}
	}

	updated, err := s.backend.UpdateUser(r.Context(), u)
	if err != nil {
		s.activity.Logf("admin", "error", "User %d update failed: %s", id, err)
		s.redirectAdminUsers(w, r, id, true, "Failed to save user.", "error")
		return
	}

	s.activity.Logf("admin", "success", "User %s updated", updated.Email)
	s.redirectAdminUsers(w, r, updated.ID, false, "User updated", "success")
}

func (s *Server) redirectAdminUsers(w http.ResponseWriter, r *http.Request, sel int64, edit bool, flash, flashType string) {
	v := url.Values{}
	v.Set("sel", strconv.FormatInt(sel, 10))
	if edit {
		v.Set("edit", "1")
	}
	v.Set("flash", flash)
	v.Set("flash_type", flashType)
	http.Redirect(w, r, "/admin/users?"+v.Encode(), http.StatusSeeOther)
}
