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

// ── Template data ───────────────────────────────────────────────────────

type adminDeviceRow struct {
	api.Device
	OrgName string
}

type adminDevicesData struct {
	Nav           string
	User          *session.Session
	Query         string
	Rows          []adminDeviceRow
	Total         int
	Selected      *adminDeviceRow
	EditMode      bool
	Organisations []api.Organisation
	Error         string
	Flash         string
	FlashType     string
}

// ── Handlers ────────────────────────────────────────────────────────────

// handleAdminDevices renders the device management screen: searchable list,
// read-only detail, and edit form.
func (s *Server) handleAdminDevices(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	data := adminDevicesData{
		Nav:       "admin-devices",
		User:      sessionFromContext(r.Context()),
		Query:     q.Get("q"),
		EditMode:  q.Get("edit") == "1",
		Flash:     q.Get("flash"),
		FlashType: q.Get("flash_type"),
	}

	var devices []api.Device
	g, gctx := errgroup.WithContext(r.Context())
	g.Go(func() error {
		var err error
		devices, err = s.backend.AdminDevices(gctx)
		return err
	})
	g.Go(func() error {
		var err error
		data.Organisations, err = s.backend.Organisations(gctx)
		return err
	})
	if err := g.Wait(); err != nil {
		data.Error = "Failed to load devices."
		s.activity.Logf("admin", "error", "Device list load failed: %s", err)
		s.render.render(w, "admin_devices.html", data)
		return
	}

	orgNames := make(map[int64]string, len(data.Organisations))
	for _, o := range data.Organisations {
		orgNames[o.ID] = o.Name
	}

	needle := strings.ToLower(strings.TrimSpace(data.Query))
	for _, d := range devices {
		row := adminDeviceRow{Device: d, OrgName: "Not assigned"}
		if d.OrganisationID != nil {
			if name, ok := orgNames[*d.OrganisationID]; ok {
				row.OrgName = name
			}
		}
		if needle != "" && !matchesAny(needle, d.Name, d.DeviceID, row.OrgName) {
			continue
		}
		data.Rows = append(data.Rows, row)
	}
	data.Total = len(data.Rows)

	if sel := q.Get("sel"); sel != "" {
		for i := range data.Rows {
			if data.Rows[i].DeviceID == sel {
				data.Selected = &data.Rows[i]
				break
			}
		}
	}
	if data.Selected == nil {
		data.EditMode = false
	}

	s.render.render(w, "admin_devices.html", data)
}

// handleAdminDeviceUpdate saves an edited device. Every field except the
// immutable device_id must be non-empty.
func (s *Server) handleAdminDeviceUpdate(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if err := r.ParseForm(); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	name := strings.TrimSpace(r.FormValue("name"))
	orgRaw := strings.TrimSpace(r.FormValue("organisation_id"))
	if name == "" || orgRaw == "" {
		s.redirectAdminDevices(w, r, id, true, "All fields are required.", "error")
		return
	}

	d := api.Device{DeviceID: id, Name: name}
	if orgID, err := strconv.ParseInt(orgRaw, 10, 64); err == nil {
		d.OrganisationID = &orgID
	} else {
		s.redirectAdminDevices(w, r, id, true, "Organisation is required.", "error")
		return
	}

	updated, err := s.backend.UpdateDevice(r.Context(), d)
	if err != nil {
		s.activity.Logf("admin", "error", "Device %s update failed: %s", id, err)
		s.redirectAdminDevices(w, r, id, true, "Failed to save device.", "error")
		return
	}

	s.activity.Logf("admin", "success", "Device %s updated", updated.DeviceID)
	s.redirectAdminDevices(w, r, updated.DeviceID, false, "Device updated", "success")
}

func (s *Server) redirectAdminDevices(w http.ResponseWriter, r *http.Request, sel string, edit bool, flash, flashType string) {
	v := url.Values{}
	v.Set("sel", sel)
	if edit {
		v.Set("edit", "1")
	}
	v.Set("flash", flash)
	v.Set("flash_type", flashType)
	http.Redirect(w, r, "/admin/devices?"+v.Encode(), http.StatusSeeOther)
}

// matchesAny reports whether needle occurs in any of the values,
// case-insensitively.
func matchesAny(needle string, values ...string) bool {
	for _, v := range values {
		if strings.Contains(strings.ToLower(v), needle) {
			return true
		}
	}
	return false
}
