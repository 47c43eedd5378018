package httpapi

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/BrandonDHaskell/Janus/server/internal/janus/store"
	"github.com/BrandonDHaskell/Janus/server/internal/janus/types"
)

// ── Organizations ────────────────────────────────────────────────────────────

func (s *Server) handleListOrganizations(w http.ResponseWriter, r *http.Request) {
	orgs, err := s.admin.ListOrganizations(r.Context())
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, orgs)
}

func (s *Server) handleCreateOrganization(w http.ResponseWriter, r *http.Request) {
	var p organizationPayload
	if err := decodeJSON(r, &p); err != nil {
		s.badJSON(w, err)
		return
	}
	o, err := s.admin.CreateOrganization(r.Context(), p.apply(types.Organization{ID: p.ID, Active: true}))
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, o)
}

func (s *Server) handleGetOrganization(w http.ResponseWriter, r *http.Request) {
	o, err := s.admin.GetOrganization(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, o)
}

func (s *Server) handleUpdateOrganization(w http.ResponseWriter, r *http.Request) {
	var p organizationPayload
	if err := decodeJSON(r, &p); err != nil {
		s.badJSON(w, err)
		return
	}
	existing, err := s.admin.GetOrganization(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	o, err := s.admin.UpdateOrganization(r.Context(), p.apply(existing))
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, o)
}

func (s *Server) handleDeleteOrganization(w http.ResponseWriter, r *http.Request) {
	report, err := s.admin.DeleteOrganization(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, report)
}

// ── Departments ──────────────────────────────────────────────────────────────

func (s *Server) handleListDepartments(w http.ResponseWriter, r *http.Request) {
	depts, err := s.admin.ListDepartments(r.Context(), r.URL.Query().Get("organization_id"))
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, depts)
}

func (s *Server) handleCreateDepartment(w http.ResponseWriter, r *http.Request) {
	var p departmentPayload
	if err := decodeJSON(r, &p); err != nil {
		s.badJSON(w, err)
		return
	}
	d, err := s.admin.CreateDepartment(r.Context(), p.apply(types.Department{ID: p.ID, Active: true}))
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, d)
}

func (s *Server) handleGetDepartment(w http.ResponseWriter, r *http.Request) {
	d, err := s.admin.GetDepartment(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, d)
}

func (s *Server) handleUpdateDepartment(w http.ResponseWriter, r *http.Request) {
	var p departmentPayload
	if err := decodeJSON(r, &p); err != nil {
		s.badJSON(w, err)
		return
	}
	existing, err := s.admin.GetDepartment(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	d, err := s.admin.UpdateDepartment(r.Context(), p.apply(existing))
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, d)
}

func (s *Server) handleDeleteDepartment(w http.ResponseWriter, r *http.Request) {
	report, err := s.admin.DeleteDepartment(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, report)
}

// ── Cards ────────────────────────────────────────────────────────────────────

func (s *Server) handleListCards(w http.ResponseWriter, r *http.Request) {
	q := newQueryParser(r.URL.Query())
	f := store.CardFilter{
		OrganizationID: q.str("organization_id"),
		HolderType:     types.HolderType(q.str("type")),
		Active:         q.flag("active"),
	}
	if dept := q.str("department_id"); dept != "" {
		f.DepartmentIDs = []string{dept}
	}
	if f.HolderType != "" && !f.HolderType.Valid() {
		q.fail("type", "must be one of student, faculty, staff, employee, visitor")
	}
	if err := q.err(); err != nil {
		s.writeServiceError(w, r, err)
		return
	}

	cards, err := s.admin.ListCards(r.Context(), f)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, cards)
}

func (s *Server) handleCreateCard(w http.ResponseWriter, r *http.Request) {
	var p cardPayload
	if err := decodeJSON(r, &p); err != nil {
		s.badJSON(w, err)
		return
	}
	c, err := s.admin.CreateCard(r.Context(), p.apply(types.Card{CardID: p.CardID, Active: true}))
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, c)
}

func (s *Server) handleGetCard(w http.ResponseWriter, r *http.Request) {
	c, err := s.admin.GetCard(r.Context(), chi.URLParam(r, "cardID"))
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, c)
}

func (s *Server) handleUpdateCard(w http.ResponseWriter, r *http.Request) {
	var p cardPayload
	if err := decodeJSON(r, &p); err != nil {
		s.badJSON(w, err)
		return
	}
	existing, err := s.admin.GetCard(r.Context(), chi.URLParam(r, "cardID"))
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	c, err := s.admin.UpdateCard(r.Context(), p.apply(existing))
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, c)
}

func (s *Server) handleSetCardStatus(w http.ResponseWriter, r *http.Request) {
	var p cardStatusPayload
	if err := decodeJSON(r, &p); err != nil {
		s.badJSON(w, err)
		return
	}
	if p.Active == nil {
		s.writeServiceError(w, r, fieldError("active", "is required"))
		return
	}
	c, err := s.admin.SetCardStatus(r.Context(), chi.URLParam(r, "cardID"), *p.Active)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, c)
}

func (s *Server) handleDeleteCard(w http.ResponseWriter, r *http.Request) {
	report, err := s.admin.DeleteCard(r.Context(), chi.URLParam(r, "cardID"))
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, report)
}

// ── Biometrics ───────────────────────────────────────────────────────────────

func (s *Server) handleGetBiometric(w http.ResponseWriter, r *http.Request) {
	b, err := s.admin.GetBiometric(r.Context(), chi.URLParam(r, "cardID"))
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, b)
}

func (s *Server) handleUpsertBiometric(w http.ResponseWriter, r *http.Request) {
	var p biometricPayload
	if err := decodeJSON(r, &p); err != nil {
		s.badJSON(w, err)
		return
	}
	b, err := s.admin.UpsertBiometric(r.Context(), types.BiometricData{
		CardID:       chi.URLParam(r, "cardID"),
		TemplateData: p.TemplateData,
	})
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, b)
}

func (s *Server) handleDeleteBiometric(w http.ResponseWriter, r *http.Request) {
	if err := s.admin.DeleteBiometric(r.Context(), chi.URLParam(r, "cardID")); err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// ── Devices ──────────────────────────────────────────────────────────────────

func (s *Server) handleListDevices(w http.ResponseWriter, r *http.Request) {
	q := newQueryParser(r.URL.Query())
	f := store.DeviceFilter{
		Active:   q.flag("active"),
		Location: q.str("location"),
	}
	if err := q.err(); err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	devices, err := s.admin.ListDevices(r.Context(), f)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, devices)
}

func (s *Server) handleCreateDevice(w http.ResponseWriter, r *http.Request) {
	var p devicePayload
	if err := decodeJSON(r, &p); err != nil {
		s.badJSON(w, err)
		return
	}
	d, err := s.admin.CreateDevice(r.Context(), p.apply(types.Device{DeviceID: p.DeviceID, Active: true}))
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, d)
}

func (s *Server) handleGetDevice(w http.ResponseWriter, r *http.Request) {
	d, err := s.admin.GetDevice(r.Context(), chi.URLParam(r, "deviceID"))
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, d)
}

func (s *Server) handleUpdateDevice(w http.ResponseWriter, r *http.Request) {
	var p devicePayload
	if err := decodeJSON(r, &p); err != nil {
		s.badJSON(w, err)
		return
	}
	existing, err := s.admin.GetDevice(r.Context(), chi.URLParam(r, "deviceID"))
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	d, err := s.admin.UpdateDevice(r.Context(), p.apply(existing))
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, d)
}

func (s *Server) handleDeleteDevice(w http.ResponseWriter, r *http.Request) {
	if err := s.admin.DeleteDevice(r.Context(), chi.URLParam(r, "deviceID")); err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
