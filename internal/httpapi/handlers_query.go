package httpapi

import (
	"net/http"

	"github.com/BrandonDHaskell/Janus/server/internal/janus/store"
	"github.com/BrandonDHaskell/Janus/server/internal/janus/types"
)

func (s *Server) handleListAccessLogs(w http.ResponseWriter, r *http.Request) {
	q := newQueryParser(r.URL.Query())
	f := store.AccessLogFilter{
		DeviceID:   q.str("device_id"),
		CardID:     q.str("card_id"),
		From:       q.timestamp("from"),
		To:         q.timestamp("to"),
		Authorized: q.flag("authorized"),
		Method:     types.VerificationMethod(q.str("method")),
		Limit:      q.count("limit"),
	}
	if err := q.err(); err != nil {
		s.writeServiceError(w, r, err)
		return
	}

	logs, err := s.admin.ListAccessLogs(r.Context(), f)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, logs)
}

func (s *Server) handleAccessStats(w http.ResponseWriter, r *http.Request) {
	q := newQueryParser(r.URL.Query())
	sq := types.StatsQuery{
		From:           q.timestamp("from"),
		To:             q.timestamp("to"),
		OrganizationID: q.str("organization_id"),
		DepartmentID:   q.str("department_id"),
	}
	if err := q.err(); err != nil {
		s.writeServiceError(w, r, err)
		return
	}

	stats, err := s.analytics.AccessStats(r.Context(), sq)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, stats)
}
