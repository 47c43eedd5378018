package httpapi

import (
	"net/http"

	"github.com/BrandonDHaskell/Janus/server/internal/janus/types"
)

// Reader endpoints accept JSON or protobuf and answer in the same encoding.
// Errors are always JSON.

func (s *Server) handleHeartbeat(w http.ResponseWriter, r *http.Request) {
	var (
		req   types.HeartbeatRequest
		proto = isProtobuf(r)
	)
	if proto {
		body, err := readProtoBody(r)
		if err == nil {
			req, err = heartbeatRequestFromProto(body)
		}
		if err != nil {
			writeError(w, http.StatusBadRequest, "bad_proto", "invalid protobuf body")
			return
		}
	} else if err := decodeJSON(r, &req); err != nil {
		s.badJSON(w, err)
		return
	}

	resp, err := s.heartbeat.Record(r.Context(), req)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}

	if proto {
		writeProto(w, http.StatusOK, heartbeatResponseToProto(resp))
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleAccessRequest(w http.ResponseWriter, r *http.Request) {
	var (
		req   types.AccessRequest
		proto = isProtobuf(r)
	)
	if proto {
		body, err := readProtoBody(r)
		if err == nil {
			req, err = accessRequestFromProto(body)
		}
		if err != nil {
			writeError(w, http.StatusBadRequest, "bad_proto", "invalid protobuf body")
			return
		}
	} else if err := decodeJSON(r, &req); err != nil {
		s.badJSON(w, err)
		return
	}

	resp, err := s.access.Decide(r.Context(), req)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}

	if proto {
		writeProto(w, http.StatusOK, accessResponseToProto(resp))
		return
	}
	writeJSON(w, http.StatusOK, resp)
}
