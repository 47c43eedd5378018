package httpapi

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"google.golang.org/protobuf/encoding/protowire"

	"github.com/BrandonDHaskell/Janus/server/internal/janus/service"
	"github.com/BrandonDHaskell/Janus/server/internal/janus/types"
)

func TestAccessRequestFromProto(t *testing.T) {
	var b []byte
	b = protowire.AppendTag(b, 1, protowire.BytesType)
	b = protowire.AppendString(b, "door-001")
	b = protowire.AppendTag(b, 99, protowire.VarintType) // unknown field, skipped
	b = protowire.AppendVarint(b, 12345)
	b = protowire.AppendTag(b, 3, protowire.VarintType)
	b = protowire.AppendVarint(b, 0)
	b = protowire.AppendTag(b, 4, protowire.BytesType)
	b = protowire.AppendString(b, "fingerprint")

	req, err := accessRequestFromProto(b)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if req.DeviceID != "door-001" || req.Method != types.MethodFingerprint {
		t.Errorf("unexpected request %+v", req)
	}
	if req.FingerprintID == nil || *req.FingerprintID != 0 {
		t.Errorf("an explicit zero fingerprint id must survive decoding, got %v", req.FingerprintID)
	}
	if req.CardID != "" {
		t.Errorf("card id should be empty, got %q", req.CardID)
	}
}

func TestAccessRequestFromProto_Truncated(t *testing.T) {
	b := protowire.AppendTag(nil, 1, protowire.BytesType)
	b = append(b, 10, 'd') // claims 10 bytes, has 1

	if _, err := accessRequestFromProto(b); err == nil {
		t.Fatal("expected error for truncated message")
	}
}

func TestHeartbeatResponseToProto_OmitsZeroValues(t *testing.T) {
	b := heartbeatResponseToProto(types.HeartbeatResponse{OK: true, DeviceID: "door-001"})

	seen := map[protowire.Number]bool{}
	err := walkFields(b, func(num protowire.Number, typ protowire.Type, v []byte) int {
		seen[num] = true
		return 0
	})
	if err != nil {
		t.Fatalf("walk: %v", err)
	}
	if !seen[1] || !seen[3] {
		t.Errorf("expected ok and device_id fields, got %v", seen)
	}
	if seen[2] || seen[4] || seen[5] {
		t.Errorf("zero-valued fields should be omitted, got %v", seen)
	}
}

func TestWriteServiceError(t *testing.T) {
	s := &Server{logger: slog.New(slog.DiscardHandler)}

	cases := []struct {
		err    error
		status int
	}{
		{&service.ValidationError{Fields: []service.FieldError{{Field: "name", Message: "is required"}}}, http.StatusBadRequest},
		{&service.NotFoundError{Entity: "card", ID: "C1"}, http.StatusNotFound},
		{fmt.Errorf("wrapped: %w", &service.ConflictError{Entity: "card", ID: "C1"}), http.StatusConflict},
		{service.ErrDeviceEnrolling, http.StatusConflict},
		{&service.EnrollmentTimeoutError{}, http.StatusConflict},
		{&service.CascadeIncompleteError{}, http.StatusInternalServerError},
		{errors.New("disk on fire"), http.StatusInternalServerError},
	}
	for _, tc := range cases {
		rec := httptest.NewRecorder()
		s.writeServiceError(rec, httptest.NewRequest(http.MethodGet, "/", nil), tc.err)
		if rec.Code != tc.status {
			t.Errorf("%v: expected %d, got %d", tc.err, tc.status, rec.Code)
		}
	}
}
