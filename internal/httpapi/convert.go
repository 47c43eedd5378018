package httpapi

import (
	"google.golang.org/protobuf/encoding/protowire"

	"github.com/BrandonDHaskell/Janus/server/internal/janus/types"
)

// ── Heartbeat ────────────────────────────────────────────────────────────────
//
// HeartbeatRequest:  1 device_id, 2 firmware_version, 3 uptime_s, 4 ip
// HeartbeatResponse: 1 ok, 2 known, 3 device_id, 4 registration_mode, 5 server_time

func heartbeatRequestFromProto(b []byte) (types.HeartbeatRequest, error) {
	var req types.HeartbeatRequest
	err := walkFields(b, func(num protowire.Number, typ protowire.Type, v []byte) int {
		switch num {
		case 1:
			return consumeString(typ, v, &req.DeviceID)
		case 2:
			return consumeString(typ, v, &req.FirmwareVersion)
		case 3:
			return consumeVarint(typ, v, &req.UptimeSeconds)
		case 4:
			return consumeString(typ, v, &req.IP)
		}
		return 0
	})
	return req, err
}

func heartbeatResponseToProto(r types.HeartbeatResponse) []byte {
	var b []byte
	b = appendBool(b, 1, r.OK)
	b = appendBool(b, 2, r.Known)
	b = appendString(b, 3, r.DeviceID)
	b = appendBool(b, 4, r.RegistrationMode)
	b = appendString(b, 5, r.ServerTime)
	return b
}

// ── Access ───────────────────────────────────────────────────────────────────
//
// AccessRequest:  1 device_id, 2 card_id, 3 fingerprint_id, 4 verification_method, 5 requested_at
// AccessResponse: 1 ok, 2 authorized, 3 reason, 4 device_id, 5 server_time, 6 log_id

func accessRequestFromProto(b []byte) (types.AccessRequest, error) {
	var (
		req    types.AccessRequest
		method string
		fp     uint64
		hasFP  bool
	)
	err := walkFields(b, func(num protowire.Number, typ protowire.Type, v []byte) int {
		switch num {
		case 1:
			return consumeString(typ, v, &req.DeviceID)
		case 2:
			return consumeString(typ, v, &req.CardID)
		case 3:
			n := consumeVarint(typ, v, &fp)
			hasFP = hasFP || n > 0
			return n
		case 4:
			return consumeString(typ, v, &method)
		case 5:
			return consumeString(typ, v, &req.RequestedAt)
		}
		return 0
	})
	if err != nil {
		return types.AccessRequest{}, err
	}
	req.Method = types.VerificationMethod(method)
	if hasFP {
		id := int64(fp)
		req.FingerprintID = &id
	}
	return req, nil
}

func accessResponseToProto(r types.AccessResponse) []byte {
	var b []byte
	b = appendBool(b, 1, r.OK)
	b = appendBool(b, 2, r.Authorized)
	b = appendString(b, 3, r.Reason)
	b = appendString(b, 4, r.DeviceID)
	b = appendString(b, 5, r.ServerTime)
	b = appendVarint(b, 6, uint64(r.LogID))
	return b
}
