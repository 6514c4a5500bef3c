// Package httpapi is the thin HTTP surface in front of the
// provisioning service: routing, middleware wiring, response envelopes,
// and error-kind-to-status-code mapping.
package httpapi

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/mr-karan/wgmesh/internal/apierr"
)

func itoa(v uint64) string {
	return strconv.FormatUint(v, 10)
}

type envelope struct {
	OK    bool        `json:"ok"`
	Data  interface{} `json:"data,omitempty"`
	Error *errBody    `json:"error,omitempty"`
}

type errBody struct {
	Code    string            `json:"code"`
	Message string            `json:"message"`
	Details map[string]string `json:"details,omitempty"`
}

func writeData(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(envelope{OK: true, Data: data})
}

func writeError(w http.ResponseWriter, err error) {
	status, body := classify(err)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(envelope{OK: false, Error: body})
}

// classify maps an apierr.Kind to an HTTP status code
func classify(err error) (int, *errBody) {
	apiErr, ok := err.(*apierr.Error)
	if !ok {
		return http.StatusInternalServerError, &errBody{Code: string(apierr.KindInternal), Message: err.Error()}
	}

	body := &errBody{Code: string(apiErr.Kind), Message: apiErr.Error(), Details: apiErr.Details}

	switch apiErr.Kind {
	case apierr.KindValidation, apierr.KindInvalidCIDR, apierr.KindCapacityExceeded,
		apierr.KindUnknownGateway, apierr.KindMissingKey, apierr.KindInvalidKey:
		return http.StatusBadRequest, body
	case apierr.KindRevisionConflict:
		body.Details = map[string]string{
			"expected": itoa(apiErr.Expected),
			"received": itoa(apiErr.Received),
		}
		return http.StatusConflict, body
	case apierr.KindLockTimeout:
		return http.StatusServiceUnavailable, body
	case apierr.KindCorruptState:
		return http.StatusInternalServerError, body
	case apierr.KindRuntimeError, apierr.KindApplyFailed:
		return http.StatusBadGateway, body
	case apierr.KindNotExists, apierr.KindInterfaceNotFound:
		return http.StatusNotFound, body
	default:
		return http.StatusInternalServerError, body
	}
}
