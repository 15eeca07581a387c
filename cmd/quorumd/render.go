package main

import (
	"net/http"

	"github.com/iov-one/quorum/errors"
	"github.com/iov-one/quorum/x/sigs"
	"github.com/iov-one/quorum/x/wallet"
)

// JSONResp write content as JSON encoded response. Actions are encoded
// as tagged variants.
func JSONResp(w http.ResponseWriter, code int, content interface{}) {
	b, err := wallet.ModuleCdc.MarshalJSONIndent(content, "", "\t")
	if err != nil {
		code = http.StatusInternalServerError
		b = []byte(`{"errors":["Internal Server Error"]}`)
	}
	w.Header().Set("Content-Type", "application/json; charset=UTF-8")
	w.WriteHeader(code)
	_, _ = w.Write(b)
}

// JSONErr write single error as JSON encoded response.
func JSONErr(w http.ResponseWriter, code int, errText string) {
	JSONResp(w, code, struct {
		Errors []string `json:"errors"`
	}{
		Errors: []string{errText},
	})
}

// JSONError writes err together with its code. Errors outside of the
// registered taxonomy are redacted unless debug is set.
func JSONError(w http.ResponseWriter, err error, debug bool) {
	code, msg := errors.ErrorInfo(err, debug)
	JSONResp(w, httpStatus(err), struct {
		Errors []string `json:"errors"`
		Code   uint32   `json:"code"`
	}{
		Errors: []string{msg},
		Code:   code,
	})
}

func httpStatus(err error) int {
	switch {
	case errors.ErrNotFound.Is(err):
		return http.StatusNotFound
	case errors.ErrUnauthorized.Is(err), sigs.ErrInvalidSequence.Is(err):
		return http.StatusUnauthorized
	case wallet.ErrForbidden.Is(err):
		return http.StatusForbidden
	case errors.ErrDuplicate.Is(err),
		wallet.ErrAlreadyInitialized.Is(err),
		wallet.ErrAlreadyConfirmed.Is(err),
		wallet.ErrNotConfirmed.Is(err):
		return http.StatusConflict
	case errors.ErrInput.Is(err),
		errors.ErrEmpty.Is(err),
		errors.ErrMsg.Is(err),
		errors.ErrType.Is(err),
		errors.ErrOverflow.Is(err),
		wallet.ErrInvalidThreshold.Is(err):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}
