package controllers

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/lintang-b-s/navigatorx-transit/pkg/util"
	"go.uber.org/zap"
)

type envelope map[string]any

func (api *routingAPI) writeJSON(w http.ResponseWriter, status int, data any, headers http.Header) error {
	js, err := json.Marshal(data)
	if err != nil {
		return err
	}
	js = append(js, '\n')
	for key, value := range headers {
		w.Header()[key] = value
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, err = w.Write(js)
	return err
}

func newErrorResponse(status int, message string) errorResponse {
	var resp errorResponse
	resp.Error.Code = http.StatusText(status)
	resp.Error.Message = message
	return resp
}

func (api *routingAPI) errorJSON(w http.ResponseWriter, r *http.Request, status int, message string) {
	if err := api.writeJSON(w, status, newErrorResponse(status, message), nil); err != nil {
		api.log.Error("failed to write error response", zap.String("path", r.URL.Path), zap.Error(err))
		w.WriteHeader(http.StatusInternalServerError)
	}
}

func (api *routingAPI) ServerErrorResponse(w http.ResponseWriter, r *http.Request, err error) {
	api.log.Error("server error", zap.String("method", r.Method), zap.String("path", r.URL.Path), zap.Error(err))
	api.errorJSON(w, r, http.StatusInternalServerError, util.MessageInternalServerError)
}

func (api *routingAPI) BadRequestResponse(w http.ResponseWriter, r *http.Request, err error) {
	api.errorJSON(w, r, http.StatusBadRequest, err.Error())
}

func (api *routingAPI) NotFoundResponse(w http.ResponseWriter, r *http.Request, err error) {
	api.errorJSON(w, r, http.StatusNotFound, err.Error())
}

func statusCodeOf(err error) int {
	var ierr *util.Error
	if !errors.As(err, &ierr) {
		return http.StatusInternalServerError
	}
	switch ierr.Code() {
	case util.ErrBadParamInput:
		return http.StatusBadRequest
	case util.ErrNotFound:
		return http.StatusNotFound
	case util.ErrConflict:
		return http.StatusConflict
	case util.ErrTimeout:
		return http.StatusRequestTimeout
	default:
		return http.StatusInternalServerError
	}
}

func (api *routingAPI) getStatusCode(w http.ResponseWriter, r *http.Request, err error) {
	status := statusCodeOf(err)
	if status == http.StatusInternalServerError {
		api.ServerErrorResponse(w, r, err)
		return
	}
	api.errorJSON(w, r, status, errorMessage(err))
}

func errorMessage(err error) string {
	var ierr *util.Error
	if errors.As(err, &ierr) {
		return ierr.Message()
	}
	return fmt.Sprint(err)
}
