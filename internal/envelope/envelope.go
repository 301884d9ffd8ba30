package envelope

import (
	"encoding/json"
	"net/http"
)

// Response is the single wire shape for every API reply. Status travels
// beside the body and is never serialized.
type Response struct {
	Status  int    `json:"-"`
	Success bool   `json:"success"`
	Message string `json:"message,omitempty"`
	Data    any    `json:"data"`
	Error   string `json:"error,omitempty"`
}

// Build derives Success from the status class so the two can't disagree.
// Data is dropped on failure.
func Build(status int, message string, data any) Response {
	success := status >= 200 && status < 300
	if !success {
		data = nil
	}
	return Response{Status: status, Success: success, Message: message, Data: data}
}

func OK(data any) Response {
	return Build(http.StatusOK, "", data)
}

func Created(message string, data any) Response {
	return Build(http.StatusCreated, message, data)
}

func Message(status int, message string) Response {
	return Build(status, message, nil)
}

func Fail(status int, message, code string) Response {
	if status < 400 {
		status = http.StatusInternalServerError
	}
	resp := Build(status, message, nil)
	resp.Error = code
	return resp
}

// Write sends resp, treating a zero Status as 200. Success is always
// rederived from the status sent. The returned error is from encoding the
// body, after the header has gone out.
func Write(w http.ResponseWriter, resp Response) error {
	status := resp.Status
	if status == 0 {
		status = http.StatusOK
	}
	code := resp.Error
	resp = Build(status, resp.Message, resp.Data)
	if !resp.Success {
		resp.Error = code
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	return json.NewEncoder(w).Encode(resp)
}
