package api

import "net/http"

// StatusNetworkError is the pseudo status a client reports when no response
// arrived at all.
const StatusNetworkError = 0

var statusMessages = map[int]string{
	StatusNetworkError:             "Unable to reach the server. Check your connection.",
	http.StatusBadRequest:          "The request was invalid. Please check your input.",
	http.StatusUnauthorized:        "Your session has expired. Please log in again.",
	http.StatusForbidden:           "You do not have permission to perform this action.",
	http.StatusNotFound:            "The requested resource was not found.",
	http.StatusConflict:            "This action conflicts with existing data.",
	http.StatusUnprocessableEntity: "Some fields could not be processed.",
	http.StatusInternalServerError: "Something went wrong on our side. Please try again later.",
	http.StatusServiceUnavailable:  "The service is temporarily unavailable.",
}

const defaultStatusMessage = "An unexpected error occurred."

// StatusMessage maps a response status to the fixed text shown to end users.
func StatusMessage(status int) string {
	if msg, ok := statusMessages[status]; ok {
		return msg
	}
	return defaultStatusMessage
}

var statusCodes = map[int]string{
	http.StatusBadRequest:          "bad_request",
	http.StatusUnauthorized:        "unauthorized",
	http.StatusForbidden:           "forbidden",
	http.StatusNotFound:            "not_found",
	http.StatusMethodNotAllowed:    "method_not_allowed",
	http.StatusConflict:            "conflict",
	http.StatusUnprocessableEntity: "unprocessable",
	http.StatusTooManyRequests:     "rate_limited",
	http.StatusInternalServerError: "internal_error",
	http.StatusServiceUnavailable:  "unavailable",
}

func StatusCode(status int) string {
	if code, ok := statusCodes[status]; ok {
		return code
	}
	return "error"
}
