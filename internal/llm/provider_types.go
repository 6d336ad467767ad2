package llm

// Error body used by OpenAI-style and Google-style APIs.
type providerErrorEnvelope struct {
	Error struct {
		Message string      `json:"message"`
		Type    string      `json:"type"`
		Status  string      `json:"status"`
		Code    interface{} `json:"code"`
	} `json:"error"`
}

// Error body returned by the summarization service.
type serviceErrorBody struct {
	Error     string `json:"error"`
	ErrorType string `json:"error_type"`
	Detail    string `json:"detail"`
	Traceback string `json:"traceback"`
}
