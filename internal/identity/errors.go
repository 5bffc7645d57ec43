package identity

import (
	"encoding/json"
	"fmt"
)

// ProviderError is a GoTrue error answer. Older servers send
// {error, error_description}; newer ones send {error_code, msg}.
type ProviderError struct {
	Status  int
	Code    string
	Message string
}

func (e *ProviderError) Error() string {
	if e == nil {
		return ""
	}
	if e.Code == "" {
		return fmt.Sprintf("identity: status %d: %s", e.Status, e.Message)
	}
	return fmt.Sprintf("identity: status %d: %s: %s", e.Status, e.Code, e.Message)
}

func parseProviderError(status int, raw []byte) error {
	var body struct {
		Error            string `json:"error"`
		ErrorDescription string `json:"error_description"`
		ErrorCode        string `json:"error_code"`
		Msg              string `json:"msg"`
		Message          string `json:"message"`
	}
	_ = json.Unmarshal(raw, &body)

	pe := &ProviderError{Status: status, Code: body.ErrorCode}
	if pe.Code == "" {
		pe.Code = body.Error
	}
	for _, candidate := range []string{body.Msg, body.ErrorDescription, body.Message, body.Error} {
		if candidate != "" {
			pe.Message = candidate
			break
		}
	}
	return pe
}
