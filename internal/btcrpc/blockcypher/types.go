package blockcypher

// Subscription is a provider webhook. The per-hook token echoed back by the
// provider is deliberately not mapped.
type Subscription struct {
	ID             string `json:"id"`
	Event          string `json:"event"`
	Address        string `json:"address,omitempty"`
	URL            string `json:"url"`
	Confirmations  int    `json:"confirmations,omitempty"`
	CallbackErrors int    `json:"callback_errors"`
}

type DeleteResult struct {
	ID             string `json:"id"`
	AlreadyRemoved bool   `json:"already_removed"`
}

type createHookRequest struct {
	Event         string `json:"event"`
	Address       string `json:"address"`
	URL           string `json:"url"`
	Confirmations int    `json:"confirmations,omitempty"`
}

type errorResponse struct {
	Error  string `json:"error"`
	Errors []struct {
		Error string `json:"error"`
	} `json:"errors"`
}

func (e errorResponse) message() string {
	if e.Error != "" {
		return e.Error
	}
	if len(e.Errors) > 0 {
		return e.Errors[0].Error
	}
	return ""
}
