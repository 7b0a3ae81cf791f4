package youtube

import "fmt"

// Callback failure reasons, surfaced to the browser as youtube_error.
const (
	ReasonMissingParams  = "missing_params"
	ReasonInvalidState   = "invalid_state"
	ReasonExchangeFailed = "token_exchange_failed"
	ReasonLookupFailed   = "channel_lookup_failed"
	ReasonNoChannel      = "no_channel"
	ReasonPersistFailed  = "persist_failed"
)

// CallbackError is returned by HandleCallback. It is never fatal to the
// caller: the HTTP layer turns it into a redirect.
type CallbackError struct {
	Reason string
	Err    error
}

func (e *CallbackError) Error() string {
	if e.Err == nil {
		return "youtube callback: " + e.Reason
	}
	return fmt.Sprintf("youtube callback: %s: %v", e.Reason, e.Err)
}

func (e *CallbackError) Unwrap() error { return e.Err }
