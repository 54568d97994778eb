package transport

// Envelope wraps every JSON response of the API.
type Envelope struct {
	Status string      `json:"status"`
	Code   string      `json:"code,omitempty"`
	Data   interface{} `json:"data,omitempty"`
	Error  string      `json:"error,omitempty"`
	Meta   *Meta       `json:"meta,omitempty"`
}

// Meta ties a response to the request and live view it belongs to. ViewID is
// set on mutations that were already patched into the caller's view, so the
// client can skip its own optimistic update.
type Meta struct {
	RequestID string `json:"request_id,omitempty"`
	ViewID    string `json:"view_id,omitempty"`
	Count     *int   `json:"count,omitempty"`
}

func (m *Meta) empty() bool {
	return m == nil || (m.RequestID == "" && m.ViewID == "" && m.Count == nil)
}

func NewSuccess(data interface{}, meta *Meta) Envelope {
	if meta.empty() {
		meta = nil
	}
	return Envelope{Status: "success", Data: data, Meta: meta}
}

// NewError carries the user-facing message of a failed request.
func NewError(code, message string, meta *Meta) Envelope {
	if meta.empty() {
		meta = nil
	}
	return Envelope{Status: "error", Code: code, Error: message, Meta: meta}
}

// WithData attaches a payload to an error envelope, such as the dependency
// report of a degraded health check.
func (e Envelope) WithData(data interface{}) Envelope {
	e.Data = data
	return e
}

// Counted sets Count for list responses.
func Counted(meta *Meta, n int) *Meta {
	if meta == nil {
		meta = &Meta{}
	}
	meta.Count = &n
	return meta
}
