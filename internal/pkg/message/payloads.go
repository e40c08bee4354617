package message

import "encoding/json"

// HelloAuthentication carries the challenge parameters of a Hello frame.
// Its absence means the server does not require authentication.
type HelloAuthentication struct {
	Challenge string `json:"challenge"`
	Salt      string `json:"salt"`
}

// Hello is the server's greeting, sent immediately after the connection is
// established.
type Hello struct {
	Authentication *HelloAuthentication `json:"authentication,omitempty"`
}

func (Hello) Opcode() Opcode { return OpHello }

// Identify is the client's response to Hello. The authentication field is
// present only when Hello carried a challenge.
type Identify struct {
	RPCVersion         uint32  `json:"rpcVersion"`
	Authentication     *string `json:"authentication,omitempty"`
	EventSubscriptions *uint32 `json:"eventSubscriptions,omitempty"`
}

func (Identify) Opcode() Opcode { return OpIdentify }

// Identified confirms a successful handshake.
type Identified struct {
	NegotiatedRPCVersion uint32 `json:"negotiatedRpcVersion"`
}

func (Identified) Opcode() Opcode { return OpIdentified }

// Reidentify renegotiates the event subscription bitmask after the
// handshake has completed.
type Reidentify struct {
	EventSubscriptions *uint32 `json:"eventSubscriptions,omitempty"`
}

func (Reidentify) Opcode() Opcode { return OpReidentify }

// Event is an asynchronous notification from the server.
type Event struct {
	EventType   string          `json:"eventType"`
	EventIntent uint32          `json:"eventIntent"`
	EventData   json.RawMessage `json:"eventData,omitempty"`
}

func (Event) Opcode() Opcode { return OpEvent }

// Request asks the server to perform one operation, correlated to its
// response by the request id.
type Request struct {
	RequestType string          `json:"requestType"`
	RequestID   string          `json:"requestId"`
	RequestData json.RawMessage `json:"requestData,omitempty"`
}

func (Request) Opcode() Opcode { return OpRequest }

// RequestStatus describes the outcome of one request.
type RequestStatus struct {
	Result  bool    `json:"result"`
	Code    int     `json:"code"`
	Comment *string `json:"comment,omitempty"`
}

// Response answers a Request.
type Response struct {
	RequestType   string          `json:"requestType"`
	RequestID     string          `json:"requestId"`
	RequestStatus RequestStatus   `json:"requestStatus"`
	ResponseData  json.RawMessage `json:"responseData,omitempty"`
}

func (Response) Opcode() Opcode { return OpRequestResponse }

// BatchRequest is one entry of a RequestBatch.
type BatchRequest struct {
	RequestType string          `json:"requestType"`
	RequestID   *string         `json:"requestId,omitempty"`
	RequestData json.RawMessage `json:"requestData,omitempty"`
}

// RequestBatch asks the server to perform several operations in one frame.
type RequestBatch struct {
	RequestID     string         `json:"requestId"`
	HaltOnFailure *bool          `json:"haltOnFailure,omitempty"`
	ExecutionType *int           `json:"executionType,omitempty"`
	Requests      []BatchRequest `json:"requests"`
}

func (RequestBatch) Opcode() Opcode { return OpRequestBatch }

// BatchResult is one entry of a BatchResponse.
type BatchResult struct {
	RequestType   string          `json:"requestType"`
	RequestID     *string         `json:"requestId,omitempty"`
	RequestStatus RequestStatus   `json:"requestStatus"`
	ResponseData  json.RawMessage `json:"responseData,omitempty"`
}

// BatchResponse answers a RequestBatch.
type BatchResponse struct {
	RequestID string        `json:"requestId"`
	Results   []BatchResult `json:"results"`
}

func (BatchResponse) Opcode() Opcode { return OpRequestBatchResponse }
