package adminrpc

// StartRequest mirrors runtime.RunCondition over the wire.
type StartRequest struct {
	Steps      int64 `json:"steps"`
	Continuous bool  `json:"continuous"`
	Blocking   bool  `json:"blocking"`
}

// StartResponse carries the error string, if any; gRPC status codes are
// reserved for transport-level failures, not runtime protocol errors.
type StartResponse struct {
	Err string `json:"err,omitempty"`
}

// PauseRequest is empty; pausing always targets the whole runtime.
type PauseRequest struct{}

// PauseResponse reports the outcome of a Pause call.
type PauseResponse struct {
	Err string `json:"err,omitempty"`
}

// StopRequest is empty; stopping always targets the whole runtime.
type StopRequest struct{}

// StopResponse reports the outcome of a Stop call.
type StopResponse struct {
	Err string `json:"err,omitempty"`
}

// GetVarRequest addresses one exported variable, with an optional flat
// index subset.
type GetVarRequest struct {
	VarID int   `json:"var_id"`
	Index []int `json:"index,omitempty"`
}

// GetVarResponse carries the requested data, or an error.
type GetVarResponse struct {
	Data []float64 `json:"data,omitempty"`
	Err  string    `json:"err,omitempty"`
}

// SetVarRequest writes data into the addressed variable.
type SetVarRequest struct {
	VarID int       `json:"var_id"`
	Data  []float64 `json:"data"`
}

// SetVarResponse reports the outcome of a SetVar call.
type SetVarResponse struct {
	Err string `json:"err,omitempty"`
}

// StatusRequest is empty.
type StatusRequest struct{}

// StatusResponse summarizes the runtime's lifecycle flags for an operator.
type StatusResponse struct {
	Initialized bool `json:"initialized"`
	Started     bool `json:"started"`
	Running     bool `json:"running"`
}
