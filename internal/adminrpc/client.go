package adminrpc

import (
	"context"

	"google.golang.org/grpc"
)

// Client is a thin typed wrapper over a grpc.ClientConn, the hand-written
// counterpart to a generated AdminServiceClient.
type Client struct {
	cc   grpc.ClientConnInterface
	opts []grpc.CallOption
}

// NewClient wraps cc, forcing every call onto the JSON codec registered in
// codec.go instead of gRPC's default protobuf codec.
func NewClient(cc grpc.ClientConnInterface) *Client {
	return &Client{cc: cc, opts: []grpc.CallOption{grpc.CallContentSubtype(codecName)}}
}

func (c *Client) Start(ctx context.Context, in *StartRequest) (*StartResponse, error) {
	out := new(StartResponse)
	if err := c.cc.Invoke(ctx, "/"+serviceName+"/Start", in, out, c.opts...); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) Pause(ctx context.Context, in *PauseRequest) (*PauseResponse, error) {
	out := new(PauseResponse)
	if err := c.cc.Invoke(ctx, "/"+serviceName+"/Pause", in, out, c.opts...); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) Stop(ctx context.Context, in *StopRequest) (*StopResponse, error) {
	out := new(StopResponse)
	if err := c.cc.Invoke(ctx, "/"+serviceName+"/Stop", in, out, c.opts...); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) GetVar(ctx context.Context, in *GetVarRequest) (*GetVarResponse, error) {
	out := new(GetVarResponse)
	if err := c.cc.Invoke(ctx, "/"+serviceName+"/GetVar", in, out, c.opts...); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) SetVar(ctx context.Context, in *SetVarRequest) (*SetVarResponse, error) {
	out := new(SetVarResponse)
	if err := c.cc.Invoke(ctx, "/"+serviceName+"/SetVar", in, out, c.opts...); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) Status(ctx context.Context, in *StatusRequest) (*StatusResponse, error) {
	out := new(StatusResponse)
	if err := c.cc.Invoke(ctx, "/"+serviceName+"/Status", in, out, c.opts...); err != nil {
		return nil, err
	}
	return out, nil
}
