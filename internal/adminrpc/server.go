package adminrpc

import (
	"context"
	"log/slog"

	"github.com/ysingh7/lava/internal/runtime"
)

// Server implements AdminServiceServer against a single runtime.Controller,
// the admin counterpart to the teacher's gRPC server wrapping a Controller
// and worker registry.
type Server struct {
	ctrl   *runtime.Controller
	logger *slog.Logger
}

// NewServer wraps ctrl. ctrl must already be Initialize'd.
func NewServer(ctrl *runtime.Controller, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	return &Server{ctrl: ctrl, logger: logger.With("component", "adminrpc")}
}

func errString(err error) string {
	if err == nil {
		return ""
	}
	return err.Error()
}

func (s *Server) Start(_ context.Context, req *StartRequest) (*StartResponse, error) {
	var rc runtime.RunCondition
	if req.Continuous {
		rc = runtime.Continuous()
	} else {
		rc = runtime.Stepped(req.Steps, req.Blocking)
	}
	err := s.ctrl.Start(rc)
	if err != nil {
		s.logger.Error("start failed", "err", err)
	}
	return &StartResponse{Err: errString(err)}, nil
}

func (s *Server) Pause(_ context.Context, _ *PauseRequest) (*PauseResponse, error) {
	err := s.ctrl.Pause()
	return &PauseResponse{Err: errString(err)}, nil
}

func (s *Server) Stop(_ context.Context, _ *StopRequest) (*StopResponse, error) {
	err := s.ctrl.Stop()
	return &StopResponse{Err: errString(err)}, nil
}

func (s *Server) GetVar(_ context.Context, req *GetVarRequest) (*GetVarResponse, error) {
	data, err := s.ctrl.GetVar(req.VarID, req.Index)
	if err != nil {
		return &GetVarResponse{Err: err.Error()}, nil
	}
	return &GetVarResponse{Data: data}, nil
}

func (s *Server) SetVar(_ context.Context, req *SetVarRequest) (*SetVarResponse, error) {
	err := s.ctrl.SetVar(req.VarID, req.Data)
	return &SetVarResponse{Err: errString(err)}, nil
}

func (s *Server) Status(_ context.Context, _ *StatusRequest) (*StatusResponse, error) {
	initialized, started, running := s.ctrl.Status()
	return &StatusResponse{Initialized: initialized, Started: started, Running: running}, nil
}
