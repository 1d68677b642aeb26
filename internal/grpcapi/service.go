// Package grpcapi exposes the auth operations over gRPC with a JSON codec.
package grpcapi

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"github.com/ahmetcoskunkizilkaya/identity-service/internal/dto"
	"github.com/ahmetcoskunkizilkaya/identity-service/internal/models"
	"github.com/ahmetcoskunkizilkaya/identity-service/internal/services"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

const ServiceName = "identity.AuthService"

type AuthCore interface {
	Register(ctx context.Context, in services.RegisterInput) (*services.AuthResult, error)
	Login(ctx context.Context, email, password string) (*services.AuthResult, error)
	SocialLogin(ctx context.Context, provider models.Provider, accessToken string) (*services.AuthResult, error)
	Refresh(ctx context.Context, refreshToken string) (*services.AuthResult, error)
	Logout(ctx context.Context, refreshToken string) error
	ValidateToken(ctx context.Context, accessToken string) (*services.AccessClaims, error)
}

type ValidateRequest struct {
	AccessToken string `json:"accessToken"`
}

type Empty struct{}

// AuthResponse adds the Created flag the HTTP API expresses as a 201.
type AuthResponse struct {
	dto.AuthData
	Created bool `json:"created"`
}

// AuthServiceServer is the handler type checked by grpc.Server.RegisterService.
type AuthServiceServer interface {
	Register(context.Context, *dto.RegisterRequest) (*AuthResponse, error)
	Login(context.Context, *dto.LoginRequest) (*AuthResponse, error)
	SocialLogin(context.Context, *dto.SocialLoginRequest) (*AuthResponse, error)
	RefreshToken(context.Context, *dto.RefreshRequest) (*AuthResponse, error)
	Logout(context.Context, *dto.LogoutRequest) (*Empty, error)
	ValidateToken(context.Context, *ValidateRequest) (*dto.TokenPayload, error)
}

// Service adapts AuthCore to the gRPC method set.
type Service struct {
	auth AuthCore
}

func NewService(auth AuthCore) *Service {
	return &Service{auth: auth}
}

func (s *Service) Register(ctx context.Context, in *dto.RegisterRequest) (*AuthResponse, error) {
	if err := in.Validate(); err != nil {
		return nil, status.Error(codes.InvalidArgument, err.Error())
	}
	res, err := s.auth.Register(ctx, in.Input())
	if err != nil {
		return nil, toStatus(err)
	}
	return newAuthResponse(res), nil
}

func (s *Service) Login(ctx context.Context, in *dto.LoginRequest) (*AuthResponse, error) {
	if err := in.Validate(); err != nil {
		return nil, status.Error(codes.InvalidArgument, err.Error())
	}
	res, err := s.auth.Login(ctx, in.Email, in.Password)
	if err != nil {
		return nil, toStatus(err)
	}
	return newAuthResponse(res), nil
}

func (s *Service) SocialLogin(ctx context.Context, in *dto.SocialLoginRequest) (*AuthResponse, error) {
	provider, err := in.Validate()
	if err != nil {
		return nil, status.Error(codes.InvalidArgument, err.Error())
	}
	res, err := s.auth.SocialLogin(ctx, provider, in.AccessToken)
	if err != nil {
		return nil, toStatus(err)
	}
	return newAuthResponse(res), nil
}

func (s *Service) RefreshToken(ctx context.Context, in *dto.RefreshRequest) (*AuthResponse, error) {
	if err := in.Validate(); err != nil {
		return nil, status.Error(codes.InvalidArgument, err.Error())
	}
	res, err := s.auth.Refresh(ctx, in.RefreshToken)
	if err != nil {
		return nil, toStatus(err)
	}
	return newAuthResponse(res), nil
}

func (s *Service) Logout(ctx context.Context, in *dto.LogoutRequest) (*Empty, error) {
	if err := in.Validate(); err != nil {
		return nil, status.Error(codes.InvalidArgument, err.Error())
	}
	if err := s.auth.Logout(ctx, in.RefreshToken); err != nil {
		return nil, toStatus(err)
	}
	return &Empty{}, nil
}

func (s *Service) ValidateToken(ctx context.Context, in *ValidateRequest) (*dto.TokenPayload, error) {
	token := strings.TrimSpace(in.AccessToken)
	if token == "" {
		return nil, status.Error(codes.InvalidArgument, dto.ErrTokenRequired.Error())
	}
	claims, err := s.auth.ValidateToken(ctx, token)
	if err != nil {
		return nil, toStatus(err)
	}
	payload := dto.NewTokenPayload(claims)
	return &payload, nil
}

func newAuthResponse(res *services.AuthResult) *AuthResponse {
	return &AuthResponse{AuthData: dto.NewAuthData(res), Created: res.Created}
}

// toStatus mirrors the HTTP error mapping. Credential and token failures
// share one message.
func toStatus(err error) error {
	switch {
	case errors.Is(err, services.ErrAlreadyExists):
		return status.Error(codes.AlreadyExists, "account already exists")
	case errors.Is(err, services.ErrInvalidCredentials),
		errors.Is(err, services.ErrInvalidProviderToken),
		errors.Is(err, services.ErrProviderConflict):
		return status.Error(codes.Unauthenticated, "invalid credentials")
	case errors.Is(err, services.ErrInvalidToken):
		return status.Error(codes.Unauthenticated, "invalid or expired token")
	case errors.Is(err, services.ErrUnsupportedProvider):
		return status.Error(codes.InvalidArgument, "unsupported provider")
	case errors.Is(err, services.ErrPasswordTooLong):
		return status.Error(codes.InvalidArgument, "password is too long")
	case errors.Is(err, services.ErrInternal):
		// Store timeouts wrap a context error but remain Internal.
	case errors.Is(err, context.DeadlineExceeded):
		return status.Error(codes.DeadlineExceeded, "deadline exceeded")
	case errors.Is(err, context.Canceled):
		return status.Error(codes.Canceled, "request canceled")
	}
	slog.Error("grpc request failed", "error", err.Error())
	return status.Error(codes.Internal, "internal error")
}

func unaryHandler[Req any, Resp any](call func(AuthServiceServer, context.Context, *Req) (*Resp, error), method string) grpc.MethodHandler {
	fullMethod := "/" + ServiceName + "/" + method
	return func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
		in := new(Req)
		if err := dec(in); err != nil {
			return nil, status.Error(codes.InvalidArgument, "invalid request body")
		}
		if interceptor == nil {
			return call(srv.(AuthServiceServer), ctx, in)
		}
		info := &grpc.UnaryServerInfo{Server: srv, FullMethod: fullMethod}
		return interceptor(ctx, in, info, func(ctx context.Context, req any) (any, error) {
			return call(srv.(AuthServiceServer), ctx, req.(*Req))
		})
	}
}

// ServiceDesc is written by hand; the messages are plain JSON structs.
var ServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*AuthServiceServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "Register", Handler: unaryHandler(AuthServiceServer.Register, "Register")},
		{MethodName: "Login", Handler: unaryHandler(AuthServiceServer.Login, "Login")},
		{MethodName: "SocialLogin", Handler: unaryHandler(AuthServiceServer.SocialLogin, "SocialLogin")},
		{MethodName: "RefreshToken", Handler: unaryHandler(AuthServiceServer.RefreshToken, "RefreshToken")},
		{MethodName: "Logout", Handler: unaryHandler(AuthServiceServer.Logout, "Logout")},
		{MethodName: "ValidateToken", Handler: unaryHandler(AuthServiceServer.ValidateToken, "ValidateToken")},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "identity/auth.json",
}
