package grpcapi

import (
	"context"

	"github.com/ahmetcoskunkizilkaya/identity-service/internal/dto"
	"google.golang.org/grpc"
)

// Client calls AuthService over an existing connection using the JSON codec.
type Client struct {
	cc grpc.ClientConnInterface
}

func NewClient(cc grpc.ClientConnInterface) *Client {
	return &Client{cc: cc}
}

func (c *Client) invoke(ctx context.Context, method string, in, out any) error {
	return c.cc.Invoke(ctx, "/"+ServiceName+"/"+method, in, out, grpc.CallContentSubtype(CodecName))
}

func (c *Client) Register(ctx context.Context, in *dto.RegisterRequest) (*AuthResponse, error) {
	out := new(AuthResponse)
	if err := c.invoke(ctx, "Register", in, out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) Login(ctx context.Context, in *dto.LoginRequest) (*AuthResponse, error) {
	out := new(AuthResponse)
	if err := c.invoke(ctx, "Login", in, out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) SocialLogin(ctx context.Context, in *dto.SocialLoginRequest) (*AuthResponse, error) {
	out := new(AuthResponse)
	if err := c.invoke(ctx, "SocialLogin", in, out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) RefreshToken(ctx context.Context, in *dto.RefreshRequest) (*AuthResponse, error) {
	out := new(AuthResponse)
	if err := c.invoke(ctx, "RefreshToken", in, out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) Logout(ctx context.Context, in *dto.LogoutRequest) error {
	return c.invoke(ctx, "Logout", in, new(Empty))
}

func (c *Client) ValidateToken(ctx context.Context, in *ValidateRequest) (*dto.TokenPayload, error) {
	out := new(dto.TokenPayload)
	if err := c.invoke(ctx, "ValidateToken", in, out); err != nil {
		return nil, err
	}
	return out, nil
}
