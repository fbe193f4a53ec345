package upstream

import (
	"context"
	"net/http"

	"github.com/BasmalaAyman4/storefront-gateway/internal/locale"
	"github.com/BasmalaAyman4/storefront-gateway/internal/models"
)

const authRetries = 1

func (c *Client) Login(ctx context.Context, req models.LoginRequest, loc locale.Locale) (*models.AuthGrant, error) {
	var grant models.AuthGrant
	_, err := c.Do(ctx, Request{
		Method:  http.MethodPost,
		Path:    "/auth/login",
		Body:    req,
		Locale:  loc,
		Retries: authRetries,
		Out:     &grant,
	})
	if err != nil {
		return nil, err
	}
	return &grant, nil
}

func (c *Client) SignupStart(ctx context.Context, req models.SignupStartRequest, loc locale.Locale) (*models.SignupStartResponse, error) {
	var resp models.SignupStartResponse
	_, err := c.Do(ctx, Request{
		Method:  http.MethodPost,
		Path:    "/auth/signup",
		Body:    req,
		Locale:  loc,
		Retries: authRetries,
		Out:     &resp,
	})
	if err != nil {
		return nil, err
	}
	return &resp, nil
}

func (c *Client) VerifyCode(ctx context.Context, req models.VerifyCodeRequest, loc locale.Locale) error {
	_, err := c.Do(ctx, Request{
		Method:  http.MethodPost,
		Path:    "/auth/verify-otp",
		Body:    req,
		Locale:  loc,
		Retries: authRetries,
	})
	return err
}

func (c *Client) SetPassword(ctx context.Context, req models.SetPasswordRequest, loc locale.Locale) (*models.AuthGrant, error) {
	var grant models.AuthGrant
	_, err := c.Do(ctx, Request{
		Method:  http.MethodPost,
		Path:    "/auth/set-password",
		Body:    req,
		Locale:  loc,
		Retries: authRetries,
		Out:     &grant,
	})
	if err != nil {
		return nil, err
	}
	return &grant, nil
}

func (c *Client) SetPersonalInfo(ctx context.Context, token string, req models.PersonalInfoRequest, loc locale.Locale) (*models.AuthGrant, error) {
	var grant models.AuthGrant
	_, err := c.Do(ctx, Request{
		Method:  http.MethodPost,
		Path:    "/auth/personal-info",
		Body:    req,
		Locale:  loc,
		Token:   token,
		Retries: authRetries,
		Out:     &grant,
	})
	if err != nil {
		return nil, err
	}
	return &grant, nil
}

func (c *Client) RefreshToken(ctx context.Context, token string, loc locale.Locale) (*models.AuthGrant, error) {
	var grant models.AuthGrant
	_, err := c.Do(ctx, Request{
		Method:  http.MethodPost,
		Path:    "/auth/refresh",
		Locale:  loc,
		Token:   token,
		Retries: authRetries,
		Out:     &grant,
	})
	if err != nil {
		return nil, err
	}
	return &grant, nil
}

func (c *Client) InvalidateToken(ctx context.Context, token string, loc locale.Locale) error {
	_, err := c.Do(ctx, Request{
		Method: http.MethodPost,
		Path:   "/auth/logout",
		Locale: loc,
		Token:  token,
	})
	return err
}
