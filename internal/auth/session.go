package auth

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/standx-tools/volgate/internal/pkg/apperrors"
	"github.com/standx-tools/volgate/internal/pkg/logger"
	"github.com/standx-tools/volgate/internal/signer"
)

// Authenticator exchanges a wallet signature for a bearer session token via
// the venue's three-step offchain sign-in flow. A failed step leaves no
// partial state behind; the caller only stores the token on full success.
type Authenticator struct {
	authURL string
	chain   string
	client  *http.Client
}

func NewAuthenticator(authURL, chain string, client *http.Client) *Authenticator {
	if client == nil {
		client = http.DefaultClient
	}
	return &Authenticator{
		authURL: strings.TrimRight(authURL, "/"),
		chain:   chain,
		client:  client,
	}
}

// Result is the login response; Token is the bearer credential for the
// remaining lifetime of the session.
type Result struct {
	Token   string `json:"token"`
	Address string `json:"address"`
}

type prepareRequest struct {
	Address   string `json:"address"`
	RequestID string `json:"requestId"`
}

type prepareResponse struct {
	Success    bool   `json:"success"`
	SignedData string `json:"signedData"`
}

type loginRequest struct {
	Signature  string `json:"signature"`
	SignedData string `json:"signedData"`
}

// Authenticate runs prepare-signin, wallet-sign and login in order.
// The address offered to the venue is always the checksummed address
// derived from the wallet key.
func (a *Authenticator) Authenticate(ctx context.Context, wallet *signer.Wallet, identity *signer.Identity) (*Result, error) {
	if wallet == nil {
		return nil, apperrors.NewStage(apperrors.ErrSigningFailed, "sign", "wallet private key not configured", nil)
	}
	address := wallet.Address().Hex()

	logger.Info("starting sign-in", "address", address, "request_id", identity.RequestID())

	signedData, err := a.prepareSignIn(ctx, address, identity.RequestID())
	if err != nil {
		return nil, err
	}

	message, err := challengeMessage(signedData)
	if err != nil {
		return nil, apperrors.NewStage(apperrors.ErrAuthFailed, "prepare", "malformed signed data from venue", err)
	}

	signature, err := wallet.SignPersonal(message)
	if err != nil {
		return nil, apperrors.NewStage(apperrors.ErrSigningFailed, "sign", "could not sign challenge message", err)
	}

	result, err := a.login(ctx, signature, signedData)
	if err != nil {
		return nil, err
	}

	logger.Info("sign-in complete", "address", result.Address)
	return result, nil
}

func (a *Authenticator) prepareSignIn(ctx context.Context, address, requestID string) (string, error) {
	body, _ := json.Marshal(prepareRequest{Address: address, RequestID: requestID})
	url := fmt.Sprintf("%s/v1/offchain/prepare-signin?chain=%s", a.authURL, a.chain)

	data, err := a.postJSON(ctx, url, body)
	if err != nil {
		return "", apperrors.NewStage(apperrors.ErrAuthFailed, "prepare", "prepare sign-in failed", err)
	}

	var resp prepareResponse
	if err := json.Unmarshal(data, &resp); err != nil {
		return "", apperrors.NewStage(apperrors.ErrAuthFailed, "prepare", "malformed prepare sign-in response", err)
	}
	if !resp.Success {
		return "", apperrors.NewStage(apperrors.ErrAuthFailed, "prepare", "venue rejected sign-in preparation", nil)
	}
	return resp.SignedData, nil
}

func (a *Authenticator) login(ctx context.Context, signature, signedData string) (*Result, error) {
	body, _ := json.Marshal(loginRequest{Signature: signature, SignedData: signedData})
	url := fmt.Sprintf("%s/v1/offchain/login?chain=%s", a.authURL, a.chain)

	data, err := a.postJSON(ctx, url, body)
	if err != nil {
		return nil, apperrors.NewStage(apperrors.ErrAuthFailed, "login", "login failed", err)
	}

	var result Result
	if err := json.Unmarshal(data, &result); err != nil {
		return nil, apperrors.NewStage(apperrors.ErrAuthFailed, "login", "malformed login response", err)
	}
	if result.Token == "" {
		return nil, apperrors.NewStage(apperrors.ErrAuthFailed, "login", "login response missing token", nil)
	}
	return &result, nil
}

func (a *Authenticator) postJSON(ctx context.Context, url string, body []byte) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := a.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("status %d: %s", resp.StatusCode, strings.TrimSpace(string(data)))
	}
	return data, nil
}

// challengeMessage extracts the embedded challenge from the signed bundle:
// a three-part compact token whose middle segment is base64url JSON holding
// a "message" field.
func challengeMessage(signedData string) (string, error) {
	parts := strings.Split(signedData, ".")
	if len(parts) != 3 {
		return "", fmt.Errorf("expected 3 token segments, got %d", len(parts))
	}
	payload, err := base64.RawURLEncoding.DecodeString(strings.TrimRight(parts[1], "="))
	if err != nil {
		return "", fmt.Errorf("decode token payload: %w", err)
	}
	var claims struct {
		Message string `json:"message"`
	}
	if err := json.Unmarshal(payload, &claims); err != nil {
		return "", fmt.Errorf("parse token payload: %w", err)
	}
	if claims.Message == "" {
		return "", fmt.Errorf("token payload missing message")
	}
	return claims.Message, nil
}
