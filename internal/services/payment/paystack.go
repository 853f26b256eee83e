package payment

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha512"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
)

const defaultPaystackURL = "https://api.paystack.co"

// PaystackSignatureHeader carries the hex HMAC-SHA512 of the raw webhook body.
const PaystackSignatureHeader = "x-paystack-signature"

type PaystackConfig struct {
	SecretKey string
	BaseURL   string
	Timeout   time.Duration
}

type Paystack struct {
	secretKey  string
	baseURL    string
	httpClient *http.Client
}

func NewPaystack(cfg PaystackConfig) *Paystack {
	if cfg.BaseURL == "" {
		cfg.BaseURL = defaultPaystackURL
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 15 * time.Second
	}
	return &Paystack{
		secretKey:  cfg.SecretKey,
		baseURL:    strings.TrimRight(cfg.BaseURL, "/"),
		httpClient: &http.Client{Timeout: cfg.Timeout},
	}
}

func (p *Paystack) Name() string { return GatewayPaystack }

type paystackEnvelope struct {
	Status  bool            `json:"status"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

type paystackInitData struct {
	AuthorizationURL string `json:"authorization_url"`
	AccessCode       string `json:"access_code"`
	Reference        string `json:"reference"`
}

type paystackTxData struct {
	ID        int64           `json:"id"`
	Status    string          `json:"status"`
	Reference string          `json:"reference"`
	Amount    int64           `json:"amount"`
	Currency  string          `json:"currency"`
	Channel   string          `json:"channel"`
	PaidAt    string          `json:"paid_at"`
	Metadata  json.RawMessage `json:"metadata"`
}

func (p *Paystack) Initialize(ctx context.Context, req InitializeRequest) (*InitializeResult, error) {
	if p.secretKey == "" {
		return nil, ErrNotConfigured
	}

	body := map[string]interface{}{
		"email":     req.Email,
		"amount":    req.Amount,
		"reference": req.Reference,
	}
	if req.Currency != "" {
		body["currency"] = strings.ToUpper(req.Currency)
	}
	if req.CallbackURL != "" {
		body["callback_url"] = req.CallbackURL
	}
	if len(req.Metadata) > 0 {
		body["metadata"] = req.Metadata
	}

	var data paystackInitData
	if err := p.do(ctx, http.MethodPost, "/transaction/initialize", body, &data); err != nil {
		return nil, err
	}
	if data.AuthorizationURL == "" {
		return nil, fmt.Errorf("%w: paystack returned no authorization url", ErrUpstream)
	}
	if data.Reference == "" {
		data.Reference = req.Reference
	}
	return &InitializeResult{
		AuthorizationURL: data.AuthorizationURL,
		AccessCode:       data.AccessCode,
		Reference:        data.Reference,
	}, nil
}

func (p *Paystack) Verify(ctx context.Context, reference string) (*VerifyResult, error) {
	if p.secretKey == "" {
		return nil, ErrNotConfigured
	}

	var data paystackTxData
	if err := p.do(ctx, http.MethodGet, "/transaction/verify/"+url.PathEscape(reference), nil, &data); err != nil {
		return nil, err
	}

	res := &VerifyResult{
		Status:    normalizePaystackStatus(data.Status),
		Amount:    data.Amount,
		Currency:  data.Currency,
		Reference: data.Reference,
		Channel:   data.Channel,
		Metadata:  decodeMetadata(data.Metadata),
	}
	if data.ID != 0 {
		res.GatewayID = strconv.FormatInt(data.ID, 10)
	}
	if data.PaidAt != "" {
		if t, err := time.Parse(time.RFC3339, data.PaidAt); err == nil {
			res.PaidAt = &t
		}
	}
	return res, nil
}

func (p *Paystack) ParseWebhook(payload []byte, signature string) (*WebhookEvent, error) {
	if p.secretKey == "" {
		return nil, ErrNotConfigured
	}
	if !p.validSignature(payload, signature) {
		return nil, ErrInvalidSignature
	}

	var body struct {
		Event string `json:"event"`
		Data  struct {
			Reference string `json:"reference"`
			Amount    int64  `json:"amount"`
			Currency  string `json:"currency"`
		} `json:"data"`
	}
	if err := json.Unmarshal(payload, &body); err != nil {
		return nil, fmt.Errorf("%w: malformed webhook body: %v", ErrUpstream, err)
	}
	return &WebhookEvent{
		Event:     body.Event,
		Reference: body.Data.Reference,
		Amount:    body.Data.Amount,
		Currency:  body.Data.Currency,
	}, nil
}

// Sign returns the signature Paystack sends for payload.
func (p *Paystack) Sign(payload []byte) string {
	mac := hmac.New(sha512.New, []byte(p.secretKey))
	mac.Write(payload)
	return hex.EncodeToString(mac.Sum(nil))
}

func (p *Paystack) validSignature(payload []byte, signature string) bool {
	got, err := hex.DecodeString(strings.TrimSpace(signature))
	if err != nil || len(got) == 0 {
		return false
	}
	mac := hmac.New(sha512.New, []byte(p.secretKey))
	mac.Write(payload)
	return hmac.Equal(got, mac.Sum(nil))
}

func (p *Paystack) do(ctx context.Context, method, path string, in, out interface{}) error {
	var reader io.Reader
	if in != nil {
		buf, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("failed to encode request: %w", err)
		}
		reader = bytes.NewReader(buf)
	}

	req, err := http.NewRequestWithContext(ctx, method, p.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrUpstream, err)
	}
	req.Header.Set("Authorization", "Bearer "+p.secretKey)
	req.Header.Set("Accept", "application/json")
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrUpstream, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return fmt.Errorf("%w: reading response: %v", ErrUpstream, err)
	}

	var env paystackEnvelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return fmt.Errorf("%w: status %d: undecodable body", ErrUpstream, resp.StatusCode)
	}
	if resp.StatusCode >= http.StatusBadRequest || !env.Status {
		return fmt.Errorf("%w: status %d: %s", ErrUpstream, resp.StatusCode, env.Message)
	}
	if out != nil && len(env.Data) > 0 {
		if err := json.Unmarshal(env.Data, out); err != nil {
			return fmt.Errorf("%w: decoding data: %v", ErrUpstream, err)
		}
	}
	return nil
}

func normalizePaystackStatus(s string) string {
	switch strings.ToLower(s) {
	case "success":
		return StatusSuccess
	case "failed", "reversed":
		return StatusFailed
	case "abandoned":
		return StatusAbandoned
	default:
		return StatusPending
	}
}

// decodeMetadata flattens provider metadata to strings. Paystack sends an
// empty string when no metadata was attached.
func decodeMetadata(raw json.RawMessage) map[string]string {
	if len(raw) == 0 {
		return nil
	}
	var obj map[string]interface{}
	if err := json.Unmarshal(raw, &obj); err != nil {
		return nil
	}
	out := make(map[string]string, len(obj))
	for k, v := range obj {
		switch tv := v.(type) {
		case string:
			out[k] = tv
		case nil:
		default:
			out[k] = fmt.Sprint(tv)
		}
	}
	return out
}
