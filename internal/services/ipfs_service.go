// internal/services/ipfs_service.go
package services

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/artdrm/artdrm-backend/internal/config"
	"github.com/artdrm/artdrm-backend/internal/utils"
)

// Pinner stores content on IPFS and returns an ipfs:// URI.
type Pinner interface {
	Name() string
	PinBytes(ctx context.Context, data []byte, filename string) (string, error)
}

// PinService walks the configured providers in order, retrying each per
// the pin policy before falling through to the next.
type PinService struct {
	pinners []Pinner
	policy  utils.RetryPolicy
}

func NewPinService(cfg config.IPFSConfig) *PinService {
	svc := &PinService{policy: utils.PinRetryPolicy}

	if cfg.PinataAPIKey != "" && cfg.PinataSecretAPIKey != "" {
		svc.pinners = append(svc.pinners, newPinataPinner(cfg.PinataAPIKey, cfg.PinataSecretAPIKey))
	}
	if cfg.NFTStorageAPIKey != "" {
		svc.pinners = append(svc.pinners, newTokenPinner("nft.storage", "https://api.nft.storage/upload", cfg.NFTStorageAPIKey))
	}
	if cfg.Web3StorageAPIKey != "" {
		svc.pinners = append(svc.pinners, newTokenPinner("web3.storage", "https://api.web3.storage/upload", cfg.Web3StorageAPIKey))
	}

	// With no providers configured content is addressed locally so demo
	// flows still produce stable URIs.
	if len(svc.pinners) == 0 {
		svc.pinners = append(svc.pinners, localPinner{})
	}

	return svc
}

// NewPinServiceFrom builds a chain over explicit pinners, used by tests.
func NewPinServiceFrom(policy utils.RetryPolicy, pinners ...Pinner) *PinService {
	return &PinService{pinners: pinners, policy: policy}
}

// PinBytes pins raw content, returning the first provider's URI.
func (s *PinService) PinBytes(ctx context.Context, data []byte, filename string) (string, error) {
	var lastErr error

	for _, pinner := range s.pinners {
		var uri string
		err := utils.Retry(ctx, s.policy, func() error {
			var pinErr error
			uri, pinErr = pinner.PinBytes(ctx, data, filename)
			return pinErr
		})
		if err == nil {
			return uri, nil
		}

		logrus.WithError(err).WithField("provider", pinner.Name()).
			Warn("Pinning provider failed, trying next")
		lastErr = err
	}

	return "", fmt.Errorf("all pinning providers failed: %w", lastErr)
}

// PinJSON marshals v and pins it as a JSON document.
func (s *PinService) PinJSON(ctx context.Context, v interface{}, name string) (string, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return "", fmt.Errorf("marshal %s: %w", name, err)
	}
	return s.PinBytes(ctx, data, name)
}

// pinataPinner uses Pinata's pinFileToIPFS endpoint with key/secret
// header auth.
type pinataPinner struct {
	apiKey    string
	apiSecret string
	baseURL   string
	client    *http.Client
}

func newPinataPinner(apiKey, apiSecret string) *pinataPinner {
	return &pinataPinner{
		apiKey:    apiKey,
		apiSecret: apiSecret,
		baseURL:   "https://api.pinata.cloud/pinning/pinFileToIPFS",
		client:    &http.Client{Timeout: 60 * time.Second},
	}
}

func (p *pinataPinner) Name() string { return "pinata" }

func (p *pinataPinner) PinBytes(ctx context.Context, data []byte, filename string) (string, error) {
	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)

	part, err := writer.CreateFormFile("file", filename)
	if err != nil {
		return "", err
	}
	if _, err := part.Write(data); err != nil {
		return "", err
	}
	if err := writer.Close(); err != nil {
		return "", err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.baseURL, &buf)
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())
	req.Header.Set("pinata_api_key", p.apiKey)
	req.Header.Set("pinata_secret_api_key", p.apiSecret)

	resp, err := p.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("pinata: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return "", fmt.Errorf("pinata: status %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}

	var out struct {
		IpfsHash string `json:"IpfsHash"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", fmt.Errorf("pinata: decode: %w", err)
	}
	if out.IpfsHash == "" {
		return "", fmt.Errorf("pinata: empty hash in response")
	}

	return "ipfs://" + out.IpfsHash, nil
}

// tokenPinner covers NFT.Storage and Web3.Storage, which share a bearer
// token upload API shape.
type tokenPinner struct {
	name    string
	baseURL string
	token   string
	client  *http.Client
}

func newTokenPinner(name, baseURL, token string) *tokenPinner {
	return &tokenPinner{
		name:    name,
		baseURL: baseURL,
		token:   token,
		client:  &http.Client{Timeout: 60 * time.Second},
	}
}

func (p *tokenPinner) Name() string { return p.name }

func (p *tokenPinner) PinBytes(ctx context.Context, data []byte, _ string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.baseURL, bytes.NewReader(data))
	if err != nil {
		return "", err
	}
	req.Header.Set("Authorization", "Bearer "+p.token)
	req.Header.Set("Content-Type", "application/octet-stream")

	resp, err := p.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("%s: %w", p.name, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return "", fmt.Errorf("%s: status %d: %s", p.name, resp.StatusCode, strings.TrimSpace(string(body)))
	}

	var out struct {
		Ok    bool `json:"ok"`
		Value struct {
			Cid string `json:"cid"`
		} `json:"value"`
		Cid string `json:"cid"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", fmt.Errorf("%s: decode: %w", p.name, err)
	}

	cid := out.Value.Cid
	if cid == "" {
		cid = out.Cid
	}
	if cid == "" {
		return "", fmt.Errorf("%s: empty cid in response", p.name)
	}

	return "ipfs://" + cid, nil
}

// localPinner content-addresses by sha256 without any network call.
type localPinner struct{}

func (localPinner) Name() string { return "local" }

func (localPinner) PinBytes(_ context.Context, data []byte, _ string) (string, error) {
	return "ipfs://local-" + utils.HashBytes(data)[:46], nil
}
