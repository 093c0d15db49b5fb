package vault

import (
	"fmt"
	"os"
	"strings"

	"github.com/go-resty/resty/v2"
	"github.com/pkg/errors"
)

// ErrSecretNotFound is returned by GetKV for keys absent from the secret.
var ErrSecretNotFound = errors.New("secret not found")

const defaultServiceAccountTokenPath = "/var/run/secrets/kubernetes.io/serviceaccount/token"

// VaultClient reads secrets from a KV v2 mount after logging in with the
// pod's Kubernetes service account.
type VaultClient struct {
	addr         string
	kvSecretPath string
	role         string
	token        string
	saTokenPath  string
	http         *resty.Client

	// secrets holds the KV entry after the first read; the entry is fetched once.
	secrets map[string]interface{}
}

type Option func(*VaultClient)

// WithServiceAccountTokenPath overrides where the Kubernetes JWT is read from.
func WithServiceAccountTokenPath(path string) Option {
	return func(vc *VaultClient) {
		vc.saTokenPath = path
	}
}

// WithToken skips the Kubernetes login and uses a Vault token directly.
func WithToken(token string) Option {
	return func(vc *VaultClient) {
		vc.token = token
	}
}

type loginResponse struct {
	Errors []string `json:"errors"`
	Auth   *struct {
		ClientToken string `json:"client_token"`
	} `json:"auth"`
}

type kvResponse struct {
	Errors []string `json:"errors"`
	Data   *struct {
		Data map[string]interface{} `json:"data"`
	} `json:"data"`
}

// New creates a Vault client and logs in unless a token was given.
func New(addr, kvSecretPath, role string, opts ...Option) (*VaultClient, error) {
	vc := &VaultClient{
		addr:         strings.TrimRight(addr, "/"),
		role:         role,
		kvSecretPath: strings.Trim(kvSecretPath, "/"),
		saTokenPath:  defaultServiceAccountTokenPath,
	}
	for _, opt := range opts {
		opt(vc)
	}
	vc.http = resty.New().SetBaseURL(vc.addr)

	if vc.token == "" {
		token, err := vc.login()
		if err != nil {
			return nil, err
		}
		vc.token = token
	}
	return vc, nil
}

// GetKubernetesToken reads the Kubernetes service account token
func (vc *VaultClient) GetKubernetesToken() (string, error) {
	token, err := os.ReadFile(vc.saTokenPath)
	if err != nil {
		return "", errors.Wrap(err, "failed to read service account token")
	}
	return strings.TrimSpace(string(token)), nil
}

func (vc *VaultClient) login() (string, error) {
	k8sToken, err := vc.GetKubernetesToken()
	if err != nil {
		return "", err
	}

	var result loginResponse
	resp, err := vc.http.R().
		SetHeader("Content-Type", "application/json").
		SetBody(map[string]string{
			"jwt":  k8sToken,
			"role": vc.role,
		}).
		SetResult(&result).
		SetError(&result).
		Post("/v1/auth/kubernetes/login")
	if err != nil {
		return "", errors.Wrap(err, "vault login request failed")
	}

	if resp.StatusCode() != 200 {
		return "", fmt.Errorf("vault authentication failed with status %d: %s", resp.StatusCode(), strings.Join(result.Errors, "; "))
	}
	if result.Auth == nil || result.Auth.ClientToken == "" {
		return "", errors.New("vault returned empty client_token")
	}

	return result.Auth.ClientToken, nil
}

// GetKV retrieves one key of the configured KV v2 secret.
func (vc *VaultClient) GetKV(secretKey string) (string, error) {
	if vc.secrets == nil {
		secrets, err := vc.readKV()
		if err != nil {
			return "", err
		}
		vc.secrets = secrets
	}

	secretInterface, exists := vc.secrets[secretKey]
	if !exists {
		return "", errors.Wrapf(ErrSecretNotFound, "secret key '%s'", secretKey)
	}
	secret, ok := secretInterface.(string)
	if !ok {
		return "", fmt.Errorf("secret value for key '%s' is not a string", secretKey)
	}

	return secret, nil
}

func (vc *VaultClient) readKV() (map[string]interface{}, error) {
	var result kvResponse
	resp, err := vc.http.R().
		SetHeader("X-Vault-Token", vc.token).
		SetResult(&result).
		SetError(&result).
		Get("/v1/" + vc.kvSecretPath)
	if err != nil {
		return nil, errors.Wrap(err, "vault KV request failed")
	}

	if resp.StatusCode() != 200 {
		return nil, fmt.Errorf("vault KV get failed with status %d: %s", resp.StatusCode(), strings.Join(result.Errors, "; "))
	}
	if result.Data == nil || result.Data.Data == nil {
		return nil, errors.New("vault response missing nested 'data' field")
	}

	return result.Data.Data, nil
}
