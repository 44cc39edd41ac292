package keys

import (
	"context"
	"fmt"
	"sync"

	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/secretsmanager"
)

// SecretsClient is the subset of the Secrets Manager API the provider needs.
type SecretsClient interface {
	GetSecretValue(ctx context.Context, params *secretsmanager.GetSecretValueInput, optFns ...func(*secretsmanager.Options)) (*secretsmanager.GetSecretValueOutput, error)
}

// SecretsManager loads the key from AWS Secrets Manager by name or ARN.
// The secret holds the key as a hex/base64 string or as 32 binary bytes.
type SecretsManager struct {
	secretID string
	region   string

	once      sync.Once
	client    SecretsClient
	clientErr error
}

// NewSecretsManager creates a provider that builds its client from the
// default AWS credential chain on first use.
func NewSecretsManager(secretID, region string) *SecretsManager {
	return &SecretsManager{secretID: secretID, region: region}
}

// NewSecretsManagerWithClient creates a provider around an existing client.
func NewSecretsManagerWithClient(secretID string, client SecretsClient) *SecretsManager {
	sm := &SecretsManager{secretID: secretID, client: client}
	sm.once.Do(func() {})
	return sm
}

// CurrentKey implements Provider. Nothing is cached; every call fetches the
// current secret version.
func (s *SecretsManager) CurrentKey(ctx context.Context) ([]byte, error) {
	client, err := s.getClient(ctx)
	if err != nil {
		return nil, err
	}

	out, err := client.GetSecretValue(ctx, &secretsmanager.GetSecretValueInput{SecretId: &s.secretID})
	if err != nil {
		return nil, fmt.Errorf("get secret value: %w", err)
	}

	switch {
	case out.SecretString != nil:
		return DecodeKey(*out.SecretString)
	case len(out.SecretBinary) == KeySize:
		return append([]byte(nil), out.SecretBinary...), nil
	case out.SecretBinary != nil:
		return DecodeKey(string(out.SecretBinary))
	default:
		return nil, fmt.Errorf("%w: secret %s has no payload", ErrKeyNotSet, s.secretID)
	}
}

func (s *SecretsManager) getClient(ctx context.Context) (SecretsClient, error) {
	s.once.Do(func() {
		var opts []func(*awsconfig.LoadOptions) error
		if s.region != "" {
			opts = append(opts, awsconfig.WithRegion(s.region))
		}
		cfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
		if err != nil {
			s.clientErr = fmt.Errorf("aws config: %w", err)
			return
		}
		s.client = secretsmanager.NewFromConfig(cfg)
	})
	return s.client, s.clientErr
}
