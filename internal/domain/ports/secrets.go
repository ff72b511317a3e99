package ports

import "context"

// Secret is a value read from a secret backend
type Secret struct {
	Value   string
	Version string
}

// SecretStore reads secrets such as Stripe API keys and webhook signing secrets.
// Path format depends on the backend:
//   - local: file path relative to the base directory
//   - aws:   secret name or ARN, optionally "#field" to pick a JSON field
//   - vault: path under the KV mount, optionally "#field"
//   - gcp:   secret name, resolved to its latest version
type SecretStore interface {
	GetSecret(ctx context.Context, path string) (*Secret, error)
}
