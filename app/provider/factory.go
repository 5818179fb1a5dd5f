package provider

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	log "github.com/sirupsen/logrus"
	"github.com/vibast-solutions/ms-go-website/app/profile"
)

// FactoryOptions tune the handles built by the factory.
type FactoryOptions struct {
	Timeout    time.Duration
	HeloName   string
	Production bool

	// AWSConfigLoader overrides how SES profiles obtain their aws.Config.
	AWSConfigLoader func(ctx context.Context, p profile.Profile) (aws.Config, error)
}

// Factory turns profiles into live handles and caches one handle per profile.
type Factory struct {
	opts FactoryOptions

	mu      sync.Mutex
	handles map[string]EmailProvider
	closed  bool
}

// NewFactory constructs a handle factory.
func NewFactory(opts FactoryOptions) *Factory {
	if opts.AWSConfigLoader == nil {
		opts.AWSConfigLoader = loadAWSConfig
	}
	return &Factory{
		opts:    opts,
		handles: make(map[string]EmailProvider),
	}
}

// Build returns the cached handle for the profile or constructs one. Failures
// are returned as *ConstructionError and are not cached.
func (f *Factory) Build(ctx context.Context, p profile.Profile) (EmailProvider, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.closed {
		return nil, &ConstructionError{Profile: p.Name, Err: ErrClosed}
	}
	if h, ok := f.handles[p.Name]; ok {
		return h, nil
	}

	if err := Validate(p); err != nil {
		return nil, &ConstructionError{Profile: p.Name, Err: err}
	}

	h, err := f.construct(ctx, p)
	if err != nil {
		return nil, &ConstructionError{Profile: p.Name, Err: err}
	}

	f.handles[p.Name] = h
	log.WithFields(log.Fields{
		"transport": p.Name,
		"profile":   p.String(),
	}).Debug("transport handle created")
	return h, nil
}

// Close closes every cached handle. Later Build calls fail.
func (f *Factory) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.closed = true
	var errs []error
	for name, h := range f.handles {
		if err := h.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close %s: %w", name, err))
		}
		delete(f.handles, name)
	}
	return errors.Join(errs...)
}

func (f *Factory) construct(ctx context.Context, p profile.Profile) (EmailProvider, error) {
	switch p.Kind {
	case profile.KindSMTP:
		return NewSMTPProvider(p, f.opts.HeloName, f.opts.Timeout, f.opts.Production), nil
	case profile.KindSES:
		awsCfg, err := f.opts.AWSConfigLoader(ctx, p)
		if err != nil {
			return nil, err
		}
		return NewSESProvider(p.Name, awsCfg), nil
	case profile.KindPostmark:
		return NewPostmarkProvider(p.Name, p.Token, p.AccountToken), nil
	case profile.KindResend:
		return NewResendProvider(p.Name, p.Token), nil
	case profile.KindNoop:
		return NewNoopProvider(p.Name), nil
	}
	return nil, fmt.Errorf("%w: unsupported kind %q", ErrInvalidProfile, p.Kind)
}

func loadAWSConfig(ctx context.Context, p profile.Profile) (aws.Config, error) {
	opts := []func(*awsconfig.LoadOptions) error{awsconfig.WithRegion(p.Region)}
	if p.AccessKeyID != "" {
		opts = append(opts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(p.AccessKeyID, p.SecretAccessKey, ""),
		))
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return aws.Config{}, fmt.Errorf("load aws config: %w", err)
	}
	return awsCfg, nil
}

// Validate checks that a profile carries what its kind needs.
func Validate(p profile.Profile) error {
	switch p.Kind {
	case profile.KindSMTP:
		if strings.TrimSpace(p.Host) == "" {
			return fmt.Errorf("%w: smtp host is required", ErrInvalidProfile)
		}
		if p.Port < 1 || p.Port > 65535 {
			return fmt.Errorf("%w: smtp port %d out of range", ErrInvalidProfile, p.Port)
		}
		switch p.AuthMode() {
		case profile.AuthNone:
			return nil
		case profile.AuthPlain, profile.AuthLogin:
		default:
			return fmt.Errorf("%w: unsupported auth mode %q", ErrInvalidProfile, p.Auth)
		}
		if p.Username == "" || p.Password == "" {
			return fmt.Errorf("%w: smtp credentials are required", ErrInvalidProfile)
		}
	case profile.KindSES:
		if p.Region == "" {
			return fmt.Errorf("%w: ses region is required", ErrInvalidProfile)
		}
		if (p.AccessKeyID == "") != (p.SecretAccessKey == "") {
			return fmt.Errorf("%w: ses access key id and secret must be set together", ErrInvalidProfile)
		}
	case profile.KindPostmark:
		if p.Token == "" {
			return fmt.Errorf("%w: postmark server token is required", ErrInvalidProfile)
		}
	case profile.KindResend:
		if p.Token == "" {
			return fmt.Errorf("%w: resend api key is required", ErrInvalidProfile)
		}
	case profile.KindNoop:
	default:
		return fmt.Errorf("%w: unsupported kind %q", ErrInvalidProfile, p.Kind)
	}
	return nil
}
