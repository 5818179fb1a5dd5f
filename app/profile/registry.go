package profile

import (
	"fmt"
	"os"
	"strings"

	"github.com/vibast-solutions/ms-go-website/config"
	"gopkg.in/yaml.v3"
)

// implicitTLSPort is the SMTP submission port that expects TLS from the first byte.
const implicitTLSPort = 465

// Registry is the ordered, immutable list of transport profiles.
type Registry struct {
	profiles []Profile
}

// NewRegistry validates names and freezes the given order.
func NewRegistry(profiles ...Profile) (*Registry, error) {
	if len(profiles) == 0 {
		return nil, ErrEmptyRegistry
	}

	seen := make(map[string]struct{}, len(profiles))
	frozen := make([]Profile, 0, len(profiles))
	for _, p := range profiles {
		p.Name = strings.TrimSpace(p.Name)
		if p.Name == "" {
			return nil, ErrUnnamedProfile
		}
		if _, dup := seen[p.Name]; dup {
			return nil, fmt.Errorf("%w: %s", ErrDuplicateProfile, p.Name)
		}
		seen[p.Name] = struct{}{}

		if p.Kind == "" {
			p.Kind = KindSMTP
		}
		if err := p.resolveService(); err != nil {
			return nil, err
		}
		frozen = append(frozen, p)
	}

	return &Registry{profiles: frozen}, nil
}

// Profiles returns the profiles in priority order.
func (r *Registry) Profiles() []Profile {
	out := make([]Profile, len(r.profiles))
	copy(out, r.profiles)
	return out
}

func (r *Registry) Len() int {
	return len(r.profiles)
}

// Names returns the profile names in priority order.
func (r *Registry) Names() []string {
	names := make([]string, len(r.profiles))
	for i, p := range r.profiles {
		names[i] = p.Name
	}
	return names
}

type fileLayout struct {
	Transports []Profile `yaml:"transports"`
}

// LoadFile reads an ordered profile list from YAML. ${VAR} references are
// expanded from the environment before parsing so secrets stay out of the file.
func LoadFile(path string) (*Registry, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read transports file: %w", err)
	}
	return Parse([]byte(os.ExpandEnv(string(data))))
}

// Parse decodes an already expanded YAML document.
func Parse(data []byte) (*Registry, error) {
	var layout fileLayout
	if err := yaml.Unmarshal(data, &layout); err != nil {
		return nil, fmt.Errorf("parse transports file: %w", err)
	}
	return NewRegistry(layout.Transports...)
}

// FromConfig builds the default registry: implicit TLS, STARTTLS on the
// alternate port, the configured high-level providers, then the optional
// TLS-relaxed variant.
func FromConfig(cfg *config.Config) (*Registry, error) {
	if cfg.TransportsFile != "" {
		return LoadFile(cfg.TransportsFile)
	}
	if strings.EqualFold(cfg.EmailProvider, string(KindNoop)) {
		return NewRegistry(Profile{Name: "noop", Kind: KindNoop})
	}

	pool := Pool{}
	if cfg.IsProduction() {
		pool = Pool{MaxConnections: cfg.SMTPPoolMaxConnections, MaxMessages: cfg.SMTPPoolMaxMessages}
	}

	base := Profile{
		Kind:     KindSMTP,
		Host:     cfg.SMTPHost,
		Auth:     cfg.SMTPAuth,
		Username: cfg.SMTPUser,
		Password: cfg.SMTPPass,
		Pool:     pool,
	}

	var profiles []Profile
	if cfg.SMTPHost != "" {
		primary := base
		primary.Name = "smtp-implicit-tls"
		primary.Port = cfg.SMTPPort
		primary.Secure = cfg.SMTPSecure
		if !cfg.SMTPSecure {
			primary.Name = "smtp-starttls"
		}
		profiles = append(profiles, primary)

		if cfg.SMTPAltPort > 0 && cfg.SMTPAltPort != cfg.SMTPPort {
			alt := base
			alt.Port = cfg.SMTPAltPort
			alt.Secure = cfg.SMTPAltPort == implicitTLSPort
			alt.Name = "smtp-starttls"
			if alt.Secure {
				alt.Name = "smtp-implicit-tls"
			}
			if alt.Secure == primary.Secure {
				alt.Name += "-alt"
			}
			profiles = append(profiles, alt)
		}
	}

	if cfg.SMTPService != "" {
		svc := base
		svc.Name = "service-" + strings.ToLower(cfg.SMTPService)
		svc.Service = cfg.SMTPService
		svc.Host = ""
		profiles = append(profiles, svc)
	}
	if cfg.AWSRegion != "" && (cfg.SESAccessKeyID != "" || strings.EqualFold(cfg.EmailProvider, string(KindSES))) {
		profiles = append(profiles, Profile{
			Name:            "ses",
			Kind:            KindSES,
			Region:          cfg.AWSRegion,
			AccessKeyID:     cfg.SESAccessKeyID,
			SecretAccessKey: cfg.SESSecretAccessKey,
		})
	}
	if cfg.PostmarkServerToken != "" {
		profiles = append(profiles, Profile{
			Name:         "postmark",
			Kind:         KindPostmark,
			Token:        cfg.PostmarkServerToken,
			AccountToken: cfg.PostmarkAccountToken,
		})
	}
	if cfg.ResendAPIKey != "" {
		profiles = append(profiles, Profile{Name: "resend", Kind: KindResend, Token: cfg.ResendAPIKey})
	}

	if cfg.SMTPHost != "" && cfg.SMTPTLSRelaxedFallback {
		relaxed := base
		relaxed.Name = "smtp-tls-relaxed"
		relaxed.Port = cfg.SMTPPort
		if !cfg.SMTPSecure {
			relaxed.Port = implicitTLSPort
		}
		relaxed.Secure = true
		relaxed.InsecureSkipVerify = true
		profiles = append(profiles, relaxed)
	}

	return NewRegistry(profiles...)
}
