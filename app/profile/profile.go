package profile

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

type Kind string

const (
	KindSMTP     Kind = "smtp"
	KindSES      Kind = "ses"
	KindPostmark Kind = "postmark"
	KindResend   Kind = "resend"
	KindNoop     Kind = "noop"
)

const (
	AuthPlain = "plain"
	AuthLogin = "login"
	AuthNone  = "none"
)

var (
	ErrEmptyRegistry    = errors.New("at least one transport profile is required")
	ErrDuplicateProfile = errors.New("duplicate transport profile name")
	ErrUnnamedProfile   = errors.New("transport profile name is required")
)

// Pool holds connection pooling limits for SMTP profiles.
type Pool struct {
	MaxConnections int `yaml:"max_connections"`
	MaxMessages    int `yaml:"max_messages"`
}

// Profile is one way of reaching the mail provider.
type Profile struct {
	Name               string `yaml:"name"`
	Kind               Kind   `yaml:"kind"`
	Service            string `yaml:"service"`
	Host               string `yaml:"host"`
	Port               int    `yaml:"port"`
	Secure             bool   `yaml:"secure"`
	Auth               string `yaml:"auth"`
	Username           string `yaml:"username"`
	Password           string `yaml:"password"`
	InsecureSkipVerify bool   `yaml:"insecure_skip_verify"`
	Pool               Pool   `yaml:"pool"`

	Region          string `yaml:"region"`
	AccessKeyID     string `yaml:"access_key_id"`
	SecretAccessKey string `yaml:"secret_access_key"`

	// Token is the Postmark server token or the Resend API key.
	Token        string `yaml:"token"`
	AccountToken string `yaml:"account_token"`
}

// Address returns host:port for SMTP profiles.
func (p Profile) Address() string {
	return p.Host + ":" + strconv.Itoa(p.Port)
}

// AuthMode returns the normalized authentication mode, defaulting to plain.
func (p Profile) AuthMode() string {
	mode := strings.ToLower(strings.TrimSpace(p.Auth))
	if mode == "" {
		return AuthPlain
	}
	return mode
}

// String describes the profile without credentials.
func (p Profile) String() string {
	switch p.Kind {
	case KindSMTP, "":
		mode := "starttls"
		if p.Secure {
			mode = "tls"
		}
		if p.InsecureSkipVerify {
			mode += "-relaxed"
		}
		return fmt.Sprintf("%s (smtp %s %s)", p.Name, p.Address(), mode)
	case KindSES:
		return fmt.Sprintf("%s (ses %s)", p.Name, p.Region)
	default:
		return fmt.Sprintf("%s (%s)", p.Name, p.Kind)
	}
}

type wellKnown struct {
	host   string
	port   int
	secure bool
}

var wellKnownServices = map[string]wellKnown{
	"gmail":     {host: "smtp.gmail.com", port: 465, secure: true},
	"outlook":   {host: "smtp-mail.outlook.com", port: 587},
	"office365": {host: "smtp.office365.com", port: 587},
	"yahoo":     {host: "smtp.mail.yahoo.com", port: 465, secure: true},
	"zoho":      {host: "smtp.zoho.com", port: 465, secure: true},
	"sendgrid":  {host: "smtp.sendgrid.net", port: 587},
	"mailgun":   {host: "smtp.mailgun.org", port: 587},
}

// resolveService fills host/port/secure from a well-known service name.
func (p *Profile) resolveService() error {
	if p.Service == "" {
		return nil
	}
	svc, ok := wellKnownServices[strings.ToLower(p.Service)]
	if !ok {
		return fmt.Errorf("profile %s: unknown service %q", p.Name, p.Service)
	}
	if p.Host == "" {
		p.Host = svc.host
	}
	if p.Port == 0 {
		p.Port = svc.port
		p.Secure = svc.secure
	}
	return nil
}
