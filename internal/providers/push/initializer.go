package push

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"
	"sync"

	firebase "firebase.google.com/go/v4"
	"firebase.google.com/go/v4/messaging"
	"google.golang.org/api/option"

	"github.com/tastelanc/backoffice/internal/config"
)

// InitResult reports what an Init call did.
type InitResult int

const (
	Failed InitResult = iota
	Initialized
	AlreadyInitialized
)

func (r InitResult) String() string {
	switch r {
	case Initialized:
		return "initialized"
	case AlreadyInitialized:
		return "already_initialized"
	default:
		return "failed"
	}
}

var ErrNotConfigured = errors.New("firebase credentials not configured")

type connectFunc func(ctx context.Context) (*messaging.Client, error)

// Initializer owns the firebase messaging client. A failed Init can be retried.
type Initializer struct {
	connect connectFunc

	mu     sync.Mutex
	client *messaging.Client
	ready  bool
}

func NewInitializer(cfg config.FirebaseConfig) *Initializer {
	return &Initializer{
		connect: func(ctx context.Context) (*messaging.Client, error) {
			opt, err := credentialsOption(cfg)
			if err != nil {
				return nil, err
			}
			app, err := firebase.NewApp(ctx, &firebase.Config{ProjectID: cfg.ProjectID}, opt)
			if err != nil {
				return nil, fmt.Errorf("init firebase app: %w", err)
			}
			return app.Messaging(ctx)
		},
	}
}

func (i *Initializer) Init(ctx context.Context) (InitResult, error) {
	i.mu.Lock()
	defer i.mu.Unlock()

	if i.ready {
		return AlreadyInitialized, nil
	}
	client, err := i.connect(ctx)
	if err != nil {
		return Failed, err
	}
	i.client = client
	i.ready = true
	return Initialized, nil
}

// Client returns the messaging client, initializing on first use.
func (i *Initializer) Client(ctx context.Context) (*messaging.Client, error) {
	if _, err := i.Init(ctx); err != nil {
		return nil, err
	}
	i.mu.Lock()
	defer i.mu.Unlock()
	return i.client, nil
}

func credentialsOption(cfg config.FirebaseConfig) (option.ClientOption, error) {
	if raw := strings.TrimSpace(cfg.CredentialsBase64); raw != "" {
		decoded, err := base64.StdEncoding.DecodeString(raw)
		if err != nil {
			return nil, fmt.Errorf("decode FIREBASE_CREDENTIALS_BASE64: %w", err)
		}
		return option.WithCredentialsJSON(decoded), nil
	}
	if path := strings.TrimSpace(cfg.CredentialsFile); path != "" {
		return option.WithCredentialsFile(path), nil
	}
	return nil, ErrNotConfigured
}
