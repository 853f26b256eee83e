package payment

import (
	"fmt"
	"sort"
	"strings"
	"sync"

	"estatehub/internal/config"

	"go.uber.org/zap"
)

// Registry holds the configured gateways keyed by name.
type Registry struct {
	mu          sync.RWMutex
	gateways    map[string]Gateway
	defaultName string
}

func NewRegistry(defaultName string, gateways ...Gateway) *Registry {
	r := &Registry{
		gateways:    make(map[string]Gateway, len(gateways)),
		defaultName: strings.ToLower(defaultName),
	}
	for _, g := range gateways {
		r.Register(g)
	}
	return r
}

// NewRegistryFromConfig registers every gateway whose credentials are set.
// Unconfigured gateways are still registered so callers get ErrNotConfigured
// instead of ErrUnknownGateway.
func NewRegistryFromConfig(cfg *config.Config, logger *zap.Logger) *Registry {
	paystack := NewPaystack(PaystackConfig{
		SecretKey: cfg.PaystackSecret,
		BaseURL:   cfg.PaystackBaseURL,
		Timeout:   cfg.PaymentTimeout,
	})
	stripeGw := NewStripe(StripeConfig{
		SecretKey:     cfg.StripeSecret,
		WebhookSecret: cfg.StripeWebhook,
		CancelURL:     strings.TrimRight(cfg.FrontendURL, "/") + "/credits?status=cancelled",
	})

	if cfg.PaystackSecret == "" && cfg.StripeSecret == "" && logger != nil {
		logger.Warn("no payment gateway credentials configured")
	}
	return NewRegistry(cfg.DefaultGateway, paystack, stripeGw)
}

func (r *Registry) Register(g Gateway) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.gateways[g.Name()] = g
}

// Get returns the named gateway, or the default one when name is empty.
func (r *Registry) Get(name string) (Gateway, error) {
	if name == "" {
		name = r.defaultName
	}
	r.mu.RLock()
	defer r.mu.RUnlock()

	g, ok := r.gateways[strings.ToLower(name)]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownGateway, name)
	}
	return g, nil
}

func (r *Registry) Default() string {
	return r.defaultName
}

func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.gateways))
	for name := range r.gateways {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
