package shopify

import (
	"fmt"
	"sync"

	goshopify "github.com/bold-commerce/go-shopify/v4"

	"shopify-embed-auth/internal/domain"
)

// ClientPool caches one Admin API client per shop and token pair.
// goshopify clients are safe for concurrent use, so requests against the
// same session share an instance instead of rebuilding it per call.
type ClientPool struct {
	app        goshopify.App
	apiVersion string

	mu      sync.Mutex
	clients map[string]*goshopify.Client
}

// NewClientPool creates a client pool for the app credentials. apiVersion
// may be empty to use the library default.
func NewClientPool(apiKey, apiSecret, apiVersion string) *ClientPool {
	return &ClientPool{
		app: goshopify.App{
			ApiKey:    apiKey,
			ApiSecret: apiSecret,
		},
		apiVersion: apiVersion,
		clients:    make(map[string]*goshopify.Client),
	}
}

// ClientFor returns the pooled client for the session, creating it on
// first use
func (p *ClientPool) ClientFor(session *domain.Session) (*goshopify.Client, error) {
	if session == nil || session.AccessToken == "" {
		return nil, fmt.Errorf("session carries no access token")
	}

	key := poolKey(session)

	p.mu.Lock()
	defer p.mu.Unlock()

	if client, ok := p.clients[key]; ok {
		return client, nil
	}

	var opts []goshopify.Option
	if p.apiVersion != "" {
		opts = append(opts, goshopify.WithVersion(p.apiVersion))
	}
	client, err := goshopify.NewClient(p.app, session.Shop, session.AccessToken, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create client: %w", err)
	}
	p.clients[key] = client
	return client, nil
}

// Evict drops the pooled client for a session whose token was revoked
func (p *ClientPool) Evict(session *domain.Session) {
	if session == nil {
		return
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	delete(p.clients, poolKey(session))
}

func poolKey(session *domain.Session) string {
	return session.Shop + ":" + session.AccessToken
}
