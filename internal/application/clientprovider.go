package application

import (
	"sync"

	"github.com/arjunmk/dhanarjan/internal/domain/port/driven"
)

// SheetClientProvider enables runtime hot-swap of the sheet client.
// It holds a mutex-protected reference to the current driven.SheetClient,
// allowing credential updates to take effect without restarting the
// application.
type SheetClientProvider struct {
	mu     sync.RWMutex
	client driven.SheetClient
}

// NewSheetClientProvider creates a new provider with the given initial client.
// client may be nil if no Google credentials are available at startup.
func NewSheetClientProvider(client driven.SheetClient) *SheetClientProvider {
	return &SheetClientProvider{client: client}
}

// Get returns the current sheet client. Callers should check for nil
// if the provider was created without initial credentials.
func (p *SheetClientProvider) Get() driven.SheetClient {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.client
}

// Replace swaps the current client with a new one. This is used when
// credentials are updated through the API. The next caller of Get()
// receives the new client.
func (p *SheetClientProvider) Replace(client driven.SheetClient) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.client = client
}

// HasClient returns true if a non-nil client is currently held.
func (p *SheetClientProvider) HasClient() bool {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.client != nil
}
