package authclient

import (
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/goliatone/go-authclient/core"
)

// SessionExpiredPack groups handlers a downstream module wants notified when
// the session is torn down.
type SessionExpiredPack struct {
	Name     string
	Handlers []SessionExpiredHandler
}

type CommandQueryBundleFactory func(service CommandQueryService) (any, error)

type ExtensionHooks struct {
	mu sync.RWMutex

	expiredPacks map[string]SessionExpiredPack
	bundles      map[string]CommandQueryBundleFactory
}

func NewExtensionHooks() *ExtensionHooks {
	return &ExtensionHooks{
		expiredPacks: map[string]SessionExpiredPack{},
		bundles:      map[string]CommandQueryBundleFactory{},
	}
}

func (h *ExtensionHooks) RegisterSessionExpiredPack(pack SessionExpiredPack) error {
	if h == nil {
		return fmt.Errorf("authclient: extension hooks are nil")
	}
	name := strings.TrimSpace(pack.Name)
	if name == "" {
		return fmt.Errorf("authclient: session expired pack name is required")
	}
	if len(pack.Handlers) == 0 {
		return fmt.Errorf("authclient: session expired pack %q has no handlers", name)
	}
	for _, handler := range pack.Handlers {
		if handler == nil {
			return fmt.Errorf("authclient: session expired pack %q contains nil handler", name)
		}
	}

	normalized := SessionExpiredPack{
		Name:     name,
		Handlers: append([]SessionExpiredHandler(nil), pack.Handlers...),
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	if _, exists := h.expiredPacks[name]; exists {
		return fmt.Errorf("authclient: session expired pack %q already registered", name)
	}
	h.expiredPacks[name] = normalized
	return nil
}

func (h *ExtensionHooks) RegisterCommandQueryBundle(
	name string,
	factory CommandQueryBundleFactory,
) error {
	if h == nil {
		return fmt.Errorf("authclient: extension hooks are nil")
	}
	name = strings.TrimSpace(name)
	if name == "" {
		return fmt.Errorf("authclient: command/query bundle name is required")
	}
	if factory == nil {
		return fmt.Errorf("authclient: command/query bundle %q factory is required", name)
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	if _, exists := h.bundles[name]; exists {
		return fmt.Errorf("authclient: command/query bundle %q already registered", name)
	}
	h.bundles[name] = factory
	return nil
}

// Options returns one WithSessionExpiredHandler option per registered handler,
// ordered by pack name.
func (h *ExtensionHooks) Options() []Option {
	if h == nil {
		return nil
	}
	var out []Option
	for _, pack := range h.SessionExpiredPacks() {
		for _, handler := range pack.Handlers {
			out = append(out, core.WithSessionExpiredHandler(handler))
		}
	}
	return out
}

func (h *ExtensionHooks) BuildCommandQueryBundles(
	service CommandQueryService,
) (map[string]any, error) {
	if h == nil {
		return map[string]any{}, nil
	}
	if service == nil {
		return nil, fmt.Errorf("authclient: command/query service is required")
	}

	h.mu.RLock()
	names := make([]string, 0, len(h.bundles))
	for name := range h.bundles {
		names = append(names, name)
	}
	sort.Strings(names)
	factories := make(map[string]CommandQueryBundleFactory, len(h.bundles))
	for name, factory := range h.bundles {
		factories[name] = factory
	}
	h.mu.RUnlock()

	result := make(map[string]any, len(names))
	for _, name := range names {
		bundle, err := factories[name](service)
		if err != nil {
			return nil, err
		}
		result[name] = bundle
	}
	return result, nil
}

func (h *ExtensionHooks) SessionExpiredPacks() []SessionExpiredPack {
	if h == nil {
		return nil
	}
	h.mu.RLock()
	defer h.mu.RUnlock()

	names := make([]string, 0, len(h.expiredPacks))
	for name := range h.expiredPacks {
		names = append(names, name)
	}
	sort.Strings(names)

	out := make([]SessionExpiredPack, 0, len(names))
	for _, name := range names {
		pack := h.expiredPacks[name]
		out = append(out, SessionExpiredPack{
			Name:     pack.Name,
			Handlers: append([]SessionExpiredHandler(nil), pack.Handlers...),
		})
	}
	return out
}

func (h *ExtensionHooks) BundleNames() []string {
	if h == nil {
		return nil
	}
	h.mu.RLock()
	defer h.mu.RUnlock()
	names := make([]string, 0, len(h.bundles))
	for name := range h.bundles {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
