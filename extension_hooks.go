package shopagent

import (
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/daily-harvest/dh-shop-agent/core"
)

// StorePack is a named set of service options an extension contributes,
// typically store overrides such as a Redis-backed session store.
type StorePack struct {
	Name    string
	Options []core.Option
}

type CommandQueryBundleFactory func(service CommandQueryService) (any, error)

// ExtensionHooks collects host-registered store packs and command/query
// bundles so downstream applications can assemble the service from plugins.
type ExtensionHooks struct {
	mu sync.RWMutex

	storePacks map[string]StorePack
	bundles    map[string]CommandQueryBundleFactory
}

func NewExtensionHooks() *ExtensionHooks {
	return &ExtensionHooks{
		storePacks: map[string]StorePack{},
		bundles:    map[string]CommandQueryBundleFactory{},
	}
}

func (h *ExtensionHooks) RegisterStorePack(pack StorePack) error {
	if h == nil {
		return fmt.Errorf("shopagent: extension hooks are nil")
	}
	name := strings.TrimSpace(pack.Name)
	if name == "" {
		return fmt.Errorf("shopagent: store pack name is required")
	}
	if len(pack.Options) == 0 {
		return fmt.Errorf("shopagent: store pack %q has no options", name)
	}
	for _, opt := range pack.Options {
		if opt == nil {
			return fmt.Errorf("shopagent: store pack %q contains nil option", name)
		}
	}

	normalized := StorePack{
		Name:    name,
		Options: append([]core.Option(nil), pack.Options...),
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	if _, exists := h.storePacks[name]; exists {
		return fmt.Errorf("shopagent: store pack %q already registered", name)
	}
	h.storePacks[name] = normalized
	return nil
}

func (h *ExtensionHooks) RegisterCommandQueryBundle(
	name string,
	factory CommandQueryBundleFactory,
) error {
	if h == nil {
		return fmt.Errorf("shopagent: extension hooks are nil")
	}
	name = strings.TrimSpace(name)
	if name == "" {
		return fmt.Errorf("shopagent: command/query bundle name is required")
	}
	if factory == nil {
		return fmt.Errorf("shopagent: command/query bundle %q factory is required", name)
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	if _, exists := h.bundles[name]; exists {
		return fmt.Errorf("shopagent: command/query bundle %q already registered", name)
	}
	h.bundles[name] = factory
	return nil
}

// ApplyStoreOptions flattens all registered packs into one option slice in
// deterministic pack-name order, ready to pass to NewService.
func (h *ExtensionHooks) ApplyStoreOptions(base ...core.Option) []core.Option {
	if h == nil {
		return base
	}

	packs := h.StorePacks()
	out := append([]core.Option(nil), base...)
	for _, pack := range packs {
		out = append(out, pack.Options...)
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
		return nil, fmt.Errorf("shopagent: command/query service is required")
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

func (h *ExtensionHooks) StorePacks() []StorePack {
	if h == nil {
		return nil
	}
	h.mu.RLock()
	defer h.mu.RUnlock()

	names := make([]string, 0, len(h.storePacks))
	for name := range h.storePacks {
		names = append(names, name)
	}
	sort.Strings(names)

	out := make([]StorePack, 0, len(names))
	for _, name := range names {
		pack := h.storePacks[name]
		out = append(out, StorePack{
			Name:    pack.Name,
			Options: append([]core.Option(nil), pack.Options...),
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
