package services

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/sirupsen/logrus"

	"github.com/ictlab/backtest-engine-go/internal/models"
)

// FunctionRegistry is the catalog of available analytical SQL functions.
// It is populated once at startup and read-only afterwards, so the read
// path needs no synchronization.
type FunctionRegistry struct {
	byName map[string]*models.FunctionDescriptor
	// order preserves registration order for stable iteration and
	// deterministic tie-breaking.
	order []string
}

// NewFunctionRegistry creates an empty registry.
func NewFunctionRegistry() *FunctionRegistry {
	return &FunctionRegistry{
		byName: make(map[string]*models.FunctionDescriptor),
	}
}

// Register adds a descriptor to the catalog. Registering a name twice
// returns a DuplicateFunctionError.
func (r *FunctionRegistry) Register(desc models.FunctionDescriptor) error {
	if desc.Name == "" {
		return fmt.Errorf("descriptor has empty name")
	}
	if _, exists := r.byName[desc.Name]; exists {
		return &DuplicateFunctionError{Name: desc.Name}
	}
	d := desc
	r.byName[desc.Name] = &d
	r.order = append(r.order, desc.Name)
	return nil
}

// Lookup returns the descriptor registered under name, or an
// UnknownFunctionError if absent.
func (r *FunctionRegistry) Lookup(name string) (*models.FunctionDescriptor, error) {
	desc, ok := r.byName[name]
	if !ok {
		return nil, &UnknownFunctionError{Name: name}
	}
	return desc, nil
}

// ByCategory returns all descriptors serving the given strategy, in
// registration order.
func (r *FunctionRegistry) ByCategory(strategy models.AnalysisStrategy) []*models.FunctionDescriptor {
	var out []*models.FunctionDescriptor
	for _, name := range r.order {
		if desc := r.byName[name]; desc.InCategory(strategy) {
			out = append(out, desc)
		}
	}
	return out
}

// ByContext returns all descriptors applicable to the given trading
// context, in registration order.
func (r *FunctionRegistry) ByContext(ctx models.TradingContext) []*models.FunctionDescriptor {
	var out []*models.FunctionDescriptor
	for _, name := range r.order {
		if desc := r.byName[name]; desc.SupportsContext(ctx) {
			out = append(out, desc)
		}
	}
	return out
}

// All returns every registered descriptor in registration order.
func (r *FunctionRegistry) All() []*models.FunctionDescriptor {
	out := make([]*models.FunctionDescriptor, 0, len(r.order))
	for _, name := range r.order {
		out = append(out, r.byName[name])
	}
	return out
}

// Names returns all registered function names in registration order.
func (r *FunctionRegistry) Names() []string {
	out := make([]string, len(r.order))
	copy(out, r.order)
	return out
}

// Len returns the number of registered functions.
func (r *FunctionRegistry) Len() int {
	return len(r.order)
}

// registrationIndex returns the position at which name was registered, or
// a value past the end for unregistered names.
func (r *FunctionRegistry) registrationIndex(name string) int {
	for i, n := range r.order {
		if n == name {
			return i
		}
	}
	return len(r.order)
}

// functionCatalogFile mirrors the on-disk catalog format.
type functionCatalogFile struct {
	Functions []models.FunctionDescriptor `json:"functions"`
}

// LoadFunctionCatalog builds a registry from a JSON catalog file.
func LoadFunctionCatalog(path string) (*FunctionRegistry, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read function catalog: %w", err)
	}

	var catalog functionCatalogFile
	if err := json.Unmarshal(data, &catalog); err != nil {
		return nil, fmt.Errorf("failed to parse function catalog: %w", err)
	}

	registry := NewFunctionRegistry()
	for _, desc := range catalog.Functions {
		if err := registry.Register(desc); err != nil {
			return nil, fmt.Errorf("failed to register %q: %w", desc.Name, err)
		}
	}

	logrus.Infof("Loaded %d analytical functions from %s", registry.Len(), path)
	return registry, nil
}
