package host

import (
	"encoding/json"
	"fmt"
	"reflect"
	"sync"

	"github.com/invopop/jsonschema"

	"github.com/hostlink-dev/hostlink/wireformat"
)

// catalogConfig holds configuration for the Catalog.
type catalogConfig struct {
	strictMode bool // Fail on duplicate registrations
}

func defaultCatalogConfig() catalogConfig {
	return catalogConfig{
		strictMode: true, // Secure default: prevent accidental overwrites
	}
}

// CatalogOption configures a Catalog instance.
type CatalogOption func(*catalogConfig)

// WithStrictMode enables/disables strict mode for duplicate
// registrations. Default is true (fail on duplicates).
func WithStrictMode(enabled bool) CatalogOption {
	return func(c *catalogConfig) {
		c.strictMode = enabled
	}
}

// Catalog describes the argument shape of commands served by a host.
// Each command may register a model struct; the catalog reflects a JSON
// Schema from it and checks submitted args against the model's
// validation tags.
type Catalog struct {
	config  catalogConfig
	schemas sync.Map // map[string]string (json schema)
	models  sync.Map // map[string]reflect.Type
}

// NewCatalog creates a new Catalog with the given options.
func NewCatalog(opts ...CatalogOption) *Catalog {
	cfg := defaultCatalogConfig()
	for _, opt := range opts {
		opt(&cfg)
	}
	return &Catalog{config: cfg}
}

// Register adds an argument model for a command. The schema is
// generated from the Go struct via invopop/jsonschema.
func (c *Catalog) Register(cmd string, model any) error {
	if c.config.strictMode {
		if _, exists := c.schemas.Load(cmd); exists {
			return fmt.Errorf("command %q already registered", cmd)
		}
	}

	t := reflect.TypeOf(model)
	if t.Kind() == reflect.Ptr {
		t = t.Elem()
	}
	if t.Kind() != reflect.Struct {
		return fmt.Errorf("model for %q must be a struct, got %T", cmd, model)
	}
	c.models.Store(cmd, t)

	s := jsonschema.Reflect(model)
	data, err := json.Marshal(s)
	if err != nil {
		return fmt.Errorf("failed to marshal schema for %s: %w", cmd, err)
	}
	c.schemas.Store(cmd, string(data))
	return nil
}

// Schema retrieves the JSON Schema for a command's arguments.
func (c *Catalog) Schema(cmd string) (string, bool) {
	v, ok := c.schemas.Load(cmd)
	if !ok {
		return "", false
	}
	return v.(string), true
}

// List returns all commands with registered argument models.
func (c *Catalog) List() []string {
	var keys []string
	c.schemas.Range(func(k, v any) bool {
		keys = append(keys, k.(string))
		return true
	})
	return keys
}

// CheckArgs validates an invocation's args against the registered
// model, if any. Commands without a model pass unchecked.
func (c *Catalog) CheckArgs(payload *wireformat.InvokePayload) error {
	v, ok := c.models.Load(payload.Cmd)
	if !ok {
		return nil
	}
	model := reflect.New(v.(reflect.Type)).Interface()
	return wireformat.ValidateArgs(payload, model)
}
