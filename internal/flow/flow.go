// Package flow implements the per-app data generators for PersonaPipe.
//
// Each supported app registers a Generator constructor with the package
// registry; the Factory binds constructors to a run's configuration, model
// client and random source, and memoizes instances per app.
package flow

import (
	"context"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"sync"
	"time"

	"github.com/brianvoe/gofakeit/v7"

	"github.com/BTreeMap/PersonaPipe/internal/models"
)

// ModelClient abstracts the text-generation backend: prompt in, text out.
type ModelClient interface {
	Generate(ctx context.Context, prompt string, temperature float64, maxTokens int) (string, error)
}

// Generator produces one app's synthetic record collection. Generate never
// fails: the worst case is an empty collection for the app.
type Generator interface {
	// App returns the app this generator handles.
	App() models.AppType

	// Generate produces up to count records for the app. With fallback
	// synthesis enabled the collection always has exactly count records.
	Generate(ctx context.Context, profile map[string]any, events []string, analysis models.AnalysisRecord, count int) models.AppData
}

// Dependencies holds everything injected into generator constructors. Rand
// and Faker share the run's seed so fallback synthesis stays reproducible.
type Dependencies struct {
	Config models.Config
	Client ModelClient
	Rand   *rand.Rand
	Faker  *gofakeit.Faker
}

// Constructor builds a Generator from its dependencies.
type Constructor func(deps Dependencies) Generator

var (
	registryMu sync.Mutex
	registry   = make(map[models.AppType]Constructor)
)

// Register associates an app with a Generator constructor. Later
// registrations replace earlier ones, so new app types can be added without
// modifying the dispatch core.
func Register(app models.AppType, ctor Constructor) {
	registryMu.Lock()
	defer registryMu.Unlock()
	registry[app] = ctor
}

// Get retrieves the Constructor for a given app.
func Get(app models.AppType) (Constructor, bool) {
	registryMu.Lock()
	defer registryMu.Unlock()
	ctor, ok := registry[app]
	return ctor, ok
}

// Apps returns the registered app names in stable order.
func Apps() []models.AppType {
	registryMu.Lock()
	defer registryMu.Unlock()
	var apps []models.AppType
	for _, app := range models.AllApps {
		if _, ok := registry[app]; ok {
			apps = append(apps, app)
		}
	}
	return apps
}

// Factory binds the registry to one run's dependencies and caches generator
// instances per app.
type Factory struct {
	deps      Dependencies
	mu        sync.Mutex
	instances map[models.AppType]Generator
}

// NewFactory creates a Factory for the given configuration and model client.
// A non-zero config seed makes fallback synthesis deterministic; otherwise
// the random source is seeded from the clock.
func NewFactory(cfg models.Config, client ModelClient) *Factory {
	seed := cfg.Seed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	return &Factory{
		deps: Dependencies{
			Config: cfg,
			Client: client,
			Rand:   rand.New(rand.NewPCG(uint64(seed), uint64(seed)>>1)),
			Faker:  gofakeit.NewFaker(rand.NewPCG(uint64(seed), uint64(seed)>>2), false),
		},
		instances: make(map[models.AppType]Generator),
	}
}

// Generator returns the cached generator for an app, constructing it on
// first use.
func (f *Factory) Generator(app models.AppType) (Generator, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if gen, ok := f.instances[app]; ok {
		return gen, nil
	}
	ctor, ok := Get(app)
	if !ok {
		slog.Error("No generator registered for app", "app", app)
		return nil, fmt.Errorf("no generator available for app: %s", app)
	}
	gen := ctor(f.deps)
	f.instances[app] = gen
	slog.Debug("Generator constructed", "app", app)
	return gen, nil
}
