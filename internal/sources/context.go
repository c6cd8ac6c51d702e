package sources

import (
	"sync"
	"time"

	"go.uber.org/zap"
)

const (
	DefaultRemoteOKURL = "https://remoteok.com/api"
	DefaultRemotiveURL = "https://remotive.com/api/remote-jobs"
	defaultTimeout     = 20 * time.Second
)

// Endpoints are fmt templates taking the board token or company slug.
type Endpoints struct {
	Greenhouse      string
	Lever           string
	SmartRecruiters string
	Recruitee       string
}

func DefaultEndpoints() Endpoints {
	return Endpoints{
		Greenhouse:      "https://boards-api.greenhouse.io/v1/boards/%s/jobs",
		Lever:           "https://api.lever.co/v0/postings/%s",
		SmartRecruiters: "https://api.smartrecruiters.com/v1/companies/%s/postings",
		Recruitee:       "https://%s.recruitee.com/api/offers/",
	}
}

// Config holds the fetch settings shared by every source.
type Config struct {
	RemoteOKURL         string
	RemotiveURL         string
	Timeout             time.Duration
	CompaniesFile       string
	ValidationCacheFile string
	Endpoints           Endpoints
}

func (c Config) withDefaults() Config {
	if c.RemoteOKURL == "" {
		c.RemoteOKURL = DefaultRemoteOKURL
	}
	if c.RemotiveURL == "" {
		c.RemotiveURL = DefaultRemotiveURL
	}
	if c.Timeout <= 0 {
		c.Timeout = defaultTimeout
	}
	defaults := DefaultEndpoints()
	if c.Endpoints.Greenhouse == "" {
		c.Endpoints.Greenhouse = defaults.Greenhouse
	}
	if c.Endpoints.Lever == "" {
		c.Endpoints.Lever = defaults.Lever
	}
	if c.Endpoints.SmartRecruiters == "" {
		c.Endpoints.SmartRecruiters = defaults.SmartRecruiters
	}
	if c.Endpoints.Recruitee == "" {
		c.Endpoints.Recruitee = defaults.Recruitee
	}
	return c
}

// FetchContext is shared by all sources of one fetch. The company config is loaded at most once.
type FetchContext struct {
	Config Config

	client    *Client
	logger    *zap.Logger
	companies *Loader[string, Companies]
}

func NewFetchContext(cfg Config, logger *zap.Logger) *FetchContext {
	if logger == nil {
		logger = zap.NewNop()
	}
	cfg = cfg.withDefaults()
	return &FetchContext{
		Config: cfg,
		client: NewClient(cfg.Timeout, logger),
		logger: logger,
		companies: NewLoader(func(path string) (Companies, error) {
			return LoadCompanies(path, cfg.ValidationCacheFile)
		}),
	}
}

// Companies returns the active company entries configured for the source.
func (fc *FetchContext) Companies(source string) ([]Entry, error) {
	companies, err := fc.companies.Get(fc.Config.CompaniesFile)
	if err != nil {
		return nil, err
	}
	return companies[source], nil
}

// Loader is a read-through cache computing each value at most once. Failed loads are retried
// on the next Get. Different keys load concurrently.
type Loader[K comparable, V any] struct {
	mu      sync.Mutex
	load    func(K) (V, error)
	entries map[K]*loaderEntry[V]
}

type loaderEntry[V any] struct {
	mu    sync.Mutex
	done  bool
	value V
}

func NewLoader[K comparable, V any](load func(K) (V, error)) *Loader[K, V] {
	return &Loader[K, V]{load: load, entries: make(map[K]*loaderEntry[V])}
}

func (l *Loader[K, V]) Get(key K) (V, error) {
	l.mu.Lock()
	e, ok := l.entries[key]
	if !ok {
		e = &loaderEntry[V]{}
		l.entries[key] = e
	}
	l.mu.Unlock()

	e.mu.Lock()
	defer e.mu.Unlock()
	if e.done {
		return e.value, nil
	}

	value, err := l.load(key)
	if err != nil {
		var zero V
		return zero, err
	}
	e.value, e.done = value, true
	return value, nil
}
