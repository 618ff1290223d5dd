package history

import (
	"log/slog"
	"strings"
	"sync"

	"github.com/google/uuid"
)

// DefaultKeyLength is the length of generated location keys.
const DefaultKeyLength = 6

// Option configures a memory history.
type Option func(*memoryConfig)

type memoryConfig struct {
	initialEntries []string
	initialIndex   int
	keyLength      int
	basename       string
	hashType       HashType
	logger         *slog.Logger
}

// WithInitialEntries sets the starting entries. Defaults to "/".
func WithInitialEntries(entries ...string) Option {
	return func(c *memoryConfig) {
		c.initialEntries = entries
	}
}

// WithInitialIndex sets the starting cursor, clamped to the entries.
func WithInitialIndex(index int) Option {
	return func(c *memoryConfig) {
		c.initialIndex = index
	}
}

// WithKeyLength sets the length of generated keys.
func WithKeyLength(n int) Option {
	return func(c *memoryConfig) {
		c.keyLength = n
	}
}

// WithBasename sets the prefix CreateHref adds to every href.
func WithBasename(basename string) Option {
	return func(c *memoryConfig) {
		c.basename = basename
	}
}

// WithHashType makes CreateHref render fragment hrefs ("#/path",
// "#path" or "#!/path") instead of path hrefs.
func WithHashType(ht HashType) Option {
	return func(c *memoryConfig) {
		c.hashType = ht
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(c *memoryConfig) {
		c.logger = logger
	}
}

type listener struct {
	id int
	fn func(Update)
}

// Memory is an in-memory History. It is safe for concurrent use.
type Memory struct {
	mu        sync.Mutex
	entries   []Location
	index     int
	action    Action
	keyLength int
	basename  string
	hashType  HashType
	logger    *slog.Logger

	listenersMu sync.Mutex
	listeners   []listener
	nextID      int
}

// NewMemory creates a memory history.
func NewMemory(opts ...Option) *Memory {
	cfg := memoryConfig{
		initialEntries: []string{"/"},
		keyLength:      DefaultKeyLength,
	}
	for _, opt := range opts {
		opt(&cfg)
	}
	if len(cfg.initialEntries) == 0 {
		cfg.initialEntries = []string{"/"}
	}
	if cfg.keyLength <= 0 {
		cfg.keyLength = DefaultKeyLength
	}
	if cfg.logger == nil {
		cfg.logger = slog.Default()
	}

	m := &Memory{
		action:    Pop,
		keyLength: cfg.keyLength,
		basename:  NormalizeBasename(cfg.basename),
		hashType:  cfg.hashType,
		logger:    cfg.logger,
	}

	m.entries = make([]Location, len(cfg.initialEntries))
	for i, entry := range cfg.initialEntries {
		m.entries[i] = CreateLocation(entry, nil, m.createKey(), nil)
	}

	m.index = clamp(cfg.initialIndex, 0, len(m.entries)-1)

	return m
}

// Location returns the current entry.
func (m *Memory) Location() Location {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.entries[m.index]
}

// Action returns the action that produced the current entry.
func (m *Memory) Action() Action {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.action
}

// Len returns the number of entries.
func (m *Memory) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.entries)
}

// Index returns the cursor position.
func (m *Memory) Index() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.index
}

// Entries returns a copy of all entries.
func (m *Memory) Entries() []Location {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]Location, len(m.entries))
	copy(out, m.entries)
	return out
}

// Push adds a new entry after the cursor, dropping forward entries.
func (m *Memory) Push(to string, state any) {
	m.mu.Lock()
	current := m.entries[m.index]
	loc := CreateLocation(to, state, m.createKey(), &current)
	m.entries = append(m.entries[:m.index+1], loc)
	m.index++
	m.action = Push
	m.mu.Unlock()

	m.logger.Debug("history push", "path", loc.Path(), "key", loc.Key)
	m.notify(Update{Action: Push, Location: loc})
}

// Replace overwrites the current entry.
func (m *Memory) Replace(to string, state any) {
	m.mu.Lock()
	current := m.entries[m.index]
	loc := CreateLocation(to, state, m.createKey(), &current)
	m.entries[m.index] = loc
	m.action = Replace
	m.mu.Unlock()

	m.logger.Debug("history replace", "path", loc.Path(), "key", loc.Key)
	m.notify(Update{Action: Replace, Location: loc})
}

// Go moves the cursor by n. The target is clamped to the entries and
// listeners are notified even when the cursor does not move.
func (m *Memory) Go(n int) {
	m.mu.Lock()
	m.index = clamp(m.index+n, 0, len(m.entries)-1)
	loc := m.entries[m.index]
	m.action = Pop
	m.mu.Unlock()

	m.logger.Debug("history pop", "path", loc.Path(), "delta", n)
	m.notify(Update{Action: Pop, Location: loc})
}

// Back is Go(-1).
func (m *Memory) Back() {
	m.Go(-1)
}

// Forward is Go(1).
func (m *Memory) Forward() {
	m.Go(1)
}

// CanGo reports whether Go(n) stays within the entries.
func (m *Memory) CanGo(n int) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	next := m.index + n
	return next >= 0 && next < len(m.entries)
}

// Listen registers fn. Listeners run synchronously, in registration order,
// after the change is applied.
func (m *Memory) Listen(fn func(Update)) func() {
	m.listenersMu.Lock()
	id := m.nextID
	m.nextID++
	m.listeners = append(m.listeners, listener{id: id, fn: fn})
	m.listenersMu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			m.listenersMu.Lock()
			defer m.listenersMu.Unlock()
			for i, l := range m.listeners {
				if l.id == id {
					m.listeners = append(m.listeners[:i:i], m.listeners[i+1:]...)
					return
				}
			}
		})
	}
}

// CreateHref renders loc with the basename prefix, inside the fragment
// when a hash type is set.
func (m *Memory) CreateHref(loc Location) string {
	if m.hashType != "" {
		return CreateHashHref(m.basename, loc, m.hashType)
	}
	return m.basename + loc.Path()
}

// ParseHref reverses CreateHref: it returns the path an href of this
// history points at. With a hash type only the fragment is read, so a
// full URL works too.
func (m *Memory) ParseHref(href string) string {
	if m.hashType != "" {
		fragment := ""
		if i := strings.IndexByte(href, '#'); i >= 0 {
			fragment = href[i:]
		}
		href = DecodeHashPath(fragment, m.hashType)
	}
	path := StripBasename(href, m.basename)
	if path == "" || path[0] != '/' {
		path = "/" + path
	}
	return path
}

// HashType returns the fragment encoding, or "" for path hrefs.
func (m *Memory) HashType() HashType {
	return m.hashType
}

// Basename returns the normalized basename.
func (m *Memory) Basename() string {
	return m.basename
}

func (m *Memory) notify(u Update) {
	m.listenersMu.Lock()
	snapshot := make([]listener, len(m.listeners))
	copy(snapshot, m.listeners)
	m.listenersMu.Unlock()

	for _, l := range snapshot {
		l.fn(u)
	}
}

func (m *Memory) createKey() string {
	key := strings.ReplaceAll(uuid.NewString(), "-", "")
	if len(key) > m.keyLength {
		key = key[:m.keyLength]
	}
	return key
}

func clamp(n, lo, hi int) int {
	return min(max(n, lo), hi)
}

var _ History = (*Memory)(nil)
