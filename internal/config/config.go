package config

import (
	"bytes"
	"encoding/json"
	stderrors "errors"
	"fmt"
	"io"
	"net"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/vango-dev/vroute/internal/errors"
	"github.com/vango-dev/vroute/pkg/history"
	"github.com/vango-dev/vroute/pkg/pathexp"
	"github.com/vango-dev/vroute/pkg/routepath"
	"github.com/vango-dev/vroute/pkg/router"
)

const (
	// ConfigFileName is the name of the JSON route table.
	ConfigFileName = "routes.json"

	// DefaultAddress is the default API server address.
	DefaultAddress = "localhost:3000"

	// DefaultMetricsPath is where the Prometheus handler is mounted.
	DefaultMetricsPath = "/metrics"

	// DefaultLogLevel is the default log level.
	DefaultLogLevel = "info"

	// DefaultReadHeaderTimeout bounds how long the server waits for headers.
	DefaultReadHeaderTimeout = 5 * time.Second

	// DefaultShutdownTimeout bounds graceful shutdown.
	DefaultShutdownTimeout = 10 * time.Second

	maxKeyLength = 32
)

// FileNames are the route table names Load looks for, in order.
var FileNames = []string{ConfigFileName, "routes.yaml", "routes.yml"}

// Format is the encoding of a route table.
type Format string

const (
	FormatJSON Format = "json"
	FormatYAML Format = "yaml"
)

// FormatFor picks the format from a file name or object key.
func FormatFor(name string) Format {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".yaml", ".yml":
		return FormatYAML
	default:
		return FormatJSON
	}
}

// Config is a route table document.
type Config struct {
	// Name is the table name, used in logs.
	Name string `json:"name,omitempty" yaml:"name,omitempty"`

	// Server contains API server settings.
	Server ServerConfig `json:"server" yaml:"server"`

	// History contains the initial state of the server's memory history.
	History HistoryConfig `json:"history" yaml:"history"`

	// Entries is the ordered route table.
	Entries []RouteConfig `json:"routes" yaml:"routes"`

	// configPath stores the path where the config was loaded from.
	configPath string

	// source describes where the document came from (file path or s3 URL).
	source string

	// positions holds the line and column of each route entry, when known.
	positions []position
}

// ServerConfig contains API server settings.
type ServerConfig struct {
	// Address is the listen address.
	Address string `json:"address,omitempty" yaml:"address,omitempty"`

	// MetricsPath is where Prometheus metrics are served.
	MetricsPath string `json:"metricsPath,omitempty" yaml:"metricsPath,omitempty"`

	// LogLevel is one of debug, info, warn or error.
	LogLevel string `json:"logLevel,omitempty" yaml:"logLevel,omitempty"`

	// Basename is prefixed to every href the server renders.
	Basename string `json:"basename,omitempty" yaml:"basename,omitempty"`

	// ReadHeaderTimeout is a duration string (e.g., "5s").
	ReadHeaderTimeout string `json:"readHeaderTimeout,omitempty" yaml:"readHeaderTimeout,omitempty"`

	// ShutdownTimeout is a duration string (e.g., "10s").
	ShutdownTimeout string `json:"shutdownTimeout,omitempty" yaml:"shutdownTimeout,omitempty"`
}

// HistoryConfig contains the initial state of a memory history.
type HistoryConfig struct {
	// InitialEntries are the starting locations.
	InitialEntries []string `json:"initialEntries,omitempty" yaml:"initialEntries,omitempty"`

	// InitialIndex is the starting position in InitialEntries.
	InitialIndex int `json:"initialIndex,omitempty" yaml:"initialIndex,omitempty"`

	// KeyLength is the length of generated location keys.
	KeyLength int `json:"keyLength,omitempty" yaml:"keyLength,omitempty"`

	// HashType renders hrefs inside the URL fragment: "slash", "noslash"
	// or "hashbang". Empty renders path hrefs.
	HashType string `json:"hashType,omitempty" yaml:"hashType,omitempty"`
}

// RouteConfig is one route declaration. Path is shorthand for a single
// entry of Paths.
type RouteConfig struct {
	Name  string   `json:"name,omitempty" yaml:"name,omitempty"`
	Path  string   `json:"path,omitempty" yaml:"path,omitempty"`
	Paths []string `json:"paths,omitempty" yaml:"paths,omitempty"`

	router.Options `yaml:",inline"`

	Redirect *router.Redirect `json:"redirect,omitempty" yaml:"redirect,omitempty"`
}

// Patterns returns the declared patterns, Path first.
func (r RouteConfig) Patterns() []string {
	if r.Path == "" {
		return r.Paths
	}
	return append([]string{r.Path}, r.Paths...)
}

type position struct {
	line   int
	column int
}

// New creates a new Config with default values.
func New() *Config {
	return &Config{
		Server: ServerConfig{
			Address:           DefaultAddress,
			MetricsPath:       DefaultMetricsPath,
			LogLevel:          DefaultLogLevel,
			ReadHeaderTimeout: DefaultReadHeaderTimeout.String(),
			ShutdownTimeout:   DefaultShutdownTimeout.String(),
		},
		History: HistoryConfig{
			InitialEntries: []string{"/"},
			KeyLength:      history.DefaultKeyLength,
		},
	}
}

// Load reads the first route table found in dir.
func Load(dir string) (*Config, error) {
	for _, name := range FileNames {
		path := filepath.Join(dir, name)
		if _, err := os.Stat(path); err == nil {
			return LoadFile(path)
		}
	}
	return nil, errors.New("E141").
		WithDetail("No route table found in " + dir).
		WithSuggestion("Create " + ConfigFileName + " or pass --config")
}

// LoadFile reads a route table from the specified file path.
func LoadFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errors.New("E141").
				WithDetail("No route table at " + path).
				WithSuggestion("Create " + ConfigFileName + " or pass --config")
		}
		return nil, errors.New("E120").Wrap(err)
	}

	cfg, err := parse(data, FormatFor(path), path)
	if err != nil {
		return nil, err
	}
	cfg.configPath = path
	cfg.source = path
	return cfg, nil
}

// Parse decodes a route table document.
func Parse(data []byte, format Format) (*Config, error) {
	return parse(data, format, "")
}

func parse(data []byte, format Format, file string) (*Config, error) {
	cfg := New()

	var err error
	switch format {
	case FormatYAML:
		dec := yaml.NewDecoder(bytes.NewReader(data))
		dec.KnownFields(true)
		if err = dec.Decode(cfg); stderrors.Is(err, io.EOF) {
			err = nil
		}
	default:
		dec := json.NewDecoder(bytes.NewReader(data))
		dec.DisallowUnknownFields()
		err = dec.Decode(cfg)
	}
	if err != nil {
		ce := errors.New("E120").
			WithSuggestion(fmt.Sprintf("Check that the route table is valid %s", strings.ToUpper(string(format)))).
			Wrap(err)
		if file != "" {
			if line, col := errorPosition(data, err); line > 0 {
				ce.WithLocation(file, line, col)
			}
		}
		return nil, ce
	}

	cfg.positions = routePositions(data)
	cfg.applyDefaults()
	return cfg, nil
}

// Save writes the configuration to the file it was loaded from.
func (c *Config) Save() error {
	if c.configPath == "" {
		return errors.Newf(errors.CategoryConfig, "no config path set")
	}
	return c.SaveTo(c.configPath)
}

// SaveTo writes the configuration to the specified path, encoded by its
// extension.
func (c *Config) SaveTo(path string) error {
	var (
		data []byte
		err  error
	)
	switch FormatFor(path) {
	case FormatYAML:
		data, err = yaml.Marshal(c)
	default:
		data, err = json.MarshalIndent(c, "", "  ")
		data = append(data, '\n')
	}
	if err != nil {
		return errors.New("E120").Wrap(err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return errors.New("E120").Wrap(err)
	}

	c.configPath = path
	c.source = path
	return nil
}

// Path returns the path where the config was loaded from.
func (c *Config) Path() string {
	return c.configPath
}

// Source describes where the config came from.
func (c *Config) Source() string {
	return c.source
}

// applyDefaults fills in default values for empty fields.
func (c *Config) applyDefaults() {
	if c.Server.Address == "" {
		c.Server.Address = DefaultAddress
	}
	if c.Server.MetricsPath == "" {
		c.Server.MetricsPath = DefaultMetricsPath
	}
	if c.Server.LogLevel == "" {
		c.Server.LogLevel = DefaultLogLevel
	}
	if c.Server.ReadHeaderTimeout == "" {
		c.Server.ReadHeaderTimeout = DefaultReadHeaderTimeout.String()
	}
	if c.Server.ShutdownTimeout == "" {
		c.Server.ShutdownTimeout = DefaultShutdownTimeout.String()
	}
	if len(c.History.InitialEntries) == 0 {
		c.History.InitialEntries = []string{"/"}
	}
	if c.History.KeyLength == 0 {
		c.History.KeyLength = history.DefaultKeyLength
	}
}

// Validate checks server settings and compiles every route pattern.
func (c *Config) Validate() error {
	if err := c.validateServer(); err != nil {
		return err
	}

	m := router.NewMatcher()
	names := make(map[string]int)

	for i, r := range c.Entries {
		label := routeLabel(i, r)

		if r.Path != "" && len(r.Paths) > 0 {
			return c.at(i, errors.New("E121").
				WithDetail(label+" sets both path and paths").
				WithSuggestion("Move path into the paths list"))
		}
		if r.Name != "" {
			if prev, ok := names[r.Name]; ok {
				return c.at(i, errors.New("E121").
					WithDetail(fmt.Sprintf("%s repeats the name of route %d", label, prev)))
			}
			names[r.Name] = i
		}

		if _, err := m.Compile(r.Patterns(), r.Options); err != nil {
			return c.at(i, errors.New("E201").
				WithDetail(label+" has an invalid pattern").
				Wrap(err))
		}

		if r.Redirect != nil {
			if r.Redirect.To == "" {
				return c.at(i, errors.New("E121").
					WithDetail(label+" redirects without a target").
					WithSuggestion(`Set redirect.to, e.g. "/"`))
			}
			targetPath, _, _ := routepath.ParsePath(r.Redirect.To)
			if _, err := pathexp.Parse(targetPath); err != nil {
				return c.at(i, errors.New("E201").
					WithDetail(label+" has an invalid redirect target").
					Wrap(err))
			}
		}
	}
	return nil
}

func (c *Config) validateServer() error {
	if _, _, err := net.SplitHostPort(c.Server.Address); err != nil {
		return errors.New("E122").
			WithDetail("server.address must be host:port").
			Wrap(err)
	}
	if !strings.HasPrefix(c.Server.MetricsPath, "/") {
		return errors.New("E122").
			WithDetail("server.metricsPath must start with /")
	}
	switch strings.ToLower(c.Server.LogLevel) {
	case "debug", "info", "warn", "warning", "error":
	default:
		return errors.New("E122").
			WithDetail(fmt.Sprintf("server.logLevel %q is not one of debug, info, warn, error", c.Server.LogLevel))
	}
	for name, value := range map[string]string{
		"server.readHeaderTimeout": c.Server.ReadHeaderTimeout,
		"server.shutdownTimeout":   c.Server.ShutdownTimeout,
	} {
		d, err := time.ParseDuration(value)
		if err != nil || d < 0 {
			return errors.New("E122").
				WithDetail(fmt.Sprintf("%s %q is not a valid duration", name, value))
		}
	}
	if c.History.KeyLength < 1 || c.History.KeyLength > maxKeyLength {
		return errors.New("E122").
			WithDetail(fmt.Sprintf("history.keyLength must be between 1 and %d", maxKeyLength))
	}
	if c.History.HashType != "" {
		if _, err := history.ParseHashType(c.History.HashType); err != nil {
			return errors.New("E122").
				WithDetail("history.hashType must be slash, noslash or hashbang").
				Wrap(err)
		}
	}
	if c.History.InitialIndex < 0 || c.History.InitialIndex >= len(c.History.InitialEntries) {
		return errors.New("E122").
			WithDetail("history.initialIndex is outside history.initialEntries")
	}
	return nil
}

// at attaches the location of route i, when the document had one.
func (c *Config) at(i int, err *errors.CodedError) *errors.CodedError {
	if c.configPath != "" && i < len(c.positions) {
		p := c.positions[i]
		err.WithLocation(c.configPath, p.line, p.column)
	}
	return err
}

func routeLabel(i int, r RouteConfig) string {
	if r.Name != "" {
		return fmt.Sprintf("route %d (%s)", i, r.Name)
	}
	return fmt.Sprintf("route %d", i)
}

// Routes converts the table into router routes.
func (c *Config) Routes() []router.Route {
	routes := make([]router.Route, len(c.Entries))
	for i, r := range c.Entries {
		routes[i] = router.Route{
			Name:     r.Name,
			Paths:    r.Patterns(),
			Options:  r.Options,
			Redirect: r.Redirect,
		}
	}
	return routes
}

// HistoryOptions returns the options for the server's memory history.
func (c *Config) HistoryOptions() []history.Option {
	opts := []history.Option{
		history.WithInitialEntries(c.History.InitialEntries...),
		history.WithInitialIndex(c.History.InitialIndex),
		history.WithKeyLength(c.History.KeyLength),
		history.WithBasename(c.Server.Basename),
	}
	if c.History.HashType != "" {
		ht, _ := history.ParseHashType(c.History.HashType)
		opts = append(opts, history.WithHashType(ht))
	}
	return opts
}

// ReadHeaderTimeoutDuration returns server.readHeaderTimeout as a duration.
func (s ServerConfig) ReadHeaderTimeoutDuration() time.Duration {
	return durationOr(s.ReadHeaderTimeout, DefaultReadHeaderTimeout)
}

// ShutdownTimeoutDuration returns server.shutdownTimeout as a duration.
func (s ServerConfig) ShutdownTimeoutDuration() time.Duration {
	return durationOr(s.ShutdownTimeout, DefaultShutdownTimeout)
}

func durationOr(s string, def time.Duration) time.Duration {
	d, err := time.ParseDuration(s)
	if err != nil || d < 0 {
		return def
	}
	return d
}

// Exists checks if a route table exists in the given directory.
func Exists(dir string) bool {
	for _, name := range FileNames {
		if _, err := os.Stat(filepath.Join(dir, name)); err == nil {
			return true
		}
	}
	return false
}

// routePositions records where each route entry (its path key, when it has
// one) starts. JSON documents are read through the YAML parser.
func routePositions(data []byte) []position {
	var doc yaml.Node
	if err := yaml.Unmarshal(data, &doc); err != nil || len(doc.Content) == 0 {
		return nil
	}
	root := doc.Content[0]
	if root.Kind != yaml.MappingNode {
		return nil
	}

	for i := 0; i+1 < len(root.Content); i += 2 {
		if root.Content[i].Value != "routes" || root.Content[i+1].Kind != yaml.SequenceNode {
			continue
		}
		items := root.Content[i+1].Content
		out := make([]position, len(items))
		for j, item := range items {
			out[j] = position{line: item.Line, column: item.Column}
			if item.Kind != yaml.MappingNode {
				continue
			}
			for k := 0; k+1 < len(item.Content); k += 2 {
				if key := item.Content[k]; key.Value == "path" || key.Value == "paths" {
					out[j] = position{line: key.Line, column: key.Column}
					break
				}
			}
		}
		return out
	}
	return nil
}

var yamlLine = regexp.MustCompile(`line (\d+)`)

// errorPosition finds the line and column of a decode error.
func errorPosition(data []byte, err error) (line, column int) {
	var syntax *json.SyntaxError
	var typ *json.UnmarshalTypeError
	switch {
	case stderrors.As(err, &syntax):
		return offsetPosition(data, syntax.Offset)
	case stderrors.As(err, &typ):
		return offsetPosition(data, typ.Offset)
	}
	if m := yamlLine.FindStringSubmatch(err.Error()); m != nil {
		line, _ = strconv.Atoi(m[1])
		return line, 0
	}
	return 0, 0
}

func offsetPosition(data []byte, offset int64) (line, column int) {
	if offset > int64(len(data)) {
		offset = int64(len(data))
	}
	before := data[:offset]
	line = bytes.Count(before, []byte("\n")) + 1
	column = int(offset) - bytes.LastIndexByte(before, '\n')
	return line, column
}
