package config

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/goccy/go-yaml"

	"github.com/jacoelho/cnpj/internal/formatter"
	"github.com/jacoelho/cnpj/internal/match"
	"github.com/jacoelho/cnpj/internal/pathexpr"
)

// DefaultPaths are the columns written when no path list is configured.
const DefaultPaths = "razaoSocial,tipoEndereco,endereco,number,complemento,bairro,uf,cep,municipio," +
	"telefone1,telefone2,email,socios[].tipo,socios[].codPais,socios[].nome"

const (
	FormatCSV    = "csv"
	FormatJSON   = "json"
	FormatSQLite = "sqlite"
)

var (
	ErrInvalidConfig = errors.New("invalid configuration")
	ErrNoInput       = errors.New("no input file specified")
	ErrUnknownOption = errors.New("unknown option")
)

// Kind is the value type of an Option.
type Kind uint8

const (
	KindString Kind = iota
	KindBool
)

// Option describes one setting that can be given on the command line or
// in a config file.
type Option struct {
	Name    string
	Short   string
	Kind    Kind
	Default string
	Usage   string
}

// Options lists every setting in the order it is documented.
var Options = []Option{
	{Name: "in", Kind: KindString, Usage: "Input file"},
	{Name: "out", Kind: KindString, Usage: "Output file, created exclusively (stdout when empty; required for sqlite)"},
	{Name: "match", Short: "m", Kind: KindString, Usage: "Match rules: field:prefix, field:start-end"},
	{Name: "or", Kind: KindBool, Default: "false", Usage: "Match rules using OR"},
	{Name: "type", Short: "t", Kind: KindString, Default: FormatCSV, Usage: "Output type: csv, json, sqlite"},
	{Name: "sep", Kind: KindString, Default: ",", Usage: "CSV field separator"},
	{Name: "del", Kind: KindString, Default: `"`, Usage: "CSV field delimiter"},
	{Name: "nil", Kind: KindString, Default: "", Usage: "CSV nil field value"},
	{Name: "csv", Kind: KindString, Default: DefaultPaths, Usage: "Output field list"},
	{Name: "ml", Kind: KindBool, Default: "false", Usage: "Output matching lines only"},
	{Name: "no-header", Kind: KindBool, Default: "false", Usage: "Do not write the CSV header"},
	{Name: "select", Kind: KindString, Usage: "JSONPath projection for json output"},
	{Name: "table", Kind: KindString, Default: "empresas", Usage: "Table name for sqlite output"},
	{Name: "layout", Kind: KindString, Usage: "Record layout YAML file (built-in layout when empty)"},
	{Name: "encoding", Kind: KindString, Usage: "Input character encoding, overrides the layout"},
	{Name: "progress", Kind: KindBool, Default: "false", Usage: "Show progress on stderr"},
	{Name: "verbose", Short: "v", Kind: KindBool, Default: "false", Usage: "Verbose"},
}

// Config represents the complete configuration of a parse run.
type Config struct {
	Input       string `yaml:"in"`
	Output      string `yaml:"out"`
	Match       string `yaml:"match"`
	Or          bool   `yaml:"or"`
	Format      string `yaml:"type"`
	Separator   string `yaml:"sep"`
	Delimiter   string `yaml:"del"`
	Nil         string `yaml:"nil"`
	Paths       string `yaml:"csv"`
	MatchedOnly bool   `yaml:"ml"`
	NoHeader    bool   `yaml:"no-header"`
	Select      string `yaml:"select"`
	Table       string `yaml:"table"`
	Layout      string `yaml:"layout"`
	Encoding    string `yaml:"encoding"`
	Progress    bool   `yaml:"progress"`
	Verbose     bool   `yaml:"verbose"`
}

// Default returns a Config holding every option default.
func Default() *Config {
	c := &Config{}
	for _, opt := range Options {
		if opt.Default == "" {
			continue
		}
		if err := c.Set(opt.Name, opt.Default); err != nil {
			panic(err)
		}
	}
	return c
}

// LoadFile reads a YAML config file on top of c. Keys must be option
// names.
func (c *Config) LoadFile(filename string) error {
	data, err := os.ReadFile(filename)
	if err != nil {
		return fmt.Errorf("failed to read config file %s: %w", filename, err)
	}

	dec := yaml.NewDecoder(bytes.NewReader(data), yaml.DisallowUnknownField())
	if err := dec.Decode(c); err != nil {
		return fmt.Errorf("%w: %s: %v", ErrInvalidConfig, filename, err)
	}
	return nil
}

// Set assigns option name from its textual value.
func (c *Config) Set(name, value string) error {
	if target, ok := c.stringOptions()[name]; ok {
		*target = value
		return nil
	}
	if target, ok := c.boolOptions()[name]; ok {
		parsed, err := strconv.ParseBool(value)
		if err != nil {
			return fmt.Errorf("%w: option %s: %q is not a boolean", ErrInvalidConfig, name, value)
		}
		*target = parsed
		return nil
	}
	return fmt.Errorf("%w: %s", ErrUnknownOption, name)
}

func (c *Config) stringOptions() map[string]*string {
	return map[string]*string{
		"in":       &c.Input,
		"out":      &c.Output,
		"match":    &c.Match,
		"type":     &c.Format,
		"sep":      &c.Separator,
		"del":      &c.Delimiter,
		"nil":      &c.Nil,
		"csv":      &c.Paths,
		"select":   &c.Select,
		"table":    &c.Table,
		"layout":   &c.Layout,
		"encoding": &c.Encoding,
	}
}

func (c *Config) boolOptions() map[string]*bool {
	return map[string]*bool{
		"or":        &c.Or,
		"ml":        &c.MatchedOnly,
		"no-header": &c.NoHeader,
		"progress":  &c.Progress,
		"verbose":   &c.Verbose,
	}
}

// Validate validates the configuration and returns an error if invalid.
func (c *Config) Validate() error {
	if c.Input == "" {
		return ErrNoInput
	}

	switch c.Format {
	case FormatCSV:
		if c.Separator == "" {
			return fmt.Errorf("%w: separator cannot be empty", ErrInvalidConfig)
		}
	case FormatJSON:
	case FormatSQLite:
		if c.Output == "" {
			return fmt.Errorf("%w: sqlite output requires an output file", ErrInvalidConfig)
		}
		if strings.TrimSpace(c.Table) == "" {
			return fmt.Errorf("%w: table name cannot be empty", ErrInvalidConfig)
		}
	default:
		return fmt.Errorf("%w: unknown output type %q", ErrInvalidConfig, c.Format)
	}

	if _, err := c.OutputPaths(); err != nil {
		return err
	}
	if _, err := c.Rules(); err != nil {
		return err
	}
	return nil
}

// OutputPaths parses the configured column list.
func (c *Config) OutputPaths() ([]pathexpr.Path, error) {
	paths, err := pathexpr.ParseList(c.Paths)
	if err != nil {
		return nil, fmt.Errorf("%w: output paths: %w", ErrInvalidConfig, err)
	}
	if len(paths) == 0 && c.Format != FormatJSON {
		return nil, fmt.Errorf("%w: no output paths", ErrInvalidConfig)
	}
	return paths, nil
}

func (c *Config) Mode() match.Mode {
	if c.Or {
		return match.ModeOr
	}
	return match.ModeAnd
}

// Rules compiles the configured match specs.
func (c *Config) Rules() (*match.Set, error) {
	return match.ParseSet(c.Match, c.Mode())
}

// FormatterOptions returns the output settings shared by every format.
func (c *Config) FormatterOptions() (formatter.Options, error) {
	paths, err := c.OutputPaths()
	if err != nil {
		return formatter.Options{}, err
	}
	return formatter.Options{
		Paths:       paths,
		Separator:   c.Separator,
		Delimiter:   c.Delimiter,
		Nil:         c.Nil,
		Header:      !c.NoHeader,
		MatchedOnly: c.MatchedOnly,
		Select:      c.Select,
		Table:       c.Table,
	}, nil
}
