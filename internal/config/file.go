package config

import (
	"bytes"
	_ "embed"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	cueerrors "cuelang.org/go/cue/errors"
	"gopkg.in/yaml.v3"
)

//go:embed schema.cue
var schemaCUE string

// fileConfig is the subset of Config a file may set. Nil means "not set".
type fileConfig struct {
	Listen          *string   `json:"listen,omitempty" yaml:"listen"`
	Path            *string   `json:"path,omitempty" yaml:"path"`
	Game            *string   `json:"game,omitempty" yaml:"game"`
	LogLevel        *string   `json:"log_level,omitempty" yaml:"log_level"`
	LogFormat       *string   `json:"log_format,omitempty" yaml:"log_format"`
	AdminActor      *uint64   `json:"admin_actor,omitempty" yaml:"admin_actor"`
	UnknownService  *string   `json:"unknown_service,omitempty" yaml:"unknown_service"`
	Journal         *string   `json:"journal,omitempty" yaml:"journal"`
	MaxMessageBytes *int      `json:"max_message_bytes,omitempty" yaml:"max_message_bytes"`
	ResourcePaths   []string  `json:"resource_paths,omitempty" yaml:"resource_paths"`
	NATS            *fileNATS `json:"nats,omitempty" yaml:"nats"`
}

type fileNATS struct {
	URL     *string `json:"url,omitempty" yaml:"url"`
	Name    *string `json:"name,omitempty" yaml:"name"`
	Subject *string `json:"subject,omitempty" yaml:"subject"`
}

func loadFile(path string, cfg *Config) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("%w: read %s: %w", ErrInvalidConfig, path, err)
	}

	var fc fileConfig
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".cue":
		fc, err = decodeCUE(path, data)
	case ".yaml", ".yml":
		fc, err = decodeYAML(data)
	default:
		err = fmt.Errorf("unsupported config file extension %q (want .cue, .yaml or .yml)", ext)
	}
	if err != nil {
		return fmt.Errorf("%w: %s: %w", ErrInvalidConfig, path, err)
	}

	fc.apply(cfg)
	return nil
}

// decodeCUE unifies the file with the closed #Config schema, so unknown
// fields and out-of-range values fail with a position.
func decodeCUE(path string, data []byte) (fileConfig, error) {
	ctx := cuecontext.New()

	schema := ctx.CompileString(schemaCUE, cue.Filename("schema.cue"))
	if err := schema.Err(); err != nil {
		return fileConfig{}, fmt.Errorf("compile schema: %w", err)
	}
	def := schema.LookupPath(cue.ParsePath("#Config"))

	file := ctx.CompileBytes(data, cue.Filename(path))
	if err := file.Err(); err != nil {
		return fileConfig{}, formatCUEError(err)
	}

	v := def.Unify(file)
	if err := v.Validate(cue.Concrete(true)); err != nil {
		return fileConfig{}, formatCUEError(err)
	}

	var fc fileConfig
	if err := v.Decode(&fc); err != nil {
		return fileConfig{}, formatCUEError(err)
	}
	return fc, nil
}

// decodeYAML rejects unknown fields.
func decodeYAML(data []byte) (fileConfig, error) {
	var fc fileConfig
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&fc); err != nil && !errors.Is(err, io.EOF) {
		return fileConfig{}, err
	}
	return fc, nil
}

// formatCUEError keeps the first error, prefixed with its position.
func formatCUEError(err error) error {
	errs := cueerrors.Errors(err)
	if len(errs) == 0 {
		return err
	}
	first := errs[0]
	if positions := cueerrors.Positions(first); len(positions) > 0 {
		pos := positions[0]
		return fmt.Errorf("%s:%d:%d: %s", filepath.Base(pos.Filename()), pos.Line(), pos.Column(), first.Error())
	}
	return first
}

func (fc fileConfig) apply(cfg *Config) {
	setString(&cfg.Listen, fc.Listen)
	setString(&cfg.Path, fc.Path)
	setString(&cfg.Game, fc.Game)
	setString(&cfg.LogLevel, fc.LogLevel)
	setString(&cfg.LogFormat, fc.LogFormat)
	setString(&cfg.UnknownService, fc.UnknownService)
	setString(&cfg.Journal, fc.Journal)
	if fc.AdminActor != nil {
		cfg.AdminActor = *fc.AdminActor
	}
	if fc.MaxMessageBytes != nil {
		cfg.MaxMessageBytes = *fc.MaxMessageBytes
	}
	if fc.ResourcePaths != nil {
		cfg.ResourcePaths = fc.ResourcePaths
	}
	if fc.NATS != nil {
		setString(&cfg.NATS.URL, fc.NATS.URL)
		setString(&cfg.NATS.Name, fc.NATS.Name)
		setString(&cfg.NATS.Subject, fc.NATS.Subject)
	}
}

func setString(dst *string, src *string) {
	if src != nil {
		*dst = *src
	}
}
