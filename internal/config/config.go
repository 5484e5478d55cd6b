// Package config loads HCL configuration for vcsserver: the backend-adapter
// paths (git/hg/svn tool locations), the context cache sizing, and the
// dev-only echo app toggle, plus the generic envar-injection/expansion
// machinery shared with the rest of the ambient stack.
package config

import (
	"math/big"
	"os"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/alecthomas/errors"
	"github.com/alecthomas/hcl/v2"

	"github.com/rhodecode/vcsserver/internal/logging"
	"github.com/rhodecode/vcsserver/internal/metrics"
	"github.com/rhodecode/vcsserver/internal/vcs/svn"
)

// ContextCacheConfig mirrors the beaker.cache.* region settings spec.md §6
// lists: a region name plus bounded size/TTL for the per-backend repo
// cache.
type ContextCacheConfig struct {
	Region string        `hcl:"region,optional" help:"Context cache region name." default:"default_scm"`
	Size   int           `hcl:"size,optional" help:"Maximum cached repo handles per backend region." default:"100"`
	TTL    time.Duration `hcl:"ttl,optional" help:"Cached repo handle idle TTL." default:"300s"`
}

// DevConfig groups developer-only toggles, namely dev.use_echo_app.
type DevConfig struct {
	UseEchoApp bool `hcl:"use-echo-app,optional" help:"Replace the hg/git WSGI-equivalent apps with a body echo, for testing."`
}

// GlobalConfig is the top-level vcsserver configuration schema.
type GlobalConfig struct {
	Bind string `hcl:"bind" default:"127.0.0.1:9900" help:"Bind address for the RPC/smart-HTTP server."`

	GitPath      string             `hcl:"git-path,optional" help:"Path to the git executable." default:"git"`
	HgPath       string             `hcl:"hg-path,optional" help:"Path to the hg executable." default:"hg"`
	SvnTools     svn.Tools          `hcl:"svn-tools,block"`
	Locale       string             `hcl:"locale,optional" help:"Locale passed through to native VCS tool invocations." default:"en_US.UTF-8"`
	ContextCache ContextCacheConfig `hcl:"context-cache,block"`
	Dev          DevConfig          `hcl:"dev,block"`

	LoggingConfig logging.Config `hcl:"log,block"`
	MetricsConfig metrics.Config `hcl:"metrics,block"`
}

// Schema returns the configuration file schema.
func Schema() *hcl.AST {
	schema, err := hcl.Schema(new(GlobalConfig))
	if err != nil {
		panic(err)
	}
	return schema
}

// ParseEnvars returns a map of all environment variables.
func ParseEnvars() map[string]string {
	envars := make(map[string]string)
	for _, env := range os.Environ() {
		if key, value, ok := strings.Cut(env, "="); ok {
			envars[key] = value
		}
	}
	return envars
}

// ExpandVars expands environment variable references in HCL strings and heredocs.
func ExpandVars(ast *hcl.AST, vars map[string]string) {
	_ = hcl.Visit(ast, func(node hcl.Node, next func() error) error { //nolint:errcheck
		attr, ok := node.(*hcl.Attribute)
		if ok {
			switch attr := attr.Value.(type) {
			case *hcl.String:
				attr.Str = os.Expand(attr.Str, func(s string) string { return vars[s] })
			case *hcl.Heredoc:
				attr.Doc = os.Expand(attr.Doc, func(s string) string { return vars[s] })
			}
		}
		return next()
	})
}

// InjectEnvars walks the schema and for each attribute not present in the config,
// checks for a corresponding environment variable and injects it.
//
// Environment variable names are derived from the path to the attribute:
// prefix + block names + attr name, joined with "_", uppercased, hyphens replaced with "_".
// e.g. prefix="VCSSERVER", path=["context-cache", "size"] -> "VCSSERVER_CONTEXT_CACHE_SIZE".
func InjectEnvars(schema *hcl.AST, config *hcl.AST, prefix string, vars map[string]string) {
	container := &entryContainer{ast: config}
	injectEntries(schema.Entries, container, []string{prefix}, vars)
	_ = hcl.AddParentRefs(config) //nolint:errcheck
}

// entryContainer abstracts over AST (top-level) and Block (nested) for inserting entries.
type entryContainer struct {
	ast   *hcl.AST
	block *hcl.Block
}

func (c *entryContainer) entries() hcl.Entries {
	if c.block != nil {
		return c.block.Body
	}
	return c.ast.Entries
}

func (c *entryContainer) append(entry hcl.Entry) {
	if c.block != nil {
		c.block.Body = append(c.block.Body, entry)
	} else {
		c.ast.Entries = append(c.ast.Entries, entry)
	}
}

func (c *entryContainer) findBlock(name string) *entryContainer {
	for _, e := range c.entries() {
		if block, ok := e.(*hcl.Block); ok && block.Name == name {
			return &entryContainer{ast: c.ast, block: block}
		}
	}
	return nil
}

func injectEntries(schemaEntries hcl.Entries, container *entryContainer, path []string, vars map[string]string) {
	for _, entry := range schemaEntries {
		switch entry := entry.(type) {
		case *hcl.Attribute:
			typ, ok := entry.Value.(*hcl.Type)
			if !ok {
				continue
			}
			envarName := pathToEnvar(append(slices.Clone(path), entry.Key))
			val, ok := vars[envarName]
			if !ok {
				continue
			}
			if hasAttr(container.entries(), entry.Key) {
				continue
			}
			hclVal, err := parseValue(val, typ.Type)
			if err != nil {
				continue
			}
			container.append(&hcl.Attribute{Key: entry.Key, Value: hclVal})

		case *hcl.Block:
			child := container.findBlock(entry.Name)
			if child == nil {
				// Create a temporary container; only add the block to the
				// config if at least one envar populated it.
				tmp := &entryContainer{ast: container.ast, block: &hcl.Block{Name: entry.Name}}
				injectEntries(entry.Body, tmp, append(path, entry.Name), vars)
				if len(tmp.block.Body) > 0 {
					container.append(tmp.block)
				}
			} else {
				injectEntries(entry.Body, child, append(path, entry.Name), vars)
			}
		}
	}
}

func pathToEnvar(path []string) string {
	s := strings.Join(path, "_")
	s = strings.ReplaceAll(s, "-", "_")
	return strings.ToUpper(s)
}

func hasAttr(entries hcl.Entries, key string) bool {
	for _, e := range entries {
		if attr, ok := e.(*hcl.Attribute); ok && attr.Key == key {
			return true
		}
	}
	return false
}

func parseValue(raw string, typ string) (hcl.Value, error) {
	switch typ {
	case "string":
		return &hcl.String{Str: raw}, nil
	case "number":
		f, _, err := big.ParseFloat(raw, 10, 256, big.ToNearestEven)
		if err != nil {
			return nil, errors.Wrap(err, raw)
		}
		return &hcl.Number{Float: f}, nil
	case "boolean":
		b, err := strconv.ParseBool(raw)
		if err != nil {
			return nil, errors.Wrap(err, raw)
		}
		return &hcl.Bool{Bool: b}, nil
	default:
		return nil, errors.Errorf("unsupported type %q", typ)
	}
}
