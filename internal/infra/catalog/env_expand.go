package catalog

import (
	"fmt"
	"os"
	"slices"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// envResolver resolves catalog variable references:
//
//	${NAME}           value of NAME, empty and reported missing when unset
//	${NAME:-fallback} value of NAME, or fallback when NAME is unset or empty
//	$$                a literal dollar sign
type envResolver struct {
	lookup  func(string) (string, bool)
	missing map[string]struct{}
}

func (r *envResolver) resolve(ref string) string {
	if ref == "$" {
		return "$"
	}
	name, fallback, hasFallback := strings.Cut(ref, ":-")
	value, ok := r.lookup(name)
	if ok && (value != "" || !hasFallback) {
		return value
	}
	if hasFallback {
		return fallback
	}
	r.missing[name] = struct{}{}
	return ""
}

func (r *envResolver) missingNames() []string {
	if len(r.missing) == 0 {
		return nil
	}
	names := make([]string, 0, len(r.missing))
	for name := range r.missing {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}

// expandConfigEnv expands variable references in scalar values (never in
// keys) and returns the re-encoded document with the sorted names of unset
// variables that had no fallback.
func expandConfigEnv(raw []byte) (string, []string, error) {
	return expandConfigEnvWith(raw, os.LookupEnv)
}

func expandConfigEnvWith(raw []byte, lookup func(string) (string, bool)) (string, []string, error) {
	var root yaml.Node
	if err := yaml.Unmarshal(raw, &root); err != nil {
		return "", nil, fmt.Errorf("parse config: %w", err)
	}
	if root.Kind == 0 {
		return "", nil, nil
	}

	resolver := &envResolver{lookup: lookup, missing: make(map[string]struct{})}
	visitValueScalars(&root, func(node *yaml.Node) {
		expandScalar(node, resolver)
	})

	out, err := yaml.Marshal(&root)
	if err != nil {
		return "", nil, fmt.Errorf("encode expanded config: %w", err)
	}
	return string(out), resolver.missingNames(), nil
}

// visitValueScalars calls fn for every scalar that is not a mapping key.
func visitValueScalars(node *yaml.Node, fn func(*yaml.Node)) {
	switch node.Kind {
	case yaml.ScalarNode:
		fn(node)
	case yaml.MappingNode:
		for i := 1; i < len(node.Content); i += 2 {
			visitValueScalars(node.Content[i], fn)
		}
	case yaml.DocumentNode, yaml.SequenceNode:
		for _, child := range node.Content {
			visitValueScalars(child, fn)
		}
	case yaml.AliasNode:
		if node.Alias != nil {
			visitValueScalars(node.Alias, fn)
		}
	}
}

func expandScalar(node *yaml.Node, resolver *envResolver) {
	if node.Tag != "" && node.Tag != "!!str" {
		return
	}
	if !strings.Contains(node.Value, "$") {
		return
	}
	expanded := os.Expand(node.Value, resolver.resolve)
	if expanded == node.Value {
		return
	}
	// Quoted scalars stay strings; plain ones are re-typed so that
	// "riskLevel: ${RISK}" still decodes as a number.
	if node.Style != 0 {
		node.Tag, node.Value = "!!str", expanded
		return
	}
	node.Tag, node.Value = inferScalarTag(expanded)
}

func inferScalarTag(value string) (string, string) {
	if strings.TrimSpace(value) == "" {
		return "!!str", value
	}
	var parsed any
	if err := yaml.Unmarshal([]byte(value), &parsed); err != nil {
		return "!!str", value
	}
	switch v := parsed.(type) {
	case nil:
		return "!!null", "null"
	case bool:
		return "!!bool", strconv.FormatBool(v)
	case int:
		return "!!int", strconv.Itoa(v)
	case int64:
		return "!!int", strconv.FormatInt(v, 10)
	case uint64:
		return "!!int", strconv.FormatUint(v, 10)
	case float64:
		return "!!float", strconv.FormatFloat(v, 'f', -1, 64)
	default:
		return "!!str", value
	}
}
