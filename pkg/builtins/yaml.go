package builtins

import (
	"context"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/rotisserie/eris"
	"gopkg.in/yaml.v3"

	"github.com/ngld/match/pkg/expression"
)

// yaml(file="versions.yml", key="deps.junit") reads a value from a YAML document. The file may
// be produced by another target; the call waits for it.
type yamlValue struct {
	env  expression.Env
	file expression.Expression
	key  expression.Expression
}

func newYaml(env expression.Env, params expression.Params) (expression.Function, error) {
	file, err := params.Get("yaml", "file")
	if err != nil {
		return nil, err
	}

	key, err := params.Get("yaml", "key")
	if err != nil {
		return nil, err
	}

	return &yamlValue{env: env, file: file, key: key}, nil
}

func (y *yamlValue) Resolve(ctx context.Context) (string, error) {
	values, err := y.ResolveList(ctx)
	if err != nil {
		return "", err
	}
	return strings.Join(values, " "), nil
}

func (y *yamlValue) ResolveList(ctx context.Context) ([]string, error) {
	file, err := y.file.Resolve(ctx)
	if err != nil {
		return nil, err
	}

	key, err := y.key.Resolve(ctx)
	if err != nil {
		return nil, err
	}

	if err = y.env.Match.AwaitFile(ctx, file); err != nil {
		return nil, err
	}

	path := file
	if !filepath.IsAbs(path) {
		path = filepath.Join(y.env.Match.Root(), path)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, eris.Wrapf(err, "failed to read %s", file)
	}

	var doc yaml.Node
	if err = yaml.Unmarshal(data, &doc); err != nil {
		return nil, eris.Wrapf(err, "failed to parse %s", file)
	}

	node := &doc
	if node.Kind == yaml.DocumentNode && len(node.Content) > 0 {
		node = node.Content[0]
	}

	for _, part := range strings.Split(key, ".") {
		node, err = yamlChild(node, part)
		if err != nil {
			return nil, eris.Wrapf(err, "failed to look up %s in %s", key, file)
		}
	}

	switch node.Kind {
	case yaml.ScalarNode:
		return []string{node.Value}, nil
	case yaml.SequenceNode:
		values := make([]string, 0, len(node.Content))
		for _, item := range node.Content {
			if item.Kind != yaml.ScalarNode {
				return nil, eris.Errorf("%s in %s contains a non-scalar item at line %d", key, file, item.Line)
			}
			values = append(values, item.Value)
		}
		return values, nil
	default:
		return nil, eris.Errorf("%s in %s is neither a scalar nor a list", key, file)
	}
}

func yamlChild(node *yaml.Node, part string) (*yaml.Node, error) {
	switch node.Kind {
	case yaml.MappingNode:
		for idx := 0; idx+1 < len(node.Content); idx += 2 {
			if node.Content[idx].Value == part {
				return node.Content[idx+1], nil
			}
		}
		return nil, eris.Errorf("key %s not found", part)
	case yaml.SequenceNode:
		idx, err := strconv.Atoi(part)
		if err != nil || idx < 0 || idx >= len(node.Content) {
			return nil, eris.Errorf("invalid index %s", part)
		}
		return node.Content[idx], nil
	default:
		return nil, eris.Errorf("can't look up %s in a scalar", part)
	}
}
