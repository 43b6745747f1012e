package catalog

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"skillcat/internal/domain"
)

const defaultFileMode = 0o644

type EditorErrorKind string

const (
	EditorErrorInvalidRequest EditorErrorKind = "invalid_request"
	EditorErrorRecordNotFound EditorErrorKind = "record_not_found"
	EditorErrorInvalidConfig  EditorErrorKind = "invalid_config"
)

type EditorError struct {
	Kind    EditorErrorKind
	Message string
	Err     error
}

func (e *EditorError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *EditorError) Unwrap() error {
	return e.Err
}

type ConfigInfo struct {
	Path       string
	IsWritable bool
}

// CatalogUpdate is a rendered catalog document waiting to be written.
type CatalogUpdate struct {
	Path string
	Data []byte
}

// RecommendUpdate holds partial recommend defaults. Nil fields are left as is.
type RecommendUpdate struct {
	Limit     *int
	Threshold *float64
}

// Editor rewrites a catalog file in place. Comments and key order survive
// edits; every rendered document is decoded before it is written.
type Editor struct {
	path   string
	loader *Loader
	logger *zap.Logger
}

func NewEditor(path string, logger *zap.Logger) *Editor {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Editor{
		path:   strings.TrimSpace(path),
		loader: NewLoader(logger),
		logger: logger.Named("catalog_editor"),
	}
}

func (e *Editor) Inspect(ctx context.Context) (ConfigInfo, error) {
	if e.path == "" {
		return ConfigInfo{}, &EditorError{Kind: EditorErrorInvalidRequest, Message: "Config path is required"}
	}
	if _, err := os.Stat(e.path); err != nil {
		return ConfigInfo{}, &EditorError{Kind: EditorErrorInvalidConfig, Message: "Config file not readable", Err: err}
	}
	return ConfigInfo{
		Path:       e.path,
		IsWritable: isWritable(e.path),
	}, nil
}

// SetRecordEnabled flips the enabled flag of one tool or skill.
func (e *Editor) SetRecordEnabled(ctx context.Context, kind domain.RecordKind, id string, enabled bool) error {
	id = strings.TrimSpace(id)
	if id == "" {
		return &EditorError{Kind: EditorErrorInvalidRequest, Message: "Record id is required"}
	}
	if kind != domain.RecordKindTool && kind != domain.RecordKindSkill {
		return &EditorError{Kind: EditorErrorInvalidRequest, Message: fmt.Sprintf("Unknown record kind %q", kind)}
	}

	update, err := e.edit(func(root *yaml.Node) error {
		return setRecordEnabled(root, kind, id, enabled)
	})
	if err != nil {
		return err
	}
	if err := e.write(ctx, update); err != nil {
		return err
	}
	e.logger.Info("record toggled",
		zap.String("kind", string(kind)),
		zap.String("id", id),
		zap.Bool("enabled", enabled),
	)
	return nil
}

// SetRecommendDefaults updates the recommend settings a running daemon can
// pick up without a restart.
func (e *Editor) SetRecommendDefaults(ctx context.Context, req RecommendUpdate) error {
	if req.Limit == nil && req.Threshold == nil {
		return &EditorError{Kind: EditorErrorInvalidRequest, Message: "Nothing to update"}
	}

	update, err := e.edit(func(root *yaml.Node) error {
		recommend := ensureMapping(root, "recommend")
		if req.Limit != nil {
			setScalar(recommend, "limit", "!!int", strconv.Itoa(*req.Limit))
		}
		if req.Threshold != nil {
			setScalar(recommend, "threshold", "!!float", strconv.FormatFloat(*req.Threshold, 'f', -1, 64))
		}
		return nil
	})
	if err != nil {
		return err
	}
	if err := e.write(ctx, update); err != nil {
		return err
	}
	e.logger.Info("recommend defaults updated")
	return nil
}

func (e *Editor) edit(mutate func(root *yaml.Node) error) (CatalogUpdate, error) {
	if e.path == "" {
		return CatalogUpdate{}, &EditorError{Kind: EditorErrorInvalidRequest, Message: "Config path is required"}
	}
	doc, err := loadCatalogDocument(e.path)
	if err != nil {
		return CatalogUpdate{}, &EditorError{Kind: EditorErrorInvalidConfig, Message: "Failed to read catalog", Err: err}
	}
	if err := mutate(documentRoot(doc)); err != nil {
		if errors.Is(err, domain.ErrRecordNotFound) {
			return CatalogUpdate{}, &EditorError{Kind: EditorErrorRecordNotFound, Message: "Record not found", Err: err}
		}
		return CatalogUpdate{}, &EditorError{Kind: EditorErrorInvalidConfig, Message: "Failed to update catalog", Err: err}
	}

	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(doc); err != nil {
		return CatalogUpdate{}, &EditorError{Kind: EditorErrorInvalidConfig, Message: "Failed to render catalog", Err: err}
	}
	if err := enc.Close(); err != nil {
		return CatalogUpdate{}, &EditorError{Kind: EditorErrorInvalidConfig, Message: "Failed to render catalog", Err: err}
	}
	return CatalogUpdate{Path: e.path, Data: buf.Bytes()}, nil
}

func (e *Editor) write(ctx context.Context, update CatalogUpdate) error {
	if _, err := e.loader.Decode(ctx, update.Data, update.Path); err != nil {
		return &EditorError{Kind: EditorErrorInvalidConfig, Message: "Updated catalog is invalid", Err: err}
	}
	if err := writeFileAtomic(update.Path, update.Data); err != nil {
		return &EditorError{Kind: EditorErrorInvalidConfig, Message: "Failed to write catalog", Err: err}
	}
	return nil
}

func loadCatalogDocument(path string) (*yaml.Node, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var doc yaml.Node
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("parse catalog: %w", err)
	}
	if doc.Kind == 0 {
		doc = yaml.Node{Kind: yaml.DocumentNode, Content: []*yaml.Node{{Kind: yaml.MappingNode, Tag: "!!map"}}}
	}
	if len(doc.Content) == 0 || doc.Content[0].Kind != yaml.MappingNode {
		return nil, errors.New("catalog root must be a mapping")
	}
	return &doc, nil
}

func documentRoot(doc *yaml.Node) *yaml.Node {
	return doc.Content[0]
}

func setRecordEnabled(root *yaml.Node, kind domain.RecordKind, id string, enabled bool) error {
	list := mappingValue(root, recordsKey(kind))
	if list == nil || list.Kind != yaml.SequenceNode {
		return fmt.Errorf("%w: %s/%s", domain.ErrRecordNotFound, kind, id)
	}
	// Later entries win on duplicate ids, so the last match is the live one.
	var target *yaml.Node
	for _, item := range list.Content {
		if item.Kind != yaml.MappingNode {
			continue
		}
		if value := mappingValue(item, "id"); value != nil && strings.TrimSpace(value.Value) == id {
			target = item
		}
	}
	if target == nil {
		return fmt.Errorf("%w: %s/%s", domain.ErrRecordNotFound, kind, id)
	}
	setScalar(target, "enabled", "!!bool", strconv.FormatBool(enabled))
	return nil
}

func recordsKey(kind domain.RecordKind) string {
	if kind == domain.RecordKindTool {
		return "tools"
	}
	return "skills"
}

func mappingValue(mapping *yaml.Node, key string) *yaml.Node {
	for i := 0; i+1 < len(mapping.Content); i += 2 {
		if mapping.Content[i].Value == key {
			return mapping.Content[i+1]
		}
	}
	return nil
}

func ensureMapping(parent *yaml.Node, key string) *yaml.Node {
	if existing := mappingValue(parent, key); existing != nil && existing.Kind == yaml.MappingNode {
		return existing
	}
	child := &yaml.Node{Kind: yaml.MappingNode, Tag: "!!map"}
	for i := 0; i+1 < len(parent.Content); i += 2 {
		if parent.Content[i].Value == key {
			parent.Content[i+1] = child
			return child
		}
	}
	parent.Content = append(parent.Content,
		&yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: key},
		child,
	)
	return child
}

func setScalar(mapping *yaml.Node, key, tag, value string) {
	for i := 0; i+1 < len(mapping.Content); i += 2 {
		if mapping.Content[i].Value == key {
			node := mapping.Content[i+1]
			node.Kind, node.Tag, node.Value, node.Style = yaml.ScalarNode, tag, value, 0
			node.Content = nil
			return
		}
	}
	mapping.Content = append(mapping.Content,
		&yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: key},
		&yaml.Node{Kind: yaml.ScalarNode, Tag: tag, Value: value},
	)
}

// writeFileAtomic replaces path via a sibling temp file so watchers never
// observe a half-written catalog.
func writeFileAtomic(path string, data []byte) error {
	mode := os.FileMode(defaultFileMode)
	if info, err := os.Stat(path); err == nil {
		mode = info.Mode().Perm()
	}
	tmp, err := os.CreateTemp(filepath.Dir(path), "."+filepath.Base(path)+".tmp-*")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	defer func() { _ = os.Remove(tmpName) }()

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		return err
	}
	if err := tmp.Chmod(mode); err != nil {
		_ = tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmpName, path)
}

func isWritable(path string) bool {
	file, err := os.OpenFile(path, os.O_WRONLY, 0)
	if err != nil {
		return false
	}
	_ = file.Close()
	return true
}
