package seed

import (
	"bytes"
	_ "embed"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"
	"unicode/utf8"

	"gopkg.in/yaml.v3"

	"github.com/pcprep/pcprep-api/internal/domain"
)

//go:embed templates/sac_ps.yaml
var sacPSTemplate []byte

var (
	ErrInvalidTemplate = errors.New("invalid stock template")
)

// TemplateNode is the YAML shape of a stock subtree.
type TemplateNode struct {
	Name       string         `yaml:"name"`
	Type       string         `yaml:"type"`
	Quantity   *int           `yaml:"quantity,omitempty"`
	ExpiryDate string         `yaml:"expiry_date,omitempty"`
	Children   []TemplateNode `yaml:"children,omitempty"`
}

func Parse(r io.Reader) (TemplateNode, error) {
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)

	var root TemplateNode
	if err := dec.Decode(&root); err != nil {
		return TemplateNode{}, fmt.Errorf("%w: %v", ErrInvalidTemplate, err)
	}

	return root, nil
}

// Default returns the built-in first-aid bag template.
func Default() TemplateNode {
	root, err := Parse(bytes.NewReader(sacPSTemplate))
	if err != nil {
		panic(err)
	}

	return root
}

// StockNode converts the template into a nested stock node rooted at level.
func (t TemplateNode) StockNode(level int) (domain.StockNode, error) {
	name := strings.TrimSpace(t.Name)
	if name == "" {
		return domain.StockNode{}, fmt.Errorf("%w: node without a name", ErrInvalidTemplate)
	}
	if utf8.RuneCountInString(name) > domain.MaxNameLength {
		return domain.StockNode{}, fmt.Errorf("%w: node name longer than %d characters", ErrInvalidTemplate, domain.MaxNameLength)
	}
	if level > domain.MaxLevel {
		return domain.StockNode{}, fmt.Errorf("%w: %q is deeper than %d levels", ErrInvalidTemplate, name, domain.MaxLevel)
	}

	node := domain.StockNode{
		Name:  name,
		Type:  domain.NodeType(strings.ToUpper(t.Type)),
		Level: level,
	}

	switch node.Type {
	case domain.NodeItem:
		if len(t.Children) > 0 {
			return domain.StockNode{}, fmt.Errorf("%w: item %q has children", ErrInvalidTemplate, name)
		}
		if t.Quantity == nil || *t.Quantity < 0 {
			return domain.StockNode{}, fmt.Errorf("%w: item %q needs a quantity", ErrInvalidTemplate, name)
		}
		qty := *t.Quantity
		node.Quantity = &qty

		if t.ExpiryDate != "" {
			expiry, err := time.Parse(time.DateOnly, t.ExpiryDate)
			if err != nil {
				return domain.StockNode{}, fmt.Errorf("%w: item %q: %v", ErrInvalidTemplate, name, err)
			}
			node.ExpiryDate = &expiry
		}
	case domain.NodeGroup:
		if t.Quantity != nil {
			return domain.StockNode{}, fmt.Errorf("%w: group %q cannot have a quantity", ErrInvalidTemplate, name)
		}
		for _, c := range t.Children {
			child, err := c.StockNode(level + 1)
			if err != nil {
				return domain.StockNode{}, err
			}
			node.Children = append(node.Children, child)
		}
	default:
		return domain.StockNode{}, fmt.Errorf("%w: unknown type %q", ErrInvalidTemplate, t.Type)
	}

	return node, nil
}
