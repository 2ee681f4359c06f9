package seed

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pcprep/pcprep-api/internal/domain"
)

func TestDefault(t *testing.T) {
	root := Default()

	node, err := root.StockNode(1)
	require.NoError(t, err)

	assert.Equal(t, "MODELE SAC PS", node.Name)
	assert.Equal(t, domain.NodeGroup, node.Type)
	require.Len(t, node.Children, 3)
	assert.Equal(t, "Poche trauma", node.Children[0].Name)
	assert.Equal(t, 2, node.Children[0].Level)
	require.Len(t, node.Children[0].Children, 3)
	assert.Equal(t, 20, *node.Children[0].Children[0].Quantity)
	assert.Equal(t, 3, node.Children[0].Children[0].Level)
}

func TestParse_Invalid(t *testing.T) {
	tests := map[string]string{
		"unknown field":         "name: A\ntype: GROUP\ncolour: red\n",
		"item without quantity": "name: A\ntype: GROUP\nchildren:\n  - name: B\n    type: ITEM\n",
		"group with quantity":   "name: A\ntype: GROUP\nquantity: 3\n",
		"bad type":              "name: A\ntype: BOX\n",
		"bad expiry":            "name: A\ntype: GROUP\nchildren:\n  - {name: B, type: ITEM, quantity: 1, expiry_date: tomorrow}\n",
		"long name":             "name: " + strings.Repeat("é", 121) + "\ntype: GROUP\n",
		"too deep":              "name: L1\ntype: GROUP\nchildren:\n- name: L2\n  type: GROUP\n  children:\n  - name: L3\n    type: GROUP\n    children:\n    - name: L4\n      type: GROUP\n      children:\n      - name: L5\n        type: GROUP\n        children:\n        - {name: L6, type: ITEM, quantity: 1}\n",
	}

	for name, doc := range tests {
		t.Run(name, func(t *testing.T) {
			tmpl, err := Parse(strings.NewReader(doc))
			if err == nil {
				_, err = tmpl.StockNode(1)
			}
			assert.ErrorIs(t, err, ErrInvalidTemplate)
		})
	}
}

func TestParse_ExpiryDate(t *testing.T) {
	tmpl, err := Parse(strings.NewReader("name: Trousse\ntype: group\nchildren:\n  - {name: Sérum, type: item, quantity: 2, expiry_date: 2027-01-31}\n"))
	require.NoError(t, err)

	node, err := tmpl.StockNode(2)
	require.NoError(t, err)
	require.NotNil(t, node.Children[0].ExpiryDate)
	assert.Equal(t, "2027-01-31", node.Children[0].ExpiryDate.Format("2006-01-02"))
	assert.Equal(t, 3, node.Children[0].Level)
}
