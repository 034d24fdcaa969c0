package utils

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/iancoleman/orderedmap"
	"github.com/jedib0t/go-pretty/v6/table"
	"gopkg.in/yaml.v3"
)

const (
	FormatTable = "table"
	FormatJSON  = "json"
	FormatYAML  = "yaml"
)

/**
 * Convert a struct into an ordered map keeping the field order
 * @param {interface{}} v - Struct with json tags
 * @returns {*orderedmap.OrderedMap} Keys in declaration order
 */
func StructToOrderedMap(v interface{}) (*orderedmap.OrderedMap, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	om := orderedmap.New()
	if err := json.Unmarshal(data, om); err != nil {
		return nil, err
	}
	return om, nil
}

/**
 * Print records as a table, JSON or YAML
 * @param {io.Writer} w - Output
 * @param {string} format - table (default), json or yaml
 * @param {[]*orderedmap.OrderedMap} dataList - Records sharing the same keys
 * @returns {error} Unknown format or encoding error
 * @description
 * - Table headers come from the first record, upper-cased
 */
func PrintFormat(w io.Writer, format string, dataList []*orderedmap.OrderedMap) error {
	switch strings.ToLower(format) {
	case "", FormatTable:
		return printTable(w, dataList)
	case FormatJSON:
		if dataList == nil {
			dataList = []*orderedmap.OrderedMap{}
		}
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(dataList)
	case FormatYAML:
		doc := &yaml.Node{Kind: yaml.SequenceNode}
		for _, row := range dataList {
			node, err := orderedMapToNode(row)
			if err != nil {
				return err
			}
			doc.Content = append(doc.Content, node)
		}
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		defer enc.Close()
		return enc.Encode(doc)
	default:
		return fmt.Errorf("unknown output format '%s', expected table, json or yaml", format)
	}
}

func printTable(w io.Writer, dataList []*orderedmap.OrderedMap) error {
	if len(dataList) == 0 {
		return nil
	}
	keys := dataList[0].Keys()

	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.SetStyle(table.StyleLight)

	header := table.Row{}
	for _, k := range keys {
		header = append(header, strings.ToUpper(k))
	}
	t.AppendHeader(header)

	for _, row := range dataList {
		r := table.Row{}
		for _, k := range keys {
			v, _ := row.Get(k)
			r = append(r, formatCell(v))
		}
		t.AppendRow(r)
	}
	t.Render()
	return nil
}

func formatCell(v interface{}) string {
	switch val := v.(type) {
	case nil:
		return ""
	case float64:
		if val == float64(int64(val)) {
			return fmt.Sprintf("%d", int64(val))
		}
		return fmt.Sprintf("%g", val)
	case []interface{}:
		parts := make([]string, 0, len(val))
		for _, item := range val {
			parts = append(parts, formatCell(item))
		}
		return strings.Join(parts, ",")
	default:
		return fmt.Sprintf("%v", val)
	}
}

func orderedMapToNode(om *orderedmap.OrderedMap) (*yaml.Node, error) {
	node := &yaml.Node{Kind: yaml.MappingNode}
	for _, k := range om.Keys() {
		v, _ := om.Get(k)
		key := &yaml.Node{Kind: yaml.ScalarNode, Value: k}
		var value *yaml.Node
		if nested, ok := v.(orderedmap.OrderedMap); ok {
			n, err := orderedMapToNode(&nested)
			if err != nil {
				return nil, err
			}
			value = n
		} else {
			value = &yaml.Node{}
			if err := value.Encode(v); err != nil {
				return nil, err
			}
		}
		node.Content = append(node.Content, key, value)
	}
	return node, nil
}
