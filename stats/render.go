package stats

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/zintix-labs/wrand/errs"
	"gopkg.in/yaml.v3"
)

// Tabler 可輸出為文字表格的報告
type Tabler interface {
	Table() string
}

// Render 定義輸出行為
type Render interface {
	Write(w io.Writer, v any) error
}

// Json渲染
type JsonRender struct{}

func (jr *JsonRender) Write(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// YAMLRender 輸出 YAML；只含純量的序列以 flow style ([a, b]) 收成一行。
type YAMLRender struct{}

func (yr *YAMLRender) Write(w io.Writer, v any) error {
	var node yaml.Node
	if err := node.Encode(v); err != nil {
		return fmt.Errorf("yaml encode: %w", err)
	}
	flowScalars(&node)
	enc := yaml.NewEncoder(w)
	defer enc.Close()
	return enc.Encode(&node)
}

// 表格渲染，v 必須實作 Tabler
type TableRender struct{}

func (tr *TableRender) Write(w io.Writer, v any) error {
	t, ok := v.(Tabler)
	if !ok {
		return errs.Warnf("table render: %T is not a table", v)
	}
	_, err := io.WriteString(w, t.Table())
	return err
}

// RenderFor 依格式名稱 (table / yaml / json) 取得 Render
func RenderFor(format string) (Render, error) {
	switch strings.ToLower(format) {
	case "", "table":
		return &TableRender{}, nil
	case "yaml", "yml":
		return &YAMLRender{}, nil
	case "json":
		return &JsonRender{}, nil
	default:
		return nil, errs.Warnf("unknown report format: %s", format)
	}
}

// flowScalars 回報 n 是否為純量；序列的子節點全為純量時改為 flow style。
func flowScalars(n *yaml.Node) bool {
	if n == nil {
		return true
	}
	flat := true
	for _, c := range n.Content {
		if !flowScalars(c) {
			flat = false
		}
	}
	switch n.Kind {
	case yaml.SequenceNode:
		if flat {
			n.Style = yaml.FlowStyle
		}
		return false
	case yaml.MappingNode, yaml.DocumentNode:
		return false
	}
	return true
}
