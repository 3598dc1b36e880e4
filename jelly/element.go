// Package jelly はJIRA Jellyインポートスクリプトの組み立てと書き出しを行います
package jelly

import (
	"bytes"
	"encoding/xml"
	"io"
	"path/filepath"

	"github.com/pkg/errors"
	"github.com/spf13/afero"
)

const (
	// RootName はJellyドキュメントのルート要素名です
	RootName = "JiraJelly"
	// Namespace はJIRAタグライブラリの名前空間です
	Namespace = "jelly:com.atlassian.jira.jelly.JiraTagLib"
	// Prefix はディレクティブ要素に付ける名前空間プレフィックスです
	Prefix = "jira"
)

// Attr は属性名と値の組です
type Attr struct {
	Name  string
	Value string
}

// Element はJellyドキュメントの1要素です。属性は追加された順に出力されます
type Element struct {
	Name     string
	Attrs    []Attr
	Children []*Element
}

// Attr は指定した属性の値を返します
func (e *Element) Attr(name string) (string, bool) {
	for _, a := range e.Attrs {
		if a.Name == name {
			return a.Value, true
		}
	}
	return "", false
}

// NewRoot は名前空間宣言付きのルート要素を作成します
func NewRoot() *Element {
	return &Element{
		Name:  RootName,
		Attrs: []Attr{{Name: "xmlns:" + Prefix, Value: Namespace}},
	}
}

// Encode は要素ツリーを2スペースでインデントしたXMLとして書き出します
func Encode(w io.Writer, root *Element) error {
	enc := xml.NewEncoder(w)
	enc.Indent("", "  ")
	if err := encodeElement(enc, root); err != nil {
		return err
	}
	if err := enc.Flush(); err != nil {
		return errors.Wrap(err, "XMLのフラッシュに失敗しました")
	}
	_, err := io.WriteString(w, "\n")
	return err
}

func encodeElement(enc *xml.Encoder, e *Element) error {
	start := xml.StartElement{Name: xml.Name{Local: e.Name}}
	for _, a := range e.Attrs {
		start.Attr = append(start.Attr, xml.Attr{Name: xml.Name{Local: a.Name}, Value: a.Value})
	}
	if err := enc.EncodeToken(start); err != nil {
		return errors.Wrapf(err, "要素 %s の書き出しに失敗しました", e.Name)
	}
	for _, child := range e.Children {
		if err := encodeElement(enc, child); err != nil {
			return err
		}
	}
	if err := enc.EncodeToken(start.End()); err != nil {
		return errors.Wrapf(err, "要素 %s の終了タグの書き出しに失敗しました", e.Name)
	}
	return nil
}

// WriteFile はドキュメントをファイルに書き出します。既存ファイルは上書きされます
func WriteFile(fs afero.Fs, path string, root *Element) error {
	var buf bytes.Buffer
	if err := Encode(&buf, root); err != nil {
		return err
	}

	if dir := filepath.Dir(path); dir != "." {
		if err := fs.MkdirAll(dir, 0o755); err != nil {
			return errors.Wrapf(err, "出力ディレクトリの作成に失敗しました: %s", dir)
		}
	}
	if err := afero.WriteFile(fs, path, buf.Bytes(), 0o644); err != nil {
		return errors.Wrapf(err, "Jellyファイルの書き込みに失敗しました: %s", path)
	}
	return nil
}
