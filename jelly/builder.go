package jelly

import "github.com/pkg/errors"

// Builder はスコープ単位でディレクティブを積み上げてドキュメントを組み立てます
type Builder struct {
	root  *Element
	stack []*Element
}

// NewBuilder はルート要素を開いた状態のビルダーを作成します
func NewBuilder() *Builder {
	root := NewRoot()
	return &Builder{root: root, stack: []*Element{root}}
}

func (b *Builder) current() *Element {
	return b.stack[len(b.stack)-1]
}

// Depth は開いているスコープの深さを返します (ルートのみの場合は0)
func (b *Builder) Depth() int {
	return len(b.stack) - 1
}

// Add は現在のスコープに子要素を追加します
func (b *Builder) Add(d Directive) *Element {
	e := d.Element()
	parent := b.current()
	parent.Children = append(parent.Children, e)
	return e
}

// Open は要素を追加し、以降の要素をその子として追加するスコープを開きます
func (b *Builder) Open(d Directive) *Element {
	e := b.Add(d)
	b.stack = append(b.stack, e)
	return e
}

// Close は最後に開いたスコープを閉じます
func (b *Builder) Close() error {
	if len(b.stack) <= 1 {
		return errors.New("閉じるスコープがありません")
	}
	b.stack = b.stack[:len(b.stack)-1]
	return nil
}

// Within はスコープを開いて fn を実行し、fn の結果に関わらずスコープを閉じます
func (b *Builder) Within(d Directive, fn func() error) (err error) {
	b.Open(d)
	defer func() {
		if cerr := b.Close(); cerr != nil && err == nil {
			err = cerr
		}
	}()
	return fn()
}

// Document は完成したドキュメントのルートを返します
func (b *Builder) Document() (*Element, error) {
	if depth := b.Depth(); depth != 0 {
		return nil, errors.Errorf("閉じられていないスコープが %d 個あります", depth)
	}
	return b.root, nil
}
