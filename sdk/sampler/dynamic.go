// Copyright 2025 Zintix Labs
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package sampler

import (
	"cmp"
	"fmt"
	"iter"
	"math"
	"math/bits"
)

// nilIdx 表示空節點
const nilIdx int32 = -1

// treeNode 是 arena 中的一個 AVL 節點，子節點與父節點以索引互相參照。
//
// 不變量：subtree == weight + subtree(left) + subtree(right)
type treeNode[K any] struct {
	key     K
	weight  int
	subtree int64
	left    int32
	right   int32
	parent  int32
	height  int32
}

// Dynamic 是帶子樹權重的 AVL 樹抽樣器。
//
// 每個節點額外記錄整棵子樹的權重總和；抽樣時由根往下，
// 依 [0, TotalWeight) 的亂數落在「左子樹 / 自己 / 右子樹」哪一段決定走向。
//
//   - Add / Remove / SetWeight / GetWeight：O(log n)
//   - NextWithReplacement / NextWithRemoval：O(log n)
//
// 所有旋轉都在 O(1) 內由子節點重算 subtree，任何操作結束後每個節點的不變量都成立。
// 節點存放於 arena (slice)，釋放的位置由 free list 回收。
type Dynamic[K comparable] struct {
	cfg   options
	check validator[K]
	cmp   func(a, b K) int

	nodes []treeNode[K]
	free  []int32
	root  int32
	count int
}

var _ Randomizer[int] = (*Dynamic[int])(nil)

// NewDynamic 以 K 的自然順序建立 Dynamic 抽樣器
func NewDynamic[K cmp.Ordered](opts ...Option) *Dynamic[K] {
	return NewDynamicFunc[K](cmp.Compare[K], opts...)
}

// NewDynamicFunc 以自訂比較函數建立 Dynamic 抽樣器；compare 必須是全序。
func NewDynamicFunc[K comparable](compare func(a, b K) int, opts ...Option) *Dynamic[K] {
	return &Dynamic[K]{
		cfg:   buildOptions(opts),
		check: newValidator[K](),
		cmp:   compare,
		root:  nilIdx,
	}
}

func (d *Dynamic[K]) Count() int { return d.count }

func (d *Dynamic[K]) TotalWeight() int64 { return d.sum(d.root) }

func (d *Dynamic[K]) Contains(key K) bool {
	if d.check.key(key) != nil {
		return false
	}
	return d.find(key) != nilIdx
}

func (d *Dynamic[K]) Clear() {
	clear(d.nodes)
	d.nodes = d.nodes[:0]
	d.free = d.free[:0]
	d.root = nilIdx
	d.count = 0
}

func (d *Dynamic[K]) AddOne(key K) error {
	return d.Add(key, 1)
}

func (d *Dynamic[K]) Add(key K, weight int) error {
	if err := d.check.key(key); err != nil {
		return err
	}
	if err := d.check.weight(key, weight); err != nil {
		return err
	}
	if _, err := addTotal(d.TotalWeight(), int64(weight)); err != nil {
		return err
	}

	// 先找插入位置，重複 key 在任何結構變動前就回報
	parent, c := nilIdx, 0
	for n := d.root; n != nilIdx; {
		parent = n
		c = d.cmp(key, d.nodes[n].key)
		switch {
		case c < 0:
			n = d.nodes[n].left
		case c > 0:
			n = d.nodes[n].right
		default:
			return duplicate(key)
		}
	}

	n := d.alloc(key, weight, parent)
	switch {
	case parent == nilIdx:
		d.root = n
	case c < 0:
		d.nodes[parent].left = n
	default:
		d.nodes[parent].right = n
	}
	d.count++
	d.fixUp(parent)
	return nil
}

func (d *Dynamic[K]) Remove(key K) bool {
	if d.check.key(key) != nil {
		return false
	}
	n := d.find(key)
	if n == nilIdx {
		return false
	}
	d.delete(n)
	return true
}

func (d *Dynamic[K]) GetWeight(key K) (int, error) {
	if err := d.check.key(key); err != nil {
		return 0, err
	}
	n := d.find(key)
	if n == nilIdx {
		return 0, notFound(key)
	}
	return d.nodes[n].weight, nil
}

func (d *Dynamic[K]) SetWeight(key K, weight int) error {
	if err := d.check.key(key); err != nil {
		return err
	}
	if err := d.check.weight(key, weight); err != nil {
		return err
	}
	n := d.find(key)
	if weight == 0 {
		if n != nilIdx {
			d.delete(n)
		}
		return nil
	}
	if n == nilIdx {
		return d.Add(key, weight)
	}
	delta := int64(weight - d.nodes[n].weight)
	if _, err := addTotal(d.TotalWeight(), delta); err != nil {
		return err
	}
	// 權重變化只影響自己與所有祖先的 subtree，樹的形狀不變
	d.nodes[n].weight = weight
	for p := n; p != nilIdx; p = d.nodes[p].parent {
		d.nodes[p].subtree += delta
	}
	return nil
}

func (d *Dynamic[K]) NextWithReplacement() (K, error) {
	n, err := d.pick()
	if err != nil {
		var zero K
		return zero, err
	}
	return d.nodes[n].key, nil
}

func (d *Dynamic[K]) NextWithRemoval() (K, error) {
	n, err := d.pick()
	if err != nil {
		var zero K
		return zero, err
	}
	key := d.nodes[n].key
	d.delete(n)
	return key, nil
}

// Keys 依 key 的順序 (中序) 走訪；合約本身不保證順序。
func (d *Dynamic[K]) Keys() iter.Seq[K] {
	return func(yield func(K) bool) {
		d.inorder(func(n int32) bool { return yield(d.nodes[n].key) })
	}
}

func (d *Dynamic[K]) All() iter.Seq2[K, int] {
	return func(yield func(K, int) bool) {
		d.inorder(func(n int32) bool { return yield(d.nodes[n].key, d.nodes[n].weight) })
	}
}

// Height 回傳樹高，空樹為 0
func (d *Dynamic[K]) Height() int {
	return int(d.height(d.root))
}

// -----------------------------------------------------------------------------
// 抽樣
// -----------------------------------------------------------------------------

// pick 抽出 r ∈ [0, total)，由根往下：
// r < 左子樹權重 → 往左；否則扣掉左子樹，r < 自身權重 → 命中；否則再扣掉自身往右。
func (d *Dynamic[K]) pick() (int32, error) {
	total := d.TotalWeight()
	if d.count == 0 || total == 0 {
		return nilIdx, empty(d.count)
	}
	r := d.cfg.core.Int64N(total)
	n := d.root
	for n != nilIdx {
		nd := &d.nodes[n]
		lw := d.sum(nd.left)
		if r < lw {
			n = nd.left
			continue
		}
		r -= lw
		if r < int64(nd.weight) {
			return n, nil
		}
		r -= int64(nd.weight)
		n = nd.right
	}
	// r < total 且 subtree 不變量成立時不會走到這裡
	panic(fmt.Sprintf("sampler: dynamic tree descent fell off (total=%d)", total))
}

// -----------------------------------------------------------------------------
// 樹的結構操作
// -----------------------------------------------------------------------------

func (d *Dynamic[K]) alloc(key K, weight int, parent int32) int32 {
	nd := treeNode[K]{
		key:     key,
		weight:  weight,
		subtree: int64(weight),
		left:    nilIdx,
		right:   nilIdx,
		parent:  parent,
		height:  1,
	}
	if k := len(d.free); k > 0 {
		n := d.free[k-1]
		d.free = d.free[:k-1]
		d.nodes[n] = nd
		return n
	}
	if len(d.nodes) >= math.MaxInt32 {
		panic("sampler: dynamic tree arena is full")
	}
	d.nodes = append(d.nodes, nd)
	return int32(len(d.nodes) - 1)
}

func (d *Dynamic[K]) release(n int32) {
	d.nodes[n] = treeNode[K]{left: nilIdx, right: nilIdx, parent: nilIdx}
	d.free = append(d.free, n)
}

func (d *Dynamic[K]) find(key K) int32 {
	n := d.root
	for n != nilIdx {
		c := d.cmp(key, d.nodes[n].key)
		switch {
		case c < 0:
			n = d.nodes[n].left
		case c > 0:
			n = d.nodes[n].right
		default:
			return n
		}
	}
	return nilIdx
}

// delete 移除節點 z。
//
// z 有兩個子節點時，把後繼節點 s 的 key / weight 搬到 z，改為移除 s；
// s 最多只有一個右子節點，直接接到 s 的父節點。
// 之後由被移除位置的父節點往上重算 subtree / height 並重新平衡，
// 路徑必定經過 z，因此 z 搬入的新權重也會被正確計入。
func (d *Dynamic[K]) delete(z int32) {
	y := z
	if d.nodes[z].left != nilIdx && d.nodes[z].right != nilIdx {
		y = d.nodes[z].right
		for d.nodes[y].left != nilIdx {
			y = d.nodes[y].left
		}
		d.nodes[z].key = d.nodes[y].key
		d.nodes[z].weight = d.nodes[y].weight
	}

	child := d.nodes[y].left
	if child == nilIdx {
		child = d.nodes[y].right
	}
	parent := d.nodes[y].parent
	if child != nilIdx {
		d.nodes[child].parent = parent
	}
	d.replaceChild(parent, y, child)
	d.release(y)
	d.count--
	d.fixUp(parent)
}

// fixUp 由 n 往根走，逐層重算並在失衡時旋轉。
func (d *Dynamic[K]) fixUp(n int32) {
	for n != nilIdx {
		d.update(n)
		n = d.rebalance(n)
		n = d.nodes[n].parent
	}
}

// update 由子節點 O(1) 重算 n 的 height 與 subtree
func (d *Dynamic[K]) update(n int32) {
	nd := &d.nodes[n]
	nd.height = 1 + max(d.height(nd.left), d.height(nd.right))
	nd.subtree = int64(nd.weight) + d.sum(nd.left) + d.sum(nd.right)
}

// rebalance 回傳旋轉後此子樹的新根
func (d *Dynamic[K]) rebalance(n int32) int32 {
	bf := d.balance(n)
	switch {
	case bf > 1:
		if d.balance(d.nodes[n].left) < 0 {
			d.rotateLeft(d.nodes[n].left)
		}
		return d.rotateRight(n)
	case bf < -1:
		if d.balance(d.nodes[n].right) > 0 {
			d.rotateRight(d.nodes[n].right)
		}
		return d.rotateLeft(n)
	default:
		return n
	}
}

//	  x                y
//	 / \              / \
//	a   y     =>     x   c
//	   / \          / \
//	  b   c        a   b
func (d *Dynamic[K]) rotateLeft(x int32) int32 {
	y := d.nodes[x].right
	b := d.nodes[y].left

	d.nodes[x].right = b
	if b != nilIdx {
		d.nodes[b].parent = x
	}
	p := d.nodes[x].parent
	d.nodes[y].parent = p
	d.replaceChild(p, x, y)
	d.nodes[y].left = x
	d.nodes[x].parent = y

	// x 先 (現在是 y 的子節點)，y 後
	d.update(x)
	d.update(y)
	return y
}

//	    y            x
//	   / \          / \
//	  x   c   =>   a   y
//	 / \              / \
//	a   b            b   c
func (d *Dynamic[K]) rotateRight(y int32) int32 {
	x := d.nodes[y].left
	b := d.nodes[x].right

	d.nodes[y].left = b
	if b != nilIdx {
		d.nodes[b].parent = y
	}
	p := d.nodes[y].parent
	d.nodes[x].parent = p
	d.replaceChild(p, y, x)
	d.nodes[x].right = y
	d.nodes[y].parent = x

	d.update(y)
	d.update(x)
	return x
}

func (d *Dynamic[K]) replaceChild(parent, old, repl int32) {
	switch {
	case parent == nilIdx:
		d.root = repl
	case d.nodes[parent].left == old:
		d.nodes[parent].left = repl
	default:
		d.nodes[parent].right = repl
	}
}

func (d *Dynamic[K]) height(n int32) int32 {
	if n == nilIdx {
		return 0
	}
	return d.nodes[n].height
}

func (d *Dynamic[K]) sum(n int32) int64 {
	if n == nilIdx {
		return 0
	}
	return d.nodes[n].subtree
}

func (d *Dynamic[K]) balance(n int32) int32 {
	if n == nilIdx {
		return 0
	}
	return d.height(d.nodes[n].left) - d.height(d.nodes[n].right)
}

// inorder 以顯式堆疊做中序走訪，fn 回傳 false 時停止
func (d *Dynamic[K]) inorder(fn func(n int32) bool) {
	stack := make([]int32, 0, d.height(d.root))
	n := d.root
	for n != nilIdx || len(stack) > 0 {
		for n != nilIdx {
			stack = append(stack, n)
			n = d.nodes[n].left
		}
		n = stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if !fn(n) {
			return
		}
		n = d.nodes[n].right
	}
}

// verify 驗證整棵樹：BST 順序、父子連結、height、AVL 平衡、subtree 權重、
// 節點數，以及樹高上界 2*ceil(log2(n)+1)。供測試使用。
func (d *Dynamic[K]) verify() error {
	if d.root != nilIdx && d.nodes[d.root].parent != nilIdx {
		return fmt.Errorf("root %d has parent %d", d.root, d.nodes[d.root].parent)
	}
	seen := 0
	var walk func(n int32) (int32, int64, error)
	walk = func(n int32) (int32, int64, error) {
		if n == nilIdx {
			return 0, 0, nil
		}
		seen++
		nd := d.nodes[n]
		for _, c := range []int32{nd.left, nd.right} {
			if c != nilIdx && d.nodes[c].parent != n {
				return 0, 0, fmt.Errorf("node %v: child %v has wrong parent", nd.key, d.nodes[c].key)
			}
		}
		if nd.left != nilIdx && d.cmp(d.nodes[nd.left].key, nd.key) >= 0 {
			return 0, 0, fmt.Errorf("node %v: left child %v out of order", nd.key, d.nodes[nd.left].key)
		}
		if nd.right != nilIdx && d.cmp(d.nodes[nd.right].key, nd.key) <= 0 {
			return 0, 0, fmt.Errorf("node %v: right child %v out of order", nd.key, d.nodes[nd.right].key)
		}
		lh, lw, err := walk(nd.left)
		if err != nil {
			return 0, 0, err
		}
		rh, rw, err := walk(nd.right)
		if err != nil {
			return 0, 0, err
		}
		if nd.weight < 0 {
			return 0, 0, fmt.Errorf("node %v: negative weight %d", nd.key, nd.weight)
		}
		if want := int64(nd.weight) + lw + rw; nd.subtree != want {
			return 0, 0, fmt.Errorf("node %v: subtree %d, want %d", nd.key, nd.subtree, want)
		}
		if want := 1 + max(lh, rh); nd.height != want {
			return 0, 0, fmt.Errorf("node %v: height %d, want %d", nd.key, nd.height, want)
		}
		if bf := lh - rh; bf > 1 || bf < -1 {
			return 0, 0, fmt.Errorf("node %v: unbalanced (%d)", nd.key, bf)
		}
		return nd.height, nd.subtree, nil
	}
	h, _, err := walk(d.root)
	if err != nil {
		return err
	}
	if seen != d.count {
		return fmt.Errorf("reachable nodes %d, count %d", seen, d.count)
	}
	if seen+len(d.free) != len(d.nodes) {
		return fmt.Errorf("arena leak: %d reachable + %d free != %d", seen, len(d.free), len(d.nodes))
	}
	if d.count > 0 {
		// ceil(log2(n)) == bits.Len(n-1)
		if bound := 2 * (bits.Len(uint(d.count-1)) + 1); int(h) > bound {
			return fmt.Errorf("height %d exceeds bound %d for %d nodes", h, bound, d.count)
		}
	}
	return nil
}
