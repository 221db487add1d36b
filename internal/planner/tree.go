package planner

import "iter"

const nilNode = -1

type treeNode struct {
	task        *Task
	left, right int
}

// OrderTree is a binary search tree over tasks keyed by (priority, deadline).
// Nodes live in a slice and reference each other by index. Equal keys go
// right, so in-order traversal preserves insertion order among ties and
// matches OrderTasks. The tree is not rebalanced.
type OrderTree struct {
	nodes []treeNode
	root  int
}

// NewOrderTree inserts tasks in the given order.
func NewOrderTree(tasks ...*Task) *OrderTree {
	t := &OrderTree{root: nilNode}
	for _, task := range tasks {
		t.Insert(task)
	}
	return t
}

// Insert adds task. Equal keys go to the right, so insertion order is kept among ties.
func (t *OrderTree) Insert(task *Task) {
	idx := len(t.nodes)
	t.nodes = append(t.nodes, treeNode{task: task, left: nilNode, right: nilNode})
	if t.root == nilNode {
		t.root = idx
		return
	}
	cur := t.root
	for {
		node := &t.nodes[cur]
		if less(task, node.task) {
			if node.left == nilNode {
				node.left = idx
				return
			}
			cur = node.left
			continue
		}
		if node.right == nilNode {
			node.right = idx
			return
		}
		cur = node.right
	}
}

func (t *OrderTree) Len() int {
	return len(t.nodes)
}

// All yields tasks in placement order.
func (t *OrderTree) All() iter.Seq[*Task] {
	return func(yield func(*Task) bool) {
		stack := make([]int, 0, 16)
		cur := t.root
		for cur != nilNode || len(stack) > 0 {
			for cur != nilNode {
				stack = append(stack, cur)
				cur = t.nodes[cur].left
			}
			cur = stack[len(stack)-1]
			stack = stack[:len(stack)-1]
			if !yield(t.nodes[cur].task) {
				return
			}
			cur = t.nodes[cur].right
		}
	}
}

// Tasks returns the in-order traversal as a slice.
func (t *OrderTree) Tasks() []*Task {
	out := make([]*Task, 0, len(t.nodes))
	for task := range t.All() {
		out = append(out, task)
	}
	return out
}
