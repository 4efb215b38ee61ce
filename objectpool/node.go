package objectpool

// Kind selects the sub-pool and reset routine of a Node.
type Kind string

const (
	KindSprite    Kind = "sprite"
	KindAnimated  Kind = "animated"
	KindContainer Kind = "container"
)

// Node is a lightweight render-graph wrapper.
//
// A Node only names the heavyweight resource it draws (ResourceKey); it never
// owns it. Acquiring and releasing the backing resource is the caller's job.
type Node struct {
	X, Y           float64
	ScaleX, ScaleY float64
	Rotation       float64
	Alpha          float64
	Visible        bool
	ZIndex         int

	// ResourceKey is the resource pool key of the backing resource.
	ResourceKey string

	// Animated nodes.
	Frames  []string
	Frame   int
	Playing bool

	// Container nodes.
	Children []*Node

	kind   Kind
	pooled bool
}

// Kind returns the node's kind.
func (n *Node) Kind() Kind { return n.kind }

// Reset restores the defined default state.
// Slices keep their capacity so a reused node does not reallocate.
func (n *Node) Reset() {
	n.X, n.Y = 0, 0
	n.ScaleX, n.ScaleY = 1, 1
	n.Rotation = 0
	n.Alpha = 1
	n.Visible = true
	n.ZIndex = 0
	n.ResourceKey = ""

	clear(n.Frames)
	n.Frames = n.Frames[:0]
	n.Frame = 0
	n.Playing = false

	clear(n.Children)
	n.Children = n.Children[:0]
}

// AddChild appends child to a container node.
func (n *Node) AddChild(child *Node) {
	n.Children = append(n.Children, child)
}

func newNode(kind Kind) *Node {
	n := &Node{kind: kind}
	n.Reset()
	return n
}
