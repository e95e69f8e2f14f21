package exec

// Project copies the fields at keepCols, in the order given, from its
// child's output into a narrower output tuple.
type Project struct {
	child    Operator
	keepCols []int
}

func NewProject(child Operator, keepCols []int) *Project {
	return &Project{child: child, keepCols: keepCols}
}

func (p *Project) Open() error { return p.child.Open() }

func (p *Project) Next() (Tuple, bool, error) {
	in, ok, err := p.child.Next()
	if err != nil || !ok {
		return nil, false, err
	}
	out := make(Tuple, len(p.keepCols))
	for i, c := range p.keepCols {
		out[i] = in[c]
	}
	return out, true, nil
}

func (p *Project) Close() error { return p.child.Close() }
