package exec

// Select filters its child's output against predicate, tracking
// tuples-seen and tuples-selected for selectivity reporting.
type Select struct {
	child     Operator
	predicate func(Tuple) bool

	seen     int
	selected int
}

func NewSelect(child Operator, predicate func(Tuple) bool) *Select {
	return &Select{child: child, predicate: predicate}
}

func (s *Select) Open() error {
	s.seen, s.selected = 0, 0
	return s.child.Open()
}

func (s *Select) Next() (Tuple, bool, error) {
	for {
		t, ok, err := s.child.Next()
		if err != nil || !ok {
			return nil, false, err
		}
		s.seen++
		if s.predicate(t) {
			s.selected++
			return t, true, nil
		}
	}
}

func (s *Select) Close() error { return s.child.Close() }

// Seen returns the number of tuples pulled from the child so far.
func (s *Select) Seen() int { return s.seen }

// Passed returns the number of tuples that satisfied the predicate so far.
func (s *Select) Passed() int { return s.selected }

// Selectivity returns Passed/Seen, or 0 if no tuples have been seen yet.
func (s *Select) Selectivity() float64 {
	if s.seen == 0 {
		return 0
	}
	return float64(s.selected) / float64(s.seen)
}
