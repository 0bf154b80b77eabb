package compiler

// scope is a persistent chain of bound names. Extending a scope never
// changes the scopes it was built from.
type scope struct {
	name   string
	to     string
	parent *scope
}

func (s *scope) bind(name string) *scope {
	return &scope{name: name, to: name, parent: s}
}

func (s *scope) bindAll(names []string) *scope {
	for _, n := range names {
		s = s.bind(n)
	}
	return s
}

func (s *scope) lookup(name string) *scope {
	for c := s; c != nil; c = c.parent {
		if c.name == name {
			return c
		}
	}
	return nil
}

func (s *scope) has(name string) bool {
	return s.lookup(name) != nil
}
