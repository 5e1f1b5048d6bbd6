package shopware

// Filter is one Admin API search filter.
type Filter struct {
	Type  string `json:"type"`
	Field string `json:"field"`
	Value any    `json:"value,omitempty"`
}

func EqualsAny(field string, values []string) Filter {
	return Filter{Type: "equalsAny", Field: field, Value: values}
}

func Equals(field string, val any) Filter {
	return Filter{Type: "equals", Field: field, Value: val}
}

func Prefix(field, prefix string) Filter {
	return Filter{Type: "prefix", Field: field, Value: prefix}
}

// Criteria is the body of an Admin API search.
type Criteria struct {
	IDs          []string             `json:"ids,omitempty"`
	Filters      []Filter             `json:"filter,omitempty"`
	Associations map[string]*Criteria `json:"associations,omitempty"`
	Limit        int                  `json:"limit,omitempty"`
	Page         int                  `json:"page,omitempty"`
}

func NewCriteria(ids ...string) *Criteria {
	return &Criteria{IDs: ids}
}

func (c *Criteria) AddFilter(filters ...Filter) *Criteria {
	c.Filters = append(c.Filters, filters...)
	return c
}

// AddAssociation loads the named association and returns its criteria so it
// can be narrowed further.
func (c *Criteria) AddAssociation(name string) *Criteria {
	if c.Associations == nil {
		c.Associations = map[string]*Criteria{}
	}
	if existing, ok := c.Associations[name]; ok {
		return existing
	}
	assoc := &Criteria{}
	c.Associations[name] = assoc
	return assoc
}

func (c *Criteria) HasAssociation(name string) bool {
	_, ok := c.Associations[name]
	return ok
}

func (c *Criteria) clone() *Criteria {
	next := *c
	next.IDs = append([]string(nil), c.IDs...)
	next.Filters = append([]Filter(nil), c.Filters...)
	if c.Associations != nil {
		next.Associations = make(map[string]*Criteria, len(c.Associations))
		for name, assoc := range c.Associations {
			next.Associations[name] = assoc.clone()
		}
	}
	return &next
}
