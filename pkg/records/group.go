package records

// Group holds the records sharing a key plus tallies by a secondary classifier.
type Group struct {
	Key     string
	Records []Record
	Counts  map[string]int
	// CountKeys lists Counts keys in first-occurrence order.
	CountKeys []string
}

// Len returns the number of records in the group.
func (g *Group) Len() int {
	if g == nil {
		return 0
	}
	return len(g.Records)
}

// Groups is an ordered collection of groups.
type Groups struct {
	keys   []string
	groups map[string]*Group
}

// Keys returns group keys in iteration order.
func (g *Groups) Keys() []string {
	if g == nil {
		return nil
	}
	return append([]string(nil), g.keys...)
}

// Get returns the group stored under key.
func (g *Groups) Get(key string) (*Group, bool) {
	if g == nil {
		return nil, false
	}
	group, ok := g.groups[key]
	return group, ok
}

// List returns the groups in iteration order.
func (g *Groups) List() []*Group {
	if g == nil {
		return nil
	}
	out := make([]*Group, 0, len(g.keys))
	for _, k := range g.keys {
		out = append(out, g.groups[k])
	}
	return out
}

// Len returns the number of groups.
func (g *Groups) Len() int {
	if g == nil {
		return 0
	}
	return len(g.keys)
}

type groupConfig struct {
	counts   KeyFunc
	priority []string
}

// GroupOption customizes GroupBy.
type GroupOption func(*groupConfig)

// WithCounts tallies records inside every group by a second classifier
// (commonly severity) for badge display.
func WithCounts(key KeyFunc) GroupOption {
	return func(c *groupConfig) {
		c.counts = key
	}
}

// WithPriority fixes the group order (e.g. critical, high, medium, low, info).
// Empty groups are omitted; keys outside the list follow in first-occurrence order.
func WithPriority(order ...string) GroupOption {
	return func(c *groupConfig) {
		c.priority = append([]string(nil), order...)
	}
}

// GroupBy buckets records by key. Records keep their relative order inside a
// group and groups iterate in first-occurrence order unless WithPriority is given.
func GroupBy(list []Record, key KeyFunc, opts ...GroupOption) *Groups {
	cfg := groupConfig{}
	for _, opt := range opts {
		opt(&cfg)
	}
	out := &Groups{groups: map[string]*Group{}}
	if key == nil {
		return out
	}
	var seen []string
	for _, r := range list {
		k := key(r)
		group, ok := out.groups[k]
		if !ok {
			group = &Group{Key: k, Counts: map[string]int{}}
			out.groups[k] = group
			seen = append(seen, k)
		}
		group.Records = append(group.Records, r)
		if cfg.counts != nil {
			sub := cfg.counts(r)
			if _, ok := group.Counts[sub]; !ok {
				group.CountKeys = append(group.CountKeys, sub)
			}
			group.Counts[sub]++
		}
	}
	out.keys = applyPriority(seen, cfg.priority)
	return out
}

func applyPriority(keys []string, order []string) []string {
	if len(order) == 0 {
		return keys
	}
	present := make(map[string]struct{}, len(keys))
	for _, k := range keys {
		present[k] = struct{}{}
	}
	result := make([]string, 0, len(keys))
	placed := make(map[string]struct{}, len(order))
	for _, k := range order {
		if _, ok := present[k]; !ok {
			continue
		}
		if _, dup := placed[k]; dup {
			continue
		}
		result = append(result, k)
		placed[k] = struct{}{}
	}
	for _, k := range keys {
		if _, ok := placed[k]; !ok {
			result = append(result, k)
		}
	}
	return result
}

// Tally is a key and its record count.
type Tally struct {
	Key   string `json:"key"`
	Count int    `json:"count"`
}

// Count tallies records by key, in first-occurrence order or the given priority.
func Count(list []Record, key KeyFunc, priority ...string) []Tally {
	groups := GroupBy(list, key, WithPriority(priority...))
	out := make([]Tally, 0, groups.Len())
	for _, g := range groups.List() {
		out = append(out, Tally{Key: g.Key, Count: len(g.Records)})
	}
	return out
}
