package match

// Partition splits the source ids of a match collection into those asserted
// against exactly one target and those asserted against two or more.
type Partition struct {
	// Unambiguous holds one (source, target) per unambiguous source in order of first appearance.
	Unambiguous []Match `json:"unambiguous"`
	// Ambiguous holds the ambiguous source ids in order of first appearance.
	Ambiguous []string `json:"ambiguous"`

	lookup    map[string]string
	ambiguous map[string]struct{}
}

// Resolve partitions matches. A source is ambiguous iff at least two distinct
// targets appear for it anywhere in matches.
func Resolve(matches []Match) Partition {
	// tombstoned entries keep their slot so output order follows first appearance
	type slot struct {
		target    string
		tombstone bool
	}
	order := make([]string, 0, len(matches))
	working := make(map[string]*slot, len(matches))

	for _, m := range matches {
		s, seen := working[m.SourceID]
		if !seen {
			working[m.SourceID] = &slot{target: m.TargetID}
			order = append(order, m.SourceID)
			continue
		}
		if !s.tombstone && s.target != m.TargetID {
			s.tombstone = true
		}
	}

	p := Partition{
		Unambiguous: make([]Match, 0, len(order)),
		Ambiguous:   make([]string, 0),
		lookup:      make(map[string]string, len(order)),
		ambiguous:   make(map[string]struct{}),
	}
	for _, source := range order {
		s := working[source]
		if s.tombstone {
			p.Ambiguous = append(p.Ambiguous, source)
			p.ambiguous[source] = struct{}{}
			continue
		}
		p.Unambiguous = append(p.Unambiguous, New(source, s.target))
		p.lookup[source] = s.target
	}
	return p
}

// Target returns the single target asserted for source.
func (p Partition) Target(source string) (string, bool) {
	t, ok := p.lookup[source]
	return t, ok
}

// IsAmbiguous reports whether source was asserted against several targets.
func (p Partition) IsAmbiguous(source string) bool {
	_, ok := p.ambiguous[source]
	return ok
}

// Mapping returns a copy of the unambiguous source to target mapping.
func (p Partition) Mapping() map[string]string {
	out := make(map[string]string, len(p.lookup))
	for k, v := range p.lookup {
		out[k] = v
	}
	return out
}

// Sources returns the number of distinct source ids in the partition.
func (p Partition) Sources() int {
	return len(p.Unambiguous) + len(p.Ambiguous)
}
