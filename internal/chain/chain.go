// Package chain resolves placeholder objects in a sequence of related facts.
//
// An object with value "*" is a placeholder. Each placeholder is identified by
// its object type and the paths of facts entering and leaving it, and is
// replaced by a value derived from the sha256 of that description. Building
// the same chain twice yields the same values.
package chain

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"sort"
	"strings"

	"github.com/Harshitk-cp/actgraph/internal/domain"
)

type hop struct {
	fact string
	next string
}

type links struct {
	placeholders map[string]bool
	// src maps an object to the facts that point at it and their sources.
	src map[string][]hop
	// dst maps an object to the facts leaving it and their destinations.
	dst map[string][]hop
}

func collect(facts []*domain.Fact) (*links, error) {
	l := &links{
		placeholders: map[string]bool{},
		src:          map[string][]hop{},
		dst:          map[string][]hop{},
	}

	for _, f := range facts {
		switch {
		case f.IsMeta():
			return nil, &domain.IllegalChainError{Fact: f.String(), Reason: "meta facts cannot be part of a fact chain"}
		case f.SourceObject == nil || f.DestinationObject == nil:
			return nil, &domain.IllegalChainError{Fact: f.String(), Reason: "chain facts need both a source and a destination object"}
		case !f.SourceObject.IsPlaceholder() && !f.DestinationObject.IsPlaceholder():
			return nil, &domain.IllegalChainError{
				Fact:   f.String(),
				Reason: "fact has no placeholder; submit known facts outside the chain",
			}
		}

		fact := f.Type.Name + "/" + f.Value
		src := f.SourceObject.String()
		dst := f.DestinationObject.String()

		l.dst[src] = append(l.dst[src], hop{fact, dst})
		l.src[dst] = append(l.src[dst], hop{fact, src})
		if f.BidirectionalBinding {
			l.dst[dst] = append(l.dst[dst], hop{fact, src})
			l.src[src] = append(l.src[src], hop{fact, dst})
		}

		if f.SourceObject.IsPlaceholder() {
			l.placeholders[src] = true
		}
		if f.DestinationObject.IsPlaceholder() {
			l.placeholders[dst] = true
		}
	}
	return l, nil
}

// path renders every path leading away from obj. Objects already on the
// current path are not revisited.
func path(obj string, hops map[string][]hop, forward bool, onPath map[string]bool) string {
	onPath[obj] = true
	defer delete(onPath, obj)

	var paths []string
	for _, h := range hops[obj] {
		if onPath[h.next] {
			continue
		}
		rest := path(h.next, hops, forward, onPath)
		if forward {
			paths = append(paths, fmt.Sprintf(" -[%s]-> %s", h.fact, h.next)+rest)
		} else {
			paths = append(paths, rest+fmt.Sprintf("%s -[%s]-> ", h.next, h.fact))
		}
	}

	switch len(paths) {
	case 0:
		return ""
	case 1:
		return paths[0]
	}
	sort.Strings(paths)
	return "[" + strings.Join(paths, ",") + "]"
}

func (l *links) seed(placeholder string) string {
	return path(placeholder, l.src, false, map[string]bool{}) +
		placeholder +
		path(placeholder, l.dst, true, map[string]bool{})
}

// Seeds returns the seed of every placeholder in the chain, keyed by the
// placeholder's "(type/*)" representation.
func Seeds(facts ...*domain.Fact) (map[string]string, error) {
	l, err := collect(facts)
	if err != nil {
		return nil, err
	}
	seeds := make(map[string]string, len(l.placeholders))
	for ph := range l.placeholders {
		seeds[ph] = l.seed(ph)
	}
	return seeds, nil
}

// PlaceholderValue formats the synthetic value for a seed.
func PlaceholderValue(seed string) string {
	sum := sha256.Sum256([]byte(seed))
	return domain.ResolvedPlaceholder(hex.EncodeToString(sum[:]))
}

// Resolve returns copies of facts with every placeholder value replaced.
// The inputs are not modified.
func Resolve(facts ...*domain.Fact) ([]*domain.Fact, error) {
	seeds, err := Seeds(facts...)
	if err != nil {
		return nil, err
	}

	values := make(map[string]string, len(seeds))
	for ph, seed := range seeds {
		values[ph] = PlaceholderValue(seed)
	}

	out := make([]*domain.Fact, 0, len(facts))
	for _, f := range facts {
		c := f.Clone()
		for _, o := range []*domain.Object{c.SourceObject, c.DestinationObject} {
			if o.IsPlaceholder() {
				o.Value = values[o.String()]
			}
		}
		out = append(out, c)
	}
	return out, nil
}
