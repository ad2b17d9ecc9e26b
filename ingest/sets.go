package ingest

import (
	"context"
	"errors"
	"sort"
	"strings"

	"gentoostats/atom"
	"gentoostats/orm"
)

// SetPrefix marks a set entry that references another named set, e.g.
// "@world". Same convention as Portage's SETPREFIX.
const SetPrefix = "@"

// expandSets turns the reported WORLDSET tree into AtomSet nodes owned
// by the current submission. Every named set, whether reported with its
// own entry list or merely referenced via the set prefix, is created
// exactly once per submission; self- or cyclic references therefore
// produce edges between already-allocated nodes and cannot recurse.
func (ing *Ingestor) expandSets(ctx context.Context, worldset map[string][]string) ([]*orm.AtomSet, error) {
	byName := make(map[string]*orm.AtomSet, len(worldset))
	var sets []*orm.AtomSet

	node := func(name string) *orm.AtomSet {
		if s, ok := byName[name]; ok {
			return s
		}
		s := &orm.AtomSet{Name: name}
		byName[name] = s
		sets = append(sets, s)
		return s
	}

	// map order is random; process set names deterministically
	names := make([]string, 0, len(worldset))
	for name := range worldset {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, setName := range names {
		set := node(setName)

		for _, entry := range worldset[setName] {
			if strings.HasPrefix(entry, SetPrefix) {
				subName := strings.TrimPrefix(entry, SetPrefix)
				if subName == "" {
					return nil, reject(nil, "Error: Atom/set '%s' failed validation.", entry)
				}
				set.Subsets = append(set.Subsets, node(subName))
				continue
			}

			resolved, err := ing.resolveSetAtom(ctx, entry)
			if err != nil {
				var parseErr *atom.ParseError
				var valErr *orm.ValidationError
				if errors.As(err, &parseErr) || errors.As(err, &valErr) {
					return nil, reject(err, "Error: Atom/set '%s' failed validation.", entry)
				}
				return nil, err
			}
			set.Atoms = append(set.Atoms, *resolved)
		}

		if err := orm.ValidateEntity("set", set.Name, set); err != nil {
			return nil, reject(err, "Error: Selected set '%s' failed validation.", set.Name)
		}
	}

	return sets, nil
}

// resolveSetAtom parses one plain set entry and resolves it into a
// shared Atom row, creating the category/package-name/repository rows
// it references along the way.
func (ing *Ingestor) resolveSetAtom(ctx context.Context, entry string) (*orm.Atom, error) {
	parsed, err := atom.Parse(entry)
	if err != nil {
		return nil, err
	}

	base, err := ing.resolveBase(ctx, parsed.Category, parsed.Package, parsed.Slot, parsed.Repository)
	if err != nil {
		return nil, err
	}

	return ing.store.ResolveAtom(ctx, orm.Atom{
		FullAtom: entry,
		Operator: parsed.Operator,
		AtomBase: *base,
		Version:  parsed.Version,
	})
}
