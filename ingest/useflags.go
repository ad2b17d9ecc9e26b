package ingest

import (
	"context"

	"gentoostats/orm"
)

// FlagState classifies one IUSE flag of an installation against the
// pkguse and use sets, for display and stats.
type FlagState int

const (
	// FlagSelectedEnabled: explicitly selected and enabled at build time.
	FlagSelectedEnabled FlagState = iota
	// FlagSelectedNotEnabled: selected but not actually enabled. An
	// anomalous state, but clients do report it.
	FlagSelectedNotEnabled
	// FlagEnabledNotSelected: enabled without an explicit selection
	// (profile or global USE).
	FlagEnabledNotSelected
	// FlagManuallyDisabled: explicitly disabled via a "-flag" entry.
	FlagManuallyDisabled
	// FlagDisabled: simply not enabled.
	FlagDisabled
)

// ClassifiedFlag is one reduced IUSE flag with its resolved state.
type ClassifiedFlag struct {
	Name  string
	State FlagState
}

// ReduceFlag strips the single optional leading '+'/'-' sign of a USE
// flag, yielding the comparison key used for set membership.
func ReduceFlag(flag string) string {
	if flag != "" && (flag[0] == '+' || flag[0] == '-') {
		return flag[1:]
	}
	return flag
}

// Classify resolves the tri-state USE semantics for every flag the
// package declares in IUSE. Membership checks use pkguse/use entries as
// reported; only the IUSE names are reduced.
func Classify(iuse, pkguse, use []string) []ClassifiedFlag {
	inPkguse := make(map[string]bool, len(pkguse))
	for _, f := range pkguse {
		inPkguse[f] = true
	}
	inUse := make(map[string]bool, len(use))
	for _, f := range use {
		inUse[f] = true
	}

	result := make([]ClassifiedFlag, 0, len(iuse))
	for _, raw := range iuse {
		f := ReduceFlag(raw)

		var state FlagState
		switch {
		case inPkguse[f] && inUse[f]:
			state = FlagSelectedEnabled
		case inPkguse[f]:
			state = FlagSelectedNotEnabled
		case inUse[f]:
			state = FlagEnabledNotSelected
		case inPkguse["-"+f]:
			state = FlagManuallyDisabled
		default:
			state = FlagDisabled
		}

		result = append(result, ClassifiedFlag{Name: f, State: state})
	}

	return result
}

// resolveUseFlags turns reported flag names into UseFlag rows, creating
// unseen flags. Names keep their signs; an invalid name aborts the
// submission.
func (ing *Ingestor) resolveUseFlags(ctx context.Context, names []string) ([]orm.UseFlag, error) {
	if len(names) == 0 {
		return nil, nil
	}

	flags := make([]orm.UseFlag, 0, len(names))
	for _, name := range names {
		flag, err := ing.store.ResolveUseFlag(ctx, name)
		if err != nil {
			return nil, asReject(err)
		}
		flags = append(flags, *flag)
	}

	return flags, nil
}
