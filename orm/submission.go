package orm

import (
	"context"
	"fmt"

	"gorm.io/gorm"
)

// CreateSubmission persists the whole submission aggregate in one
// transaction: the submission row, its installations (with their USE
// flag relations), and its atom sets with atom and subset edges. Shared
// reference rows mentioned by the aggregate were resolved beforehand and
// are only linked here, never modified.
//
// Set rows are created before any subset edge, in two passes, because
// subsets reference sibling entries of the same slice and a naive
// association save would insert a referenced set twice.
func (db *DB) CreateSubmission(ctx context.Context, sub *Submission) error {
	err := db.gdb.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		sets := sub.Sets
		sub.Sets = nil

		if err := tx.Create(sub).Error; err != nil {
			return wrapErrorWithDetails(err, "create submission", "host "+sub.HostID)
		}

		atomsOf := make([][]Atom, len(sets))
		subsetsOf := make([][]*AtomSet, len(sets))
		for i, set := range sets {
			set.SubmissionID = sub.ID
			atomsOf[i], set.Atoms = set.Atoms, nil
			subsetsOf[i], set.Subsets = set.Subsets, nil
		}

		for _, set := range sets {
			if err := tx.Create(set).Error; err != nil {
				return wrapErrorWithDetails(err, "create atom set", set.Name)
			}
		}

		for i, set := range sets {
			if len(atomsOf[i]) > 0 {
				err := tx.Model(set).Association("Atoms").Append(atomsOf[i])
				if err != nil {
					return wrapErrorWithDetails(err, "link set atoms", set.Name)
				}
				set.Atoms = atomsOf[i]
			}
			if len(subsetsOf[i]) > 0 {
				err := tx.Model(set).Association("Subsets").Append(subsetsOf[i])
				if err != nil {
					return wrapErrorWithDetails(err, "link subsets", set.Name)
				}
				set.Subsets = subsetsOf[i]
			}
		}

		sub.Sets = sets
		return nil
	})
	if err != nil {
		return err
	}

	return nil
}

// SubmissionCount reports how many submissions a host has made.
func (db *DB) SubmissionCount(ctx context.Context, hostID string) (int64, error) {
	count, err := gorm.G[Submission](db.gdb).
		Where(&Submission{HostID: hostID}).
		Count(ctx, "*")
	if err != nil {
		return 0, wrapErrorWithDetails(err, "count submissions", fmt.Sprintf("host %s", hostID))
	}
	return count, nil
}
