package orm

import (
	"context"
	"errors"

	"gorm.io/gorm"
)

// getOrCreate looks up the row matched by query and creates fresh when
// none exists. Reference entities are append-only, so a concurrent
// creation of the same key is resolved by re-reading after the
// uniqueness conflict rather than by locking. The fresh row is validated
// before it is written.
func getOrCreate[T any](
	ctx context.Context,
	db *DB,
	kind, value string,
	query gorm.ChainInterface[T],
	fresh *T,
) (*T, bool, error) {
	row, err := query.First(ctx)
	if err == nil {
		return &row, false, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, false, wrapErrorWithDetails(err, "resolve "+kind, value)
	}

	if err := ValidateEntity(kind, value, fresh); err != nil {
		return nil, false, err
	}

	if err := gorm.G[T](db.gdb).Create(ctx, fresh); err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			// Lost a create race against another submission; the row
			// exists now.
			row, err = query.First(ctx)
			if err != nil {
				return nil, false, wrapErrorWithDetails(err, "resolve "+kind, value)
			}
			return &row, false, nil
		}
		return nil, false, wrapErrorWithDetails(err, "create "+kind, value)
	}

	return fresh, true, nil
}

func (db *DB) ResolveCategory(ctx context.Context, name string) (*Category, error) {
	c, _, err := getOrCreate(ctx, db, "category", name,
		gorm.G[Category](db.gdb).Where(&Category{Name: name}),
		&Category{Name: name})
	return c, err
}

func (db *DB) ResolvePackageName(ctx context.Context, name string) (*PackageName, error) {
	p, _, err := getOrCreate(ctx, db, "package name", name,
		gorm.G[PackageName](db.gdb).Where(&PackageName{Name: name}),
		&PackageName{Name: name})
	return p, err
}

// ResolveRepository looks a repository up by name alone; the URL is only
// recorded when the repository is first seen.
func (db *DB) ResolveRepository(ctx context.Context, name string) (*Repository, error) {
	r, _, err := getOrCreate(ctx, db, "repository", name,
		gorm.G[Repository](db.gdb).Where(&Repository{Name: name}),
		&Repository{Name: name})
	return r, err
}

func (db *DB) ResolveUseFlag(ctx context.Context, name string) (*UseFlag, error) {
	u, _, err := getOrCreate(ctx, db, "USE flag", name,
		gorm.G[UseFlag](db.gdb).Where(&UseFlag{Name: name}),
		&UseFlag{Name: name})
	return u, err
}

func (db *DB) ResolveKeyword(ctx context.Context, name string) (*Keyword, error) {
	k, _, err := getOrCreate(ctx, db, "keyword", name,
		gorm.G[Keyword](db.gdb).Where(&Keyword{Name: name}),
		&Keyword{Name: name})
	return k, err
}

func (db *DB) ResolveFeature(ctx context.Context, name string) (*Feature, error) {
	f, _, err := getOrCreate(ctx, db, "feature", name,
		gorm.G[Feature](db.gdb).Where(&Feature{Name: name}),
		&Feature{Name: name})
	return f, err
}

func (db *DB) ResolveLang(ctx context.Context, name string) (*Lang, error) {
	l, _, err := getOrCreate(ctx, db, "lang", name,
		gorm.G[Lang](db.gdb).Where(&Lang{Name: name}),
		&Lang{Name: name})
	return l, err
}

func (db *DB) ResolveMirrorServer(ctx context.Context, url string) (*MirrorServer, error) {
	m, _, err := getOrCreate(ctx, db, "mirror", url,
		gorm.G[MirrorServer](db.gdb).Where(&MirrorServer{URL: url}),
		&MirrorServer{URL: url})
	return m, err
}

func (db *DB) ResolveSyncServer(ctx context.Context, url string) (*SyncServer, error) {
	s, _, err := getOrCreate(ctx, db, "sync server", url,
		gorm.G[SyncServer](db.gdb).Where(&SyncServer{URL: url}),
		&SyncServer{URL: url})
	return s, err
}

// ResolvePackage resolves a concrete installed unit by its full natural
// key. Empty slot and absent repository are part of the key, so the
// struct-condition shortcut (which skips zero values) cannot be used.
func (db *DB) ResolvePackage(ctx context.Context, pkg Package) (*Package, error) {
	query := gorm.G[Package](db.gdb).Where(
		"category_name = ? AND package_name = ? AND version = ? AND slot = ?",
		pkg.CategoryName, pkg.PackageNameRef, pkg.Version, pkg.Slot,
	)
	if pkg.RepositoryID == nil {
		query = query.Where("repository_id IS NULL")
	} else {
		query = query.Where("repository_id = ?", *pkg.RepositoryID)
	}

	pkg.CPString = pkg.CP()
	p, _, err := getOrCreate(ctx, db, "package", pkg.String(), query, &pkg)
	return p, err
}

// ResolveAtom resolves a set-entry atom, keyed by its original string.
func (db *DB) ResolveAtom(ctx context.Context, atom Atom) (*Atom, error) {
	a, _, err := getOrCreate(ctx, db, "atom", atom.FullAtom,
		gorm.G[Atom](db.gdb).Where(&Atom{FullAtom: atom.FullAtom}),
		&atom)
	return a, err
}

// ResolveHost authenticates or enrolls a host. A first submission with a
// new UUID creates the host with the presented upload key; any later
// submission must present the same key. A mismatch is a ConflictError
// and never overwrites the stored key.
func (db *DB) ResolveHost(ctx context.Context, id, uploadKey string) (*Host, error) {
	host, err := gorm.G[Host](db.gdb).Where(&Host{ID: id}).First(ctx)
	if err == nil {
		if host.UploadKey != uploadKey {
			return nil, &ConflictError{Conflict: "host " + id}
		}
		return &host, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, wrapErrorWithDetails(err, "resolve host", id)
	}

	fresh := Host{ID: id, UploadKey: uploadKey}
	if err := ValidateEntity("host", id, &fresh); err != nil {
		return nil, err
	}

	if err := gorm.G[Host](db.gdb).Create(ctx, &fresh); err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			// Two first-time submissions raced; re-read and check the
			// key of whichever won.
			host, err = gorm.G[Host](db.gdb).Where(&Host{ID: id}).First(ctx)
			if err != nil {
				return nil, wrapErrorWithDetails(err, "resolve host", id)
			}
			if host.UploadKey != uploadKey {
				return nil, &ConflictError{Conflict: "host " + id}
			}
			return &host, nil
		}
		return nil, wrapErrorWithDetails(err, "create host", id)
	}

	return &fresh, nil
}
