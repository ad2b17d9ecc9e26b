package ingest

import (
	"context"
	"fmt"
	"sync"
	"time"

	"gentoostats/orm"
)

// MemoryStore implements Store with in-memory maps, mirroring the
// database store's validate-then-create contract.
// Used only for testing.
type MemoryStore struct {
	mu sync.Mutex

	hosts      map[string]*orm.Host
	categories map[string]*orm.Category
	pkgNames   map[string]*orm.PackageName
	repos      map[string]*orm.Repository
	useFlags   map[string]*orm.UseFlag
	keywords   map[string]*orm.Keyword
	features   map[string]*orm.Feature
	langs      map[string]*orm.Lang
	mirrors    map[string]*orm.MirrorServer
	syncs      map[string]*orm.SyncServer
	packages   map[string]*orm.Package
	atoms      map[string]*orm.Atom

	submissions []*orm.Submission

	nextRepoID uint
	nextPkgID  uint
	nextSubID  uint
}

// NewMemoryStore creates a new in-memory store
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		hosts:      make(map[string]*orm.Host),
		categories: make(map[string]*orm.Category),
		pkgNames:   make(map[string]*orm.PackageName),
		repos:      make(map[string]*orm.Repository),
		useFlags:   make(map[string]*orm.UseFlag),
		keywords:   make(map[string]*orm.Keyword),
		features:   make(map[string]*orm.Feature),
		langs:      make(map[string]*orm.Lang),
		mirrors:    make(map[string]*orm.MirrorServer),
		syncs:      make(map[string]*orm.SyncServer),
		packages:   make(map[string]*orm.Package),
		atoms:      make(map[string]*orm.Atom),
	}
}

// resolveKeyed is the in-memory counterpart of the store's get-or-create
// helper: return the existing entity or validate and insert a fresh one.
func resolveKeyed[T any](m map[string]*T, kind, key string, fresh *T) (*T, error) {
	if e, ok := m[key]; ok {
		return e, nil
	}
	if err := orm.ValidateEntity(kind, key, fresh); err != nil {
		return nil, err
	}
	m[key] = fresh
	return fresh, nil
}

func (m *MemoryStore) ResolveHost(_ context.Context, id, uploadKey string) (*orm.Host, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if host, ok := m.hosts[id]; ok {
		if host.UploadKey != uploadKey {
			return nil, &orm.ConflictError{Conflict: "host " + id}
		}
		return host, nil
	}

	return resolveKeyed(m.hosts, "host", id, &orm.Host{ID: id, UploadKey: uploadKey})
}

func (m *MemoryStore) ResolveCategory(_ context.Context, name string) (*orm.Category, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	return resolveKeyed(m.categories, "category", name, &orm.Category{Name: name})
}

func (m *MemoryStore) ResolvePackageName(_ context.Context, name string) (*orm.PackageName, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	return resolveKeyed(m.pkgNames, "package name", name, &orm.PackageName{Name: name})
}

func (m *MemoryStore) ResolveRepository(_ context.Context, name string) (*orm.Repository, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if repo, ok := m.repos[name]; ok {
		return repo, nil
	}

	repo, err := resolveKeyed(m.repos, "repository", name, &orm.Repository{ID: m.nextRepoID + 1, Name: name})
	if err != nil {
		return nil, err
	}
	m.nextRepoID++

	return repo, nil
}

func (m *MemoryStore) ResolveUseFlag(_ context.Context, name string) (*orm.UseFlag, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	return resolveKeyed(m.useFlags, "use flag", name, &orm.UseFlag{Name: name, AddedOn: time.Now()})
}

func (m *MemoryStore) ResolveKeyword(_ context.Context, name string) (*orm.Keyword, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	return resolveKeyed(m.keywords, "keyword", name, &orm.Keyword{Name: name, AddedOn: time.Now()})
}

func (m *MemoryStore) ResolveFeature(_ context.Context, name string) (*orm.Feature, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	return resolveKeyed(m.features, "feature", name, &orm.Feature{Name: name, AddedOn: time.Now()})
}

func (m *MemoryStore) ResolveLang(_ context.Context, name string) (*orm.Lang, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	return resolveKeyed(m.langs, "lang", name, &orm.Lang{Name: name})
}

func (m *MemoryStore) ResolveMirrorServer(_ context.Context, url string) (*orm.MirrorServer, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	return resolveKeyed(m.mirrors, "mirror", url, &orm.MirrorServer{URL: url})
}

func (m *MemoryStore) ResolveSyncServer(_ context.Context, url string) (*orm.SyncServer, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	return resolveKeyed(m.syncs, "sync server", url, &orm.SyncServer{URL: url})
}

func (m *MemoryStore) ResolvePackage(_ context.Context, pkg orm.Package) (*orm.Package, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var repoID uint
	if pkg.RepositoryID != nil {
		repoID = *pkg.RepositoryID
	}
	key := fmt.Sprintf("%s|%s|%s|%d", pkg.CP(), pkg.Version, pkg.Slot, repoID)

	if existing, ok := m.packages[key]; ok {
		return existing, nil
	}

	pkg.ID = m.nextPkgID + 1
	pkg.CPString = pkg.CP()
	created, err := resolveKeyed(m.packages, "package", key, &pkg)
	if err != nil {
		return nil, err
	}
	m.nextPkgID++

	return created, nil
}

func (m *MemoryStore) ResolveAtom(_ context.Context, a orm.Atom) (*orm.Atom, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if existing, ok := m.atoms[a.FullAtom]; ok {
		return existing, nil
	}

	return resolveKeyed(m.atoms, "atom", a.FullAtom, &a)
}

func (m *MemoryStore) CreateSubmission(_ context.Context, sub *orm.Submission) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.nextSubID++
	sub.ID = m.nextSubID
	for i := range sub.Installations {
		sub.Installations[i].SubmissionID = sub.ID
	}
	for _, set := range sub.Sets {
		set.SubmissionID = sub.ID
	}
	m.submissions = append(m.submissions, sub)

	return nil
}

// Submissions returns every committed submission in commit order.
func (m *MemoryStore) Submissions() []*orm.Submission {
	m.mu.Lock()
	defer m.mu.Unlock()

	return append([]*orm.Submission(nil), m.submissions...)
}
