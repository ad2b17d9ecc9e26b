// Package ingest implements the submission ingestion pipeline: decode
// and validate one uploaded stats document, normalize it into the
// relational model, and commit it as a single submission aggregate.
package ingest

import (
	"context"
	"encoding/json"
	"errors"
	"sort"

	"gentoostats/archive"
	"gentoostats/atom"
	"gentoostats/geoip"
	"gentoostats/orm"

	"github.com/rs/zerolog/log"
)

// Store is the persistence surface the ingestor drives: get-or-create
// resolution of shared reference entities plus the one transactional
// aggregate commit.
type Store interface {
	ResolveHost(ctx context.Context, id, uploadKey string) (*orm.Host, error)
	ResolveCategory(ctx context.Context, name string) (*orm.Category, error)
	ResolvePackageName(ctx context.Context, name string) (*orm.PackageName, error)
	ResolveRepository(ctx context.Context, name string) (*orm.Repository, error)
	ResolveUseFlag(ctx context.Context, name string) (*orm.UseFlag, error)
	ResolveKeyword(ctx context.Context, name string) (*orm.Keyword, error)
	ResolveFeature(ctx context.Context, name string) (*orm.Feature, error)
	ResolveLang(ctx context.Context, name string) (*orm.Lang, error)
	ResolveMirrorServer(ctx context.Context, url string) (*orm.MirrorServer, error)
	ResolveSyncServer(ctx context.Context, url string) (*orm.SyncServer, error)
	ResolvePackage(ctx context.Context, pkg orm.Package) (*orm.Package, error)
	ResolveAtom(ctx context.Context, a orm.Atom) (*orm.Atom, error)
	CreateSubmission(ctx context.Context, sub *orm.Submission) error
}

// Meta is the allow-listed request metadata accompanying a raw body.
type Meta struct {
	ClientIP     string
	ForwardedFor string
}

// Ingestor processes submissions. The supported protocol version is an
// explicit construction parameter, not a package constant, so tests can
// exercise version mismatches.
type Ingestor struct {
	store    Store
	archiver archive.Archiver
	geo      geoip.Lookup
	protocol int
}

func New(store Store, archiver archive.Archiver, geo geoip.Lookup, protocol int) *Ingestor {
	return &Ingestor{
		store:    store,
		archiver: archiver,
		geo:      geo,
		protocol: protocol,
	}
}

// Process runs one submission through the pipeline: archive the raw
// request, decode, authenticate the host, resolve every referenced
// entity, and commit the aggregate. Any returned RejectError carries
// the client-facing reason; any other error is internal.
func (ing *Ingestor) Process(ctx context.Context, body []byte, meta Meta) (*orm.Submission, error) {
	// Before anything else, save the whole request for debugging.
	rawFilename, err := ing.archiver.Save(archive.Request{
		ClientIP:     meta.ClientIP,
		ForwardedFor: meta.ForwardedFor,
		Body:         body,
	})
	if err != nil {
		log.Error().Err(err).Str("client_ip", meta.ClientIP).Msg("Failed to archive request")

		return nil, reject(err, "Error: Unable to save your request.")
	}

	var payload Payload
	if err := json.Unmarshal(body, &payload); err != nil {
		log.Warn().Err(err).Str("client_ip", meta.ClientIP).Msg("Failed to parse submission JSON")

		return nil, reject(err, "Error: Unable to parse JSON data.")
	}

	if payload.Auth == nil || payload.Auth.UUID == nil || payload.Auth.Passwd == nil {
		return nil, reject(nil, "Error: Incomplete AUTH data.")
	}

	hostID, err := NormalizeUUID(*payload.Auth.UUID)
	if err != nil {
		return nil, reject(err, "Error: Invalid AUTH values. Is your password too long?")
	}

	protocol, err := payload.protocol()
	switch {
	case errors.Is(err, errNoProtocol):
		return nil, reject(err, "Error: No protocol specified.")
	case errors.Is(err, errProtocolNotInt):
		return nil, reject(err, "Error: PROTOCOL must be an integer.")
	}

	if protocol != ing.protocol {
		log.Info().Int("protocol", protocol).Str("host", hostID).Msg("Unsupported protocol")

		return nil, reject(nil,
			"Error: Unsupported protocol (only version %d is supported). Please update your client.",
			ing.protocol)
	}

	lastSync, err := parseLastSync(payload.LastSync)
	if err != nil {
		return nil, reject(err, "Error: Invalid date in LASTSYNC.")
	}

	host, err := ing.store.ResolveHost(ctx, hostID, *payload.Auth.Passwd)
	if err != nil {
		var conflict *orm.ConflictError
		if errors.As(err, &conflict) {
			log.Info().Str("host", hostID).Msg("Upload key mismatch")

			return nil, reject(err, "Error: Invalid password.")
		}
		var verr *orm.ValidationError
		if errors.As(err, &verr) {
			return nil, reject(err, "Error: Invalid AUTH values. Is your password too long?")
		}
		return nil, err
	}

	sub := &orm.Submission{
		Host:   *host,
		HostID: host.ID,

		IPAddr:  meta.ClientIP,
		FwdAddr: meta.ForwardedFor,

		Protocol: protocol,
		Email:    payload.Auth.Email,

		RawRequestFilename: rawFilename,

		Arch:     payload.Arch,
		Chost:    payload.Chost,
		Cbuild:   payload.Cbuild,
		Ctarget:  payload.Ctarget,
		Platform: payload.Platform,
		Profile:  payload.Profile,

		LastSync: lastSync,
		MakeConf: payload.MakeConf,

		Cflags:   payload.Cflags,
		Cxxflags: payload.Cxxflags,
		Ldflags:  payload.Ldflags,
		Fflags:   payload.Fflags,

		MakeOpts:      payload.MakeOpts,
		EmergeOpts:    payload.EmergeOpts,
		SyncOpts:      payload.SyncOpts,
		AcceptLicense: payload.AcceptLicense,
	}

	if country := ing.geo.CountryForIP(meta.ClientIP); country != "" {
		sub.Country = &country
	}

	if err := ing.resolveScalars(ctx, &payload, sub); err != nil {
		return nil, err
	}

	if err := ing.resolvePackages(ctx, payload.Packages, sub); err != nil {
		return nil, err
	}

	sets, err := ing.expandSets(ctx, payload.WorldSet)
	if err != nil {
		return nil, err
	}
	sub.Sets = sets

	if err := orm.ValidateEntity("submission", hostID, sub); err != nil {
		return nil, asReject(err)
	}

	if err := ing.store.CreateSubmission(ctx, sub); err != nil {
		return nil, err
	}

	log.Info().
		Str("host", hostID).
		Int("packages", len(sub.Installations)).
		Int("sets", len(sub.Sets)).
		Msg("Submission accepted")

	return sub, nil
}

// resolveScalars resolves the optional global collections (FEATURES,
// USE, ACCEPT_KEYWORDS, GENTOO_MIRRORS) and the LANG/SYNC references.
func (ing *Ingestor) resolveScalars(ctx context.Context, payload *Payload, sub *orm.Submission) error {
	for _, name := range payload.Features {
		feature, err := ing.store.ResolveFeature(ctx, name)
		if err != nil {
			return asReject(err)
		}
		sub.Features = append(sub.Features, *feature)
	}

	globalUse, err := ing.resolveUseFlags(ctx, payload.GlobalUse)
	if err != nil {
		return err
	}
	sub.GlobalUse = globalUse

	for _, name := range payload.AcceptKeywords {
		keyword, err := ing.store.ResolveKeyword(ctx, name)
		if err != nil {
			return asReject(err)
		}
		sub.GlobalKeywords = append(sub.GlobalKeywords, *keyword)
	}

	for _, url := range payload.Mirrors {
		mirror, err := ing.store.ResolveMirrorServer(ctx, url)
		if err != nil {
			return asReject(err)
		}
		sub.Mirrors = append(sub.Mirrors, *mirror)
	}

	if payload.Lang != nil && *payload.Lang != "" {
		lang, err := ing.store.ResolveLang(ctx, *payload.Lang)
		if err != nil {
			return asReject(err)
		}
		sub.LangName = &lang.Name
		sub.Lang = lang
	}

	if payload.Sync != nil && *payload.Sync != "" {
		sync, err := ing.store.ResolveSyncServer(ctx, *payload.Sync)
		if err != nil {
			return asReject(err)
		}
		sub.SyncURL = &sync.URL
		sub.Sync = sync
	}

	return nil
}

// resolvePackages turns the PACKAGES map into Installation rows, one
// per reported build event.
func (ing *Ingestor) resolvePackages(ctx context.Context, packages map[string]PackageInfo, sub *orm.Submission) error {
	cpvs := make([]string, 0, len(packages))
	for cpv := range packages {
		cpvs = append(cpvs, cpv)
	}
	sort.Strings(cpvs)

	for _, cpv := range cpvs {
		info := packages[cpv]

		inst, err := ing.resolveInstallation(ctx, cpv, info)
		if err != nil {
			return err
		}
		sub.Installations = append(sub.Installations, *inst)
	}

	return nil
}

func (ing *Ingestor) resolveInstallation(ctx context.Context, cpv string, info PackageInfo) (*orm.Installation, error) {
	parsed, err := atom.ParseInstalled(cpv)
	if err != nil {
		return nil, reject(err, "Error: Atom '%s' failed validation.", cpv)
	}

	// the atom's ::repo qualifier wins over the reported REPO field
	repoName := parsed.Repository
	if repoName == "" {
		repoName = info.Repo
	}

	base, err := ing.resolveBase(ctx, parsed.Category, parsed.Package, parsed.Slot, repoName)
	if err != nil {
		var verr *orm.ValidationError
		if errors.As(err, &verr) {
			return nil, reject(err, "Error: Atom '%s' failed validation.", cpv)
		}
		return nil, err
	}

	pkg, err := ing.store.ResolvePackage(ctx, orm.Package{
		AtomBase: *base,
		Version:  parsed.Version,
	})
	if err != nil {
		var verr *orm.ValidationError
		if errors.As(err, &verr) {
			return nil, reject(err, "Error: Atom '%s' failed validation.", cpv)
		}
		return nil, err
	}

	inst := &orm.Installation{
		PackageID: pkg.ID,
		Package:   *pkg,
	}

	if info.Keyword != "" {
		keyword, err := ing.store.ResolveKeyword(ctx, info.Keyword)
		if err != nil {
			return nil, asReject(err)
		}
		inst.KeywordName = &keyword.Name
	}

	// Clients sometimes report these as empty strings; empty means
	// null, never zero.
	if inst.BuiltAt, err = parseEpoch(info.BuildTime); err != nil {
		return nil, reject(err, "Error: '%s' failed validation.", cpv)
	}
	if inst.BuildDuration, err = parseCount(info.BuildDuration); err != nil {
		return nil, reject(err, "Error: '%s' failed validation.", cpv)
	}
	if inst.Size, err = parseCount(info.Size); err != nil {
		return nil, reject(err, "Error: '%s' failed validation.", cpv)
	}

	if inst.Iuse, err = ing.resolveUseFlags(ctx, info.Iuse); err != nil {
		return nil, err
	}
	if inst.Pkguse, err = ing.resolveUseFlags(ctx, info.Pkguse); err != nil {
		return nil, err
	}
	if inst.Use, err = ing.resolveUseFlags(ctx, info.Use); err != nil {
		return nil, err
	}

	return inst, nil
}

// resolveBase resolves the entities shared by Package and Atom rows:
// category, package name, and the optional repository.
func (ing *Ingestor) resolveBase(ctx context.Context, category, pkgName, slot, repoName string) (*orm.AtomBase, error) {
	cat, err := ing.store.ResolveCategory(ctx, category)
	if err != nil {
		return nil, err
	}

	name, err := ing.store.ResolvePackageName(ctx, pkgName)
	if err != nil {
		return nil, err
	}

	base := &orm.AtomBase{
		CategoryName:   cat.Name,
		PackageNameRef: name.Name,
		Slot:           slot,
	}

	if repoName != "" {
		repo, err := ing.store.ResolveRepository(ctx, repoName)
		if err != nil {
			return nil, err
		}
		base.RepositoryID = &repo.ID
		base.Repository = repo
	}

	return base, nil
}
