package orm

import (
	"fmt"
	"time"
)

// DefaultRepoName is the repository assumed when an atom carries no
// ::repo qualifier.
const DefaultRepoName = "gentoo"

// Reference entities. These are shared across all submissions, created
// lazily on first reference and never mutated or deleted afterwards.

type Category struct {
	Name string `gorm:"primaryKey;size:32;not null" validate:"required,category" json:"name"`
}

type PackageName struct {
	Name string `gorm:"primaryKey;size:64;not null" validate:"required,token" json:"name"`
}

type Repository struct {
	ID   uint   `gorm:"primaryKey" json:"id"`
	Name string `gorm:"size:64;not null;uniqueIndex:idx_repository_name_url" validate:"required,token" json:"name"`
	URL  string `gorm:"size:256;uniqueIndex:idx_repository_name_url" json:"url"`
}

type UseFlag struct {
	// Name keeps any leading '+'/'-' sign reported in IUSE; sign
	// stripping happens only when comparing membership across the
	// iuse/pkguse/use sets.
	Name    string    `gorm:"primaryKey;size:64;not null" validate:"required,useflag" json:"name"`
	AddedOn time.Time `gorm:"not null;default:CURRENT_TIMESTAMP" json:"addedOn"`
}

type Keyword struct {
	Name    string    `gorm:"primaryKey;size:128;not null" validate:"required,token" json:"name"`
	AddedOn time.Time `gorm:"not null;default:CURRENT_TIMESTAMP" json:"addedOn"`
}

type Feature struct {
	Name    string    `gorm:"primaryKey;size:64;not null" validate:"required,token" json:"name"`
	AddedOn time.Time `gorm:"not null;default:CURRENT_TIMESTAMP" json:"addedOn"`
}

type Lang struct {
	Name string `gorm:"primaryKey;size:32;not null" validate:"required,token" json:"name"`
}

type MirrorServer struct {
	URL string `gorm:"primaryKey;size:256;not null" validate:"required,token" json:"url"`
}

type SyncServer struct {
	URL string `gorm:"primaryKey;size:256;not null" validate:"required,token" json:"url"`
}

// Host is a single machine, identified by its client-generated UUID.
// The upload key is a shared secret fixed on first submission; later
// submissions must present the same key or they are rejected.
type Host struct {
	ID        string `gorm:"primaryKey;size:36;not null" validate:"required,hostuuid" json:"id"`
	UploadKey string `gorm:"size:64;not null" validate:"required,max=64" json:"-"`
	Deleted   bool   `gorm:"not null;default:false;index" json:"deleted"`
}

// AtomBase holds the fields shared by Package and Atom: everything of an
// atom except the operator and the version rules, which differ between
// the two.
type AtomBase struct {
	CategoryName   string      `gorm:"size:32;not null;uniqueIndex:idx_natural" validate:"required,category" json:"category"`
	Category       Category    `gorm:"foreignKey:CategoryName" validate:"-" json:"-"`
	PackageNameRef string      `gorm:"column:package_name;size:64;not null;uniqueIndex:idx_natural" validate:"required,token" json:"packageName"`
	PackageName    PackageName `gorm:"foreignKey:PackageNameRef" validate:"-" json:"-"`
	Slot           string      `gorm:"size:32;uniqueIndex:idx_natural" validate:"omitempty,token" json:"slot"`
	RepositoryID   *uint       `gorm:"uniqueIndex:idx_natural" json:"repositoryId"`
	Repository     *Repository `gorm:"foreignKey:RepositoryID" validate:"-" json:"-"`
}

// CP returns the "category/package_name" string.
func (b AtomBase) CP() string {
	return b.CategoryName + "/" + b.PackageNameRef
}

// Package is one concrete installable unit: operator-less, with a
// mandatory version. The same row is shared by every submission that
// reports the same (category, name, version, slot, repository) tuple.
type Package struct {
	ID       uint `gorm:"primaryKey" json:"id"`
	AtomBase `gorm:"embedded"`
	// Version may embed a revision suffix such as "-r1"; it is stored
	// verbatim, no version ordering semantics are applied.
	Version string `gorm:"size:32;not null;uniqueIndex:idx_natural" validate:"required,token" json:"version"`
	// CPString is a denormalized "category/package_name" cache for
	// display-side lookups.
	CPString string `gorm:"column:cp;size:97;not null;index" json:"cp"`
}

// String renders the package as a canonical "="-atom. The repository
// qualifier is elided when it is the default gentoo repo.
func (p Package) String() string {
	s := fmt.Sprintf("=%s-%s", p.CP(), p.Version)
	if p.Slot != "" {
		s += ":" + p.Slot
	}
	if p.Repository != nil && p.Repository.Name != DefaultRepoName {
		s += "::" + p.Repository.Name
	}
	return s
}

// Atom operator values, as in ebuild(5).
const (
	OpNone         = ""
	OpAnyRevision  = "~"
	OpEquals       = "="
	OpGreater      = ">"
	OpLess         = "<"
	OpGreaterEqual = ">="
	OpLessEqual    = "<="
	OpGlob         = "=*"
)

// Atom is a package selection expression as it appears inside a set:
// version optional, operator present. Keyed by the original atom string.
type Atom struct {
	FullAtom string `gorm:"primaryKey;size:64;not null" validate:"required,max=64" json:"fullAtom"`
	Operator string `gorm:"size:2;not null;default:''" validate:"omitempty,oneof=~ = > < >= <= =*" json:"operator"`
	AtomBase `gorm:"embedded"`
	Version  string `gorm:"size:32" validate:"omitempty,token" json:"version"`
}

func (a Atom) String() string {
	return a.FullAtom
}

// Installation is one package build event reported in one submission.
// Unlike Package rows these are submission-owned and never shared.
type Installation struct {
	ID           uint `gorm:"primaryKey" json:"id"`
	SubmissionID uint `gorm:"not null;index" json:"submissionId"`

	PackageID uint    `gorm:"not null" json:"packageId"`
	Package   Package `json:"package"`

	KeywordName *string  `gorm:"size:128" json:"keyword"`
	Keyword     *Keyword `gorm:"foreignKey:KeywordName" json:"-"`

	BuiltAt       *time.Time `json:"builtAt"`
	BuildDuration *int64     `json:"buildDuration"`
	Size          *int64     `json:"size"`

	// Flags the ebuild declares (signs intact), flags forced or masked
	// for this package by user configuration, and flags actually
	// enabled at build time.
	Iuse   []UseFlag `gorm:"many2many:installation_iuse" json:"iuse"`
	Pkguse []UseFlag `gorm:"many2many:installation_pkguse" json:"pkguse"`
	Use    []UseFlag `gorm:"many2many:installation_use" json:"use"`
}

// AtomSet is a named package-selection set owned by one submission.
// Sets may reference other sets of the same submission as subsets.
type AtomSet struct {
	ID           uint   `gorm:"primaryKey" json:"id"`
	Name         string `gorm:"size:128;not null;uniqueIndex:idx_atom_set_owner" validate:"required,token" json:"name"`
	SubmissionID uint   `gorm:"not null;uniqueIndex:idx_atom_set_owner" json:"submissionId"`

	Atoms   []Atom     `gorm:"many2many:atom_set_atoms" json:"atoms"`
	Subsets []*AtomSet `gorm:"many2many:atom_set_subsets;joinForeignKey:AtomSetID;joinReferences:SubsetID" json:"subsets"`
}

// Submission is the aggregate root: one accepted upload. Created exactly
// once and treated as immutable history afterwards, except for the
// soft-delete flag used in testing.
type Submission struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	CreatedAt time.Time `gorm:"not null;default:CURRENT_TIMESTAMP" json:"createdAt"`
	Deleted   bool      `gorm:"not null;default:false;index" json:"deleted"`

	HostID string `gorm:"size:36;not null;index" json:"hostId"`
	Host   Host   `json:"-"`

	IPAddr  string  `gorm:"size:45;not null" json:"ipAddr"`
	FwdAddr string  `gorm:"size:256" json:"fwdAddr"`
	Country *string `gorm:"size:64" json:"country"`

	Protocol int     `gorm:"not null" json:"protocol"`
	Email    *string `gorm:"size:256" json:"email"`

	RawRequestFilename string `gorm:"size:128;not null" json:"rawRequestFilename"`

	Arch     *string `gorm:"size:32" json:"arch"`
	Chost    *string `gorm:"size:64" json:"chost"`
	Cbuild   *string `gorm:"size:64" json:"cbuild"`
	Ctarget  *string `gorm:"size:64" json:"ctarget"`
	Platform *string `gorm:"size:256" json:"platform"`
	Profile  *string `gorm:"size:128" json:"profile"`

	LangName *string `gorm:"size:32" json:"lang"`
	Lang     *Lang   `gorm:"foreignKey:LangName" json:"-"`

	LastSync *time.Time `json:"lastSync"`

	MakeConf *string `gorm:"type:text" json:"makeConf"`

	Cflags   *string `gorm:"size:128" json:"cflags"`
	Cxxflags *string `gorm:"size:128" json:"cxxflags"`
	Ldflags  *string `gorm:"size:128" json:"ldflags"`
	Fflags   *string `gorm:"size:128" json:"fflags"`

	MakeOpts      *string `gorm:"size:128" json:"makeOpts"`
	EmergeOpts    *string `gorm:"size:256" json:"emergeOpts"`
	SyncOpts      *string `gorm:"size:256" json:"syncOpts"`
	AcceptLicense *string `gorm:"size:256" json:"acceptLicense"`

	SyncURL *string     `gorm:"size:256" json:"sync"`
	Sync    *SyncServer `gorm:"foreignKey:SyncURL" json:"-"`

	Features       []Feature      `gorm:"many2many:submission_features" json:"features"`
	Mirrors        []MirrorServer `gorm:"many2many:submission_mirrors" json:"mirrors"`
	GlobalUse      []UseFlag      `gorm:"many2many:submission_global_use" json:"globalUse"`
	GlobalKeywords []Keyword      `gorm:"many2many:submission_global_keywords" json:"globalKeywords"`

	Installations []Installation `gorm:"foreignKey:SubmissionID" json:"installations"`
	Sets          []*AtomSet     `gorm:"foreignKey:SubmissionID" json:"sets"`
}
