package ingest

import (
	"encoding/json"
	"strconv"
	"time"

	"github.com/google/uuid"
)

// lastSyncLayout matches the date format Portage clients report,
// "Wed, 02 Oct 2024 13:45:00 +0000". The offset is literal: whatever
// zone the client wrote, the value is interpreted as UTC. A known
// approximation, kept for compatibility with deployed clients.
const lastSyncLayout = "Mon, 02 Jan 2006 15:04:05 +0000"

// Auth is the credential block of a submission.
type Auth struct {
	UUID   *string `json:"UUID"`
	Passwd *string `json:"PASSWD"`
	Email  *string `json:"EMAIL"`
}

// PackageInfo describes one installed package in the PACKAGES map.
// The numeric fields arrive as strings; empty means not reported.
type PackageInfo struct {
	Repo          string   `json:"REPO"`
	Keyword       string   `json:"KEYWORD"`
	BuildTime     string   `json:"BUILD_TIME"`
	BuildDuration string   `json:"BUILD_DURATION"`
	Size          string   `json:"SIZE"`
	Iuse          []string `json:"IUSE"`
	Pkguse        []string `json:"PKGUSE"`
	Use           []string `json:"USE"`
}

// Payload is the decoded submission document. All fields except AUTH
// and PROTOCOL are optional.
type Payload struct {
	Auth     *Auth           `json:"AUTH"`
	Protocol json.RawMessage `json:"PROTOCOL"`
	LastSync *string         `json:"LASTSYNC"`

	Arch     *string `json:"ARCH"`
	Chost    *string `json:"CHOST"`
	Cbuild   *string `json:"CBUILD"`
	Ctarget  *string `json:"CTARGET"`
	Platform *string `json:"PLATFORM"`
	Profile  *string `json:"PROFILE"`
	MakeConf *string `json:"MAKECONF"`

	Cflags   *string `json:"CFLAGS"`
	Cxxflags *string `json:"CXXFLAGS"`
	Ldflags  *string `json:"LDFLAGS"`
	Fflags   *string `json:"FFLAGS"`

	MakeOpts      *string `json:"MAKEOPTS"`
	EmergeOpts    *string `json:"EMERGE_DEFAULT_OPTS"`
	SyncOpts      *string `json:"PORTAGE_RSYNC_EXTRA_OPTS"`
	AcceptLicense *string `json:"ACCEPT_LICENSE"`

	Lang *string `json:"LANG"`
	Sync *string `json:"SYNC"`

	Features       []string `json:"FEATURES"`
	GlobalUse      []string `json:"USE"`
	AcceptKeywords []string `json:"ACCEPT_KEYWORDS"`
	Mirrors        []string `json:"GENTOO_MIRRORS"`

	Packages map[string]PackageInfo `json:"PACKAGES"`
	WorldSet map[string][]string    `json:"WORLDSET"`
}

// protocol extracts the PROTOCOL field. Missing and non-integer values
// are distinct client errors.
func (p *Payload) protocol() (int, error) {
	if len(p.Protocol) == 0 {
		return 0, errNoProtocol
	}

	var version int
	if err := json.Unmarshal(p.Protocol, &version); err != nil {
		return 0, errProtocolNotInt
	}

	return version, nil
}

// NormalizeUUID brings a host UUID into the canonical lowercase
// hyphenated 8-4-4-4-12 form. Bare 32-hex-digit strings and any casing
// are accepted; the result is stable under re-normalization.
func NormalizeUUID(s string) (string, error) {
	id, err := uuid.Parse(s)
	if err != nil {
		return "", err
	}

	return id.String(), nil
}

func parseLastSync(s *string) (*time.Time, error) {
	if s == nil || *s == "" {
		return nil, nil
	}

	t, err := time.Parse(lastSyncLayout, *s)
	if err != nil {
		return nil, err
	}

	t = t.UTC()
	return &t, nil
}

// parseEpoch converts an epoch-seconds string (clients report floats on
// occasion) to a timestamp. Empty means not reported, not zero.
func parseEpoch(s string) (*time.Time, error) {
	if s == "" {
		return nil, nil
	}

	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return nil, err
	}

	t := time.Unix(int64(f), 0).UTC()
	return &t, nil
}

// parseCount converts a numeric string field (seconds, bytes). Empty
// means not reported.
func parseCount(s string) (*int64, error) {
	if s == "" {
		return nil, nil
	}

	n, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return nil, err
	}

	return &n, nil
}
