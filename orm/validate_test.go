package orm

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidateCategory(t *testing.T) {
	valid := []string{"app-editors", "sys-devel", "virtual", "x11-libs"}
	for _, name := range valid {
		assert.NoError(t, ValidateEntity("category", name, &Category{Name: name}), name)
	}

	invalid := []string{"", "applications", "app editors", "app-editors/vim"}
	for _, name := range invalid {
		assert.Error(t, ValidateEntity("category", name, &Category{Name: name}), name)
	}
}

func TestValidateUseFlag(t *testing.T) {
	valid := []string{"ssl", "+acl", "-minimal", "vim-pager", "python_targets_python3_11", "elibc_glibc@x"}
	for _, name := range valid {
		assert.NoError(t, ValidateEntity("use flag", name, &UseFlag{Name: name}), name)
	}

	invalid := []string{"", "+", "inv~alid", "two words", "--ssl"}
	for _, name := range invalid {
		assert.Error(t, ValidateEntity("use flag", name, &UseFlag{Name: name}), name)
	}
}

func TestValidateHost(t *testing.T) {
	host := &Host{ID: "1234abcd-1234-abcd-1234-abcd1234abcd", UploadKey: "s3kr3t"}
	assert.NoError(t, ValidateEntity("host", host.ID, host))

	// uppercase and unhyphenated forms must be normalized before they
	// get here
	for _, id := range []string{
		"1234ABCD-1234-ABCD-1234-ABCD1234ABCD",
		"1234abcd1234abcd1234abcd1234abcd",
		"",
	} {
		assert.Error(t, ValidateEntity("host", id, &Host{ID: id, UploadKey: "s3kr3t"}), id)
	}

	noKey := &Host{ID: "1234abcd-1234-abcd-1234-abcd1234abcd"}
	assert.Error(t, ValidateEntity("host", noKey.ID, noKey))
}

func TestValidatePackage(t *testing.T) {
	pkg := &Package{
		AtomBase: AtomBase{
			CategoryName:   "app-editors",
			PackageNameRef: "vim",
		},
		Version: "7.4",
	}
	// association structs are zero-valued here and must not be dived into
	assert.NoError(t, ValidateEntity("package", pkg.CP(), pkg))

	pkg.Version = ""
	assert.Error(t, ValidateEntity("package", pkg.CP(), pkg))
}

func TestValidationError(t *testing.T) {
	err := ValidateEntity("use flag", "inv~alid", &UseFlag{Name: "inv~alid"})
	require.Error(t, err)

	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "use flag", verr.Kind)
	assert.Equal(t, "inv~alid", verr.Value)
	assert.NotNil(t, verr.Unwrap())
	assert.Equal(t, "use flag 'inv~alid' failed validation", verr.Error())
}
