package validation

import (
	"math"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestValidatePassword(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name     string
		password string
		wantErr  bool
	}{
		{"Valid", "Telescope42", false},
		{"Exactly Min Length", "Abcdef12", false},
		{"Exactly Max Length", "A" + strings.Repeat("b", 126) + "1", false},
		{"Too Short", "Ab1", true},
		{"Too Long", "A" + strings.Repeat("b", 127) + "1", true},
		{"No Upper", "telescope42", true},
		{"No Lower", "TELESCOPE42", true},
		{"No Digit", "Telescopes", true},
		{"Unicode Characters", "Ångstrom12", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidatePassword(tt.password)
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestValidateUsername(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name     string
		username string
		wantErr  bool
	}{
		{"Valid", "hubble_fan", false},
		{"Email Like", "edwin.hubble@mt-wilson", false},
		{"Too Short", "ab", true},
		{"Too Long", strings.Repeat("a", 151), true},
		{"Spaces", "edwin hubble", true},
		{"Slash", "edwin/hubble", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateUsername(tt.username)
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestValidateEmail(t *testing.T) {
	t.Parallel()
	assert.NoError(t, ValidateEmail("edwin@example.com"))
	assert.Error(t, ValidateEmail("edwin@"))
	assert.Error(t, ValidateEmail("not an email"))
	assert.Error(t, ValidateEmail(strings.Repeat("a", 250)+"@example.com"))
}

func TestValidateCatalogFields(t *testing.T) {
	t.Parallel()
	assert.NoError(t, ValidateGalaxyName("Andromeda"))
	assert.Error(t, ValidateGalaxyName("   "))
	assert.Error(t, ValidateGalaxyName(strings.Repeat("x", 256)))

	assert.NoError(t, ValidateDescription(""))
	assert.Error(t, ValidateDescription(strings.Repeat("x", 5001)))

	assert.NoError(t, ValidatePersonName("first name", "Edwin"))
	assert.Error(t, ValidatePersonName("first name", strings.Repeat("x", 151)))
}

func TestValidateRequestFields(t *testing.T) {
	t.Parallel()
	assert.NoError(t, ValidateTelescope("Hubble"))
	assert.Error(t, ValidateTelescope(""))
	assert.Error(t, ValidateTelescope("  \t"))
	assert.Error(t, ValidateTelescope(strings.Repeat("x", 256)))

	assert.NoError(t, ValidateMagnitude(7.86))
	assert.NoError(t, ValidateMagnitude(-1.46))
	assert.Error(t, ValidateMagnitude(math.NaN()))
	assert.Error(t, ValidateMagnitude(99))
}
