// Package licenses embeds the project license and the bundle of third-party
// licenses produced by util/bundle_licenses.go.
package licenses

import (
	_ "embed"
	"strings"
)

//go:embed LICENSE
var ProjectLicense string

//go:embed THIRD_PARTY_LICENSES
var ThirdPartyLicenses string

const libraryPrefix = "| LIBRARY: "

func GetProjectLicense() (string, error) {
	if strings.TrimSpace(ProjectLicense) == "" {
		return "", &LicenseError{FileName: "LICENSE"}
	}
	return ProjectLicense, nil
}

func GetThirdPartyLicenses() (string, error) {
	if strings.TrimSpace(ThirdPartyLicenses) == "" {
		return "", &LicenseError{FileName: "THIRD_PARTY_LICENSES"}
	}
	return ThirdPartyLicenses, nil
}

// Libraries lists the modules named in a license bundle, in bundle order.
func Libraries(bundle string) []string {
	var libraries []string
	for _, line := range strings.Split(bundle, "\n") {
		if !strings.HasPrefix(line, libraryPrefix) {
			continue
		}
		library := strings.TrimSuffix(strings.TrimPrefix(line, libraryPrefix), "|")
		libraries = append(libraries, strings.TrimSpace(library))
	}

	return libraries
}

type LicenseError struct {
	FileName string
}

func (e *LicenseError) Error() string {
	return e.FileName + " is missing"
}
