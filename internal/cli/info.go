package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/monorkin/stone-hub/internal/licenses"
	"github.com/monorkin/stone-hub/internal/version"
)

var (
	thirdParty   bool
	listLicenses bool
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Println(version.GetVersion())
	},
}

var licensesCmd = &cobra.Command{
	Use:   "licenses",
	Short: "Print the project license",
	Long:  `Print the project license, or the bundled licenses of third-party dependencies with --third-party.`,
	Run: func(cmd *cobra.Command, args []string) {
		text, err := licenses.GetProjectLicense()
		if thirdParty {
			text, err = licenses.GetThirdPartyLicenses()
		}
		if err != nil {
			fail("License not available", err)
		}

		if thirdParty && listLicenses {
			for _, library := range licenses.Libraries(text) {
				fmt.Println(library)
			}
			return
		}

		fmt.Println(text)
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
	rootCmd.AddCommand(licensesCmd)

	licensesCmd.Flags().BoolVar(&thirdParty, "third-party", false, "Print third-party licenses")
	licensesCmd.Flags().BoolVar(&listLicenses, "list", false, "Only list the third-party libraries")
}
