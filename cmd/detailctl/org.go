package main

import (
	"fmt"

	organizationdomain "github.com/smallbiznis/detailflow/internal/organization/domain"
	"github.com/spf13/cobra"
)

var orgCreateFlags organizationdomain.CreateOrganizationRequest

var orgCmd = &cobra.Command{
	Use:   "org",
	Short: "Manage organizations",
}

var orgCreateCmd = &cobra.Command{
	Use:   "create",
	Short: "Create an organization with a generated slug",
	RunE: withApp(func(cmd *cobra.Command, svc services) error {
		org, err := svc.Orgs.Create(cmd.Context(), orgCreateFlags)
		if err != nil {
			return fmt.Errorf("create organization: %w", err)
		}
		_, err = fmt.Fprintf(cmd.OutOrStdout(), "created organization %s (slug: %s, id: %s)\n", org.Name, org.Slug, org.ID)
		return err
	}),
}

func init() {
	rootCmd.AddCommand(orgCmd)
	orgCmd.AddCommand(orgCreateCmd)

	f := orgCreateCmd.Flags()
	f.StringVar(&orgCreateFlags.Name, "name", "", "Business name")
	f.StringVar(&orgCreateFlags.BusinessEmail, "email", "", "Business email")
	f.StringVar(&orgCreateFlags.Phone, "phone", "", "Business phone")
	f.StringVar(&orgCreateFlags.Website, "website", "", "Website URL")
	f.StringVar(&orgCreateFlags.City, "city", "", "City")
	f.StringVar(&orgCreateFlags.State, "state", "", "State or region")
	_ = orgCreateCmd.MarkFlagRequired("name")
}
