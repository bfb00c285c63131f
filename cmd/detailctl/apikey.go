package main

import (
	"context"
	"fmt"
	"text/tabwriter"
	"time"

	apikeydomain "github.com/smallbiznis/detailflow/internal/apikey/domain"
	"github.com/smallbiznis/detailflow/internal/orgcontext"
	"github.com/spf13/cobra"
)

var (
	apiKeyOrg     string
	apiKeyName    string
	apiKeyRole    string
	apiKeyExpires time.Duration
	apiKeyID      string
)

var apiKeyCmd = &cobra.Command{
	Use:   "apikey",
	Short: "Manage staff API keys",
}

var apiKeyCreateCmd = &cobra.Command{
	Use:   "create",
	Short: "Issue a new API key and print it once",
	RunE: withApp(func(cmd *cobra.Command, svc services) error {
		ctx, err := orgContext(cmd.Context(), svc)
		if err != nil {
			return err
		}

		req := apikeydomain.CreateRequest{Name: apiKeyName, Role: apiKeyRole}
		if apiKeyExpires > 0 {
			expires := time.Now().UTC().Add(apiKeyExpires)
			req.ExpiresAt = &expires
		}
		resp, err := svc.APIKeys.Create(ctx, req)
		if err != nil {
			return fmt.Errorf("create api key: %w", err)
		}

		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "key id: %s\nrole:   %s\n\n%s\n\n", resp.KeyID, resp.Role, resp.APIKey)
		_, err = fmt.Fprintln(out, "Store this key now; it cannot be shown again.")
		return err
	}),
}

var apiKeyListCmd = &cobra.Command{
	Use:   "list",
	Short: "List API keys of an organization",
	RunE: withApp(func(cmd *cobra.Command, svc services) error {
		ctx, err := orgContext(cmd.Context(), svc)
		if err != nil {
			return err
		}
		keys, err := svc.APIKeys.List(ctx)
		if err != nil {
			return fmt.Errorf("list api keys: %w", err)
		}

		w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
		fmt.Fprintln(w, "KEY ID\tNAME\tROLE\tACTIVE\tLAST USED")
		for _, k := range keys {
			lastUsed := "-"
			if k.LastUsedAt != nil {
				lastUsed = k.LastUsedAt.Format(time.RFC3339)
			}
			fmt.Fprintf(w, "%s\t%s\t%s\t%t\t%s\n", k.KeyID, k.Name, k.Role, k.IsActive, lastUsed)
		}
		return w.Flush()
	}),
}

var apiKeyRevokeCmd = &cobra.Command{
	Use:   "revoke",
	Short: "Revoke an API key",
	RunE: withApp(func(cmd *cobra.Command, svc services) error {
		ctx, err := orgContext(cmd.Context(), svc)
		if err != nil {
			return err
		}
		if err := svc.APIKeys.Revoke(ctx, apiKeyID); err != nil {
			return fmt.Errorf("revoke api key: %w", err)
		}
		_, err = fmt.Fprintf(cmd.OutOrStdout(), "revoked %s\n", apiKeyID)
		return err
	}),
}

// orgContext scopes ctx to the organization named by --org.
func orgContext(ctx context.Context, svc services) (context.Context, error) {
	org, err := svc.Orgs.GetBySlug(ctx, apiKeyOrg)
	if err != nil {
		return nil, fmt.Errorf("organization %q: %w", apiKeyOrg, err)
	}
	return orgcontext.WithOrgID(ctx, org.ID), nil
}

func init() {
	rootCmd.AddCommand(apiKeyCmd)
	apiKeyCmd.AddCommand(apiKeyCreateCmd, apiKeyListCmd, apiKeyRevokeCmd)

	apiKeyCmd.PersistentFlags().StringVar(&apiKeyOrg, "org", "", "Organization slug")
	_ = apiKeyCmd.MarkPersistentFlagRequired("org")

	apiKeyCreateCmd.Flags().StringVar(&apiKeyName, "name", "", "Key label")
	apiKeyCreateCmd.Flags().StringVar(&apiKeyRole, "role", apikeydomain.RoleStaff, "Role: owner, staff or viewer")
	apiKeyCreateCmd.Flags().DurationVar(&apiKeyExpires, "expires-in", 0, "Expire the key after this long (0 never expires)")
	_ = apiKeyCreateCmd.MarkFlagRequired("name")

	apiKeyRevokeCmd.Flags().StringVar(&apiKeyID, "key-id", "", "Key ID to revoke")
	_ = apiKeyRevokeCmd.MarkFlagRequired("key-id")
}
