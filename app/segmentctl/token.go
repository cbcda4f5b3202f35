package main

import (
	"fmt"
	"time"

	"customerSegments/pkg/config"
	"customerSegments/pkg/utils"

	"github.com/spf13/cobra"
)

var (
	tokenUser   string
	tokenRole   string
	tokenTenant string
	tokenTTL    time.Duration
)

func init() {
	tokenCmd.Flags().StringVar(&tokenUser, "user", "", "subject of the token (required)")
	tokenCmd.Flags().StringVar(&tokenRole, "role", utils.RoleAdmin, "role claim")
	tokenCmd.Flags().StringVar(&tokenTenant, "tenant", "", "restrict the token to one tenant")
	tokenCmd.Flags().DurationVar(&tokenTTL, "ttl", 0, "token lifetime (defaults to JWT_TTL)")
	_ = tokenCmd.MarkFlagRequired("user")
}

var tokenCmd = &cobra.Command{
	Use:   "token",
	Short: "Mint an API token signed with JWT_SECRET",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load()
		if err != nil {
			return err
		}
		ttl := tokenTTL
		if ttl == 0 {
			ttl = cfg.JWT.TokenTTL
		}
		token, err := utils.GenerateJWT(cfg.JWT.SecretKey, tokenUser, tokenRole, tokenTenant, ttl)
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), token)
		return nil
	},
}
