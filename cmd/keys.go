package cmd

import (
	"OnlineStore/jwt"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
)

var (
	keyBits  int
	keyForce bool
)

var keysCmd = &cobra.Command{
	Use:   "keys",
	Short: "產生JWT簽章用的RSA金鑰",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, _, err := loadConfig()
		if err != nil {
			return err
		}

		if !keyForce {
			if _, err := os.Stat(cfg.JWT.PrivateKeyPath); err == nil {
				return fmt.Errorf("%s 已存在，使用 --force 覆寫", cfg.JWT.PrivateKeyPath)
			}
		}
		for _, path := range []string{cfg.JWT.PrivateKeyPath, cfg.JWT.PublicKeyPath} {
			if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
				return err
			}
		}

		if err := jwt.GenerateKeyFiles(cfg.JWT.PrivateKeyPath, cfg.JWT.PublicKeyPath, keyBits); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "已產生 %s 與 %s\n", cfg.JWT.PrivateKeyPath, cfg.JWT.PublicKeyPath)
		return nil
	},
}

func init() {
	keysCmd.Flags().IntVar(&keyBits, "bits", 2048, "RSA金鑰長度")
	keysCmd.Flags().BoolVar(&keyForce, "force", false, "覆寫既有金鑰")
}
