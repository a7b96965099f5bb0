// Command cryptvault is the single-user, local-only password vault CLI.
package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/cryptvault/cryptvault/internal/archive"
	"github.com/cryptvault/cryptvault/internal/config"
	"github.com/cryptvault/cryptvault/internal/genpw"
	"github.com/cryptvault/cryptvault/internal/secmem"
	"github.com/cryptvault/cryptvault/internal/term"
	"github.com/cryptvault/cryptvault/internal/vault"
)

// devMode switches the default storage directory from the release
// location to a working-directory-relative one, so repeated manual runs
// during development don't collide with a real vault under $HOME. It is
// false in every build: no build tag or flag sets it.
var devMode = false

var configPath string

func defaultStorageDir(log *logrus.Logger) string {
	if devMode {
		return "./.cryptvault-dev"
	}
	home, err := os.UserHomeDir()
	if err != nil {
		log.WithError(err).Error("failed to locate home directory")
		os.Exit(vault.ClassInternal.ExitCode())
	}
	return filepath.Join(home, "PwmStore")
}

func newVault(log *logrus.Logger) *vault.Vault {
	storageDir := defaultStorageDir(log)

	cfgPath := configPath
	if cfgPath == "" {
		if p, err := config.DefaultPath(); err == nil {
			cfgPath = p
		}
	}
	if cfgPath != "" {
		prefs, err := config.Load(cfgPath)
		if err != nil {
			log.WithError(err).Warn("failed to load preferences file, using defaults")
		} else if prefs.StorageDir != "" {
			storageDir = prefs.StorageDir
		}
	}

	paths := vault.NewPaths(storageDir)
	ui := term.New()
	pg := genpw.New()
	pool := secmem.Default()
	return vault.New(paths, ui, pg, pool, log)
}

// fail logs err at Error level and exits with the class-appropriate code.
// A *vault.Error carries its own exit code; anything else is an internal
// error.
func fail(log *logrus.Logger, err error) {
	if err == nil {
		return
	}
	var verr *vault.Error
	if e, ok := err.(*vault.Error); ok {
		verr = e
	}
	fmt.Fprintln(os.Stderr, err.Error())
	if verr != nil {
		log.WithField("class", verr.Class.String()).Error("command failed")
		secmem.Shutdown()
		os.Exit(verr.Class.ExitCode())
	}
	log.WithError(err).Error("command failed")
	secmem.Shutdown()
	os.Exit(vault.ClassInternal.ExitCode())
}

func main() {
	log := logrus.New()
	log.SetLevel(logrus.InfoLevel)

	secmem.Init(log)
	defer secmem.Shutdown()

	rootCmd := &cobra.Command{
		Use:   "cryptvault",
		Short: "A single-user, local-only encrypted password vault",
	}
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "path to preferences file (default $HOME/.cryptvault.toml)")

	rootCmd.AddCommand(
		newInitCmd(log),
		newDestroyCmd(log),
		newListCmd(log),
		newConfigCmd(log),
		newCreateCmd(log),
		newGetCmd(log),
		newUpdateCmd(log),
		newDeleteCmd(log),
		newExportCmd(log),
		newImportCmd(log),
	)

	if err := rootCmd.Execute(); err != nil {
		secmem.Shutdown()
		os.Exit(1)
	}
}

func newInitCmd(log *logrus.Logger) *cobra.Command {
	return &cobra.Command{
		Use:   "init",
		Short: "Initialize a new vault",
		RunE: func(cmd *cobra.Command, args []string) error {
			v := newVault(log)
			if err := v.Init(); err != nil {
				fail(log, err)
			}
			fmt.Println("Vault initialized.")
			return nil
		},
	}
}

func newDestroyCmd(log *logrus.Logger) *cobra.Command {
	return &cobra.Command{
		Use:   "destroy",
		Short: "Permanently delete the vault and all items",
		RunE: func(cmd *cobra.Command, args []string) error {
			v := newVault(log)
			if err := v.Destroy(); err != nil {
				fail(log, err)
			}
			return nil
		},
	}
}

func newListCmd(log *logrus.Logger) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List all item names",
		RunE: func(cmd *cobra.Command, args []string) error {
			v := newVault(log)
			names, err := v.List()
			if err != nil {
				fail(log, err)
			}
			for _, n := range names {
				fmt.Println(n)
			}
			return nil
		},
	}
}

func newConfigCmd(log *logrus.Logger) *cobra.Command {
	return &cobra.Command{
		Use:   "config",
		Short: "Change password-generation settings",
		RunE: func(cmd *cobra.Command, args []string) error {
			v := newVault(log)
			if err := v.Config(); err != nil {
				fail(log, err)
			}
			return nil
		},
	}
}

func newCreateCmd(log *logrus.Logger) *cobra.Command {
	return &cobra.Command{
		Use:   "create <name>",
		Short: "Create a new item",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			v := newVault(log)
			if err := v.Create(args[0]); err != nil {
				fail(log, err)
			}
			return nil
		},
	}
}

func newGetCmd(log *logrus.Logger) *cobra.Command {
	return &cobra.Command{
		Use:   "get <name>",
		Short: "Print an item's username, password, and other info",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			v := newVault(log)
			item, err := v.Get(args[0])
			if err != nil {
				fail(log, err)
			}
			fmt.Printf("Username: %s\nPassword: %s\nOther info: %s\n", item.Username, item.Password, item.OtherInfo)
			return nil
		},
	}
}

func newUpdateCmd(log *logrus.Logger) *cobra.Command {
	return &cobra.Command{
		Use:   "update <name>",
		Short: "Update an existing item",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			v := newVault(log)
			if err := v.Update(args[0]); err != nil {
				fail(log, err)
			}
			return nil
		},
	}
}

func newDeleteCmd(log *logrus.Logger) *cobra.Command {
	return &cobra.Command{
		Use:   "delete <name>",
		Short: "Delete an item",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			v := newVault(log)
			if err := v.Delete(args[0]); err != nil {
				fail(log, err)
			}
			return nil
		},
	}
}

func newExportCmd(log *logrus.Logger) *cobra.Command {
	return &cobra.Command{
		Use:   "export <file>",
		Short: "Export every item to an encrypted backup file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			v := newVault(log)
			if err := archive.Export(v, args[0]); err != nil {
				fail(log, err)
			}
			fmt.Println("Export complete.")
			return nil
		},
	}
}

func newImportCmd(log *logrus.Logger) *cobra.Command {
	return &cobra.Command{
		Use:   "import <file>",
		Short: "Import items from an encrypted backup file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			v := newVault(log)
			imported, skipped, err := archive.Import(v, args[0])
			if err != nil {
				fail(log, err)
			}
			fmt.Printf("Imported %d item(s), skipped %d (name collision).\n", imported, skipped)
			return nil
		},
	}
}
