package main

import (
	"crypto/rand"
	"fmt"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"xdao.co/locator/identity"
	"xdao.co/locator/keys"
)

func (c *cli) keyStore(dir string) (*keys.KeyStore, error) {
	if dir == "" {
		dir = c.keyDir
	}
	return keys.CreateKeyStore(dir)
}

func (c *cli) keyCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "key",
		Short: "Manage local node identity keys",
		Args:  usageArgs(cobra.NoArgs),
		RunE: func(cmd *cobra.Command, args []string) error {
			cmd.SetOut(c.errOut)
			_ = cmd.Usage()
			return &exitError{code: 2}
		},
	}
	cmd.AddCommand(c.keyInitCmd(), c.keyDeriveCmd(), c.keyListCmd(), c.keyShowCmd())
	return cmd
}

func (c *cli) keyInitCmd() *cobra.Command {
	var name, scheme, seedHex string
	var force bool
	cmd := &cobra.Command{
		Use:   "init",
		Short: "Create a root identity key",
		Args:  usageArgs(cobra.NoArgs),
		RunE: func(cmd *cobra.Command, args []string) error {
			if name == "" {
				return usageError("missing --name")
			}
			if err := keys.CheckKeyName(name); err != nil {
				return usageError("invalid --name: %v", err)
			}
			sc, ok := identity.Lookup(scheme)
			if !ok {
				return usageError("invalid --scheme %q (one of %s)", scheme, strings.Join(identity.Names(), ", "))
			}

			var seed []byte
			if seedHex != "" {
				var err error
				if seed, err = keys.ParseSeedHex(scheme, seedHex); err != nil {
					return usageError("invalid --seed-hex: %v", err)
				}
			} else {
				seed = make([]byte, sc.SeedSize)
				if _, err := rand.Read(seed); err != nil {
					return fmt.Errorf("rand: %w", err)
				}
			}

			ks, err := c.keyStore("")
			if err != nil {
				return fmt.Errorf("keys: %w", err)
			}
			id, path, err := ks.Initialize(name, scheme, seed, force)
			if err != nil {
				return fmt.Errorf("write key: %w", err)
			}
			c.logger.Debug("Root key stored", zap.String("name", name), zap.String("path", path))
			fmt.Fprintf(c.out, "Created root key: %s\n", identity.PublicString(id))
			fmt.Fprintf(c.out, "Address: %s\n", id.Address())
			fmt.Fprintf(c.out, "Stored at: %s\n", path)
			return nil
		},
	}
	cmd.Flags().StringVar(&name, "name", "", "Key name (directory in the key store)")
	cmd.Flags().StringVar(&scheme, "scheme", identity.SchemeEd25519, "Signature scheme")
	cmd.Flags().StringVar(&seedHex, "seed-hex", "", "Optional seed in hex (for reproducible setups)")
	cmd.Flags().BoolVar(&force, "force", false, "Overwrite existing key files")
	return cmd
}

func (c *cli) keyDeriveCmd() *cobra.Command {
	var from, role string
	var force bool
	cmd := &cobra.Command{
		Use:   "derive",
		Short: "Derive a role key from a root key",
		Args:  usageArgs(cobra.NoArgs),
		RunE: func(cmd *cobra.Command, args []string) error {
			if from == "" {
				return usageError("missing --from")
			}
			if role == "" {
				return usageError("missing --role")
			}
			if err := keys.CheckKeyName(from); err != nil {
				return usageError("invalid --from: %v", err)
			}
			if err := keys.CheckRole(role); err != nil {
				return usageError("invalid --role: %v", err)
			}
			ks, err := c.keyStore("")
			if err != nil {
				return fmt.Errorf("keys: %w", err)
			}
			id, path, err := ks.Derive(from, role, force)
			if err != nil {
				return fmt.Errorf("derive role key: %w", err)
			}
			fmt.Fprintf(c.out, "Created role key: %s\n", identity.PublicString(id))
			fmt.Fprintf(c.out, "Address: %s\n", id.Address())
			fmt.Fprintf(c.out, "Stored at: %s\n", path)
			return nil
		},
	}
	cmd.Flags().StringVar(&from, "from", "", "Root key name")
	cmd.Flags().StringVar(&role, "role", "", "Role identifier (e.g. root, relay)")
	cmd.Flags().BoolVar(&force, "force", false, "Overwrite existing key files")
	return cmd
}

func (c *cli) keyListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List stored keys",
		Args:  usageArgs(cobra.NoArgs),
		RunE: func(cmd *cobra.Command, args []string) error {
			ks, err := c.keyStore("")
			if err != nil {
				return fmt.Errorf("keys: %w", err)
			}
			entries, err := ks.List()
			if err != nil {
				return fmt.Errorf("list keys: %w", err)
			}
			for _, e := range entries {
				line := fmt.Sprintf("%s\t%s\t%s", e.Name, e.Scheme, e.Address)
				if len(e.Roles) > 0 {
					line += "\troles=" + strings.Join(e.Roles, ",")
				}
				fmt.Fprintln(c.out, line)
			}
			return nil
		},
	}
}

func (c *cli) keyShowCmd() *cobra.Command {
	var name, role string
	cmd := &cobra.Command{
		Use:   "show",
		Short: "Print the public identity of a stored key",
		Args:  usageArgs(cobra.NoArgs),
		RunE: func(cmd *cobra.Command, args []string) error {
			if name == "" {
				return usageError("missing --name")
			}
			ks, err := c.keyStore("")
			if err != nil {
				return fmt.Errorf("keys: %w", err)
			}
			id, err := ks.Load(name, role)
			if err != nil {
				return fmt.Errorf("load key: %w", err)
			}
			fmt.Fprintln(c.out, identity.PublicString(id))
			fmt.Fprintf(c.out, "Address: %s\n", id.Address())
			return nil
		},
	}
	cmd.Flags().StringVar(&name, "name", "", "Key name")
	cmd.Flags().StringVar(&role, "role", "", "Optional role key")
	return cmd
}
