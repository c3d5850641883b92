package main

import (
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"go.uber.org/zap"

	"xdao.co/locator/address"
	"xdao.co/locator/endpoint"
	"xdao.co/locator/identity"
	"xdao.co/locator/keys"
	"xdao.co/locator/locator"
	"xdao.co/locator/locator/table"
	"xdao.co/locator/model"
	"xdao.co/locator/nodeconfig"
)

// readLocator reads a locator file holding the raw wire form, or its hex
// encoding when asHex is set. Failures are reported as coded errors on stderr.
func (c *cli) readLocator(path string, asHex bool) (*locator.Locator, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		code := model.ErrInvalidRequest
		if errors.Is(err, os.ErrNotExist) {
			code = model.ErrNotFound
		}
		return nil, c.codedError(model.NewError(code, err.Error()))
	}
	if asHex {
		decoded, err := hex.DecodeString(strings.TrimSpace(string(data)))
		if err != nil {
			return nil, c.codedError(model.NewError(model.ErrInvalidRequest, fmt.Sprintf("%s: invalid hex: %v", path, err)))
		}
		data = decoded
	}
	loc, err := locator.Parse(data)
	if err != nil {
		return nil, c.codedError(model.FromError(err))
	}
	return loc, nil
}

func (c *cli) codedError(ce *model.CodedError) error {
	b, _ := json.Marshal(ce)
	fmt.Fprintln(c.errOut, string(b))
	return &exitError{code: 1}
}

func (c *cli) writeJSON(v any) error {
	b, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(c.out, string(b))
	return err
}

func (c *cli) loadSigner(name, role string) (identity.Identity, error) {
	if err := validateKeyRef(name, role); err != nil {
		return nil, err
	}
	ks, err := c.keyStore("")
	if err != nil {
		return nil, fmt.Errorf("keys: %w", err)
	}
	id, err := ks.Load(name, role)
	if err != nil {
		return nil, fmt.Errorf("load signer: %w", err)
	}
	return id, nil
}

func (c *cli) createCmd() *cobra.Command {
	var (
		configPath, signer, signerRole, outPath string
		endpoints                               []string
		subject                                 address.Address
		ts                                      int64
		asHex                                   bool
	)
	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create and sign a locator",
		Long: "Create and sign a locator. The signer comes from the key store; a subject\n" +
			"other than the signer's own address produces a proxy-signed locator.\n" +
			"Without --out the wire bytes are written to stdout (no trailing newline).",
		Args: usageArgs(cobra.NoArgs),
		RunE: func(cmd *cobra.Command, args []string) error {
			var eps []endpoint.Endpoint
			tsSet := cmd.Flags().Changed("timestamp")
			switch {
			case configPath != "" && signer != "":
				return usageError("--config and --signer are mutually exclusive")
			case configPath != "":
				cfg, err := nodeconfig.Load(configPath)
				if err != nil {
					return usageError("%v", err)
				}
				if c.keyDir == "" {
					c.keyDir = cfg.KeyDir
				}
				signer, signerRole = cfg.Identity, cfg.Role
				if !tsSet && cfg.Timestamp != nil {
					ts, tsSet = *cfg.Timestamp, true
				}
				if !cmd.Flags().Changed("subject") {
					if subject, err = cfg.SubjectAddress(); err != nil {
						return usageError("%v", err)
					}
				}
				if eps, err = cfg.ParseEndpoints(); err != nil {
					return usageError("%v", err)
				}
			case signer != "":
				for _, s := range endpoints {
					e, err := endpoint.Parse(s)
					if err != nil {
						return usageError("invalid --endpoint: %v", err)
					}
					eps = append(eps, e)
				}
			default:
				return usageError("missing --signer or --config")
			}

			id, err := c.loadSigner(signer, signerRole)
			if err != nil {
				return err
			}
			if subject.IsNil() {
				subject = id.Address()
			}
			if !tsSet {
				ts = time.Now().UnixMilli()
			}

			loc, err := locator.Create(id, subject, ts, eps)
			if err != nil {
				return fmt.Errorf("create locator [%s]: %w", locator.RuleID(err), err)
			}
			raw, err := loc.MarshalBinary()
			if err != nil {
				return fmt.Errorf("encode locator: %w", err)
			}
			c.logger.Debug("Locator created",
				zap.Stringer("subject", loc.Subject()),
				zap.Stringer("signer", loc.Signer()),
				zap.Int64("timestamp", loc.Timestamp()),
				zap.Int("endpoints", len(loc.Endpoints())),
				zap.Int("bytes", len(raw)))

			if asHex {
				raw = []byte(hex.EncodeToString(raw) + "\n")
			}
			if outPath != "" {
				return os.WriteFile(outPath, raw, 0o644)
			}
			_, err = c.out.Write(raw)
			return err
		},
	}
	f := cmd.Flags()
	f.StringVar(&configPath, "config", "", "Node config file (toml, json or yaml)")
	signerFlags(f, &signer, &signerRole)
	f.Var(&subject, "subject", "Subject address in hex (default: the signer's address)")
	f.StringArrayVar(&endpoints, "endpoint", nil, "Endpoint, e.g. udp/192.0.2.1:9993 (repeatable)")
	f.Int64Var(&ts, "timestamp", 0, "Timestamp, any int64 (default: now, in milliseconds)")
	f.StringVar(&outPath, "out", "", "Write to file instead of stdout")
	f.BoolVar(&asHex, "hex", false, "Write hex instead of raw bytes")
	return cmd
}

func (c *cli) inspectCmd() *cobra.Command {
	var hexIn bool
	cmd := &cobra.Command{
		Use:   "inspect <file>",
		Short: "Print a locator as JSON",
		Args:  usageArgs(cobra.ExactArgs(1)),
		RunE: func(cmd *cobra.Command, args []string) error {
			loc, err := c.readLocator(args[0], hexIn)
			if err != nil {
				return err
			}
			view, err := model.NewLocatorView(loc)
			if err != nil {
				return err
			}
			return c.writeJSON(view)
		},
	}
	hexInputFlag(cmd.Flags(), &hexIn)
	return cmd
}

func (c *cli) verifyCmd() *cobra.Command {
	var pub, signer, signerRole string
	var hexIn bool
	cmd := &cobra.Command{
		Use:   "verify <file>",
		Short: "Verify a locator signature; exits 1 if it does not verify",
		Args:  usageArgs(cobra.ExactArgs(1)),
		RunE: func(cmd *cobra.Command, args []string) error {
			var id identity.Identity
			var err error
			switch {
			case pub != "" && signer != "":
				return usageError("--identity and --signer are mutually exclusive")
			case pub != "":
				if id, err = identity.ParsePublic(pub); err != nil {
					return usageError("invalid --identity: %v", err)
				}
			case signer != "":
				if id, err = c.loadSigner(signer, signerRole); err != nil {
					return err
				}
			default:
				return usageError("missing --identity or --signer")
			}

			loc, err := c.readLocator(args[0], hexIn)
			if err != nil {
				return err
			}
			cid, err := loc.CID()
			if err != nil {
				return err
			}
			res := model.VerifyResult{CID: cid.String(), Signer: loc.Signer().String(), Verified: loc.Verify(id)}
			if !res.Verified {
				if id.Address() != loc.Signer() {
					res.Reason = fmt.Sprintf("identity %s is not the signer", id.Address())
				} else {
					res.Reason = "signature does not verify"
				}
			}
			if err := c.writeJSON(res); err != nil {
				return err
			}
			if !res.Verified {
				return &exitError{code: 1}
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&pub, "identity", "", "Public identity, <scheme>:<base64>")
	signerFlags(cmd.Flags(), &signer, &signerRole)
	hexInputFlag(cmd.Flags(), &hexIn)
	return cmd
}

func (c *cli) shouldReplaceCmd() *cobra.Command {
	var candidatePath, heldPath string
	var hexIn bool
	cmd := &cobra.Command{
		Use:   "should-replace",
		Short: "Print whether a candidate locator supersedes a held one",
		Args:  usageArgs(cobra.NoArgs),
		RunE: func(cmd *cobra.Command, args []string) error {
			if candidatePath == "" || heldPath == "" {
				return usageError("missing --candidate or --held")
			}
			candidate, err := c.readLocator(candidatePath, hexIn)
			if err != nil {
				return err
			}
			held, err := c.readLocator(heldPath, hexIn)
			if err != nil {
				return err
			}
			if candidate.Subject() != held.Subject() {
				c.logger.Warn("Locators describe different subjects",
					zap.Stringer("candidate", candidate.Subject()),
					zap.Stringer("held", held.Subject()))
			}
			fmt.Fprintln(c.out, candidate.ShouldReplace(held))
			return nil
		},
	}
	cmd.Flags().StringVar(&candidatePath, "candidate", "", "Candidate locator file")
	cmd.Flags().StringVar(&heldPath, "held", "", "Currently held locator file")
	hexInputFlag(cmd.Flags(), &hexIn)
	return cmd
}

type selectOutcome struct {
	File    string `json:"file"`
	Outcome string `json:"outcome"`
	Reason  string `json:"reason,omitempty"`
}

type selectResult struct {
	Outcomes []selectOutcome      `json:"outcomes"`
	Current  []*model.LocatorView `json:"current"`
}

func (c *cli) selectCmd() *cobra.Command {
	var pubs []string
	var size int
	var hexIn bool
	cmd := &cobra.Command{
		Use:   "select <file>...",
		Short: "Offer locators in order and print the current one per subject",
		Args:  usageArgs(cobra.MinimumNArgs(1)),
		RunE: func(cmd *cobra.Command, args []string) error {
			known := make(map[address.Address]locator.Identity, len(pubs))
			for _, s := range pubs {
				id, err := identity.ParsePublic(s)
				if err != nil {
					return usageError("invalid --identity: %v", err)
				}
				known[id.Address()] = id
			}
			lookup := func(a address.Address) (locator.Identity, bool) {
				id, ok := known[a]
				return id, ok
			}
			tbl, err := table.New(size, lookup, table.WithLogger(c.logger))
			if err != nil {
				return usageError("%v", err)
			}

			res := selectResult{Outcomes: []selectOutcome{}, Current: []*model.LocatorView{}}
			for _, path := range args {
				loc, err := c.readLocator(path, hexIn)
				if err != nil {
					return err
				}
				outcome, err := tbl.Offer(loc)
				o := selectOutcome{File: path, Outcome: outcome.String()}
				if errors.Is(err, table.ErrUnknownSigner) {
					o.Reason = err.Error()
				} else if err != nil {
					return err
				}
				res.Outcomes = append(res.Outcomes, o)
			}
			for _, subject := range tbl.Subjects() {
				loc, ok := tbl.Get(subject)
				if !ok {
					continue
				}
				view, err := model.NewLocatorView(loc)
				if err != nil {
					return err
				}
				res.Current = append(res.Current, view)
			}
			return c.writeJSON(res)
		},
	}
	cmd.Flags().StringArrayVar(&pubs, "identity", nil, "Known public identity, <scheme>:<base64> (repeatable)")
	cmd.Flags().IntVar(&size, "size", 1024, "Maximum number of subjects held")
	hexInputFlag(cmd.Flags(), &hexIn)
	return cmd
}

func signerFlags(f *pflag.FlagSet, name, role *string) {
	f.StringVar(name, "signer", "", "Key name in the key store")
	f.StringVar(role, "signer-role", "", "Optional role key of --signer")
}

func hexInputFlag(f *pflag.FlagSet, v *bool) {
	f.BoolVar(v, "hex", false, "Input files are hex-encoded (as written by create --hex)")
}

func validateKeyRef(name, role string) error {
	if name == "" {
		return usageError("missing key name")
	}
	if err := keys.CheckKeyName(name); err != nil {
		return usageError("invalid key name: %v", err)
	}
	if role != "" {
		if err := keys.CheckRole(role); err != nil {
			return usageError("invalid role: %v", err)
		}
	}
	return nil
}
