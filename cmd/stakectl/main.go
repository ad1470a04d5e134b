package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"

	"lstaking/cmd/internal/passphrase"
	"lstaking/crypto"
	"lstaking/native/staking"
)

const (
	defaultPassEnv = "LSTAKING_KEY_PASS"
	defaultRPC     = "http://localhost:8545"
)

func main() {
	if len(os.Args) < 2 {
		usage(os.Stderr)
		os.Exit(1)
	}

	var err error
	switch os.Args[1] {
	case "keygen":
		err = runKeygen(os.Args[2:], os.Stdout)
	case "accounts":
		err = runAccounts(os.Args[2:], os.Stdout)
	case "tx":
		err = runTx(os.Args[2:], os.Stdout)
	case "help", "-h", "--help":
		usage(os.Stdout)
		return
	default:
		usage(os.Stderr)
		os.Exit(1)
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func usage(w io.Writer) {
	fmt.Fprintln(w, "Usage: stakectl <command> [flags]")
	fmt.Fprintln(w, "")
	fmt.Fprintln(w, "Commands:")
	fmt.Fprintln(w, "  keygen     create a keystore and print its address")
	fmt.Fprintln(w, "  accounts   derive the record addresses for an owner and pool")
	fmt.Fprintln(w, "  tx         build and sign an instruction, optionally submitting it")
}

func runKeygen(args []string, out io.Writer) error {
	fs := flag.NewFlagSet("keygen", flag.ContinueOnError)
	path := fs.String("keystore", "wallet.keystore", "Output path for the keystore file")
	passEnv := fs.String("pass-env", defaultPassEnv, "Environment variable holding the keystore passphrase")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if _, err := os.Stat(*path); err == nil {
		return fmt.Errorf("keystore %s already exists", *path)
	}
	pass, err := passphrase.NewSource(*passEnv, "wallet keystore").Get()
	if err != nil {
		return err
	}
	key, err := crypto.CreateKeystore(*path, pass)
	if err != nil {
		return fmt.Errorf("create keystore: %w", err)
	}
	fmt.Fprintf(out, "address: %s\nkeystore: %s\n", key.PubKey().Address(), *path)
	return nil
}

// accountFlags collects the inputs record derivation needs.
type accountFlags struct {
	program    string
	authority  string
	creator    string
	stakeMint  string
	rewardMint string
	priceFeed  string
	owner      string
	poolID     uint64
}

func (a *accountFlags) register(fs *flag.FlagSet) {
	fs.StringVar(&a.program, "program", "", "Program address records derive under")
	fs.StringVar(&a.authority, "authority", "", "Key that seeded the global config")
	fs.StringVar(&a.creator, "creator", "", "Pool creator address")
	fs.StringVar(&a.stakeMint, "stake-mint", "", "Stake asset address")
	fs.StringVar(&a.rewardMint, "reward-mint", "", "Reward asset address")
	fs.StringVar(&a.priceFeed, "price-feed", "", "Price feed address for createPool, updatePoolConfig and initOracle")
	fs.StringVar(&a.owner, "owner", "", "User ledger owner (defaults to the signer for tx)")
	fs.Uint64Var(&a.poolID, "pool-id", 0, "Pool id")
}

func parseOptional(name, value string) (crypto.Address, error) {
	if strings.TrimSpace(value) == "" {
		return crypto.Address{}, nil
	}
	addr, err := crypto.ParseAddress(value)
	if err != nil {
		return crypto.Address{}, fmt.Errorf("-%s: %w", name, err)
	}
	return addr, nil
}

// derive resolves every derivable record address. fallbackOwner is used
// when -owner was not given; the owner also seeds the oracle record.
func (a *accountFlags) derive(fallbackOwner crypto.Address) (staking.Accounts, error) {
	program, err := crypto.ParseAddress(a.program)
	if err != nil {
		return staking.Accounts{}, fmt.Errorf("-program: %w", err)
	}
	var base staking.Accounts
	fields := []struct {
		name  string
		value string
		dst   *crypto.Address
	}{
		{"authority", a.authority, &base.Authority},
		{"creator", a.creator, &base.Creator},
		{"stake-mint", a.stakeMint, &base.StakeMint},
		{"reward-mint", a.rewardMint, &base.RewardMint},
		{"price-feed", a.priceFeed, &base.PriceFeed},
	}
	for _, f := range fields {
		addr, err := parseOptional(f.name, f.value)
		if err != nil {
			return staking.Accounts{}, err
		}
		*f.dst = addr
	}
	owner, err := parseOptional("owner", a.owner)
	if err != nil {
		return staking.Accounts{}, err
	}
	if owner.IsZero() {
		owner = fallbackOwner
	}
	derive := staking.Deriver{Program: program}
	acc, err := derive.AccountsFor(base, owner, a.poolID)
	if err != nil {
		return staking.Accounts{}, err
	}
	if !owner.IsZero() {
		if acc.Oracle, _, err = derive.Oracle(owner); err != nil {
			return staking.Accounts{}, err
		}
	}
	return acc, nil
}

func runAccounts(args []string, out io.Writer) error {
	fs := flag.NewFlagSet("accounts", flag.ContinueOnError)
	var af accountFlags
	af.register(fs)
	if err := fs.Parse(args); err != nil {
		return err
	}
	acc, err := af.derive(crypto.Address{})
	if err != nil {
		return err
	}
	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	return enc.Encode(acc)
}
