// issuer-cli is a command-line client for interacting with an issuerd daemon.
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"strings"
	"syscall"
	"time"

	"github.com/shielded-labs/issuerd/config"
	"github.com/shielded-labs/issuerd/internal/keyring"
	"github.com/shielded-labs/issuerd/internal/rpc"
	"github.com/shielded-labs/issuerd/internal/rpcclient"
	"golang.org/x/term"
)

func main() {
	if len(os.Args) < 2 {
		usage()
		os.Exit(1)
	}

	// Parse global flags that appear before the subcommand.
	rpcURL := "http://127.0.0.1:8232"
	dataDir := config.DefaultDataDir()
	network := "mainnet"

	args := os.Args[1:]
	for len(args) > 0 {
		switch {
		case args[0] == "--rpc" && len(args) > 1:
			rpcURL = args[1]
			args = args[2:]
		case strings.HasPrefix(args[0], "--rpc="):
			rpcURL = args[0][len("--rpc="):]
			args = args[1:]
		case args[0] == "--datadir" && len(args) > 1:
			dataDir = args[1]
			args = args[2:]
		case strings.HasPrefix(args[0], "--datadir="):
			dataDir = args[0][len("--datadir="):]
			args = args[1:]
		case args[0] == "--network" && len(args) > 1:
			network = args[1]
			args = args[2:]
		case strings.HasPrefix(args[0], "--network="):
			network = args[0][len("--network="):]
			args = args[1:]
		default:
			goto dispatch
		}
	}

dispatch:
	if len(args) == 0 {
		usage()
		os.Exit(1)
	}

	client := rpcclient.New(rpcURL)
	cmd := args[0]
	cmdArgs := args[1:]

	switch cmd {
	case "identity":
		cmdIdentity(client)
	case "create":
		cmdCreate(client, cmdArgs)
	case "issue":
		cmdIssue(client, cmdArgs)
	case "finalize":
		cmdFinalize(client, cmdArgs)
	case "burn":
		cmdBurn(client, cmdArgs)
	case "deploy":
		cmdDeploy(client, rpcURL, cmdArgs)
	case "get":
		cmdGet(client, cmdArgs)
	case "list":
		cmdList(client, cmdArgs)
	case "keyring":
		cmdKeyring(cmdArgs, dataDir, network)
	case "help", "--help", "-h":
		usage()
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n\n", cmd)
		usage()
		os.Exit(1)
	}
}

func usage() {
	fmt.Fprintf(os.Stderr, `Usage: issuer-cli [global flags] <command> [flags]

Global flags:
  --rpc <url>         RPC endpoint (default: http://127.0.0.1:8232)
  --datadir <path>    Data directory (default: ~/.issuerd)
  --network <net>     mainnet (default) or testnet

Commands:
  identity                        Show the daemon's issuer identity
  create --name <n> --symbol <SYM> --supply <amt> --recipient <addr>
         [--description <text>] [--finalize]
                                  Register a new asset
  issue --asset <id> --amount <amt> --recipient <addr>
                                  Issue additional supply
  finalize <asset_id>             Irreversibly stop further issuance
  burn --asset <id> --amount <amt> [--from <addr>]
                                  Remove supply from circulation
  deploy <asset_id> [--mine]      Broadcast via the issuance tool
  get <asset_id>                  Show an asset record
  get --id <internal_id>          Show an asset by internal id
  list [--issuer <ik>]            List assets (optionally by issuer)

  keyring init [--mnemonic] [--encrypt]
                                  Create a local issuer identity
  keyring show                    Show the local issuer identity
`)
}

// ── identity ────────────────────────────────────────────────────────────

func cmdIdentity(client *rpcclient.Client) {
	var res rpc.IdentityResult
	if err := client.Call("issuer_getIdentity", nil, &res); err != nil {
		fatal("issuer_getIdentity: %v", err)
	}
	fmt.Printf("Issuer:   %s\n", res.Issuer)
	fmt.Printf("Network:  %s\n", res.Network)
}

// ── create ──────────────────────────────────────────────────────────────

func cmdCreate(client *rpcclient.Client, args []string) {
	fs := flag.NewFlagSet("create", flag.ExitOnError)
	name := fs.String("name", "", "Asset name")
	symbol := fs.String("symbol", "", "Asset symbol (2-10 chars)")
	desc := fs.String("description", "", "Asset description")
	supply := fs.String("supply", "", "Initial supply (decimal string)")
	recipient := fs.String("recipient", "", "Recipient address")
	finalize := fs.Bool("finalize", false, "Finalize at creation (no further issuance)")
	fs.Parse(args)

	if *name == "" || *symbol == "" || *supply == "" || *recipient == "" {
		fatal("Usage: issuer-cli create --name <n> --symbol <SYM> --supply <amt> --recipient <addr>")
	}

	var res rpc.TokenResult
	err := client.Call("asset_create", rpc.AssetCreateParam{
		Name:        *name,
		Symbol:      *symbol,
		Description: *desc,
		Supply:      *supply,
		Recipient:   *recipient,
		Finalize:    *finalize,
	}, &res)
	if err != nil {
		fatal("asset_create: %v", err)
	}
	printToken(&res)
}

// ── issue ───────────────────────────────────────────────────────────────

func cmdIssue(client *rpcclient.Client, args []string) {
	fs := flag.NewFlagSet("issue", flag.ExitOnError)
	asset := fs.String("asset", "", "Asset identifier (130 hex chars)")
	amount := fs.String("amount", "", "Amount to issue")
	recipient := fs.String("recipient", "", "Recipient address")
	fs.Parse(args)

	if *asset == "" || *amount == "" || *recipient == "" {
		fatal("Usage: issuer-cli issue --asset <id> --amount <amt> --recipient <addr>")
	}

	var res rpc.TokenResult
	err := client.Call("asset_issue", rpc.AssetIssueParam{
		AssetID:   *asset,
		Amount:    *amount,
		Recipient: *recipient,
	}, &res)
	if err != nil {
		fatal("asset_issue: %v", err)
	}
	fmt.Printf("Total supply: %s\n", res.TotalSupply)
	fmt.Printf("Status:       %s\n", res.Status)
}

// ── finalize ────────────────────────────────────────────────────────────

func cmdFinalize(client *rpcclient.Client, args []string) {
	if len(args) < 1 {
		fatal("Usage: issuer-cli finalize <asset_id>")
	}

	var res rpc.TokenResult
	if err := client.Call("asset_finalize", rpc.AssetIDParam{AssetID: args[0]}, &res); err != nil {
		fatal("asset_finalize: %v", err)
	}
	fmt.Printf("Finalized: %v\n", res.Finalized)
	fmt.Printf("Status:    %s\n", res.Status)
}

// ── burn ────────────────────────────────────────────────────────────────

func cmdBurn(client *rpcclient.Client, args []string) {
	fs := flag.NewFlagSet("burn", flag.ExitOnError)
	asset := fs.String("asset", "", "Asset identifier")
	amount := fs.String("amount", "", "Amount to burn")
	from := fs.String("from", "", "Burn address (default: incinerator)")
	fs.Parse(args)

	if *asset == "" || *amount == "" {
		fatal("Usage: issuer-cli burn --asset <id> --amount <amt>")
	}

	var res rpc.TokenResult
	err := client.Call("asset_burn", rpc.AssetBurnParam{
		AssetID: *asset,
		Amount:  *amount,
		From:    *from,
	}, &res)
	if err != nil {
		fatal("asset_burn: %v", err)
	}
	fmt.Printf("Total supply:  %s\n", res.TotalSupply)
	fmt.Printf("Burned supply: %s\n", res.BurnedSupply)
}

// ── deploy ──────────────────────────────────────────────────────────────

func cmdDeploy(client *rpcclient.Client, rpcURL string, args []string) {
	fs := flag.NewFlagSet("deploy", flag.ExitOnError)
	mine := fs.Bool("mine", false, "Ask the tool to mine the transaction")
	fs.Parse(args)

	if fs.NArg() < 1 {
		fatal("Usage: issuer-cli deploy <asset_id> [--mine]")
	}

	// Deployments wait on the external tool; use a patient client.
	long := rpcclient.NewWithTimeout(rpcURL, 15*time.Minute)

	param := rpc.AssetDeployParam{AssetID: fs.Arg(0)}
	if *mine {
		param.Mine = mine
	}

	var res rpc.DeployResult
	if err := long.Call("asset_deploy", param, &res); err != nil {
		fatal("asset_deploy: %v", err)
	}
	fmt.Printf("Deployed: %s\n", res.Token.AssetID)
	fmt.Printf("TxID:     %s\n", res.TxID)
}

// ── get ─────────────────────────────────────────────────────────────────

func cmdGet(client *rpcclient.Client, args []string) {
	fs := flag.NewFlagSet("get", flag.ExitOnError)
	byID := fs.String("id", "", "Internal record id")
	fs.Parse(args)

	var res rpc.TokenResult
	switch {
	case *byID != "":
		if err := client.Call("asset_getById", rpc.IDParam{ID: *byID}, &res); err != nil {
			fatal("asset_getById: %v", err)
		}
	case fs.NArg() >= 1:
		if err := client.Call("asset_get", rpc.AssetIDParam{AssetID: fs.Arg(0)}, &res); err != nil {
			fatal("asset_get: %v", err)
		}
	default:
		fatal("Usage: issuer-cli get <asset_id> | get --id <internal_id>")
	}
	printToken(&res)
}

// ── list ────────────────────────────────────────────────────────────────

func cmdList(client *rpcclient.Client, args []string) {
	fs := flag.NewFlagSet("list", flag.ExitOnError)
	issuer := fs.String("issuer", "", "Filter by issuer identifier")
	asJSON := fs.Bool("json", false, "Print raw JSON")
	fs.Parse(args)

	var res rpc.TokenListResult
	if *issuer != "" {
		if err := client.Call("asset_listByIssuer", rpc.IssuerParam{Issuer: *issuer}, &res); err != nil {
			fatal("asset_listByIssuer: %v", err)
		}
	} else {
		if err := client.Call("asset_list", struct{}{}, &res); err != nil {
			fatal("asset_list: %v", err)
		}
	}

	if *asJSON {
		out, _ := json.MarshalIndent(res, "", "  ")
		fmt.Println(string(out))
		return
	}

	fmt.Printf("Assets: %d\n", res.Count)
	for _, t := range res.Tokens {
		fin := ""
		if t.Finalized {
			fin = " [finalized]"
		}
		fmt.Printf("  %-10s %-12s supply=%-20s %s%s\n",
			t.Symbol, t.Status, t.TotalSupply, shortAssetID(t.AssetID), fin)
	}
}

// ── keyring ─────────────────────────────────────────────────────────────

func cmdKeyring(args []string, dataDir, network string) {
	if len(args) < 1 {
		fatal("Usage: issuer-cli keyring <init|show>")
	}

	cfg := config.Default(config.NetworkType(network))
	cfg.DataDir = dataDir
	path := cfg.KeyringFile()

	switch args[0] {
	case "init":
		fs := flag.NewFlagSet("keyring init", flag.ExitOnError)
		useMnemonic := fs.Bool("mnemonic", false, "Derive the seed from a new BIP-39 mnemonic")
		encrypt := fs.Bool("encrypt", false, "Encrypt the key record with a passphrase")
		fs.Parse(args[1:])

		var passphrase []byte
		if *encrypt {
			p1, err := readPassword("Passphrase: ")
			if err != nil {
				fatal("read passphrase: %v", err)
			}
			p2, err := readPassword("Repeat passphrase: ")
			if err != nil {
				fatal("read passphrase: %v", err)
			}
			if string(p1) != string(p2) {
				fatal("passphrases do not match")
			}
			passphrase = p1
		}

		var seed []byte
		var err error
		if *useMnemonic {
			mnemonic, mErr := keyring.NewMnemonic()
			if mErr != nil {
				fatal("generate mnemonic: %v", mErr)
			}
			seed, err = keyring.SeedFromMnemonic(mnemonic, "")
			if err != nil {
				fatal("derive seed: %v", err)
			}
			fmt.Println("Recovery mnemonic (write this down, it is shown once):")
			fmt.Printf("\n  %s\n\n", mnemonic)
		} else {
			seed, err = keyring.GenerateSeed(keyring.DefaultSeedSize)
			if err != nil {
				fatal("generate seed: %v", err)
			}
		}

		kr, err := keyring.CreateFromSeed(path, seed, passphrase)
		if err != nil {
			fatal("create key record: %v", err)
		}
		fmt.Printf("Issuer:  %s\n", kr.Issuer)
		fmt.Printf("Record:  %s\n", path)

	case "show":
		var passphrase []byte
		kr, err := keyring.Load(path, nil)
		if err != nil && strings.Contains(err.Error(), "encrypted") {
			passphrase, err = readPassword("Passphrase: ")
			if err != nil {
				fatal("read passphrase: %v", err)
			}
			kr, err = keyring.Load(path, passphrase)
		}
		if err != nil {
			fatal("load key record: %v", err)
		}
		fmt.Printf("Issuer:   %s\n", kr.Issuer)
		fmt.Printf("Created:  %s\n", kr.CreatedAt.Format("2006-01-02 15:04:05 UTC"))

	default:
		fatal("Unknown keyring command: %s", args[0])
	}
}

// ── Output helpers ──────────────────────────────────────────────────────

func printToken(t *rpc.TokenResult) {
	fmt.Printf("Asset:         %s\n", t.AssetID)
	fmt.Printf("Name:          %s (%s)\n", t.Name, t.Symbol)
	if t.Description != "" {
		fmt.Printf("Description:   %s\n", t.Description)
	}
	fmt.Printf("Issuer:        %s\n", t.Issuer)
	fmt.Printf("Total supply:  %s\n", t.TotalSupply)
	fmt.Printf("Burned:        %s\n", t.BurnedSupply)
	fmt.Printf("Recipient:     %s\n", t.Recipient)
	fmt.Printf("Status:        %s\n", t.Status)
	fmt.Printf("Finalized:     %v\n", t.Finalized)
	if t.TxID != "" {
		fmt.Printf("TxID:          %s\n", t.TxID)
	}
	fmt.Printf("History:       %d entries\n", len(t.History))
}

func shortAssetID(id string) string {
	if len(id) <= 20 {
		return id
	}
	return id[:12] + "..." + id[len(id)-6:]
}

func readPassword(prompt string) ([]byte, error) {
	fmt.Fprint(os.Stderr, prompt)
	password, err := term.ReadPassword(int(syscall.Stdin))
	fmt.Fprintln(os.Stderr) // newline after hidden input
	if err != nil {
		return nil, err
	}
	return password, nil
}

func fatal(format string, args ...interface{}) {
	fmt.Fprintf(os.Stderr, "Error: "+format+"\n", args...)
	os.Exit(1)
}
