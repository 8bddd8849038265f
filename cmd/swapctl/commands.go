package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io/ioutil"
	"net/http"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/urfave/cli"
)

// printJson pretty-prints an arbitrary response value, matching lncli's
// own printJson helper for non-proto responses.
func printJson(resp interface{}) {
	b, err := json.Marshal(resp)
	if err != nil {
		fatal(err)
	}

	var out bytes.Buffer
	json.Indent(&out, b, "", "\t")
	out.WriteTo(os.Stdout)
	fmt.Println()
}

// apiGet issues a GET against apiaddr+path and decodes the JSON response
// body into out.
func apiGet(ctx *cli.Context, path string, out interface{}) error {
	resp, err := http.Get(ctx.GlobalString("apiaddr") + path)
	if err != nil {
		return fmt.Errorf("swapctl: GET %s: %w", path, err)
	}
	defer resp.Body.Close()

	return decodeOrProblem(resp, out)
}

// apiPost issues a POST with a JSON-encoded body against apiaddr+path and
// decodes the JSON response into out (if non-nil).
func apiPost(ctx *cli.Context, path string, body, out interface{}) error {
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			return fmt.Errorf("swapctl: encode request body: %w", err)
		}
	}

	resp, err := http.Post(ctx.GlobalString("apiaddr")+path, "application/json", &buf)
	if err != nil {
		return fmt.Errorf("swapctl: POST %s: %w", path, err)
	}
	defer resp.Body.Close()

	if out == nil {
		if resp.StatusCode >= 300 {
			return problemFrom(resp)
		}
		return nil
	}
	return decodeOrProblem(resp, out)
}

func decodeOrProblem(resp *http.Response, out interface{}) error {
	if resp.StatusCode >= 300 {
		return problemFrom(resp)
	}
	if out == nil {
		return nil
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

// problemFrom reads the body of a non-2xx response and reports it as is:
// internal/httpapi answers some errors in plain text (http.Error) and
// others as an application/problem+json body (writeProblem), and swapctl
// does not decode either form.
func problemFrom(resp *http.Response) error {
	body, _ := ioutil.ReadAll(resp.Body)
	return fmt.Errorf("swapctl: server returned %s: %s", resp.Status, string(body))
}

// infoResource/swapResource/createSwapRequest mirror internal/httpapi's
// wire shapes exactly: swapctl is a plain HTTP client with no import
// path back into swapd's own packages, so it keeps its own copies of
// internal/swap's wire types as well (swapRequest, ledgerParams below).
type infoResource struct {
	ID              string   `json:"id"`
	ListenAddresses []string `json:"listen_addresses"`
}

type swapResource struct {
	ID          uuid.UUID `json:"id"`
	Role        string    `json:"role"`
	AlphaLedger string    `json:"alpha_ledger"`
	BetaLedger  string    `json:"beta_ledger"`
	AlphaExpiry int64     `json:"alpha_expiry"`
	BetaExpiry  int64     `json:"beta_expiry"`
	Status      string    `json:"status"`
	CreatedAt   time.Time `json:"created_at"`
}

type orderResource struct {
	ID        uuid.UUID `json:"ID"`
	Position  int       `json:"Position"`
	Quantity  int64     `json:"Quantity"`
	Price     string    `json:"Price"`
	CreatedAt time.Time `json:"CreatedAt"`
}

var getInfoCommand = cli.Command{
	Name:  "getinfo",
	Usage: "returns this node's identity and advertised listen addresses",
	Action: func(ctx *cli.Context) error {
		var info infoResource
		if err := apiGet(ctx, "/v1/info", &info); err != nil {
			return err
		}
		printJson(info)
		return nil
	},
}

var listOrdersCommand = cli.Command{
	Name:  "listorders",
	Usage: "lists every standing order in the order book",
	Action: func(ctx *cli.Context) error {
		var orders []orderResource
		if err := apiGet(ctx, "/v1/orders", &orders); err != nil {
			return err
		}
		printJson(orders)
		return nil
	},
}

var listSwapsCommand = cli.Command{
	Name:  "listswaps",
	Usage: "lists every pending swap",
	Action: func(ctx *cli.Context) error {
		var swaps []swapResource
		if err := apiGet(ctx, "/v1/swaps", &swaps); err != nil {
			return err
		}
		printJson(swaps)
		return nil
	},
}

var swapStatusCommand = cli.Command{
	Name:      "swapstatus",
	Usage:     "shows a single swap's current status",
	ArgsUsage: "swap-id",
	Action: func(ctx *cli.Context) error {
		id := ctx.Args().First()
		if id == "" {
			return fmt.Errorf("swap-id argument missing")
		}
		var sw swapResource
		if err := apiGet(ctx, "/v1/swaps/"+id, &sw); err != nil {
			return err
		}
		printJson(sw)
		return nil
	},
}

var declineSwapCommand = cli.Command{
	Name:      "declineswap",
	Usage:     "declines a proposed swap",
	ArgsUsage: "swap-id",
	Action: func(ctx *cli.Context) error {
		id := ctx.Args().First()
		if id == "" {
			return fmt.Errorf("swap-id argument missing")
		}
		return apiPost(ctx, "/v1/swaps/"+id+"/decline", nil, nil)
	},
}

// ledgerParams mirrors internal/swap.LedgerParams's wire shape, kept as a
// local type for the same reason swapResource is: swapctl speaks the wire
// protocol, it does not link against internal/swap's server-side logic.
type ledgerParams struct {
	Ledger         string `json:"ledger"`
	AssetKind      string `json:"asset_kind"`
	Satoshis       int64  `json:"satoshis,omitempty"`
	Quantity       string `json:"quantity,omitempty"`
	TokenContract  string `json:"token_contract,omitempty"`
	RedeemIdentity string `json:"redeem_identity,omitempty"`
	RefundIdentity string `json:"refund_identity,omitempty"`
	Expiry         int64  `json:"expiry"`
}

type swapRequest struct {
	ID           uuid.UUID    `json:"id"`
	Alpha        ledgerParams `json:"alpha"`
	Beta         ledgerParams `json:"beta"`
	SecretHash   string       `json:"secret_hash"`
	HashFunction string       `json:"hash_function"`
	RolePeerID   string       `json:"role_peer_id"`
}

type createSwapRequest struct {
	swapRequest
	Role string `json:"role"`
}

var proposeSwapCommand = cli.Command{
	Name:  "proposeswap",
	Usage: "proposes a new atomic swap to this node's counterparty",
	Description: "Proposes an alpha/beta HTLC pair, per spec.md's SwapRequest.\n" +
		"   The secret hash must already be agreed out of band (e.g. supplied\n" +
		"   by the party that will redeem beta) -- swapctl does not generate\n" +
		"   secrets itself, that is swapd's own internal/secret registry's job.",
	Flags: []cli.Flag{
		cli.StringFlag{Name: "role", Usage: "\"alice\" or \"bob\""},
		cli.StringFlag{Name: "peer-id", Usage: "counterparty's node id, as returned by its getinfo"},
		cli.StringFlag{Name: "secret-hash", Usage: "hex-encoded 32-byte secret hash"},

		cli.StringFlag{Name: "alpha-ledger", Usage: "\"bitcoin\" or \"ethereum\""},
		cli.StringFlag{Name: "alpha-asset", Usage: "\"satoshis\", \"ether\", or \"erc20\""},
		cli.Int64Flag{Name: "alpha-satoshis", Usage: "alpha amount, satoshis asset only"},
		cli.StringFlag{Name: "alpha-quantity", Usage: "alpha amount, decimal string, ether/erc20 asset only"},
		cli.StringFlag{Name: "alpha-token-contract", Usage: "alpha ERC-20 contract address, erc20 asset only"},
		cli.StringFlag{Name: "alpha-refund-identity", Usage: "hex-encoded 20-byte identity this node refunds alpha to"},
		cli.Int64Flag{Name: "alpha-expiry", Usage: "alpha HTLC expiry, unix seconds"},

		cli.StringFlag{Name: "beta-ledger", Usage: "\"bitcoin\" or \"ethereum\""},
		cli.StringFlag{Name: "beta-asset", Usage: "\"satoshis\", \"ether\", or \"erc20\""},
		cli.Int64Flag{Name: "beta-satoshis", Usage: "beta amount, satoshis asset only"},
		cli.StringFlag{Name: "beta-quantity", Usage: "beta amount, decimal string, ether/erc20 asset only"},
		cli.StringFlag{Name: "beta-token-contract", Usage: "beta ERC-20 contract address, erc20 asset only"},
		cli.StringFlag{Name: "beta-refund-identity", Usage: "hex-encoded 20-byte identity this node refunds beta to"},
		cli.Int64Flag{Name: "beta-expiry", Usage: "beta HTLC expiry, unix seconds"},
	},
	Action: proposeSwap,
}

func proposeSwap(ctx *cli.Context) error {
	if ctx.String("role") == "" {
		return fmt.Errorf("--role is required")
	}
	if ctx.String("secret-hash") == "" {
		return fmt.Errorf("--secret-hash is required")
	}

	req := createSwapRequest{
		swapRequest: swapRequest{
			ID: uuid.New(),
			Alpha: ledgerParams{
				Ledger:         ctx.String("alpha-ledger"),
				AssetKind:      ctx.String("alpha-asset"),
				Satoshis:       ctx.Int64("alpha-satoshis"),
				Quantity:       ctx.String("alpha-quantity"),
				TokenContract:  ctx.String("alpha-token-contract"),
				RefundIdentity: ctx.String("alpha-refund-identity"),
				Expiry:         ctx.Int64("alpha-expiry"),
			},
			Beta: ledgerParams{
				Ledger:         ctx.String("beta-ledger"),
				AssetKind:      ctx.String("beta-asset"),
				Satoshis:       ctx.Int64("beta-satoshis"),
				Quantity:       ctx.String("beta-quantity"),
				TokenContract:  ctx.String("beta-token-contract"),
				RefundIdentity: ctx.String("beta-refund-identity"),
				Expiry:         ctx.Int64("beta-expiry"),
			},
			SecretHash:   ctx.String("secret-hash"),
			HashFunction: "SHA-256",
			RolePeerID:   ctx.String("peer-id"),
		},
		Role: ctx.String("role"),
	}

	var created swapResource
	if err := apiPost(ctx, "/v1/swaps", req, &created); err != nil {
		return err
	}
	printJson(created)
	return nil
}
