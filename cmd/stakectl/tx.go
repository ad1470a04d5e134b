package main

import (
	"bytes"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"lstaking/cmd/internal/passphrase"
	"lstaking/core/types"
	"lstaking/crypto"
	"lstaking/native/staking"
)

var httpClient = &http.Client{Timeout: 15 * time.Second}

type txFlags struct {
	accounts accountFlags

	keystore string
	passEnv  string
	op       string
	chainID  uint64
	nonce    int64
	rpc      string
	submit   bool

	amount          uint64
	feeBps          uint
	flag            bool
	address         string
	params          string
	frequencyHours  uint
	minAmount       uint64
	updateFrequency int64
	price           uint64
}

func (t *txFlags) register(fs *flag.FlagSet) {
	t.accounts.register(fs)
	fs.StringVar(&t.keystore, "keystore", "wallet.keystore", "Keystore of the signer")
	fs.StringVar(&t.passEnv, "pass-env", defaultPassEnv, "Environment variable holding the keystore passphrase")
	fs.StringVar(&t.op, "op", "", "Instruction name, e.g. stake or claimRewards")
	fs.Uint64Var(&t.chainID, "chain-id", 1, "Chain id to sign for")
	fs.Int64Var(&t.nonce, "nonce", -1, "Signer nonce; fetched from -rpc when negative")
	fs.StringVar(&t.rpc, "rpc", defaultRPC, "stakingd RPC endpoint")
	fs.BoolVar(&t.submit, "submit", false, "Submit the signed transaction instead of printing it")

	fs.Uint64Var(&t.amount, "amount", 0, "Amount for stake, increaseStake, unstake and fundRewardVault")
	fs.UintVar(&t.feeBps, "fee-bps", 0, "Protocol fee for updateProtocolFee")
	fs.BoolVar(&t.flag, "flag", false, "Pause flag for setGlobalEmergencyPause")
	fs.StringVar(&t.address, "address", "", "New authority for updateAuthority")
	fs.StringVar(&t.params, "params", "", "JSON parameters for initGlobalConfig, createPool and updatePoolConfig")
	fs.UintVar(&t.frequencyHours, "frequency-hours", 0, "Interval for enableAutoCompound")
	fs.Uint64Var(&t.minAmount, "min-amount", 0, "Minimum compound amount for enableAutoCompound")
	fs.Int64Var(&t.updateFrequency, "update-frequency", 0, "Staleness window in seconds for initOracle")
	fs.Uint64Var(&t.price, "price", 0, "Price for initOracle and updateOraclePrice")
}

// instruction assembles the payload named by -op.
func (t *txFlags) instruction() (staking.Instruction, error) {
	op, err := staking.ParseOpcode(t.op)
	if err != nil {
		return staking.Instruction{}, err
	}
	ins := staking.Instruction{
		Op:              op,
		PoolID:          t.accounts.poolID,
		Amount:          staking.Amount(t.amount),
		Flag:            t.flag,
		FrequencyHours:  uint32(t.frequencyHours),
		MinAmount:       staking.Amount(t.minAmount),
		UpdateFrequency: t.updateFrequency,
		Price:           t.price,
	}
	if t.feeBps > uint(staking.BasisPoints) {
		return staking.Instruction{}, fmt.Errorf("-fee-bps %d exceeds %d", t.feeBps, staking.BasisPoints)
	}
	ins.FeeBps = uint16(t.feeBps)
	if ins.Address, err = parseOptional("address", t.address); err != nil {
		return staking.Instruction{}, err
	}

	var target any
	switch op {
	case staking.OpInitGlobalConfig:
		target = &ins.Global
	case staking.OpCreatePool:
		target = &ins.Pool
	case staking.OpUpdatePoolConfig:
		target = &ins.Update
	}
	if target != nil {
		if strings.TrimSpace(t.params) == "" {
			return staking.Instruction{}, fmt.Errorf("%s requires -params", op)
		}
		dec := json.NewDecoder(strings.NewReader(t.params))
		dec.DisallowUnknownFields()
		if err := dec.Decode(target); err != nil {
			return staking.Instruction{}, fmt.Errorf("-params: %w", err)
		}
		switch op {
		case staking.OpCreatePool:
			ins.PoolID = ins.Pool.PoolID
		case staking.OpUpdatePoolConfig:
			ins.PoolID = ins.Update.PoolID
		}
	}
	return ins, nil
}

func runTx(args []string, out io.Writer) error {
	fs := flag.NewFlagSet("tx", flag.ContinueOnError)
	var tf txFlags
	tf.register(fs)
	if err := fs.Parse(args); err != nil {
		return err
	}

	pass, err := passphrase.NewSource(tf.passEnv, "wallet keystore").Get()
	if err != nil {
		return err
	}
	key, err := crypto.LoadFromKeystore(tf.keystore, pass)
	if err != nil {
		return fmt.Errorf("load keystore: %w", err)
	}
	signer := key.PubKey().Address()

	ins, err := tf.instruction()
	if err != nil {
		return err
	}
	nonce := uint64(tf.nonce)
	if tf.nonce < 0 {
		if nonce, err = fetchNonce(tf.rpc, signer); err != nil {
			return err
		}
	}
	tx, err := buildTransaction(key, &tf.accounts, ins, tf.chainID, nonce)
	if err != nil {
		return err
	}

	if !tf.submit {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(tx)
	}
	receipt, err := submit(tf.rpc, tx)
	if err != nil {
		return err
	}
	_, err = out.Write(append(receipt, '\n'))
	return err
}

// buildTransaction signs ins with key, deriving the account references the
// opcode expects.
func buildTransaction(key *crypto.PrivateKey, af *accountFlags, ins staking.Instruction, chainID, nonce uint64) (*types.Transaction, error) {
	acc, err := af.derive(key.PubKey().Address())
	if err != nil {
		return nil, err
	}
	refs, err := staking.AccountList(ins.Op, acc)
	if err != nil {
		return nil, err
	}
	tx := &types.Transaction{ChainID: chainID, Nonce: nonce, Data: ins.Encode(), Accounts: refs}
	if err := tx.Sign(key.PrivateKey); err != nil {
		return nil, fmt.Errorf("sign transaction: %w", err)
	}
	return tx, nil
}

func fetchNonce(endpoint string, addr crypto.Address) (uint64, error) {
	resp, err := httpClient.Get(strings.TrimRight(endpoint, "/") + "/accounts/" + addr.String() + "/nonce")
	if err != nil {
		return 0, fmt.Errorf("fetch nonce: %w", err)
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return 0, fmt.Errorf("read nonce response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return 0, fmt.Errorf("fetch nonce: %s: %s", resp.Status, strings.TrimSpace(string(body)))
	}
	var payload struct {
		Nonce uint64 `json:"nonce"`
	}
	if err := json.Unmarshal(body, &payload); err != nil {
		return 0, fmt.Errorf("decode nonce response: %w", err)
	}
	return payload.Nonce, nil
}

func submit(endpoint string, tx *types.Transaction) ([]byte, error) {
	payload, err := json.Marshal(tx)
	if err != nil {
		return nil, err
	}
	resp, err := httpClient.Post(strings.TrimRight(endpoint, "/")+"/tx", "application/json", bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("submit transaction: %w", err)
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read submit response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("submit transaction: %s: %s", resp.Status, strings.TrimSpace(string(body)))
	}
	return bytes.TrimSpace(body), nil
}
