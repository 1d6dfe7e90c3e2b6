package ledger

import (
	"context"
	"crypto/ecdsa"
	"fmt"
	"math/big"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/pkg/errors"

	"github.com/veriport/veriport"
	"github.com/veriport/veriport/internal/config"
	"github.com/veriport/veriport/internal/domain"
)

// registryABI is the consumed surface of the attestation registry contract.
// Access control lives in the contract; only the observable record and
// event shape matters here.
const registryABI = `[
	{"type":"event","name":"EventRequested","anonymous":false,"inputs":[
		{"name":"id","type":"uint256","indexed":true},
		{"name":"owner","type":"address","indexed":true},
		{"name":"organizer","type":"address","indexed":true}]},
	{"type":"function","name":"createEventRequest","stateMutability":"nonpayable","inputs":[
		{"name":"organizer","type":"address"},
		{"name":"startAt","type":"uint256"},
		{"name":"endAt","type":"uint256"},
		{"name":"contentHash","type":"bytes32"},
		{"name":"contentURI","type":"string"}],
		"outputs":[{"name":"id","type":"uint256"}]},
	{"type":"function","name":"confirmEvent","stateMutability":"nonpayable","inputs":[
		{"name":"id","type":"uint256"},
		{"name":"resultURI","type":"string"}],"outputs":[]},
	{"type":"function","name":"rejectEvent","stateMutability":"nonpayable","inputs":[
		{"name":"id","type":"uint256"},
		{"name":"reasonURI","type":"string"}],"outputs":[]},
	{"type":"function","name":"getEvent","stateMutability":"view","inputs":[
		{"name":"id","type":"uint256"}],
		"outputs":[
		{"name":"owner","type":"address"},
		{"name":"organizer","type":"address"},
		{"name":"startAt","type":"uint256"},
		{"name":"endAt","type":"uint256"},
		{"name":"contentHash","type":"bytes32"},
		{"name":"contentURI","type":"string"},
		{"name":"resultURI","type":"string"},
		{"name":"reasonURI","type":"string"},
		{"name":"status","type":"uint8"}]}
]`

const receiptPollInterval = 2 * time.Second

// backend is the slice of ethclient the repository uses.
type backend interface {
	CallContract(ctx context.Context, call ethereum.CallMsg, blockNumber *big.Int) ([]byte, error)
	FilterLogs(ctx context.Context, q ethereum.FilterQuery) ([]types.Log, error)
	BlockNumber(ctx context.Context) (uint64, error)
	PendingNonceAt(ctx context.Context, account common.Address) (uint64, error)
	SuggestGasPrice(ctx context.Context) (*big.Int, error)
	EstimateGas(ctx context.Context, call ethereum.CallMsg) (uint64, error)
	SendTransaction(ctx context.Context, tx *types.Transaction) error
	TransactionReceipt(ctx context.Context, txHash common.Hash) (*types.Receipt, error)
}

// Repository implements the ledger port against an EVM attestation
// registry. Reads work without a key; transitions require one.
type Repository struct {
	client  backend
	abi     abi.ABI
	address common.Address
	chainID *big.Int
	key     *ecdsa.PrivateKey
	sender  common.Address
}

func NewRepository(conf config.Ledger) (*Repository, error) {
	client, err := ethclient.Dial(conf.RPCEndpoint)
	if err != nil {
		return nil, errors.Wrap(err, "failed to dial ledger rpc")
	}
	return newRepository(client, conf)
}

func newRepository(client backend, conf config.Ledger) (*Repository, error) {
	if !common.IsHexAddress(conf.ContractAddress) {
		return nil, fmt.Errorf("invalid contract address: %s", conf.ContractAddress)
	}

	parsed, err := abi.JSON(strings.NewReader(registryABI))
	if err != nil {
		return nil, errors.Wrap(err, "failed to parse registry abi")
	}

	r := &Repository{
		client:  client,
		abi:     parsed,
		address: common.HexToAddress(conf.ContractAddress),
		chainID: big.NewInt(conf.ChainID),
	}

	if conf.PrivateKey != "" {
		key, err := crypto.HexToECDSA(strings.TrimPrefix(conf.PrivateKey, "0x"))
		if err != nil {
			return nil, errors.Wrap(err, "invalid signer key")
		}
		r.key = key
		r.sender = crypto.PubkeyToAddress(key.PublicKey)
	}

	return r, nil
}

// Sender is the configured signer address, empty when read-only.
func (r *Repository) Sender() string {
	if r.key == nil {
		return ""
	}
	return r.sender.Hex()
}

type rawRecord struct {
	Owner       common.Address
	Organizer   common.Address
	StartAt     *big.Int
	EndAt       *big.Int
	ContentHash [32]byte
	ContentURI  string
	ResultURI   string
	ReasonURI   string
	Status      uint8
}

func (r *Repository) GetRecord(ctx context.Context, id uint64) (*veriport.AttestationRequest, error) {
	data, err := r.abi.Pack("getEvent", new(big.Int).SetUint64(id))
	if err != nil {
		return nil, err
	}

	ret, err := r.client.CallContract(ctx, ethereum.CallMsg{To: &r.address, Data: data}, nil)
	if err != nil {
		return nil, errors.Wrapf(err, "getEvent(%d) call failed", id)
	}
	if len(ret) == 0 {
		return nil, domain.NotFoundError{Resource: "record"}
	}

	var raw rawRecord
	if err := r.abi.UnpackIntoInterface(&raw, "getEvent", ret); err != nil {
		return nil, errors.Wrapf(err, "getEvent(%d) returned malformed data", id)
	}

	if raw.Owner == (common.Address{}) {
		return nil, domain.NotFoundError{Resource: "record"}
	}

	return &veriport.AttestationRequest{
		ID:          id,
		Owner:       raw.Owner.Hex(),
		Organizer:   raw.Organizer.Hex(),
		StartAt:     time.Unix(raw.StartAt.Int64(), 0).UTC(),
		EndAt:       time.Unix(raw.EndAt.Int64(), 0).UTC(),
		ContentHash: common.BytesToHash(raw.ContentHash[:]).Hex(),
		ContentURI:  raw.ContentURI,
		ResultURI:   raw.ResultURI,
		ReasonURI:   raw.ReasonURI,
		Status:      veriport.Status(raw.Status),
	}, nil
}

// ListCreated scans EventRequested logs filtered by the indexed party from
// fromHeight (inclusive) to the current head. Returns the scanned head so
// callers can resume incrementally.
func (r *Repository) ListCreated(ctx context.Context, party domain.Party, address string, fromHeight uint64) ([]veriport.CreationEvent, uint64, error) {
	head, err := r.client.BlockNumber(ctx)
	if err != nil {
		return nil, 0, errors.Wrap(err, "failed to read chain head")
	}
	if fromHeight > head {
		return nil, head, nil
	}

	query := ethereum.FilterQuery{
		Addresses: []common.Address{r.address},
		FromBlock: new(big.Int).SetUint64(fromHeight),
		ToBlock:   new(big.Int).SetUint64(head),
		Topics:    topicsForParty(r.abi.Events["EventRequested"].ID, party, common.HexToAddress(address)),
	}

	logs, err := r.client.FilterLogs(ctx, query)
	if err != nil {
		return nil, 0, errors.Wrap(err, "creation log scan failed")
	}

	events := make([]veriport.CreationEvent, 0, len(logs))
	for _, l := range logs {
		ev, err := creationEventFromLog(l)
		if err != nil {
			return nil, 0, err
		}
		events = append(events, ev)
	}
	return events, head, nil
}

func topicsForParty(eventID common.Hash, party domain.Party, address common.Address) [][]common.Hash {
	addrTopic := common.BytesToHash(address.Bytes())
	switch party {
	case domain.PartyOwner:
		return [][]common.Hash{{eventID}, nil, {addrTopic}}
	default:
		return [][]common.Hash{{eventID}, nil, nil, {addrTopic}}
	}
}

func creationEventFromLog(l types.Log) (veriport.CreationEvent, error) {
	if len(l.Topics) != 4 {
		return veriport.CreationEvent{}, fmt.Errorf("unexpected EventRequested topic count: %d", len(l.Topics))
	}
	return veriport.CreationEvent{
		ID:        l.Topics[1].Big().Uint64(),
		Owner:     common.BytesToAddress(l.Topics[2].Bytes()).Hex(),
		Organizer: common.BytesToAddress(l.Topics[3].Bytes()).Hex(),
		Height:    l.BlockNumber,
	}, nil
}

func (r *Repository) CreateRequest(ctx context.Context, organizer string, startAt, endAt time.Time, contentHash, contentURI string) (uint64, string, error) {
	if !common.IsHexAddress(organizer) {
		return 0, "", fmt.Errorf("invalid organizer address: %s", organizer)
	}

	data, err := r.abi.Pack("createEventRequest",
		common.HexToAddress(organizer),
		big.NewInt(startAt.Unix()),
		big.NewInt(endAt.Unix()),
		common.HexToHash(contentHash),
		contentURI,
	)
	if err != nil {
		return 0, "", err
	}

	receipt, txHash, err := r.submit(ctx, data)
	if err != nil {
		return 0, "", err
	}

	id, err := r.requestedID(receipt)
	if err != nil {
		return 0, "", err
	}

	return id, txHash, nil
}

func (r *Repository) Confirm(ctx context.Context, id uint64, resultURI string) (string, error) {
	data, err := r.abi.Pack("confirmEvent", new(big.Int).SetUint64(id), resultURI)
	if err != nil {
		return "", err
	}
	_, txHash, err := r.submit(ctx, data)
	return txHash, err
}

func (r *Repository) Reject(ctx context.Context, id uint64, reasonURI string) (string, error) {
	data, err := r.abi.Pack("rejectEvent", new(big.Int).SetUint64(id), reasonURI)
	if err != nil {
		return "", err
	}
	_, txHash, err := r.submit(ctx, data)
	return txHash, err
}

// submit signs, sends and waits for the transaction to be mined.
func (r *Repository) submit(ctx context.Context, data []byte) (*types.Receipt, string, error) {
	if r.key == nil {
		return nil, "", fmt.Errorf("ledger repository is read-only: no signer key configured")
	}

	nonce, err := r.client.PendingNonceAt(ctx, r.sender)
	if err != nil {
		return nil, "", errors.Wrap(err, "failed to read account nonce")
	}

	gasPrice, err := r.client.SuggestGasPrice(ctx)
	if err != nil {
		return nil, "", errors.Wrap(err, "failed to read gas price")
	}

	gas, err := r.client.EstimateGas(ctx, ethereum.CallMsg{
		From: r.sender,
		To:   &r.address,
		Data: data,
	})
	if err != nil {
		// Estimation executes the call, so authorization and state-machine
		// reverts surface here before anything is submitted.
		return nil, "", translateRevert(err)
	}

	tx := types.NewTransaction(nonce, r.address, common.Big0, gas, gasPrice, data)
	signed, err := types.SignTx(tx, types.LatestSignerForChainID(r.chainID), r.key)
	if err != nil {
		return nil, "", errors.Wrap(err, "failed to sign transaction")
	}

	if err := r.client.SendTransaction(ctx, signed); err != nil {
		return nil, "", translateRevert(err)
	}

	receipt, err := r.waitMined(ctx, signed.Hash())
	if err != nil {
		return nil, signed.Hash().Hex(), err
	}
	if receipt.Status != types.ReceiptStatusSuccessful {
		return nil, signed.Hash().Hex(), fmt.Errorf("transaction %s reverted on-chain", signed.Hash().Hex())
	}

	return receipt, signed.Hash().Hex(), nil
}

func (r *Repository) waitMined(ctx context.Context, txHash common.Hash) (*types.Receipt, error) {
	ticker := time.NewTicker(receiptPollInterval)
	defer ticker.Stop()

	for {
		receipt, err := r.client.TransactionReceipt(ctx, txHash)
		if err == nil {
			return receipt, nil
		}

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-ticker.C:
		}
	}
}

// requestedID extracts the assigned id from the EventRequested log of a
// creation receipt.
func (r *Repository) requestedID(receipt *types.Receipt) (uint64, error) {
	eventID := r.abi.Events["EventRequested"].ID
	for _, l := range receipt.Logs {
		if l.Address == r.address && len(l.Topics) == 4 && l.Topics[0] == eventID {
			return l.Topics[1].Big().Uint64(), nil
		}
	}
	return 0, fmt.Errorf("creation receipt carries no EventRequested log")
}

// translateRevert maps contract reverts onto the domain taxonomy while
// keeping the provider text verbatim.
func translateRevert(err error) error {
	msg := err.Error()
	lowered := strings.ToLower(msg)

	switch {
	case strings.Contains(lowered, "not organizer"),
		strings.Contains(lowered, "not authorized"),
		strings.Contains(lowered, "unauthorized"),
		strings.Contains(lowered, "caller is not"):
		return domain.AuthorizationError{Detail: msg}
	case strings.Contains(lowered, "already finalized"),
		strings.Contains(lowered, "not pending"),
		strings.Contains(lowered, "invalid status"):
		return domain.AlreadyFinalizedError{Status: msg}
	default:
		return errors.Wrap(err, "ledger submission failed")
	}
}
