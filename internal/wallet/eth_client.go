package wallet

import (
	"context"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/shopspring/decimal"

	"stake-ledger/pkg/crypto_util"
	"stake-ledger/pkg/errno"
)

// transferGasLimit is the fixed cost of a plain value transfer.
const transferGasLimit = uint64(21000)

// weiPerToken converts between token units and wei.
var weiPerToken = decimal.New(1, 18)

// EthClient implements Client against an Ethereum-compatible JSON-RPC node.
type EthClient struct {
	client  *ethclient.Client
	chainID *big.Int
	sealKey []byte
}

// NewEthClient dials the RPC endpoint and resolves the chain id for EIP-155
// signing. sealKey is the AES key used to seal generated account secrets.
func NewEthClient(ctx context.Context, rpcURL string, sealKey []byte) (*EthClient, error) {
	client, err := ethclient.Dial(rpcURL)
	if err != nil {
		return nil, fmt.Errorf("dial rpc %s: %w", rpcURL, err)
	}

	chainID, err := client.ChainID(ctx)
	if err != nil {
		return nil, fmt.Errorf("resolve chain id: %w", err)
	}

	return &EthClient{client: client, chainID: chainID, sealKey: sealKey}, nil
}

func (c *EthClient) BalanceOf(ctx context.Context, address string) (decimal.Decimal, error) {
	if !common.IsHexAddress(address) {
		return decimal.Zero, fmt.Errorf("malformed address %q", address)
	}
	wei, err := c.client.BalanceAt(ctx, common.HexToAddress(address), nil)
	if err != nil {
		return decimal.Zero, fmt.Errorf("%w: query balance: %w", errno.ErrExternalCall, err)
	}
	return decimal.NewFromBigInt(wei, 0).Div(weiPerToken), nil
}

func (c *EthClient) Transfer(ctx context.Context, from string, secret []byte, to string, amount decimal.Decimal) (*TransferResult, error) {
	privKey, err := crypto.HexToECDSA(string(secret))
	if err != nil {
		return nil, fmt.Errorf("decode signing key: %w", err)
	}

	fromAddr := common.HexToAddress(from)
	nonce, err := c.client.PendingNonceAt(ctx, fromAddr)
	if err != nil {
		return nil, fmt.Errorf("%w: pending nonce: %w", errno.ErrExternalCall, err)
	}

	gasPrice, err := c.client.SuggestGasPrice(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: gas price: %w", errno.ErrExternalCall, err)
	}

	amountWei := amount.Mul(weiPerToken).BigInt()
	tx := types.NewTransaction(nonce, common.HexToAddress(to), amountWei, transferGasLimit, gasPrice, nil)

	signedTx, err := types.SignTx(tx, types.NewEIP155Signer(c.chainID), privKey)
	if err != nil {
		return nil, fmt.Errorf("sign transfer: %w", err)
	}

	if err := c.client.SendTransaction(ctx, signedTx); err != nil {
		return nil, fmt.Errorf("%w: broadcast: %w", errno.ErrExternalCall, err)
	}

	return &TransferResult{TxRef: signedTx.Hash().Hex()}, nil
}

func (c *EthClient) IsValidAddress(address string) bool {
	return common.IsHexAddress(address)
}

func (c *EthClient) GenerateAccount(ctx context.Context) (*GeneratedAccount, error) {
	key, err := crypto.GenerateKey()
	if err != nil {
		return nil, err
	}

	secretHex := fmt.Sprintf("%x", crypto.FromECDSA(key))
	sealed, err := crypto_util.EncryptAESGCM(c.sealKey, []byte(secretHex))
	if err != nil {
		return nil, fmt.Errorf("seal generated secret: %w", err)
	}

	return &GeneratedAccount{
		Address:         crypto.PubkeyToAddress(key.PublicKey).Hex(),
		EncryptedSecret: sealed,
	}, nil
}
