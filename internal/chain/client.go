package chain

import (
	"context"
	"crypto/ecdsa"
	"errors"
	"fmt"
	"math/big"
	"regexp"
	"strings"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/ethclient"
	"go.uber.org/zap"

	"carbonchain/internal/config"
)

var (
	ErrInvalidAddress = errors.New("invalid wallet address")
	ErrInvalidTokenID = errors.New("invalid token id")
	ErrTxReverted     = errors.New("transaction reverted")
)

var addressPattern = regexp.MustCompile(`^0x[0-9a-fA-F]{40}$`)

// IsValidAddress reports whether s is a well-formed 20-byte hex address.
func IsValidAddress(s string) bool {
	return addressPattern.MatchString(s)
}

// MintResult carries the outcome of a mint transaction.
type MintResult struct {
	TransactionHash string
	TokenID         string
}

// SellerRating is the aggregate on-chain rating for a seller address.
type SellerRating struct {
	TotalRating int64
	RatingCount int64
}

// Client is the contract-facing surface consumed by the issuance bridge,
// marketplace settlement and wallet services.
type Client interface {
	MintCredit(ctx context.Context, recipient string, amount int64, metadataURI string) (*MintResult, error)
	ListCredit(ctx context.Context, tokenID string, priceWei *big.Int) (string, error)
	BuyCredit(ctx context.Context, tokenID string) (string, error)
	DelistCredit(ctx context.Context, tokenID string) (string, error)
	RetireCredit(ctx context.Context, tokenID string) (string, error)
	RateSeller(ctx context.Context, seller string, rating uint8) (string, error)
	SendPayment(ctx context.Context, to string, amountWei *big.Int) (string, error)

	BalanceOf(ctx context.Context, address string) (int64, error)
	NativeBalance(ctx context.Context, address string) (*big.Int, error)
	OwnerOf(ctx context.Context, tokenID string) (string, error)
	TokenURI(ctx context.Context, tokenID string) (string, error)
	GetListingPrice(ctx context.Context, tokenID string) (*big.Int, error)
	IsListed(ctx context.Context, tokenID string) (bool, error)
	IsRetired(ctx context.Context, tokenID string) (bool, error)
	GetSellerRating(ctx context.Context, seller string) (*SellerRating, error)
	IsVerifier(ctx context.Context, address string) (bool, error)
}

// EVMClient talks to the BlueChainCarbon contract through a JSON-RPC endpoint,
// signing transactions with the configured verifier key.
type EVMClient struct {
	eth      *ethclient.Client
	abi      abi.ABI
	contract common.Address
	chainID  *big.Int
	key      *ecdsa.PrivateKey
	from     common.Address
	logger   *zap.Logger
}

// NewEVMClient dials the RPC endpoint and parses the signer key.
func NewEVMClient(ctx context.Context, cfg config.ChainConfig, logger *zap.Logger) (*EVMClient, error) {
	if !IsValidAddress(cfg.ContractAddress) {
		return nil, fmt.Errorf("%w: contract %q", ErrInvalidAddress, cfg.ContractAddress)
	}

	eth, err := ethclient.DialContext(ctx, cfg.RPCURL)
	if err != nil {
		return nil, fmt.Errorf("failed to dial RPC endpoint: %w", err)
	}

	parsed, err := abi.JSON(strings.NewReader(blueChainCarbonABI))
	if err != nil {
		return nil, fmt.Errorf("failed to parse contract ABI: %w", err)
	}

	key, err := crypto.HexToECDSA(strings.TrimPrefix(cfg.SignerKey, "0x"))
	if err != nil {
		return nil, fmt.Errorf("failed to parse signer key: %w", err)
	}

	return &EVMClient{
		eth:      eth,
		abi:      parsed,
		contract: common.HexToAddress(cfg.ContractAddress),
		chainID:  big.NewInt(cfg.ChainID),
		key:      key,
		from:     crypto.PubkeyToAddress(key.PublicKey),
		logger:   logger,
	}, nil
}

// SignerAddress returns the address transactions are signed with.
func (c *EVMClient) SignerAddress() string {
	return c.from.Hex()
}

func (c *EVMClient) MintCredit(ctx context.Context, recipient string, amount int64, metadataURI string) (*MintResult, error) {
	if !IsValidAddress(recipient) {
		return nil, fmt.Errorf("%w: %q", ErrInvalidAddress, recipient)
	}
	if amount <= 0 {
		return nil, fmt.Errorf("credits amount must be positive, got %d", amount)
	}

	receipt, err := c.transact(ctx, nil, "mintCredit",
		common.HexToAddress(recipient), big.NewInt(amount), metadataURI)
	if err != nil {
		return nil, fmt.Errorf("mintCredit failed: %w", err)
	}

	tokenID := c.tokenIDFromReceipt(receipt)
	c.logger.Info("carbon credits minted",
		zap.String("tx_hash", receipt.TxHash.Hex()),
		zap.String("token_id", tokenID),
		zap.Int64("amount", amount))

	return &MintResult{
		TransactionHash: receipt.TxHash.Hex(),
		TokenID:         tokenID,
	}, nil
}

func (c *EVMClient) ListCredit(ctx context.Context, tokenID string, priceWei *big.Int) (string, error) {
	id, err := parseTokenID(tokenID)
	if err != nil {
		return "", err
	}
	receipt, err := c.transact(ctx, nil, "listCredit", id, priceWei)
	if err != nil {
		return "", fmt.Errorf("listCredit failed: %w", err)
	}
	return receipt.TxHash.Hex(), nil
}

func (c *EVMClient) BuyCredit(ctx context.Context, tokenID string) (string, error) {
	id, err := parseTokenID(tokenID)
	if err != nil {
		return "", err
	}
	price, err := c.GetListingPrice(ctx, tokenID)
	if err != nil {
		return "", err
	}
	receipt, err := c.transact(ctx, price, "buyCredit", id)
	if err != nil {
		return "", fmt.Errorf("buyCredit failed: %w", err)
	}
	return receipt.TxHash.Hex(), nil
}

func (c *EVMClient) DelistCredit(ctx context.Context, tokenID string) (string, error) {
	id, err := parseTokenID(tokenID)
	if err != nil {
		return "", err
	}
	receipt, err := c.transact(ctx, nil, "delistCredit", id)
	if err != nil {
		return "", fmt.Errorf("delistCredit failed: %w", err)
	}
	return receipt.TxHash.Hex(), nil
}

func (c *EVMClient) RetireCredit(ctx context.Context, tokenID string) (string, error) {
	id, err := parseTokenID(tokenID)
	if err != nil {
		return "", err
	}
	receipt, err := c.transact(ctx, nil, "retireCredit", id)
	if err != nil {
		return "", fmt.Errorf("retireCredit failed: %w", err)
	}
	return receipt.TxHash.Hex(), nil
}

func (c *EVMClient) RateSeller(ctx context.Context, seller string, rating uint8) (string, error) {
	if !IsValidAddress(seller) {
		return "", fmt.Errorf("%w: %q", ErrInvalidAddress, seller)
	}
	receipt, err := c.transact(ctx, nil, "rateSeller", common.HexToAddress(seller), rating)
	if err != nil {
		return "", fmt.Errorf("rateSeller failed: %w", err)
	}
	return receipt.TxHash.Hex(), nil
}

// SendPayment submits a direct native-token transfer, used by marketplace
// settlement to pay the fee recipient.
func (c *EVMClient) SendPayment(ctx context.Context, to string, amountWei *big.Int) (string, error) {
	if !IsValidAddress(to) {
		return "", fmt.Errorf("%w: %q", ErrInvalidAddress, to)
	}

	recipient := common.HexToAddress(to)
	nonce, err := c.eth.PendingNonceAt(ctx, c.from)
	if err != nil {
		return "", fmt.Errorf("failed to fetch nonce: %w", err)
	}
	gasPrice, err := c.eth.SuggestGasPrice(ctx)
	if err != nil {
		return "", fmt.Errorf("failed to fetch gas price: %w", err)
	}

	tx := types.NewTx(&types.LegacyTx{
		Nonce:    nonce,
		To:       &recipient,
		Value:    amountWei,
		Gas:      21000,
		GasPrice: gasPrice,
	})

	signed, err := types.SignTx(tx, types.LatestSignerForChainID(c.chainID), c.key)
	if err != nil {
		return "", fmt.Errorf("failed to sign transaction: %w", err)
	}
	if err := c.eth.SendTransaction(ctx, signed); err != nil {
		return "", fmt.Errorf("failed to send transaction: %w", err)
	}

	receipt, err := bind.WaitMined(ctx, c.eth, signed)
	if err != nil {
		return "", fmt.Errorf("failed waiting for confirmation: %w", err)
	}
	if receipt.Status != types.ReceiptStatusSuccessful {
		return "", fmt.Errorf("%w: %s", ErrTxReverted, receipt.TxHash.Hex())
	}

	return receipt.TxHash.Hex(), nil
}

func (c *EVMClient) BalanceOf(ctx context.Context, address string) (int64, error) {
	if !IsValidAddress(address) {
		return 0, fmt.Errorf("%w: %q", ErrInvalidAddress, address)
	}
	out, err := c.call(ctx, "balanceOf", common.HexToAddress(address))
	if err != nil {
		return 0, err
	}
	return out[0].(*big.Int).Int64(), nil
}

func (c *EVMClient) NativeBalance(ctx context.Context, address string) (*big.Int, error) {
	if !IsValidAddress(address) {
		return nil, fmt.Errorf("%w: %q", ErrInvalidAddress, address)
	}
	return c.eth.BalanceAt(ctx, common.HexToAddress(address), nil)
}

func (c *EVMClient) OwnerOf(ctx context.Context, tokenID string) (string, error) {
	id, err := parseTokenID(tokenID)
	if err != nil {
		return "", err
	}
	out, err := c.call(ctx, "ownerOf", id)
	if err != nil {
		return "", err
	}
	return out[0].(common.Address).Hex(), nil
}

func (c *EVMClient) TokenURI(ctx context.Context, tokenID string) (string, error) {
	id, err := parseTokenID(tokenID)
	if err != nil {
		return "", err
	}
	out, err := c.call(ctx, "tokenURI", id)
	if err != nil {
		return "", err
	}
	return out[0].(string), nil
}

func (c *EVMClient) GetListingPrice(ctx context.Context, tokenID string) (*big.Int, error) {
	id, err := parseTokenID(tokenID)
	if err != nil {
		return nil, err
	}
	out, err := c.call(ctx, "getListingPrice", id)
	if err != nil {
		return nil, err
	}
	return out[0].(*big.Int), nil
}

func (c *EVMClient) IsListed(ctx context.Context, tokenID string) (bool, error) {
	id, err := parseTokenID(tokenID)
	if err != nil {
		return false, err
	}
	out, err := c.call(ctx, "isListed", id)
	if err != nil {
		return false, err
	}
	return out[0].(bool), nil
}

func (c *EVMClient) IsRetired(ctx context.Context, tokenID string) (bool, error) {
	id, err := parseTokenID(tokenID)
	if err != nil {
		return false, err
	}
	out, err := c.call(ctx, "isRetired", id)
	if err != nil {
		return false, err
	}
	return out[0].(bool), nil
}

func (c *EVMClient) GetSellerRating(ctx context.Context, seller string) (*SellerRating, error) {
	if !IsValidAddress(seller) {
		return nil, fmt.Errorf("%w: %q", ErrInvalidAddress, seller)
	}
	out, err := c.call(ctx, "getSellerRating", common.HexToAddress(seller))
	if err != nil {
		return nil, err
	}
	return &SellerRating{
		TotalRating: out[0].(*big.Int).Int64(),
		RatingCount: out[1].(*big.Int).Int64(),
	}, nil
}

func (c *EVMClient) IsVerifier(ctx context.Context, address string) (bool, error) {
	if !IsValidAddress(address) {
		return false, fmt.Errorf("%w: %q", ErrInvalidAddress, address)
	}
	out, err := c.call(ctx, "isVerifier", common.HexToAddress(address))
	if err != nil {
		return false, err
	}
	return out[0].(bool), nil
}

// transact packs, signs, submits a contract call and waits for the receipt.
func (c *EVMClient) transact(ctx context.Context, value *big.Int, method string, args ...interface{}) (*types.Receipt, error) {
	data, err := c.abi.Pack(method, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to pack %s: %w", method, err)
	}

	nonce, err := c.eth.PendingNonceAt(ctx, c.from)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch nonce: %w", err)
	}
	gasPrice, err := c.eth.SuggestGasPrice(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch gas price: %w", err)
	}
	gasLimit, err := c.eth.EstimateGas(ctx, ethereum.CallMsg{
		From:  c.from,
		To:    &c.contract,
		Value: value,
		Data:  data,
	})
	if err != nil {
		return nil, fmt.Errorf("gas estimation failed: %w", err)
	}

	tx := types.NewTx(&types.LegacyTx{
		Nonce:    nonce,
		To:       &c.contract,
		Value:    value,
		Gas:      gasLimit + gasLimit/5,
		GasPrice: gasPrice,
		Data:     data,
	})

	signed, err := types.SignTx(tx, types.LatestSignerForChainID(c.chainID), c.key)
	if err != nil {
		return nil, fmt.Errorf("failed to sign transaction: %w", err)
	}
	if err := c.eth.SendTransaction(ctx, signed); err != nil {
		return nil, fmt.Errorf("failed to send transaction: %w", err)
	}

	receipt, err := bind.WaitMined(ctx, c.eth, signed)
	if err != nil {
		return nil, fmt.Errorf("failed waiting for confirmation: %w", err)
	}
	if receipt.Status != types.ReceiptStatusSuccessful {
		return nil, fmt.Errorf("%w: %s", ErrTxReverted, receipt.TxHash.Hex())
	}

	return receipt, nil
}

func (c *EVMClient) call(ctx context.Context, method string, args ...interface{}) ([]interface{}, error) {
	data, err := c.abi.Pack(method, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to pack %s: %w", method, err)
	}
	res, err := c.eth.CallContract(ctx, ethereum.CallMsg{To: &c.contract, Data: data}, nil)
	if err != nil {
		return nil, fmt.Errorf("%s call failed: %w", method, err)
	}
	out, err := c.abi.Unpack(method, res)
	if err != nil {
		return nil, fmt.Errorf("failed to unpack %s result: %w", method, err)
	}
	return out, nil
}

// tokenIDFromReceipt extracts the minted token id from the CreditMinted event.
// Returns "0" when the event is not found, matching the contract's fallback.
func (c *EVMClient) tokenIDFromReceipt(receipt *types.Receipt) string {
	minted := c.abi.Events["CreditMinted"]
	for _, log := range receipt.Logs {
		if len(log.Topics) >= 2 && log.Topics[0] == minted.ID {
			return new(big.Int).SetBytes(log.Topics[1].Bytes()).String()
		}
	}
	return "0"
}

func parseTokenID(tokenID string) (*big.Int, error) {
	id, ok := new(big.Int).SetString(tokenID, 10)
	if !ok || id.Sign() < 0 {
		return nil, fmt.Errorf("%w: %q", ErrInvalidTokenID, tokenID)
	}
	return id, nil
}

// MaticToWei converts a MATIC-denominated amount to wei.
func MaticToWei(amount float64) *big.Int {
	wei, _ := new(big.Float).Mul(big.NewFloat(amount), big.NewFloat(1e18)).Int(nil)
	return wei
}
