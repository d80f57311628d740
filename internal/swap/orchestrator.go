package swap

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"math/big"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/shopspring/decimal"
	"github.com/standx-tools/volgate/internal/config"
	"github.com/standx-tools/volgate/internal/pkg/apperrors"
	"github.com/standx-tools/volgate/internal/pkg/logger"
	"github.com/standx-tools/volgate/internal/signer"
)

// Orchestrator sequences the token swap pipeline: price quote, allowance
// check (with an unlimited approval when short), calldata fetch, transaction
// broadcast and receipt wait. Linear sequencing only; any failed step aborts.
type Orchestrator struct {
	cfg        config.SwapConfig
	tokens     map[string]Token
	router     common.Address
	pools      string
	httpClient *http.Client
}

func New(cfg config.SwapConfig) *Orchestrator {
	return &Orchestrator{
		cfg:        cfg,
		tokens:     buildRegistry(cfg.Tokens),
		router:     common.HexToAddress(cfg.Router),
		pools:      strings.Join(cfg.Pools, ","),
		httpClient: &http.Client{Timeout: 30 * time.Second},
	}
}

// Token resolves a configured token by symbol.
func (o *Orchestrator) Token(symbol string) (Token, bool) {
	t, ok := o.tokens[strings.ToUpper(symbol)]
	return t, ok
}

// Quote is the pricing-service response for one proposed swap.
type Quote struct {
	Status           string      `json:"status"`
	AssumedAmountOut json.Number `json:"assumedAmountOut"`
	PriceImpact      float64     `json:"priceImpact"`
	GasSpent         json.Number `json:"gasSpent"`

	// AmountOut is AssumedAmountOut scaled to the output token's decimals.
	AmountOut decimal.Decimal `json:"amountOutFormatted"`
}

type swapTx struct {
	To       string      `json:"to"`
	Data     string      `json:"data"`
	Gas      json.Number `json:"gas"`
	GasPrice json.Number `json:"gasPrice"`
}

type swapResponse struct {
	Status string `json:"status"`
	Tx     swapTx `json:"tx"`
}

// TokenBalance is an ERC-20 balance read for the wallet address.
type TokenBalance struct {
	Balance   string          `json:"balance"`
	Decimals  uint8           `json:"decimals"`
	Formatted decimal.Decimal `json:"formatted"`
}

// Result reports one completed swap.
type Result struct {
	TxHash      string          `json:"txHash"`
	AmountIn    decimal.Decimal `json:"amountIn"`
	AmountOut   decimal.Decimal `json:"amountOut"`
	PriceImpact float64         `json:"priceImpact"`
	ExplorerURL string          `json:"explorerUrl"`
}

// GetQuote asks the pricing service what amount would be received.
func (o *Orchestrator) GetQuote(ctx context.Context, from, to string, amount decimal.Decimal) (*Quote, error) {
	fromToken, ok := o.Token(from)
	if !ok {
		return nil, apperrors.NewInvalidRequest(fmt.Sprintf("unknown token %q", from))
	}
	toToken, ok := o.Token(to)
	if !ok {
		return nil, apperrors.NewInvalidRequest(fmt.Sprintf("unknown token %q", to))
	}
	if !amount.IsPositive() {
		return nil, apperrors.NewInvalidRequest("amount must be positive")
	}

	amountWei := amount.Shift(fromToken.Decimals).BigInt()
	query := url.Values{
		"tokenIn":     {fromToken.Address.Hex()},
		"tokenOut":    {toToken.Address.Hex()},
		"amount":      {amountWei.String()},
		"maxSlippage": {decimal.NewFromFloat(o.cfg.MaxSlippage).String()},
		"onlyPools":   {o.pools},
	}

	var quote Quote
	if err := o.getJSON(ctx, o.cfg.QuoteURL+"?"+query.Encode(), &quote); err != nil {
		return nil, apperrors.NewStage(apperrors.ErrUpstream, "quote", "quote request failed", err)
	}
	if quote.Status != "Success" {
		return nil, apperrors.NewStage(apperrors.ErrUpstream, "quote", "quote failed: "+quote.Status, nil)
	}

	out, ok := new(big.Int).SetString(quote.AssumedAmountOut.String(), 10)
	if !ok {
		return nil, apperrors.NewStage(apperrors.ErrUpstream, "quote", "malformed quote amount", nil)
	}
	quote.AmountOut = decimal.NewFromBigInt(out, -toToken.Decimals)
	return &quote, nil
}

// GetTokenBalance reads the wallet's ERC-20 balance for tokenAddress.
func (o *Orchestrator) GetTokenBalance(ctx context.Context, wallet *signer.Wallet, tokenAddress string) (*TokenBalance, error) {
	if wallet == nil {
		return nil, apperrors.NewStage(apperrors.ErrSigningFailed, "balance", "wallet private key not configured", nil)
	}

	client, err := o.dial(ctx)
	if err != nil {
		return nil, err
	}
	defer client.Close()

	token := common.HexToAddress(tokenAddress)
	balance, err := erc20BalanceOf(ctx, client, token, wallet.Address())
	if err != nil {
		return nil, apperrors.NewStage(apperrors.ErrUpstream, "balance", "token balance read failed", err)
	}
	decimals, err := erc20Decimals(ctx, client, token)
	if err != nil {
		return nil, apperrors.NewStage(apperrors.ErrUpstream, "balance", "token decimals read failed", err)
	}

	return &TokenBalance{
		Balance:   balance.String(),
		Decimals:  decimals,
		Formatted: decimal.NewFromBigInt(balance, -int32(decimals)),
	}, nil
}

// Execute runs the full pipeline and blocks until the swap is mined.
func (o *Orchestrator) Execute(ctx context.Context, wallet *signer.Wallet, from, to string, amount decimal.Decimal) (*Result, error) {
	if wallet == nil {
		return nil, apperrors.NewStage(apperrors.ErrSigningFailed, "swap", "wallet private key not configured", nil)
	}
	fromToken, ok := o.Token(from)
	if !ok {
		return nil, apperrors.NewInvalidRequest(fmt.Sprintf("unknown token %q", from))
	}

	quote, err := o.GetQuote(ctx, from, to, amount)
	if err != nil {
		return nil, err
	}

	client, err := o.dial(ctx)
	if err != nil {
		return nil, err
	}
	defer client.Close()

	amountWei := amount.Shift(fromToken.Decimals).BigInt()
	if err := o.ensureAllowance(ctx, client, wallet, fromToken, amountWei); err != nil {
		return nil, err
	}

	calldata, err := o.fetchSwapTx(ctx, wallet, fromToken, to, amountWei)
	if err != nil {
		return nil, err
	}

	receipt, txHash, err := o.broadcast(ctx, client, wallet, calldata)
	if err != nil {
		return nil, err
	}
	if receipt.Status == types.ReceiptStatusFailed {
		return nil, apperrors.NewStage(apperrors.ErrUpstream, "swap",
			fmt.Sprintf("swap transaction reverted: %s", txHash), nil)
	}

	logger.Info("swap complete", "from", from, "to", to, "amount", amount, "tx", txHash)
	return &Result{
		TxHash:      txHash,
		AmountIn:    amount,
		AmountOut:   quote.AmountOut,
		PriceImpact: quote.PriceImpact,
		ExplorerURL: "https://bscscan.com/tx/" + txHash,
	}, nil
}

// ensureAllowance approves the router for max-uint when the current
// allowance cannot cover amountWei; sufficient allowances are left alone.
func (o *Orchestrator) ensureAllowance(ctx context.Context, client *ethclient.Client, wallet *signer.Wallet, token Token, amountWei *big.Int) error {
	allowance, err := erc20Allowance(ctx, client, token.Address, wallet.Address(), o.router)
	if err != nil {
		return apperrors.NewStage(apperrors.ErrUpstream, "approve", "allowance read failed", err)
	}
	if allowance.Cmp(amountWei) >= 0 {
		return nil
	}

	data, err := erc20ABI.Pack("approve", o.router, maxUint256)
	if err != nil {
		return apperrors.NewStage(apperrors.ErrInternal, "approve", "pack approve", err)
	}

	receipt, txHash, err := o.sendTx(ctx, client, wallet, token.Address, data, 0, nil)
	if err != nil {
		return apperrors.NewStage(apperrors.ErrUpstream, "approve", "approve transaction failed", err)
	}
	if receipt.Status == types.ReceiptStatusFailed {
		return apperrors.NewStage(apperrors.ErrUpstream, "approve",
			fmt.Sprintf("approve transaction reverted: %s", txHash), nil)
	}
	logger.Info("token approved", "token", token.Symbol, "tx", txHash)
	return nil
}

func (o *Orchestrator) fetchSwapTx(ctx context.Context, wallet *signer.Wallet, fromToken Token, to string, amountWei *big.Int) (*swapTx, error) {
	toToken, ok := o.Token(to)
	if !ok {
		return nil, apperrors.NewInvalidRequest(fmt.Sprintf("unknown token %q", to))
	}

	query := url.Values{
		"tokenIn":     {fromToken.Address.Hex()},
		"tokenOut":    {toToken.Address.Hex()},
		"amount":      {amountWei.String()},
		"maxSlippage": {decimal.NewFromFloat(o.cfg.MaxSlippage).String()},
		"sender":      {wallet.Address().Hex()},
		"onlyPools":   {o.pools},
	}

	var resp swapResponse
	if err := o.getJSON(ctx, o.cfg.SwapURL+"?"+query.Encode(), &resp); err != nil {
		return nil, apperrors.NewStage(apperrors.ErrUpstream, "swap", "swap calldata request failed", err)
	}
	if resp.Status != "Success" {
		return nil, apperrors.NewStage(apperrors.ErrUpstream, "swap", "swap API failed: "+resp.Status, nil)
	}
	if resp.Tx.Data == "" || resp.Tx.Data == "0x" {
		return nil, apperrors.NewStage(apperrors.ErrUpstream, "swap", "swap API returned empty calldata", nil)
	}
	return &resp.Tx, nil
}

func (o *Orchestrator) broadcast(ctx context.Context, client *ethclient.Client, wallet *signer.Wallet, tx *swapTx) (*types.Receipt, string, error) {
	calldata, err := hexutil.Decode(tx.Data)
	if err != nil {
		return nil, "", apperrors.NewStage(apperrors.ErrUpstream, "swap", "malformed swap calldata", err)
	}

	gasLimit := o.cfg.GasLimitFloor
	if g, err := tx.Gas.Int64(); err == nil && uint64(g) > gasLimit {
		gasLimit = uint64(g)
	}
	var gasPrice *big.Int
	if p, err := tx.GasPrice.Int64(); err == nil && p > 0 {
		gasPrice = big.NewInt(p)
	}

	receipt, hash, err := o.sendTx(ctx, client, wallet, common.HexToAddress(tx.To), calldata, gasLimit, gasPrice)
	if err != nil {
		return nil, "", apperrors.NewStage(apperrors.ErrUpstream, "swap", "swap transaction failed", err)
	}
	return receipt, hash, nil
}

// sendTx signs, broadcasts and waits for one legacy transaction. gasLimit 0
// means estimate; gasPrice nil means use the node suggestion.
func (o *Orchestrator) sendTx(ctx context.Context, client *ethclient.Client, wallet *signer.Wallet, to common.Address, data []byte, gasLimit uint64, gasPrice *big.Int) (*types.Receipt, string, error) {
	from := wallet.Address()

	nonce, err := client.PendingNonceAt(ctx, from)
	if err != nil {
		return nil, "", fmt.Errorf("pending nonce: %w", err)
	}
	if gasPrice == nil {
		gasPrice, err = client.SuggestGasPrice(ctx)
		if err != nil {
			return nil, "", fmt.Errorf("suggest gas price: %w", err)
		}
	}
	if gasLimit == 0 {
		gasLimit, err = client.EstimateGas(ctx, ethereum.CallMsg{From: from, To: &to, Data: data})
		if err != nil {
			return nil, "", fmt.Errorf("estimate gas: %w", err)
		}
	}

	chainID, err := client.ChainID(ctx)
	if err != nil {
		return nil, "", fmt.Errorf("chain id: %w", err)
	}

	tx := types.NewTransaction(nonce, to, big.NewInt(0), gasLimit, gasPrice, data)
	signedTx, err := types.SignTx(tx, types.LatestSignerForChainID(chainID), wallet.Key())
	if err != nil {
		return nil, "", fmt.Errorf("sign transaction: %w", err)
	}
	if err := client.SendTransaction(ctx, signedTx); err != nil {
		return nil, "", fmt.Errorf("send transaction: %w", err)
	}

	hash := signedTx.Hash().Hex()
	logger.Debug("transaction sent", "tx", hash, "to", to.Hex())

	receipt, err := bind.WaitMined(ctx, client, signedTx)
	if err != nil {
		return nil, hash, fmt.Errorf("wait mined: %w", err)
	}
	return receipt, hash, nil
}

func (o *Orchestrator) dial(ctx context.Context) (*ethclient.Client, error) {
	client, err := ethclient.DialContext(ctx, o.cfg.RPCURL)
	if err != nil {
		return nil, apperrors.NewStage(apperrors.ErrUpstream, "rpc", "chain RPC dial failed", err)
	}
	return client, nil
}

func (o *Orchestrator) getJSON(ctx context.Context, fullURL string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, fullURL, nil)
	if err != nil {
		return err
	}
	req.Header.Set("accept", "application/json")

	resp, err := o.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return err
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("status %d: %s", resp.StatusCode, strings.TrimSpace(string(data)))
	}
	return json.Unmarshal(data, out)
}
