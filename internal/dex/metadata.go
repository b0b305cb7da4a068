package dex

import (
	"bytes"
	"context"
	"fmt"
	"math/big"
	"strings"
	"sync"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"go.uber.org/zap"

	"wallscope/internal/chain"
	"wallscope/internal/errs"
	"wallscope/internal/model"
)

// tokenCache caches token metadata by address so repeated pool fetches do not
// re-query the chain.
type tokenCache struct {
	mu   sync.RWMutex
	data map[common.Address]model.Token
}

func newTokenCache() *tokenCache {
	return &tokenCache{data: make(map[common.Address]model.Token)}
}

func (c *tokenCache) get(address common.Address) (model.Token, bool) {
	c.mu.RLock()
	tok, ok := c.data[address]
	c.mu.RUnlock()
	return tok, ok
}

func (c *tokenCache) set(address common.Address, tok model.Token) {
	c.mu.Lock()
	c.data[address] = tok
	c.mu.Unlock()
}

func callMethod(ctx context.Context, client *chain.Client, target common.Address, parsed abi.ABI, method string, args ...interface{}) ([]interface{}, error) {
	data, err := parsed.Pack(method, args...)
	if err != nil {
		return nil, fmt.Errorf("pack %s: %w", method, err)
	}
	msg := ethereum.CallMsg{To: &target, Data: data}
	resp, err := client.CallContract(ctx, msg, nil)
	if err != nil {
		return nil, fmt.Errorf("call %s: %w", method, err)
	}
	values, err := parsed.Unpack(method, resp)
	if err != nil {
		return nil, fmt.Errorf("unpack %s: %w", method, err)
	}
	return values, nil
}

// FetchToken loads ERC20 metadata. Tokens that fail metadata calls still get
// a usable record: decimals 18, symbol derived from the address prefix.
func FetchToken(ctx context.Context, client *chain.Client, address common.Address, chainID uint64, logger *zap.Logger) (model.Token, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	tok := model.Token{
		Address:  strings.ToLower(address.Hex()),
		ChainID:  chainID,
		Decimals: 18,
		Symbol:   fallbackSymbol(address),
	}
	if client == nil {
		return tok, errs.New(errs.Provider, "chain client is nil")
	}

	stringABI, err := erc20String.get()
	if err != nil {
		return tok, errs.Wrap(errs.Dex, "parse erc20 abi", err)
	}
	bytes32ABI, err := erc20Bytes32.get()
	if err != nil {
		return tok, errs.Wrap(errs.Dex, "parse erc20 bytes32 abi", err)
	}

	if values, err := callMethod(ctx, client, address, stringABI, "decimals"); err == nil {
		if decimals, err := asUint8(values[0]); err == nil {
			tok.Decimals = decimals
		}
	} else {
		logger.Debug("decimals call failed", zap.String("token", tok.Address), zap.Error(err))
	}

	if values, err := callMethod(ctx, client, address, stringABI, "symbol"); err == nil {
		if symbol, ok := values[0].(string); ok && symbol != "" {
			tok.Symbol = symbol
		}
	} else if values, err := callMethod(ctx, client, address, bytes32ABI, "symbol"); err == nil {
		if symbol, ok := bytes32ToString(values[0]); ok && symbol != "" {
			tok.Symbol = symbol
		}
	} else {
		logger.Debug("symbol call failed", zap.String("token", tok.Address), zap.Error(err))
	}

	if values, err := callMethod(ctx, client, address, stringABI, "name"); err == nil {
		if name, ok := values[0].(string); ok {
			tok.Name = name
		}
	} else if values, err := callMethod(ctx, client, address, bytes32ABI, "name"); err == nil {
		if name, ok := bytes32ToString(values[0]); ok {
			tok.Name = name
		}
	} else {
		logger.Debug("name call failed", zap.String("token", tok.Address), zap.Error(err))
	}

	return tok, nil
}

func fallbackSymbol(address common.Address) string {
	hex := address.Hex()
	if len(hex) > 8 {
		hex = hex[:8]
	}
	return strings.ToUpper(strings.TrimPrefix(hex, "0x"))
}

func bytes32ToString(value interface{}) (string, bool) {
	switch v := value.(type) {
	case [32]byte:
		return string(bytes.TrimRight(v[:], "\x00")), true
	case []byte:
		return string(bytes.TrimRight(v, "\x00")), true
	default:
		return "", false
	}
}

func asAddress(value interface{}) (common.Address, error) {
	switch v := value.(type) {
	case common.Address:
		return v, nil
	case *common.Address:
		return *v, nil
	default:
		return common.Address{}, fmt.Errorf("unsupported address type %T", value)
	}
}

func asBigInt(value interface{}) (*big.Int, error) {
	switch v := value.(type) {
	case *big.Int:
		return new(big.Int).Set(v), nil
	case big.Int:
		return new(big.Int).Set(&v), nil
	case uint8:
		return new(big.Int).SetUint64(uint64(v)), nil
	case uint16:
		return new(big.Int).SetUint64(uint64(v)), nil
	case uint32:
		return new(big.Int).SetUint64(uint64(v)), nil
	case uint64:
		return new(big.Int).SetUint64(v), nil
	case int8:
		return big.NewInt(int64(v)), nil
	case int16:
		return big.NewInt(int64(v)), nil
	case int32:
		return big.NewInt(int64(v)), nil
	case int64:
		return big.NewInt(v), nil
	default:
		return nil, fmt.Errorf("unsupported int type %T", value)
	}
}

func asUint8(value interface{}) (uint8, error) {
	switch v := value.(type) {
	case uint8:
		return v, nil
	case uint16:
		return uint8(v), nil
	case uint32:
		return uint8(v), nil
	case uint64:
		return uint8(v), nil
	case *big.Int:
		return uint8(v.Uint64()), nil
	default:
		return 0, fmt.Errorf("unsupported uint8 type %T", value)
	}
}

func int24FromBig(value *big.Int) (int32, error) {
	min := big.NewInt(-1 << 23)
	max := big.NewInt((1 << 23) - 1)
	if value.Cmp(min) < 0 || value.Cmp(max) > 0 {
		return 0, fmt.Errorf("int24 overflow: %s", value.String())
	}
	return int32(value.Int64()), nil
}
