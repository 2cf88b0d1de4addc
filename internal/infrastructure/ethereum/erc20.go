/*
 * Copyright (c) 2024 Bima Kharisma Wicaksana
 * GitHub: https://github.com/bimakw
 *
 * Licensed under MIT License with Attribution Requirement.
 * See LICENSE file for details.
 */

package ethereum

import (
	"bytes"
	"context"
	"encoding/hex"
	"fmt"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/common"
)

// ERC-20 function selectors (first 4 bytes of keccak256 hash)
var (
	// balanceOf(address) -> 0x70a08231
	balanceOfSig = common.FromHex("0x70a08231")
	// name() -> 0x06fdde03
	nameSig = common.FromHex("0x06fdde03")
	// symbol() -> 0x95d89b41
	symbolSig = common.FromHex("0x95d89b41")
	// decimals() -> 0x313ce567
	decimalsSig = common.FromHex("0x313ce567")
)

// ERC20Reader reads token state through read-only contract calls
type ERC20Reader struct {
	rpc RPC
}

// NewERC20Reader creates a new ERC-20 reader
func NewERC20Reader(rpc RPC) *ERC20Reader {
	return &ERC20Reader{rpc: rpc}
}

// BalanceOf returns the raw token balance of owner
func (r *ERC20Reader) BalanceOf(ctx context.Context, token, owner common.Address) (*big.Int, error) {
	data := make([]byte, 0, 4+32)
	data = append(data, balanceOfSig...)
	data = append(data, common.LeftPadBytes(owner.Bytes(), 32)...)

	result, err := r.rpc.CallContract(ctx, token, data)
	if err != nil {
		return nil, err
	}
	if len(result) < 32 {
		return nil, fmt.Errorf("invalid balanceOf response length: %d", len(result))
	}

	return new(big.Int).SetBytes(result[:32]), nil
}

// Name fetches token name via eth_call
func (r *ERC20Reader) Name(ctx context.Context, token common.Address) (string, error) {
	result, err := r.rpc.CallContract(ctx, token, nameSig)
	if err != nil {
		return "", err
	}
	return decodeStringOrBytes32(result)
}

// Symbol fetches token symbol via eth_call
func (r *ERC20Reader) Symbol(ctx context.Context, token common.Address) (string, error) {
	result, err := r.rpc.CallContract(ctx, token, symbolSig)
	if err != nil {
		return "", err
	}
	return decodeStringOrBytes32(result)
}

// Decimals fetches token decimals via eth_call
func (r *ERC20Reader) Decimals(ctx context.Context, token common.Address) (uint8, error) {
	result, err := r.rpc.CallContract(ctx, token, decimalsSig)
	if err != nil {
		return 0, err
	}

	if len(result) == 0 {
		return 0, fmt.Errorf("empty result for decimals")
	}

	// uint8 padded to 32 bytes
	if len(result) < 32 {
		return 0, fmt.Errorf("invalid decimals response length: %d", len(result))
	}

	return result[31], nil
}

// decodeStringOrBytes32 decodes a response that could be either:
// 1. ABI-encoded string: offset (32 bytes) + length (32 bytes) + data (padded to 32 bytes)
// 2. bytes32: raw 32 bytes (e.g., MKR token)
func decodeStringOrBytes32(data []byte) (string, error) {
	if len(data) == 0 {
		return "", fmt.Errorf("empty data")
	}

	if len(data) < 32 {
		return "", fmt.Errorf("data too short: %d bytes", len(data))
	}

	// An ABI string starts with offset 0x20
	if len(data) >= 64 {
		offset := new(big.Int).SetBytes(data[:32])
		if offset.Uint64() == 32 {
			length := new(big.Int).SetBytes(data[32:64])
			strLen := int(length.Uint64())

			if strLen == 0 {
				return "", nil
			}

			if len(data) >= 64+strLen {
				return strings.TrimRight(string(data[64:64+strLen]), "\x00"), nil
			}
		}
	}

	result := bytes.TrimRight(data[:32], "\x00")
	if isPrintableASCII(result) {
		return string(result), nil
	}

	return "0x" + hex.EncodeToString(data[:32]), nil
}

// isPrintableASCII checks if all bytes are printable ASCII characters
func isPrintableASCII(data []byte) bool {
	for _, b := range data {
		if b < 32 || b > 126 {
			return false
		}
	}
	return len(data) > 0
}
