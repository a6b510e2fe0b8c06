package chainclient

import (
	"bytes"
	"crypto/ecdsa"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/ethereum/go-ethereum/crypto"
	"github.com/pkg/errors"
)

// Client talks to a node of the external ledger network over HTTP. It
// makes exactly one submission attempt per call; retrying failed
// batches is the worker's job, not the client's.
type Client struct {
	baseURL  string
	apiKey   string
	privKey  *ecdsa.PrivateKey
	fromAddr string // base58check
	fromHex  string
	http     *http.Client
}

func New(baseURL, apiKey, privKeyHex string) (*Client, error) {
	privBytes, err := hex.DecodeString(privKeyHex)
	if err != nil {
		return nil, errors.Wrap(err, "failed to decode hot wallet key")
	}
	privKey, err := crypto.ToECDSA(privBytes)
	if err != nil {
		return nil, errors.Wrap(err, "failed to convert hot wallet key to ECDSA")
	}

	fromAddr, fromHex := addressFromKey(privKey)
	return &Client{
		baseURL:  baseURL,
		apiKey:   apiKey,
		privKey:  privKey,
		fromAddr: fromAddr,
		fromHex:  fromHex,
		http:     &http.Client{Timeout: 30 * time.Second},
	}, nil
}

// HotAddress returns the base58check address of the operating wallet.
func (c *Client) HotAddress() string {
	return c.fromAddr
}

// SubmitTransaction moves amount clicks from the hot wallet to
// toAddress. It returns the network transaction id on success; on a
// node-reported failure the error is an *APIError carrying the node's
// code.
func (c *Client) SubmitTransaction(toAddress string, amount int64, message string) (string, error) {
	toHex, err := AddressToHex(toAddress)
	if err != nil {
		return "", err
	}

	param := map[string]interface{}{
		"owner_address": c.fromHex,
		"to_address":    toHex,
		"amount":        amount,
		"extra_data":    hex.EncodeToString([]byte(message)),
		"visible":       false,
	}

	rawTx, err := c.post("/wallet/createtransaction", param)
	if err != nil {
		return "", errors.Wrap(err, "failed to create transaction")
	}

	signedTx, err := c.signTransaction(rawTx)
	if err != nil {
		return "", errors.Wrap(err, "failed to sign transaction")
	}

	broadcast, err := c.post("/wallet/broadcasttransaction", signedTx)
	if err != nil {
		return "", errors.Wrap(err, "failed to broadcast transaction")
	}

	var result struct {
		Code    string `json:"code"`
		Message string `json:"message"`
		TxID    string `json:"txid"`
	}
	if err := json.Unmarshal(broadcast, &result); err != nil {
		return "", errors.Wrap(err, "failed to parse broadcast result")
	}
	if result.Code != "" {
		return "", &APIError{Code: result.Code, Message: result.Message}
	}

	return result.TxID, nil
}

// QueryBalance returns the confirmed balance of address in clicks.
func (c *Client) QueryBalance(address string) (int64, error) {
	addrHex, err := AddressToHex(address)
	if err != nil {
		return 0, err
	}

	response, err := c.post("/wallet/getaccount", map[string]interface{}{
		"address": addrHex,
		"visible": false,
	})
	if err != nil {
		return 0, errors.Wrap(err, "failed to get account")
	}

	var result struct {
		Balance int64 `json:"balance"`
	}
	if err := json.Unmarshal(response, &result); err != nil {
		return 0, errors.Wrap(err, "failed to parse account response")
	}

	return result.Balance, nil
}

func (c *Client) signTransaction(rawTx []byte) (map[string]interface{}, error) {
	var tx map[string]interface{}
	if err := json.Unmarshal(rawTx, &tx); err != nil {
		return nil, fmt.Errorf("failed to unmarshal raw transaction: %v", err)
	}

	if errHex, ok := tx["Error"].(string); ok && errHex != "" {
		return nil, fmt.Errorf("node rejected transaction: %s", errHex)
	}

	rawDataHex, ok := tx["raw_data_hex"].(string)
	if !ok {
		return nil, errors.New("missing raw_data_hex in transaction")
	}

	rawDataBytes, err := hex.DecodeString(rawDataHex)
	if err != nil {
		return nil, fmt.Errorf("failed to decode raw_data_hex: %v", err)
	}

	hash := sha256.Sum256(rawDataBytes)
	sig, err := crypto.Sign(hash[:], c.privKey)
	if err != nil {
		return nil, fmt.Errorf("failed to sign transaction: %v", err)
	}

	tx["signature"] = []string{hex.EncodeToString(sig)}
	return tx, nil
}

func (c *Client) post(path string, payload interface{}) ([]byte, error) {
	b, _ := json.Marshal(payload)
	req, err := http.NewRequest("POST", c.baseURL+path, bytes.NewBuffer(b))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("API-KEY", c.apiKey)

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode >= 400 {
		return nil, fmt.Errorf("node returned HTTP %d: %s", resp.StatusCode, body)
	}
	return body, nil
}
