package chain

import (
	"encoding/json"
	"fmt"
	"strings"
)

// RPCRequest is a JSON-RPC 2.0 request envelope.
type RPCRequest struct {
	JSONRPC string        `json:"jsonrpc"`
	Method  string        `json:"method"`
	Params  []interface{} `json:"params"`
	ID      int           `json:"id"`
}

// RPCResponse is a JSON-RPC 2.0 response envelope.
type RPCResponse struct {
	JSONRPC string          `json:"jsonrpc"`
	Result  json.RawMessage `json:"result"`
	Error   *RPCError       `json:"error"`
	ID      int             `json:"id"`
}

// RPCError is the error object of a JSON-RPC response.
type RPCError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	Data    string `json:"data,omitempty"`
}

func (e *RPCError) Error() string {
	return fmt.Sprintf("rpc error %d: %s", e.Code, e.Message)
}

// isNotFoundError reports whether err is the node's "unknown transaction"
// response, returned while a transaction has not yet entered a block.
func isNotFoundError(err error) bool {
	rpcErr, ok := err.(*RPCError)
	if !ok {
		return false
	}
	if rpcErr.Code == -100 {
		return true
	}
	return strings.Contains(strings.ToLower(rpcErr.Message), "unknown transaction")
}

// ContractParam is a typed argument for a contract invocation.
type ContractParam struct {
	Type  string      `json:"type"`
	Value interface{} `json:"value"`
}

// NewStringParam builds a String contract parameter.
func NewStringParam(value string) ContractParam {
	return ContractParam{Type: "String", Value: value}
}

// NewIntegerParam builds an Integer contract parameter. Integers travel as
// decimal strings on the wire.
func NewIntegerParam(value string) ContractParam {
	return ContractParam{Type: "Integer", Value: value}
}

// NewHash160Param builds a Hash160 contract parameter from an address or
// script hash.
func NewHash160Param(value string) ContractParam {
	return ContractParam{Type: "Hash160", Value: value}
}

// Signer is a transaction signer with a witness scope.
type Signer struct {
	Account string `json:"account"`
	Scopes  string `json:"scopes"`
}

// StackItem is one item on the VM evaluation stack.
type StackItem struct {
	Type  string          `json:"type"`
	Value json.RawMessage `json:"value"`
}

// InvokeResult is the node's response to invokefunction.
type InvokeResult struct {
	Script      string      `json:"script"`
	State       string      `json:"state"`
	GasConsumed string      `json:"gasconsumed"`
	Exception   string      `json:"exception"`
	Stack       []StackItem `json:"stack"`
	Tx          string      `json:"tx"`
}

// Notification is an event emitted by a contract during execution.
type Notification struct {
	Contract  string    `json:"contract"`
	EventName string    `json:"eventname"`
	State     StackItem `json:"state"`
}

// Execution is one execution entry of an application log.
type Execution struct {
	Trigger       string         `json:"trigger"`
	VMState       string         `json:"vmstate"`
	Exception     string         `json:"exception"`
	GasConsumed   string         `json:"gasconsumed"`
	Stack         []StackItem    `json:"stack"`
	Notifications []Notification `json:"notifications"`
}

// ApplicationLog is the node's response to getapplicationlog.
type ApplicationLog struct {
	TxID       string      `json:"txid"`
	Executions []Execution `json:"executions"`
}

// TxResult summarises a broadcast transaction and, when waited for, its
// execution outcome.
type TxResult struct {
	TxHash  string
	VMState string
	AppLog  *ApplicationLog
}

// Block is a Neo N3 block header with its transaction hashes.
type Block struct {
	Hash      string        `json:"hash"`
	Index     uint64        `json:"index"`
	Time      uint64        `json:"time"`
	TxCount   int           `json:"txcount"`
	Txs       []Transaction `json:"tx"`
	NextBlock string        `json:"nextblockhash"`
}

// Transaction is a Neo N3 transaction as reported by getrawtransaction.
type Transaction struct {
	Hash       string `json:"hash"`
	Size       int    `json:"size"`
	Sender     string `json:"sender"`
	SysFee     string `json:"sysfee"`
	NetFee     string `json:"netfee"`
	BlockHash  string `json:"blockhash"`
	BlockTime  uint64 `json:"blocktime"`
	VMState    string `json:"vmstate"`
	ValidUntil uint64 `json:"validuntilblock"`
}
