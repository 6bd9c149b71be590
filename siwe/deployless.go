package siwe

import (
	"encoding/binary"

	"github.com/ethereum/go-ethereum/common"
)

const (
	opPop        = 0x50
	opCodecopy   = 0x39
	opJumpi      = 0x57
	opGas        = 0x5a
	opJumpdest   = 0x5b
	opPush1      = 0x60
	opPush4      = 0x63
	opPush20     = 0x73
	opCall       = 0xf1
	opReturn     = 0xf3
	opStaticcall = 0xfa
)

type evmAsm struct{ buf []byte }

func (a *evmAsm) op(ops ...byte) { a.buf = append(a.buf, ops...) }

func (a *evmAsm) push1(v byte) { a.buf = append(a.buf, opPush1, v) }

// push4 emits a PUSH4 and returns the operand offset so it can be patched.
func (a *evmAsm) push4(v uint32) int {
	a.buf = append(a.buf, opPush4)
	at := len(a.buf)
	a.buf = binary.BigEndian.AppendUint32(a.buf, v)
	return at
}

func (a *evmAsm) pushAddr(addr common.Address) {
	a.buf = append(a.buf, opPush20)
	a.buf = append(a.buf, addr.Bytes()...)
}

func (a *evmAsm) patch4(at int, v uint32) { binary.BigEndian.PutUint32(a.buf[at:], v) }

// deploylessValidator returns creation code for an eth_call without a target.
// The constructor calls factory with factoryData, ignoring the outcome, then
// staticcalls wallet with checkData and returns the first 32 bytes of its
// result. A failed check returns no data.
//
// Both calldata blobs are appended after the program and read with CODECOPY.
func deploylessValidator(factory common.Address, factoryData []byte, wallet common.Address, checkData []byte) []byte {
	scratch := uint32(max(len(factoryData), len(checkData))+31) &^ 31

	var a evmAsm
	a.push4(uint32(len(factoryData)))
	factoryOff := a.push4(0)
	a.push1(0)
	a.op(opCodecopy)
	a.push1(0)
	a.push1(0)
	a.push4(uint32(len(factoryData)))
	a.push1(0)
	a.push1(0)
	a.pushAddr(factory)
	a.op(opGas, opCall, opPop)

	a.push4(uint32(len(checkData)))
	checkOff := a.push4(0)
	a.push1(0)
	a.op(opCodecopy)
	a.push1(32)
	a.push4(scratch)
	a.push4(uint32(len(checkData)))
	a.push1(0)
	a.pushAddr(wallet)
	a.op(opGas, opStaticcall)
	a.push1(0)
	okDest := len(a.buf) - 1
	a.op(opJumpi)
	a.push1(0)
	a.push1(0)
	a.op(opReturn)

	a.buf[okDest] = byte(len(a.buf))
	a.op(opJumpdest)
	a.push1(32)
	a.push4(scratch)
	a.op(opReturn)

	a.patch4(factoryOff, uint32(len(a.buf)))
	a.patch4(checkOff, uint32(len(a.buf)+len(factoryData)))
	a.buf = append(a.buf, factoryData...)
	return append(a.buf, checkData...)
}
