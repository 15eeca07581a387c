package main

import (
	"strconv"

	"github.com/iov-one/quorum"
	"github.com/iov-one/quorum/crypto"
	"github.com/iov-one/quorum/errors"
	"github.com/iov-one/quorum/x/sigs"
	"github.com/iov-one/quorum/x/wallet"
)

// Tx is a wallet message signed by one or more keys. The first
// signature identifies the caller.
type Tx struct {
	Msg        quorum.Msg           `json:"msg"`
	Signatures []*sigs.StdSignature `json:"signatures"`
}

// SignBytes returns the bytes every signature of tx is made over.
func (tx *Tx) SignBytes() ([]byte, error) {
	if tx.Msg == nil {
		return nil, errors.Field("Msg", errors.ErrEmpty, "required")
	}
	raw, err := wallet.ModuleCdc.MarshalBinaryBare(tx.Msg)
	if err != nil {
		return nil, errors.Wrapf(errors.ErrMsg, "cannot serialize: %s", err)
	}
	return raw, nil
}

// Sign appends a signature of signer to tx, bound to the wallet name.
func (tx *Tx) Sign(signer crypto.Signer, walletName string, seq int64) error {
	signBytes, err := tx.SignBytes()
	if err != nil {
		return err
	}
	sig, err := sigs.Sign(signer, signBytes, walletName, seq)
	if err != nil {
		return err
	}
	tx.Signatures = append(tx.Signatures, sig)
	return nil
}

// EncodeTx returns the JSON form of tx accepted by the tx endpoint.
func EncodeTx(tx *Tx) ([]byte, error) {
	return wallet.ModuleCdc.MarshalJSON(tx)
}

// DecodeTx parses the JSON form of a transaction.
func DecodeTx(raw []byte) (*Tx, error) {
	var tx Tx
	if err := wallet.ModuleCdc.UnmarshalJSON(raw, &tx); err != nil {
		return nil, errors.Wrapf(errors.ErrInput, "cannot decode transaction: %s", err)
	}
	for i, s := range tx.Signatures {
		if s == nil {
			return nil, errors.Field("Signatures."+strconv.Itoa(i), errors.ErrEmpty, "missing signature")
		}
	}
	return &tx, nil
}
