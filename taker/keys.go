package taker

import (
	"crypto/rand"

	"github.com/btcsuite/btcd/btcec/v2"
	"github.com/decred/dcrd/dcrec/secp256k1/v4"
	"github.com/go-errors/errors"
)

// randomNonce draws a fresh 32-byte scalar nonce from an OS CSPRNG,
// matching the original implementation's use of a CSPRNG over a
// deterministic PRNG (SPEC_FULL.md §D.1).
func randomNonce() ([32]byte, error) {
	var n [32]byte
	if _, err := rand.Read(n[:]); err != nil {
		return n, errors.Errorf("generate nonce: %v", err)
	}
	return n, nil
}

// randomPreimage draws the per-round 32-byte preimage.
func randomPreimage() ([32]byte, error) {
	return randomNonce()
}

// tweakPubkey derives a per-swap pubkey from a Maker's long-lived
// tweakable point by adding the curve point nonce*G, the standard
// additive tweak used throughout this protocol lineage.
func tweakPubkey(base *btcec.PublicKey, nonce [32]byte) (*btcec.PublicKey, error) {
	var nonceScalar secp256k1.ModNScalar
	if overflow := nonceScalar.SetByteSlice(nonce[:]); overflow {
		return nil, errors.New("nonce scalar overflow")
	}

	var noncePoint secp256k1.JacobianPoint
	secp256k1.ScalarBaseMultNonConst(&nonceScalar, &noncePoint)

	var basePoint secp256k1.JacobianPoint
	base.AsJacobian(&basePoint)

	var sum secp256k1.JacobianPoint
	secp256k1.AddNonConst(&basePoint, &noncePoint, &sum)
	sum.ToAffine()

	return btcec.NewPublicKey(&sum.X, &sum.Y), nil
}

// deriveHopKeys derives txCount fresh multisig and hashlock pubkeys by
// tweaking offer's tweakable point with fresh random nonces, returning
// the pubkeys and the nonces that produced them (the nonces must be
// retained: they are forwarded to the next Maker's ProofOfFunding).
func deriveHopKeys(tweakablePoint [33]byte, txCount int) (multisigPubkeys, hashlockPubkeys [][33]byte,
	multisigNonces, hashlockNonces [][32]byte, err error) {

	base, err := btcec.ParsePubKey(tweakablePoint[:])
	if err != nil {
		return nil, nil, nil, nil, errors.Errorf("parse tweakable point: %v", err)
	}

	for i := 0; i < txCount; i++ {
		mNonce, err := randomNonce()
		if err != nil {
			return nil, nil, nil, nil, err
		}
		hNonce, err := randomNonce()
		if err != nil {
			return nil, nil, nil, nil, err
		}

		mPub, err := tweakPubkey(base, mNonce)
		if err != nil {
			return nil, nil, nil, nil, errors.Errorf("tweak multisig pubkey: %v", err)
		}
		hPub, err := tweakPubkey(base, hNonce)
		if err != nil {
			return nil, nil, nil, nil, errors.Errorf("tweak hashlock pubkey: %v", err)
		}

		var mBytes, hBytes [33]byte
		copy(mBytes[:], mPub.SerializeCompressed())
		copy(hBytes[:], hPub.SerializeCompressed())

		multisigPubkeys = append(multisigPubkeys, mBytes)
		hashlockPubkeys = append(hashlockPubkeys, hBytes)
		multisigNonces = append(multisigNonces, mNonce)
		hashlockNonces = append(hashlockNonces, hNonce)
	}
	return multisigPubkeys, hashlockPubkeys, multisigNonces, hashlockNonces, nil
}

// generateOwnKeypairs produces txCount fresh, untweaked keypairs used
// when the Taker itself is the next peer (LastPeer): there is no
// Maker tweakable_point to derive from, since the Taker owns these
// keys outright from the start.
func generateOwnKeypairs(txCount int) ([]*btcec.PrivateKey, [][33]byte, error) {
	privkeys := make([]*btcec.PrivateKey, txCount)
	pubkeys := make([][33]byte, txCount)
	for i := 0; i < txCount; i++ {
		priv, err := btcec.NewPrivateKey()
		if err != nil {
			return nil, nil, errors.Errorf("generate own keypair: %v", err)
		}
		privkeys[i] = priv
		copy(pubkeys[i][:], priv.PubKey().SerializeCompressed())
	}
	return privkeys, pubkeys, nil
}
