package circuit

import (
	"math/big"

	"github.com/consensys/gnark/frontend"
	"github.com/consensys/gnark/std/hash/mimc"
)

// bytesToBits decomposes byte variables into bit matrices, range-checking
// every byte to eight bits in the process.
func bytesToBits(api frontend.API, bytes []frontend.Variable) [][]frontend.Variable {
	bits := make([][]frontend.Variable, len(bytes))
	for i, b := range bytes {
		bits[i] = api.ToBinary(b, 8)
	}
	return bits
}

// xorBits XORs two equal-length bit matrices bytewise.
func xorBits(api frontend.API, a, b [][]frontend.Variable) [][]frontend.Variable {
	out := make([][]frontend.Variable, len(a))
	for i := range a {
		byteBits := make([]frontend.Variable, len(a[i]))
		for j := range a[i] {
			byteBits[j] = api.Xor(a[i][j], b[i][j])
		}
		out[i] = byteBits
	}
	return out
}

// packBytesLE packs the byte range [from, to) of a bit matrix into a
// single variable, little-endian: the first byte is least significant.
func packBytesLE(api frontend.API, bits [][]frontend.Variable, from, to int) frontend.Variable {
	all := make([]frontend.Variable, 0, 8*(to-from))
	for i := from; i < to; i++ {
		all = append(all, bits[i]...)
	}
	return api.FromBinary(all...)
}

// packLimbsLE packs a bit matrix into 16-byte little-endian limbs, the
// in-circuit mirror of crypto.PackBytes.
func packLimbsLE(api frontend.API, bits [][]frontend.Variable) []frontend.Variable {
	const limb = 16
	limbs := make([]frontend.Variable, 0, (len(bits)+limb-1)/limb)
	for start := 0; start < len(bits); start += limb {
		end := start + limb
		if end > len(bits) {
			end = len(bits)
		}
		limbs = append(limbs, packBytesLE(api, bits, start, end))
	}
	return limbs
}

// isLessOrEqual returns 1 if a <= b. Both operands must already be
// constrained below 2^nbBits; the comparison offsets the difference by
// 2^nbBits and reads the carry bit.
func isLessOrEqual(api frontend.API, a, b frontend.Variable, nbBits int) frontend.Variable {
	shift := new(big.Int).Lsh(big.NewInt(1), uint(nbBits))
	d := api.Add(api.Sub(b, a), shift)
	return api.ToBinary(d, nbBits+1)[nbBits]
}

// isLess returns 1 if a < b, under the same range precondition as
// isLessOrEqual.
func isLess(api frontend.API, a, b frontend.Variable, nbBits int) frontend.Variable {
	shift := new(big.Int).Lsh(big.NewInt(1), uint(nbBits))
	shift.Sub(shift, big.NewInt(1))
	d := api.Add(api.Sub(b, a), shift)
	return api.ToBinary(d, nbBits+1)[nbBits]
}

// hashMiMC hashes field elements with a fresh in-circuit MiMC instance.
func hashMiMC(api frontend.API, elems ...frontend.Variable) (frontend.Variable, error) {
	h, err := mimc.NewMiMC(api)
	if err != nil {
		return nil, err
	}
	h.Write(elems...)
	return h.Sum(), nil
}

// prfBlockBits computes one PRF block in-circuit: the low 128 bits of
// MiMC(seed, point) as a 16-byte little-endian bit matrix, mirroring
// crypto.MiMCPRF.
func prfBlockBits(api frontend.API, seed, point frontend.Variable) ([][]frontend.Variable, error) {
	sum, err := hashMiMC(api, seed, point)
	if err != nil {
		return nil, err
	}
	bits := api.ToBinary(sum, api.Compiler().FieldBitLen())
	block := make([][]frontend.Variable, 16)
	for i := range block {
		block[i] = bits[8*i : 8*i+8]
	}
	return block, nil
}

// timeWindow returns the AND of the window checks
// lower < time <= upper, after range-checking the witness timestamp.
func timeWindow(api frontend.API, time, lower, upper frontend.Variable, nbBits int) frontend.Variable {
	api.ToBinary(time, nbBits)
	api.ToBinary(lower, nbBits)
	api.ToBinary(upper, nbBits)
	lowerOK := isLess(api, lower, time, nbBits)
	upperOK := isLessOrEqual(api, time, upper, nbBits)
	return api.And(lowerOK, upperOK)
}
