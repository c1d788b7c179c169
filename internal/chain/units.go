package chain

import (
	"math/big"

	"github.com/ethereum/go-ethereum/params"
)

func EtherToWei(ether float64) *big.Int {
	v := new(big.Rat).SetFloat64(ether)
	v.Mul(v, new(big.Rat).SetInt(big.NewInt(params.Ether)))
	out := new(big.Int)
	out.Div(v.Num(), v.Denom())
	return out
}

func WeiToEther(wei *big.Int) float64 {
	if wei == nil {
		return 0
	}
	f, _ := new(big.Rat).SetFrac(wei, big.NewInt(params.Ether)).Float64()
	return f
}

func WeiToGwei(wei *big.Int) float64 {
	if wei == nil {
		return 0
	}
	f, _ := new(big.Rat).SetFrac(wei, big.NewInt(params.GWei)).Float64()
	return f
}

func GweiToWei(gwei float64) *big.Int {
	v := new(big.Rat).SetFloat64(gwei)
	v.Mul(v, new(big.Rat).SetInt(big.NewInt(params.GWei)))
	out := new(big.Int)
	out.Div(v.Num(), v.Denom())
	return out
}
