package security

import (
	"crypto/rand"
	"io"
	"math/big"
)

const (
	otpMin = 1000
	otpMax = 9999
)

// OTPGenerator draws 4-digit codes uniformly from [1000, 9999] using a
// cryptographically secure source.
type OTPGenerator struct {
	rand io.Reader
}

func NewOTPGenerator() *OTPGenerator {
	return &OTPGenerator{rand: rand.Reader}
}

func (g *OTPGenerator) Generate() (int, error) {
	n, err := rand.Int(g.rand, big.NewInt(otpMax-otpMin+1))
	if err != nil {
		return 0, err
	}
	return otpMin + int(n.Int64()), nil
}
