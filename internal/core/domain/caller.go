package domain

import "github.com/ethereum/go-ethereum/common"

// Caller is an HMAC-authenticated machine principal. Address is the
// account it acts as when invoking conversions.
type Caller struct {
	Name      string
	AccessKey string
	Secret    string
	Address   common.Address
}
