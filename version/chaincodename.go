// Package version reports what the running chaincode binary is.
package version

import "os"

// coreChaincodeIDNameEnv is set by the peer when it launches the chaincode.
const coreChaincodeIDNameEnv = "CORE_CHAINCODE_ID_NAME"

// CoreChaincodeIDName returns the chaincode package id the peer started the
// process with, or a note that the variable is empty.
func CoreChaincodeIDName() string {
	ch := os.Getenv(coreChaincodeIDNameEnv)
	if ch == "" {
		return "'" + coreChaincodeIDNameEnv + "' is empty"
	}

	return ch
}
