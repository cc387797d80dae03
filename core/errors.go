package core

import (
	"errors"

	"github.com/anoideaopen/devicereg/core/logger"
	"github.com/hyperledger/fabric-chaincode-go/shim"
	"github.com/hyperledger/fabric-protos-go/peer"
)

// StatusError is implemented by contract errors that carry their own
// response status, such as 403 or 404.
type StatusError interface {
	error
	Status() int32
}

func errorResponse(err error) peer.Response {
	var se StatusError
	if errors.As(err, &se) && se.Status() >= shim.ERRORTHRESHOLD {
		logger.Logger().Debugf("invoke: %d: %s", se.Status(), err)
		return peer.Response{
			Status:  se.Status(),
			Message: err.Error(),
		}
	}

	logger.Logger().Warnf("invoke: %s", err)
	return shim.Error(err.Error())
}
